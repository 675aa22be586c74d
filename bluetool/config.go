// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bluetool

import (
	"path/filepath"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/go-lib/utils"
	"github.com/linuxdeepin/go-lib/xdg/basedir"
)

const (
	defaultScanTimeout = 10 // seconds
)

var defaultConfigFile = filepath.Join(basedir.GetUserConfigDir(), "deepin/dde-bluetool/config.json")

type Config struct {
	core utils.Config

	// ScanTimeout is the default discovery window in seconds.
	ScanTimeout int
	// Adapter selects the adapter by path suffix or address, "" means the first one.
	Adapter string
	// MaxPairingWorkers bounds concurrent pairing tasks, 0 means unbounded.
	MaxPairingWorkers int

	// OnDeviceFound is called for every device BlueZ announces during a scan.
	// It runs on the signal loop goroutine.
	OnDeviceFound func(dev Device, path dbus.ObjectPath) `json:"-"`
}

func NewConfig() *Config {
	c := &Config{
		ScanTimeout: defaultScanTimeout,
	}
	c.core.SetConfigFile(defaultConfigFile)
	return c
}

// LoadConfig reads filename, or the default config file when filename is
// empty. A missing file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	c := NewConfig()
	if filename != "" {
		c.core.SetConfigFile(filename)
	}
	if !c.core.IsConfigFileExists() {
		logger.Debug("config file not exists, use defaults:", c.core.GetConfigFile())
		return c, nil
	}

	err := c.core.Load(c)
	if err != nil {
		return nil, err
	}
	logger.Debug("load config file:", c.core.GetConfigFile())
	c.fix()
	return c, nil
}

func (c *Config) fix() {
	if c.ScanTimeout < 0 {
		logger.Warningf("invalid ScanTimeout %d, use %d", c.ScanTimeout, defaultScanTimeout)
		c.ScanTimeout = defaultScanTimeout
	}
	if c.MaxPairingWorkers < 0 {
		c.MaxPairingWorkers = 0
	}
}

func (c *Config) Save() error {
	return c.core.Save(c)
}

func (c *Config) File() string {
	return c.core.GetConfigFile()
}

func (c *Config) ScanDuration() time.Duration {
	return time.Duration(c.ScanTimeout) * time.Second
}
