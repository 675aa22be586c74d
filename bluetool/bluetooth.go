// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package bluetool is a small client over the BlueZ D-Bus API.

It lists the available, paired and connected devices, scans, makes the
adapter discoverable, and pairs, trusts, connects, disconnects or removes
devices by address. Every operation returns a *ResolutionError when the
adapter or device can not be found and a *RemoteCallError when BlueZ
rejects a call; OK converts the result to a boolean.
*/
package bluetool

import (
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/dde-bluetool/bluezutil"
	btcommon "github.com/linuxdeepin/dde-bluetool/common/bluetooth"
	"golang.org/x/sync/semaphore"
	"golang.org/x/xerrors"
)

type Bluetooth struct {
	service        bluezutil.Service
	adapterPattern string
	scanTimeout    time.Duration
	pairSem        *semaphore.Weighted // nil means unbounded
	onDeviceFound  func(dev Device, path dbus.ObjectPath)

	scanMu   sync.Mutex
	scanTask *ScanTask
}

// New connects to the system bus. Callers can not do anything useful
// without the bus, so an error here should end the process.
func New(cfg *Config) (*Bluetooth, error) {
	svc, err := bluezutil.NewSystemService()
	if err != nil {
		return nil, err
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService creates a client on svc. A nil cfg means the defaults.
func NewWithService(svc bluezutil.Service, cfg *Config) *Bluetooth {
	if cfg == nil {
		cfg = NewConfig()
	}
	b := &Bluetooth{
		service:        svc,
		adapterPattern: cfg.Adapter,
		scanTimeout:    cfg.ScanDuration(),
		onDeviceFound:  cfg.OnDeviceFound,
	}
	if cfg.MaxPairingWorkers > 0 {
		b.pairSem = semaphore.NewWeighted(int64(cfg.MaxPairingWorkers))
	}
	return b
}

// Close releases the signal handlers registered by scans. The bus
// connection itself is shared and stays open.
func (b *Bluetooth) Close() {
	b.service.Close()
}

// DefaultScanTimeout returns the configured discovery window.
func (b *Bluetooth) DefaultScanTimeout() time.Duration {
	return b.scanTimeout
}

func (b *Bluetooth) findAdapter(op string) (bluezutil.Adapter, error) {
	a, err := bluezutil.FindAdapter(b.service, b.adapterPattern)
	if err != nil {
		return nil, newResolutionError(op, "adapter", err)
	}
	return a, nil
}

func (b *Bluetooth) findDevice(op, address string) (bluezutil.Device, error) {
	d, err := bluezutil.FindDevice(b.service, address, b.adapterPattern)
	if err != nil {
		return nil, newResolutionError(op, address, err)
	}
	return d, nil
}

// ensure reads the boolean prop of the device with the given address and
// calls fn only when prop differs from want.
func (b *Bluetooth) ensure(op, address, prop string, want bool, method string, fn func(bluezutil.Device) error) error {
	d, err := b.findDevice(op, address)
	if err != nil {
		return err
	}

	value, err := d.Bool(prop)
	if err != nil {
		return newRemoteCallError(op, "Get "+prop, d.Path(), err)
	}
	if value == want {
		logger.Debugf("%s: %s %s is already %v", op, address, prop, want)
		return nil
	}

	err = fn(d)
	if err != nil {
		return newRemoteCallError(op, method, d.Path(), err)
	}
	logger.Infof("%s: %s done", op, address)
	return nil
}

func (b *Bluetooth) Pair(address string) error {
	return b.ensure("pair", address, btcommon.PropPaired, true, "Pair", bluezutil.Device.Pair)
}

func (b *Bluetooth) Connect(address string) error {
	return b.ensure("connect", address, btcommon.PropConnected, true, "Connect", bluezutil.Device.Connect)
}

func (b *Bluetooth) Disconnect(address string) error {
	return b.ensure("disconnect", address, btcommon.PropConnected, false, "Disconnect", bluezutil.Device.Disconnect)
}

func (b *Bluetooth) Trust(address string) error {
	return b.ensure("trust", address, btcommon.PropTrusted, true, "Set Trusted", func(d bluezutil.Device) error {
		return d.SetTrusted(true)
	})
}

func (b *Bluetooth) MakeDiscoverable() error {
	const op = "make discoverable"
	a, err := b.findAdapter(op)
	if err != nil {
		return err
	}

	discoverable, err := a.Discoverable()
	if err != nil {
		return newRemoteCallError(op, "Get "+btcommon.PropDiscoverable, a.Path(), err)
	}
	if discoverable {
		return nil
	}

	err = a.SetDiscoverable(true)
	if err != nil {
		return newRemoteCallError(op, "Set "+btcommon.PropDiscoverable, a.Path(), err)
	}
	logger.Info("adapter is discoverable:", a.Path())
	return nil
}

// Remove deletes the device from the adapter, dropping its pairing.
func (b *Bluetooth) Remove(address string) error {
	const op = "remove"
	a, err := b.findAdapter(op)
	if err != nil {
		return err
	}
	d, err := b.findDevice(op, address)
	if err != nil {
		return err
	}

	err = a.RemoveDevice(d.Path())
	if err != nil {
		if btcommon.IsBluezError(err, btcommon.ErrNameDoesNotExist) {
			err = xerrors.Errorf("device %s already gone: %w", d.Path(), err)
		}
		return newRemoteCallError(op, "RemoveDevice", a.Path(), err)
	}
	logger.Infof("removed device %s", address)
	return nil
}
