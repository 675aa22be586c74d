// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bluetool

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadConfig(t *testing.T) {
	dir := t.TempDir()

	c, err := LoadConfig(filepath.Join(dir, "nonono.json"))
	require.NoError(t, err)
	assert.Equal(t, defaultScanTimeout, c.ScanTimeout)
	assert.Equal(t, 10*time.Second, c.ScanDuration())
	assert.Equal(t, "", c.Adapter)
	assert.Equal(t, 0, c.MaxPairingWorkers)

	file := filepath.Join(dir, "config.json")
	err = os.WriteFile(file, []byte(`{"ScanTimeout": 3, "Adapter": "hci1", "MaxPairingWorkers": 2}`), 0644)
	require.NoError(t, err)

	c, err = LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, file, c.File())
	assert.Equal(t, 3*time.Second, c.ScanDuration())
	assert.Equal(t, "hci1", c.Adapter)
	assert.Equal(t, 2, c.MaxPairingWorkers)
}

func Test_LoadConfigFix(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(file, []byte(`{"ScanTimeout": -5, "MaxPairingWorkers": -1}`), 0644)
	require.NoError(t, err)

	c, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, defaultScanTimeout, c.ScanTimeout)
	assert.Equal(t, 0, c.MaxPairingWorkers)
}

func Test_ConfigSave(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	c, err := LoadConfig(file)
	require.NoError(t, err)

	c.ScanTimeout = 7
	c.Adapter = "00:1A:7D:DA:71:13"
	require.NoError(t, c.Save())

	c2, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, 7, c2.ScanTimeout)
	assert.Equal(t, "00:1A:7D:DA:71:13", c2.Adapter)
}

func Test_LoadConfigBroken(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(file, []byte(`{"ScanTimeout": `), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(file)
	assert.Error(t, err)
}
