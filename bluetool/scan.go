// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bluetool

import (
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	btcommon "github.com/linuxdeepin/dde-bluetool/common/bluetooth"
	"golang.org/x/xerrors"
)

// ScanTask tracks a background scan started by StartScanning.
type ScanTask struct {
	done chan struct{}
	err  error
}

func newScanTask() *ScanTask {
	return &ScanTask{done: make(chan struct{})}
}

// Done is closed when the scan has finished.
func (t *ScanTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the scan has finished and returns its result.
func (t *ScanTask) Wait() error {
	<-t.done
	return t.err
}

// Err returns the result of a finished scan, nil while it still runs.
func (t *ScanTask) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// StartScanning runs Scan in the background. While a scan is in flight no
// new scan is started and the running task is returned instead.
func (b *Bluetooth) StartScanning(timeout time.Duration) *ScanTask {
	b.scanMu.Lock()
	defer b.scanMu.Unlock()
	if b.scanTask != nil {
		logger.Debug("scan already in progress")
		return b.scanTask
	}

	task := newScanTask()
	b.scanTask = task
	go func() {
		task.err = b.Scan(timeout)

		b.scanMu.Lock()
		if b.scanTask == task {
			b.scanTask = nil
		}
		b.scanMu.Unlock()
		close(task.done)
	}()
	return task
}

// IsScanning reports whether a background scan is in flight.
func (b *Bluetooth) IsScanning() bool {
	b.scanMu.Lock()
	defer b.scanMu.Unlock()
	return b.scanTask != nil
}

// Scan runs discovery on the adapter for timeout and blocks meanwhile.
// It can not be stopped early.
func (b *Bluetooth) Scan(timeout time.Duration) error {
	const op = "scan"
	a, err := b.findAdapter(op)
	if err != nil {
		return err
	}

	if b.onDeviceFound != nil {
		cancel, err := b.watchDevicesFound(a.Path())
		if err != nil {
			logger.Warning("failed to watch InterfacesAdded:", err)
		} else {
			defer cancel()
		}
	}

	logger.Debugf("start discovery on %s for %v", a.Path(), timeout)
	err = a.StartDiscovery()
	if err != nil {
		if btcommon.IsBluezError(err, btcommon.ErrNameInProgress) {
			err = xerrors.Errorf("another client is discovering: %w", err)
		}
		return newRemoteCallError(op, "StartDiscovery", a.Path(), err)
	}

	time.Sleep(timeout)

	err = a.StopDiscovery()
	if err != nil {
		return newRemoteCallError(op, "StopDiscovery", a.Path(), err)
	}
	logger.Debug("stop discovery on", a.Path())
	return nil
}

func (b *Bluetooth) watchDevicesFound(adapterPath dbus.ObjectPath) (func(), error) {
	prefix := string(adapterPath) + "/"
	return b.service.WatchInterfacesAdded(func(path dbus.ObjectPath, ifaces map[string]map[string]dbus.Variant) {
		props, ok := ifaces[btcommon.BluezDeviceInterface]
		if !ok || !strings.HasPrefix(string(path), prefix) {
			return
		}
		dev, ok := newDevice(props)
		if !ok {
			return
		}
		logger.Debug("device found:", dev, path)
		b.onDeviceFound(dev, path)
	})
}
