// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bluetool

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/dde-bluetool/bluezutil"
	btcommon "github.com/linuxdeepin/dde-bluetool/common/bluetooth"
	"github.com/linuxdeepin/go-lib/log"
	"golang.org/x/xerrors"
)

const unknownName = "<unknown>"

// Device is the record returned by the listing operations. Two records are
// equal only when both fields are equal.
type Device struct {
	MacAddress string `json:"mac_address"`
	Name       string `json:"name"`
}

func (d Device) String() string {
	return fmt.Sprintf("%s %s", d.MacAddress, d.Name)
}

// newDevice builds the record from the org.bluez.Device1 properties.
// ok is false when the entry has no address.
func newDevice(props map[string]dbus.Variant) (dev Device, ok bool) {
	address, ok := bluezutil.StringProp(props, btcommon.PropAddress)
	if !ok || address == "" {
		return Device{}, false
	}
	name, ok := bluezutil.StringProp(props, btcommon.PropName)
	if !ok || name == "" {
		name = unknownName
	}
	return Device{MacAddress: address, Name: name}, true
}

type Condition int

const (
	ConditionAvailable Condition = iota
	ConditionPaired
	ConditionConnected
)

func (c Condition) String() string {
	switch c {
	case ConditionAvailable:
		return "available"
	case ConditionPaired:
		return "paired"
	case ConditionConnected:
		return "connected"
	default:
		return fmt.Sprintf("Condition(%d)", int(c))
	}
}

// property returns the Device1 boolean the condition filters on, "" for ConditionAvailable.
func (c Condition) property() (string, bool) {
	switch c {
	case ConditionAvailable:
		return "", true
	case ConditionPaired:
		return btcommon.PropPaired, true
	case ConditionConnected:
		return btcommon.PropConnected, true
	}
	return "", false
}

func ParseCondition(str string) (Condition, error) {
	switch strings.ToLower(str) {
	case "available", "":
		return ConditionAvailable, nil
	case "paired":
		return ConditionPaired, nil
	case "connected":
		return ConditionConnected, nil
	}
	return 0, xerrors.Errorf("%q: %w", str, ErrInvalidCondition)
}

// ListDevices enumerates the devices BlueZ knows about, filtered by cond.
// If a remote call fails part way, the devices collected so far are
// returned together with the error. An unknown cond gives an empty list.
func (b *Bluetooth) ListDevices(cond Condition) ([]Device, error) {
	const op = "list devices"

	prop, ok := cond.property()
	if !ok {
		logger.Warningf("%s: %v %v", op, cond, ErrInvalidCondition)
		return []Device{}, nil
	}

	objects, err := b.service.ManagedObjects()
	if err != nil {
		return []Device{}, newRemoteCallError(op, "GetManagedObjects", btcommon.ObjectManagerPath, err)
	}
	if logger.GetLogLevel() == log.LevelDebug {
		logger.Debugf("%s %v, managed objects: %s", op, cond, spew.Sdump(objects))
	}

	devices := make([]Device, 0)
	for _, path := range objects.WithInterface(btcommon.BluezDeviceInterface) {
		if !b.underAdapter(objects, path) {
			continue
		}

		if prop != "" {
			d, err := b.service.Device(path)
			if err != nil {
				return devices, newRemoteCallError(op, "NewDevice", path, err)
			}
			value, err := d.Bool(prop)
			if err != nil {
				return devices, newRemoteCallError(op, "Get "+prop, path, err)
			}
			if !value {
				continue
			}
		}

		dev, ok := newDevice(objects[path][btcommon.BluezDeviceInterface])
		if !ok {
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// underAdapter reports whether path belongs to the configured adapter.
// Without an adapter pattern every device is accepted.
func (b *Bluetooth) underAdapter(objects bluezutil.Objects, path dbus.ObjectPath) bool {
	if b.adapterPattern == "" {
		return true
	}
	adapterPath, err := bluezutil.FindAdapterInObjects(objects, b.adapterPattern)
	if err != nil {
		return false
	}
	return strings.HasPrefix(string(path), string(adapterPath)+"/")
}

func (b *Bluetooth) getDevices(cond Condition) []Device {
	devices, _ := b.ListDevices(cond)
	return devices
}

func (b *Bluetooth) GetAvailableDevices() []Device {
	return b.getDevices(ConditionAvailable)
}

func (b *Bluetooth) GetPairedDevices() []Device {
	return b.getDevices(ConditionPaired)
}

func (b *Bluetooth) GetConnectedDevices() []Device {
	return b.getDevices(ConditionConnected)
}

// GetDevicesToPair returns the available devices minus the paired ones.
// Records are matched on both address and name, so a device that is
// available as "<unknown>" but paired under its real name stays in the result.
func (b *Bluetooth) GetDevicesToPair() []Device {
	available := b.GetAvailableDevices()
	for _, paired := range b.GetPairedDevices() {
		for i, dev := range available {
			if dev == paired {
				available = append(available[:i], available[i+1:]...)
				break
			}
		}
	}
	return available
}
