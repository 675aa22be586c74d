// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package bluezutil resolves BlueZ adapters and devices on the system bus.

Service is the remote object model the client works against: managed object
enumeration, per-object property access and the Adapter1/Device1 actions.
FindAdapter and FindDevice look objects up by adapter pattern and device address.
*/
package bluezutil

import (
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
	btcommon "github.com/linuxdeepin/dde-bluetool/common/bluetooth"
	"golang.org/x/xerrors"
)

var ErrNotFound = xerrors.New("not found")

// Objects is the reply of org.freedesktop.DBus.ObjectManager.GetManagedObjects:
// object path -> interface name -> property name -> value.
type Objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// WithInterface returns the sorted paths of all objects exposing iface.
func (objs Objects) WithInterface(iface string) []dbus.ObjectPath {
	var paths []dbus.ObjectPath
	for path, ifaces := range objs {
		if _, ok := ifaces[iface]; ok {
			paths = append(paths, path)
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i] < paths[j]
	})
	return paths
}

// StringProp reads a string property out of a property map.
func StringProp(props map[string]dbus.Variant, name string) (string, bool) {
	v, ok := props[name]
	if !ok {
		return "", false
	}
	str, ok := v.Value().(string)
	return str, ok
}

type InterfacesAddedFunc func(path dbus.ObjectPath, ifaces map[string]map[string]dbus.Variant)

type Adapter interface {
	Path() dbus.ObjectPath
	StartDiscovery() error
	StopDiscovery() error
	Discoverable() (bool, error)
	SetDiscoverable(discoverable bool) error
	RemoveDevice(devPath dbus.ObjectPath) error
}

type Device interface {
	Path() dbus.ObjectPath
	// Bool reads the live value of a boolean org.bluez.Device1 property.
	Bool(property string) (bool, error)
	Pair() error
	Connect() error
	Disconnect() error
	SetTrusted(trusted bool) error
}

// Service must be safe for concurrent use by independent calls.
type Service interface {
	ManagedObjects() (Objects, error)
	Adapter(path dbus.ObjectPath) (Adapter, error)
	Device(path dbus.ObjectPath) (Device, error)
	// WatchInterfacesAdded calls fn for every InterfacesAdded signal until
	// the returned cancel func is called.
	WatchInterfacesAdded(fn InterfacesAddedFunc) (func(), error)
	Close()
}

// FindAdapterInObjects returns the first adapter (by path) whose address
// equals pattern or whose path ends with it. An empty pattern matches any adapter.
func FindAdapterInObjects(objects Objects, pattern string) (dbus.ObjectPath, error) {
	for _, path := range objects.WithInterface(btcommon.BluezAdapterInterface) {
		if pattern == "" || strings.HasSuffix(string(path), pattern) {
			return path, nil
		}
		address, _ := StringProp(objects[path][btcommon.BluezAdapterInterface], btcommon.PropAddress)
		if strings.EqualFold(address, pattern) {
			return path, nil
		}
	}
	if pattern == "" {
		return "", xerrors.Errorf("bluetooth adapter: %w", ErrNotFound)
	}
	return "", xerrors.Errorf("bluetooth adapter %q: %w", pattern, ErrNotFound)
}

// FindDeviceInObjects returns the device with the given address. With a
// non-empty adapterPattern the device must live under the matching adapter.
func FindDeviceInObjects(objects Objects, address, adapterPattern string) (dbus.ObjectPath, error) {
	var prefix string
	if adapterPattern != "" {
		adapterPath, err := FindAdapterInObjects(objects, adapterPattern)
		if err != nil {
			return "", err
		}
		prefix = string(adapterPath) + "/"
	}

	for _, path := range objects.WithInterface(btcommon.BluezDeviceInterface) {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		devAddress, _ := StringProp(objects[path][btcommon.BluezDeviceInterface], btcommon.PropAddress)
		if devAddress != "" && strings.EqualFold(devAddress, address) {
			return path, nil
		}
	}
	return "", xerrors.Errorf("bluetooth device %q: %w", address, ErrNotFound)
}

// FindAdapter resolves the active adapter.
func FindAdapter(svc Service, pattern string) (Adapter, error) {
	objects, err := svc.ManagedObjects()
	if err != nil {
		return nil, xerrors.Errorf("get managed objects: %w", err)
	}
	path, err := FindAdapterInObjects(objects, pattern)
	if err != nil {
		return nil, err
	}
	return svc.Adapter(path)
}

// FindDevice resolves a device by its address.
func FindDevice(svc Service, address, adapterPattern string) (Device, error) {
	objects, err := svc.ManagedObjects()
	if err != nil {
		return nil, xerrors.Errorf("get managed objects: %w", err)
	}
	path, err := FindDeviceInObjects(objects, address, adapterPattern)
	if err != nil {
		return nil, err
	}
	return svc.Device(path)
}
