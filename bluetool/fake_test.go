// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bluetool

import (
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/dde-bluetool/bluezutil"
	btcommon "github.com/linuxdeepin/dde-bluetool/common/bluetooth"
	"golang.org/x/xerrors"
)

var errFake = xerrors.New("fake remote error")

// fakeBluez is an in-memory BlueZ that counts the calls made against it.
type fakeBluez struct {
	mu       sync.Mutex
	adapters map[dbus.ObjectPath]*fakeAdapter
	devices  map[dbus.ObjectPath]*fakeDevice
	calls    map[string]int
	handlers map[int]bluezutil.InterfacesAddedFunc
	nextId   int

	managedObjectsErr error
	closed            bool
}

type fakeAdapter struct {
	bluez   *fakeBluez
	path    dbus.ObjectPath
	address string

	discoverable    bool
	discoverableErr error
	startErr        error
	stopErr         error
	removeErr       error
}

type fakeDevice struct {
	bluez   *fakeBluez
	path    dbus.ObjectPath
	address string
	name    string

	props   map[string]bool
	getErr  map[string]error
	callErr map[string]error
	noAddr  bool // omit Address in the managed objects
}

func newFakeBluez() *fakeBluez {
	return &fakeBluez{
		adapters: make(map[dbus.ObjectPath]*fakeAdapter),
		devices:  make(map[dbus.ObjectPath]*fakeDevice),
		calls:    make(map[string]int),
		handlers: make(map[int]bluezutil.InterfacesAddedFunc),
	}
}

func (f *fakeBluez) addAdapter(name, address string) *fakeAdapter {
	a := &fakeAdapter{
		bluez:   f,
		path:    dbus.ObjectPath("/org/bluez/" + name),
		address: address,
	}
	f.adapters[a.path] = a
	return a
}

func devicePath(adapter dbus.ObjectPath, address string) dbus.ObjectPath {
	return adapter + dbus.ObjectPath("/dev_"+strings.ReplaceAll(address, ":", "_"))
}

func (f *fakeBluez) addDevice(a *fakeAdapter, address, name string) *fakeDevice {
	d := &fakeDevice{
		bluez:   f,
		path:    devicePath(a.path, address),
		address: address,
		name:    name,
		props:   make(map[string]bool),
		getErr:  make(map[string]error),
		callErr: make(map[string]error),
	}
	f.devices[d.path] = d
	return d
}

func (f *fakeBluez) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeBluez) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, v := range f.calls {
		n += v
	}
	return n
}

func (f *fakeBluez) record(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *fakeBluez) emitInterfacesAdded(path dbus.ObjectPath, ifaces map[string]map[string]dbus.Variant) {
	f.mu.Lock()
	var handlers []bluezutil.InterfacesAddedFunc
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(path, ifaces)
	}
}

func (f *fakeBluez) handlerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func (f *fakeBluez) ManagedObjects() (bluezutil.Objects, error) {
	if f.managedObjectsErr != nil {
		return nil, f.managedObjectsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	objects := bluezutil.Objects{
		"/org/bluez": {"org.bluez.AgentManager1": {}},
	}
	for path, a := range f.adapters {
		objects[path] = map[string]map[string]dbus.Variant{
			btcommon.BluezAdapterInterface: {
				btcommon.PropAddress: dbus.MakeVariant(a.address),
			},
		}
	}
	for path, d := range f.devices {
		props := map[string]dbus.Variant{}
		if !d.noAddr {
			props[btcommon.PropAddress] = dbus.MakeVariant(d.address)
		}
		if d.name != "" {
			props[btcommon.PropName] = dbus.MakeVariant(d.name)
		}
		objects[path] = map[string]map[string]dbus.Variant{
			btcommon.BluezDeviceInterface: props,
		}
	}
	return objects, nil
}

func (f *fakeBluez) Adapter(path dbus.ObjectPath) (bluezutil.Adapter, error) {
	f.mu.Lock()
	a, ok := f.adapters[path]
	f.mu.Unlock()
	if !ok {
		return nil, errFake
	}
	return a, nil
}

func (f *fakeBluez) Device(path dbus.ObjectPath) (bluezutil.Device, error) {
	f.mu.Lock()
	d, ok := f.devices[path]
	f.mu.Unlock()
	if !ok {
		return nil, errFake
	}
	return d, nil
}

func (f *fakeBluez) WatchInterfacesAdded(fn bluezutil.InterfacesAddedFunc) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextId
	f.nextId++
	f.handlers[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}, nil
}

func (f *fakeBluez) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (a *fakeAdapter) Path() dbus.ObjectPath {
	return a.path
}

func (a *fakeAdapter) StartDiscovery() error {
	a.bluez.record("StartDiscovery")
	return a.startErr
}

func (a *fakeAdapter) StopDiscovery() error {
	a.bluez.record("StopDiscovery")
	return a.stopErr
}

func (a *fakeAdapter) Discoverable() (bool, error) {
	a.bluez.record("Get Discoverable")
	a.bluez.mu.Lock()
	defer a.bluez.mu.Unlock()
	return a.discoverable, a.discoverableErr
}

func (a *fakeAdapter) SetDiscoverable(discoverable bool) error {
	a.bluez.record("Set Discoverable")
	a.bluez.mu.Lock()
	defer a.bluez.mu.Unlock()
	a.discoverable = discoverable
	return nil
}

func (a *fakeAdapter) RemoveDevice(devPath dbus.ObjectPath) error {
	a.bluez.record("RemoveDevice")
	if a.removeErr != nil {
		return a.removeErr
	}
	a.bluez.mu.Lock()
	delete(a.bluez.devices, devPath)
	a.bluez.mu.Unlock()
	return nil
}

func (d *fakeDevice) Path() dbus.ObjectPath {
	return d.path
}

func (d *fakeDevice) Bool(property string) (bool, error) {
	d.bluez.record("Get " + property)
	d.bluez.mu.Lock()
	defer d.bluez.mu.Unlock()
	if err := d.getErr[property]; err != nil {
		return false, err
	}
	return d.props[property], nil
}

func (d *fakeDevice) set(property string, value bool) {
	d.bluez.mu.Lock()
	d.props[property] = value
	d.bluez.mu.Unlock()
}

func (d *fakeDevice) call(method, property string, value bool) error {
	d.bluez.record(method)
	d.bluez.mu.Lock()
	defer d.bluez.mu.Unlock()
	if err := d.callErr[method]; err != nil {
		return err
	}
	d.props[property] = value
	return nil
}

func (d *fakeDevice) Pair() error {
	return d.call("Pair", btcommon.PropPaired, true)
}

func (d *fakeDevice) Connect() error {
	return d.call("Connect", btcommon.PropConnected, true)
}

func (d *fakeDevice) Disconnect() error {
	return d.call("Disconnect", btcommon.PropConnected, false)
}

func (d *fakeDevice) SetTrusted(trusted bool) error {
	return d.call("Set Trusted", btcommon.PropTrusted, trusted)
}
