// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bluezutil

import (
	"sync"

	"github.com/godbus/dbus/v5"
	btcommon "github.com/linuxdeepin/dde-bluetool/common/bluetooth"
	bluez "github.com/linuxdeepin/go-dbus-factory/system/org.bluez"
	"github.com/linuxdeepin/go-lib/dbusutil"
	"github.com/linuxdeepin/go-lib/dbusutil/proxy"
	"golang.org/x/xerrors"
)

type service struct {
	conn          *dbus.Conn
	objectManager bluez.ObjectManager

	sigLoopMu sync.Mutex
	sigLoop   *dbusutil.SignalLoop
}

// NewService returns a Service backed by BlueZ on conn. godbus connections
// serialize their own writes, so one conn is shared by every caller.
func NewService(conn *dbus.Conn) Service {
	return &service{
		conn:          conn,
		objectManager: bluez.NewObjectManager(conn),
	}
}

// NewSystemService connects to the system bus.
func NewSystemService() (Service, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, xerrors.Errorf("connect to system bus: %w", err)
	}
	return NewService(conn), nil
}

func (s *service) ManagedObjects() (Objects, error) {
	objects, err := s.objectManager.GetManagedObjects(0)
	if err != nil {
		return nil, err
	}
	return Objects(objects), nil
}

func (s *service) Adapter(path dbus.ObjectPath) (Adapter, error) {
	core, err := bluez.NewHCI(s.conn, path)
	if err != nil {
		return nil, err
	}
	return &adapter{core: core}, nil
}

func (s *service) Device(path dbus.ObjectPath) (Device, error) {
	core, err := bluez.NewDevice(s.conn, path)
	if err != nil {
		return nil, err
	}
	return &device{conn: s.conn, core: core}, nil
}

func (s *service) WatchInterfacesAdded(fn InterfacesAddedFunc) (func(), error) {
	s.sigLoopMu.Lock()
	if s.sigLoop == nil {
		s.sigLoop = dbusutil.NewSignalLoop(s.conn, 10)
		s.sigLoop.Start()
		s.objectManager.InitSignalExt(s.sigLoop, true)
	}
	s.sigLoopMu.Unlock()

	handlerId, err := s.objectManager.ConnectInterfacesAdded(fn)
	if err != nil {
		return nil, err
	}
	return func() {
		s.objectManager.RemoveHandler(handlerId)
	}, nil
}

func (s *service) Close() {
	s.sigLoopMu.Lock()
	defer s.sigLoopMu.Unlock()
	if s.sigLoop == nil {
		return
	}
	s.objectManager.RemoveHandler(proxy.RemoveAllHandlers)
	s.sigLoop.Stop()
	s.sigLoop = nil
}

type adapter struct {
	core bluez.HCI
}

func (a *adapter) Path() dbus.ObjectPath {
	return a.core.Path_()
}

func (a *adapter) StartDiscovery() error {
	return a.core.Adapter().StartDiscovery(0)
}

func (a *adapter) StopDiscovery() error {
	return a.core.Adapter().StopDiscovery(0)
}

func (a *adapter) Discoverable() (bool, error) {
	return a.core.Adapter().Discoverable().Get(0)
}

func (a *adapter) SetDiscoverable(discoverable bool) error {
	return a.core.Adapter().Discoverable().Set(0, discoverable)
}

func (a *adapter) RemoveDevice(devPath dbus.ObjectPath) error {
	return a.core.Adapter().RemoveDevice(0, devPath)
}

type device struct {
	conn *dbus.Conn
	core bluez.Device
}

func (d *device) Path() dbus.ObjectPath {
	return d.core.Path_()
}

func (d *device) Bool(property string) (bool, error) {
	switch property {
	case btcommon.PropPaired:
		return d.core.Paired().Get(0)
	case btcommon.PropConnected:
		return d.core.Connected().Get(0)
	case btcommon.PropTrusted:
		return d.core.Trusted().Get(0)
	}

	obj := d.conn.Object(btcommon.BluezServiceName, d.core.Path_())
	propVar, err := obj.GetProperty(btcommon.BluezDeviceInterface + "." + property)
	if err != nil {
		return false, err
	}
	value, ok := propVar.Value().(bool)
	if !ok {
		return false, xerrors.Errorf("property %s of %s is not bool", property, d.core.Path_())
	}
	return value, nil
}

func (d *device) Pair() error {
	return d.core.Pair(0)
}

func (d *device) Connect() error {
	return d.core.Connect(0)
}

func (d *device) Disconnect() error {
	return d.core.Disconnect(0)
}

func (d *device) SetTrusted(trusted bool) error {
	return d.core.Trusted().Set(0, trusted)
}
