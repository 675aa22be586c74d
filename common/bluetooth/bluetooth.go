// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bluetooth

import (
	"github.com/godbus/dbus/v5"
	"golang.org/x/xerrors"
)

const (
	BluezServiceName      = "org.bluez"
	BluezAdapterInterface = "org.bluez.Adapter1"
	BluezDeviceInterface  = "org.bluez.Device1"
	ObjectManagerPath     = "/"
)

// Device1 and Adapter1 properties used by the client.
const (
	PropAddress      = "Address"
	PropName         = "Name"
	PropPaired       = "Paired"
	PropConnected    = "Connected"
	PropTrusted      = "Trusted"
	PropDiscoverable = "Discoverable"
)

const (
	ErrNameInProgress   = "org.bluez.Error.InProgress"
	ErrNameDoesNotExist = "org.bluez.Error.DoesNotExist"
)

// ErrorName returns the D-Bus error name carried by err, or "" if err
// did not come back from the bus.
func ErrorName(err error) string {
	var busErr dbus.Error
	if xerrors.As(err, &busErr) {
		return busErr.Name
	}
	var busErrPtr *dbus.Error
	if xerrors.As(err, &busErrPtr) && busErrPtr != nil {
		return busErrPtr.Name
	}
	return ""
}

// IsBluezError reports whether err is the BlueZ error with the given name.
func IsBluezError(err error, name string) bool {
	return err != nil && ErrorName(err) == name
}
