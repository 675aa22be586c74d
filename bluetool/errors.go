// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bluetool

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"golang.org/x/xerrors"
)

var ErrInvalidCondition = xerrors.New("unknown device condition")

// ResolutionError reports that the adapter or the device an operation
// needs could not be looked up.
type ResolutionError struct {
	Op     string
	Target string // "adapter" or the device address
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: resolve %s: %v", e.Op, e.Target, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// RemoteCallError reports a failed get/set/action call against BlueZ.
type RemoteCallError struct {
	Op     string
	Method string
	Path   dbus.ObjectPath
	Err    error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s: %s on %s: %v", e.Op, e.Method, e.Path, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// OK converts an operation result to the boolean form.
func OK(err error) bool {
	return err == nil
}

func IsResolutionError(err error) bool {
	var e *ResolutionError
	return xerrors.As(err, &e)
}

func IsRemoteCallError(err error) bool {
	var e *RemoteCallError
	return xerrors.As(err, &e)
}

func newResolutionError(op, target string, err error) error {
	e := &ResolutionError{Op: op, Target: target, Err: err}
	logger.Warning(e)
	return e
}

func newRemoteCallError(op, method string, path dbus.ObjectPath, err error) error {
	e := &RemoteCallError{Op: op, Method: method, Path: path, Err: err}
	logger.Warning(e)
	return e
}
