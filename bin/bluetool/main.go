// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/linuxdeepin/dde-bluetool/bluetool"
	"github.com/linuxdeepin/go-lib/log"
	"github.com/linuxdeepin/go-lib/strv"
	"github.com/urfave/cli"
	"golang.org/x/xerrors"
)

var logger = log.NewLogger("bluetool/cli")

func init() {
	bluetool.SetLogger(logger)
}

const listToPair = "to-pair"

var listKinds = strv.Strv{"available", "paired", "connected", listToPair}

var (
	cfg *bluetool.Config
	bt  *bluetool.Bluetooth
)

// newBluetooth is replaced in tests.
var newBluetooth = bluetool.New

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		logger.Warning(err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "bluetool"
	app.Usage = "manage bluetooth devices through BlueZ"
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "debug", Usage: "debug mode"},
		cli.StringFlag{Name: "config", Usage: "config file"},
		cli.StringFlag{Name: "adapter", Usage: "adapter path suffix or address"},
	}
	app.Before = setup
	app.After = func(c *cli.Context) error {
		if bt != nil {
			bt.Close()
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "scan",
			Usage: "discover devices nearby",
			Flags: []cli.Flag{
				cli.DurationFlag{Name: "timeout", Usage: "discovery time, defaults to ScanTimeout of the config"},
			},
			Action: withBluetooth(cmdScan),
		},
		{
			Name:      "list",
			Usage:     "list devices",
			ArgsUsage: "[available|paired|connected|to-pair]",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "json", Usage: "print as json"},
			},
			Action: withBluetooth(cmdList),
		},
		{
			Name:      "pair",
			Usage:     "pair with and trust a device",
			ArgsUsage: "<address>",
			Action:    withBluetooth(cmdPair),
		},
		addressCommand("trust", "trust a device", (*bluetool.Bluetooth).Trust),
		addressCommand("connect", "connect a device", (*bluetool.Bluetooth).Connect),
		addressCommand("disconnect", "disconnect a device", (*bluetool.Bluetooth).Disconnect),
		addressCommand("remove", "remove a device", (*bluetool.Bluetooth).Remove),
		{
			Name:  "discoverable",
			Usage: "make the adapter discoverable",
			Action: withBluetooth(func(c *cli.Context, bt *bluetool.Bluetooth) error {
				return result(bt.MakeDiscoverable())
			}),
		},
	}
	return app
}

func setup(c *cli.Context) error {
	if c.GlobalBool("debug") {
		logger.SetLogLevel(log.LevelDebug)
	}

	var err error
	cfg, err = bluetool.LoadConfig(c.GlobalString("config"))
	if err != nil {
		return xerrors.Errorf("load config: %w", err)
	}
	if c.GlobalIsSet("adapter") {
		cfg.Adapter = c.GlobalString("adapter")
	}
	cfg.OnDeviceFound = func(dev bluetool.Device, path dbus.ObjectPath) {
		fmt.Printf("found %s\t%s\t%s\n", dev.MacAddress, dev.Name, path)
	}
	return nil
}

// withBluetooth connects to the system bus right before a command runs,
// so help output works without a bus.
func withBluetooth(fn func(c *cli.Context, bt *bluetool.Bluetooth) error) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		if bt == nil {
			var err error
			bt, err = newBluetooth(cfg)
			if err != nil {
				return xerrors.Errorf("init bluetooth: %w", err)
			}
		}
		return fn(c, bt)
	}
}

func result(err error) error {
	if bluetool.OK(err) {
		return nil
	}
	return cli.NewExitError(err, 1)
}

func addressArg(c *cli.Context) (string, error) {
	address := c.Args().First()
	if address == "" {
		return "", cli.NewExitError("missing device address", 1)
	}
	return address, nil
}

func addressCommand(name, usage string, fn func(*bluetool.Bluetooth, string) error) cli.Command {
	return cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<address>",
		Action: withBluetooth(func(c *cli.Context, bt *bluetool.Bluetooth) error {
			address, err := addressArg(c)
			if err != nil {
				return err
			}
			return result(fn(bt, address))
		}),
	}
}

func cmdScan(c *cli.Context, bt *bluetool.Bluetooth) error {
	timeout := bt.DefaultScanTimeout()
	if c.IsSet("timeout") {
		timeout = c.Duration("timeout")
	}
	if timeout < 0 {
		return cli.NewExitError("timeout must not be negative", 1)
	}
	fmt.Printf("scanning for %v\n", timeout)
	err := bt.StartScanning(timeout).Wait()
	return result(err)
}

func cmdList(c *cli.Context, bt *bluetool.Bluetooth) error {
	kind := c.Args().First()
	if kind == "" {
		kind = "available"
	}
	if !listKinds.Contains(kind) {
		return cli.NewExitError(fmt.Sprintf("unknown list kind %q, want one of %v", kind, listKinds), 1)
	}

	var devices []bluetool.Device
	if kind == listToPair {
		devices = bt.GetDevicesToPair()
	} else {
		cond, err := bluetool.ParseCondition(kind)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		devices, err = bt.ListDevices(cond)
		if err != nil {
			return result(err)
		}
	}

	if c.Bool("json") {
		data, err := json.MarshalIndent(devices, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	for _, dev := range devices {
		fmt.Printf("%s\t%s\n", dev.MacAddress, dev.Name)
	}
	return nil
}

func cmdPair(c *cli.Context, bt *bluetool.Bluetooth) error {
	address, err := addressArg(c)
	if err != nil {
		return err
	}

	start := time.Now()
	task := bt.StartPairing(address, func(success bool, args interface{}) {
		logger.Debugf("pair %s finished after %v: %v", address, time.Since(args.(time.Time)), success)
	}, start)
	if !task.Wait() {
		return cli.NewExitError(fmt.Sprintf("failed to pair with %s", address), 1)
	}
	fmt.Println("paired and trusted", address)
	return nil
}
