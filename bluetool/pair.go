// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bluetool

import (
	"context"
)

// PairCallback receives the result of SendReport together with the args
// given to StartPairing. It runs on the pairing goroutine.
type PairCallback func(success bool, args interface{})

// PairTask tracks one StartPairing call.
type PairTask struct {
	address string
	done    chan struct{}
	result  bool
}

func (t *PairTask) Address() string {
	return t.address
}

func (t *PairTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the pairing goroutine has finished, including the callback.
func (t *PairTask) Wait() bool {
	<-t.done
	return t.result
}

// StartPairing runs SendReport on a new goroutine. With MaxPairingWorkers
// set, the goroutine first waits for a free slot.
func (b *Bluetooth) StartPairing(address string, cb PairCallback, args interface{}) *PairTask {
	task := &PairTask{
		address: address,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(task.done)
		if b.pairSem != nil {
			// never fails with a background context
			_ = b.pairSem.Acquire(context.Background(), 1)
			defer b.pairSem.Release(1)
		}
		task.result = b.SendReport(address, cb, args)
	}()
	return task
}

// SendReport pairs with and then trusts the device, and passes the result
// to cb. Trust is only attempted after a successful pair.
func (b *Bluetooth) SendReport(address string, cb PairCallback, args interface{}) bool {
	result := OK(b.Pair(address)) && OK(b.Trust(address))
	logger.Infof("pair and trust %s: %v", address, result)
	if cb != nil {
		cb(result, args)
	}
	return result
}
