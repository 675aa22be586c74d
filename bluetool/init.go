// SPDX-FileCopyrightText: 2022 UnionTech Software Technology Co., Ltd.
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bluetool

import (
	"github.com/linuxdeepin/go-lib/log"
)

var logger = log.NewLogger("bluetool")

func SetLogger(v *log.Logger) {
	logger = v
}
