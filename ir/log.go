// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"io/ioutil"
	"log"
	"os"
)

// PrintDebugInfo toggles verbose lowering/assembly tracing, gated the
// same way the package's own debug logger is elsewhere in this module.
var PrintDebugInfo = false

var logger *log.Logger

func init() {
	w := ioutil.Discard
	if PrintDebugInfo {
		w = os.Stderr
	}
	logger = log.New(w, "", log.Lshortfile)
}
