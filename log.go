// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wat2ir

import (
	"log"
	"os"
)

// PrintDebugInfo toggles Transform's stage-failure tracing to stderr. It
// is checked on every trace write, so it can be set at run time (as
// cmd/wat2ir-dump's -v flag does); ir.PrintDebugInfo and
// validate.PrintDebugInfo are read only once, at package initialization.
var PrintDebugInfo = false

var logger *log.Logger

func init() {
	logger = log.New(debugOutput{}, "", log.Lshortfile)
}

// debugOutput forwards writes to stderr while PrintDebugInfo is set and
// discards them otherwise.
type debugOutput struct{}

func (debugOutput) Write(p []byte) (int, error) {
	if !PrintDebugInfo {
		return len(p), nil
	}
	return os.Stderr.Write(p)
}
