// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProcessValidModule(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "add.wat")
	src := `(module (func (export "add") (param i32 i32) (result i32) (i32.add (local.get 0) (local.get 1))))`
	if err := os.WriteFile(fname, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	out := new(bytes.Buffer)
	if ok := process(out, fname); !ok {
		t.Fatalf("expected process to succeed, output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "ir.Module") {
		t.Fatalf("expected a dumped ir.Module, got:\n%s", out.String())
	}
}

func TestProcessInvalidModule(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "bad.wat")
	src := `(module (func (result i32) i32.const 1 i32.const 2))`
	if err := os.WriteFile(fname, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	out := new(bytes.Buffer)
	if ok := process(out, fname); ok {
		t.Fatalf("expected process to fail on an invalid module, output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "TypeChecking") {
		t.Fatalf("expected a TypeChecking diagnostic, got:\n%s", out.String())
	}
}

func TestProcessMissingFile(t *testing.T) {
	out := new(bytes.Buffer)
	if ok := process(out, filepath.Join(t.TempDir(), "missing.wat")); ok {
		t.Fatal("expected process to fail for a missing file")
	}
}
