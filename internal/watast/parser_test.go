// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package watast

import "testing"

func mustParse(t *testing.T, src string) *Module {
	t.Helper()
	m, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %v", src, err)
	}
	return m
}

func firstFunc(t *testing.T, m *Module) *Func {
	t.Helper()
	for _, f := range m.Fields {
		if fn, ok := f.(*Func); ok {
			return fn
		}
	}
	t.Fatalf("no func field found")
	return nil
}

func opNames(instrs []Instr) []string {
	names := make([]string, len(instrs))
	for i, in := range instrs {
		names[i] = in.Op
	}
	return names
}

func TestParseMinimalModule(t *testing.T) {
	m := mustParse(t, `(module (func (result i32) i32.const 42))`)
	fn := firstFunc(t, m)
	if len(fn.Sig.Results) != 1 || fn.Sig.Results[0] != "i32" {
		t.Fatalf("unexpected result sig: %+v", fn.Sig)
	}
	if got := opNames(fn.Body); len(got) != 1 || got[0] != "i32.const" {
		t.Fatalf("unexpected body: %v", got)
	}
	if fn.Body[0].I32Value != 42 {
		t.Fatalf("unexpected const value: %d", fn.Body[0].I32Value)
	}
}

func TestParseFoldedInstructionsFlatten(t *testing.T) {
	m := mustParse(t, `(module (func (result i32) (i32.add (i32.const 1) (i32.const 2))))`)
	fn := firstFunc(t, m)
	got := opNames(fn.Body)
	want := []string{"i32.const", "i32.const", "i32.add"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestParseFlatBlockMarkers(t *testing.T) {
	m := mustParse(t, `(module (func
		block $l (result i32)
			i32.const 1
		end))`)
	fn := firstFunc(t, m)
	got := opNames(fn.Body)
	want := []string{"block", "i32.const", "end"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if fn.Body[0].Label != "$l" {
		t.Fatalf("expected block label $l, got %q", fn.Body[0].Label)
	}
}

func TestParseFoldedIfThenElse(t *testing.T) {
	m := mustParse(t, `(module (func (result i32)
		(if (result i32) (i32.const 1)
			(then (i32.const 2))
			(else (i32.const 3)))))`)
	fn := firstFunc(t, m)
	got := opNames(fn.Body)
	want := []string{"i32.const", "if", "i32.const", "else", "i32.const", "end"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestParseFlatIfElseEnd(t *testing.T) {
	m := mustParse(t, `(module (func (result i32)
		i32.const 1
		if (result i32)
			i32.const 2
		else
			i32.const 3
		end))`)
	fn := firstFunc(t, m)
	got := opNames(fn.Body)
	want := []string{"i32.const", "if", "i32.const", "else", "i32.const", "end"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseBrTable(t *testing.T) {
	m := mustParse(t, `(module (func
		i32.const 0
		br_table $a $b $default))`)
	fn := firstFunc(t, m)
	last := fn.Body[len(fn.Body)-1]
	if last.Op != "br_table" {
		t.Fatalf("expected br_table, got %s", last.Op)
	}
	if last.DefaultTarget != "$default" {
		t.Fatalf("unexpected default target: %q", last.DefaultTarget)
	}
	if len(last.OtherTargets) != 2 || last.OtherTargets[0] != "$a" || last.OtherTargets[1] != "$b" {
		t.Fatalf("unexpected other targets: %v", last.OtherTargets)
	}
}

func TestParseMemoryAccessImmediates(t *testing.T) {
	m := mustParse(t, `(module (func
		i32.const 0
		i32.load offset=4 align=4
		drop))`)
	fn := firstFunc(t, m)
	load := fn.Body[1]
	if load.Op != "i32.load" || load.Mem.Offset != 4 || load.Mem.Align != 4 {
		t.Fatalf("unexpected load instr: %+v", load)
	}
}

func TestParseGlobalAndExport(t *testing.T) {
	m := mustParse(t, `(module
		(global $g (mut i32) (i32.const 0))
		(func $f (export "run") (result i32) global.get $g))`)
	var g *Global
	var fn *Func
	for _, f := range m.Fields {
		switch v := f.(type) {
		case *Global:
			g = v
		case *Func:
			fn = v
		}
	}
	if g == nil || !g.Mutable || g.Type != "i32" {
		t.Fatalf("unexpected global: %+v", g)
	}
	if fn == nil || len(fn.Exports) != 1 || fn.Exports[0] != "run" {
		t.Fatalf("unexpected func exports: %+v", fn)
	}
}

func TestParseCallIndirectFolded(t *testing.T) {
	m := mustParse(t, `(module (func
		(call_indirect (param i32) (result i32) (i32.const 0) (i32.const 1))))`)
	fn := firstFunc(t, m)
	got := opNames(fn.Body)
	want := []string{"i32.const", "i32.const", "call_indirect"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	ci := fn.Body[len(fn.Body)-1]
	if len(ci.CallSig.Params) != 1 || len(ci.CallSig.Results) != 1 {
		t.Fatalf("unexpected call_indirect sig: %+v", ci.CallSig)
	}
}

func TestParseDataSegment(t *testing.T) {
	m := mustParse(t, `(module (memory 1) (data (i32.const 0) "hi"))`)
	var d *Data
	for _, f := range m.Fields {
		if dd, ok := f.(*Data); ok {
			d = dd
		}
	}
	if d == nil || string(d.Bytes) != "hi" {
		t.Fatalf("unexpected data field: %+v", d)
	}
	if len(d.Offset) != 1 || d.Offset[0].Op != "i32.const" {
		t.Fatalf("unexpected data offset: %+v", d.Offset)
	}
}

func TestParseUnsupportedFieldSkipped(t *testing.T) {
	m := mustParse(t, `(module (table 1 1 funcref) (func))`)
	var kinds []string
	for _, f := range m.Fields {
		switch v := f.(type) {
		case *Unsupported:
			kinds = append(kinds, v.Keyword)
		case *Func:
			kinds = append(kinds, "func")
		}
	}
	if len(kinds) != 2 || kinds[0] != "table" || kinds[1] != "func" {
		t.Fatalf("unexpected fields: %v", kinds)
	}
}

func TestParseRejectsMismatchedParens(t *testing.T) {
	if _, err := Parse([]byte(`(module (func)`)); err == nil {
		t.Fatal("expected an error for unterminated module")
	}
}
