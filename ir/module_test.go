// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-interpreter/wat2ir/internal/watast"
)

func mustAssemble(t *testing.T, m *watast.Module) *Module {
	t.Helper()
	mod, err := Assemble(m)
	require.Nil(t, err, "unexpected error: %v", err)
	return mod
}

func TestAssembleFunctionAndExport(t *testing.T) {
	src := &watast.Module{Fields: []watast.Field{
		&watast.Func{
			ID:      "$main",
			Exports: []string{"main"},
			Sig:     watast.Signature{Results: []string{"i32"}},
			Body:    []watast.Instr{{Op: "i32.const", I32Value: 7}},
		},
	}}
	mod := mustAssemble(t, src)
	require.Len(t, mod.Functions, 1)
	assert.Equal(t, "$main", mod.Functions[0].Name)
	assert.Equal(t, ExportDef{Kind: ExportFunction, Target: "$main"}, mod.Exports["main"])
}

func TestAssembleGlobalConstInit(t *testing.T) {
	src := &watast.Module{Fields: []watast.Field{
		&watast.Global{
			ID:   "$g",
			Type: "i32", Mutable: true,
			Init: []watast.Instr{{Op: "i32.const", I32Value: 42}},
		},
	}}
	mod := mustAssemble(t, src)
	require.Len(t, mod.Globals, 1)
	assert.Equal(t, I32, mod.Globals[0].Type)
	assert.True(t, mod.Globals[0].Mutable)
	v, ok := mod.Globals[0].Init.AsU32()
	require.True(t, ok)
	assert.Equal(t, uint32(42), v)
}

func TestAssembleGlobalNonConstInitRejected(t *testing.T) {
	src := &watast.Module{Fields: []watast.Field{
		&watast.Global{
			ID:   "$g",
			Type: "i32",
			Init: []watast.Instr{{Op: "i32.const", I32Value: 1}, {Op: "i32.const", I32Value: 2}},
		},
	}}
	_, err := Assemble(src)
	require.NotNil(t, err)
}

func TestAssembleGlobalInitTypeMismatchRejected(t *testing.T) {
	src := &watast.Module{Fields: []watast.Field{
		&watast.Global{
			ID:   "$g",
			Type: "i32",
			Init: []watast.Instr{{Op: "f32.const", F32Bits: 0x3f800000}},
		},
	}}
	_, err := Assemble(src)
	require.NotNil(t, err)
}

func TestAssembleFunctionWithoutIDGetsPositionalIndex(t *testing.T) {
	src := &watast.Module{Fields: []watast.Field{
		&watast.Func{
			ID:   "$getAnswer",
			Sig:  watast.Signature{Results: []string{"i32"}},
			Body: []watast.Instr{{Op: "i32.const", I32Value: 42}},
		},
		&watast.Func{
			Exports: []string{"plus1"},
			Sig:     watast.Signature{Results: []string{"i32"}},
			Body: []watast.Instr{
				{Op: "call", Target: "$getAnswer"},
				{Op: "i32.const", I32Value: 1},
				{Op: "i32.add"},
			},
		},
	}}
	mod := mustAssemble(t, src)
	require.Len(t, mod.Functions, 2)
	assert.Equal(t, "1", mod.Functions[1].Name)
	assert.Equal(t, ExportDef{Kind: ExportFunction, Target: "1"}, mod.Exports["plus1"])
}

func TestAssembleMemoryWithInlineData(t *testing.T) {
	src := &watast.Module{Fields: []watast.Field{
		&watast.Memory{
			ID: "$m", Min: 1,
			Inline: []watast.DataSegment{{Offset: 0, Bytes: []byte("hi")}},
		},
	}}
	mod := mustAssemble(t, src)
	require.Len(t, mod.Memories, 1)
	require.Len(t, mod.Data, 1)
	assert.Equal(t, "$m", mod.Data[0].MemoryTarget)
	assert.Equal(t, []byte("hi"), mod.Data[0].Bytes)
}

func TestAssembleActiveDataSegment(t *testing.T) {
	src := &watast.Module{Fields: []watast.Field{
		&watast.Memory{ID: "$m", Min: 1},
		&watast.Data{
			MemID:  "$m",
			Offset: []watast.Instr{{Op: "i32.const", I32Value: 16}},
			Bytes:  []byte{1, 2, 3},
		},
	}}
	mod := mustAssemble(t, src)
	require.Len(t, mod.Data, 1)
	require.NotNil(t, mod.Data[0].Offset)
	v, ok := mod.Data[0].Offset.AsU32()
	require.True(t, ok)
	assert.Equal(t, uint32(16), v)
}

func TestAssembleActiveDataSegmentUnknownMemoryRejected(t *testing.T) {
	src := &watast.Module{Fields: []watast.Field{
		&watast.Data{
			MemID:  "$missing",
			Offset: []watast.Instr{{Op: "i32.const", I32Value: 16}},
			Bytes:  []byte{1, 2, 3},
		},
	}}
	_, err := Assemble(src)
	require.NotNil(t, err)
}

func TestAssemblePassiveDataSegment(t *testing.T) {
	src := &watast.Module{Fields: []watast.Field{
		&watast.Data{Bytes: []byte{9}},
	}}
	mod := mustAssemble(t, src)
	require.Len(t, mod.Data, 1)
	assert.Nil(t, mod.Data[0].Offset)
}

func TestAssembleStartAndExportField(t *testing.T) {
	src := &watast.Module{Fields: []watast.Field{
		&watast.Func{ID: "$init", Sig: watast.Signature{}},
		&watast.Start{Target: "$init"},
		&watast.Export{Name: "entry", Kind: "func", Target: "$init"},
	}}
	mod := mustAssemble(t, src)
	assert.Equal(t, "$init", mod.Start)
	assert.Equal(t, ExportDef{Kind: ExportFunction, Target: "$init"}, mod.Exports["entry"])
}

func TestAssembleUnsupportedFieldRejected(t *testing.T) {
	src := &watast.Module{Fields: []watast.Field{
		&watast.Unsupported{Keyword: "table", Pos: 3},
	}}
	_, err := Assemble(src)
	require.NotNil(t, err)
}

func TestSortedExportsIsDeterministic(t *testing.T) {
	mod := &Module{Exports: map[string]ExportDef{
		"zeta":  {Kind: ExportFunction},
		"alpha": {Kind: ExportFunction},
		"mid":   {Kind: ExportFunction},
	}}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, mod.SortedExports())
}
