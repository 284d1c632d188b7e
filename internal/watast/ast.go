// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package watast is the external-collaborator stub this module assumes:
// a minimal hand-rolled .wat tokenizer and parser that yields a typed
// module AST (opcodes, identifiers, byte offsets). A full text-format
// tokenizer/parser is out of scope for this module; this package exists
// only so the lowering and module-assembly stages have something
// concrete to consume, built in a byte-oriented scanning, position-
// tracking, errors-as-values style.
package watast

// Module is the parsed, unresolved top-level `module` form.
type Module struct {
	Name   string // "" if anonymous
	Fields []Field
	Pos    int
}

// Field is one module-level form: func, global, memory, data, export,
// start, or an unsupported construct (import, table, elem, type, tag,
// rec, or a custom section).
type Field interface {
	fieldPos() int
}

// Param is one named-or-anonymous function/block parameter.
type Param struct {
	ID   string // "" if anonymous
	Type string // "i32" | "i64" | "f32" | "f64" | "v128"
}

// Signature is a function or block type: an optional reference to a
// shared type definition, an ordered parameter list, and an ordered
// result-type list.
type Signature struct {
	TypeUse string // "" if inline
	Params  []Param
	Results []string
}

// Func is a `(func ...)` field.
type Func struct {
	ID      string
	Exports []string
	Sig     Signature
	Locals  []Param
	Body    []Instr
	Pos     int
}

func (f *Func) fieldPos() int { return f.Pos }

// Global is a `(global ...)` field.
type Global struct {
	ID      string
	Exports []string
	Type    string
	Mutable bool
	Init    []Instr
	Pos     int
}

func (g *Global) fieldPos() int { return g.Pos }

// DataSegment is an inline data blob attached to a Memory declaration.
type DataSegment struct {
	Offset uint32
	Bytes  []byte
}

// Memory is a `(memory ...)` field.
type Memory struct {
	ID       string
	Exports  []string
	Min, Max uint32
	HasMax   bool
	Is64     bool
	Shared   bool
	Inline   []DataSegment
	Pos      int
}

func (m *Memory) fieldPos() int { return m.Pos }

// Data is a standalone `(data ...)` field.
type Data struct {
	ID     string
	MemID  string  // "" => memory 0
	Offset []Instr // nil => passive segment
	Bytes  []byte
	Pos    int
}

func (d *Data) fieldPos() int { return d.Pos }

// Export is a standalone `(export ...)` field.
type Export struct {
	Name   string
	Kind   string // "func" | "global" | "memory"
	Target string
	Pos    int
}

func (e *Export) fieldPos() int { return e.Pos }

// Start is the `(start ...)` field.
type Start struct {
	Target string
	Pos    int
}

func (s *Start) fieldPos() int { return s.Pos }

// Unsupported is any module field this AST does not model: import,
// table, elem, type, tag, rec, or a component-level form.
type Unsupported struct {
	Keyword string
	Pos     int
}

func (u *Unsupported) fieldPos() int { return u.Pos }

// MemArg is the (offset, align) immediate pair attached to a memory
// instruction, plus the memory it targets.
type MemArg struct {
	MemID  string
	Offset uint32
	Align  uint32
}

// Instr is one flattened instruction in a function body or an
// initializer expression: either a plain opcode or one of the
// structured-control markers (block/loop/if/else/end), always appearing
// in a flat, linear stream — folded (nested s-expression) instructions
// are unfolded into this flat form by the parser (see parser.go).
type Instr struct {
	Op  string // mnemonic, e.g. "i32.add", "block", "end", "br_table"
	Pos int

	// block/loop/if
	Label string
	Sig   Signature

	// br / br_if / br_table
	DefaultTarget string
	OtherTargets  []string

	// call / call_indirect / local.get&set&tee / global.get&set /
	// memory.size / memory.grow
	Target  string
	CallSig Signature // call_indirect only; empty otherwise

	// memory access
	Mem MemArg

	// const
	I32Value int32
	I64Value int64
	F32Bits  uint32
	F64Bits  uint64
}
