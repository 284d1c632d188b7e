// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"sort"
	"strconv"
	"strings"

	"github.com/go-interpreter/wat2ir/diag"
	"github.com/go-interpreter/wat2ir/internal/watast"
	"golang.org/x/exp/maps"
)

// Function is one lowered, block-tree-assembled function body.
type Function struct {
	Name   string
	Sig    InputOutput
	Locals []NamedValueType
	Body   []Node
}

// GlobalDef is one module-level global, with its initializer already
// restricted to a single constant by constEvalExpr.
type GlobalDef struct {
	Name    string
	Type    ValueType
	Mutable bool
	Init    SerializedNumber
}

// MemoryDef is one module-level linear memory declaration. Min/Max are
// expressed in 64KiB pages.
type MemoryDef struct {
	Name   string
	Min    uint32
	Max    uint32
	HasMax bool
}

// DataDef is one data segment. Offset is nil for a passive segment.
type DataDef struct {
	MemoryTarget string
	Offset       *SerializedNumber
	Bytes        []byte
}

// ExportDef is one resolved export-table entry.
type ExportDef struct {
	Kind   ExportKind
	Target string
}

// Module is the fully assembled, language-neutral module this package
// produces: the end state of lowering and module-field folding, ready
// for validate.Validate.
type Module struct {
	Functions []Function
	Globals   []GlobalDef
	Memories  []MemoryDef
	Data      []DataDef
	Exports   map[string]ExportDef
	Start     string // "" if the module declares no start function
}

// PageSize is the fixed WebAssembly linear-memory page size in bytes.
const PageSize = 65536

// SortedExports returns the module's export names in a deterministic,
// lexically sorted order: Exports is a map (export tables have no
// inherent declaration order worth preserving once name-resolved), so
// any caller wanting stable output — a dump tool, a diff, a test
// fixture — walks this slice rather than ranging the map directly.
func (m *Module) SortedExports() []string {
	names := maps.Keys(m.Exports)
	sort.Strings(names)
	return names
}

// Assemble folds a parsed watast.Module into a Module: functions,
// globals, memories, data, exports, and start are collected;
// import/table/elem/type/tag/rec fields (and any other construct this
// module's AST does not model) are rejected with a clean Unimplemented
// diagnostic rather than silently dropped.
func Assemble(m *watast.Module) (*Module, *diag.Error) {
	out := &Module{Exports: make(map[string]ExportDef)}

	for _, field := range m.Fields {
		switch f := field.(type) {
		case *watast.Func:
			logger.Println("field func")
			id := positionalID(f.ID, len(out.Functions))
			fn, err := assembleFunc(f, id)
			if err != nil {
				return nil, err
			}
			out.Functions = append(out.Functions, fn)
			for _, name := range f.Exports {
				out.Exports[name] = ExportDef{Kind: ExportFunction, Target: id}
			}

		case *watast.Global:
			logger.Println("field global")
			id := positionalID(f.ID, len(out.Globals))
			g, err := assembleGlobal(f, id)
			if err != nil {
				return nil, err
			}
			out.Globals = append(out.Globals, g)
			for _, name := range f.Exports {
				out.Exports[name] = ExportDef{Kind: ExportGlobal, Target: id}
			}

		case *watast.Memory:
			logger.Println("field memory")
			id := positionalID(f.ID, len(out.Memories))
			mem, data, err := assembleMemory(f, id)
			if err != nil {
				return nil, err
			}
			out.Memories = append(out.Memories, mem)
			out.Data = append(out.Data, data...)
			for _, name := range f.Exports {
				out.Exports[name] = ExportDef{Kind: ExportMemory, Target: id}
			}

		case *watast.Data:
			logger.Println("field data")
			d, err := assembleData(f)
			if err != nil {
				return nil, err
			}
			out.Data = append(out.Data, d)

		case *watast.Export:
			logger.Println("field export")
			kind, err := exportKindOf(f.Kind, f.Pos)
			if err != nil {
				return nil, err
			}
			out.Exports[f.Name] = ExportDef{Kind: kind, Target: f.Target}

		case *watast.Start:
			logger.Println("field start")
			out.Start = f.Target

		case *watast.Unsupported:
			return nil, diag.NewUnimplemented("%s declarations are not supported", f.Keyword)

		default:
			return nil, diag.NewUnimplemented("unrecognized module field")
		}
	}

	if err := resolveDataTargets(out); err != nil {
		return nil, err
	}

	logger.Printf("assembled %d functions, %d globals, %d memories, %d data segments, %d exports",
		len(out.Functions), len(out.Globals), len(out.Memories), len(out.Data), len(out.Exports))
	return out, nil
}

// positionalID returns id unchanged if the source declared one, or id's
// positional index stringified if the declaration was anonymous: every
// index space (function, global, memory) assigns unnamed members an
// implicit numeric identifier equal to their declaration order.
func positionalID(id string, index int) string {
	if id != "" {
		return id
	}
	return strconv.Itoa(index)
}

// resolveDataTargets checks that every data segment's memory target
// resolves to an assembled memory, either by "$name" or by decimal
// index into the memory index space.
func resolveDataTargets(m *Module) *diag.Error {
	names := make(map[string]int, len(m.Memories))
	for i, mem := range m.Memories {
		if mem.Name != "" {
			names[mem.Name] = i
		}
	}
	for _, d := range m.Data {
		if d.Offset == nil {
			continue // passive segments are not bound to a memory
		}
		ref := d.MemoryTarget
		if ref == "" {
			ref = "0"
		}
		if _, err := resolveMemoryTarget(ref, names, len(m.Memories)); err != nil {
			return err
		}
	}
	return nil
}

func resolveMemoryTarget(ref string, names map[string]int, count int) (int, *diag.Error) {
	if strings.HasPrefix(ref, "$") {
		idx, ok := names[ref]
		if !ok {
			return 0, diag.NameResolution("memory", ref)
		}
		return idx, nil
	}
	idx, convErr := strconv.Atoi(ref)
	if convErr != nil || idx < 0 || idx >= count {
		return 0, diag.NameResolution("memory", ref)
	}
	return idx, nil
}

func exportKindOf(kind string, pos int) (ExportKind, *diag.Error) {
	switch kind {
	case "func":
		return ExportFunction, nil
	case "global":
		return ExportGlobal, nil
	case "memory":
		return ExportMemory, nil
	default:
		return 0, diag.NewAt(diag.Unimplemented, pos, "exporting a %s is not supported", kind)
	}
}

func assembleFunc(f *watast.Func, id string) (Function, *diag.Error) {
	sig, err := toInputOutput(f.Sig, f.Pos)
	if err != nil {
		return Function{}, err
	}
	locals := make([]NamedValueType, 0, len(f.Locals))
	for _, l := range f.Locals {
		t, err := parseValueType(l.Type, f.Pos)
		if err != nil {
			return Function{}, err
		}
		locals = append(locals, NamedValueType{Name: l.ID, Type: t})
	}
	instrs := make([]Instruction, len(f.Body))
	for i, raw := range f.Body {
		in, err := Lower(raw)
		if err != nil {
			return Function{}, err
		}
		instrs[i] = in
	}
	body, err := BuildBlockTree(instrs)
	if err != nil {
		return Function{}, err
	}
	return Function{Name: id, Sig: sig, Locals: locals, Body: body}, nil
}

func assembleGlobal(g *watast.Global, id string) (GlobalDef, *diag.Error) {
	t, err := parseValueType(g.Type, g.Pos)
	if err != nil {
		return GlobalDef{}, err
	}
	init, err := constEvalExpr(g.Init, t)
	if err != nil {
		return GlobalDef{}, err
	}
	return GlobalDef{Name: id, Type: t, Mutable: g.Mutable, Init: init}, nil
}

func assembleMemory(m *watast.Memory, id string) (MemoryDef, []DataDef, *diag.Error) {
	mem := MemoryDef{Name: id, Min: m.Min, Max: m.Max, HasMax: m.HasMax}
	var data []DataDef
	for _, seg := range m.Inline {
		offset := NewSerializedI32(int32(seg.Offset))
		data = append(data, DataDef{MemoryTarget: id, Offset: &offset, Bytes: seg.Bytes})
	}
	return mem, data, nil
}

func assembleData(d *watast.Data) (DataDef, *diag.Error) {
	if d.Offset == nil {
		return DataDef{MemoryTarget: d.MemID, Bytes: d.Bytes}, nil
	}
	offset, err := constEvalExpr(d.Offset, I32)
	if err != nil {
		return DataDef{}, err
	}
	return DataDef{MemoryTarget: d.MemID, Offset: &offset, Bytes: d.Bytes}, nil
}

// constEvalExpr restricts a module-level initializer expression to
// exactly one Const instruction whose declared type matches want: full
// constant-expression evaluation (global.get of an imported global,
// arithmetic) is out of scope.
func constEvalExpr(instrs []watast.Instr, want ValueType) (SerializedNumber, *diag.Error) {
	if len(instrs) != 1 {
		return SerializedNumber{}, diag.NonInitializerExpression()
	}
	in, err := Lower(instrs[0])
	if err != nil {
		return SerializedNumber{}, err
	}
	if in.Kind != InstrConst {
		return SerializedNumber{}, diag.NonInitializerExpression()
	}
	if in.Const.Type != want {
		return SerializedNumber{}, diag.TypeError(want, in.Const.Type)
	}
	return in.Const, nil
}
