// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import "testing"

func leaf(op string) Instruction {
	switch op {
	case "nop":
		return Instruction{Kind: InstrSimple, Simple: Nop}
	case "drop":
		return Instruction{Kind: InstrSimple, Simple: Drop}
	default:
		return Instruction{Kind: InstrSimple, Simple: Unreachable}
	}
}

func marker(kind BlockKind) Instruction {
	return Instruction{Kind: InstrBlockMarker, Block: BlockMarker{Kind: kind}}
}

func TestBuildBlockTreeFlat(t *testing.T) {
	nodes, err := BuildBlockTree([]Instruction{leaf("nop"), leaf("drop")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 2 || nodes[0].Kind != NodeLeaf || nodes[1].Kind != NodeLeaf {
		t.Fatalf("unexpected tree: %+v", nodes)
	}
}

func TestBuildBlockTreeNestedBlock(t *testing.T) {
	instrs := []Instruction{
		marker(BlockMarkerBlock),
		leaf("nop"),
		marker(BlockMarkerEnd),
	}
	nodes, err := BuildBlockTree(instrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Kind != NodeBlock || nodes[0].IsLoop {
		t.Fatalf("unexpected tree: %+v", nodes)
	}
	if len(nodes[0].Body) != 1 || nodes[0].Body[0].Kind != NodeLeaf {
		t.Fatalf("unexpected body: %+v", nodes[0].Body)
	}
}

func TestBuildBlockTreeLoop(t *testing.T) {
	instrs := []Instruction{marker(BlockMarkerLoop), marker(BlockMarkerEnd)}
	nodes, err := BuildBlockTree(instrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Kind != NodeBlock || !nodes[0].IsLoop {
		t.Fatalf("unexpected tree: %+v", nodes)
	}
}

func TestBuildBlockTreeIfElse(t *testing.T) {
	instrs := []Instruction{
		marker(BlockMarkerIf),
		leaf("nop"),
		marker(BlockMarkerElse),
		leaf("drop"),
		marker(BlockMarkerEnd),
	}
	nodes, err := BuildBlockTree(instrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Kind != NodeIf {
		t.Fatalf("unexpected tree: %+v", nodes)
	}
	if len(nodes[0].Body) != 1 || nodes[0].Body[0].Instr.Simple != Nop {
		t.Fatalf("unexpected then body: %+v", nodes[0].Body)
	}
	if len(nodes[0].Else) != 1 || nodes[0].Else[0].Instr.Simple != Drop {
		t.Fatalf("unexpected else body: %+v", nodes[0].Else)
	}
}

func TestBuildBlockTreeIfWithoutElse(t *testing.T) {
	instrs := []Instruction{marker(BlockMarkerIf), marker(BlockMarkerEnd)}
	nodes, err := BuildBlockTree(instrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nodes[0].Else != nil {
		t.Fatalf("expected nil else body, got %+v", nodes[0].Else)
	}
}

func TestBuildBlockTreeNested(t *testing.T) {
	instrs := []Instruction{
		marker(BlockMarkerBlock),
		marker(BlockMarkerLoop),
		leaf("nop"),
		marker(BlockMarkerEnd),
		marker(BlockMarkerEnd),
	}
	nodes, err := BuildBlockTree(instrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Kind != NodeBlock {
		t.Fatalf("unexpected outer: %+v", nodes)
	}
	inner := nodes[0].Body
	if len(inner) != 1 || inner[0].Kind != NodeBlock || !inner[0].IsLoop {
		t.Fatalf("unexpected inner: %+v", inner)
	}
}

func TestBuildBlockTreeElseWithoutIf(t *testing.T) {
	_, err := BuildBlockTree([]Instruction{marker(BlockMarkerElse)})
	if err == nil {
		t.Fatal("expected an error for a stray else")
	}
}

func TestBuildBlockTreeUnterminatedBlock(t *testing.T) {
	_, err := BuildBlockTree([]Instruction{marker(BlockMarkerBlock)})
	if err == nil {
		t.Fatal("expected an error for an unterminated block")
	}
}

func TestBuildBlockTreeStrayEnd(t *testing.T) {
	_, err := BuildBlockTree([]Instruction{marker(BlockMarkerEnd)})
	if err == nil {
		t.Fatal("expected an error for a stray end")
	}
}
