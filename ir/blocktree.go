// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import "github.com/go-interpreter/wat2ir/diag"

// NodeKind discriminates the shapes a flattened instruction stream is
// folded into by BuildBlockTree.
type NodeKind uint8

const (
	// NodeLeaf wraps a single non-structured instruction.
	NodeLeaf NodeKind = iota
	// NodeBlock is a block or loop: IsLoop distinguishes the two.
	NodeBlock
	// NodeIf is an if, with an optional else arm.
	NodeIf
)

// Node is one entry in the assembled block tree: either a leaf
// instruction or a structured block/loop/if carrying its own nested
// body (and, for if, an else body).
type Node struct {
	Kind  NodeKind
	Instr Instruction // meaningful for NodeLeaf

	IsLoop bool // meaningful for NodeBlock
	Label  string
	Sig    InputOutput
	Body   []Node
	Else   []Node // meaningful for NodeIf; nil when there is no else arm
}

// frame is the shift-reduce parser's working state for one open
// block/loop/if while scanning the flat instruction stream.
type frame struct {
	kind     BlockKind
	label    string
	sig      InputOutput
	then     []Node
	els      []Node
	sawElse  bool
	startPos int
}

// BuildBlockTree assembles a nested tree of Node values out of a flat
// instruction stream delimited by block/loop/if/else/end markers. This
// is a shift-reduce walk: opening markers push a frame that accumulates
// sibling nodes, End pops the frame and emits the composite node into
// its parent's sibling list (or the result, at depth zero).
func BuildBlockTree(instrs []Instruction) ([]Node, *diag.Error) {
	var root []Node
	var stack []*frame

	emit := func(n Node) {
		if len(stack) == 0 {
			root = append(root, n)
			return
		}
		top := stack[len(stack)-1]
		if top.sawElse {
			top.els = append(top.els, n)
		} else {
			top.then = append(top.then, n)
		}
	}

	for _, ins := range instrs {
		if ins.Kind != InstrBlockMarker {
			emit(Node{Kind: NodeLeaf, Instr: ins})
			continue
		}
		switch ins.Block.Kind {
		case BlockMarkerBlock, BlockMarkerLoop, BlockMarkerIf:
			stack = append(stack, &frame{
				kind: ins.Block.Kind, label: ins.Block.Label, sig: ins.Block.Sig, startPos: ins.Pos,
			})
		case BlockMarkerElse:
			if len(stack) == 0 || stack[len(stack)-1].kind != BlockMarkerIf {
				return nil, diag.ElseWithoutIf()
			}
			if stack[len(stack)-1].sawElse {
				return nil, diag.ElseWithoutIf()
			}
			stack[len(stack)-1].sawElse = true
		case BlockMarkerEnd:
			if len(stack) == 0 {
				return nil, diag.New(diag.Parsing, "end without a matching block, loop, or if")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch top.kind {
			case BlockMarkerLoop:
				emit(Node{Kind: NodeBlock, IsLoop: true, Label: top.label, Sig: top.sig, Body: top.then})
			case BlockMarkerIf:
				emit(Node{Kind: NodeIf, Label: top.label, Sig: top.sig, Body: top.then, Else: top.els})
			default:
				emit(Node{Kind: NodeBlock, Label: top.label, Sig: top.sig, Body: top.then})
			}
		}
	}
	if len(stack) != 0 {
		return nil, diag.NewAt(diag.Parsing, stack[len(stack)-1].startPos, "unterminated block, loop, or if")
	}
	return root, nil
}
