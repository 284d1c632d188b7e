// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package watast

import (
	"strconv"
	"strings"

	"github.com/go-interpreter/wat2ir/diag"
)

// Parser turns a token stream into a Module. It accepts both the flat
// instruction form (bare block/loop/if/else/end markers delimiting a
// linear opcode stream) and the folded (nested s-expression) form,
// unfolding the latter into the former so downstream lowering always
// sees a flat stream.
type Parser struct {
	scan *Scanner
	tok  Token
	err  *diag.Error
}

// Parse parses a complete .wat source buffer into a Module.
func Parse(src []byte) (*Module, *diag.Error) {
	p := &Parser{scan: NewScanner(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseTopLevel()
}

func (p *Parser) advance() *diag.Error {
	if p.err != nil {
		return p.err
	}
	tok, err := p.scan.Next()
	if err != nil {
		p.err = err
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) expect(kind TokenKind) (Token, *diag.Error) {
	if p.tok.Kind != kind {
		return Token{}, diag.NewAt(diag.Parsing, p.tok.Pos, "expected %s, found %s", kind, p.tok)
	}
	t := p.tok
	return t, p.advance()
}

func (p *Parser) expectAtomText(text string) *diag.Error {
	if p.tok.Kind != ATOM || p.tok.Text != text {
		return diag.NewAt(diag.Parsing, p.tok.Pos, "expected %q, found %s", text, p.tok)
	}
	return p.advance()
}

func (p *Parser) atIs(text string) bool {
	return p.tok.Kind == ATOM && p.tok.Text == text
}

func (p *Parser) parseTopLevel() (*Module, *diag.Error) {
	if _, err := p.expect(LPAR); err != nil {
		return nil, err
	}
	if err := p.expectAtomText("module"); err != nil {
		if p.atIs("component") {
			return nil, diag.NewUnimplemented("components are not supported")
		}
		return nil, err
	}
	m := &Module{Pos: 0}
	if p.tok.Kind == ATOM && strings.HasPrefix(p.tok.Text, "$") {
		m.Name = p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.atIs("binary") {
		return nil, diag.NewUnimplemented("binary modules are not supported")
	}
	for p.tok.Kind != RPAR {
		field, err := p.parseModuleField()
		if err != nil {
			return nil, err
		}
		m.Fields = append(m.Fields, field)
	}
	if _, err := p.expect(RPAR); err != nil {
		return nil, err
	}
	if p.tok.Kind != EOF {
		return nil, diag.NewAt(diag.Parsing, p.tok.Pos, "unexpected trailing content after module")
	}
	return m, nil
}

func (p *Parser) parseModuleField() (Field, *diag.Error) {
	start := p.tok.Pos
	if _, err := p.expect(LPAR); err != nil {
		return nil, err
	}
	kwTok, err := p.expect(ATOM)
	if err != nil {
		return nil, err
	}
	kw := kwTok.Text
	switch kw {
	case "func":
		return p.parseFunc(start)
	case "global":
		return p.parseGlobal(start)
	case "memory":
		return p.parseMemory(start)
	case "data":
		return p.parseData(start)
	case "export":
		return p.parseExport(start)
	case "start":
		return p.parseStart(start)
	case "import", "table", "elem", "type", "tag", "rec":
		return p.skipUnsupportedField(kw, start)
	default:
		return p.skipUnsupportedField(kw, start)
	}
}

// skipUnsupportedField consumes a balanced-paren field it does not model
// and records it as Unsupported, so the caller can raise a clean
// Unimplemented diagnostic instead of failing to parse.
func (p *Parser) skipUnsupportedField(kw string, start int) (Field, *diag.Error) {
	depth := 1
	for depth > 0 {
		switch p.tok.Kind {
		case LPAR:
			depth++
		case RPAR:
			depth--
		case EOF:
			return nil, diag.NewAt(diag.Parsing, start, "unterminated %s field", kw)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return &Unsupported{Keyword: kw, Pos: start}, nil
}

func (p *Parser) parseOptionalID() string {
	if p.tok.Kind == ATOM && strings.HasPrefix(p.tok.Text, "$") {
		id := p.tok.Text
		p.advance() //nolint:errcheck // a scan error is kept in p.err and returned by the next advance
		return id
	}
	return ""
}

func (p *Parser) parseExportInlineList() ([]string, *diag.Error) {
	var exports []string
	for p.tok.Kind == LPAR && p.peekIsKeyword("export") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		nameTok, err := p.expect(STRING)
		if err != nil {
			return nil, err
		}
		exports = append(exports, nameTok.Text)
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
	}
	return exports, nil
}

func isValType(s string) bool {
	switch s {
	case "i32", "i64", "f32", "f64", "v128":
		return true
	default:
		return false
	}
}

// parseSignature parses zero or more (param ...) forms followed by zero
// or more (result ...) forms, optionally preceded by a (type ...) use.
func (p *Parser) parseSignature() (Signature, *diag.Error) {
	var sig Signature
	for p.tok.Kind == LPAR && (p.peekIsKeyword("type") || p.peekIsKeyword("param") || p.peekIsKeyword("result")) {
		if err := p.advance(); err != nil {
			return sig, err
		}
		switch {
		case p.atIs("type"):
			if err := p.advance(); err != nil {
				return sig, err
			}
			tok, err := p.expect(ATOM)
			if err != nil {
				return sig, err
			}
			sig.TypeUse = tok.Text
			if _, err := p.expect(RPAR); err != nil {
				return sig, err
			}
		case p.atIs("param"):
			if err := p.advance(); err != nil {
				return sig, err
			}
			if id := p.parseOptionalID(); id != "" {
				tok, err := p.expect(ATOM)
				if err != nil {
					return sig, err
				}
				sig.Params = append(sig.Params, Param{ID: id, Type: tok.Text})
			} else {
				for p.tok.Kind == ATOM && isValType(p.tok.Text) {
					sig.Params = append(sig.Params, Param{Type: p.tok.Text})
					if err := p.advance(); err != nil {
						return sig, err
					}
				}
			}
			if _, err := p.expect(RPAR); err != nil {
				return sig, err
			}
		case p.atIs("result"):
			if err := p.advance(); err != nil {
				return sig, err
			}
			for p.tok.Kind == ATOM && isValType(p.tok.Text) {
				sig.Results = append(sig.Results, p.tok.Text)
				if err := p.advance(); err != nil {
					return sig, err
				}
			}
			if _, err := p.expect(RPAR); err != nil {
				return sig, err
			}
		default:
			return sig, diag.NewAt(diag.Parsing, p.tok.Pos, "expected type/param/result, found %s", p.tok)
		}
	}
	return sig, nil
}

func (p *Parser) parseLocals() ([]Param, *diag.Error) {
	var locals []Param
	for p.atIsLocal() {
		if err := p.advance(); err != nil { // consume '('
			return nil, err
		}
		if err := p.advance(); err != nil { // consume 'local'
			return nil, err
		}
		if id := p.parseOptionalID(); id != "" {
			tok, err := p.expect(ATOM)
			if err != nil {
				return nil, err
			}
			locals = append(locals, Param{ID: id, Type: tok.Text})
		} else {
			for p.tok.Kind == ATOM && isValType(p.tok.Text) {
				locals = append(locals, Param{Type: p.tok.Text})
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
		}
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
	}
	return locals, nil
}

// atIsLocal reports whether the parser is positioned at a '(' local ...)'
// form without consuming it.
func (p *Parser) atIsLocal() bool {
	return p.tok.Kind == LPAR && p.peekIsKeyword("local")
}

// peekIsKeyword is a one-token lookahead helper: with p.tok on a '(' it
// reports whether the keyword right after it is kw (telling "(local" from
// "(param"/"(export" and the like). The scanner has no token pushback, so
// it scans ahead on a throwaway copy of the Scanner, a small value type
// over a byte slice and position, and consumes nothing.
func (p *Parser) peekIsKeyword(kw string) bool {
	sub := *p.scan
	tok, err := sub.Next() // the '(' was already consumed into p.tok, so this peeks one past it
	if err != nil {
		return false
	}
	return tok.Kind == ATOM && tok.Text == kw
}

func (p *Parser) parseFunc(start int) (Field, *diag.Error) {
	f := &Func{Pos: start}
	f.ID = p.parseOptionalID()
	exports, err := p.parseExportInlineList()
	if err != nil {
		return nil, err
	}
	f.Exports = exports
	sig, err := p.parseSignature()
	if err != nil {
		return nil, err
	}
	f.Sig = sig
	locals, err := p.parseLocals()
	if err != nil {
		return nil, err
	}
	f.Locals = locals
	body, err := p.parseInstrSequence(false)
	if err != nil {
		return nil, err
	}
	f.Body = body
	if _, err := p.expect(RPAR); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *Parser) parseGlobalType() (string, bool, *diag.Error) {
	if p.tok.Kind == LPAR {
		if err := p.advance(); err != nil {
			return "", false, err
		}
		if err := p.expectAtomText("mut"); err != nil {
			return "", false, err
		}
		tok, err := p.expect(ATOM)
		if err != nil {
			return "", false, err
		}
		if _, err := p.expect(RPAR); err != nil {
			return "", false, err
		}
		return tok.Text, true, nil
	}
	tok, err := p.expect(ATOM)
	if err != nil {
		return "", false, err
	}
	return tok.Text, false, nil
}

func (p *Parser) parseGlobal(start int) (Field, *diag.Error) {
	g := &Global{Pos: start}
	g.ID = p.parseOptionalID()
	exports, err := p.parseExportInlineList()
	if err != nil {
		return nil, err
	}
	g.Exports = exports
	typ, mut, err := p.parseGlobalType()
	if err != nil {
		return nil, err
	}
	g.Type = typ
	g.Mutable = mut
	init, err := p.parseInstrSequence(false)
	if err != nil {
		return nil, err
	}
	g.Init = init
	if _, err := p.expect(RPAR); err != nil {
		return nil, err
	}
	return g, nil
}

func parseUintAtom(text string, pos int) (uint32, *diag.Error) {
	v, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return 0, diag.NewAt(diag.Parsing, pos, "invalid integer literal %q", text)
	}
	return uint32(v), nil
}

func (p *Parser) parseMemory(start int) (Field, *diag.Error) {
	m := &Memory{Pos: start}
	m.ID = p.parseOptionalID()
	exports, err := p.parseExportInlineList()
	if err != nil {
		return nil, err
	}
	m.Exports = exports

	if p.tok.Kind == LPAR && p.peekIsKeyword("data") {
		if err := p.advance(); err != nil { // '('
			return nil, err
		}
		if err := p.advance(); err != nil { // 'data'
			return nil, err
		}
		var blob []byte
		for p.tok.Kind == STRING {
			blob = append(blob, []byte(p.tok.Text)...)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
		pages := (uint32(len(blob)) + pageSize - 1) / pageSize
		if len(blob) == 0 {
			pages = 0
		}
		m.Min, m.Max, m.HasMax = pages, pages, true
		m.Inline = []DataSegment{{Offset: 0, Bytes: blob}}
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
		return m, nil
	}

	if p.atIs("i64") {
		m.Is64 = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if p.atIs("i32") {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	minTok, err := p.expect(ATOM)
	if err != nil {
		return nil, err
	}
	m.Min, err = parseUintAtom(minTok.Text, minTok.Pos)
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == ATOM && !p.atIs("shared") {
		maxTok, err := p.expect(ATOM)
		if err != nil {
			return nil, err
		}
		m.Max, err = parseUintAtom(maxTok.Text, maxTok.Pos)
		if err != nil {
			return nil, err
		}
		m.HasMax = true
	}
	if p.atIs("shared") {
		m.Shared = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(RPAR); err != nil {
		return nil, err
	}
	return m, nil
}

const pageSize = 65536

func (p *Parser) parseData(start int) (Field, *diag.Error) {
	d := &Data{Pos: start}
	d.ID = p.parseOptionalID()

	if p.tok.Kind == LPAR && p.peekIsKeyword("memory") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		tok, err := p.expect(ATOM)
		if err != nil {
			return nil, err
		}
		d.MemID = tok.Text
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
	}

	if p.tok.Kind == LPAR && p.peekIsKeyword("offset") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		offset, err := p.parseInstrSequence(false)
		if err != nil {
			return nil, err
		}
		d.Offset = offset
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
	} else if p.tok.Kind == LPAR {
		// Shorthand active form: (data (i32.const N) "...")
		offset, err := p.parseOneInstr()
		if err != nil {
			return nil, err
		}
		d.Offset = offset
	}

	for p.tok.Kind == STRING {
		d.Bytes = append(d.Bytes, []byte(p.tok.Text)...)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(RPAR); err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Parser) parseExport(start int) (Field, *diag.Error) {
	e := &Export{Pos: start}
	nameTok, err := p.expect(STRING)
	if err != nil {
		return nil, err
	}
	e.Name = nameTok.Text
	if _, err := p.expect(LPAR); err != nil {
		return nil, err
	}
	kindTok, err := p.expect(ATOM)
	if err != nil {
		return nil, err
	}
	e.Kind = kindTok.Text
	targetTok, err := p.expect(ATOM)
	if err != nil {
		return nil, err
	}
	e.Target = targetTok.Text
	if _, err := p.expect(RPAR); err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAR); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *Parser) parseStart(start int) (Field, *diag.Error) {
	s := &Start{Pos: start}
	tok, err := p.expect(ATOM)
	if err != nil {
		return nil, err
	}
	s.Target = tok.Text
	if _, err := p.expect(RPAR); err != nil {
		return nil, err
	}
	return s, nil
}

// --- instruction parsing -------------------------------------------------

func looksLikeIndex(s string) bool {
	if strings.HasPrefix(s, "$") {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// parseInstrSequence parses instruction forms until the enclosing ')'
// (stopAtElseEnd=false) or a bare "else"/"end" marker (stopAtElseEnd=true,
// used inside flat block/if bodies), without consuming the terminator.
func (p *Parser) parseInstrSequence(stopAtElseEnd bool) ([]Instr, *diag.Error) {
	var out []Instr
	for {
		if p.tok.Kind == RPAR || p.tok.Kind == EOF {
			return out, nil
		}
		if stopAtElseEnd && p.tok.Kind == ATOM && (p.tok.Text == "else" || p.tok.Text == "end") {
			return out, nil
		}
		instrs, err := p.parseOneInstr()
		if err != nil {
			return nil, err
		}
		out = append(out, instrs...)
	}
}

func (p *Parser) parseOneInstr() ([]Instr, *diag.Error) {
	if p.tok.Kind == LPAR {
		return p.parseFoldedInstr()
	}
	tok, err := p.expect(ATOM)
	if err != nil {
		return nil, err
	}
	switch tok.Text {
	case "block":
		return p.parseFlatBlock(tok.Pos, "block")
	case "loop":
		return p.parseFlatBlock(tok.Pos, "loop")
	case "if":
		return p.parseFlatIf(tok.Pos)
	default:
		instr, err := p.parsePlainInstr(tok.Text, tok.Pos)
		if err != nil {
			return nil, err
		}
		return []Instr{instr}, nil
	}
}

func (p *Parser) parseFlatBlock(pos int, op string) ([]Instr, *diag.Error) {
	label := p.parseOptionalID()
	sig, err := p.parseSignature()
	if err != nil {
		return nil, err
	}
	body, err := p.parseInstrSequence(true)
	if err != nil {
		return nil, err
	}
	endPos := p.tok.Pos
	if err := p.expectAtomText("end"); err != nil {
		return nil, err
	}
	p.consumeOptionalTrailingLabel()
	marker := Instr{Op: op, Label: label, Sig: sig, Pos: pos}
	end := Instr{Op: "end", Pos: endPos}
	out := append([]Instr{marker}, body...)
	return append(out, end), nil
}

func (p *Parser) parseFlatIf(pos int) ([]Instr, *diag.Error) {
	label := p.parseOptionalID()
	sig, err := p.parseSignature()
	if err != nil {
		return nil, err
	}
	thenBody, err := p.parseInstrSequence(true)
	if err != nil {
		return nil, err
	}
	ifMarker := Instr{Op: "if", Label: label, Sig: sig, Pos: pos}
	out := append([]Instr{ifMarker}, thenBody...)

	if p.atIs("else") {
		elsePos := p.tok.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		p.consumeOptionalTrailingLabel()
		elseBody, err := p.parseInstrSequence(true)
		if err != nil {
			return nil, err
		}
		out = append(out, Instr{Op: "else", Pos: elsePos})
		out = append(out, elseBody...)
	}
	endPos := p.tok.Pos
	if err := p.expectAtomText("end"); err != nil {
		return nil, err
	}
	p.consumeOptionalTrailingLabel()
	return append(out, Instr{Op: "end", Pos: endPos}), nil
}

func (p *Parser) consumeOptionalTrailingLabel() {
	if p.tok.Kind == ATOM && strings.HasPrefix(p.tok.Text, "$") {
		p.advance() //nolint:errcheck // best-effort echo-label consumption
	}
}

// parseFoldedInstr parses '(' op ... ')', unfolding nested operand
// instructions in the order they appear: folded forms are sugar over
// the flat instruction stream.
func (p *Parser) parseFoldedInstr() ([]Instr, *diag.Error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	opTok, err := p.expect(ATOM)
	if err != nil {
		return nil, err
	}
	switch opTok.Text {
	case "block":
		instrs, err := p.parseFoldedBlock(opTok.Pos, "block")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
		return instrs, nil
	case "loop":
		instrs, err := p.parseFoldedBlock(opTok.Pos, "loop")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
		return instrs, nil
	case "if":
		instrs, err := p.parseFoldedIf(opTok.Pos)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
		return instrs, nil
	case "call_indirect":
		sig, err := p.parseSignature()
		if err != nil {
			return nil, err
		}
		var pending []Instr
		for p.tok.Kind == LPAR {
			sub, err := p.parseOneInstr()
			if err != nil {
				return nil, err
			}
			pending = append(pending, sub...)
		}
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
		return append(pending, Instr{Op: "call_indirect", CallSig: sig, Pos: opTok.Pos}), nil
	default:
		var pending []Instr
		var immediates []Token
		for p.tok.Kind != RPAR {
			if p.tok.Kind == LPAR {
				sub, err := p.parseOneInstr()
				if err != nil {
					return nil, err
				}
				pending = append(pending, sub...)
				continue
			}
			tok, err := p.expect(ATOM)
			if err != nil {
				return nil, err
			}
			immediates = append(immediates, tok)
		}
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
		instr, err := buildInstrFromTokens(opTok.Text, opTok.Pos, immediates)
		if err != nil {
			return nil, err
		}
		return append(pending, instr), nil
	}
}

func (p *Parser) parseFoldedBlock(pos int, op string) ([]Instr, *diag.Error) {
	label := p.parseOptionalID()
	sig, err := p.parseSignature()
	if err != nil {
		return nil, err
	}
	body, err := p.parseInstrSequence(false)
	if err != nil {
		return nil, err
	}
	marker := Instr{Op: op, Label: label, Sig: sig, Pos: pos}
	out := append([]Instr{marker}, body...)
	return append(out, Instr{Op: "end", Pos: pos}), nil
}

func (p *Parser) parseFoldedIf(pos int) ([]Instr, *diag.Error) {
	label := p.parseOptionalID()
	sig, err := p.parseSignature()
	if err != nil {
		return nil, err
	}
	var cond []Instr
	for p.tok.Kind == LPAR && !p.peekIsKeyword("then") && !p.peekIsKeyword("else") {
		instr, err := p.parseOneInstr()
		if err != nil {
			return nil, err
		}
		cond = append(cond, instr...)
	}
	if _, err := p.expect(LPAR); err != nil {
		return nil, err
	}
	if err := p.expectAtomText("then"); err != nil {
		return nil, err
	}
	thenBody, err := p.parseInstrSequence(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAR); err != nil {
		return nil, err
	}

	out := append(cond, Instr{Op: "if", Label: label, Sig: sig, Pos: pos})
	out = append(out, thenBody...)

	if p.tok.Kind == LPAR && p.peekIsKeyword("else") {
		if _, err := p.expect(LPAR); err != nil {
			return nil, err
		}
		if err := p.expectAtomText("else"); err != nil {
			return nil, err
		}
		elseBody, err := p.parseInstrSequence(false)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAR); err != nil {
			return nil, err
		}
		out = append(out, Instr{Op: "else", Pos: pos})
		out = append(out, elseBody...)
	}
	return append(out, Instr{Op: "end", Pos: pos}), nil
}

// parsePlainInstr parses a non-block, non-folded opcode's immediates from
// the flat atom stream, consuming exactly as many following atoms as the
// opcode's grammar requires.
func (p *Parser) parsePlainInstr(op string, pos int) (Instr, *diag.Error) {
	switch {
	case op == "br" || op == "br_if":
		tok, err := p.expect(ATOM)
		if err != nil {
			return Instr{}, err
		}
		return Instr{Op: op, DefaultTarget: tok.Text, Pos: pos}, nil

	case op == "br_table":
		var targets []Token
		for p.tok.Kind == ATOM && looksLikeIndex(p.tok.Text) {
			targets = append(targets, p.tok)
			if err := p.advance(); err != nil {
				return Instr{}, err
			}
		}
		if len(targets) == 0 {
			return Instr{}, diag.NewAt(diag.Parsing, pos, "br_table requires at least one target")
		}
		others := make([]string, len(targets)-1)
		for i, t := range targets[:len(targets)-1] {
			others[i] = t.Text
		}
		return Instr{Op: op, DefaultTarget: targets[len(targets)-1].Text, OtherTargets: others, Pos: pos}, nil

	case op == "call" || op == "local.get" || op == "local.set" || op == "local.tee" ||
		op == "global.get" || op == "global.set":
		tok, err := p.expect(ATOM)
		if err != nil {
			return Instr{}, err
		}
		return Instr{Op: op, Target: tok.Text, Pos: pos}, nil

	case op == "call_indirect":
		sig, err := p.parseSignature()
		if err != nil {
			return Instr{}, err
		}
		return Instr{Op: op, CallSig: sig, Pos: pos}, nil

	case op == "memory.size" || op == "memory.grow":
		target := ""
		if p.tok.Kind == ATOM && looksLikeIndex(p.tok.Text) {
			target = p.tok.Text
			if err := p.advance(); err != nil {
				return Instr{}, err
			}
		}
		return Instr{Op: op, Target: target, Pos: pos}, nil

	case strings.Contains(op, "load") || strings.Contains(op, "store"):
		mem, err := p.parseMemArg()
		if err != nil {
			return Instr{}, err
		}
		return Instr{Op: op, Mem: mem, Pos: pos}, nil

	case op == "i32.const":
		tok, err := p.expect(ATOM)
		if err != nil {
			return Instr{}, err
		}
		v, perr := strconv.ParseInt(tok.Text, 0, 64)
		if perr != nil {
			return Instr{}, diag.NewAt(diag.Parsing, tok.Pos, "invalid i32 literal %q", tok.Text)
		}
		return Instr{Op: op, I32Value: int32(v), Pos: pos}, nil

	case op == "i64.const":
		tok, err := p.expect(ATOM)
		if err != nil {
			return Instr{}, err
		}
		v, perr := strconv.ParseInt(tok.Text, 0, 64)
		if perr != nil {
			return Instr{}, diag.NewAt(diag.Parsing, tok.Pos, "invalid i64 literal %q", tok.Text)
		}
		return Instr{Op: op, I64Value: v, Pos: pos}, nil

	case op == "f32.const":
		tok, err := p.expect(ATOM)
		if err != nil {
			return Instr{}, err
		}
		bits, perr := parseF32(tok.Text)
		if perr != nil {
			return Instr{}, diag.NewAt(diag.Parsing, tok.Pos, "invalid f32 literal %q", tok.Text)
		}
		return Instr{Op: op, F32Bits: bits, Pos: pos}, nil

	case op == "f64.const":
		tok, err := p.expect(ATOM)
		if err != nil {
			return Instr{}, err
		}
		bits, perr := parseF64(tok.Text)
		if perr != nil {
			return Instr{}, diag.NewAt(diag.Parsing, tok.Pos, "invalid f64 literal %q", tok.Text)
		}
		return Instr{Op: op, F64Bits: bits, Pos: pos}, nil

	default:
		return Instr{Op: op, Pos: pos}, nil
	}
}

func (p *Parser) parseMemArg() (MemArg, *diag.Error) {
	var m MemArg
	for p.tok.Kind == ATOM && (strings.HasPrefix(p.tok.Text, "offset=") || strings.HasPrefix(p.tok.Text, "align=")) {
		text := p.tok.Text
		if strings.HasPrefix(text, "offset=") {
			v, err := parseUintAtom(strings.TrimPrefix(text, "offset="), p.tok.Pos)
			if err != nil {
				return m, err
			}
			m.Offset = v
		} else {
			v, err := parseUintAtom(strings.TrimPrefix(text, "align="), p.tok.Pos)
			if err != nil {
				return m, err
			}
			m.Align = v
		}
		if err := p.advance(); err != nil {
			return m, err
		}
	}
	return m, nil
}

// buildInstrFromTokens builds the Instr for a folded (parenthesized)
// instruction from its opcode and the flat immediate-atom tokens
// collected between operand sub-expressions.
func buildInstrFromTokens(op string, pos int, immediates []Token) (Instr, *diag.Error) {
	text := func(i int) string {
		if i < len(immediates) {
			return immediates[i].Text
		}
		return ""
	}
	switch {
	case op == "br" || op == "br_if":
		return Instr{Op: op, DefaultTarget: text(0), Pos: pos}, nil
	case op == "br_table":
		if len(immediates) == 0 {
			return Instr{}, diag.NewAt(diag.Parsing, pos, "br_table requires at least one target")
		}
		others := make([]string, len(immediates)-1)
		for i := 0; i < len(immediates)-1; i++ {
			others[i] = immediates[i].Text
		}
		return Instr{Op: op, DefaultTarget: immediates[len(immediates)-1].Text, OtherTargets: others, Pos: pos}, nil
	case op == "call" || op == "local.get" || op == "local.set" || op == "local.tee" ||
		op == "global.get" || op == "global.set":
		return Instr{Op: op, Target: text(0), Pos: pos}, nil
	case op == "memory.size" || op == "memory.grow":
		return Instr{Op: op, Target: text(0), Pos: pos}, nil
	case strings.Contains(op, "load") || strings.Contains(op, "store"):
		var m MemArg
		for _, tok := range immediates {
			if strings.HasPrefix(tok.Text, "offset=") {
				v, err := parseUintAtom(strings.TrimPrefix(tok.Text, "offset="), tok.Pos)
				if err != nil {
					return Instr{}, err
				}
				m.Offset = v
			} else if strings.HasPrefix(tok.Text, "align=") {
				v, err := parseUintAtom(strings.TrimPrefix(tok.Text, "align="), tok.Pos)
				if err != nil {
					return Instr{}, err
				}
				m.Align = v
			}
		}
		return Instr{Op: op, Mem: m, Pos: pos}, nil
	case op == "i32.const":
		v, err := strconv.ParseInt(text(0), 0, 64)
		if err != nil {
			return Instr{}, diag.NewAt(diag.Parsing, pos, "invalid i32 literal %q", text(0))
		}
		return Instr{Op: op, I32Value: int32(v), Pos: pos}, nil
	case op == "i64.const":
		v, err := strconv.ParseInt(text(0), 0, 64)
		if err != nil {
			return Instr{}, diag.NewAt(diag.Parsing, pos, "invalid i64 literal %q", text(0))
		}
		return Instr{Op: op, I64Value: v, Pos: pos}, nil
	case op == "f32.const":
		bits, err := parseF32(text(0))
		if err != nil {
			return Instr{}, diag.NewAt(diag.Parsing, pos, "invalid f32 literal %q", text(0))
		}
		return Instr{Op: op, F32Bits: bits, Pos: pos}, nil
	case op == "f64.const":
		bits, err := parseF64(text(0))
		if err != nil {
			return Instr{}, diag.NewAt(diag.Parsing, pos, "invalid f64 literal %q", text(0))
		}
		return Instr{Op: op, F64Bits: bits, Pos: pos}, nil
	default:
		return Instr{Op: op, Pos: pos}, nil
	}
}
