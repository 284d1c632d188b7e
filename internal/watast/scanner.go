// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package watast

import (
	"strings"

	"github.com/go-interpreter/wat2ir/diag"
)

// Scanner turns raw .wat source bytes into a flat token stream.
// It tracks byte offsets (not line/column, since diag.Span is byte-based)
// and never panics: every malformed construct surfaces as a *diag.Error
// at Parsing stage, matching wast/scanner.go's "errors are values" style.
type Scanner struct {
	src []byte
	pos int
}

// NewScanner constructs a Scanner over the given source bytes.
func NewScanner(src []byte) *Scanner {
	return &Scanner{src: src}
}

func (s *Scanner) peekByte() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isAtomByte(b byte) bool {
	return !isWhitespace(b) && b != '(' && b != ')' && b != ';' && b != '"'
}

func (s *Scanner) skipSpaceAndComments() *diag.Error {
	for s.pos < len(s.src) {
		b := s.src[s.pos]
		switch {
		case isWhitespace(b):
			s.pos++
		case b == ';' && s.pos+1 < len(s.src) && s.src[s.pos+1] == ';':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
		case b == '(' && s.pos+1 < len(s.src) && s.src[s.pos+1] == ';':
			start := s.pos
			depth := 1
			s.pos += 2
			for depth > 0 {
				if s.pos+1 >= len(s.src) {
					return diag.NewAt(diag.Parsing, start, "unterminated block comment")
				}
				switch {
				case s.src[s.pos] == '(' && s.src[s.pos+1] == ';':
					depth++
					s.pos += 2
				case s.src[s.pos] == ';' && s.src[s.pos+1] == ')':
					depth--
					s.pos += 2
				default:
					s.pos++
				}
			}
		default:
			return nil
		}
	}
	return nil
}

// Next returns the next token, or an EOF token once the source is
// exhausted.
func (s *Scanner) Next() (Token, *diag.Error) {
	if err := s.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}
	if s.pos >= len(s.src) {
		return Token{Kind: EOF, Pos: s.pos}, nil
	}

	start := s.pos
	switch s.src[s.pos] {
	case '(':
		s.pos++
		return Token{Kind: LPAR, Text: "(", Pos: start}, nil
	case ')':
		s.pos++
		return Token{Kind: RPAR, Text: ")", Pos: start}, nil
	case '"':
		return s.scanString(start)
	default:
		return s.scanAtom(start)
	}
}

func (s *Scanner) scanAtom(start int) (Token, *diag.Error) {
	for s.pos < len(s.src) && isAtomByte(s.src[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return Token{}, diag.NewAt(diag.Parsing, start, "unexpected character %q", string(s.src[start]))
	}
	return Token{Kind: ATOM, Text: string(s.src[start:s.pos]), Pos: start}, nil
}

func (s *Scanner) scanString(start int) (Token, *diag.Error) {
	s.pos++ // opening quote
	var sb strings.Builder
	for {
		if s.pos >= len(s.src) {
			return Token{}, diag.NewAt(diag.Parsing, start, "unterminated string literal")
		}
		b := s.src[s.pos]
		if b == '"' {
			s.pos++
			return Token{Kind: STRING, Text: sb.String(), Pos: start}, nil
		}
		if b == '\\' && s.pos+1 < len(s.src) {
			esc := s.src[s.pos+1]
			switch esc {
			case 'n':
				sb.WriteByte('\n')
				s.pos += 2
				continue
			case 't':
				sb.WriteByte('\t')
				s.pos += 2
				continue
			case '\\', '"', '\'':
				sb.WriteByte(esc)
				s.pos += 2
				continue
			default:
				if isHexDigit(esc) && s.pos+2 < len(s.src) && isHexDigit(s.src[s.pos+2]) {
					sb.WriteByte(hexByte(esc, s.src[s.pos+2]))
					s.pos += 3
					continue
				}
			}
		}
		sb.WriteByte(b)
		s.pos++
	}
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}

func hexByte(hi, lo byte) byte {
	return hexVal(hi)<<4 | hexVal(lo)
}
