// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package watast

import "testing"

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	s := NewScanner([]byte(src))
	var toks []Token
	for {
		tok, err := s.Next()
		if err != nil {
			t.Fatalf("unexpected scan error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func TestScannerBasicTokens(t *testing.T) {
	toks := scanAll(t, `(module (func $f (result i32) i32.const 42))`)
	if toks[0].Kind != LPAR || toks[1].Text != "module" {
		t.Fatalf("unexpected prefix: %v %v", toks[0], toks[1])
	}
	last := toks[len(toks)-1]
	if last.Kind != EOF {
		t.Fatalf("expected trailing EOF, got %v", last)
	}
}

func TestScannerLineComment(t *testing.T) {
	toks := scanAll(t, "(module ;; a comment\n (func))")
	var texts []string
	for _, tok := range toks {
		if tok.Kind == ATOM {
			texts = append(texts, tok.Text)
		}
	}
	if len(texts) != 2 || texts[0] != "module" || texts[1] != "func" {
		t.Fatalf("comment not skipped: %v", texts)
	}
}

func TestScannerBlockComment(t *testing.T) {
	toks := scanAll(t, "(module (; nested (; comment ;) here ;) (func))")
	var texts []string
	for _, tok := range toks {
		if tok.Kind == ATOM {
			texts = append(texts, tok.Text)
		}
	}
	if len(texts) != 2 || texts[0] != "module" || texts[1] != "func" {
		t.Fatalf("nested block comment not skipped: %v", texts)
	}
}

func TestScannerUnterminatedBlockComment(t *testing.T) {
	s := NewScanner([]byte("(module (; oops"))
	for {
		tok, err := s.Next()
		if err != nil {
			return
		}
		if tok.Kind == EOF {
			t.Fatal("expected an unterminated-comment error")
		}
	}
}

func TestScannerStringEscapes(t *testing.T) {
	s := NewScanner([]byte(`"a\tb\n\"\5a"`))
	tok, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Kind != STRING {
		t.Fatalf("expected STRING, got %v", tok)
	}
	want := "a\tb\n\"" + string(rune(0x5a))
	if tok.Text != want {
		t.Fatalf("got %q want %q", tok.Text, want)
	}
}

func TestScannerUnterminatedString(t *testing.T) {
	s := NewScanner([]byte(`"unterminated`))
	if _, err := s.Next(); err == nil {
		t.Fatal("expected an unterminated-string error")
	}
}
