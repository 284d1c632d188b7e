// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/go-interpreter/wat2ir"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: wat2ir-dump [options] file1.wat [file2.wat [...]]

ex:
 $> wat2ir-dump ./file1.wat

options:
`,
		)
		flag.PrintDefaults()
		os.Exit(1)
	}
}

var flagVerbose = flag.Bool("v", false, "enable/disable verbose stage tracing")

func main() {
	log.SetPrefix("wat2ir-dump: ")
	log.SetFlags(0)

	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
	}

	wat2ir.PrintDebugInfo = *flagVerbose

	status := 0
	for i, fname := range flag.Args() {
		if i > 0 {
			fmt.Println()
		}
		if !process(os.Stdout, fname) {
			status = 1
		}
	}
	os.Exit(status)
}

func process(out io.Writer, fname string) bool {
	src, err := os.ReadFile(fname)
	if err != nil {
		log.Printf("could not read %q: %v", fname, err)
		return false
	}

	mod, diagErr := wat2ir.Transform(src)
	if diagErr != nil {
		fmt.Fprintf(out, "%s: %s\n", fname, diagErr.Error())
		return false
	}

	fmt.Fprintf(out, "%s:\n", fname)
	spew.Fdump(out, mod)
	return true
}
