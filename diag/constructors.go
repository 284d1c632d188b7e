// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diag

import (
	"fmt"
	"strings"
)

// TypeError reports a structural type mismatch: wanted vs. got.
func TypeError(wanted, got fmt.Stringer) *Error {
	return New(TypeChecking, "invalid type, got: %v, wanted: %v", got, wanted)
}

// EmptyStack reports that the operand stack had nothing to pop when at
// least expected values were required.
func EmptyStack(expected int) *Error {
	return NotEnoughOnStack(expected, 0)
}

// NotEnoughOnStack reports that fewer than expected operands were present.
func NotEnoughOnStack(expected, actual int) *Error {
	switch {
	case expected == 1 && actual == 0:
		return New(TypeChecking, "expected at least a value on the stack, but nothing is on the stack")
	case actual == 0:
		return New(TypeChecking, "expected at least %d values on the stack, but nothing is on the stack", expected)
	default:
		return New(TypeChecking, "expected at least %d values on the stack, but stack only has %d", expected, actual)
	}
}

// MismatchedInOut reports a parameter/return arity or type mismatch.
func MismatchedInOut(expected, actual []fmt.Stringer, isReturn bool) *Error {
	kind := "Parameter"
	if isReturn {
		kind = "Return"
	}
	return New(TypeChecking, "expected %s types to be [%s] on the stack, but stack has [%s]",
		kind, joinStringers(expected), joinStringers(actual))
}

// SettingImmutableGlobal reports a write to a global declared immutable.
func SettingImmutableGlobal(name string) *Error {
	return New(TypeChecking, "cannot set immutable global %s", name)
}

// NonInitializerExpression reports a global initializer that is not a
// single Const instruction.
func NonInitializerExpression() *Error {
	return New(TypeChecking, "expected a single const expression for initializing")
}

// ElseWithoutIf reports a stray else marker.
func ElseWithoutIf() *Error {
	return New(TypeChecking, "an else block should only follow after an if block")
}

// ExtraItemsOnStack reports a non-empty residual operand stack at function end.
func ExtraItemsOnStack(values []fmt.Stringer) *Error {
	return New(TypeChecking, "expected stack to be empty, but found: %s", joinStringers(values))
}

// NameResolution reports an identifier that could not be found in its
// category (function, global, memory, label).
func NameResolution(kind, name string) *Error {
	return New(NameResolving, "%s %s not found", kind, name)
}

// LocalResolution reports a local variable that could not be found.
func LocalResolution(name string) *Error {
	return New(NameResolving, "local %s not found", name)
}

// LabelResolution reports a branch label that could not be found.
func LabelResolution(name string) *Error {
	return New(NameResolving, "label %s not found in flow of block", name)
}

// DuplicateName reports an identifier declared more than once in a scope.
func DuplicateName(name string) *Error {
	return New(NameResolving, "name %s is defined multiple times", name)
}

// IndexOutOfRange reports a numeric index beyond its category's bound.
func IndexOutOfRange(expected, actual int) *Error {
	return New(TypeChecking, "index %d out of range: max %d", actual, expected)
}

func joinStringers(xs []fmt.Stringer) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = x.String()
	}
	return strings.Join(parts, ",")
}
