package main

import "fmt"

// Category distinguishes the error classes of §7. Codegen tags the errors it
// raises about the program's meaning through semanticErrorf, and its handful
// of "this should never happen" checks through internalErrorf. No stage
// attaches CategoryLexical: the parser returns ParseError, and macro
// expansion and codegen's arity and form-shape checks return plain errors
// with no Category.
type Category int

const (
	CategoryLexical Category = iota
	CategorySemantic
	CategoryInternal
)

func (c Category) String() string {
	switch c {
	case CategoryLexical:
		return "lexical"
	case CategorySemantic:
		return "semantic"
	case CategoryInternal:
		return "internal"
	}
	return "unknown"
}

// CompileError tags a fatal error with the category that produced it, so the
// driver can report it consistently regardless of which pipeline stage
// raised it. ParseError is returned as is, unwrapped and without a Category.
type CompileError struct {
	Category Category
	Err      error
}

func (e *CompileError) Error() string { return e.Err.Error() }
func (e *CompileError) Unwrap() error { return e.Err }

func semanticErrorf(format string, args ...interface{}) error {
	return &CompileError{Category: CategorySemantic, Err: fmt.Errorf(format, args...)}
}

func internalErrorf(format string, args ...interface{}) error {
	return &CompileError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
