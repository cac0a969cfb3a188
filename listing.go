package main

import (
	"fmt"
	"io"
)

// writeListing renders the program.lst file described in §6: a Globals:
// section enumerating non-function globals with their slot indices, then
// each retained function's name, disassembly, and the pretty-printed
// expanded source form it came from.
func writeListing(w io.Writer, c *Compiler, optimized []Expr) error {
	if err := writeGlobalsSection(w, c); err != nil {
		return err
	}
	sources := make(map[string]Expr)
	for _, form := range optimized {
		if form.HeadAtom() == "function" && len(form.List) > 1 && form.List[1].IsAtom() {
			sources[form.List[1].Atom] = form
		}
	}
	for _, fn := range c.Retained {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := writeFunctionListing(w, fn); err != nil {
			return err
		}
		if src, ok := sources[fn.Name]; ok {
			if _, err := fmt.Fprintf(w, "%s\n", src.String()); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeGlobalsSection(w io.Writer, c *Compiler) error {
	if _, err := fmt.Fprintln(w, "Globals:"); err != nil {
		return err
	}
	for _, name := range c.GlobalNames {
		sym := c.Globals[name]
		if sym.Kind == SymFunction {
			continue
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\n", sym.Index, name); err != nil {
			return err
		}
	}
	return nil
}

func writeFunctionListing(w io.Writer, fn *Function) error {
	if _, err := fmt.Fprintf(w, "%s:\n", fn.Name); err != nil {
		return err
	}
	for offset, in := range fn.Code {
		if in.operand == 0 && !takesOperand(in.op) {
			if _, err := fmt.Fprintf(w, "%d\t%s\n", fn.Base+offset, in.op.String()); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%d\n", fn.Base+offset, in.op.String(), in.operand); err != nil {
			return err
		}
	}
	return nil
}

// takesOperand reports whether op's operand is meaningful and should always
// be printed, even when it happens to be zero.
func takesOperand(op Opcode) bool {
	switch op {
	case OpNop, OpCall, OpReturn, OpPop, OpLoad, OpStore, OpAdd, OpSub, OpRest,
		OpGtr, OpGte, OpEq, OpNeq, OpDup, OpGettag, OpSettag, OpAnd, OpOr, OpXor,
		OpLshift, OpRshift, OpGetbp:
		return false
	default:
		return true
	}
}
