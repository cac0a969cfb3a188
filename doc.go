/*
Package main implements a single-pass compiler for a small Lisp-like source
language, targeting a stack-based virtual machine.

A program is one or more files of S-expressions. The runtime library is
always parsed first and prepended, ahead of every user source file, so that
primitives it defines (cons and the rest) are in scope everywhere.

Compilation runs in four stages:

  - Parsing turns the token stream into expression trees, expanding the
    reader macros ', `, and , into quote, backquote, and unquote forms.

  - Macro expansion removes every defmacro declaration and substitutes each
    remaining macro invocation with its expanded body, evaluated against a
    small fixed set of primitive forms.

  - Optimization constant-folds arithmetic and comparisons and rewrites
    multiply/divide by a power of two into a shift, since the target
    machine has no multiply or divide instruction.

  - Code generation walks the optimized tree once per function, assigning
    stack slots to locals and parameters, resolving forward references to
    functions and global variables through a shared global table, and
    emitting one encoded 32-bit instruction word per operation.

The result is written as program.hex, one line per word in six lowercase
hex digits, and optionally program.lst, a disassembly paired with the
optimized source each function came from.
*/
package main
