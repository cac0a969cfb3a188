package main

import "strings"

// runtimeSource is the fixed runtime library that is always parsed and
// prepended before any user source file (§6). It supplies the handful of
// functions the compiler's own lowering rules call directly (quoted lists
// and strings both lower to chains of calls to cons), plus general integer
// multiply/divide for operands the optimizer's power-of-two strength
// reduction can't turn into a shift.
const runtimeSource = `
; cons allocates a two-word cell by bumping $heapstart, the built-in
; heap-base global every program starts with.
(function cons (a b)
  (let ((addr $heapstart))
    (assign $heapstart (+ $heapstart 2))
    (store addr a)
    (store (+ addr 1) b)
    addr))

(function car (pair) (first pair))
(function cdr (pair) (rest pair))

; The compiler only strength-reduces multiply/divide by a constant power of
; two; anything else falls through to a function call against these.
(function * (a b)
  (let ((result 0) (count b))
    (while (<> count 0)
      (assign result (+ result a))
      (assign count (- count 1)))
    result))

(function / (a b)
  (let ((result 0) (rem a))
    (while (>= rem b)
      (assign rem (- rem b))
      (assign result (+ result 1)))
    result))

(function mod (a b)
  (let ((rem a))
    (while (>= rem b)
      (assign rem (- rem b)))
    rem))

(function length (lst)
  (if (= lst 0)
      0
      (+ 1 (length (cdr lst)))))
`

// namedStringReader names a fixed in-memory text for the file-location
// diagnostics that fileinput.Input attaches to every rune it reads.
type namedStringReader struct {
	*strings.Reader
	name string
}

func (r namedStringReader) Name() string { return r.name }

func newRuntimeReader() namedStringReader {
	return namedStringReader{strings.NewReader(runtimeSource), "runtime.lisp"}
}
