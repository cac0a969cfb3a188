package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAll(t *testing.T, src string) []Expr {
	t.Helper()
	p := NewParser(strings.NewReader(src))
	program, err := p.ParseProgram()
	require.NoError(t, err)
	return program
}

func Test_MacroProcessor(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		want []Expr
	}{
		{
			name: "simple substitution",
			src:  `(defmacro twice (x) (list 'seq x x)) (twice (foo))`,
			want: []Expr{ListExpr(AtomExpr("seq"), ListExpr(AtomExpr("foo")), ListExpr(AtomExpr("foo")))},
		},
		{
			name: "arithmetic in macro body folds to a literal",
			src:  `(defmacro sum3 () (+ 1 (+ 2 3))) (sum3)`,
			want: []Expr{IntExpr(6)},
		},
		{
			name: "if with true condition takes the then branch",
			src:  `(defmacro pick (c a b) (if c a b)) (pick 1 'yes 'no)`,
			want: []Expr{ListExpr(AtomExpr("quote"), AtomExpr("yes"))},
		},
		{
			name: "if with false condition takes the else branch",
			src:  `(defmacro pick (c a b) (if c a b)) (pick 0 'yes 'no)`,
			want: []Expr{ListExpr(AtomExpr("quote"), AtomExpr("no"))},
		},
		{
			name: "first and rest",
			src:  `(defmacro fr (x) (list (first x) (rest x))) (fr (a b c))`,
			want: []Expr{ListExpr(AtomExpr("a"), ListExpr(AtomExpr("b"), AtomExpr("c")))},
		},
		{
			name: "cons builds a two element list",
			src:  `(defmacro pair (a b) (cons a b)) (pair 1 2)`,
			want: []Expr{ListExpr(IntExpr(1), IntExpr(2))},
		},
		{
			name: "backquote splices in the bound argument expression unevaluated",
			src:  `(defmacro wrap (x) (backquote (val (unquote x)))) (wrap (+ 1 2))`,
			want: []Expr{ListExpr(AtomExpr("val"), ListExpr(AtomExpr("+"), IntExpr(1), IntExpr(2)))},
		},
		{
			name: "non-macro forms are recursively expanded",
			src:  `(defmacro one () 1) (+ (one) (one))`,
			want: []Expr{ListExpr(AtomExpr("+"), IntExpr(1), IntExpr(1))},
		},
		{
			name: "macro invoking another macro",
			src:  `(defmacro inner (x) (+ x 1)) (defmacro outer () (inner 4)) (outer)`,
			want: []Expr{IntExpr(5)},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			program := parseAll(t, tc.src)
			mp := NewMacroProcessor()
			got, err := mp.ProcessProgram(program)
			require.NoError(t, err)
			require.Len(t, got, len(tc.want))
			for i := range tc.want {
				assert.Truef(t, tc.want[i].Equal(got[i]), "form %d: want %v got %v", i, tc.want[i], got[i])
			}
		})
	}
}

func Test_MacroProcessor_undefinedParamWarns(t *testing.T) {
	program := parseAll(t, `(defmacro identity (x) x) (identity)`)
	mp := NewMacroProcessor()
	var warnings []string
	mp.Warnf = func(mess string, args ...interface{}) { warnings = append(warnings, mess) }
	got, err := mp.ProcessProgram(program)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, IntExpr(0).Equal(got[0]))
	assert.NotEmpty(t, warnings)
}

func Test_MacroProcessor_unsupportedFunctionCallErrors(t *testing.T) {
	program := parseAll(t, `(defmacro bad () (something-undefined 1 2)) (bad)`)
	mp := NewMacroProcessor()
	_, err := mp.ProcessProgram(program)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "something-undefined")
}
