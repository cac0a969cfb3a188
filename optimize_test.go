package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Optimizer(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   Expr
		want Expr
	}{
		{
			name: "folds nested arithmetic",
			in:   ListExpr(AtomExpr("+"), IntExpr(1), ListExpr(AtomExpr("*"), IntExpr(2), IntExpr(3))),
			want: IntExpr(7),
		},
		{
			name: "folds comparisons to 0 or 1",
			in:   ListExpr(AtomExpr("<"), IntExpr(1), IntExpr(2)),
			want: IntExpr(1),
		},
		{
			name: "folds unary not",
			in:   ListExpr(AtomExpr("not"), IntExpr(0)),
			want: IntExpr(1),
		},
		{
			name: "strength reduces multiply by a power of two",
			in:   ListExpr(AtomExpr("*"), AtomExpr("x"), IntExpr(8)),
			want: ListExpr(AtomExpr("lshift"), AtomExpr("x"), IntExpr(3)),
		},
		{
			name: "strength reduces divide by a power of two",
			in:   ListExpr(AtomExpr("/"), AtomExpr("x"), IntExpr(4)),
			want: ListExpr(AtomExpr("rshift"), AtomExpr("x"), IntExpr(2)),
		},
		{
			name: "leaves non power of two multiply alone",
			in:   ListExpr(AtomExpr("*"), AtomExpr("x"), IntExpr(3)),
			want: ListExpr(AtomExpr("*"), AtomExpr("x"), IntExpr(3)),
		},
		{
			name: "does not descend into quote",
			in:   ListExpr(AtomExpr("quote"), ListExpr(AtomExpr("+"), IntExpr(1), IntExpr(2))),
			want: ListExpr(AtomExpr("quote"), ListExpr(AtomExpr("+"), IntExpr(1), IntExpr(2))),
		},
		{
			name: "truncates to 16 bit two's complement",
			in:   ListExpr(AtomExpr("+"), IntExpr(32760), IntExpr(100)),
			want: IntExpr(truncate16(32860)),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := NewOptimizer()
			got := o.OptimizeProgram([]Expr{tc.in})
			assert.Truef(t, tc.want.Equal(got[0]), "want %v got %v", tc.want, got[0])
		})
	}
}

func Test_Optimizer_isIdempotent(t *testing.T) {
	exprs := []Expr{
		ListExpr(AtomExpr("+"), IntExpr(1), ListExpr(AtomExpr("*"), AtomExpr("y"), IntExpr(16))),
		ListExpr(AtomExpr("if"), ListExpr(AtomExpr("<"), AtomExpr("x"), IntExpr(5)), IntExpr(1), IntExpr(2)),
		ListExpr(AtomExpr("quote"), ListExpr(AtomExpr("a"), IntExpr(1))),
	}
	o := NewOptimizer()
	once := o.OptimizeProgram(exprs)
	twice := o.OptimizeProgram(once)
	for i := range once {
		assert.Truef(t, once[i].Equal(twice[i]), "not idempotent at %d: %v vs %v", i, once[i], twice[i])
	}
}
