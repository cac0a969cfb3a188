package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/gokku/lispvm/internal/fileinput"
)

// identPunct lists the punctuation characters that are legal inside an
// identifier, beyond letters and digits.
const identPunct = `?+<>!@#$%^&*;:.=-_`

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(identPunct, r)
}

// ParseError reports a fatal lexical/syntactic failure: an unmatched closing
// parenthesis, or a string literal whose closing quote never arrives. Other
// read errors while scanning are returned as they are.
type ParseError struct {
	Loc fileinput.Location
	Msg string
}

func (err ParseError) Error() string { return fmt.Sprintf("%v: %v", err.Loc, err.Msg) }

type token struct {
	text string
	loc  fileinput.Location
}

// lexer turns a rune stream into the five token shapes the grammar in §4.1
// needs: parens, the three reader-macro prefixes, and bare words (numbers and
// atoms, including a quoted-string run kept verbatim with its quotes).
type lexer struct {
	in        *fileinput.Input
	pendingR  rune
	havePendR bool
}

func newLexer(in *fileinput.Input) *lexer { return &lexer{in: in} }

func (lx *lexer) readRune() (rune, error) {
	if lx.havePendR {
		lx.havePendR = false
		return lx.pendingR, nil
	}
	r, _, err := lx.in.ReadRune()
	return r, err
}

func (lx *lexer) unreadRune(r rune) {
	lx.pendingR = r
	lx.havePendR = true
}

func (lx *lexer) loc() fileinput.Location { return lx.in.Scan.Location }

func (lx *lexer) skipSpaceAndComments() error {
	for {
		r, err := lx.readRune()
		if err != nil {
			return err
		}
		if r == ';' {
			for {
				r2, err := lx.readRune()
				if err != nil {
					return err
				}
				if r2 == '\n' {
					break
				}
			}
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}
		lx.unreadRune(r)
		return nil
	}
}

// next scans one token, or returns io.EOF once input is exhausted.
func (lx *lexer) next() (token, error) {
	if err := lx.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	loc := lx.loc()

	r, err := lx.readRune()
	if err != nil {
		return token{}, err
	}

	switch r {
	case '(', ')', '\'', '`', ',':
		return token{string(r), loc}, nil
	case '"':
		var sb strings.Builder
		sb.WriteRune('"')
		for {
			r2, err := lx.readRune()
			if err != nil {
				return token{}, ParseError{loc, "unterminated string literal"}
			}
			sb.WriteRune(r2)
			if r2 == '"' {
				break
			}
		}
		return token{sb.String(), loc}, nil
	default:
		var sb strings.Builder
		sb.WriteRune(r)
		for {
			r2, err := lx.readRune()
			if err == io.EOF {
				break
			} else if err != nil {
				return token{}, err
			}
			if !isIdentRune(r2) {
				lx.unreadRune(r2)
				break
			}
			sb.WriteRune(r2)
		}
		return token{sb.String(), loc}, nil
	}
}

// Parser implements the grammar of §4.1:
//   expr := '(' expr* ')' | "'" expr | '`' expr | ',' expr | integer | atom
type Parser struct {
	lx     *lexer
	peeked *token
	Warnf  func(mess string, args ...interface{})
}

// NewParser builds a parser reading, in order, from each of the given
// sources. Callers queue the runtime library first, then user source files,
// matching the "runtime is always parsed and prepended" contract.
func NewParser(sources ...io.Reader) *Parser {
	in := &fileinput.Input{Queue: append([]io.Reader(nil), sources...)}
	return &Parser{lx: newLexer(in)}
}

func (p *Parser) warnf(mess string, args ...interface{}) {
	if p.Warnf != nil {
		p.Warnf(mess, args...)
	}
}

func (p *Parser) nextToken() (token, error) {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t, nil
	}
	return p.lx.next()
}

func (p *Parser) pushToken(t token) { p.peeked = &t }

// ParseProgram consumes the entire input, returning the top-level sequence of
// expressions. An unmatched ')' is a fatal ParseError; a missing ')' at EOF
// is reported as a warning and yields the partial list read so far, per the
// tolerant-recovery behavior carried over from the source language.
func (p *Parser) ParseProgram() ([]Expr, error) {
	var program []Expr
	for {
		e, err := p.parseExpr()
		if err == io.EOF {
			return program, nil
		}
		if err != nil {
			return program, err
		}
		program = append(program, e)
	}
}

func (p *Parser) parseExpr() (Expr, error) {
	t, err := p.nextToken()
	if err != nil {
		return Expr{}, err
	}

	switch t.text {
	case "'":
		sub, err := p.parseExpr()
		if err != nil {
			return Expr{}, err
		}
		return ListExpr(AtomExpr("quote"), sub), nil
	case "`":
		sub, err := p.parseExpr()
		if err != nil {
			return Expr{}, err
		}
		return ListExpr(AtomExpr("backquote"), sub), nil
	case ",":
		sub, err := p.parseExpr()
		if err != nil {
			return Expr{}, err
		}
		return ListExpr(AtomExpr("unquote"), sub), nil
	case "(":
		return p.parseParenList(t.loc)
	case ")":
		return Expr{}, ParseError{t.loc, "unmatched )"}
	default:
		if n, ok := parseIntToken(t.text); ok {
			return IntExpr(n), nil
		}
		return AtomExpr(t.text), nil
	}
}

func (p *Parser) parseParenList(open fileinput.Location) (Expr, error) {
	var list []Expr
	for {
		t, err := p.nextToken()
		if err == io.EOF {
			p.warnf("%v: missing ) (opened at %v)", p.lx.loc(), open)
			return ListExpr(list...), nil
		}
		if err != nil {
			return Expr{}, err
		}
		if t.text == ")" {
			return ListExpr(list...), nil
		}
		p.pushToken(t)
		sub, err := p.parseExpr()
		if err != nil {
			return Expr{}, err
		}
		list = append(list, sub)
	}
}

// parseIntToken recognizes a (possibly negative) decimal integer literal.
// A bare "-" is an atom (a valid identifier character), not a number.
func parseIntToken(tok string) (int, bool) {
	if tok == "" {
		return 0, false
	}
	neg := false
	digits := tok
	if tok[0] == '-' {
		if len(tok) < 2 {
			return 0, false
		}
		neg = true
		digits = tok[1:]
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
