package main

import (
	"io"

	"github.com/gokku/lispvm/internal/panicerr"
)

// New builds a Pipeline, applying the given options over a silent/discard
// default.
func New(opts ...Option) *Pipeline {
	var p Pipeline
	defaultOptions.apply(&p)
	Options(opts...).apply(&p)
	return &p
}

// Run drives the whole pipeline described in §4: parse, macro-expand,
// optimize, generate code, and write program.hex and (if configured)
// program.lst. It is wrapped in panicerr.Recover so an unexpected panic
// anywhere in the stages surfaces as a plain error rather than crashing the
// process.
func (p *Pipeline) Run() error {
	return panicerr.Recover("compile", func() error {
		return p.compile()
	})
}

func (p *Pipeline) compile() error {
	defer p.Close()

	sources := append([]io.Reader{newRuntimeReader()}, p.sources...)
	parser := NewParser(sources...)
	parser.Warnf = p.stageLogf("parse")

	program, err := parser.ParseProgram()
	if err != nil {
		return err
	}

	mp := NewMacroProcessor()
	mp.Warnf = p.stageLogf("macro")
	expanded, err := mp.ProcessProgram(program)
	if err != nil {
		return err
	}

	opt := NewOptimizer()
	optimized := opt.OptimizeProgram(expanded)

	comp := NewCompiler()
	comp.Warnf = p.stageLogf("compile")
	words, err := comp.CompileProgram(optimized)
	if err != nil {
		return err
	}

	if err := writeHex(p.out, words); err != nil {
		return err
	}
	if p.out != nil {
		if err := p.out.Flush(); err != nil {
			return err
		}
	}

	if p.listOut != nil {
		if err := writeListing(p.listOut, comp, optimized); err != nil {
			return err
		}
		if err := p.listOut.Flush(); err != nil {
			return err
		}
	}

	return nil
}

// stageLogf tags every warning logged during a stage with that stage's name.
func (p *Pipeline) stageLogf(stage string) func(mess string, args ...interface{}) {
	return func(mess string, args ...interface{}) { p.logf(stage, mess, args...) }
}
