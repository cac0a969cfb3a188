package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/gokku/lispvm/internal/flushio"
)

// Pipeline holds everything the four compile stages share: the queued input
// sources (the runtime library always goes first), the destinations for the
// two output files, and the logger every stage's Warnf hook reports through.
type Pipeline struct {
	logging
	sources []io.Reader
	out     flushio.WriteFlusher
	listOut flushio.WriteFlusher
	closers []io.Closer
}

func (p *Pipeline) Close() (err error) {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if cerr := p.closers[i].Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// logging is a small leveled-logging helper: every warning or diagnostic
// line is passed through logfn with a left-padded mark column, so messages
// from different stages line up in the terminal.
type logging struct {
	logfn func(mess string, args ...interface{})

	markWidth int
}

func (log *logging) withLogPrefix(prefix string) func() {
	logfn := log.logfn
	log.logfn = func(mess string, args ...interface{}) {
		logfn(prefix+mess, args...)
	}
	return func() {
		log.logfn = logfn
	}
}

func (log *logging) logf(mark, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	if n := log.markWidth - len(mark); n > 0 {
		for _, r := range mark {
			mark = strings.Repeat(string(r), n) + mark
			break
		}
	} else if n < 0 {
		log.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%v %v", mark, mess)
}
