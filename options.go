package main

import (
	"io"
	"io/ioutil"

	"github.com/gokku/lispvm/internal/flushio"
)

// Option configures a Pipeline at construction time.
type Option interface{ apply(p *Pipeline) }

var defaultOptions = Options(
	WithOutput(ioutil.Discard),
)

// Options flattens any number of Option values into one, dropping nils and
// concatenating nested Options so callers never have to special-case them.
func Options(opts ...Option) Option {
	var res options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil, noption:
		case options:
			res = append(res, impl...)
		default:
			res = append(res, opt)
		}
	}
	switch len(res) {
	case 0:
		return noption{}
	case 1:
		return res[0]
	default:
		return res
	}
}

type noption struct{}

func (noption) apply(p *Pipeline) {}

type options []Option

func (opts options) apply(p *Pipeline) {
	for _, opt := range opts {
		if opt != nil {
			opt.apply(p)
		}
	}
}

// WithSource queues a source file to be parsed after the runtime library
// and any previously queued source.
func WithSource(r io.Reader) Option { return sourceOption{r} }

// WithOutput sets the destination for the compiled program.hex words.
func WithOutput(w io.Writer) Option { return outputOption{w} }

// WithListing sets the destination for the program.lst disassembly. Without
// it, no listing is produced.
func WithListing(w io.Writer) Option { return listingOption{w} }

// WithLogf supplies the function warnings and diagnostics are printed
// through. Without it, they are silently discarded.
func WithLogf(logfn func(mess string, args ...interface{})) Option { return withLogfn(logfn) }

type withLogfn func(mess string, args ...interface{})

func (logfn withLogfn) apply(p *Pipeline) { p.logfn = logfn }

type sourceOption struct{ io.Reader }
type outputOption struct{ io.Writer }
type listingOption struct{ io.Writer }

func (s sourceOption) apply(p *Pipeline) {
	p.sources = append(p.sources, s.Reader)
	if cl, ok := s.Reader.(io.Closer); ok {
		p.closers = append(p.closers, cl)
	}
}

func (o outputOption) apply(p *Pipeline) {
	if p.out != nil {
		p.out.Flush()
	}
	p.out = flushio.NewWriteFlusher(o.Writer)
	if cl, ok := o.Writer.(io.Closer); ok {
		p.closers = append(p.closers, cl)
	}
}

func (o listingOption) apply(p *Pipeline) {
	if p.listOut != nil {
		p.listOut.Flush()
	}
	p.listOut = flushio.NewWriteFlusher(o.Writer)
	if cl, ok := o.Writer.(io.Closer); ok {
		p.closers = append(p.closers, cl)
	}
}
