package main

import (
	"os"
	"path/filepath"

	"github.com/jpvetterli/args"

	"github.com/gokku/lispvm/internal/logio"
)

// No flags: every bare argument is taken as a source file path, compiled in
// order after the runtime library. Settings that would otherwise be flags
// (output directory, file names, whether to emit a listing) live in an
// optional lispvm.toml in the working directory.
func main() {
	var log logio.Logger
	log.SetOutput(os.Stderr)
	defer func() { os.Exit(log.ExitCode()) }()

	var files []string
	a := args.NewParser()
	a.Def("file", &files).Aka("").Opt()
	if err := a.ParseStrings(os.Args[1:]); err != nil {
		log.Errorf("%v", err)
		return
	}
	if len(files) == 0 {
		log.Errorf("usage: %s source.lisp ...", filepath.Base(os.Args[0]))
		return
	}

	cfg, err := LoadConfig("lispvm.toml")
	if err != nil {
		log.Errorf("%v", err)
		return
	}

	opts := []Option{WithLogf(log.Leveledf("warning"))}

	hexFile, err := os.Create(filepath.Join(cfg.Output.Dir, cfg.Output.HexFile))
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	defer hexFile.Close()
	opts = append(opts, WithOutput(hexFile))

	if cfg.Output.EmitListing {
		listFile, err := os.Create(filepath.Join(cfg.Output.Dir, cfg.Output.ListFile))
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		defer listFile.Close()
		opts = append(opts, WithListing(listFile))
	}

	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		defer f.Close()
		opts = append(opts, WithSource(f))
	}

	p := New(opts...)
	log.ErrorIf(p.Run())
}
