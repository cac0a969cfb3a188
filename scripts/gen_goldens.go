package main

// gen_goldens regenerates the golden program.hex fixtures under testdata/
// by running the compiler against each testdata/*.lisp file in its own
// scratch directory, concurrently, bounded by a shared timeout.
//
//go:generate go run scripts/gen_goldens.go

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	dir := flag.String("testdata", "testdata", "directory of .lisp fixtures")
	timeout := flag.Duration("timeout", 30*time.Second, "overall time limit")
	flag.Parse()

	repoRoot, err := os.Getwd()
	if err != nil {
		log.Fatalf("getwd failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fixtures, err := filepath.Glob(filepath.Join(*dir, "*.lisp"))
	if err != nil {
		log.Fatalf("glob failed: %v", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, fixture := range fixtures {
		fixture := fixture
		eg.Go(func() error { return regenerate(ctx, repoRoot, fixture) })
	}
	if err := eg.Wait(); err != nil {
		log.Fatalln(err)
	}
}

func regenerate(ctx context.Context, repoRoot, fixture string) error {
	golden := fixture[:len(fixture)-len(filepath.Ext(fixture))] + ".hex"

	absFixture, err := filepath.Abs(fixture)
	if err != nil {
		return fmt.Errorf("%s: %w", fixture, err)
	}

	scratch, err := os.MkdirTemp("", "lispvm-golden-*")
	if err != nil {
		return fmt.Errorf("%s: %w", fixture, err)
	}
	defer os.RemoveAll(scratch)

	cmd := exec.CommandContext(ctx, "go", "run", repoRoot, absFixture)
	cmd.Dir = scratch
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", fixture, err)
	}

	produced, err := os.ReadFile(filepath.Join(scratch, "program.hex"))
	if err != nil {
		return fmt.Errorf("%s: %w", fixture, err)
	}
	if err := os.WriteFile(golden, produced, 0644); err != nil {
		return fmt.Errorf("%s: %w", fixture, err)
	}
	return nil
}
