package main

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexLineRE = regexp.MustCompile(`^[0-9a-f]{6}$`)

func Test_Pipeline_writesHexAndListing(t *testing.T) {
	var hex, list bytes.Buffer
	p := New(
		WithSource(strings.NewReader(`(function add (a b) (+ a b)) (add 2 3)`)),
		WithOutput(&hex),
		WithListing(&list),
	)
	require.NoError(t, p.Run())

	lines := strings.Split(strings.TrimRight(hex.String(), "\n"), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Regexp(t, hexLineRE, line)
	}

	assert.Contains(t, list.String(), "Globals:")
	assert.Contains(t, list.String(), "add:")
	assert.Contains(t, list.String(), "<main>:")
}

func Test_Pipeline_withoutListingProducesNoListingOutput(t *testing.T) {
	var hex bytes.Buffer
	p := New(
		WithSource(strings.NewReader(`(+ 1 2)`)),
		WithOutput(&hex),
	)
	require.NoError(t, p.Run())
	assert.NotEmpty(t, hex.String())
	assert.Nil(t, p.listOut, "no listing destination is set without WithListing")
}

func Test_Pipeline_warningsReachLogf(t *testing.T) {
	var warnings []string
	var hex bytes.Buffer
	p := New(
		WithSource(strings.NewReader(`(+ undefinedGlobal 1)`)),
		WithOutput(&hex),
		WithLogf(func(mess string, args ...interface{}) {
			warnings = append(warnings, mess)
		}),
	)
	require.NoError(t, p.Run())
	assert.NotEmpty(t, warnings)
}
