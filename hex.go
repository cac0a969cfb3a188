package main

import (
	"fmt"
	"io"
)

// writeHex renders program.hex per §6: one line per word, six lowercase hex
// digits, no prefix, in emission order.
func writeHex(w io.Writer, words []uint32) error {
	for _, word := range words {
		if _, err := fmt.Fprintf(w, "%06x\n", word); err != nil {
			return err
		}
	}
	return nil
}
