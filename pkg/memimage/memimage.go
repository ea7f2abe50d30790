// Package memimage converts an arbitrary byte stream into a textual
// address/word MEM image, with optional DEFLATE compression of the input
// bytes. It has no dependency on the object-dictionary pipeline.
package memimage

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"math"
)

// Emit renders data as a MEM image: "// " header comment lines followed by
// one "@<hex-addr> <hex-word>" record per wordBytes-sized chunk, the word's
// bytes written highest-offset-first, grounded on eds2mem.py.
//
// When zlibLevel > 0, data is DEFLATE-compressed at that level before
// chunking, matching the Python tool's "--zlib" flag.
func Emit(data []byte, wordBytes int, zlibLevel int) ([]byte, error) {
	if wordBytes <= 0 {
		return nil, fmt.Errorf("memimage: wordBytes must be positive, got %d", wordBytes)
	}

	if zlibLevel > 0 {
		compressed, err := deflate(data, zlibLevel)
		if err != nil {
			return nil, fmt.Errorf("memimage: compress: %w", err)
		}
		data = compressed
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Generated by canopen-vhdl memgen\n")
	fmt.Fprintf(&buf, "// %d bytes valid\n", len(data))

	addrDigits := addressDigits(len(data))
	for i := 0; i < len(data); i += wordBytes {
		fmt.Fprintf(&buf, "@%0*X ", addrDigits, i/wordBytes)
		for j := wordBytes - 1; j >= 0; j-- {
			var b byte
			if i+j < len(data) {
				b = data[i+j]
			}
			fmt.Fprintf(&buf, "%02X", b)
		}
		fmt.Fprintln(&buf)
	}

	return buf.Bytes(), nil
}

// addressDigits reproduces eds2mem.py's address-field width derivation:
// ceil(ceil(log2(n))/4) hex nibbles. n=0 or n=1 yields 0 (the tool's own
// degenerate case, kept as-is rather than guarded against).
func addressDigits(n int) int {
	if n <= 1 {
		return 0
	}
	return int(math.Ceil(math.Ceil(math.Log2(float64(n))) / 4))
}

func deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
