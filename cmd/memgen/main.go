// Command memgen converts an arbitrary byte stream into an address/word MEM
// image, with optional zlib compression.
package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/bggardner/canopen-vhdl/pkg/memimage"
)

func main() {
	log.SetLevel(log.InfoLevel)

	word := flag.Int("word", 7, "word size, in bytes")
	zlibLevel := flag.Int("zlib", 0, "compress input using zlib at the given level (0-9)")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: memgen [flags] <input> <mem>")
		os.Exit(1)
	}
	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Errorf("reading %s: %v", inputPath, err)
		os.Exit(1)
	}

	before := len(data)
	mem, err := memimage.Emit(data, *word, *zlibLevel)
	if err != nil {
		log.Errorf("rendering MEM image: %v", err)
		os.Exit(1)
	}
	if *zlibLevel > 0 {
		log.Infof("compressed %d bytes at level %d", before, *zlibLevel)
	}

	if err := os.WriteFile(outputPath, mem, 0644); err != nil {
		log.Errorf("writing %s: %v", outputPath, err)
		os.Exit(1)
	}
	log.Infof("%s written", outputPath)
}
