// Command edsgen translates a CiA 306-1 Electronic Data Sheet into a
// synthesizable VHDL entity implementing a CANopen slave node.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/bggardner/canopen-vhdl/pkg/emit"
	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

// muxList collects repeated "--port 0xIIIISS" flags into forced OD muxes.
type muxList []od.Mux

func (m *muxList) String() string {
	parts := make([]string, len(*m))
	for i, mux := range *m {
		parts[i] = mux.String()
	}
	return strings.Join(parts, ",")
}

func (m *muxList) Set(raw string) error {
	v, err := strconv.ParseUint(strings.TrimPrefix(raw, "0x"), 16, 24)
	if err != nil {
		return fmt.Errorf("invalid --port value %q: %w", raw, err)
	}
	index := uint16(v >> 8)
	sub := uint8(v)
	*m = append(*m, od.NewMux(index, sub))
	return nil
}

func main() {
	log.SetLevel(log.InfoLevel)

	sync := flag.Bool("sync", false, "add the Sync output port")
	gfc := flag.Bool("gfc", false, "add the Gfc output port")
	timestamp := flag.Bool("timestamp", false, "add the Timestamp output port")
	nodeID := flag.Uint("node-id", 1, "Node-ID stored with the parsed object dictionary; $NODEID defaults stay symbolic and are resolved from the NodeId input at reset")
	clockHz := flag.Uint64("clock-hz", 50_000_000, "entity CLOCK_FREQUENCY in Hz")
	entityName := flag.String("entity", "CanOpenNode", "generated VHDL entity name")
	out := flag.String("o", "", "output file (default: stdout)")
	var ports muxList
	flag.Var(&ports, "port", "force OD mux 0xIIIISS to become a top-level port (repeatable)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: edsgen [flags] <eds>")
		os.Exit(1)
	}

	dict, err := od.Parse(flag.Arg(0), uint8(*nodeID))
	if err != nil {
		log.Errorf("parsing EDS: %v", err)
		os.Exit(1)
	}

	if err := od.Validate(dict); err != nil {
		log.Errorf("validating object dictionary: %v", err)
		os.Exit(1)
	}

	p, err := plan.Build(dict, plan.Options{
		Sync:       *sync,
		Gfc:        *gfc,
		Timestamp:  *timestamp,
		ExtraPorts: []od.Mux(ports),
	})
	if err != nil {
		log.Errorf("planning port surface: %v", err)
		os.Exit(1)
	}

	entity, err := emit.Generate(p, emit.Config{
		EntityName:       *entityName,
		ClockFrequencyHz: *clockHz,
	})
	if err != nil {
		log.Errorf("generating entity: %v", err)
		os.Exit(1)
	}

	if *out == "" {
		fmt.Println(entity)
		return
	}
	if err := os.WriteFile(*out, []byte(entity), 0644); err != nil {
		log.Errorf("writing %s: %v", *out, err)
		os.Exit(1)
	}
	log.Infof("%s written", *out)
}
