// Package plan implements the port-surface planner: deciding, for every
// populated object-dictionary entry, whether it folds to a compile-time
// VHDL constant, becomes an internal signal, or is promoted to a
// top-level entity port.
package plan

import (
	"fmt"
	"sort"

	"github.com/bggardner/canopen-vhdl/pkg/od"
)

// Direction mirrors a VHDL port direction.
type Direction string

const (
	DirIn  Direction = "in"
	DirOut Direction = "out"
)

// Port is one entry in the generated entity's port list.
type Port struct {
	Name        string // quoted VHDL signal identifier
	BareName    string
	Direction   Direction
	VHDLType    string
	Descriptor  *od.Descriptor // nil for the fixed optional ports (Sync/Gfc/Timestamp/segmented SDO)
	IsStrobe    bool
	StrobeOf    string // BareName of the paired data port, when IsStrobe
}

// Options mirrors the eds2vhdl CLI flags.
type Options struct {
	Sync      bool
	Gfc       bool
	Timestamp bool
	// ExtraPorts forces additional muxes to become ports even inside the
	// communication-profile range (the --port flag).
	ExtraPorts []od.Mux
}

// Plan is the result of port-surface planning: the full port list (in
// emission order), the set of objects folded to compile-time constants,
// and the set of objects kept as internal (non-port) signals.
type Plan struct {
	Dict            *od.ObjectDictionary
	Ports           []Port
	Constants       []*od.Descriptor
	InternalSignals []*od.Descriptor
	SegmentedSDO    bool
}

// Build runs the port-surface planner over dict with the given CLI options.
func Build(dict *od.ObjectDictionary, opts Options) (*Plan, error) {
	p := &Plan{Dict: dict}
	p.SegmentedSDO = od.HasSegmentedSDO(dict)

	forced := make(map[od.Mux]bool, len(opts.ExtraPorts))
	for _, m := range opts.ExtraPorts {
		forced[m] = true
	}

	var promoted []Port
	for _, d := range dict.Descriptors() {
		if d.AccessType == od.AccessConst {
			p.Constants = append(p.Constants, d)
			continue
		}

		if d.Classification.Kind == od.KindDomain {
			// Served exclusively through segmented/block SDO; never a
			// port or a plain signal.
			continue
		}

		isPromoted := d.Mux.Index() >= od.AreaManufacturerStart || forced[d.Mux]
		if !isPromoted {
			p.InternalSignals = append(p.InternalSignals, d)
			continue
		}

		dir := DirOut
		if d.AccessType == od.AccessRO {
			dir = DirIn
		}
		promoted = append(promoted, Port{
			Name:       quoteOrFallback(d.CanonicalName),
			BareName:   d.CanonicalName,
			Direction:  dir,
			VHDLType:   d.Classification.VHDLType(),
			Descriptor: d,
		})
		if d.AccessType == od.AccessWO {
			promoted = append(promoted, Port{
				Name:      strobeName(d.CanonicalName),
				BareName:  d.CanonicalName + "_strb",
				Direction: DirOut,
				VHDLType:  "std_logic",
				IsStrobe:  true,
				StrobeOf:  d.CanonicalName,
			})
		}
	}

	promoted = append(promoted, tpdoEventPorts(dict)...)

	// Optional ports prepend in the declared order (sync, gfc, timestamp),
	// then segmented-SDO ports, matching eds2vhdl.py's insertion order
	// (lines 241-260: segmented SDO group is inserted first, and
	// Sync/Gfc/Timestamp are prepended after it, ending up in front of it).
	var prefix []Port
	if opts.Timestamp {
		prefix = append(prefix, Port{Name: `\Timestamp\`, BareName: "Timestamp", Direction: DirOut, VHDLType: "CanOpen.TimeOfDay"})
	}
	if opts.Gfc {
		prefix = append(prefix, Port{Name: `\Gfc\`, BareName: "Gfc", Direction: DirOut, VHDLType: "std_logic"})
	}
	if opts.Sync {
		prefix = append(prefix, Port{Name: `\Sync\`, BareName: "Sync", Direction: DirOut, VHDLType: "std_logic"})
	}
	if p.SegmentedSDO {
		prefix = append(prefix, segmentedSDOPorts()...)
	}

	p.Ports = append(prefix, promoted...)
	return p, nil
}

// tpdoEventPorts derives the per-TPDO `TpdoiEvent` input ports,
// omitting one where its transmission type is a
// statically known const/ro cyclic-synchronous value (1..240),
// since no manufacturer or external event can ever drive it.
func tpdoEventPorts(dict *od.ObjectDictionary) []Port {
	var out []Port
	for i := 1; i <= 4; i++ {
		commIndex := uint16(od.EntryTPDOCommStart + i - 1)
		transType, ok := dict.Get(od.NewMux(commIndex, 2))
		if !ok {
			continue
		}
		if staticallyCyclic(transType) {
			continue
		}
		name := fmt.Sprintf("Tpdo%dEvent", i)
		out = append(out, Port{Name: "\\" + name + "\\", BareName: name, Direction: DirIn, VHDLType: "std_logic"})
	}
	return out
}

func staticallyCyclic(d *od.Descriptor) bool {
	if d.AccessType != od.AccessConst && d.AccessType != od.AccessRO {
		return false
	}
	if d.DefaultValue == nil || d.DefaultValue.NodeIDOffset {
		return false
	}
	v := d.DefaultValue.Literal
	return v >= 1 && v <= 240
}

func segmentedSDOPorts() []Port {
	return []Port{
		{Name: `\SegmentedSdoData\`, BareName: "SegmentedSdoData", Direction: DirIn, VHDLType: "std_logic_vector(55 downto 0)"},
		{Name: `\SegmentedSdoDataValid\`, BareName: "SegmentedSdoDataValid", Direction: DirIn, VHDLType: "std_logic"},
		{Name: `\SegmentedSdoReadDataEnable\`, BareName: "SegmentedSdoReadDataEnable", Direction: DirOut, VHDLType: "std_logic"},
		{Name: `\SegmentedSdoMux\`, BareName: "SegmentedSdoMux", Direction: DirOut, VHDLType: "unsigned(23 downto 0)"},
		{Name: `\SegmentedSdoReadEnable\`, BareName: "SegmentedSdoReadEnable", Direction: DirOut, VHDLType: "std_logic"},
	}
}

func quoteOrFallback(bare string) string {
	if bare == "" {
		return `\Unnamed\`
	}
	return "\\" + bare + "\\"
}

func strobeName(bare string) string {
	return "\\" + bare + "_strb\\"
}

// TPDOMappings returns the parsed, statically-resolved mapping targets for
// TPDO index i (1..4), in sub-index order, feeding the PDO emitter's
// constant-folded payload concatenation. Returns nil if the TPDO has no
// mapping record.
func (p *Plan) TPDOMappings(i int) []MappedField {
	index := uint16(0x1A00 + i - 1)
	entries := p.Dict.IndexEntries(index)
	sort.Slice(entries, func(a, b int) bool { return entries[a].Mux.Sub() < entries[b].Mux.Sub() })
	var out []MappedField
	for _, e := range entries {
		if e.Mux.Sub() == 0 || e.DefaultValue == nil {
			continue
		}
		target, bits := decodeMapping(e.DefaultValue.Literal)
		desc, ok := p.Dict.Get(target)
		if !ok {
			continue
		}
		out = append(out, MappedField{SubIndex: e.Mux.Sub(), Target: desc, BitLength: bits})
	}
	return out
}

// MappedField is one resolved TPDO mapping sub-entry.
type MappedField struct {
	SubIndex  uint8
	Target    *od.Descriptor
	BitLength int
}

func decodeMapping(value uint64) (od.Mux, int) {
	index := uint16(value >> 16)
	sub := uint8(value >> 8)
	bits := int(uint8(value))
	return od.NewMux(index, sub), bits
}
