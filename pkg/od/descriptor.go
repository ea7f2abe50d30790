package od

import "fmt"

// DefaultExpr is the symbolic default-value expression: either a plain
// literal or "$NODEID[+k]", kept unresolved through the whole pipeline
// (resolved only at reset-communication time by the generated hardware,
// never by the generator).
type DefaultExpr struct {
	NodeIDOffset bool   // true when this is "$NODEID[+k]"
	Literal      uint64 // the literal value, or k when NodeIDOffset is set
}

func (d DefaultExpr) String() string {
	if !d.NodeIDOffset {
		return fmt.Sprintf("0x%X", d.Literal)
	}
	if d.Literal == 0 {
		return "$NODEID"
	}
	return fmt.Sprintf("$NODEID+%d", d.Literal)
}

// Descriptor is one populated object-dictionary entry.
type Descriptor struct {
	Mux             Mux
	ParameterName   string
	CanonicalName   string // sanitized, globally-unique identifier (vhdlfmt)
	AccessType      AccessType
	DataTypeIndex   uint16
	Classification  Classification
	DefaultValue    *DefaultExpr // nil when the EDS has no DefaultValue key
	LowLimit        *uint64
	HighLimit       *uint64
	PDOMapping      bool
	SubCount        int // >0 only on the sub-0 "length" entry of a complex object
}

// BitLength is a convenience accessor over the embedded classification.
func (d *Descriptor) BitLength() int {
	return d.Classification.BitLength
}

// IsLengthEntry reports whether this descriptor is the sub-0 entry of a
// multi-sub-index object (array/record "Highest sub-index supported").
func (d *Descriptor) IsLengthEntry() bool {
	return d.Mux.Sub() == 0 && d.SubCount > 0
}

// ObjectDictionary is the ordered descriptor map built by the parser:
// mux -> descriptor, keyed by the 24-bit mux rather than a tree of
// pointers so it survives any translation target.
type ObjectDictionary struct {
	byMux  map[Mux]*Descriptor
	order  []Mux // insertion order as read from the EDS; Muxes() sorts it
	NodeID uint8
}

func NewObjectDictionary(nodeID uint8) *ObjectDictionary {
	return &ObjectDictionary{
		byMux:  make(map[Mux]*Descriptor),
		NodeID: nodeID,
	}
}

// Add inserts or overwrites a descriptor.
func (od *ObjectDictionary) Add(d *Descriptor) {
	if _, exists := od.byMux[d.Mux]; !exists {
		od.order = append(od.order, d.Mux)
	}
	od.byMux[d.Mux] = d
}

// Get looks up a descriptor by mux.
func (od *ObjectDictionary) Get(m Mux) (*Descriptor, bool) {
	d, ok := od.byMux[m]
	return d, ok
}

// MustGet panics if m is absent; used only after Validate has already
// confirmed m's presence (e.g. looking up a mandatory object's resolved
// descriptor from an emitter).
func (od *ObjectDictionary) MustGet(m Mux) *Descriptor {
	d, ok := od.byMux[m]
	if !ok {
		panic(fmt.Sprintf("od: mux %s not present after validation", m))
	}
	return d
}

// Len returns the number of populated muxes.
func (od *ObjectDictionary) Len() int {
	return len(od.byMux)
}

// Muxes returns all populated muxes in canonical (index, then sub) order,
// matching CiA 301.
func (od *ObjectDictionary) Muxes() []Mux {
	out := make([]Mux, len(od.order))
	copy(out, od.order)
	// Insertion-sort by value: EDS files are rarely more than a few
	// hundred entries, and determinism (not asymptotic speed) is what
	// matters here.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Descriptors returns descriptors in the same canonical order as Muxes.
func (od *ObjectDictionary) Descriptors() []*Descriptor {
	muxes := od.Muxes()
	out := make([]*Descriptor, len(muxes))
	for i, m := range muxes {
		out[i] = od.byMux[m]
	}
	return out
}

// IndexEntries returns every descriptor sharing the given index, ordered
// by sub-index.
func (od *ObjectDictionary) IndexEntries(index uint16) []*Descriptor {
	var out []*Descriptor
	for _, m := range od.Muxes() {
		if m.Index() == index {
			out = append(out, od.byMux[m])
		}
	}
	return out
}
