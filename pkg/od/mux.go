package od

import "fmt"

// Mux is the 24-bit multiplexer (index:16, sub:8) used as the primary key
// into the object dictionary.
type Mux uint32

// NewMux builds a Mux from an index/sub-index pair.
func NewMux(index uint16, sub uint8) Mux {
	return Mux(uint32(index)<<8 | uint32(sub))
}

// Index returns the 16-bit index part.
func (m Mux) Index() uint16 {
	return uint16(m >> 8)
}

// Sub returns the 8-bit sub-index part.
func (m Mux) Sub() uint8 {
	return uint8(m)
}

func (m Mux) String() string {
	return fmt.Sprintf("%04Xsub%X", m.Index(), m.Sub())
}

// Less orders muxes by index then sub-index, matching CiA 301 canonical
// ordering.
func (m Mux) Less(other Mux) bool {
	return m < other
}
