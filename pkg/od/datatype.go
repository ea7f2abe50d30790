package od

import "fmt"

// Kind is the closed set of container kinds the target machine knows how
// to store and move, modelled as a tagged variant rather than dynamic
// dispatch: the SDO server later matches exhaustively over (AccessType,
// Kind).
type Kind uint8

const (
	KindBool Kind = iota
	KindSigned
	KindUnsigned
	KindTimeOfDay
	KindTimeDifference
	KindDomain
)

// Classification is the result of classifying a data type index into
// a bit length, a signedness/container kind, and whether it is fixed or
// variable width.
type Classification struct {
	Kind      Kind
	BitLength int // 0 for Domain (variable length, per CiA 301 §7.4.7.1)
	Signed    bool
}

// Classify maps an EDS "DataType" index to its hardware representation.
// Mirrors eds2vhdl.py's make_object_from_data_type, generalized to the
// gocanopen-compatible wire values from constants.go.
func Classify(dataType uint16) (Classification, error) {
	switch dataType {
	case Boolean:
		return Classification{Kind: KindBool, BitLength: 1}, nil
	case Integer8:
		return Classification{Kind: KindSigned, BitLength: 8, Signed: true}, nil
	case Integer16:
		return Classification{Kind: KindSigned, BitLength: 16, Signed: true}, nil
	case Integer32:
		return Classification{Kind: KindSigned, BitLength: 32, Signed: true}, nil
	case Unsigned8:
		return Classification{Kind: KindUnsigned, BitLength: 8}, nil
	case Unsigned16:
		return Classification{Kind: KindUnsigned, BitLength: 16}, nil
	case Unsigned32:
		return Classification{Kind: KindUnsigned, BitLength: 32}, nil
	case TimeOfDay:
		return Classification{Kind: KindTimeOfDay, BitLength: 48}, nil
	case TimeDifference:
		return Classification{Kind: KindTimeDifference, BitLength: 48}, nil
	case Domain:
		return Classification{Kind: KindDomain, BitLength: 0}, nil
	default:
		return Classification{}, fmt.Errorf("%w: data type index 0x%04X", ErrUnknownDataType, dataType)
	}
}

// VHDLType renders the classification's VHDL subtype name, used by the
// emitter when declaring signals/ports/constants.
func (c Classification) VHDLType() string {
	switch c.Kind {
	case KindBool:
		return "std_logic"
	case KindSigned:
		return fmt.Sprintf("signed(%d downto 0)", c.BitLength-1)
	case KindUnsigned:
		return fmt.Sprintf("unsigned(%d downto 0)", c.BitLength-1)
	case KindTimeOfDay, KindTimeDifference:
		return "CanOpen.TimeOfDay"
	case KindDomain:
		return "unsigned(31 downto 0)" // placeholder; served via segmented SDO
	default:
		return "std_logic_vector"
	}
}
