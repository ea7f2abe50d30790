package od

import "errors"

// CiA 301 data type indices, as they appear in an EDS "DataType" key.
// Values match gocanopen's pkg/od/constants.go so an EDS produced for
// either toolchain parses identically.
const (
	Boolean         uint16 = 0x0001
	Integer8        uint16 = 0x0002
	Integer16       uint16 = 0x0003
	Integer32       uint16 = 0x0004
	Unsigned8       uint16 = 0x0005
	Unsigned16      uint16 = 0x0006
	Unsigned32      uint16 = 0x0007
	TimeOfDay       uint16 = 0x000C
	TimeDifference  uint16 = 0x000D
	Domain          uint16 = 0x000F
)

// AccessType is the EDS "AccessType" key, lower-cased.
type AccessType uint8

const (
	AccessConst AccessType = iota
	AccessRO
	AccessRW
	AccessWO
)

func (a AccessType) String() string {
	switch a {
	case AccessConst:
		return "const"
	case AccessRO:
		return "ro"
	case AccessRW:
		return "rw"
	case AccessWO:
		return "wo"
	default:
		return "unknown"
	}
}

func ParseAccessType(s string) (AccessType, error) {
	switch s {
	case "const":
		return AccessConst, nil
	case "ro":
		return AccessRO, nil
	case "rw":
		return AccessRW, nil
	case "wo":
		return AccessWO, nil
	default:
		return 0, ErrUnknownAccessType
	}
}

// Standard communication-profile objects, per CiA 301 (of these, only
// 0x1000, 0x1001 and 0x1018 are mandatory).
const (
	EntryDeviceType       uint16 = 0x1000
	EntryErrorRegister    uint16 = 0x1001
	EntryIdentityObject   uint16 = 0x1018
	EntryCobIdSync        uint16 = 0x1005
	EntryCommCyclePeriod  uint16 = 0x1006
	EntrySyncWindowLength uint16 = 0x1007
	EntryCobIdTime        uint16 = 0x1012
	EntryCobIdEmcy        uint16 = 0x1014
	EntryConsumerHeartbeat uint16 = 0x1016
	EntryProducerHeartbeat uint16 = 0x1017
	EntrySyncCounterOverflow uint16 = 0x1019
	EntryErrorBehavior    uint16 = 0x1029
	EntryNMTStartup       uint16 = 0x1F80
	EntryRPDOCommStart    uint16 = 0x1400
	EntryRPDOCommEnd      uint16 = 0x15FF
	EntryTPDOCommStart    uint16 = 0x1800
	EntryTPDOCommEnd      uint16 = 0x1BFF
	EntryTPDOMappingStart uint16 = 0x1A00
	EntryTPDOMappingEnd   uint16 = 0x1A03
	EntrySDOServer1       uint16 = 0x1200
)

// AreaManufacturerStart is the boundary used to decide
// whether a non-const object becomes a top-level port.
const AreaManufacturerStart uint16 = 0x2000

var (
	ErrUnknownAccessType = errors.New("unknown access type")
	ErrUnknownDataType   = errors.New("unsupported data type")
	ErrEdsFormat         = errors.New("invalid EDS format")
)
