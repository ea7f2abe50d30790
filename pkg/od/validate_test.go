package od

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mandatoryOnly() *ObjectDictionary {
	dict := NewObjectDictionary(5)
	dict.Add(&Descriptor{Mux: NewMux(EntryDeviceType, 0), CanonicalName: "DeviceType", AccessType: AccessRO, Classification: Classification{Kind: KindUnsigned, BitLength: 32}})
	dict.Add(&Descriptor{Mux: NewMux(EntryErrorRegister, 0), CanonicalName: "ErrorRegister", AccessType: AccessRO, Classification: Classification{Kind: KindUnsigned, BitLength: 8}})
	dict.Add(&Descriptor{Mux: NewMux(EntryIdentityObject, 1), CanonicalName: "VendorId", AccessType: AccessConst, Classification: Classification{Kind: KindUnsigned, BitLength: 32}})
	return dict
}

func TestValidateDuplicateNames(t *testing.T) {
	dict := mandatoryOnly()
	dict.Add(&Descriptor{Mux: NewMux(0x2000, 0), CanonicalName: "ErrorRegister", AccessType: AccessRW, Classification: Classification{Kind: KindUnsigned, BitLength: 8}})
	err := Validate(dict)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestValidatePDOMappingMissingTarget(t *testing.T) {
	dict := mandatoryOnly()
	dict.Add(&Descriptor{
		Mux:           NewMux(EntryTPDOMappingStart, 1),
		CanonicalName: "Tpdo1Mapped1",
		AccessType:    AccessConst,
		Classification: Classification{Kind: KindUnsigned, BitLength: 32},
		DefaultValue:  &DefaultExpr{Literal: 0x20010008},
	})
	err := Validate(dict)
	assert.ErrorIs(t, err, ErrMappingTargetMissing)
}

func TestValidatePDOMappingBitLengthMismatch(t *testing.T) {
	dict := mandatoryOnly()
	dict.Add(&Descriptor{
		Mux: NewMux(0x2001, 0), CanonicalName: "Target", AccessType: AccessRW, PDOMapping: true,
		Classification: Classification{Kind: KindUnsigned, BitLength: 16},
	})
	dict.Add(&Descriptor{
		Mux: NewMux(EntryTPDOMappingStart, 1), CanonicalName: "Tpdo1Mapped1", AccessType: AccessConst,
		Classification: Classification{Kind: KindUnsigned, BitLength: 32},
		DefaultValue:   &DefaultExpr{Literal: 0x20010008}, // says 8 bits, target is 16
	})
	err := Validate(dict)
	assert.ErrorIs(t, err, ErrMappingBitLength)
}

func TestValidateTooWideMapping(t *testing.T) {
	dict := mandatoryOnly()
	dict.Add(&Descriptor{
		Mux: NewMux(0x2001, 0), CanonicalName: "Target", AccessType: AccessRW, PDOMapping: true,
		Classification: Classification{Kind: KindUnsigned, BitLength: 32},
	})
	for i := 1; i <= 3; i++ {
		dict.Add(&Descriptor{
			Mux: NewMux(EntryTPDOMappingStart, uint8(i)), CanonicalName: "M" + string(rune('0'+i)), AccessType: AccessConst,
			Classification: Classification{Kind: KindUnsigned, BitLength: 32},
			DefaultValue:   &DefaultExpr{Literal: 0x20010020}, // 32 bits each x3 = 96 > 64
		})
	}
	err := Validate(dict)
	assert.ErrorIs(t, err, ErrMappingTooWide)
}

func TestValidateDuplicateHeartbeatNode(t *testing.T) {
	dict := mandatoryOnly()
	dict.Add(&Descriptor{Mux: NewMux(EntryConsumerHeartbeat, 1), CanonicalName: "Hb1", AccessType: AccessRW,
		Classification: Classification{Kind: KindUnsigned, BitLength: 32}, DefaultValue: &DefaultExpr{Literal: 0x000A03E8}})
	dict.Add(&Descriptor{Mux: NewMux(EntryConsumerHeartbeat, 2), CanonicalName: "Hb2", AccessType: AccessRW,
		Classification: Classification{Kind: KindUnsigned, BitLength: 32}, DefaultValue: &DefaultExpr{Literal: 0x000A01F4}})
	err := Validate(dict)
	assert.ErrorIs(t, err, ErrDuplicateHeartbeatNode)
}

func TestValidateNodeIDOffsetTooWide(t *testing.T) {
	dict := mandatoryOnly()
	dict.Add(&Descriptor{
		Mux: NewMux(0x2003, 0), CanonicalName: "Narrow", AccessType: AccessRW,
		Classification: Classification{Kind: KindUnsigned, BitLength: 8},
		DefaultValue:   &DefaultExpr{NodeIDOffset: true, Literal: 0xFF},
	})
	err := Validate(dict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeIDOffsetTooWide)
}
