package od

import (
	"errors"
	"fmt"
)

var (
	ErrMandatoryObjectMissing = errors.New("mandatory object missing")
	ErrDuplicateName          = errors.New("duplicate canonical name")
	ErrMappingTargetMissing   = errors.New("PDO mapping references a non-existent object")
	ErrMappingBitLength       = errors.New("PDO mapping bit length does not match target object")
	ErrMappingWriteOnly       = errors.New("PDO mapping targets a write-only object")
	ErrMappingNotMappable     = errors.New("PDO mapping targets an object with pdo_mapping=0")
	ErrMappingTooWide         = errors.New("TPDO mapping exceeds 64 bits")
	ErrDuplicateHeartbeatNode = errors.New("duplicate heartbeat-consumer Node-ID")
	ErrNodeIDOffsetTooWide    = errors.New("$NODEID+k offset exceeds the object's bit width")
)

// Validate enforces the object dictionary's structural invariants. It
// returns the first violation found; the CLI treats any returned error as
// a fatal, non-zero-exit generator error.
func Validate(dict *ObjectDictionary) error {
	if err := validateMandatory(dict); err != nil {
		return err
	}
	if err := validateUniqueNames(dict); err != nil {
		return err
	}
	if err := validatePDOMappings(dict); err != nil {
		return err
	}
	if err := validateHeartbeatConsumers(dict); err != nil {
		return err
	}
	if err := validateNodeIDOffsets(dict); err != nil {
		return err
	}
	return nil
}

// validateMandatory checks that the required objects are present.
func validateMandatory(dict *ObjectDictionary) error {
	if _, ok := dict.Get(NewMux(EntryDeviceType, 0)); !ok {
		return fmt.Errorf("%w: 0x1000", ErrMandatoryObjectMissing)
	}
	if _, ok := dict.Get(NewMux(EntryErrorRegister, 0)); !ok {
		return fmt.Errorf("%w: 0x1001", ErrMandatoryObjectMissing)
	}
	if _, ok := dict.Get(NewMux(EntryIdentityObject, 1)); !ok {
		return fmt.Errorf("%w: 0x1018sub1", ErrMandatoryObjectMissing)
	}
	return nil
}

// validateUniqueNames checks that no two descriptors canonicalize to the
// same VHDL identifier.
func validateUniqueNames(dict *ObjectDictionary) error {
	seen := make(map[string]Mux)
	for _, m := range dict.Muxes() {
		d := dict.byMux[m]
		if d.IsLengthEntry() {
			continue // the length sub-entry shares no VHDL identifier of its own weight beyond its parent's
		}
		if existing, ok := seen[d.CanonicalName]; ok {
			return fmt.Errorf("%w: %q used by both %s and %s", ErrDuplicateName, d.CanonicalName, existing, m)
		}
		seen[d.CanonicalName] = m
	}
	return nil
}

// decodeMappingEntry decodes a TPDO mapping sub-entry's literal value into
// (target mux, bit length), per CiA 301: bits 31:16 index, 15:8 sub, 7:0
// bit length.
func decodeMappingEntry(value uint64) (Mux, int) {
	index := uint16(value >> 16)
	sub := uint8(value >> 8)
	bitLength := int(uint8(value))
	return NewMux(index, sub), bitLength
}

// validatePDOMappings checks that every TPDO1-4 mapping sub-entry (>=1)
// decodes to a present, correctly-sized, non-write-only, mappable target,
// and each TPDO's total mapped bits stays within 64.
func validatePDOMappings(dict *ObjectDictionary) error {
	for index := EntryTPDOMappingStart; index <= EntryTPDOMappingEnd; index++ {
		entries := dict.IndexEntries(index)
		totalBits := 0
		for _, e := range entries {
			if e.Mux.Sub() == 0 {
				continue // "number of mapped objects" length entry
			}
			if e.DefaultValue == nil {
				continue
			}
			target, bitLength := decodeMappingEntry(e.DefaultValue.Literal)
			targetDesc, ok := dict.Get(target)
			if !ok {
				return fmt.Errorf("%w: 0x%04Xsub%X -> %s", ErrMappingTargetMissing, index, e.Mux.Sub(), target)
			}
			if targetDesc.BitLength() != bitLength {
				return fmt.Errorf("%w: 0x%04Xsub%X -> %s (mapping says %d bits, object is %d)",
					ErrMappingBitLength, index, e.Mux.Sub(), target, bitLength, targetDesc.BitLength())
			}
			if targetDesc.AccessType == AccessWO {
				return fmt.Errorf("%w: %s", ErrMappingWriteOnly, target)
			}
			if !targetDesc.PDOMapping {
				return fmt.Errorf("%w: %s", ErrMappingNotMappable, target)
			}
			totalBits += bitLength
		}
		if totalBits > 64 {
			return fmt.Errorf("%w: 0x%04X maps %d bits", ErrMappingTooWide, index, totalBits)
		}
	}
	return nil
}

// validateHeartbeatConsumers checks that no two consumer-heartbeat
// sub-entries watch the same Node-ID.
func validateHeartbeatConsumers(dict *ObjectDictionary) error {
	entries := dict.IndexEntries(EntryConsumerHeartbeat)
	seen := make(map[uint8]uint8) // node-id -> sub-index
	for _, e := range entries {
		if e.Mux.Sub() == 0 || e.DefaultValue == nil {
			continue
		}
		nodeID := uint8((e.DefaultValue.Literal >> 16) & 0x7F)
		if existingSub, ok := seen[nodeID]; ok {
			return fmt.Errorf("%w: node 0x%02X on sub%X and sub%X", ErrDuplicateHeartbeatNode, nodeID, existingSub, e.Mux.Sub())
		}
		seen[nodeID] = e.Mux.Sub()
	}
	return nil
}

// validateNodeIDOffsets checks that a $NODEID+k offset can never overflow
// its object's bit width (the k>=0 half is already enforced while
// parsing, see parseDefaultValue).
func validateNodeIDOffsets(dict *ObjectDictionary) error {
	const nodeIDBits = 7
	for _, d := range dict.Descriptors() {
		if d.DefaultValue == nil || !d.DefaultValue.NodeIDOffset {
			continue
		}
		width := d.BitLength()
		if width < nodeIDBits {
			return fmt.Errorf("%w: %s is only %d bits wide, cannot hold a node-id", ErrNodeIDOffsetTooWide, d.Mux, width)
		}
		maxSum := d.DefaultValue.Literal + (1<<nodeIDBits - 1)
		if width < 64 && maxSum >= uint64(1)<<uint(width) {
			return fmt.Errorf("%w: %s (k=%d, width=%d)", ErrNodeIDOffsetTooWide, d.Mux, d.DefaultValue.Literal, width)
		}
	}
	return nil
}

// HasSegmentedSDO reports whether Domain/variable-length objects are
// actually served: only when an SDO server RX COB-ID (0x1200sub1)
// is present.
func HasSegmentedSDO(dict *ObjectDictionary) bool {
	if _, ok := dict.Get(NewMux(EntrySDOServer1, 1)); !ok {
		return false
	}
	for _, d := range dict.Descriptors() {
		if d.Classification.Kind == KindDomain {
			return true
		}
	}
	return false
}
