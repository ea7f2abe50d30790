package od

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// _logger follows gocanopen's pkg/od convention of a package-level slog
// logger used for non-fatal parse warnings (pkg/od/od.go, parser_v1.go).
var _logger = slog.Default()

var (
	matchIdxRegExp    = regexp.MustCompile(`^[0-9A-Fa-f]{4}$`)
	matchSubidxRegExp = regexp.MustCompile(`^([0-9A-Fa-f]{4})sub([0-9A-Fa-f]+)$`)
)

// Parse loads a CiA 306-1 EDS file and builds the flattened object
// dictionary. file is a path,
// matching gocanopen's ini.Load(file) contract (pkg/od/parser_v1.go).
func Parse(file string, nodeID uint8) (*ObjectDictionary, error) {
	edsFile, err := ini.Load(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEdsFormat, err)
	}

	dict := NewObjectDictionary(nodeID)

	indices, err := supportedIndices(edsFile)
	if err != nil {
		return nil, err
	}

	for _, index := range indices {
		section, err := edsFile.GetSection(fmt.Sprintf("%04X", index))
		if err != nil {
			return nil, fmt.Errorf("index 0x%04X listed in SupportedObjects but section missing: %w", index, err)
		}

		subNumberKey, err := section.GetKey("SubNumber")
		if err != nil {
			// Scalar object: the section itself is the sole entry at sub 0.
			desc, err := parseEntry(section, index, 0, nodeID)
			if err != nil {
				return nil, fmt.Errorf("0x%04X: %w", index, err)
			}
			dict.Add(desc)
			continue
		}

		subCount, err := subNumberKey.Int()
		if err != nil {
			return nil, fmt.Errorf("0x%04X: invalid SubNumber: %w", index, err)
		}

		subsFound := 0
		for sub := 0; sub <= 0xFF && subsFound <= subCount; sub++ {
			subSection, err := edsFile.GetSection(fmt.Sprintf("%04Xsub%X", index, sub))
			if err != nil {
				continue
			}
			subsFound++
			desc, err := parseEntry(subSection, index, uint8(sub), nodeID)
			if err != nil {
				return nil, fmt.Errorf("0x%04Xsub%X: %w", index, sub, err)
			}
			if sub == 0 {
				desc.SubCount = subCount
				if desc.ParameterName == "" {
					desc.ParameterName = sectionDisplayName(section) + " Length"
				}
			}
			dict.Add(desc)
		}
	}

	return dict, nil
}

// supportedIndices walks MandatoryObjects/OptionalObjects/ManufacturerObjects
// exactly as eds2vhdl.py lines 169-173 do: each section carries a
// "SupportedObjects" count and then keys "1".."n" listing hex indices.
func supportedIndices(edsFile *ini.File) ([]uint16, error) {
	var indices []uint16
	for _, sectionName := range []string{"MandatoryObjects", "OptionalObjects", "ManufacturerObjects"} {
		section, err := edsFile.GetSection(sectionName)
		if err != nil {
			continue
		}
		countKey, err := section.GetKey("SupportedObjects")
		if err != nil {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(countKey.Value()), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid SupportedObjects: %w", sectionName, err)
		}
		for i := int64(1); i <= n; i++ {
			key, err := section.GetKey(strconv.FormatInt(i, 10))
			if err != nil {
				return nil, fmt.Errorf("%s: missing entry %d", sectionName, i)
			}
			idx, err := strconv.ParseUint(strings.TrimSpace(key.Value()), 0, 16)
			if err != nil {
				return nil, fmt.Errorf("%s: entry %d: %w", sectionName, i, err)
			}
			indices = append(indices, uint16(idx))
		}
	}
	return indices, nil
}

func sectionDisplayName(section *ini.Section) string {
	if key, err := section.GetKey("ParameterName"); err == nil {
		return key.Value()
	}
	return section.Name()
}

// parseEntry builds a Descriptor from one EDS section (either a scalar
// object's own section, or one sub-index section of a Record/Array).
func parseEntry(section *ini.Section, index uint16, sub uint8, nodeID uint8) (*Descriptor, error) {
	name := section.Key("ParameterName").Value()

	dataTypeKey, err := section.GetKey("DataType")
	if err != nil {
		return nil, fmt.Errorf("missing DataType: %w", err)
	}
	dataType, err := strconv.ParseUint(strings.TrimSpace(dataTypeKey.Value()), 0, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid DataType: %w", err)
	}
	classification, err := Classify(uint16(dataType))
	if err != nil {
		return nil, err
	}

	accessKey, err := section.GetKey("AccessType")
	if err != nil {
		return nil, fmt.Errorf("missing AccessType: %w", err)
	}
	access, err := ParseAccessType(strings.ToLower(strings.TrimSpace(accessKey.Value())))
	if err != nil {
		return nil, err
	}

	desc := &Descriptor{
		Mux:            NewMux(index, sub),
		ParameterName:  name,
		AccessType:     access,
		DataTypeIndex:  uint16(dataType),
		Classification: classification,
	}

	canonical, err := canonicalName(access, name)
	if err != nil {
		return nil, err
	}
	desc.CanonicalName = canonical

	if pdoKey, err := section.GetKey("PDOMapping"); err == nil {
		desc.PDOMapping = strings.TrimSpace(pdoKey.Value()) == "1"
	}

	if defKey, err := section.GetKey("DefaultValue"); err == nil {
		expr, err := parseDefaultValue(strings.TrimSpace(defKey.Value()), classification.BitLength)
		if err != nil {
			return nil, fmt.Errorf("invalid DefaultValue: %w", err)
		}
		desc.DefaultValue = expr
	}

	if access == AccessRW || access == AccessWO {
		if lowKey, err := section.GetKey("LowLimit"); err == nil {
			v, err := strconv.ParseUint(strings.TrimSpace(lowKey.Value()), 0, 64)
			if err != nil {
				_logger.Warn("error parsing LowLimit", "mux", desc.Mux.String(), "error", err)
			} else {
				desc.LowLimit = &v
			}
		}
		if highKey, err := section.GetKey("HighLimit"); err == nil {
			v, err := strconv.ParseUint(strings.TrimSpace(highKey.Value()), 0, 64)
			if err != nil {
				_logger.Warn("error parsing HighLimit", "mux", desc.Mux.String(), "error", err)
			} else {
				desc.HighLimit = &v
			}
		}
	}

	return desc, nil
}

// canonicalName picks the constant- or signal-style rendering depending on
// access type, mirroring eds2vhdl.py:make_object's split between
// format_constant (const objects) and format_signal (everything else).
func canonicalName(access AccessType, name string) (string, error) {
	// Import cycle avoidance: od must not import plan/emit, but it may
	// import vhdlfmt, which sits lower in the dependency chain.
	if access == AccessConst {
		return bareConstantName(name)
	}
	return bareSignalName(name)
}
