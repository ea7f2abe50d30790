package od

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testdataPath = "../../testdata/minimal.eds"

func TestParseMinimal(t *testing.T) {
	dict, err := Parse(testdataPath, 0x05)
	require.NoError(t, err)
	assert.Equal(t, 13, dict.Len())

	dt, ok := dict.Get(NewMux(0x1000, 0))
	require.True(t, ok)
	assert.Equal(t, AccessRO, dt.AccessType)
	assert.Equal(t, 32, dt.BitLength())

	ident, ok := dict.Get(NewMux(0x1018, 1))
	require.True(t, ok)
	assert.Equal(t, AccessConst, ident.AccessType)
	assert.Equal(t, uint64(0x12345678), ident.DefaultValue.Literal)
}

func TestParseNodeIDOffset(t *testing.T) {
	dict, err := Parse(testdataPath, 0x05)
	require.NoError(t, err)

	cobid, ok := dict.Get(NewMux(0x1800, 1))
	require.True(t, ok)
	require.NotNil(t, cobid.DefaultValue)
	assert.True(t, cobid.DefaultValue.NodeIDOffset)
	assert.Equal(t, uint64(0x180), cobid.DefaultValue.Literal)
}

func TestMuxesCanonicalOrder(t *testing.T) {
	dict, err := Parse(testdataPath, 0x05)
	require.NoError(t, err)
	muxes := dict.Muxes()
	for i := 1; i < len(muxes); i++ {
		assert.Less(t, muxes[i-1], muxes[i])
	}
}

func TestValidateMinimalPasses(t *testing.T) {
	dict, err := Parse(testdataPath, 0x05)
	require.NoError(t, err)
	assert.NoError(t, Validate(dict))
}

func TestValidateMissingMandatory(t *testing.T) {
	dict := NewObjectDictionary(1)
	err := Validate(dict)
	assert.ErrorIs(t, err, ErrMandatoryObjectMissing)
}

func TestHasSegmentedSDOFalseWithoutServer(t *testing.T) {
	dict, err := Parse(testdataPath, 0x05)
	require.NoError(t, err)
	assert.False(t, HasSegmentedSDO(dict))
}

func TestDecodeMappingEntry(t *testing.T) {
	mux, bits := decodeMappingEntry(0x20010008)
	assert.Equal(t, NewMux(0x2001, 0), mux)
	assert.Equal(t, 8, bits)
}
