package memimage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitHeaderAndByteCount(t *testing.T) {
	out, err := Emit([]byte{0x01, 0x02, 0x03}, 7, 0)
	require.NoError(t, err)
	lines := strings.Split(string(out), "\n")
	assert.Equal(t, "// Generated by canopen-vhdl memgen", lines[0])
	assert.Equal(t, "// 3 bytes valid", lines[1])
}

func TestEmitWordByteOrder(t *testing.T) {
	// A single 2-byte word: data[0]=0xAA, data[1]=0xBB. The record writes
	// the highest-offset byte first, so the hex word reads BBAA.
	out, err := Emit([]byte{0xAA, 0xBB}, 2, 0)
	require.NoError(t, err)
	assert.Contains(t, string(out), "BBAA")
}

func TestEmitPadsShortFinalWord(t *testing.T) {
	out, err := Emit([]byte{0x01}, 4, 0)
	require.NoError(t, err)
	assert.Contains(t, string(out), "00000001")
}

func TestEmitRejectsNonPositiveWordSize(t *testing.T) {
	_, err := Emit([]byte{0x01}, 0, 0)
	assert.Error(t, err)
}

func TestEmitWithZlibShrinksRepetitiveInput(t *testing.T) {
	data := bytesRepeat(0x00, 4096)
	plain, err := Emit(data, 7, 0)
	require.NoError(t, err)
	compressed, err := Emit(data, 7, 6)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(plain))
}

func TestAddressDigitsMatchesLog2Derivation(t *testing.T) {
	assert.Equal(t, 0, addressDigits(0))
	assert.Equal(t, 0, addressDigits(1))
	assert.Equal(t, 1, addressDigits(16))
	assert.Equal(t, 2, addressDigits(17))
}

func bytesRepeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
