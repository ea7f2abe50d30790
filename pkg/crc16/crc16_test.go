package crc16

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingleByteOracle(t *testing.T) {
	var crc CRC16
	crc.Single(10)
	assert.EqualValues(t, 0xA14A, crc)
}

func TestBlockMatchesRepeatedSingle(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	var viaBlock CRC16
	viaBlock.Block(data)

	var viaSingle CRC16
	for _, b := range data {
		viaSingle.Single(b)
	}

	assert.Equal(t, viaSingle, viaBlock)
}

func TestOfIsZeroOnEmpty(t *testing.T) {
	assert.EqualValues(t, 0, Of(nil))
}

func TestSplitAccumulationMatchesWhole(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}

	var whole CRC16
	whole.Block(data)

	var split CRC16
	split.Block(data[:3])
	split.Block(data[3:])

	assert.Equal(t, whole, split)
}
