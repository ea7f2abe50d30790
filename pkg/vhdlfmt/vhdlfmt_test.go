package vhdlfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantName(t *testing.T) {
	name, err := ConstantName("Producer Heartbeat Time")
	require.NoError(t, err)
	assert.Equal(t, `\PRODUCER_HEARTBEAT_TIME\`, name)
}

func TestSignalName(t *testing.T) {
	name, err := SignalName("Producer Heartbeat Time")
	require.NoError(t, err)
	assert.Equal(t, `\ProducerHeartbeatTime\`, name)
}

func TestSignalNameHyphenated(t *testing.T) {
	name, err := BareSignalName("Low-Limit value")
	require.NoError(t, err)
	assert.Equal(t, "LowLimitValue", name)
}

func TestInvalidLeadingDigit(t *testing.T) {
	_, err := BareSignalName("1st Object")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestStrobeName(t *testing.T) {
	assert.Equal(t, `\DigitalOut0_strb\`, StrobeName("DigitalOut0"))
}

func TestLiteralAligned(t *testing.T) {
	assert.Equal(t, `x"2A"`, Literal(0x2A, 8))
}

func TestLiteralUnaligned(t *testing.T) {
	// 9 bits: 1 tail bit + 2 hex nibbles
	got := Literal(0x1FF, 9)
	assert.Equal(t, `b"1" & x"FF"`, got)
}

func TestLiteralZero(t *testing.T) {
	assert.Equal(t, "", Literal(0, 0))
	assert.Equal(t, `x"00"`, ZeroFill(8))
}
