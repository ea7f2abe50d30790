package emit

import (
	"bytes"
	"testing"

	"github.com/brutella/can"
	"github.com/stretchr/testify/assert"

	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

// TestBootupCobIdMatchesCanonicalHeartbeatBase builds a frame with the
// CAN library's can.Frame type from the well-known NMT error-control base
// (0x700, written here as a literal, not taken from the library or from
// this repository's own CanOpen constants) and checks the resulting ID
// and length.
func TestBootupCobIdMatchesCanonicalHeartbeatBase(t *testing.T) {
	const heartbeatBase = 0x700
	const nodeID = 5
	frame := can.Frame{ID: uint32(heartbeatBase + nodeID), Length: 1}
	frame.Data[0] = 0x00
	assert.Equal(t, uint32(0x705), frame.ID)
	assert.EqualValues(t, 1, frame.Length)
}

func TestWriteFrameLoaderInstantiatesCanController(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeFrameLoader(&buf, p)
	out := buf.String()
	assert.Contains(t, out, "CanBus.Controller")
	assert.Contains(t, out, "STATE_BOOTUP =>")
	assert.Contains(t, out, "STATE_SDO_TX =>")
}

func TestWriteFrameLoaderUsesCobIdSyncSignalWhenPresent(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeFrameLoader(&buf, p)
	assert.Contains(t, buf.String(), `\CobIdSync\`)
}

// The SDO-TX COB-ID offset must use VHDL-legal literal syntax: VHDL has no
// C-style "0x.." token, only "16#..#" or "x"..""
func TestWriteFrameLoaderSdoTxOffsetUsesVHDLLiteral(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeFrameLoader(&buf, p)
	out := buf.String()
	assert.Contains(t, out, "16#80#")
	assert.NotContains(t, out, "0x80")
}
