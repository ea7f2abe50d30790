package emit

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

func TestWriteTPDOEmitsCyclicTrigger(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeTPDO(&buf, p, 1)
	out := buf.String()
	assert.Contains(t, out, "Tpdo1Interrupt")
	assert.Contains(t, out, "cyclic synchronous")
}

func TestWriteTPDOTiesLowWithoutCommRecord(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeTPDO(&buf, p, 2)
	assert.Contains(t, buf.String(), "Tpdo2Interrupt <= '0';")
}

func TestTPDOMappingsOrderingMatchesPlan(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	fields := p.TPDOMappings(1)
	if assert.Len(t, fields, 1) {
		assert.Equal(t, uint8(1), fields[0].SubIndex)
		assert.Equal(t, 8, fields[0].BitLength)
	}
}

// With 0x1007 (Synchronous Window Length) populated, the TPDO trigger
// process must actually count the window and cancel a pending interrupt
// once it elapses, not just log that cancellation happens elsewhere.
func TestWriteTPDOImplementsSyncWindowCancellation(t *testing.T) {
	dict, err := od.Parse("../../testdata/window.eds", 5)
	require.NoError(t, err)
	require.NoError(t, od.Validate(dict))
	p, err := plan.Build(dict, plan.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	writeTPDO(&buf, p, 1)
	out := buf.String()

	assert.Contains(t, out, "variable WindowCounter : natural := 0;")
	assert.Contains(t, out, "variable WindowElapsed : std_logic := '0';")
	assert.Contains(t, out, "WindowCounter := 0; WindowElapsed := '0';")
	assert.Contains(t, out, "Tpdo1Interrupt <= '0'; -- window elapsed: discard any event not yet dispatched")
	assert.NotContains(t, out, "null; -- window timer managed by the SYNC process")
}
