package emit

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

func TestWriteRPDOTimeoutsTiesStatusLowWithoutAnyRPDO(t *testing.T) {
	// The fixture has no 0x1400-range comm records at all.
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeRPDOTimeouts(&buf, p)
	assert.Contains(t, buf.String(), "EventTimerError_ob <= '0';")
}

func TestRpdoTimeoutCountMatchesDeclaredSignals(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	assert.Equal(t, 0, rpdoTimeoutCount(p))
}
