package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

const testdataPath = "../../testdata/minimal.eds"

func loadPlan(t *testing.T, opts plan.Options) *plan.Plan {
	t.Helper()
	dict, err := od.Parse(testdataPath, 5)
	require.NoError(t, err)
	require.NoError(t, od.Validate(dict))
	p, err := plan.Build(dict, opts)
	require.NoError(t, err)
	return p
}

func TestGenerateIsDeterministic(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	cfg := Config{EntityName: "TestNode", ClockFrequencyHz: 50_000_000}

	first, err := Generate(p, cfg)
	require.NoError(t, err)
	second, err := Generate(p, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateRejectsZeroClock(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	_, err := Generate(p, Config{EntityName: "TestNode"})
	assert.Error(t, err)
}

func TestGenerateEmitsEntityAndArchitecture(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	out, err := Generate(p, Config{EntityName: "TestNode", ClockFrequencyHz: 50_000_000})
	require.NoError(t, err)

	assert.Contains(t, out, "entity TestNode is")
	assert.Contains(t, out, "architecture RTL of TestNode is")
	assert.Contains(t, out, "end architecture RTL;")
}

func TestGenerateIncludesOptionalPorts(t *testing.T) {
	p := loadPlan(t, plan.Options{Sync: true, Gfc: true, Timestamp: true})
	out, err := Generate(p, Config{EntityName: "TestNode", ClockFrequencyHz: 50_000_000})
	require.NoError(t, err)

	assert.Contains(t, out, `\Sync\`)
	assert.Contains(t, out, `\Gfc\`)
	assert.Contains(t, out, `\Timestamp\`)
}

func TestGenerateFoldsConstants(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	out, err := Generate(p, Config{EntityName: "TestNode", ClockFrequencyHz: 50_000_000})
	require.NoError(t, err)

	// 0x1018 sub1 VendorID is a const entry in the fixture.
	assert.True(t, strings.Contains(out, "constant"))
}

func TestGenerateOrdersEmissionSections(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	out, err := Generate(p, Config{EntityName: "TestNode", ClockFrequencyHz: 50_000_000})
	require.NoError(t, err)

	order := []string{
		"Node state machine",
		"Timer cascade",
		"SYNC producer/consumer",
		"EMCY: edge-detected error register dispatch",
		"Heartbeat producer",
		"TPDO1 trigger",
		"SDO server",
		"Object dictionary port wiring",
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		require.Greaterf(t, idx, last, "expected %q to appear after the previous section", marker)
		last = idx
	}
}
