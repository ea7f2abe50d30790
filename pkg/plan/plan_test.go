package plan

import (
	"testing"

	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadMinimal(t *testing.T) *od.ObjectDictionary {
	t.Helper()
	dict, err := od.Parse("../../testdata/minimal.eds", 5)
	require.NoError(t, err)
	require.NoError(t, od.Validate(dict))
	return dict
}

func TestBuildPromotesManufacturerObjects(t *testing.T) {
	dict := loadMinimal(t)
	p, err := Build(dict, Options{})
	require.NoError(t, err)

	var names []string
	for _, port := range p.Ports {
		names = append(names, port.BareName)
	}
	assert.Contains(t, names, "DigitalOut0")
	assert.Contains(t, names, "RelayStrobe")
	assert.Contains(t, names, "RelayStrobe_strb")
}

func TestBuildCommProfileNotPromoted(t *testing.T) {
	dict := loadMinimal(t)
	p, err := Build(dict, Options{})
	require.NoError(t, err)

	for _, port := range p.Ports {
		assert.NotEqual(t, "ProducerHeartbeatTime", port.BareName)
	}
	var sawInternal bool
	for _, d := range p.InternalSignals {
		if d.CanonicalName == "ProducerHeartbeatTime" {
			sawInternal = true
		}
	}
	assert.True(t, sawInternal)
}

func TestBuildForcedPort(t *testing.T) {
	dict := loadMinimal(t)
	p, err := Build(dict, Options{ExtraPorts: []od.Mux{od.NewMux(0x1017, 0)}})
	require.NoError(t, err)

	var found bool
	for _, port := range p.Ports {
		if port.BareName == "ProducerHeartbeatTime" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTPDOMappings(t *testing.T) {
	dict := loadMinimal(t)
	p, err := Build(dict, Options{})
	require.NoError(t, err)

	fields := p.TPDOMappings(1)
	require.Len(t, fields, 1)
	assert.Equal(t, uint8(1), fields[0].SubIndex)
	assert.Equal(t, 8, fields[0].BitLength)
	assert.Equal(t, "DigitalOut0", fields[0].Target.CanonicalName)
}

func TestOptionalPortOrder(t *testing.T) {
	dict := loadMinimal(t)
	p, err := Build(dict, Options{Sync: true, Gfc: true, Timestamp: true})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(p.Ports), 3)
	assert.Equal(t, "Timestamp", p.Ports[0].BareName)
	assert.Equal(t, "Gfc", p.Ports[1].BareName)
	assert.Equal(t, "Sync", p.Ports[2].BareName)
}
