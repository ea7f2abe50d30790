package emit

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bggardner/canopen-vhdl/pkg/crc16"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

func TestWriteSDOServerDispatchesEveryClientCommand(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeSDOServer(&buf, p)
	out := buf.String()
	assert.Contains(t, out, "when 1 => -- initiate download")
	assert.Contains(t, out, "when 2 => -- initiate upload")
	assert.Contains(t, out, "when 3 => -- upload segment")
	assert.Contains(t, out, "when 5 => -- block transfer")
	assert.Contains(t, out, "when 4 => -- client abort")
}

func TestWriteSDOServerEmitsAbortCodes(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeSDOServer(&buf, p)
	out := buf.String()
	assert.Contains(t, out, abortNoSuchObject)
	assert.Contains(t, out, abortOutOfRange)
	assert.Contains(t, out, abortInvalidBlockSize)
}

func TestCRCTableMatchesAccumulator(t *testing.T) {
	table := crc16.Table()
	var acc crc16.CRC16
	acc.Single(0x10)
	assert.EqualValues(t, table[0x10], uint16(acc))
}

func TestWriteCRCTableEmitsAllEntries(t *testing.T) {
	var buf bytes.Buffer
	writeCRCTable(&buf)
	out := buf.String()
	assert.Contains(t, out, "Crc16TableType")
	assert.Contains(t, out, "255 =>")
}

// Without a 0x1200sub1/Domain object, no segmented-SDO port exists, so the
// server must never reference one.
func TestWriteSDOServerOmitsSegmentedSignalsWithoutSegmentedSDO(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	assert.False(t, p.SegmentedSDO)
	var buf bytes.Buffer
	writeSDOServer(&buf, p)
	out := buf.String()
	assert.NotContains(t, out, "SegmentedSdoReadEnable")
	assert.NotContains(t, out, "SegmentedSdoMux")
	assert.NotContains(t, out, "SegmentedSdoReadDataEnable")
}

// 0x1000 (Device Type) is UNSIGNED32/ro and present in every EDS. Expedited
// upload must move it through SdoTxFrame one byte per array element, never
// a multi-bit slice of a single element.
func TestWriteUploadCaseSplitsWideValueAcrossFrameBytes(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeUploadCase(&buf, p)
	out := buf.String()
	assert.Contains(t, out, "SdoTxFrame(4) <= std_logic_vector(")
	assert.Contains(t, out, "SdoTxFrame(5) <= std_logic_vector(")
	assert.Contains(t, out, "SdoTxFrame(6) <= std_logic_vector(")
	assert.Contains(t, out, "SdoTxFrame(7) <= std_logic_vector(")
	assert.NotContains(t, out, "SdoTxFrame(4)(31 downto 0)")
	assert.NotContains(t, out, "SdoTxFrame(4)(15 downto 0)")
}

// 0x1017 (Producer Heartbeat Time) is UNSIGNED16/rw with no limits, so it
// takes the unconditional download-assignment branch; the write target must
// be fed from a two-byte concatenation of RxData, not a bit-range slice of
// RxData(4) alone.
func TestWriteDownloadCaseConcatenatesWideValueFromFrameBytes(t *testing.T) {
	p := loadPlan(t, plan.Options{})
	var buf bytes.Buffer
	writeDownloadCase(&buf, p)
	out := buf.String()
	assert.Contains(t, out, "unsigned(RxData(5) & RxData(4))")
	assert.NotContains(t, out, "RxData(4)(15 downto 0)")
}
