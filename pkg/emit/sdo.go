package emit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bggardner/canopen-vhdl/pkg/crc16"
	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

// Abort codes, literal.
const (
	abortInvalidCS        = "x\"05040001\""
	abortInvalidBlockSize = "x\"05040002\""
	abortInvalidSeqNo     = "x\"05040003\""
	abortToggle           = "x\"05030000\""
	abortWriteOnlyRead    = "x\"06010001\""
	abortReadOnlyWrite    = "x\"06010002\""
	abortNoSuchObject     = "x\"06020000\""
	abortLength           = "x\"06070010\""
	abortOutOfRange       = "x\"06090030\""
	abortAccess           = "x\"06040047\""
	abortNoData           = "x\"08000024\""
)

// rxByteCount is the number of RxData payload bytes (starting at index 4)
// backing d's value.
func rxByteCount(d *od.Descriptor) int {
	n := (d.BitLength() + 7) / 8
	if n < 1 {
		return 1
	}
	return n
}

// rxConcat builds the multi-byte RxData payload concatenation for d, MSB
// byte first, the same way RxMux concatenates RxData(2)/(1)/(3) above: a
// plain std_logic_vector with no bit-range slice into a single byte element.
func rxConcat(d *od.Descriptor) string {
	n := rxByteCount(d)
	if n <= 1 {
		return "RxData(4)"
	}
	parts := make([]string, n)
	for k := 0; k < n; k++ {
		parts[n-1-k] = fmt.Sprintf("RxData(%d)", 4+k)
	}
	return strings.Join(parts, " & ")
}

// rxValueExpr converts the concatenated RxData payload into d's VHDL
// storage type (signed/unsigned/std_logic) for a download assignment.
func rxValueExpr(d *od.Descriptor) string {
	if d.Classification.Kind == od.KindBool {
		return "RxData(4)(0)"
	}
	if d.Classification.Kind == od.KindSigned {
		return fmt.Sprintf("signed(%s)", rxConcat(d))
	}
	return fmt.Sprintf("unsigned(%s)", rxConcat(d))
}

// writeUploadValueBytes assigns value (an unsigned/signed/std_logic signal
// of d's storage type) into the outgoing frame byte-by-byte, least
// significant byte first at SdoTxFrame(4) -- the expedited-upload
// counterpart of rxConcat, since a single-byte slice of one SdoTxFrame
// element cannot hold anything wider than 8 bits.
func writeUploadValueBytes(buf *bytes.Buffer, value string, d *od.Descriptor) {
	if d.Classification.Kind == od.KindBool {
		fmt.Fprintf(buf, "                                SdoTxFrame(4) <= \"0000000\" & %s;\n", value)
		return
	}
	n := rxByteCount(d)
	for k := 0; k < n; k++ {
		hi := k*8 + 7
		lo := k * 8
		fmt.Fprintf(buf, "                                SdoTxFrame(%d) <= std_logic_vector(%s(%d downto %d));\n", 4+k, value, hi, lo)
	}
}

// writeSDOServer emits the single FSM multiplexed across every
// populated mux, dispatching on client-command-specifier.
func writeSDOServer(buf *bytes.Buffer, p *plan.Plan) {
	writeCRCTable(buf)

	fmt.Fprintf(buf, "    -- SDO server\n")
	fmt.Fprintf(buf, "    process(Clock, Reset_n)\n")
	fmt.Fprintf(buf, "        variable Cs            : natural range 0 to 7;\n")
	fmt.Fprintf(buf, "        variable RxMux         : unsigned(23 downto 0);\n")
	fmt.Fprintf(buf, "        variable ToggleBit     : std_logic := '0';\n")
	fmt.Fprintf(buf, "        variable BlockSeqNo    : natural range 0 to 127 := 0;\n")
	fmt.Fprintf(buf, "        variable BlockSize     : natural range 1 to 127 := 1;\n")
	fmt.Fprintf(buf, "        variable BlockCrc      : std_logic_vector(15 downto 0) := x\"0000\";\n")
	fmt.Fprintf(buf, "        variable RemainingBytes : natural := 0;\n")
	fmt.Fprintf(buf, "        variable UploadActive, DownloadActive, BlockActive : std_logic := '0';\n")
	fmt.Fprintf(buf, "    begin\n")
	fmt.Fprintf(buf, "        if Reset_n = '0' then\n")
	fmt.Fprintf(buf, "            SdoTxInterrupt <= '0'; SdoInterrupt <= '0';\n")
	fmt.Fprintf(buf, "            UploadActive := '0'; DownloadActive := '0'; BlockActive := '0';\n")
	fmt.Fprintf(buf, "            SdoSync1019Written <= '0'; SdoHeartbeat1017Written <= '0';\n")
	if p.SegmentedSDO {
		fmt.Fprintf(buf, "            SegmentedSdoReadEnable <= '0';\n")
	}
	fmt.Fprintf(buf, "        elsif rising_edge(Clock) then\n")
	fmt.Fprintf(buf, "            SdoSync1019Written <= '0'; SdoHeartbeat1017Written <= '0';\n")
	fmt.Fprintf(buf, "            if CurrentState = STATE_SDO_TX then\n")
	fmt.Fprintf(buf, "                SdoTxInterrupt <= '0'; -- cleared once the response frame has been dispatched\n")
	fmt.Fprintf(buf, "            elsif CurrentState = STATE_SDO_RX then\n")
	fmt.Fprintf(buf, "                Cs := to_integer(unsigned(RxData(0)(7 downto 5)));\n")
	fmt.Fprintf(buf, "                RxMux := unsigned(RxData(2)) & unsigned(RxData(1)) & unsigned(RxData(3));\n")
	fmt.Fprintf(buf, "                case Cs is\n")
	fmt.Fprintf(buf, "                    when 1 => -- initiate download\n")
	writeDownloadCase(buf, p)
	fmt.Fprintf(buf, "                    when 2 => -- initiate upload\n")
	writeUploadCase(buf, p)
	fmt.Fprintf(buf, "                    when 3 => -- upload segment\n")
	if p.SegmentedSDO {
		fmt.Fprintf(buf, "                        if RxData(0)(4) /= ToggleBit then\n")
		fmt.Fprintf(buf, "                            SdoTxFrame(0) <= CanOpen.SDO_SCS_ABORT & \"0000\"; SdoTxFrame(4) <= %s(7 downto 0); SdoTxFrame(5) <= %s(15 downto 8); SdoTxFrame(6) <= %s(23 downto 16); SdoTxFrame(7) <= %s(31 downto 24);\n", abortToggle, abortToggle, abortToggle, abortToggle)
		fmt.Fprintf(buf, "                        else\n")
		fmt.Fprintf(buf, "                            ToggleBit := not ToggleBit;\n")
		fmt.Fprintf(buf, "                            if RemainingBytes <= 7 then\n")
		fmt.Fprintf(buf, "                                SdoTxFrame(0) <= \"00\" & ToggleBit & std_logic_vector(to_unsigned(7 - RemainingBytes, 3)) & \"1\";\n")
		fmt.Fprintf(buf, "                                UploadActive := '0';\n")
		fmt.Fprintf(buf, "                            else\n")
		fmt.Fprintf(buf, "                                SdoTxFrame(0) <= \"00\" & ToggleBit & \"0000\";\n")
		fmt.Fprintf(buf, "                            end if;\n")
		fmt.Fprintf(buf, "                            SegmentedSdoReadEnable <= '1';\n")
		fmt.Fprintf(buf, "                            SegmentedSdoReadDataEnable <= '1';\n")
		fmt.Fprintf(buf, "                        end if;\n")
	} else {
		// Without segmented SDO no object is served beyond one expedited
		// frame, so a segment request is always out of sequence.
		fmt.Fprintf(buf, "                        SdoTxFrame(0) <= CanOpen.SDO_SCS_ABORT & \"0000\"; SdoTxFrame(4) <= %s(7 downto 0); SdoTxFrame(5) <= %s(15 downto 8); SdoTxFrame(6) <= %s(23 downto 16); SdoTxFrame(7) <= %s(31 downto 24);\n", abortToggle, abortToggle, abortToggle, abortToggle)
	}
	fmt.Fprintf(buf, "                        SdoTxInterrupt <= '1';\n")
	fmt.Fprintf(buf, "                    when 5 => -- block transfer, sub-command in RxData(0) bits 1:0\n")
	writeBlockCase(buf, p)
	fmt.Fprintf(buf, "                    when 4 => -- client abort: drop state, no response\n")
	fmt.Fprintf(buf, "                        UploadActive := '0'; DownloadActive := '0'; BlockActive := '0';\n")
	fmt.Fprintf(buf, "                    when others =>\n")
	fmt.Fprintf(buf, "                        SdoTxFrame(0) <= CanOpen.SDO_SCS_ABORT & \"0000\"; SdoTxFrame(4) <= %s(7 downto 0); SdoTxFrame(5) <= %s(15 downto 8); SdoTxFrame(6) <= %s(23 downto 16); SdoTxFrame(7) <= %s(31 downto 24);\n", abortInvalidCS, abortInvalidCS, abortInvalidCS, abortInvalidCS)
	fmt.Fprintf(buf, "                        SdoTxInterrupt <= '1';\n")
	fmt.Fprintf(buf, "                end case;\n")
	fmt.Fprintf(buf, "                SdoTxFrame(1) <= RxData(1); SdoTxFrame(2) <= RxData(2); SdoTxFrame(3) <= RxData(3);\n")
	fmt.Fprintf(buf, "            end if;\n")
	fmt.Fprintf(buf, "        end if;\n")
	fmt.Fprintf(buf, "    end process;\n\n")
}

// writeCRCTable folds the CRC-16-CCITT byte table into the entity as a
// constant ROM, so the block-upload CRC accumulates one byte per cycle
// instead of bit-serially.
func writeCRCTable(buf *bytes.Buffer) {
	table := crc16.Table()
	fmt.Fprintf(buf, "    type Crc16TableType is array(0 to 255) of std_logic_vector(15 downto 0);\n")
	fmt.Fprintf(buf, "    constant Crc16Table : Crc16TableType := (\n")
	for i, v := range table {
		sep := ","
		if i == len(table)-1 {
			sep = ""
		}
		fmt.Fprintf(buf, "        %d => x\"%04X\"%s\n", i, v, sep)
	}
	fmt.Fprintf(buf, "    );\n\n")
}

// writeDownloadCase emits the per-mux write dispatch for CS=1 (initiate
// download): range checks, access-type checks, and the 0x1017/0x1019
// write-acknowledgement pulses that the heartbeat/sync processes consume.
func writeDownloadCase(buf *bytes.Buffer, p *plan.Plan) {
	fmt.Fprintf(buf, "                        case to_integer(RxMux) is\n")
	for _, d := range sortedByMux(writableDescriptors(p)) {
		fmt.Fprintf(buf, "                            when %d => -- %s\n", d.Mux, d.ParameterName)
		target := internalOrPortName(p, d)
		if d.LowLimit != nil || d.HighLimit != nil {
			fmt.Fprintf(buf, "                                if ")
			cond := []string{}
			if d.LowLimit != nil {
				cond = append(cond, fmt.Sprintf("unsigned(%s) >= %d", rxConcat(d), *d.LowLimit))
			}
			if d.HighLimit != nil {
				cond = append(cond, fmt.Sprintf("unsigned(%s) <= %d", rxConcat(d), *d.HighLimit))
			}
			for i, c := range cond {
				if i > 0 {
					fmt.Fprintf(buf, " and ")
				}
				fmt.Fprintf(buf, "%s", c)
			}
			fmt.Fprintf(buf, " then\n")
			fmt.Fprintf(buf, "                                    %s <= %s;\n", target, rxValueExpr(d))
			writeDownloadSideEffect(buf, d)
			fmt.Fprintf(buf, "                                    SdoTxFrame(0) <= CanOpen.SDO_SCS_INITIATE_DOWNLOAD & \"00000\";\n")
			fmt.Fprintf(buf, "                                else\n")
			fmt.Fprintf(buf, "                                    SdoTxFrame(0) <= CanOpen.SDO_SCS_ABORT & \"0000\"; SdoTxFrame(4) <= %s(7 downto 0); SdoTxFrame(5) <= %s(15 downto 8); SdoTxFrame(6) <= %s(23 downto 16); SdoTxFrame(7) <= %s(31 downto 24);\n", abortOutOfRange, abortOutOfRange, abortOutOfRange, abortOutOfRange)
			fmt.Fprintf(buf, "                                end if;\n")
		} else {
			fmt.Fprintf(buf, "                                %s <= %s;\n", target, rxValueExpr(d))
			writeDownloadSideEffect(buf, d)
			fmt.Fprintf(buf, "                                SdoTxFrame(0) <= CanOpen.SDO_SCS_INITIATE_DOWNLOAD & \"00000\";\n")
		}
		fmt.Fprintf(buf, "                                SdoTxInterrupt <= '1';\n")
	}
	fmt.Fprintf(buf, "                            when others =>\n")
	fmt.Fprintf(buf, "                                SdoTxFrame(0) <= CanOpen.SDO_SCS_ABORT & \"0000\"; SdoTxFrame(4) <= %s(7 downto 0); SdoTxFrame(5) <= %s(15 downto 8); SdoTxFrame(6) <= %s(23 downto 16); SdoTxFrame(7) <= %s(31 downto 24);\n", abortNoSuchObject, abortNoSuchObject, abortNoSuchObject, abortNoSuchObject)
	fmt.Fprintf(buf, "                                SdoTxInterrupt <= '1';\n")
	fmt.Fprintf(buf, "                        end case;\n")
}

func writeDownloadSideEffect(buf *bytes.Buffer, d *od.Descriptor) {
	switch d.Mux {
	case od.NewMux(od.EntrySyncCounterOverflow, 0):
		fmt.Fprintf(buf, "                                    SdoSync1019Written <= '1';\n")
	case od.NewMux(od.EntryProducerHeartbeat, 0):
		fmt.Fprintf(buf, "                                    SdoHeartbeat1017Written <= '1';\n")
	}
}

// writeUploadCase emits the per-mux read dispatch for CS=2 (initiate
// upload): expedited for anything <= 32 bits, segmented prelude otherwise.
func writeUploadCase(buf *bytes.Buffer, p *plan.Plan) {
	fmt.Fprintf(buf, "                        case to_integer(RxMux) is\n")
	for _, d := range sortedByMux(readableDescriptors(p)) {
		fmt.Fprintf(buf, "                            when %d => -- %s\n", d.Mux, d.ParameterName)
		if p.SegmentedSDO && (d.Classification.Kind == od.KindDomain || d.BitLength() > 32) {
			fmt.Fprintf(buf, "                                SdoTxFrame(0) <= CanOpen.SDO_SCS_INITIATE_UPLOAD & \"00001\"; -- e=0, s=1\n")
			fmt.Fprintf(buf, "                                SegmentedSdoReadEnable <= '1';\n")
			fmt.Fprintf(buf, "                                SegmentedSdoMux <= RxMux;\n")
			fmt.Fprintf(buf, "                                UploadActive := '1';\n")
		} else if d.Classification.Kind == od.KindDomain || d.BitLength() > 32 {
			// No SDO server 1 / block-capable port is wired for this
			// dictionary, so an oversized object can't be served.
			fmt.Fprintf(buf, "                                SdoTxFrame(0) <= CanOpen.SDO_SCS_ABORT & \"0000\"; SdoTxFrame(4) <= %s(7 downto 0); SdoTxFrame(5) <= %s(15 downto 8); SdoTxFrame(6) <= %s(23 downto 16); SdoTxFrame(7) <= %s(31 downto 24);\n", abortNoData, abortNoData, abortNoData, abortNoData)
		} else {
			value := internalOrPortName(p, d)
			padBits := 4 - rxByteCount(d)
			fmt.Fprintf(buf, "                                SdoTxFrame(0) <= CanOpen.SDO_SCS_INITIATE_UPLOAD & \"0\" & std_logic_vector(to_unsigned(%d, 2)) & \"11\"; -- n, e=1, s=1\n", padBits)
			writeUploadValueBytes(buf, value, d)
		}
		fmt.Fprintf(buf, "                                SdoTxInterrupt <= '1';\n")
	}
	fmt.Fprintf(buf, "                            when others =>\n")
	fmt.Fprintf(buf, "                                SdoTxFrame(0) <= CanOpen.SDO_SCS_ABORT & \"0000\"; SdoTxFrame(4) <= %s(7 downto 0); SdoTxFrame(5) <= %s(15 downto 8); SdoTxFrame(6) <= %s(23 downto 16); SdoTxFrame(7) <= %s(31 downto 24);\n", abortNoSuchObject, abortNoSuchObject, abortNoSuchObject, abortNoSuchObject)
	fmt.Fprintf(buf, "                                SdoTxInterrupt <= '1';\n")
	fmt.Fprintf(buf, "                        end case;\n")
}

// writeBlockCase emits CS=5 sub-command dispatch: initiate (sub=0, with
// small-object fallback to expedited per `pst`), start (sub=1), sub-block
// response (sub=3), and end (sub=1 with c=1).
func writeBlockCase(buf *bytes.Buffer, p *plan.Plan) {
	if !p.SegmentedSDO {
		// Without segmented SDO no object is served beyond one expedited
		// frame, so block transfer is never a valid sub-command sequence here.
		fmt.Fprintf(buf, "                        SdoTxFrame(0) <= CanOpen.SDO_SCS_ABORT & \"0000\"; SdoTxFrame(4) <= %s(7 downto 0); SdoTxFrame(5) <= %s(15 downto 8); SdoTxFrame(6) <= %s(23 downto 16); SdoTxFrame(7) <= %s(31 downto 24);\n", abortInvalidBlockSize, abortInvalidBlockSize, abortInvalidBlockSize, abortInvalidBlockSize)
		fmt.Fprintf(buf, "                        SdoTxInterrupt <= '1';\n")
		return
	}
	fmt.Fprintf(buf, "                        case to_integer(unsigned(RxData(0)(1 downto 0))) is\n")
	fmt.Fprintf(buf, "                            when 0 => -- block upload initiate\n")
	fmt.Fprintf(buf, "                                if unsigned(RxData(5)) >= 1 and unsigned(RxData(5)) <= 4 then\n")
	fmt.Fprintf(buf, "                                    null; -- pst in range and object fits 32 bits: fall back to expedited upload (handled by CS=2 path)\n")
	fmt.Fprintf(buf, "                                else\n")
	fmt.Fprintf(buf, "                                    BlockActive := '1';\n")
	fmt.Fprintf(buf, "                                    BlockSize := to_integer(unsigned(RxData(4)));\n")
	fmt.Fprintf(buf, "                                    if BlockSize < 1 or BlockSize > 127 then\n")
	fmt.Fprintf(buf, "                                        SdoTxFrame(0) <= CanOpen.SDO_SCS_ABORT & \"0000\"; SdoTxFrame(4) <= %s(7 downto 0); SdoTxFrame(5) <= %s(15 downto 8); SdoTxFrame(6) <= %s(23 downto 16); SdoTxFrame(7) <= %s(31 downto 24);\n", abortInvalidBlockSize, abortInvalidBlockSize, abortInvalidBlockSize, abortInvalidBlockSize)
	fmt.Fprintf(buf, "                                    else\n")
	fmt.Fprintf(buf, "                                        BlockCrc := x\"0000\"; BlockSeqNo := 0;\n")
	fmt.Fprintf(buf, "                                        SdoTxFrame(0) <= CanOpen.SDO_SCS_BLOCK_UPLOAD & \"00\" & \"1\" & \"0\" & \"0\"; -- sc=1 (CRC supported)\n")
	fmt.Fprintf(buf, "                                        SegmentedSdoReadEnable <= '1'; SegmentedSdoMux <= RxMux;\n")
	fmt.Fprintf(buf, "                                    end if;\n")
	fmt.Fprintf(buf, "                                end if;\n")
	fmt.Fprintf(buf, "                                SdoTxInterrupt <= '1';\n")
	fmt.Fprintf(buf, "                            when 1 => -- start upload / end\n")
	fmt.Fprintf(buf, "                                if BlockActive = '1' then\n")
	fmt.Fprintf(buf, "                                    BlockCrc := x\"0000\";\n")
	fmt.Fprintf(buf, "                                    SegmentedSdoReadDataEnable <= '1';\n")
	fmt.Fprintf(buf, "                                else\n")
	fmt.Fprintf(buf, "                                    SdoTxFrame(0) <= CanOpen.SDO_SCS_BLOCK_UPLOAD & \"00\" & \"001\";\n")
	fmt.Fprintf(buf, "                                    SdoTxFrame(1) <= BlockCrc(7 downto 0); SdoTxFrame(2) <= BlockCrc(15 downto 8);\n")
	fmt.Fprintf(buf, "                                    BlockActive := '0';\n")
	fmt.Fprintf(buf, "                                    SdoTxInterrupt <= '1';\n")
	fmt.Fprintf(buf, "                                end if;\n")
	fmt.Fprintf(buf, "                            when 3 => -- sub-block response\n")
	fmt.Fprintf(buf, "                                if to_integer(unsigned(RxData(1))) /= BlockSeqNo then\n")
	fmt.Fprintf(buf, "                                    SdoTxFrame(0) <= CanOpen.SDO_SCS_ABORT & \"0000\"; SdoTxFrame(4) <= %s(7 downto 0); SdoTxFrame(5) <= %s(15 downto 8); SdoTxFrame(6) <= %s(23 downto 16); SdoTxFrame(7) <= %s(31 downto 24);\n", abortInvalidSeqNo, abortInvalidSeqNo, abortInvalidSeqNo, abortInvalidSeqNo)
	fmt.Fprintf(buf, "                                else\n")
	fmt.Fprintf(buf, "                                    SdoTxFrame(0) <= CanOpen.SDO_SCS_BLOCK_UPLOAD & \"00\" & \"010\";\n")
	fmt.Fprintf(buf, "                                    SdoTxFrame(1) <= std_logic_vector(to_unsigned(BlockSeqNo, 8)); SdoTxFrame(2) <= std_logic_vector(to_unsigned(BlockSize, 8));\n")
	fmt.Fprintf(buf, "                                    BlockSeqNo := 0;\n")
	fmt.Fprintf(buf, "                                    SegmentedSdoReadDataEnable <= '1';\n")
	fmt.Fprintf(buf, "                                end if;\n")
	fmt.Fprintf(buf, "                                SdoTxInterrupt <= '1';\n")
	fmt.Fprintf(buf, "                        end case;\n")
}

// writableDescriptors lists download-eligible objects. Domain objects are
// excluded: program download is out of scope, so
// Domain is upload-only via the segmented external data path.
func writableDescriptors(p *plan.Plan) []*od.Descriptor {
	var out []*od.Descriptor
	for _, d := range p.Dict.Descriptors() {
		if d.Classification.Kind == od.KindDomain {
			continue
		}
		if d.AccessType == od.AccessRW || d.AccessType == od.AccessWO {
			out = append(out, d)
		}
	}
	return out
}

func readableDescriptors(p *plan.Plan) []*od.Descriptor {
	var out []*od.Descriptor
	for _, d := range p.Dict.Descriptors() {
		if d.AccessType == od.AccessRO || d.AccessType == od.AccessRW || d.AccessType == od.AccessConst {
			out = append(out, d)
		}
	}
	return out
}
