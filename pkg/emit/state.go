package emit

import (
	"bytes"
	"fmt"

	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

// writeStateMachine emits the top-level node FSM: the
// sequential state register and the combinational next-state table.
// States follow the sequence RESET -> RESET_APP ->
// RESET_COMM -> BOOTUP -> BOOTUP_WAIT -> IDLE, with emit-states routing
// through CAN_TX_STROBE/CAN_TX_WAIT and the receive path through
// CAN_RX_STROBE/CAN_RX_READ, exactly as eds2vhdl.py's
// STATE_* table describes.
func writeStateMachine(buf *bytes.Buffer, p *plan.Plan, cfg Config) {
	fmt.Fprintf(buf, "    -- Node state machine\n")
	fmt.Fprintf(buf, "    process(Clock, Reset_n)\n")
	fmt.Fprintf(buf, "    begin\n")
	fmt.Fprintf(buf, "        if Reset_n = '0' then\n")
	fmt.Fprintf(buf, "            CurrentState <= STATE_RESET;\n")
	fmt.Fprintf(buf, "        elsif rising_edge(Clock) then\n")
	fmt.Fprintf(buf, "            CurrentState <= NextState;\n")
	fmt.Fprintf(buf, "        end if;\n")
	fmt.Fprintf(buf, "    end process;\n\n")

	fmt.Fprintf(buf, "    process(all)\n")
	fmt.Fprintf(buf, "    begin\n")
	fmt.Fprintf(buf, "        case CurrentState is\n")

	fmt.Fprintf(buf, "            when STATE_RESET => -- power-on\n")
	fmt.Fprintf(buf, "                NextState <= STATE_RESET_APP;\n")

	fmt.Fprintf(buf, "            when STATE_RESET_APP => -- service reset node: manufacturer rw/wo to defaults\n")
	fmt.Fprintf(buf, "                NextState <= STATE_RESET_COMM;\n")

	fmt.Fprintf(buf, "            when STATE_RESET_COMM => -- service reset communication: comm rw to defaults, latch NodeId\n")
	fmt.Fprintf(buf, "                if CanStatus_ib /= CanBus.STATE_RESET and CanStatus_ib /= CanBus.STATE_BUS_OFF")
	fmt.Fprintf(buf, " and NodeId /= CanOpen.BROADCAST_NODE_ID then\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_BOOTUP;\n")
	fmt.Fprintf(buf, "                else\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_RESET_COMM;\n")
	fmt.Fprintf(buf, "                end if;\n")

	fmt.Fprintf(buf, "            when STATE_BOOTUP => -- emit the 1-byte 0x00 bootup frame\n")
	fmt.Fprintf(buf, "                NextState <= STATE_CAN_TX_STROBE;\n")

	fmt.Fprintf(buf, "            when STATE_BOOTUP_WAIT =>\n")
	fmt.Fprintf(buf, "                if TxAck = '1' then\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_IDLE;\n")
	fmt.Fprintf(buf, "                else\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_BOOTUP_WAIT;\n")
	fmt.Fprintf(buf, "                end if;\n")

	writeIdleArbitration(buf, p)

	for _, s := range []string{"STATE_SYNC", "STATE_EMCY", "STATE_TPDO1", "STATE_TPDO2", "STATE_TPDO3", "STATE_TPDO4", "STATE_SDO_TX", "STATE_HEARTBEAT"} {
		fmt.Fprintf(buf, "            when %s =>\n", s)
		fmt.Fprintf(buf, "                NextState <= STATE_CAN_TX_STROBE;\n")
	}

	fmt.Fprintf(buf, "            when STATE_CAN_TX_STROBE =>\n")
	fmt.Fprintf(buf, "                NextState <= STATE_CAN_TX_WAIT;\n")

	fmt.Fprintf(buf, "            when STATE_CAN_TX_WAIT => -- wait for the CAN controller to accept the frame\n")
	fmt.Fprintf(buf, "                if TxAck = '1' then\n")
	fmt.Fprintf(buf, "                    if NmtState_ob = CanOpen.NMT_STATE_INITIALISATION then\n")
	fmt.Fprintf(buf, "                        NextState <= STATE_BOOTUP_WAIT;\n")
	fmt.Fprintf(buf, "                    else\n")
	fmt.Fprintf(buf, "                        NextState <= STATE_IDLE;\n")
	fmt.Fprintf(buf, "                    end if;\n")
	fmt.Fprintf(buf, "                else\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_CAN_TX_WAIT;\n")
	fmt.Fprintf(buf, "                end if;\n")

	fmt.Fprintf(buf, "            when STATE_CAN_RX_STROBE => -- load message from the CAN controller\n")
	fmt.Fprintf(buf, "                NextState <= STATE_CAN_RX_READ;\n")

	writeRxRead(buf)

	fmt.Fprintf(buf, "            when STATE_SDO_RX =>\n")
	fmt.Fprintf(buf, "                NextState <= STATE_IDLE;\n")

	fmt.Fprintf(buf, "            when others =>\n")
	fmt.Fprintf(buf, "                NextState <= STATE_RESET;\n")

	fmt.Fprintf(buf, "        end case;\n")
	fmt.Fprintf(buf, "    end process;\n\n")

	writeNmtStateRegister(buf, p)
}

// writeIdleArbitration emits the IDLE-state priority table:
// pending RX beats every transmit interrupt; SYNC/EMCY/HEARTBEAT are
// gated by NmtState in {PRE-OPERATIONAL, OPERATIONAL}; TPDOs additionally
// require OPERATIONAL.
func writeIdleArbitration(buf *bytes.Buffer, p *plan.Plan) {
	fmt.Fprintf(buf, "            when STATE_IDLE =>\n")
	fmt.Fprintf(buf, "                if CanStatus_ib = CanBus.STATE_RESET or CanStatus_ib = CanBus.STATE_BUS_OFF then\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_IDLE;\n")
	fmt.Fprintf(buf, "                elsif RxFifoEmpty = '0' then\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_CAN_RX_STROBE;\n")
	fmt.Fprintf(buf, "                elsif EmcyInterrupt = '1' and (NmtState_ob = CanOpen.NMT_STATE_PREOPERATIONAL or NmtState_ob = CanOpen.NMT_STATE_OPERATIONAL) then\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_EMCY;\n")
	fmt.Fprintf(buf, "                elsif SyncInterrupt = '1' and (NmtState_ob = CanOpen.NMT_STATE_PREOPERATIONAL or NmtState_ob = CanOpen.NMT_STATE_OPERATIONAL) then\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_SYNC;\n")
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(buf, "                elsif Tpdo%dInterrupt = '1' and NmtState_ob = CanOpen.NMT_STATE_OPERATIONAL then\n", i)
		fmt.Fprintf(buf, "                    NextState <= STATE_TPDO%d;\n", i)
	}
	fmt.Fprintf(buf, "                elsif SdoTxInterrupt = '1' then\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_SDO_TX;\n")
	fmt.Fprintf(buf, "                elsif HeartbeatInterrupt = '1' and (NmtState_ob = CanOpen.NMT_STATE_PREOPERATIONAL or NmtState_ob = CanOpen.NMT_STATE_OPERATIONAL) then\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_HEARTBEAT;\n")
	fmt.Fprintf(buf, "                else\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_IDLE;\n")
	fmt.Fprintf(buf, "                end if;\n")
}

// writeRxRead emits the receive-path dispatch: NMT commands route to
// RESET_APP/RESET_COMM; SDO server requests route to SDO_RX; everything
// else returns to IDLE.
func writeRxRead(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "            when STATE_CAN_RX_READ =>\n")
	fmt.Fprintf(buf, "                if RxCobId = CanOpen.NMT_SERVICE_ID and (RxData(1) = std_logic_vector(NodeId) or RxData(1) = x\"00\") then\n")
	fmt.Fprintf(buf, "                    case RxData(0) is\n")
	fmt.Fprintf(buf, "                        when x\"81\" => NextState <= STATE_RESET_APP;\n")
	fmt.Fprintf(buf, "                        when x\"82\" => NextState <= STATE_RESET_COMM;\n")
	fmt.Fprintf(buf, "                        when others => NextState <= STATE_IDLE;\n")
	fmt.Fprintf(buf, "                    end case;\n")
	fmt.Fprintf(buf, "                elsif RxCobId = CanOpen.SDO_SERVER_BASE_ID + resize(NodeId, 11) and RxDlc = 8 then\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_SDO_RX;\n")
	fmt.Fprintf(buf, "                else\n")
	fmt.Fprintf(buf, "                    NextState <= STATE_IDLE;\n")
	fmt.Fprintf(buf, "                end if;\n")
}

// writeNmtStateRegister emits the NMT state register transition process:
// NMT remote control commands, the bootup-to-PRE-OPERATIONAL
// (or OPERATIONAL, per 0x1F80 bit 3) transition, and the communication/
// generic-error-driven transitions overridden by 0x1029 (supplemented in
// nmt.go).
func writeNmtStateRegister(buf *bytes.Buffer, p *plan.Plan) {
	fmt.Fprintf(buf, "    process(Clock, Reset_n)\n")
	fmt.Fprintf(buf, "    begin\n")
	fmt.Fprintf(buf, "        if Reset_n = '0' then\n")
	fmt.Fprintf(buf, "            NmtState_ob <= CanOpen.NMT_STATE_INITIALISATION;\n")
	fmt.Fprintf(buf, "        elsif rising_edge(Clock) then\n")
	fmt.Fprintf(buf, "            case CurrentState is\n")
	fmt.Fprintf(buf, "                when STATE_RESET_COMM =>\n")
	fmt.Fprintf(buf, "                    NmtState_ob <= CanOpen.NMT_STATE_INITIALISATION;\n")
	fmt.Fprintf(buf, "                when STATE_CAN_TX_WAIT =>\n")
	fmt.Fprintf(buf, "                    if NmtState_ob = CanOpen.NMT_STATE_INITIALISATION and TxAck = '1' then\n")
	if nmtStartupDirectToOperational(p) {
		fmt.Fprintf(buf, "                        NmtState_ob <= CanOpen.NMT_STATE_OPERATIONAL; -- 0x1F80 bit 3 set\n")
	} else {
		fmt.Fprintf(buf, "                        NmtState_ob <= CanOpen.NMT_STATE_PREOPERATIONAL;\n")
	}
	fmt.Fprintf(buf, "                    end if;\n")
	fmt.Fprintf(buf, "                when STATE_CAN_RX_READ =>\n")
	fmt.Fprintf(buf, "                    if RxCobId = CanOpen.NMT_SERVICE_ID and (RxData(1) = std_logic_vector(NodeId) or RxData(1) = x\"00\") then\n")
	fmt.Fprintf(buf, "                        case RxData(0) is\n")
	fmt.Fprintf(buf, "                            when x\"01\" => NmtState_ob <= CanOpen.NMT_STATE_OPERATIONAL;\n")
	fmt.Fprintf(buf, "                            when x\"02\" => NmtState_ob <= CanOpen.NMT_STATE_STOPPED;\n")
	fmt.Fprintf(buf, "                            when x\"80\" => NmtState_ob <= CanOpen.NMT_STATE_PREOPERATIONAL;\n")
	fmt.Fprintf(buf, "                            when others => null;\n")
	fmt.Fprintf(buf, "                        end case;\n")
	fmt.Fprintf(buf, "                    end if;\n")
	writeNmtErrorOverride(buf, p)
	fmt.Fprintf(buf, "                when others => null;\n")
	fmt.Fprintf(buf, "            end case;\n")
	fmt.Fprintf(buf, "        end if;\n")
	fmt.Fprintf(buf, "    end process;\n\n")
}

// nmtStartupDirectToOperational reports whether object 0x1F80 bit 3 is set
// in the EDS's NMT startup default.
func nmtStartupDirectToOperational(p *plan.Plan) bool {
	d, ok := p.Dict.Get(od.NewMux(od.EntryNMTStartup, 0))
	if !ok || d.DefaultValue == nil || d.DefaultValue.NodeIDOffset {
		return false
	}
	return d.DefaultValue.Literal&0x08 != 0
}
