package emit

import (
	"bytes"
	"fmt"

	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

// writeFrameLoader emits the CAN controller instantiation and
// the combinational TX frame assembly per emitting state, the last
// process in the fixed ordering before SDO.
func writeFrameLoader(buf *bytes.Buffer, p *plan.Plan) {
	fmt.Fprintf(buf, "    -- CAN controller instantiation (opaque frame-level collaborator)\n")
	fmt.Fprintf(buf, "    U_CanController : CanBus.Controller\n")
	fmt.Fprintf(buf, "        port map (\n")
	fmt.Fprintf(buf, "            Clock => Clock, Reset_n => Reset_n,\n")
	fmt.Fprintf(buf, "            CanRx => CanRx, CanTx => CanTx,\n")
	fmt.Fprintf(buf, "            Status => CanStatus_ib,\n")
	fmt.Fprintf(buf, "            RxFifoReadEnable => RxFifoReadEnable, RxFifoEmpty => RxFifoEmpty, RxFifoOverflow => RxFifoOverflow,\n")
	fmt.Fprintf(buf, "            RxCobId => RxCobId, RxData => RxData, RxDlc => RxDlc,\n")
	fmt.Fprintf(buf, "            TxFifoWriteEnable => TxFifoWriteEnable, TxAck => TxAck,\n")
	fmt.Fprintf(buf, "            TxCobId => TxCobId, TxData => TxData, TxDlc => TxDlc\n")
	fmt.Fprintf(buf, "        );\n\n")

	fmt.Fprintf(buf, "    RxFifoReadEnable <= '1' when CurrentState = STATE_CAN_RX_STROBE else '0';\n")
	fmt.Fprintf(buf, "    TxFifoWriteEnable <= '1' when CurrentState = STATE_CAN_TX_STROBE else '0';\n\n")

	fmt.Fprintf(buf, "    -- Frame assembly: one arm per emitting state\n")
	fmt.Fprintf(buf, "    process(all)\n")
	fmt.Fprintf(buf, "    begin\n")
	fmt.Fprintf(buf, "        case CurrentState is\n")

	fmt.Fprintf(buf, "            when STATE_BOOTUP =>\n")
	fmt.Fprintf(buf, "                TxCobId <= CanOpen.HEARTBEAT_SERVICE_ID + resize(NodeId, 11);\n")
	fmt.Fprintf(buf, "                TxDlc <= 1;\n")
	fmt.Fprintf(buf, "                TxData(0) <= x\"00\";\n")

	cobidSync, hasSync := p.Dict.Get(od.NewMux(od.EntryCobIdSync, 0))
	fmt.Fprintf(buf, "            when STATE_SYNC =>\n")
	if hasSync {
		fmt.Fprintf(buf, "                TxCobId <= unsigned(%s(10 downto 0));\n", internalOrPortName(p, cobidSync))
	} else {
		fmt.Fprintf(buf, "                TxCobId <= CanOpen.SYNC_SERVICE_ID;\n")
	}
	fmt.Fprintf(buf, "                TxDlc <= 0;\n")

	fmt.Fprintf(buf, "            when STATE_EMCY =>\n")
	cobidEmcy, hasEmcy := p.Dict.Get(od.NewMux(od.EntryCobIdEmcy, 0))
	if hasEmcy {
		fmt.Fprintf(buf, "                TxCobId <= unsigned(%s(10 downto 0));\n", internalOrPortName(p, cobidEmcy))
	} else {
		fmt.Fprintf(buf, "                TxCobId <= CanOpen.EMCY_SERVICE_ID + resize(NodeId, 11);\n")
	}
	fmt.Fprintf(buf, "                TxDlc <= 8;\n")
	fmt.Fprintf(buf, "                TxData(0) <= EmcyEec(7 downto 0);\n")
	fmt.Fprintf(buf, "                TxData(1) <= EmcyEec(15 downto 8);\n")
	fmt.Fprintf(buf, "                TxData(2) <= ErrorRegister;\n")
	fmt.Fprintf(buf, "                TxData(3) <= x\"00\"; TxData(4) <= x\"00\"; TxData(5) <= x\"00\"; TxData(6) <= x\"00\"; TxData(7) <= x\"00\"; -- manufacturer-specific error field: always zero\n")

	for i := 1; i <= 4; i++ {
		writeTPDOFrameArm(buf, p, i)
	}

	fmt.Fprintf(buf, "            when STATE_HEARTBEAT =>\n")
	fmt.Fprintf(buf, "                TxCobId <= CanOpen.HEARTBEAT_SERVICE_ID + resize(NodeId, 11);\n")
	fmt.Fprintf(buf, "                TxDlc <= 1;\n")
	fmt.Fprintf(buf, "                TxData(0) <= NmtState_ob;\n")

	fmt.Fprintf(buf, "            when STATE_SDO_TX =>\n")
	fmt.Fprintf(buf, "                TxCobId <= CanOpen.SDO_SERVER_BASE_ID + 16#80# + resize(NodeId, 11);\n")
	fmt.Fprintf(buf, "                TxDlc <= 8;\n")
	fmt.Fprintf(buf, "                TxData <= SdoTxFrame;\n")

	fmt.Fprintf(buf, "            when others =>\n")
	fmt.Fprintf(buf, "                TxCobId <= (others => '0');\n")
	fmt.Fprintf(buf, "                TxDlc <= 0;\n")

	fmt.Fprintf(buf, "        end case;\n")
	fmt.Fprintf(buf, "    end process;\n\n")
}

func writeTPDOFrameArm(buf *bytes.Buffer, p *plan.Plan, i int) {
	commIndex := uint16(od.EntryTPDOCommStart + i - 1)
	cobid, hasCobid := p.Dict.Get(od.NewMux(commIndex, 1))

	fmt.Fprintf(buf, "            when STATE_TPDO%d =>\n", i)
	if hasCobid {
		fmt.Fprintf(buf, "                TxCobId <= unsigned(%s(10 downto 0));\n", internalOrPortName(p, cobid))
	} else {
		fmt.Fprintf(buf, "                TxCobId <= CanOpen.TPDO%d_SERVICE_ID + resize(NodeId, 11);\n", i)
	}
	fmt.Fprintf(buf, "                TxDlc <= (Tpdo%dBits + 7) / 8;\n", i)
	fmt.Fprintf(buf, "                for b in 0 to 7 loop\n")
	fmt.Fprintf(buf, "                    TxData(b) <= Tpdo%dPayload(b * 8 + 7 downto b * 8);\n", i)
	fmt.Fprintf(buf, "                end loop;\n")
}
