package emit

import (
	"bytes"
	"fmt"

	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

// writeHeartbeatProducer emits the 0x1017 producer period logic:
// interrupt at period edge; cleared by HEARTBEAT emission;
// reset to 0 on NMT-init, RESET_COMM, successful SDO write to 0x1017, or
// period=0 (disabled).
func writeHeartbeatProducer(buf *bytes.Buffer, p *plan.Plan) {
	d, ok := p.Dict.Get(od.NewMux(od.EntryProducerHeartbeat, 0))
	if !ok {
		fmt.Fprintf(buf, "    HeartbeatInterrupt <= '0';\n\n")
		return
	}
	signal := internalOrPortName(p, d)

	fmt.Fprintf(buf, "    -- Heartbeat producer\n")
	fmt.Fprintf(buf, "    process(Clock, Reset_n)\n")
	fmt.Fprintf(buf, "        variable MsCounter : natural := 0;\n")
	fmt.Fprintf(buf, "    begin\n")
	fmt.Fprintf(buf, "        if Reset_n = '0' then\n")
	fmt.Fprintf(buf, "            MsCounter := 0; HeartbeatInterrupt <= '0';\n")
	fmt.Fprintf(buf, "        elsif rising_edge(Clock) then\n")
	fmt.Fprintf(buf, "            if NmtState_ob = CanOpen.NMT_STATE_INITIALISATION or CurrentState = STATE_RESET_COMM or SdoHeartbeat1017Written = '1' or unsigned(%s) = 0 then\n", signal)
	fmt.Fprintf(buf, "                MsCounter := 0;\n")
	fmt.Fprintf(buf, "            elsif CurrentState = STATE_HEARTBEAT then\n")
	fmt.Fprintf(buf, "                MsCounter := 0;\n")
	fmt.Fprintf(buf, "                HeartbeatInterrupt <= '0';\n")
	fmt.Fprintf(buf, "            elsif TickMs = '1' then\n")
	fmt.Fprintf(buf, "                if MsCounter >= to_integer(unsigned(%s)) - 1 then\n", signal)
	fmt.Fprintf(buf, "                    MsCounter := 0;\n")
	fmt.Fprintf(buf, "                    HeartbeatInterrupt <= '1';\n")
	fmt.Fprintf(buf, "                else\n")
	fmt.Fprintf(buf, "                    MsCounter := MsCounter + 1;\n")
	fmt.Fprintf(buf, "                end if;\n")
	fmt.Fprintf(buf, "            end if;\n")
	fmt.Fprintf(buf, "        end if;\n")
	fmt.Fprintf(buf, "    end process;\n\n")
}

// writeHeartbeatConsumers emits one timeout-detection process per
// 0x1016 sub-entry: no duplicate-node-ID detection, only
// the timeout flag feeding CommunicationError_ob/EMCY. A consumer is
// disabled when its configured timeout is 0.
func writeHeartbeatConsumers(buf *bytes.Buffer, p *plan.Plan) {
	entries := p.Dict.IndexEntries(od.EntryConsumerHeartbeat)
	var consumers []*od.Descriptor
	for _, e := range entries {
		if e.Mux.Sub() != 0 {
			consumers = append(consumers, e)
		}
	}
	if len(consumers) == 0 {
		fmt.Fprintf(buf, "    HeartbeatConsumerTimeout <= '0';\n\n")
		return
	}

	fmt.Fprintf(buf, "    -- Heartbeat consumers: one timeout counter per 0x1016 sub-entry\n")
	for i, d := range consumers {
		signal := internalOrPortName(p, d)
		flag := fmt.Sprintf("HeartbeatConsumerTimeout%d", i+1)
		fmt.Fprintf(buf, "    process(Clock, Reset_n)\n")
		fmt.Fprintf(buf, "        variable MsCounter : natural := 0;\n")
		fmt.Fprintf(buf, "    begin\n")
		fmt.Fprintf(buf, "        if Reset_n = '0' then\n")
		fmt.Fprintf(buf, "            MsCounter := 0; %s <= '0';\n", flag)
		fmt.Fprintf(buf, "        elsif rising_edge(Clock) then\n")
		fmt.Fprintf(buf, "            if unsigned(%s(15 downto 0)) = 0 then\n", signal)
		fmt.Fprintf(buf, "                MsCounter := 0; %s <= '0';\n", flag)
		fmt.Fprintf(buf, "            elsif CurrentState = STATE_CAN_RX_READ and RxCobId = CanOpen.HEARTBEAT_SERVICE_ID + resize(unsigned(%s(22 downto 16)), 11) then\n", signal)
		fmt.Fprintf(buf, "                MsCounter := 0; %s <= '0';\n", flag)
		fmt.Fprintf(buf, "            elsif TickMs = '1' then\n")
		fmt.Fprintf(buf, "                if MsCounter >= to_integer(unsigned(%s(15 downto 0))) - 1 then\n", signal)
		fmt.Fprintf(buf, "                    %s <= '1';\n", flag)
		fmt.Fprintf(buf, "                else\n")
		fmt.Fprintf(buf, "                    MsCounter := MsCounter + 1;\n")
		fmt.Fprintf(buf, "                end if;\n")
		fmt.Fprintf(buf, "            end if;\n")
		fmt.Fprintf(buf, "        end if;\n")
		fmt.Fprintf(buf, "    end process;\n\n")
	}

	fmt.Fprintf(buf, "    HeartbeatConsumerTimeout <= ")
	for i := range consumers {
		if i > 0 {
			fmt.Fprintf(buf, " or ")
		}
		fmt.Fprintf(buf, "HeartbeatConsumerTimeout%d", i+1)
	}
	fmt.Fprintf(buf, ";\n\n")
}
