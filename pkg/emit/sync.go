package emit

import (
	"bytes"
	"fmt"

	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

// writeSync emits the SYNC producer/consumer logic:
// when 0x1005 bit 30 is set, a free-running counter of 0x1006 microsecond
// cycles triggers production; when clear, externally-received SYNC frames
// re-zero the counter and its expiration instead raises SyncError_ob. The
// 0x1019 synchronous counter overflow increments on every consumed SYNC.
func writeSync(buf *bytes.Buffer, p *plan.Plan) {
	cobidSync, hasSync := p.Dict.Get(od.NewMux(od.EntryCobIdSync, 0))
	if !hasSync {
		fmt.Fprintf(buf, "    -- No 0x1005 COB-ID SYNC object: SYNC producer/consumer omitted\n")
		fmt.Fprintf(buf, "    SyncInterrupt <= '0';\n\n")
		return
	}
	cobidSignal := internalOrPortName(p, cobidSync)

	fmt.Fprintf(buf, "    -- SYNC producer/consumer\n")
	fmt.Fprintf(buf, "    process(Clock, Reset_n)\n")
	fmt.Fprintf(buf, "        variable SyncCounter : natural := 0;\n")
	fmt.Fprintf(buf, "    begin\n")
	fmt.Fprintf(buf, "        if Reset_n = '0' then\n")
	fmt.Fprintf(buf, "            SyncCounter := 0; SyncInterrupt <= '0'; SyncError_ob <= '0';\n")
	fmt.Fprintf(buf, "        elsif rising_edge(Clock) then\n")
	fmt.Fprintf(buf, "            SyncInterrupt <= '0';\n")
	fmt.Fprintf(buf, "            if CurrentState = STATE_RESET_COMM then\n")
	fmt.Fprintf(buf, "                SyncCounter := 0;\n")
	fmt.Fprintf(buf, "            elsif unsigned(%s)(30) = '1' then -- generator role\n", cobidSignal)
	commCycle := od.NewMux(od.EntryCommCyclePeriod, 0)
	periodDesc, hasPeriod := p.Dict.Get(commCycle)
	if hasPeriod {
		periodSignal := internalOrPortName(p, periodDesc)
		fmt.Fprintf(buf, "                if TickUs = '1' then\n")
		fmt.Fprintf(buf, "                    if SyncCounter >= to_integer(unsigned(%s)) - 1 then\n", periodSignal)
		fmt.Fprintf(buf, "                        SyncCounter := 0;\n")
		fmt.Fprintf(buf, "                        SyncInterrupt <= '1';\n")
		fmt.Fprintf(buf, "                    else\n")
		fmt.Fprintf(buf, "                        SyncCounter := SyncCounter + 1;\n")
		fmt.Fprintf(buf, "                    end if;\n")
		fmt.Fprintf(buf, "                end if;\n")
	}
	fmt.Fprintf(buf, "            elsif CurrentState = STATE_CAN_RX_READ and RxCobId = CanOpen.SYNC_SERVICE_ID then\n")
	fmt.Fprintf(buf, "                SyncCounter := 0;\n")
	fmt.Fprintf(buf, "                SyncError_ob <= '0';\n")
	fmt.Fprintf(buf, "                SyncInterrupt <= '1';\n")
	if hasPeriod {
		periodSignal := internalOrPortName(p, periodDesc)
		fmt.Fprintf(buf, "            elsif TickUs = '1' and unsigned(%s) /= 0 then -- consumer role: period elapsed without a SYNC\n", periodSignal)
		fmt.Fprintf(buf, "                if SyncCounter >= to_integer(unsigned(%s)) - 1 then\n", periodSignal)
		fmt.Fprintf(buf, "                    SyncError_ob <= '1';\n")
		fmt.Fprintf(buf, "                else\n")
		fmt.Fprintf(buf, "                    SyncCounter := SyncCounter + 1;\n")
		fmt.Fprintf(buf, "                end if;\n")
	}
	fmt.Fprintf(buf, "            end if;\n")
	fmt.Fprintf(buf, "        end if;\n")
	fmt.Fprintf(buf, "    end process;\n\n")

	writeSyncCounterOverflow(buf, p)
}

// writeSyncCounterOverflow emits the 0x1019 "Synchronous counter overflow
// value" increment logic: increments on every consumed SYNC while in
// [2,240]; resets to 1 on NMT-init/STOPPED, RESET_COMM, or a successful
// SDO write to 0x1019.
func writeSyncCounterOverflow(buf *bytes.Buffer, p *plan.Plan) {
	d, ok := p.Dict.Get(od.NewMux(od.EntrySyncCounterOverflow, 0))
	if !ok {
		return
	}
	signal := internalOrPortName(p, d)
	fmt.Fprintf(buf, "    process(Clock, Reset_n)\n")
	fmt.Fprintf(buf, "    begin\n")
	fmt.Fprintf(buf, "        if Reset_n = '0' then\n")
	fmt.Fprintf(buf, "            %s <= x\"01\";\n", signal)
	fmt.Fprintf(buf, "        elsif rising_edge(Clock) then\n")
	fmt.Fprintf(buf, "            if CurrentState = STATE_RESET_COMM or NmtState_ob = CanOpen.NMT_STATE_INITIALISATION or NmtState_ob = CanOpen.NMT_STATE_STOPPED then\n")
	fmt.Fprintf(buf, "                %s <= x\"01\";\n", signal)
	fmt.Fprintf(buf, "            elsif SdoSync1019Written = '1' then\n")
	fmt.Fprintf(buf, "                null; -- new value already latched by the SDO write path\n")
	fmt.Fprintf(buf, "            elsif SyncInterrupt = '1' and unsigned(%s) >= 2 and unsigned(%s) <= 240 then\n", signal, signal)
	fmt.Fprintf(buf, "                %s <= std_logic_vector(unsigned(%s) + 1);\n", signal, signal)
	fmt.Fprintf(buf, "            end if;\n")
	fmt.Fprintf(buf, "        end if;\n")
	fmt.Fprintf(buf, "    end process;\n\n")
}
