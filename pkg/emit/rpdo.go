package emit

import (
	"bytes"
	"fmt"

	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

// rpdoTimeoutCount returns how many RPDO comm records carry an event timer,
// i.e. how many RpdoTimeoutN flag signals the entity needs declared.
func rpdoTimeoutCount(p *plan.Plan) int {
	n := 0
	for i := 0; i < 512; i++ {
		commIndex := od.EntryRPDOCommStart + uint16(i)
		if commIndex > od.EntryRPDOCommEnd {
			break
		}
		_, hasTimer := p.Dict.Get(od.NewMux(commIndex, 5))
		_, hasCobid := p.Dict.Get(od.NewMux(commIndex, 1))
		if hasTimer && hasCobid {
			n++
		}
	}
	return n
}

// writeRPDOTimeoutSignals declares the RpdoTimeoutN flag signals ahead of
// the architecture's "begin", one per RPDO with a configured event timer.
func writeRPDOTimeoutSignals(buf *bytes.Buffer, p *plan.Plan) {
	n := rpdoTimeoutCount(p)
	if n == 0 {
		return
	}
	fmt.Fprintf(buf, "    signal ")
	for i := 0; i < n; i++ {
		if i > 0 {
			fmt.Fprintf(buf, ", ")
		}
		fmt.Fprintf(buf, "RpdoTimeout%d", i+1)
	}
	fmt.Fprintf(buf, " : std_logic := '0';\n\n")
}

// writeRPDOTimeouts emits one millisecond timeout counter per RPDO i with a
// configured event timer (0x1400+i-1 sub 5). The public
// aggregate is the AND of all per-RPDO flags, reproduced literally from the
// source even though CiA semantics and the event-timer-error status bit
// suggest OR is the correct reduction.
func writeRPDOTimeouts(buf *bytes.Buffer, p *plan.Plan) {
	var flags []string
	for i := 0; i < 512; i++ {
		commIndex := od.EntryRPDOCommStart + uint16(i)
		if commIndex > od.EntryRPDOCommEnd {
			break
		}
		eventTimer, hasTimer := p.Dict.Get(od.NewMux(commIndex, 5))
		if !hasTimer {
			continue
		}
		cobid, hasCobid := p.Dict.Get(od.NewMux(commIndex, 1))
		if !hasCobid {
			continue
		}
		cobidSignal := internalOrPortName(p, cobid)
		eventSignal := internalOrPortName(p, eventTimer)
		flag := fmt.Sprintf("RpdoTimeout%d", len(flags)+1)
		flags = append(flags, flag)

		fmt.Fprintf(buf, "    -- RPDO%d timeout\n", i+1)
		fmt.Fprintf(buf, "    process(Clock, Reset_n)\n")
		fmt.Fprintf(buf, "        variable MsCounter : natural := 0;\n")
		fmt.Fprintf(buf, "    begin\n")
		fmt.Fprintf(buf, "        if Reset_n = '0' then\n")
		fmt.Fprintf(buf, "            MsCounter := 0; %s <= '0';\n", flag)
		fmt.Fprintf(buf, "        elsif rising_edge(Clock) then\n")
		fmt.Fprintf(buf, "            if unsigned(%s)(31) = '1' or unsigned(%s) = 0 then\n", cobidSignal, eventSignal)
		fmt.Fprintf(buf, "                MsCounter := 0; %s <= '0';\n", flag)
		fmt.Fprintf(buf, "            elsif CurrentState = STATE_CAN_RX_READ and RxCobId = unsigned(%s(10 downto 0)) then\n", cobidSignal)
		fmt.Fprintf(buf, "                MsCounter := 0; %s <= '0';\n", flag)
		fmt.Fprintf(buf, "            elsif TickMs = '1' then\n")
		fmt.Fprintf(buf, "                if MsCounter >= to_integer(unsigned(%s)) - 1 then\n", eventSignal)
		fmt.Fprintf(buf, "                    %s <= '1';\n", flag)
		fmt.Fprintf(buf, "                else\n")
		fmt.Fprintf(buf, "                    MsCounter := MsCounter + 1;\n")
		fmt.Fprintf(buf, "                end if;\n")
		fmt.Fprintf(buf, "            end if;\n")
		fmt.Fprintf(buf, "        end if;\n")
		fmt.Fprintf(buf, "    end process;\n\n")
	}

	if len(flags) == 0 {
		fmt.Fprintf(buf, "    EventTimerError_ob <= '0';\n\n")
		return
	}

	fmt.Fprintf(buf, "    -- RpdoTimeout: AND reduction, kept as the source computes it\n")
	fmt.Fprintf(buf, "    EventTimerError_ob <= ")
	for i, flag := range flags {
		if i > 0 {
			fmt.Fprintf(buf, " and ")
		}
		fmt.Fprintf(buf, "%s", flag)
	}
	fmt.Fprintf(buf, ";\n\n")
}
