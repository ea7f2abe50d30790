package emit

import (
	"bytes"
	"fmt"

	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

// writeTPDO emits the trigger logic and payload concatenation for TPDO i
// (1-4). Absent a 0x1800+i-1 comm record, the interrupt is
// tied low and the (always declared) payload signal is left unassigned.
func writeTPDO(buf *bytes.Buffer, p *plan.Plan, i int) {
	commIndex := uint16(od.EntryTPDOCommStart + i - 1)
	transType, hasTransType := p.Dict.Get(od.NewMux(commIndex, 2))
	if !hasTransType {
		fmt.Fprintf(buf, "    Tpdo%dInterrupt <= '0';\n\n", i)
		return
	}

	cobid, _ := p.Dict.Get(od.NewMux(commIndex, 1))
	inhibit, hasInhibit := p.Dict.Get(od.NewMux(commIndex, 3))
	eventTimer, hasEventTimer := p.Dict.Get(od.NewMux(commIndex, 5))
	syncStart, hasSyncStart := p.Dict.Get(od.NewMux(commIndex, 6))
	window, hasWindow := p.Dict.Get(od.NewMux(od.EntrySyncWindowLength, 0))
	hasWindow = hasWindow && cobid != nil

	transSignal := internalOrPortName(p, transType)

	fmt.Fprintf(buf, "    -- TPDO%d trigger\n", i)
	fmt.Fprintf(buf, "    process(Clock, Reset_n)\n")
	fmt.Fprintf(buf, "        variable SyncCount : natural := 0;\n")
	if hasInhibit {
		fmt.Fprintf(buf, "        variable InhibitCounter : natural := 0;\n")
		fmt.Fprintf(buf, "        variable InhibitRunning : std_logic := '0';\n")
	}
	if hasEventTimer {
		fmt.Fprintf(buf, "        variable EventMsCounter : natural := 0;\n")
	}
	if hasWindow {
		fmt.Fprintf(buf, "        variable WindowCounter : natural := 0;\n")
		fmt.Fprintf(buf, "        variable WindowElapsed : std_logic := '0';\n")
	}
	fmt.Fprintf(buf, "    begin\n")
	fmt.Fprintf(buf, "        if Reset_n = '0' then\n")
	fmt.Fprintf(buf, "            SyncCount := 0;\n")
	fmt.Fprintf(buf, "            Tpdo%dInterrupt <= '0';\n", i)
	if hasInhibit {
		fmt.Fprintf(buf, "            InhibitCounter := 0; InhibitRunning := '0';\n")
	}
	if hasEventTimer {
		fmt.Fprintf(buf, "            EventMsCounter := 0;\n")
	}
	if hasWindow {
		fmt.Fprintf(buf, "            WindowCounter := 0; WindowElapsed := '0';\n")
	}
	fmt.Fprintf(buf, "        elsif rising_edge(Clock) then\n")
	if hasInhibit {
		inhibitSignal := internalOrPortName(p, inhibit)
		fmt.Fprintf(buf, "            if InhibitRunning = '1' then\n")
		fmt.Fprintf(buf, "                if TickHundredUs = '1' then\n")
		fmt.Fprintf(buf, "                    if InhibitCounter >= to_integer(unsigned(%s)) - 1 then\n", inhibitSignal)
		fmt.Fprintf(buf, "                        InhibitRunning := '0';\n")
		fmt.Fprintf(buf, "                    else\n")
		fmt.Fprintf(buf, "                        InhibitCounter := InhibitCounter + 1;\n")
		fmt.Fprintf(buf, "                    end if;\n")
		fmt.Fprintf(buf, "                end if;\n")
		fmt.Fprintf(buf, "            end if;\n")
	}
	fmt.Fprintf(buf, "            if CurrentState = STATE_TPDO%d then\n", i)
	fmt.Fprintf(buf, "                Tpdo%dInterrupt <= '0';\n", i)
	if hasInhibit {
		fmt.Fprintf(buf, "                InhibitCounter := 0; InhibitRunning := '1';\n")
	}
	if hasEventTimer {
		fmt.Fprintf(buf, "                EventMsCounter := 0;\n")
	}
	fmt.Fprintf(buf, "            elsif to_integer(unsigned(%s)) = 0 then -- acyclic synchronous: fire on next SYNC if an event is pending\n", transSignal)
	fmt.Fprintf(buf, "                if SyncInterrupt = '1' and Tpdo%dEvent = '1' then\n", i)
	fmt.Fprintf(buf, "                    Tpdo%dInterrupt <= '1';\n", i)
	fmt.Fprintf(buf, "                end if;\n")
	fmt.Fprintf(buf, "            elsif to_integer(unsigned(%s)) >= 1 and to_integer(unsigned(%s)) <= 240 then -- cyclic synchronous\n", transSignal, transSignal)
	fmt.Fprintf(buf, "                if SyncInterrupt = '1' then\n")
	if hasSyncStart {
		syncStartSignal := internalOrPortName(p, syncStart)
		fmt.Fprintf(buf, "                    if to_integer(unsigned(%s)) /= 0 and SyncCount = 0 then\n", syncStartSignal)
		fmt.Fprintf(buf, "                        SyncCount := to_integer(unsigned(%s));\n", syncStartSignal)
		fmt.Fprintf(buf, "                    end if;\n")
	}
	fmt.Fprintf(buf, "                    if SyncCount >= to_integer(unsigned(%s)) - 1 then\n", transSignal)
	fmt.Fprintf(buf, "                        SyncCount := 0;\n")
	fmt.Fprintf(buf, "                        Tpdo%dInterrupt <= '1';\n", i)
	fmt.Fprintf(buf, "                    else\n")
	fmt.Fprintf(buf, "                        SyncCount := SyncCount + 1;\n")
	fmt.Fprintf(buf, "                    end if;\n")
	fmt.Fprintf(buf, "                end if;\n")
	fmt.Fprintf(buf, "            elsif unsigned(%s) = x\"FC\" then -- synchronous RTR: fires on SYNC, payload served on RTR by the frame loader\n", transSignal)
	fmt.Fprintf(buf, "                if SyncInterrupt = '1' then\n")
	fmt.Fprintf(buf, "                    Tpdo%dInterrupt <= '1';\n", i)
	fmt.Fprintf(buf, "                end if;\n")
	fmt.Fprintf(buf, "            else -- 0xFD asynchronous RTR, 0xFE/0xFF event-driven\n")
	cond := fmt.Sprintf("Tpdo%dEvent = '1'", i)
	if hasInhibit {
		cond = fmt.Sprintf("Tpdo%dEvent = '1' and InhibitRunning = '0'", i)
	}
	fmt.Fprintf(buf, "                if %s then\n", cond)
	fmt.Fprintf(buf, "                    Tpdo%dInterrupt <= '1';\n", i)
	if hasEventTimer {
		eventSignal := internalOrPortName(p, eventTimer)
		fmt.Fprintf(buf, "                elsif to_integer(unsigned(%s)) /= 0 and TickMs = '1' then\n", eventSignal)
		fmt.Fprintf(buf, "                    if EventMsCounter >= to_integer(unsigned(%s)) - 1 then\n", eventSignal)
		fmt.Fprintf(buf, "                        EventMsCounter := 0;\n")
		fmt.Fprintf(buf, "                        Tpdo%dInterrupt <= '1';\n", i)
		fmt.Fprintf(buf, "                    else\n")
		fmt.Fprintf(buf, "                        EventMsCounter := EventMsCounter + 1;\n")
		fmt.Fprintf(buf, "                    end if;\n")
	}
	fmt.Fprintf(buf, "                end if;\n")
	fmt.Fprintf(buf, "            end if;\n")

	if hasWindow {
		windowSignal := internalOrPortName(p, window)
		fmt.Fprintf(buf, "            if SyncInterrupt = '1' then\n")
		fmt.Fprintf(buf, "                WindowCounter := 0; WindowElapsed := '0';\n")
		fmt.Fprintf(buf, "            elsif WindowElapsed = '0' and TickUs = '1' and to_integer(unsigned(%s)) /= 0 then\n", windowSignal)
		fmt.Fprintf(buf, "                if WindowCounter >= to_integer(unsigned(%s)) - 1 then\n", windowSignal)
		fmt.Fprintf(buf, "                    WindowElapsed := '1';\n")
		fmt.Fprintf(buf, "                    Tpdo%dInterrupt <= '0'; -- window elapsed: discard any event not yet dispatched\n", i)
		fmt.Fprintf(buf, "                else\n")
		fmt.Fprintf(buf, "                    WindowCounter := WindowCounter + 1;\n")
		fmt.Fprintf(buf, "                end if;\n")
		fmt.Fprintf(buf, "            end if;\n")
	}

	fmt.Fprintf(buf, "        end if;\n")
	fmt.Fprintf(buf, "    end process;\n\n")

	writeTPDOPayload(buf, p, i, cobid)
}

// writeTPDOPayload emits the constant-folded concatenation expression for
// TPDO i's frame data, reversing sub-index order so sub 1 lands in the
// lowest frame bits.
func writeTPDOPayload(buf *bytes.Buffer, p *plan.Plan, i int, cobid *od.Descriptor) {
	fields := p.TPDOMappings(i)
	if len(fields) == 0 {
		fmt.Fprintf(buf, "    Tpdo%dPayload <= (others => '0');\n", i)
		fmt.Fprintf(buf, "    Tpdo%dBits <= 0;\n\n", i)
		return
	}

	totalBits := 0
	for _, f := range fields {
		totalBits += f.BitLength
	}

	fmt.Fprintf(buf, "    -- TPDO%d payload: concatenation of mapped objects, sub 1 in the lowest bits\n", i)
	fmt.Fprintf(buf, "    Tpdo%dPayload <= ", i)
	for idx := len(fields) - 1; idx >= 0; idx-- {
		f := fields[idx]
		name := internalOrPortName(p, f.Target)
		if idx != len(fields)-1 {
			fmt.Fprintf(buf, " & ")
		}
		fmt.Fprintf(buf, "std_logic_vector(resize(unsigned(%s), %d))", name, f.BitLength)
	}
	fmt.Fprintf(buf, ";\n")
	fmt.Fprintf(buf, "    Tpdo%dBits <= %d;\n\n", i, totalBits)
}
