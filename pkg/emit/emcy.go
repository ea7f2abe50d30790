package emit

import (
	"bytes"
	"fmt"

	"github.com/bggardner/canopen-vhdl/pkg/plan"
)

// writeEMCY emits the error-register edge detector and priority dispatch:
// newly-set bits of
// ErrorRegister latch into an "interrupts pending" byte, dispatched by
// priority Generic(0) -> Current(1) -> Voltage(2) -> Temperature(3) ->
// Communication(4) -> DeviceSpecific(5,7). Bit 4's EEC is disambiguated by
// cause, and a transition from non-zero to zero emits the "no error" EMCY.
func writeEMCY(buf *bytes.Buffer, p *plan.Plan) {
	fmt.Fprintf(buf, "    -- EMCY: edge-detected error register dispatch\n")
	fmt.Fprintf(buf, "    process(Clock, Reset_n)\n")
	fmt.Fprintf(buf, "        variable ErrorRegister_q : std_logic_vector(7 downto 0) := (others => '0');\n")
	fmt.Fprintf(buf, "        variable NewlySet, Pending : std_logic_vector(7 downto 0) := (others => '0');\n")
	fmt.Fprintf(buf, "        variable WasBusOff : std_logic := '0';\n")
	fmt.Fprintf(buf, "    begin\n")
	fmt.Fprintf(buf, "        if Reset_n = '0' then\n")
	fmt.Fprintf(buf, "            ErrorRegister_q := (others => '0');\n")
	fmt.Fprintf(buf, "            Pending := (others => '0');\n")
	fmt.Fprintf(buf, "            EmcyInterrupt <= '0';\n")
	fmt.Fprintf(buf, "            EmcyEec <= (others => '0');\n")
	fmt.Fprintf(buf, "            WasBusOff := '0';\n")
	fmt.Fprintf(buf, "        elsif rising_edge(Clock) then\n")
	fmt.Fprintf(buf, "            NewlySet := ErrorRegister and not ErrorRegister_q;\n")
	fmt.Fprintf(buf, "            Pending := Pending or NewlySet;\n")
	fmt.Fprintf(buf, "            if unsigned(ErrorRegister_q) /= 0 and unsigned(ErrorRegister) = 0 then\n")
	fmt.Fprintf(buf, "                EmcyEec <= x\"0000\"; -- \"no error\" EMCY\n")
	fmt.Fprintf(buf, "                EmcyInterrupt <= '1';\n")
	fmt.Fprintf(buf, "            elsif CurrentState = STATE_EMCY then\n")
	fmt.Fprintf(buf, "                EmcyInterrupt <= '0'; -- cleared once the frame has been dispatched\n")
	fmt.Fprintf(buf, "            elsif Pending(0) = '1' then\n")
	fmt.Fprintf(buf, "                EmcyEec <= x\"1000\"; Pending(0) := '0'; EmcyInterrupt <= '1'; -- Generic\n")
	fmt.Fprintf(buf, "            elsif Pending(1) = '1' then\n")
	fmt.Fprintf(buf, "                EmcyEec <= x\"3000\"; Pending(1) := '0'; EmcyInterrupt <= '1'; -- Current\n")
	fmt.Fprintf(buf, "            elsif Pending(2) = '1' then\n")
	fmt.Fprintf(buf, "                EmcyEec <= x\"4000\"; Pending(2) := '0'; EmcyInterrupt <= '1'; -- Voltage\n")
	fmt.Fprintf(buf, "            elsif Pending(3) = '1' then\n")
	fmt.Fprintf(buf, "                EmcyEec <= x\"5000\"; Pending(3) := '0'; EmcyInterrupt <= '1'; -- Temperature\n")
	fmt.Fprintf(buf, "            elsif Pending(4) = '1' then -- Communication: EEC disambiguated by cause\n")
	fmt.Fprintf(buf, "                if CanStatus_ib = CanBus.STATE_BUS_OFF then\n")
	fmt.Fprintf(buf, "                    EmcyEec <= x\"8140\"; WasBusOff := '1';\n")
	fmt.Fprintf(buf, "                elsif RxFifoOverflow = '1' then\n")
	fmt.Fprintf(buf, "                    EmcyEec <= x\"8110\";\n")
	fmt.Fprintf(buf, "                elsif CanStatus_ib = CanBus.STATE_ERROR_PASSIVE then\n")
	fmt.Fprintf(buf, "                    EmcyEec <= x\"8120\";\n")
	fmt.Fprintf(buf, "                elsif HeartbeatConsumerTimeout = '1' then\n")
	fmt.Fprintf(buf, "                    EmcyEec <= x\"8130\";\n")
	fmt.Fprintf(buf, "                elsif WasBusOff = '1' then\n")
	fmt.Fprintf(buf, "                    EmcyEec <= x\"8140\"; WasBusOff := '0';\n")
	fmt.Fprintf(buf, "                else\n")
	fmt.Fprintf(buf, "                    EmcyEec <= x\"8100\";\n")
	fmt.Fprintf(buf, "                end if;\n")
	fmt.Fprintf(buf, "                Pending(4) := '0';\n")
	fmt.Fprintf(buf, "                EmcyInterrupt <= '1';\n")
	fmt.Fprintf(buf, "            elsif Pending(5) = '1' then\n")
	fmt.Fprintf(buf, "                EmcyEec <= x\"FF00\"; Pending(5) := '0'; EmcyInterrupt <= '1'; -- DeviceSpecific\n")
	fmt.Fprintf(buf, "            elsif Pending(7) = '1' then\n")
	fmt.Fprintf(buf, "                EmcyEec <= x\"FF01\"; Pending(7) := '0'; EmcyInterrupt <= '1'; -- DeviceSpecific\n")
	fmt.Fprintf(buf, "            end if;\n")
	fmt.Fprintf(buf, "            ErrorRegister_q := ErrorRegister;\n")
	fmt.Fprintf(buf, "        end if;\n")
	fmt.Fprintf(buf, "    end process;\n\n")
}
