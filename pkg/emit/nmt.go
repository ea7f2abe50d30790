package emit

import (
	"bytes"
	"fmt"

	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
	"github.com/bggardner/canopen-vhdl/pkg/vhdlfmt"
)

// writeNMT emits the combinational CommunicationError_ob line: bus-off,
// RX-FIFO overflow, or any heartbeat-consumer timeout.
func writeNMT(buf *bytes.Buffer, p *plan.Plan) {
	fmt.Fprintf(buf, "    -- NMT: communication-error aggregation\n")
	fmt.Fprintf(buf, "    CommunicationError_ob <= '1' when CanStatus_ib = CanBus.STATE_BUS_OFF\n")
	fmt.Fprintf(buf, "        or RxFifoOverflow = '1'\n")
	if hasHeartbeatConsumers(p) {
		fmt.Fprintf(buf, "        or HeartbeatConsumerTimeout = '1'\n")
	}
	fmt.Fprintf(buf, "        else '0';\n\n")
}

func hasHeartbeatConsumers(p *plan.Plan) bool {
	return len(p.Dict.IndexEntries(od.EntryConsumerHeartbeat)) > 1 // sub0 + at least one consumer
}

// writeStatusRecord assembles the Status output port from the internal
// *_ob signals. AutoBitrateOrLss and ProgramDownload are always zero:
// auto-bitrate/LSS and program download are both out of scope.
func writeStatusRecord(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "    -- Status record assembly\n")
	fmt.Fprintf(buf, "    Status.NmtState <= NmtState_ob;\n")
	fmt.Fprintf(buf, "    Status.CanStatus <= CanStatus_ib;\n")
	fmt.Fprintf(buf, "    Status.AutoBitrateOrLss <= '0';\n")
	fmt.Fprintf(buf, "    Status.InvalidConfiguration <= InvalidConfiguration_ob;\n")
	fmt.Fprintf(buf, "    Status.ErrorControlEvent <= CommunicationError_ob;\n")
	fmt.Fprintf(buf, "    Status.SyncError <= SyncError_ob;\n")
	fmt.Fprintf(buf, "    Status.EventTimerError <= EventTimerError_ob;\n")
	fmt.Fprintf(buf, "    Status.ProgramDownload <= '0';\n\n")
}

// writeNmtErrorOverride emits the communication/generic-error NMT
// transition, optionally overridden by object 0x1029 (grounded on
// eds2vhdl.py lines 749-760).
func writeNmtErrorOverride(buf *bytes.Buffer, p *plan.Plan) {
	behavior, hasBehavior := p.Dict.Get(od.NewMux(od.EntryErrorBehavior, 1))
	generic, hasGeneric := p.Dict.Get(od.NewMux(od.EntryErrorBehavior, 2))

	if !hasBehavior {
		fmt.Fprintf(buf, "                    elsif CommunicationError_ob = '1' and NmtState_ob = CanOpen.NMT_STATE_OPERATIONAL then\n")
		fmt.Fprintf(buf, "                        NmtState_ob <= CanOpen.NMT_STATE_PREOPERATIONAL;\n")
		return
	}

	behaviorSignal := internalOrPortName(p, behavior)
	fmt.Fprintf(buf, "                    elsif CommunicationError_ob = '1' and NmtState_ob = CanOpen.NMT_STATE_OPERATIONAL then\n")
	fmt.Fprintf(buf, "                        case to_integer(unsigned(%s)) is\n", behaviorSignal)
	fmt.Fprintf(buf, "                            when 0 => NmtState_ob <= CanOpen.NMT_STATE_PREOPERATIONAL;\n")
	fmt.Fprintf(buf, "                            when 1 => null; -- no change\n")
	fmt.Fprintf(buf, "                            when 2 => NmtState_ob <= CanOpen.NMT_STATE_STOPPED;\n")
	fmt.Fprintf(buf, "                            when others => NmtState_ob <= CanOpen.NMT_STATE_PREOPERATIONAL;\n")
	fmt.Fprintf(buf, "                        end case;\n")

	if hasGeneric {
		genericSignal := internalOrPortName(p, generic)
		fmt.Fprintf(buf, "                    elsif ErrorRegister(0) = '1' and NmtState_ob = CanOpen.NMT_STATE_OPERATIONAL then\n")
		fmt.Fprintf(buf, "                        case to_integer(unsigned(%s)) is\n", genericSignal)
		fmt.Fprintf(buf, "                            when 0 => NmtState_ob <= CanOpen.NMT_STATE_PREOPERATIONAL;\n")
		fmt.Fprintf(buf, "                            when 2 => NmtState_ob <= CanOpen.NMT_STATE_STOPPED;\n")
		fmt.Fprintf(buf, "                            when others => null;\n")
		fmt.Fprintf(buf, "                        end case;\n")
	}
}

// internalOrPortName resolves a descriptor to whichever VHDL signal name
// actually carries its live value: its port (if promoted) or its internal
// signal (if kept as communication-profile storage).
func internalOrPortName(p *plan.Plan, d *od.Descriptor) string {
	for _, port := range p.Ports {
		if port.Descriptor == d {
			return port.Name
		}
	}
	return vhdlfmt.Quote(d.CanonicalName)
}

// writeResetSignals emits the default-value assignments (zero where no
// default is given) for RESET_APP (manufacturer-profile rw/wo ports,
// index >= 0x2000, via their _buf registers) and RESET_COMM
// (communication-profile rw, index < 0x2000).
// Also handles the RESET_COMM Node-ID latch and BROADCAST_NODE_ID
// rejection ("invalid configuration").
func writeResetSignals(buf *bytes.Buffer, p *plan.Plan) {
	fmt.Fprintf(buf, "    process(Clock, Reset_n)\n")
	fmt.Fprintf(buf, "    begin\n")
	fmt.Fprintf(buf, "        if Reset_n = '0' then\n")
	fmt.Fprintf(buf, "            NodeId_q <= (others => '0');\n")
	fmt.Fprintf(buf, "            InvalidConfiguration_ob <= '0';\n")
	fmt.Fprintf(buf, "        elsif rising_edge(Clock) then\n")
	fmt.Fprintf(buf, "            if CurrentState = STATE_RESET_APP then\n")
	for _, d := range manufacturerWritable(p) {
		fmt.Fprintf(buf, "                %s <= %s;\n", internalBufferName(d), defaultLiteral(d))
	}
	fmt.Fprintf(buf, "            elsif CurrentState = STATE_RESET_COMM then\n")
	fmt.Fprintf(buf, "                if NodeId = CanOpen.BROADCAST_NODE_ID then\n")
	fmt.Fprintf(buf, "                    InvalidConfiguration_ob <= '1';\n")
	fmt.Fprintf(buf, "                else\n")
	fmt.Fprintf(buf, "                    NodeId_q <= NodeId;\n")
	fmt.Fprintf(buf, "                    InvalidConfiguration_ob <= '0';\n")
	fmt.Fprintf(buf, "                end if;\n")
	for _, d := range commProfileWritable(p) {
		fmt.Fprintf(buf, "                %s <= %s;\n", vhdlfmt.Quote(d.CanonicalName), defaultLiteral(d))
	}
	fmt.Fprintf(buf, "            end if;\n")
	fmt.Fprintf(buf, "        end if;\n")
	fmt.Fprintf(buf, "    end process;\n\n")
}

func manufacturerWritable(p *plan.Plan) []*od.Descriptor {
	var out []*od.Descriptor
	for _, port := range p.Ports {
		if port.Descriptor == nil || port.IsStrobe {
			continue
		}
		if port.Descriptor.Mux.Index() >= od.AreaManufacturerStart &&
			(port.Descriptor.AccessType == od.AccessRW || port.Descriptor.AccessType == od.AccessWO) {
			out = append(out, port.Descriptor)
		}
	}
	return out
}

func commProfileWritable(p *plan.Plan) []*od.Descriptor {
	var out []*od.Descriptor
	for _, d := range p.InternalSignals {
		if d.AccessType == od.AccessRW {
			out = append(out, d)
		}
	}
	return out
}

// defaultLiteral resolves a descriptor's default value to a VHDL literal,
// including the "$NODEID[+k]" symbolic form which adds k to the live
// NodeId_q register rather than using a pre-resolved constant.
func defaultLiteral(d *od.Descriptor) string {
	if d.DefaultValue == nil {
		return vhdlfmt.ZeroFill(d.BitLength())
	}
	if !d.DefaultValue.NodeIDOffset {
		return vhdlfmt.Literal(d.DefaultValue.Literal, d.BitLength())
	}
	return fmt.Sprintf("std_logic_vector(unsigned'(%s) + resize(NodeId_q, %d))", vhdlfmt.Literal(d.DefaultValue.Literal, d.BitLength()), d.BitLength())
}
