// Package emit turns a validated object dictionary plan into a
// synthesizable VHDL entity: the node state-machine, PDO, SDO-server, and
// top-level frame-loader emitters.
//
// Emission follows eds2vhdl.py's fixed, deterministic order:
// entity/port declarations, then one process per behavioural
// concern, then the object-dictionary assignments. Every exported
// generator here is a pure function of its inputs, with file writes
// happening only at the caller.
package emit

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/bggardner/canopen-vhdl/pkg/od"
	"github.com/bggardner/canopen-vhdl/pkg/plan"
	"github.com/bggardner/canopen-vhdl/pkg/vhdlfmt"
)

// Config holds everything the emitter needs beyond the plan itself.
type Config struct {
	EntityName       string
	ClockFrequencyHz uint64 // CLOCK_FREQUENCY, drives the microsecond tick
}

// Generate runs the whole F-I pipeline and returns the VHDL entity text.
// Two calls with an identical Plan/Config produce byte-identical output.
func Generate(p *plan.Plan, cfg Config) (string, error) {
	if cfg.ClockFrequencyHz == 0 {
		return "", fmt.Errorf("emit: ClockFrequencyHz must be non-zero")
	}

	var buf bytes.Buffer

	fmt.Fprintf(&buf, "-- Generated by canopen-vhdl. Do not edit by hand.\n")
	fmt.Fprintf(&buf, "library IEEE;\n")
	fmt.Fprintf(&buf, "use IEEE.STD_LOGIC_1164.ALL;\n")
	fmt.Fprintf(&buf, "use IEEE.NUMERIC_STD.ALL;\n")
	fmt.Fprintf(&buf, "use work.CanOpen.ALL;\n")
	fmt.Fprintf(&buf, "use work.CanBus.ALL;\n\n")

	fmt.Fprintf(&buf, "entity %s is\n", cfg.EntityName)
	fmt.Fprintf(&buf, "    port (\n")
	writePortList(&buf, p)
	fmt.Fprintf(&buf, "    );\n")
	fmt.Fprintf(&buf, "end entity %s;\n\n", cfg.EntityName)

	fmt.Fprintf(&buf, "architecture RTL of %s is\n\n", cfg.EntityName)

	writeConstants(&buf, p)
	writeInternalSignals(&buf, p)
	writeFixedInternalSignals(&buf)
	writeRPDOTimeoutSignals(&buf, p)

	fmt.Fprintf(&buf, "begin\n\n")

	writeStateMachine(&buf, p, cfg)
	writeResetSignals(&buf, p)
	writeTimers(&buf, cfg)
	writeNMT(&buf, p)
	writeSync(&buf, p)
	writeEMCY(&buf, p)
	writeHeartbeatProducer(&buf, p)
	writeHeartbeatConsumers(&buf, p)
	for i := 1; i <= 4; i++ {
		writeTPDO(&buf, p, i)
	}
	writeRPDOTimeouts(&buf, p)
	writeFrameLoader(&buf, p)
	writeSDOServer(&buf, p)
	writeStatusRecord(&buf)
	writeODAssignments(&buf, p)

	fmt.Fprintf(&buf, "end architecture RTL;\n")

	return buf.String(), nil
}

// corePorts is the fixed port surface every generated entity carries,
// independent of the EDS.
func corePorts() []plan.Port {
	return []plan.Port{
		{Name: `\Clock\`, BareName: "Clock", Direction: plan.DirIn, VHDLType: "std_logic"},
		{Name: `\Reset_n\`, BareName: "Reset_n", Direction: plan.DirIn, VHDLType: "std_logic"},
		{Name: `\CanRx\`, BareName: "CanRx", Direction: plan.DirIn, VHDLType: "std_logic"},
		{Name: `\CanTx\`, BareName: "CanTx", Direction: plan.DirOut, VHDLType: "std_logic"},
		{Name: `\NodeId\`, BareName: "NodeId", Direction: plan.DirIn, VHDLType: "unsigned(6 downto 0)"},
		{Name: `\ErrorRegister\`, BareName: "ErrorRegister", Direction: plan.DirIn, VHDLType: "std_logic_vector(7 downto 0)"},
		{Name: `\Status\`, BareName: "Status", Direction: plan.DirOut, VHDLType: "CanOpen.StatusRecord"},
	}
}

func writePortList(buf *bytes.Buffer, p *plan.Plan) {
	all := append(corePorts(), p.Ports...)
	for i, port := range all {
		sep := ";"
		if i == len(all)-1 {
			sep = ""
		}
		fmt.Fprintf(buf, "        %s : %s %s%s\n", port.Name, port.Direction, port.VHDLType, sep)
	}
}

func writeConstants(buf *bytes.Buffer, p *plan.Plan) {
	if len(p.Constants) == 0 {
		return
	}
	fmt.Fprintf(buf, "    -- Constants folded from 'const' objects at generation time\n")
	for _, d := range sortedByMux(p.Constants) {
		lit := constantLiteral(d)
		fmt.Fprintf(buf, "    constant %s : %s := %s;\n", vhdlfmt.Quote(d.CanonicalName), d.Classification.VHDLType(), lit)
	}
	fmt.Fprintln(buf)
}

func constantLiteral(d *od.Descriptor) string {
	if d.DefaultValue == nil {
		return vhdlfmt.ZeroFill(d.BitLength())
	}
	return vhdlfmt.Literal(d.DefaultValue.Literal, d.BitLength())
}

func writeInternalSignals(buf *bytes.Buffer, p *plan.Plan) {
	if len(p.InternalSignals) == 0 {
		return
	}
	fmt.Fprintf(buf, "    -- Communication-profile storage, reset on RESET_COMM if writable\n")
	for _, d := range sortedByMux(p.InternalSignals) {
		fmt.Fprintf(buf, "    signal %s : %s;\n", vhdlfmt.Quote(d.CanonicalName), d.Classification.VHDLType())
	}
	fmt.Fprintln(buf)
}

// writeFixedInternalSignals declares the signals every generated entity
// needs regardless of the EDS: the FSM state register, the resolved
// Node-ID latch, timer counters, and interrupt lines.
func writeFixedInternalSignals(buf *bytes.Buffer) {
	fmt.Fprintf(buf, `    type StateType is (
        STATE_RESET, STATE_RESET_APP, STATE_RESET_COMM,
        STATE_BOOTUP, STATE_BOOTUP_WAIT, STATE_IDLE,
        STATE_CAN_RX_STROBE, STATE_CAN_RX_READ,
        STATE_CAN_TX_STROBE, STATE_CAN_TX_WAIT,
        STATE_SYNC, STATE_EMCY,
        STATE_TPDO1, STATE_TPDO2, STATE_TPDO3, STATE_TPDO4,
        STATE_SDO_RX, STATE_SDO_TX, STATE_HEARTBEAT
    );
    signal CurrentState, NextState : StateType := STATE_RESET;

    signal NodeId_q               : unsigned(6 downto 0);
    signal NmtState_ob            : std_logic_vector(7 downto 0) := CanOpen.NMT_STATE_INITIALISATION;
    signal InvalidConfiguration_ob : std_logic := '0';
    signal CommunicationError_ob  : std_logic := '0';
    signal SyncError_ob           : std_logic := '0';
    signal EventTimerError_ob     : std_logic := '0';

    signal TickUs, TickHundredUs, TickMs : std_logic;

    signal EmcyEec                : std_logic_vector(15 downto 0) := x"0000";
    signal SyncInterrupt, EmcyInterrupt, HeartbeatInterrupt, SdoTxInterrupt : std_logic := '0';
    signal Tpdo1Interrupt, Tpdo2Interrupt, Tpdo3Interrupt, Tpdo4Interrupt : std_logic := '0';
    signal RxFifoReadEnable, TxFifoWriteEnable : std_logic;

    signal Tpdo1Payload, Tpdo2Payload, Tpdo3Payload, Tpdo4Payload : std_logic_vector(63 downto 0) := (others => '0');
    signal Tpdo1Bits, Tpdo2Bits, Tpdo3Bits, Tpdo4Bits : natural := 0;

    signal HeartbeatConsumerTimeout : std_logic := '0';
    signal SdoSync1019Written, SdoHeartbeat1017Written : std_logic := '0';
    signal SdoInterrupt : std_logic := '0';

    -- CAN controller interface (opaque collaborator)
    signal CanStatus_ib            : CanBus.StatusType;
    signal RxFifoEmpty, RxFifoOverflow : std_logic;
    signal RxCobId                 : unsigned(10 downto 0);
    signal RxData                  : CanBus.FrameData;
    signal RxDlc                   : natural range 0 to 8;
    signal TxAck                   : std_logic;
    signal TxCobId                 : unsigned(10 downto 0);
    signal TxData                  : CanBus.FrameData := (others => (others => '0'));
    signal TxDlc                   : natural range 0 to 8 := 0;
    signal SdoTxFrame              : CanBus.FrameData := (others => (others => '0'));

`)
}

func sortedByMux(ds []*od.Descriptor) []*od.Descriptor {
	out := make([]*od.Descriptor, len(ds))
	copy(out, ds)
	sort.Slice(out, func(i, j int) bool { return out[i].Mux < out[j].Mux })
	return out
}

// writeODAssignments emits the final object-dictionary wiring section:
// each promoted rw/wo port is driven from its _buf register. The wo _strb
// ports are not driven here (no process in this package assigns them),
// and no limit predicates are emitted here; range checks exist only in the
// SDO download case.
func writeODAssignments(buf *bytes.Buffer, p *plan.Plan) {
	fmt.Fprintf(buf, "    -- Object dictionary port wiring\n")
	for _, port := range p.Ports {
		if port.Descriptor == nil || port.IsStrobe {
			continue
		}
		d := port.Descriptor
		switch d.AccessType {
		case od.AccessRO:
			// Driven entirely from outside; nothing to wire here beyond
			// what the SDO server reads directly from the port.
		case od.AccessRW, od.AccessWO:
			fmt.Fprintf(buf, "    %s <= %s;\n", vhdlfmt.Quote(d.CanonicalName), internalBufferName(d))
		}
	}
	fmt.Fprintln(buf)
}

// internalBufferName is the hidden storage register backing a promoted
// rw/wo port's SDO-writable value.
func internalBufferName(d *od.Descriptor) string {
	return vhdlfmt.Quote(d.CanonicalName + "_buf")
}
