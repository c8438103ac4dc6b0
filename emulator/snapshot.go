package emulator

import (
	"errors"
	"fmt"
	"log"

	"github.com/fxamacker/cbor/v2"

	"github.com/ezrec/vm16/cpu"
)

const SNAPSHOT_VERSION = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("emulator: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// faultKinds names the machine faults a snapshot can carry.
var faultKinds = map[string]error{
	"illegal-instruction": cpu.ErrIllegalInstruction,
	"invalid-operand":     cpu.ErrInvalidOperand,
	"division-by-zero":    cpu.ErrDivisionByZero,
	"stack-overflow":      cpu.ErrStackOverflow,
	"stack-underflow":     cpu.ErrStackUnderflow,
	"out-of-bounds":       cpu.ErrOutOfBounds,
}

// snapshotFault is the serialized form of a *cpu.ErrFault.
type snapshotFault struct {
	Ip   uint16 `cbor:"ip"`
	Op   uint8  `cbor:"op"`
	Kind string `cbor:"kind"`
}

// snapshot is the serialized machine image.
type snapshot struct {
	Version   int            `cbor:"version"`
	Registers cpu.Registers  `cbor:"registers"`
	State     int            `cbor:"state"`
	Fault     *snapshotFault `cbor:"fault,omitempty"`
	Break     int            `cbor:"break"`
	Ticks     int            `cbor:"ticks"`
	Memory    []byte         `cbor:"memory"`
}

// Snapshot serializes the machine, so that it can be resumed by Restore.
func (emu *Emulator) Snapshot() (data []byte, err error) {
	c := emu.Cpu

	memory, err := c.Memory.View(0, c.Memory.Len())
	if err != nil {
		return
	}

	snap := &snapshot{
		Version:   SNAPSHOT_VERSION,
		Registers: c.Registers,
		State:     int(c.State),
		Break:     c.Break,
		Ticks:     c.Ticks,
		Memory:    memory,
	}

	if c.Fault != nil {
		var fault *cpu.ErrFault
		if !errors.As(c.Fault, &fault) {
			err = ErrSnapshotFault
			return
		}
		snap.Fault = &snapshotFault{Ip: fault.Ip, Op: uint8(fault.Op)}
		for kind, sentinel := range faultKinds {
			if errors.Is(fault.Err, sentinel) {
				snap.Fault.Kind = kind
				break
			}
		}
		if len(snap.Fault.Kind) == 0 {
			err = ErrSnapshotFault
			return
		}
	}

	data, err = cborEncMode.Marshal(snap)
	if err != nil {
		err = fmt.Errorf("emulator: marshal snapshot: %w", err)
		return
	}

	if emu.Verbose {
		log.Printf("emulator: snapshot %d bytes", len(data))
	}

	return
}

// Restore replaces the machine state with a serialized snapshot.
// The machine is unchanged on error.
func (emu *Emulator) Restore(data []byte) (err error) {
	var snap snapshot
	err = cbor.Unmarshal(data, &snap)
	if err != nil {
		err = fmt.Errorf("emulator: unmarshal snapshot: %w", err)
		return
	}

	if snap.Version != SNAPSHOT_VERSION {
		err = ErrSnapshotVersion
		return
	}

	c := emu.Cpu
	if len(snap.Memory) != c.Memory.Len() {
		err = ErrSnapshotMemory
		return
	}

	state := cpu.State(snap.State)
	switch state {
	case cpu.STATE_RUNNING, cpu.STATE_HALTED, cpu.STATE_FAULTED:
	default:
		err = ErrSnapshotState
		return
	}

	// A faulted machine, and only a faulted machine, carries its fault.
	if (state == cpu.STATE_FAULTED) != (snap.Fault != nil) {
		err = ErrSnapshotState
		return
	}

	if snap.Break < 0 || snap.Break > c.Memory.Len() {
		err = ErrSnapshotState
		return
	}

	var fault error
	if snap.Fault != nil {
		kind, ok := faultKinds[snap.Fault.Kind]
		if !ok {
			err = ErrSnapshotFault
			return
		}
		fault = &cpu.ErrFault{Ip: snap.Fault.Ip, Op: cpu.Opcode(snap.Fault.Op), Err: kind}
	}

	err = c.Memory.Load(0, snap.Memory)
	if err != nil {
		return
	}

	c.Registers = snap.Registers
	c.State = state
	c.Fault = fault
	c.Break = snap.Break
	c.Ticks = snap.Ticks

	return
}
