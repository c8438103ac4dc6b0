package cpu

import (
	"fmt"
)

// Register selects a general-purpose register, as used by push and pop.
type Register uint16

const (
	REG_AX = Register(0) // ax
	REG_BX = Register(1) // bx
	REG_CX = Register(2) // cx
	REG_DX = Register(3) // dx
)

var registerName = [...]string{"ax", "bx", "cx", "dx"}

func (reg Register) String() string {
	if int(reg) < len(registerName) {
		return registerName[reg]
	}
	return fmt.Sprintf("Register(%d)", uint16(reg))
}

// Valid returns true if the register selector names a general-purpose register.
func (reg Register) Valid() bool {
	return int(reg) < len(registerName)
}

// Flag is a bit mask of the flag word.
type Flag uint16

// The flags are free-standing state. No instruction derives them from
// a comparison, and no instruction branches on them.
const (
	FLAG_LOWER   = Flag(0x01) // lower
	FLAG_HIGHER  = Flag(0x02) // higher
	FLAG_GREATER = Flag(0x04) // greater
	FLAG_EQUAL   = Flag(0x08) // equal
)

var flagName = map[Flag]string{
	FLAG_LOWER:   "lower",
	FLAG_HIGHER:  "higher",
	FLAG_GREATER: "greater",
	FLAG_EQUAL:   "equal",
}

func (fl Flag) String() string {
	name, ok := flagName[fl]
	if ok {
		return name
	}
	return fmt.Sprintf("Flag(0x%x)", uint16(fl))
}

const (
	SP_RESET = uint16(0xffff) // Stack pointer after reset.
	IP_RESET = uint16(0x0000) // Instruction pointer after reset.
)

// Registers is the register file of the Cpu.
type Registers struct {
	AX    uint16 // Primary accumulator.
	BX    uint16 // Base.
	CX    uint16 // Count.
	DX    uint16 // Data.
	SP    uint16 // Stack pointer.
	IP    uint16 // Instruction pointer.
	Flags uint16 // Flag word.
}

// Reset the register file.
func (r *Registers) Reset() {
	*r = Registers{
		SP: SP_RESET,
		IP: IP_RESET,
	}
}

// reg returns a reference to a general-purpose register.
func (r *Registers) reg(reg Register) (ref *uint16, err error) {
	switch reg {
	case REG_AX:
		ref = &r.AX
	case REG_BX:
		ref = &r.BX
	case REG_CX:
		ref = &r.CX
	case REG_DX:
		ref = &r.DX
	default:
		err = ErrInvalidOperand
	}
	return
}

// Get a general-purpose register.
func (r *Registers) Get(reg Register) (value uint16, err error) {
	ref, err := r.reg(reg)
	if err != nil {
		return
	}

	value = *ref
	return
}

// Set a general-purpose register.
func (r *Registers) Set(reg Register, value uint16) (err error) {
	ref, err := r.reg(reg)
	if err != nil {
		return
	}

	*ref = value
	return
}

// Flag returns true if the flag is set.
func (r *Registers) Flag(fl Flag) bool {
	return (r.Flags & uint16(fl)) != 0
}

// SetFlag sets or clears a single flag, leaving the others untouched.
func (r *Registers) SetFlag(fl Flag, on bool) {
	if on {
		r.Flags |= uint16(fl)
	} else {
		r.Flags &= ^uint16(fl)
	}
}

// String returns the register file as a single line.
func (r *Registers) String() string {
	return fmt.Sprintf("AX: 0x%04x, BX: 0x%04x, CX: 0x%04x, DX: 0x%04x, SP: 0x%04x, IP: 0x%04x, FLAGS: %04b",
		r.AX, r.BX, r.CX, r.DX, r.SP, r.IP, r.Flags&0xf)
}
