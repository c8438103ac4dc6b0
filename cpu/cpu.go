package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
)

// State is the execution state of the Cpu.
type State int

const (
	STATE_RUNNING = State(0) // running
	STATE_HALTED  = State(1) // halted
	STATE_FAULTED = State(2) // faulted
)

func (st State) String() string {
	switch st {
	case STATE_RUNNING:
		return "running"
	case STATE_HALTED:
		return "halted"
	case STATE_FAULTED:
		return "faulted"
	}
	return fmt.Sprintf("State(%d)", int(st))
}

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":  fmt.Sprintf("%d", MEMORY_SIZE),
	"STACK_TOP":    fmt.Sprintf("%d", STACK_TOP),
	"REG_AX":       fmt.Sprintf("%d", REG_AX),
	"REG_BX":       fmt.Sprintf("%d", REG_BX),
	"REG_CX":       fmt.Sprintf("%d", REG_CX),
	"REG_DX":       fmt.Sprintf("%d", REG_DX),
	"FLAG_EQUAL":   fmt.Sprintf("0x%x", uint16(FLAG_EQUAL)),
	"FLAG_GREATER": fmt.Sprintf("0x%x", uint16(FLAG_GREATER)),
	"FLAG_HIGHER":  fmt.Sprintf("0x%x", uint16(FLAG_HIGHER)),
	"FLAG_LOWER":   fmt.Sprintf("0x%x", uint16(FLAG_LOWER)),
}

// Cpu is the simulation context for the vm16 machine.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Registers         // Register file.
	Memory    *Memory // Code and stack memory.
	State     State   // Execution state.
	Fault     error   // Fault that stopped the Cpu, if State is STATE_FAULTED.
	Break     int     // First address past the loaded program.

	Ticks int // Instructions completed since reset.
}

// NewCpu creates a new CPU, in the reset state.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Memory: NewMemory(),
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Zeros memory and registers.
// - Sets SP to the top of memory, and IP to 0.
// - Enters the running state.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Registers.Reset()
	cpu.Memory.Reset()
	cpu.State = STATE_RUNNING
	cpu.Fault = nil
	cpu.Break = 0
	cpu.Ticks = 0
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"ip",
		"ax", "bx", "cx", "dx",
		"sp",
		"stack",
		"flags",
		"state",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "ip":
			strval = fmt.Sprintf("%04X", cpu.IP)
		case "ax":
			strval = fmt.Sprintf("%04X", cpu.AX)
		case "bx":
			strval = fmt.Sprintf("%04X", cpu.BX)
		case "cx":
			strval = fmt.Sprintf("%04X", cpu.CX)
		case "dx":
			strval = fmt.Sprintf("%04X", cpu.DX)
		case "sp":
			strval = fmt.Sprintf("%04X", cpu.SP)
		case "stack":
			val, ok := cpu.Peek()
			if ok {
				strval = fmt.Sprintf("%04X", val)
			} else {
				strval = "----"
			}
		case "flags":
			strval = ""
			for _, fl := range []Flag{FLAG_EQUAL, FLAG_GREATER, FLAG_HIGHER, FLAG_LOWER} {
				if cpu.Flag(fl) {
					strval += fl.String()[:1]
				} else {
					strval += "-"
				}
			}
		case "state":
			strval = cpu.State.String()
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}

// Load encodes a program into memory at address 0.
// Nothing is written if the program contains an unknown opcode, or if
// its encoding does not fit in memory.
func (cpu *Cpu) Load(prog *Program) (err error) {
	image, err := prog.Binary()
	if err != nil {
		return
	}

	if len(image) > cpu.Memory.Len() {
		err = ErrProgramTooLarge
		return
	}

	err = cpu.Memory.Load(0, image)
	if err != nil {
		return
	}

	cpu.Break = len(image)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d instructions, %d bytes", len(prog.Instructions), cpu.Break)
	}

	return
}

// Fetch decodes the instruction at IP.
// IP is not modified.
func (cpu *Cpu) Fetch() (ins Instruction, err error) {
	ins, _, err = Decode(cpu.Memory, int(cpu.IP))
	return
}

// Tick executes a single fetch, advance, and execute cycle.
//
// On a fault the Cpu enters STATE_FAULTED, and every later Tick
// returns the same *ErrFault. Tick returns ErrHalted once halted.
func (cpu *Cpu) Tick() (err error) {
	switch cpu.State {
	case STATE_HALTED:
		return ErrHalted
	case STATE_FAULTED:
		return cpu.Fault
	}

	ip := cpu.IP
	op := OP_NOP
	defer func() {
		if err != nil {
			err = &ErrFault{Ip: ip, Op: op, Err: err}
			cpu.State = STATE_FAULTED
			cpu.Fault = err
			if cpu.Verbose {
				log.Printf("cpu: %v", err)
			}
		}
	}()

	tag, err := cpu.Memory.Read(int(ip))
	if err != nil {
		return
	}
	op = Opcode(tag)

	ins, err := cpu.Fetch()
	if err != nil {
		return
	}

	// IP wraps past the top of memory, as the 16-bit register does.
	size, _ := ins.Size()
	cpu.IP += uint16(size)

	err = cpu.Execute(ins)
	if err != nil {
		return
	}

	cpu.Ticks++

	return
}

// Run ticks the Cpu until it halts or faults.
// A halt returns nil, a fault returns the *ErrFault.
func (cpu *Cpu) Run() (err error) {
	for cpu.State == STATE_RUNNING {
		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	if cpu.State == STATE_FAULTED {
		err = cpu.Fault
	}

	return
}

// Execute applies the effect of a single decoded instruction.
// IP must already address the following instruction.
func (cpu *Cpu) Execute(ins Instruction) (err error) {
	if cpu.Verbose {
		log.Printf("%04x: %v", cpu.IP, ins)
	}

	switch ins.Op {
	case OP_NOP:
		// pass
	case OP_HLT:
		cpu.State = STATE_HALTED
		if cpu.Verbose {
			log.Printf("cpu: halted %v", &cpu.Registers)
		}
	case OP_MOV_AX:
		cpu.AX = ins.A1
	case OP_MOV_BX:
		cpu.BX = ins.A1
	case OP_MOV_CX:
		cpu.CX = ins.A1
	case OP_MOV_DX:
		cpu.DX = ins.A1
	case OP_MOV_SP:
		cpu.SP = ins.A1
	case OP_ADD:
		cpu.AX += cpu.BX
	case OP_SUB:
		cpu.AX -= cpu.BX
	case OP_MUL:
		cpu.AX *= cpu.BX
	case OP_DIV:
		if cpu.BX == 0 {
			err = ErrDivisionByZero
			return
		}
		cpu.AX /= cpu.BX
	case OP_STE, OP_CLE:
		cpu.SetFlag(FLAG_EQUAL, ins.Op == OP_STE)
	case OP_STG, OP_CLG:
		cpu.SetFlag(FLAG_GREATER, ins.Op == OP_STG)
	case OP_STH, OP_CLH:
		cpu.SetFlag(FLAG_HIGHER, ins.Op == OP_STH)
	case OP_STL, OP_CLL:
		cpu.SetFlag(FLAG_LOWER, ins.Op == OP_STL)
	case OP_PUSH:
		var value uint16
		value, err = cpu.Get(Register(ins.A1))
		if err != nil {
			return
		}
		err = cpu.Push(value)
	case OP_POP:
		reg := Register(ins.A1)
		if !reg.Valid() {
			err = ErrInvalidOperand
			return
		}
		var value uint16
		value, err = cpu.Pop()
		if err != nil {
			return
		}
		err = cpu.Set(reg, value)
	default:
		err = ErrIllegalInstruction
	}

	return
}
