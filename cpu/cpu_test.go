package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func runProgram(t *testing.T, program []Instruction) (cpu *Cpu, err error) {
	cpu = NewCpu()

	err = cpu.Load(&Program{Instructions: program})
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	err = cpu.Run()
	return
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	assert.Equal(STATE_RUNNING, cpu.State)
	assert.Equal(uint16(0xffff), cpu.SP)
	assert.Equal(uint16(0), cpu.IP)
	assert.Equal(uint16(0), cpu.Flags)
	assert.Equal(MEMORY_SIZE, cpu.Memory.Len())

	cpu.AX = 1
	cpu.SP = 2
	cpu.State = STATE_HALTED
	cpu.Memory.Write(10, 0xaa)
	cpu.Reset()

	assert.Equal(uint16(0), cpu.AX)
	assert.Equal(uint16(0xffff), cpu.SP)
	assert.Equal(STATE_RUNNING, cpu.State)
	value, err := cpu.Memory.Read(10)
	assert.NoError(err)
	assert.Equal(byte(0), value)
}

func TestCpuPrograms(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []Instruction
		regs    Registers
	}){
		{"mov_hlt",
			[]Instruction{{Op: OP_MOV_AX, A1: 0x1234}, {Op: OP_HLT}},
			Registers{AX: 0x1234, SP: 0xffff, IP: 4}},
		{"push_pop",
			[]Instruction{{Op: OP_MOV_AX, A1: 0xabcd}, {Op: OP_PUSH, A1: 0}, {Op: OP_POP, A1: 1}, {Op: OP_HLT}},
			Registers{AX: 0xabcd, BX: 0xabcd, SP: 0xffff, IP: 10}},
		{"flags",
			[]Instruction{{Op: OP_STE}, {Op: OP_STG}, {Op: OP_STH}, {Op: OP_STL}, {Op: OP_CLG}, {Op: OP_CLL}, {Op: OP_HLT}},
			Registers{Flags: uint16(FLAG_EQUAL | FLAG_HIGHER), SP: 0xffff, IP: 7}},
		{"multiple_mov",
			[]Instruction{{Op: OP_MOV_AX, A1: 0xaaaa}, {Op: OP_MOV_BX, A1: 0x5005}, {Op: OP_MOV_CX, A1: 0xf00d}, {Op: OP_MOV_DX, A1: 0xdead}, {Op: OP_HLT}},
			Registers{AX: 0xaaaa, BX: 0x5005, CX: 0xf00d, DX: 0xdead, SP: 0xffff, IP: 13}},
		{"add",
			[]Instruction{{Op: OP_MOV_AX, A1: 0x0011}, {Op: OP_MOV_BX, A1: 0x0009}, {Op: OP_ADD}, {Op: OP_HLT}},
			Registers{AX: 0x001a, BX: 0x0009, SP: 0xffff, IP: 8}},
		{"sub",
			[]Instruction{{Op: OP_MOV_AX, A1: 0x0015}, {Op: OP_MOV_BX, A1: 0x0005}, {Op: OP_SUB}, {Op: OP_HLT}},
			Registers{AX: 0x0010, BX: 0x0005, SP: 0xffff, IP: 8}},
		{"sub_wrap",
			[]Instruction{{Op: OP_MOV_AX, A1: 0x0001}, {Op: OP_MOV_BX, A1: 0x0002}, {Op: OP_SUB}, {Op: OP_HLT}},
			Registers{AX: 0xffff, BX: 0x0002, SP: 0xffff, IP: 8}},
		{"mul",
			[]Instruction{{Op: OP_MOV_AX, A1: 0x0003}, {Op: OP_MOV_BX, A1: 0x0004}, {Op: OP_MUL}, {Op: OP_HLT}},
			Registers{AX: 0x000c, BX: 0x0004, SP: 0xffff, IP: 8}},
		{"mul_wrap",
			[]Instruction{{Op: OP_MOV_AX, A1: 0x1000}, {Op: OP_MOV_BX, A1: 0x0011}, {Op: OP_MUL}, {Op: OP_HLT}},
			Registers{AX: 0x1000, BX: 0x0011, SP: 0xffff, IP: 8}},
		{"div",
			[]Instruction{{Op: OP_MOV_AX, A1: 0x0020}, {Op: OP_MOV_BX, A1: 0x0004}, {Op: OP_DIV}, {Op: OP_HLT}},
			Registers{AX: 0x0008, BX: 0x0004, SP: 0xffff, IP: 8}},
		{"nop_mov_sp",
			[]Instruction{{Op: OP_NOP}, {Op: OP_MOV_SP, A1: 0x8000}, {Op: OP_HLT}},
			Registers{SP: 0x8000, IP: 5}},
	}

	for _, entry := range table {
		cpu, err := runProgram(t, entry.program)
		assert.NoError(err, entry.name)
		assert.Equal(STATE_HALTED, cpu.State, entry.name)
		assert.Equal(entry.regs, cpu.Registers, entry.name)
		assert.Equal(len(entry.program), cpu.Ticks, entry.name)
	}
}

func TestCpuDivisionByZero(t *testing.T) {
	assert := assert.New(t)

	cpu, err := runProgram(t, []Instruction{
		{Op: OP_MOV_AX, A1: 0x0020},
		{Op: OP_MOV_BX, A1: 0x0000},
		{Op: OP_DIV},
		{Op: OP_HLT},
	})

	assert.ErrorIs(err, ErrDivisionByZero)
	assert.Equal(STATE_FAULTED, cpu.State)
	assert.Equal(uint16(0x0020), cpu.AX)

	var fault *ErrFault
	assert.True(errors.As(err, &fault))
	assert.Equal(uint16(6), fault.Ip)
	assert.Equal(OP_DIV, fault.Op)

	// Faults are sticky.
	assert.Equal(err, cpu.Tick())
	assert.Equal(err, cpu.Run())
}

func TestCpuIllegalInstruction(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	err := cpu.Load(&Program{Instructions: []Instruction{
		{Op: OP_MOV_AX, A1: 0x4321},
		{Op: OP_STG},
	}})
	assert.NoError(err)

	// Overwrite the hlt slot with an unknown tag.
	assert.NoError(cpu.Memory.Write(cpu.Break, 0xff))

	err = cpu.Run()
	assert.ErrorIs(err, ErrIllegalInstruction)
	assert.Equal(STATE_FAULTED, cpu.State)

	want := Registers{AX: 0x4321, SP: 0xffff, IP: 4, Flags: uint16(FLAG_GREATER)}
	assert.Equal(want, cpu.Registers)
	assert.Equal(2, cpu.Ticks)

	var fault *ErrFault
	assert.True(errors.As(err, &fault))
	assert.Equal(Opcode(0xff), fault.Op)
	assert.Equal(uint16(4), fault.Ip)
}

func TestCpuIllegalZeroTag(t *testing.T) {
	assert := assert.New(t)

	// Zeroed memory is not a run of no-ops.
	cpu := NewCpu()
	err := cpu.Tick()
	assert.ErrorIs(err, ErrIllegalInstruction)
	assert.Equal(uint16(0), cpu.IP)
}

func TestCpuExecuteUnknown(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	for _, op := range []Opcode{0x00, 0x03, 0x0d, 0x18, 0x24, 0xff} {
		err := cpu.Execute(Instruction{Op: op})
		assert.ErrorIs(err, ErrIllegalInstruction, op.String())
	}
}

func TestCpuInvalidOperand(t *testing.T) {
	assert := assert.New(t)

	for _, op := range []Opcode{OP_PUSH, OP_POP} {
		cpu, err := runProgram(t, []Instruction{
			{Op: OP_MOV_AX, A1: 0x1111},
			{Op: OP_PUSH, A1: 0},
			{Op: op, A1: 4},
			{Op: OP_HLT},
		})
		assert.ErrorIs(err, ErrInvalidOperand, op.String())
		assert.NotErrorIs(err, ErrIllegalInstruction, op.String())
		assert.Equal(uint16(0xfffd), cpu.SP, op.String())
	}
}

func TestCpuHaltedTick(t *testing.T) {
	assert := assert.New(t)

	cpu, err := runProgram(t, []Instruction{{Op: OP_HLT}})
	assert.NoError(err)
	assert.ErrorIs(cpu.Tick(), ErrHalted)
	assert.NoError(cpu.Run())
	assert.Equal(uint16(1), cpu.IP)
}

func TestCpuFetchPastEnd(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.IP = 0xfffe
	assert.NoError(cpu.Memory.Write(0xfffe, byte(OP_MOV_AX)))

	_, err := cpu.Fetch()
	assert.ErrorIs(err, ErrOutOfBounds)

	err = cpu.Tick()
	assert.ErrorIs(err, ErrOutOfBounds)
	assert.Equal(uint16(0xfffe), cpu.IP)
	assert.Equal(uint16(0), cpu.AX)
}

func TestCpuFetchTopOfMemory(t *testing.T) {
	assert := assert.New(t)

	// Operands ending on the last byte of memory are in bounds.
	cpu := NewCpu()
	cpu.IP = 0xfffd
	assert.NoError(cpu.Memory.Load(0xfffd, []byte{byte(OP_MOV_AX), 0x34, 0x12}))

	ins, err := cpu.Fetch()
	assert.NoError(err)
	assert.Equal(Instruction{Op: OP_MOV_AX, A1: 0x1234}, ins)

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x1234), cpu.AX)
	assert.Equal(uint16(0), cpu.IP)

	// A one byte instruction at the last address.
	cpu = NewCpu()
	cpu.IP = 0xffff
	assert.NoError(cpu.Memory.Write(0xffff, byte(OP_HLT)))
	assert.NoError(cpu.Run())
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal(uint16(0), cpu.IP)
}

func TestCpuFullMemoryProgram(t *testing.T) {
	assert := assert.New(t)

	program := make([]Instruction, MEMORY_SIZE)
	for n := range program {
		program[n] = Instruction{Op: OP_NOP}
	}
	program[len(program)-1] = Instruction{Op: OP_HLT}

	cpu, err := runProgram(t, program)
	assert.NoError(err)
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal(MEMORY_SIZE, cpu.Ticks)
	assert.Equal(uint16(0), cpu.IP)
}

func TestCpuMove(t *testing.T) {
	assert := assert.New(t)

	movs := map[Opcode]func(cpu *Cpu) uint16{
		OP_MOV_AX: func(cpu *Cpu) uint16 { return cpu.AX },
		OP_MOV_BX: func(cpu *Cpu) uint16 { return cpu.BX },
		OP_MOV_CX: func(cpu *Cpu) uint16 { return cpu.CX },
		OP_MOV_DX: func(cpu *Cpu) uint16 { return cpu.DX },
		OP_MOV_SP: func(cpu *Cpu) uint16 { return cpu.SP },
	}

	cpu := NewCpu()
	for op, get := range movs {
		for _, value := range []uint16{0, 1, 0x7fff, 0x8000, 0xabcd, 0xffff} {
			err := cpu.Execute(Instruction{Op: op, A1: value})
			assert.NoError(err)
			assert.Equal(value, get(cpu), op.String())
		}
	}
}

func TestCpuFlagOps(t *testing.T) {
	assert := assert.New(t)

	ops := []struct {
		op   Opcode
		flag Flag
		on   bool
	}{
		{OP_STE, FLAG_EQUAL, true},
		{OP_CLE, FLAG_EQUAL, false},
		{OP_STG, FLAG_GREATER, true},
		{OP_CLG, FLAG_GREATER, false},
		{OP_STH, FLAG_HIGHER, true},
		{OP_CLH, FLAG_HIGHER, false},
		{OP_STL, FLAG_LOWER, true},
		{OP_CLL, FLAG_LOWER, false},
	}

	for initial := range uint16(16) {
		for _, entry := range ops {
			cpu := NewCpu()
			cpu.Flags = initial
			err := cpu.Execute(Instruction{Op: entry.op})
			assert.NoError(err)

			want := initial &^ uint16(entry.flag)
			if entry.on {
				want |= uint16(entry.flag)
			}
			assert.Equal(want, cpu.Flags, "%v from %04b", entry.op, initial)
		}
	}
}

func TestCpuString(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.AX = 0x1234
	cpu.SetFlag(FLAG_GREATER, true)

	text := cpu.String()
	assert.Contains(text, "   ax: 1234\n")
	assert.Contains(text, "stack: ----\n")
	assert.Contains(text, "flags: -g--\n")
	assert.Contains(text, "state: running\n")

	assert.NoError(cpu.Push(0xbeef))
	assert.Contains(cpu.String(), "stack: BEEF\n")
}

func TestCpuDefines(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	defines := map[string]string{}
	for key, value := range cpu.Defines() {
		defines[key] = value
	}

	assert.Equal("65536", defines["MEMORY_SIZE"])
	assert.Equal("3", defines["REG_DX"])
	_, ok := defines["DX"]
	assert.False(ok)
	assert.Equal("0x8", defines["FLAG_EQUAL"])
}
