package cpu

import (
	"fmt"
	"strings"
)

// Opcode is the tag byte of an encoded instruction.
type Opcode uint8

const (
	OP_NOP    = Opcode(0x01) // nop
	OP_HLT    = Opcode(0x02) // hlt
	OP_MOV_AX = Opcode(0x08) // mov ax
	OP_MOV_BX = Opcode(0x09) // mov bx
	OP_MOV_CX = Opcode(0x0a) // mov cx
	OP_MOV_DX = Opcode(0x0b) // mov dx
	OP_MOV_SP = Opcode(0x0c) // mov sp
	OP_STE    = Opcode(0x10) // ste
	OP_CLE    = Opcode(0x11) // cle
	OP_STG    = Opcode(0x12) // stg
	OP_CLG    = Opcode(0x13) // clg
	OP_STH    = Opcode(0x14) // sth
	OP_CLH    = Opcode(0x15) // clh
	OP_STL    = Opcode(0x16) // stl
	OP_CLL    = Opcode(0x17) // cll
	OP_PUSH   = Opcode(0x1a) // push
	OP_POP    = Opcode(0x1b) // pop
	OP_ADD    = Opcode(0x20) // add
	OP_SUB    = Opcode(0x21) // sub
	OP_MUL    = Opcode(0x22) // mul
	OP_DIV    = Opcode(0x23) // div
)

// Encoded instruction lengths.
const (
	SIZE_NONE = 1 // Tag only.
	SIZE_A1   = 3 // Tag and one operand.
	SIZE_A2   = 5 // Tag and two operands. Reserved; no opcode uses it yet.
)

// opcodeInfo describes a member of the instruction set.
type opcodeInfo struct {
	name string
	size int
}

// instructionSet is the immutable opcode table.
var instructionSet = map[Opcode]opcodeInfo{
	OP_NOP:    {"nop", SIZE_NONE},
	OP_HLT:    {"hlt", SIZE_NONE},
	OP_MOV_AX: {"mov ax", SIZE_A1},
	OP_MOV_BX: {"mov bx", SIZE_A1},
	OP_MOV_CX: {"mov cx", SIZE_A1},
	OP_MOV_DX: {"mov dx", SIZE_A1},
	OP_MOV_SP: {"mov sp", SIZE_A1},
	OP_STE:    {"ste", SIZE_NONE},
	OP_CLE:    {"cle", SIZE_NONE},
	OP_STG:    {"stg", SIZE_NONE},
	OP_CLG:    {"clg", SIZE_NONE},
	OP_STH:    {"sth", SIZE_NONE},
	OP_CLH:    {"clh", SIZE_NONE},
	OP_STL:    {"stl", SIZE_NONE},
	OP_CLL:    {"cll", SIZE_NONE},
	OP_PUSH:   {"push", SIZE_A1},
	OP_POP:    {"pop", SIZE_A1},
	OP_ADD:    {"add", SIZE_NONE},
	OP_SUB:    {"sub", SIZE_NONE},
	OP_MUL:    {"mul", SIZE_NONE},
	OP_DIV:    {"div", SIZE_NONE},
}

// Size returns the encoded length of the opcode.
// ok is false for tags outside of the instruction set.
func (op Opcode) Size() (size int, ok bool) {
	info, ok := instructionSet[op]
	if ok {
		size = info.size
	}
	return
}

// Valid returns true if the opcode is in the instruction set.
func (op Opcode) Valid() bool {
	_, ok := instructionSet[op]
	return ok
}

func (op Opcode) String() string {
	info, ok := instructionSet[op]
	if ok {
		return info.name
	}
	return fmt.Sprintf("Opcode(0x%02x)", uint8(op))
}

// LookupMnemonic finds the opcode for an assembler mnemonic, such as "add"
// or "mov cx".
func LookupMnemonic(mnemonic string) (op Opcode, ok bool) {
	mnemonic = strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
	for code, info := range instructionSet {
		if info.name == mnemonic {
			return code, true
		}
	}
	return
}

// Instruction is a decoded instruction.
type Instruction struct {
	Op Opcode // Operation tag.
	A1 uint16 // First operand, for SIZE_A1 and SIZE_A2 opcodes.
	A2 uint16 // Second operand, for SIZE_A2 opcodes. Reserved.
}

// Size returns the encoded length of the instruction.
func (ins Instruction) Size() (size int, err error) {
	size, ok := ins.Op.Size()
	if !ok {
		err = ErrIllegalInstruction
	}
	return
}

// Encode returns the little-endian byte encoding of the instruction.
// Operands not used by the opcode are not encoded.
func (ins Instruction) Encode() (code []byte, err error) {
	size, err := ins.Size()
	if err != nil {
		return
	}

	code = make([]byte, 0, size)
	code = append(code, byte(ins.Op))
	if size >= SIZE_A1 {
		code = append(code, byte(ins.A1), byte(ins.A1>>8))
	}
	if size >= SIZE_A2 {
		code = append(code, byte(ins.A2), byte(ins.A2>>8))
	}

	return
}

// String returns the assembly language representation of this instruction.
func (ins Instruction) String() (out string) {
	size, ok := ins.Op.Size()
	switch {
	case !ok:
		out = ins.Op.String()
	case ins.Op == OP_PUSH || ins.Op == OP_POP:
		out = fmt.Sprintf("%v %v", ins.Op, Register(ins.A1))
	case size == SIZE_A1:
		out = fmt.Sprintf("%v 0x%04x", ins.Op, ins.A1)
	case size == SIZE_A2:
		out = fmt.Sprintf("%v 0x%04x 0x%04x", ins.Op, ins.A1, ins.A2)
	default:
		out = ins.Op.String()
	}

	return
}

// Decode the instruction at addr in memory, returning the instruction
// and its encoded length.
func Decode(mem *Memory, addr int) (ins Instruction, size int, err error) {
	tag, err := mem.Read(addr)
	if err != nil {
		return
	}

	op := Opcode(tag)
	size, ok := op.Size()
	if !ok {
		err = ErrIllegalInstruction
		return
	}

	ins, err = decodeSized(mem, addr, op, size)
	return
}

// decodeSized extracts the operands of an instruction of the given length.
func decodeSized(mem *Memory, addr int, op Opcode, size int) (ins Instruction, err error) {
	ins.Op = op

	if size >= SIZE_A1 {
		ins.A1, err = mem.ReadWord(addr + 1)
		if err != nil {
			return
		}
	}

	if size >= SIZE_A2 {
		ins.A2, err = mem.ReadWord(addr + 3)
		if err != nil {
			return
		}
	}

	return
}
