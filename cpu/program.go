package cpu

import (
	"iter"
)

// Line is the source location of an assembled instruction.
type Line struct {
	LineNo int      // Source line number.
	Addr   int      // Address of the instruction once loaded.
	Words  []string // Source words.
}

// Program is an ordered list of decoded instructions, loaded at address 0.
type Program struct {
	Instructions []Instruction
	Lines        []Line // Optional; parallel to Instructions when assembled.
}

type Debug struct {
	*Instruction
	*Line // nil if the program has no source lines.
	Index int
}

// Debug locates the instruction whose encoding covers addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, at := range prog.Addresses() {
		size, _ := prog.Instructions[n].Size()
		if int(addr) >= at && int(addr) < at+size {
			dbg = Debug{
				Instruction: &prog.Instructions[n],
				Index:       n,
			}
			if n < len(prog.Lines) {
				dbg.Line = &prog.Lines[n]
			}
			break
		}
	}

	return
}

// Addresses iterates over the instruction indexes and their load addresses.
// Iteration stops at the first instruction outside of the instruction set.
func (prog *Program) Addresses() iter.Seq2[int, int] {
	return func(yield func(index int, addr int) bool) {
		addr := 0
		for n, ins := range prog.Instructions {
			size, err := ins.Size()
			if err != nil {
				return
			}
			if !yield(n, addr) {
				return
			}
			addr += size
		}
	}
}

// Binary encodes the program as it will be laid out in memory.
func (prog *Program) Binary() (image []byte, err error) {
	for _, ins := range prog.Instructions {
		var code []byte
		code, err = ins.Encode()
		if err != nil {
			image = nil
			return
		}
		image = append(image, code...)
	}

	return
}
