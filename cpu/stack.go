package cpu

const (
	STACK_TOP = MEMORY_SIZE - WORD_SIZE // Highest stack pointer a word can be popped from.
)

// Push a word onto the stack.
// The stack grows downward; SP addresses the most recently pushed word.
func (cpu *Cpu) Push(value uint16) (err error) {
	if cpu.SP < WORD_SIZE {
		err = ErrStackOverflow
		return
	}

	sp := cpu.SP - WORD_SIZE
	err = cpu.Memory.WriteWord(int(sp), value)
	if err != nil {
		return
	}

	cpu.SP = sp
	return
}

// Pop a word from the stack.
func (cpu *Cpu) Pop() (value uint16, err error) {
	if int(cpu.SP) > STACK_TOP {
		err = ErrStackUnderflow
		return
	}

	value, err = cpu.Memory.ReadWord(int(cpu.SP))
	if err != nil {
		return
	}

	cpu.SP += WORD_SIZE
	return
}

// Peek returns the word on the top of the stack, if any.
func (cpu *Cpu) Peek() (value uint16, ok bool) {
	if int(cpu.SP) > STACK_TOP {
		return
	}

	value, err := cpu.Memory.ReadWord(int(cpu.SP))
	ok = err == nil
	return
}
