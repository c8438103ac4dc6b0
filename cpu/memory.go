package cpu

import (
	"encoding/binary"
	"slices"
)

const (
	MEMORY_SIZE = 0x1_0000 // Bytes of addressable memory.
	WORD_SIZE   = 2        // Bytes in a machine word.
)

// Memory is the bounds-checked byte addressable store of a Cpu.
// All accesses outside of [0, MEMORY_SIZE) fail with ErrOutOfBounds.
type Memory struct {
	data []byte
}

// NewMemory creates a new zeroed memory.
func NewMemory() (mem *Memory) {
	mem = &Memory{
		data: make([]byte, MEMORY_SIZE),
	}

	return
}

// Len returns the capacity of the memory.
func (mem *Memory) Len() int {
	return len(mem.data)
}

// Reset zeros the memory.
func (mem *Memory) Reset() {
	clear(mem.data)
}

// check validates that [addr, addr+n) lies within memory.
func (mem *Memory) check(addr int, n int) (err error) {
	if addr < 0 || n < 0 || addr+n > len(mem.data) {
		err = ErrOutOfBounds
	}
	return
}

// Read a byte.
func (mem *Memory) Read(addr int) (value byte, err error) {
	err = mem.check(addr, 1)
	if err != nil {
		return
	}

	value = mem.data[addr]
	return
}

// Write a byte.
func (mem *Memory) Write(addr int, value byte) (err error) {
	err = mem.check(addr, 1)
	if err != nil {
		return
	}

	mem.data[addr] = value
	return
}

// ReadWord reads a little-endian word.
func (mem *Memory) ReadWord(addr int) (value uint16, err error) {
	err = mem.check(addr, WORD_SIZE)
	if err != nil {
		return
	}

	value = binary.LittleEndian.Uint16(mem.data[addr:])
	return
}

// WriteWord writes a little-endian word.
func (mem *Memory) WriteWord(addr int, value uint16) (err error) {
	err = mem.check(addr, WORD_SIZE)
	if err != nil {
		return
	}

	binary.LittleEndian.PutUint16(mem.data[addr:], value)
	return
}

// Load copies data into memory at addr.
// Nothing is written if any part of data would fall outside of memory.
func (mem *Memory) Load(addr int, data []byte) (err error) {
	err = mem.check(addr, len(data))
	if err != nil {
		return
	}

	copy(mem.data[addr:], data)
	return
}

// View returns a copy of n bytes starting at addr.
func (mem *Memory) View(addr int, n int) (view []byte, err error) {
	err = mem.check(addr, n)
	if err != nil {
		return
	}

	view = slices.Clone(mem.data[addr : addr+n])
	return
}
