// Package cpu implements the 16-bit register machine and assembler for vm16.
//
// The CPU consists of four 16-bit general-purpose registers (ax, bx, cx, dx),
// a stack pointer (sp), an instruction pointer (ip), and a flag word holding
// the Equal, Greater, Higher and Lower flags. Code and stack share a single
// 64KiB bounds-checked memory: programs are loaded at address 0, and the
// stack grows downward from the top of memory.
//
// Instructions are a one byte opcode tag followed by zero, one or two
// little-endian 16-bit operands. The encoded length is fixed by the tag.
//
// The assembler provides a small line-oriented assembly language for the
// vm16 instruction set, supporting labels, equates, character literals and
// compile-time expression evaluation.
package cpu
