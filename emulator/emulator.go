// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/vm16/cpu"
	"github.com/ezrec/vm16/internal"
)

const (
	DUMP_SIZE = 32 // Default number of bytes in the halt dump.
)

var _emulator_defines = map[string]string{
	"DUMP_SIZE": fmt.Sprintf("%v", DUMP_SIZE),
	"SIZE_NONE": fmt.Sprintf("%v", cpu.SIZE_NONE),
	"SIZE_A1":   fmt.Sprintf("%v", cpu.SIZE_A1),
}

// Emulator state. CPU + program listing.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Output   io.Writer // Destination of the halt dump, if not nil.
	DumpSize int       // Bytes of top-of-memory in the halt dump.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:      cpu.NewCpu(),
		Program:  &cpu.Program{},
		DumpSize: DUMP_SIZE,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Assembler returns an assembler with the emulator defines predefined.
func (emu *Emulator) Assembler() (asm *cpu.Assembler) {
	asm = &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	return
}

// Reset the machine, and load the program.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	err = emu.Cpu.Load(emu.Program)
	if err != nil {
		return
	}

	return
}

// LineNo returns the current line number for the executing instruction.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.IP)
	if dbg.Line == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator.
// done is set once the machine has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.Cpu.Verbose = emu.Verbose

	if emu.Cpu.State == cpu.STATE_HALTED {
		done = true
		return
	}

	ip := emu.Cpu.IP
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Ip: ip, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if err != nil {
		return
	}

	done = emu.Cpu.State == cpu.STATE_HALTED

	return
}

// Run ticks the emulator until it halts or faults.
// On a halt the diagnostic dump is written to Output.
func (emu *Emulator) Run() (err error) {
	var done bool
	for !done {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	if emu.Verbose {
		log.Printf("emulator: halted after %d ticks", emu.Cpu.Ticks)
	}

	if emu.Output != nil {
		err = emu.Dump(emu.Output)
	}

	return
}

// Dump writes the register state, and the top of memory in hex.
func (emu *Emulator) Dump(w io.Writer) (err error) {
	size := emu.DumpSize
	if size <= 0 {
		size = DUMP_SIZE
	}
	last := emu.Cpu.Memory.Len() - 1
	if size > last {
		size = last
	}

	view, err := emu.Cpu.Memory.View(last-size, size)
	if err != nil {
		return
	}

	hex := make([]string, len(view))
	for n, b := range view {
		hex[n] = fmt.Sprintf("%02x", b)
	}

	_, err = fmt.Fprintf(w, "%v\n%v\n", &emu.Cpu.Registers, strings.Join(hex, " "))

	return
}
