// Package monitor is an interactive debugger for the vm16 emulator.
package monitor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/ezrec/vm16/cpu"
	"github.com/ezrec/vm16/emulator"
	"github.com/ezrec/vm16/translate"
)

var f = translate.From

var (
	ErrCommandUnknown = errors.New(f("unknown command"))
	ErrCommandArgs    = errors.New(f("bad command arguments"))
)

const (
	MEM_DEFAULT = 16 // Default byte count for 'mem'.
	DIS_COUNT   = 8  // Instructions listed by 'dis'.
)

const help = `step [n]       execute n instructions (default 1)
run            run until halt or fault
regs           show registers
flags          show flags
mem ADDR [N]   hex dump N bytes at ADDR
dis [ADDR]     disassemble at ADDR (default ip)
reset          reset and reload the program
quit           leave the monitor
`

// Monitor drives an emulator from a command line.
type Monitor struct {
	Verbose     bool
	Emulator    *emulator.Emulator
	Input       io.Reader
	Output      io.Writer
	Prompt      string
	HistoryFile string // readline history, if set.
}

// NewMonitor creates a monitor on stdin and stdout.
func NewMonitor(emu *emulator.Emulator) (mon *Monitor) {
	mon = &Monitor{
		Emulator: emu,
		Input:    os.Stdin,
		Output:   os.Stdout,
		Prompt:   "vm16> ",
	}
	return
}

func (mon *Monitor) printf(format string, args ...any) {
	fmt.Fprintf(mon.Output, format, args...)
}

// parseNumber parses an address or count.
func parseNumber(word string, limit int) (value int, err error) {
	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil || v64 < 0 || v64 > int64(limit) {
		err = fmt.Errorf("%w: %v", ErrCommandArgs, word)
		return
	}
	value = int(v64)
	return
}

// Exec executes a single monitor command.
func (mon *Monitor) Exec(line string) (quit bool, err error) {
	emu := mon.Emulator

	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}

	if mon.Verbose {
		log.Printf("monitor: %v", words)
	}

	cmd := strings.ToLower(words[0])
	args := words[1:]

	switch cmd {
	case "quit", "exit", "q":
		quit = true
	case "help", "?":
		mon.printf("%s", help)
	case "step", "s":
		if len(args) > 1 {
			err = ErrCommandArgs
			return
		}
		count := 1
		if len(args) == 1 {
			count, err = parseNumber(args[0], 1<<30)
			if err != nil {
				return
			}
		}
		err = mon.step(count)
	case "run", "r":
		if len(args) != 0 {
			err = ErrCommandArgs
			return
		}
		err = mon.run()
	case "regs":
		if len(args) != 0 {
			err = ErrCommandArgs
			return
		}
		mon.printf("%v", emu.Cpu)
	case "flags":
		if len(args) != 0 {
			err = ErrCommandArgs
			return
		}
		for _, fl := range []cpu.Flag{cpu.FLAG_EQUAL, cpu.FLAG_GREATER, cpu.FLAG_HIGHER, cpu.FLAG_LOWER} {
			value := 0
			if emu.Cpu.Flag(fl) {
				value = 1
			}
			mon.printf("% 7s: %d\n", fl, value)
		}
	case "mem", "m":
		err = mon.mem(args)
	case "dis", "d":
		err = mon.dis(args)
	case "reset":
		if len(args) != 0 {
			err = ErrCommandArgs
			return
		}
		err = emu.Reset()
	default:
		err = fmt.Errorf("%w: %v", ErrCommandUnknown, words[0])
	}

	return
}

func (mon *Monitor) step(count int) (err error) {
	emu := mon.Emulator

	for range count {
		ins, ferr := emu.Cpu.Fetch()
		if ferr == nil && emu.Cpu.State == cpu.STATE_RUNNING {
			mon.printf("%04x: %v\n", emu.Cpu.IP, ins)
		}

		var done bool
		done, err = emu.Tick()
		if err != nil {
			return
		}
		if done {
			mon.printf("%v\n", f("halted"))
			return
		}
	}

	return
}

func (mon *Monitor) run() (err error) {
	emu := mon.Emulator

	var done bool
	for !done {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	err = emu.Dump(mon.Output)

	return
}

func (mon *Monitor) mem(args []string) (err error) {
	if len(args) < 1 || len(args) > 2 {
		err = ErrCommandArgs
		return
	}

	memory := mon.Emulator.Cpu.Memory

	addr, err := parseNumber(args[0], memory.Len()-1)
	if err != nil {
		return
	}

	count := MEM_DEFAULT
	if len(args) == 2 {
		count, err = parseNumber(args[1], memory.Len())
		if err != nil {
			return
		}
	}
	count = min(count, memory.Len()-addr)

	view, err := memory.View(addr, count)
	if err != nil {
		return
	}

	for len(view) > 0 {
		row := view[:min(16, len(view))]
		hex := make([]string, len(row))
		for n, b := range row {
			hex[n] = fmt.Sprintf("%02x", b)
		}
		mon.printf("%04x: %v\n", addr, strings.Join(hex, " "))
		addr += len(row)
		view = view[len(row):]
	}

	return
}

func (mon *Monitor) dis(args []string) (err error) {
	if len(args) > 1 {
		err = ErrCommandArgs
		return
	}

	memory := mon.Emulator.Cpu.Memory

	addr := int(mon.Emulator.Cpu.IP)
	if len(args) == 1 {
		addr, err = parseNumber(args[0], memory.Len()-1)
		if err != nil {
			return
		}
	}

	for range DIS_COUNT {
		ins, size, derr := cpu.Decode(memory, addr)
		if derr != nil {
			mon.printf("%04x: %v\n", addr, derr)
			return
		}
		mon.printf("%04x: %v\n", addr, ins)
		addr += size
		if addr >= memory.Len() {
			return
		}
	}

	return
}

// Run reads and executes commands until quit or end of input.
// Command errors are reported, and do not stop the monitor.
// If the machine is left faulted, Run returns its fault.
func (mon *Monitor) Run() (err error) {
	file, ok := mon.Input.(*os.File)
	if ok && term.IsTerminal(int(file.Fd())) {
		err = mon.runReadline()
	} else {
		err = mon.runScanner()
	}
	if err != nil {
		return
	}

	if mon.Emulator.Cpu.State == cpu.STATE_FAULTED {
		err = mon.Emulator.Cpu.Fault
	}

	return
}

func (mon *Monitor) runScanner() (err error) {
	scanner := bufio.NewScanner(mon.Input)
	for scanner.Scan() {
		if mon.execLine(scanner.Text()) {
			return
		}
	}

	err = scanner.Err()

	return
}

func (mon *Monitor) runReadline() (err error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      mon.Prompt,
		HistoryFile: mon.HistoryFile,
		Stdout:      mon.Output,
	})
	if err != nil {
		return
	}
	defer rl.Close()

	for {
		line, rerr := rl.Readline()
		if rerr != nil {
			// io.EOF or readline.ErrInterrupt
			return
		}
		if mon.execLine(line) {
			return
		}
	}
}

// execLine executes a command line, reporting any error.
func (mon *Monitor) execLine(line string) (quit bool) {
	quit, err := mon.Exec(line)
	if err != nil {
		mon.printf("%v\n", err)
	}
	return
}
