package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ezrec/vm16/config"
	"github.com/ezrec/vm16/emulator"
)

// demo is a titled sample program.
type demo struct {
	title  string
	source []string
}

var demos = []demo{
	{"Basic MOV and HLT", []string{
		"mov ax 0x1234",
		"hlt",
	}},
	{"PUSH & POP", []string{
		"mov ax 0xabcd",
		"push ax",
		"pop bx",
		"hlt",
	}},
	{"Flag Set/Clear", []string{
		"ste",
		"stg",
		"sth",
		"stl",
		"clg",
		"cll",
		"hlt",
	}},
	{"Multiple MOVs", []string{
		"mov ax 0xaaaa",
		"mov bx 0x5005",
		"mov cx 0xf00d",
		"mov dx 0xdead",
		"hlt",
	}},
	{"Arithmetic: ADD AX + BX", []string{
		"mov ax 0x0011",
		"mov bx 0x0009",
		"add ; 0x001a",
		"hlt",
	}},
	{"Arithmetic: SUB AX - BX", []string{
		"mov ax 0x0015",
		"mov bx 0x0005",
		"sub ; 0x0010",
		"hlt",
	}},
	{"Arithmetic: MUL AX * BX", []string{
		"mov ax 0x0003",
		"mov bx 0x0004",
		"mul ; 0x000c",
		"hlt",
	}},
	{"Arithmetic: DIV AX / BX", []string{
		"mov ax 0x0020",
		"mov bx 0x0004",
		"div ; 0x0008",
		"hlt",
	}},
	{"Arithmetic: DIV by zero (error)", []string{
		"mov ax 0x0020",
		"mov bx 0x0000",
		"div",
		"hlt",
	}},
}

// runDemos runs each demo program in its own machine.
// With the exit fault policy, the first fault stops the demos.
func runDemos(cfg *config.Config, stdout io.Writer, stderr io.Writer) (faults int, err error) {
	for _, d := range demos {
		emu := emulator.NewEmulator()
		emu.Verbose = cfg.Verbose
		emu.DumpSize = cfg.DumpSize
		emu.Output = stdout

		asm := emu.Assembler()
		prog, aerr := asm.Parse(strings.NewReader(strings.Join(d.source, "\n")))
		if aerr != nil {
			err = fmt.Errorf("%v: %w", d.title, aerr)
			return
		}
		emu.Program = prog

		fmt.Fprintf(stdout, "===============================\n")
		fmt.Fprintf(stdout, "Running Program: %v\n", d.title)
		fmt.Fprintf(stdout, "===============================\n")

		err = emu.Reset()
		if err != nil {
			return
		}

		rerr := emu.Run()
		fmt.Fprintln(stdout)
		if rerr != nil {
			faults++
			fmt.Fprintf(stderr, "vm16: %v\n", rerr)
			if !cfg.ReportOnly() {
				return
			}
		}
	}

	return
}
