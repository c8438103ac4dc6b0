// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ezrec/vm16/config"
	"github.com/ezrec/vm16/emulator"
	"github.com/ezrec/vm16/monitor"
)

// options are the command line settings.
type options struct {
	compile     string
	demo        bool
	interactive bool
	verbose     bool
	report      bool
	config      string
	snapshot    string
	restore     string

	input io.Reader // Monitor commands, if not stdin.
}

func main() {
	var opts options

	flag.StringVar(&opts.compile, "c", "", ".asm file to assemble and run")
	flag.BoolVar(&opts.demo, "demo", false, "Run the built-in demo programs")
	flag.BoolVar(&opts.interactive, "i", false, "Interactive monitor")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose mode")
	flag.BoolVar(&opts.report, "k", false, "Report faults, but keep going")
	flag.StringVar(&opts.config, "config", "", ".toml configuration file")
	flag.StringVar(&opts.snapshot, "snapshot", "", "Write a machine snapshot on exit")
	flag.StringVar(&opts.restore, "restore", "", "Resume from a machine snapshot")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	cfg := config.Default()
	if len(opts.config) != 0 {
		var err error
		cfg, err = config.Load(opts.config)
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	os.Exit(run(opts, cfg, os.Stdout, os.Stderr))
}

// apply merges command line overrides into the configuration.
func (opts options) apply(cfg *config.Config) {
	if opts.verbose {
		cfg.Verbose = true
	}
	if opts.report {
		cfg.Fault = config.FAULT_REPORT
	}
	if len(opts.snapshot) != 0 {
		cfg.Snapshot = opts.snapshot
	}
}

// run executes the selected mode, and returns the process exit status.
func run(opts options, cfg *config.Config, stdout io.Writer, stderr io.Writer) (status int) {
	opts.apply(cfg)

	if cfg.Verbose {
		log.Printf("vm16: config %+v", *cfg)
	}

	if opts.demo {
		faults, err := runDemos(cfg, stdout, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "vm16: %v\n", err)
			return 1
		}
		if faults != 0 && !cfg.ReportOnly() {
			return 1
		}
		return 0
	}

	emu := emulator.NewEmulator()
	emu.Verbose = cfg.Verbose
	emu.DumpSize = cfg.DumpSize
	emu.Output = stdout

	// Assemble a new instruction stream.
	if len(opts.compile) != 0 {
		inf, err := os.Open(opts.compile)
		if err != nil {
			fmt.Fprintf(stderr, "vm16: %v\n", err)
			return 1
		}
		defer inf.Close()

		asm := emu.Assembler()
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			fmt.Fprintf(stderr, "vm16: %v: %v\n", opts.compile, err)
			return 1
		}
	}

	err := emu.Reset()
	if err != nil {
		fmt.Fprintf(stderr, "vm16: %v\n", err)
		return 1
	}

	if len(opts.restore) != 0 {
		data, err := os.ReadFile(opts.restore)
		if err == nil {
			err = emu.Restore(data)
		}
		if err != nil {
			fmt.Fprintf(stderr, "vm16: %v: %v\n", opts.restore, err)
			return 1
		}
	}

	if opts.interactive {
		mon := monitor.NewMonitor(emu)
		mon.Verbose = cfg.Verbose
		mon.Output = stdout
		if opts.input != nil {
			mon.Input = opts.input
		}
		err = mon.Run()
	} else {
		err = emu.Run()
	}

	if err != nil {
		fmt.Fprintf(stderr, "vm16: %v\n", err)
		if !cfg.ReportOnly() {
			status = 1
		}
	}

	if len(cfg.Snapshot) != 0 {
		data, serr := emu.Snapshot()
		if serr == nil {
			serr = os.WriteFile(cfg.Snapshot, data, 0o644)
		}
		if serr != nil {
			fmt.Fprintf(stderr, "vm16: %v: %v\n", cfg.Snapshot, serr)
			status = 1
		}
	}

	return
}
