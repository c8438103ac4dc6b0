// Package config handles vm16.toml machine configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/vm16/translate"
)

var f = translate.From

var (
	ErrFaultPolicy = errors.New(f("fault policy must be \"exit\" or \"report\""))
	ErrDumpSize    = errors.New(f("dump-size out of range"))
	ErrUnknownKey  = errors.New(f("unknown configuration key"))
)

// Fault policies.
const (
	FAULT_EXIT   = "exit"   // Report the fault, and exit non-zero.
	FAULT_REPORT = "report" // Report the fault, and carry on.
)

// Upper bound on dump-size, one less than the memory size.
const DUMP_SIZE_MAX = 0xffff

// Config is the machine configuration.
type Config struct {
	Verbose  bool   `toml:"verbose"`
	Fault    string `toml:"fault"`
	DumpSize int    `toml:"dump-size"`
	Snapshot string `toml:"snapshot"` // Snapshot output path, if set.

	// Path is the file the configuration was loaded from, if any.
	Path string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() (cfg *Config) {
	cfg = &Config{
		Fault:    FAULT_EXIT,
		DumpSize: 32,
	}
	return
}

// Parse decodes a configuration from TOML text, on top of the defaults.
func Parse(text string) (cfg *Config, err error) {
	cfg = Default()

	md, err := toml.Decode(text, cfg)
	if err != nil {
		cfg = nil
		return
	}

	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for n, key := range undecoded {
			keys[n] = key.String()
		}
		cfg = nil
		err = fmt.Errorf("%w: %v", ErrUnknownKey, strings.Join(keys, ", "))
		return
	}

	err = cfg.Validate()
	if err != nil {
		cfg = nil
		return
	}

	return
}

// Load reads a configuration file.
func Load(path string) (cfg *Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("cannot read %s: %w", path, err)
		return
	}

	cfg, err = Parse(string(data))
	if err != nil {
		err = fmt.Errorf("parse error in %s: %w", path, err)
		return
	}

	cfg.Path = path

	return
}

// Validate checks the configuration values.
func (cfg *Config) Validate() (err error) {
	switch cfg.Fault {
	case FAULT_EXIT, FAULT_REPORT:
	default:
		err = ErrFaultPolicy
		return
	}

	if cfg.DumpSize < 1 || cfg.DumpSize > DUMP_SIZE_MAX {
		err = ErrDumpSize
		return
	}

	return
}

// ReportOnly returns true if faults should not terminate the process.
func (cfg *Config) ReportOnly() bool {
	return cfg.Fault == FAULT_REPORT
}
