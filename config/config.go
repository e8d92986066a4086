// Package config holds the machine settings read from a TOML file.
//
// Example:
//
//	verbose = false
//	start = "x3000"
//	halt_notice = "HALT\n"
//	raw = true
//
//	[faults]
//	unknown-trap = "abort"
//	input-cancelled = "halt"
package config

import (
	"io"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/internal"
)

// Config is the machine configuration.
type Config struct {
	Verbose    bool              `toml:"verbose"`     // Per-instruction tracing.
	Start      string            `toml:"start"`       // Initial PC.
	HaltNotice string            `toml:"halt_notice"` // Written by the HALT trap.
	Raw        bool              `toml:"raw"`         // Raw terminal input when stdin is a terminal.
	Faults     map[string]string `toml:"faults"`      // Fault kind to action overrides.
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	return &Config{
		Start:      "x3000",
		HaltNotice: cpu.DEFAULT_HALT_NOTICE,
		Raw:        true,
	}
}

// Parse decodes a TOML document over the defaults.
func Parse(r io.Reader) (cfg *Config, err error) {
	cfg = Default()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		cfg = nil
		return
	}

	err = checkKeys(md)
	if err != nil {
		cfg = nil
	}
	return
}

// Load decodes the TOML file at path over the defaults.
func Load(path string) (cfg *Config, err error) {
	cfg = Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		cfg = nil
		return
	}

	err = checkKeys(md)
	if err != nil {
		cfg = nil
	}
	return
}

func checkKeys(md toml.MetaData) (err error) {
	undecoded := md.Undecoded()
	if len(undecoded) > 0 {
		err = ErrUnknownKey(undecoded[0].String())
	}
	return
}

// ParseAddress parses x3000, 0x3000, #12288 or 12288.
func ParseAddress(text string) (addr uint16, err error) {
	digits := text
	base := 0
	switch {
	case strings.HasPrefix(digits, "#"):
		digits = digits[1:]
		base = 10
	case strings.HasPrefix(digits, "x") || strings.HasPrefix(digits, "X"):
		digits = digits[1:]
		base = 16
	}

	value, perr := strconv.ParseUint(digits, base, 16)
	if perr != nil {
		err = ErrAddress(text)
		return
	}
	addr = uint16(value)
	return
}

// Policy returns the default fault policy with the [faults] overrides applied.
func (cfg *Config) Policy() (policy cpu.Policy, err error) {
	policy = cpu.DefaultPolicy()
	for name, value := range internal.SortedPairs(cfg.Faults) {
		var kind cpu.FaultKind
		var action cpu.FaultAction
		kind, err = cpu.ParseFaultKind(name)
		if err == nil {
			action, err = cpu.ParseFaultAction(value)
		}
		if err != nil {
			err = &ErrFault{Kind: name, Err: err}
			policy = nil
			return
		}
		policy[kind] = action
	}
	return
}

// Apply sets up a Cpu from the configuration.
func (cfg *Config) Apply(machine *cpu.Cpu) (err error) {
	start, err := ParseAddress(cfg.Start)
	if err != nil {
		return
	}
	policy, err := cfg.Policy()
	if err != nil {
		return
	}

	machine.Verbose = cfg.Verbose
	machine.Pc = start
	machine.Policy = policy
	machine.HaltNotice = cfg.HaltNotice

	return
}
