// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/internal"
	"github.com/ezrec/lc3/loader"
)

var _emulator_defines = map[string]string{
	"MEMORY_SIZE": fmt.Sprintf("%v", cpu.MEMORY_SIZE),
	"KBSR_READY":  fmt.Sprintf("0x%x", cpu.KBSR_READY),
}

// Feeder moves host input into the keyboard until ctx is done.
type Feeder func(ctx context.Context) error

// Emulator state. CPU + memory + program listing.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Listing of the loaded assembly, for line numbers.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(nil),
		Program: &cpu.Program{},
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.Concat2(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Load fetches a program into memory.
// Assembly sources see the emulator defines, and their listing is kept.
func (emu *Emulator) Load(src loader.Source) (origin uint16, err error) {
	as, isAssembly := src.(*loader.Assembly)
	if isAssembly && as.Defines == nil {
		as.Defines = emu.Defines()
	}

	origin, err = loader.Load(emu.Cpu.Memory, src)
	if err != nil {
		return
	}

	if isAssembly {
		emu.Program = as.Program
	}

	if emu.Verbose {
		emu.Cpu.Logger().WithFields(logrus.Fields{
			"source": loader.Describe(src),
			"origin": fmt.Sprintf("x%04X", origin),
		}).Debug("emulator: loaded")
	}

	return
}

// Code returns the instruction at the PC.
func (emu *Emulator) Code() cpu.Code {
	return cpu.Code(emu.Cpu.Memory.Data[emu.Cpu.Pc])
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Statement == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if emu.Cpu.Halted() {
		done = true
		return
	}

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Pc: pc, LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Step()
	done = emu.Cpu.Halted()

	return
}

// Run ticks until the machine halts, a fault aborts it, or ctx is done.
// Each feeder runs in its own goroutine and is stopped when Run returns.
func (emu *Emulator) Run(ctx context.Context, feeders ...Feeder) (err error) {
	group, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, feed := range feeders {
		group.Go(func() error {
			err := feed(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	group.Go(func() error {
		defer cancel()
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			done, err := emu.Tick()
			if err != nil || done {
				return err
			}
		}
	})

	err = group.Wait()
	return
}
