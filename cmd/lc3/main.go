// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ezrec/lc3/config"
	"github.com/ezrec/lc3/emulator"
	"github.com/ezrec/lc3/io"
	"github.com/ezrec/lc3/loader"
)

// parseRange parses lo:hi into a half open address range.
func parseRange(text string) (lo, hi uint16, err error) {
	before, after, ok := strings.Cut(text, ":")
	if !ok {
		err = config.ErrAddress(text)
		return
	}
	lo, err = config.ParseAddress(before)
	if err != nil {
		return
	}
	hi, err = config.ParseAddress(after)
	return
}

func run() (err error) {
	var configPath string
	var compile string
	var save string
	var input string
	var dump string
	var pc string
	var verbose bool
	var raw bool

	flag.StringVar(&configPath, "config", "", "TOML configuration file")
	flag.StringVar(&compile, "c", "", ".asm file to assemble and load")
	flag.StringVar(&save, "o", "", "Save the assembled object image, do not execute")
	flag.StringVar(&input, "i", "", "Keyboard input file, instead of the terminal")
	flag.StringVar(&dump, "dump", "", "Dump registers and memory lo:hi after the run")
	flag.StringVar(&pc, "pc", "", "Initial PC (default x3000)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&raw, "raw", true, "Raw terminal input")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %v [flags] [image.obj...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Default()
	if len(configPath) != 0 {
		cfg, err = config.Load(configPath)
		if err != nil {
			return
		}
	}

	// Flags given on the command line win over the configuration file.
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "v":
			cfg.Verbose = verbose
		case "raw":
			cfg.Raw = raw
		case "pc":
			cfg.Start = pc
		}
	})

	if cfg.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	emu := emulator.NewEmulator()
	emu.Verbose = cfg.Verbose
	err = cfg.Apply(emu.Cpu)
	if err != nil {
		return
	}

	for _, image := range flag.Args() {
		var path string
		path, err = filepath.Abs(image)
		if err != nil {
			return
		}
		dir, name := filepath.Split(path)
		_, err = emu.Load(&loader.File{FS: os.DirFS(dir), Name: name})
		if err != nil {
			return
		}
	}

	// Assemble a new program.
	if len(compile) != 0 {
		var inf *os.File
		inf, err = os.Open(compile)
		if err != nil {
			return
		}
		defer inf.Close()

		_, err = emu.Load(&loader.Assembly{Verbose: cfg.Verbose, Reader: inf})
		if err != nil {
			return
		}
	}

	if len(save) != 0 {
		err = os.WriteFile(save, emu.Program.Image(), 0o644)
		return
	}

	var dumpLo, dumpHi uint16
	if len(dump) != 0 {
		dumpLo, dumpHi, err = parseRange(dump)
		if err != nil {
			return
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var feeders []emulator.Feeder
	var tty *io.Terminal

	if len(input) != 0 {
		var inf *os.File
		inf, err = os.Open(input)
		if err != nil {
			return
		}
		defer inf.Close()
		emu.Cpu.Memory.Keyboard = &io.Tape{Input: inf}
		emu.Cpu.Display = os.Stdout
	} else {
		if cfg.Raw {
			tty, err = io.OpenTerminal(os.Stdin, os.Stdout)
			if errors.Is(err, io.ErrNoTerminal) {
				tty, err = nil, nil
			}
			if err != nil {
				return
			}
		}

		if tty != nil {
			// Restores the terminal on every way out of run, panics included.
			defer tty.Close()
			emu.Cpu.Memory.Keyboard = tty
			emu.Cpu.Display = tty
			feeders = append(feeders, tty.Feed)
		} else {
			queue := io.NewQueue(io.QUEUE_DEFAULT_CAPACITY)
			emu.Cpu.Memory.Keyboard = queue
			emu.Cpu.Display = os.Stdout
			feeders = append(feeders, func(ctx context.Context) error {
				return queue.Feed(ctx, os.Stdin)
			})
		}
	}

	err = emu.Run(ctx, feeders...)

	if tty != nil {
		if cerr := tty.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	if len(dump) != 0 {
		fmt.Print(emu.Cpu.String())
		derr := emu.Cpu.Memory.Dump(os.Stdout, dumpLo, dumpHi)
		err = errors.Join(err, derr)
	}

	return
}

func main() {
	err := run()
	if err != nil {
		logrus.Errorf("%v: %v", os.Args[0], err)
		os.Exit(1)
	}
}
