package cpu

import (
	"fmt"
	"io"
)

// MEMORY_SIZE is the number of addressable words.
const MEMORY_SIZE = 1 << 16

// Memory mapped device registers.
const (
	ADDR_KBSR = uint16(0xfe00) // Keyboard status; bit 15 set when a key is ready.
	ADDR_KBDR = uint16(0xfe02) // Keyboard data.

	KBSR_READY = uint16(1 << 15)
)

// Memory is the 64K-word store. Reads of KBSR and KBDR go to the Keyboard;
// writes are never intercepted.
type Memory struct {
	Data     [MEMORY_SIZE]uint16
	Keyboard Keyboard // Defaults to DEFAULT_KEYBOARD when nil.
}

// NewMemory creates a zeroed memory with the default keyboard.
func NewMemory() *Memory {
	return &Memory{Keyboard: DEFAULT_KEYBOARD}
}

func (mem *Memory) keyboard() Keyboard {
	if mem.Keyboard == nil {
		return DEFAULT_KEYBOARD
	}
	return mem.Keyboard
}

// Read returns the word at address.
// Only a KBDR read can fail, and only with a *Fault.
func (mem *Memory) Read(address uint16) (value uint16, err error) {
	switch address {
	case ADDR_KBSR:
		if mem.keyboard().Ready() {
			value = KBSR_READY
		}
	case ADDR_KBDR:
		var key byte
		key, err = mem.keyboard().ReadByte()
		if err != nil {
			err = deviceFault(err)
			return
		}
		value = uint16(key)
	default:
		value = mem.Data[address]
	}
	return
}

// Write stores value at address.
func (mem *Memory) Write(address uint16, value uint16) {
	mem.Data[address] = value
}

// Load copies words into memory starting at start, wrapping past 0xFFFF.
func (mem *Memory) Load(start uint16, words []uint16) {
	for n, word := range words {
		mem.Data[start+uint16(n)] = word
	}
}

// Dump writes the words in [start, end) to w, one per line.
// Device registers are shown as stored, without reading the keyboard.
func (mem *Memory) Dump(w io.Writer, start, end uint16) (err error) {
	_, err = fmt.Fprintf(w, "Memory dump from x%04X to x%04X\n", start, end)
	if err != nil {
		return
	}
	for addr := uint32(start); addr < uint32(end); addr++ {
		_, err = fmt.Fprintf(w, "x%04X:\tx%04X\n", addr, mem.Data[addr])
		if err != nil {
			return
		}
	}
	return
}
