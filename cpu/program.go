package cpu

import (
	"encoding/binary"
	"iter"
)

// Link is an unresolved label reference in a Statement's first code.
type Link struct {
	Label    string
	Width    uint // Field width in bits.
	Relative bool // PC relative offset, rather than an absolute address.
}

// Statement is a line of assembled code with its source location and
// generated words.
type Statement struct {
	LineNo int
	Addr   uint16
	Words  []string
	Codes  []Code
	Link   *Link
}

// Program is the output of the assembler.
type Program struct {
	Origin     uint16
	Statements []Statement
	Symbols    map[string]uint16
}

type Debug struct {
	*Statement
	Index int
}

// Debug finds the statement that generated the word at addr.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, st := range prog.Statements {
		if addr >= st.Addr && int(addr) < int(st.Addr)+len(st.Codes) {
			dbg = Debug{
				Statement: &prog.Statements[n],
				Index:     int(addr - st.Addr),
			}
			break
		}
	}

	return
}

// Codes iterates over every generated word and its address.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, st := range prog.Statements {
			for n, code := range st.Codes {
				if !yield(st.Addr+uint16(n), code) {
					return
				}
			}
		}
	}
}

// Words returns the program body, starting at Origin.
func (prog *Program) Words() (words []uint16) {
	for _, code := range prog.Codes() {
		words = append(words, uint16(code))
	}
	return
}

// Image returns the object file form: big-endian origin, then big-endian words.
func (prog *Program) Image() (image []byte) {
	image = binary.BigEndian.AppendUint16(image, prog.Origin)
	for _, word := range prog.Words() {
		image = binary.BigEndian.AppendUint16(image, word)
	}
	return
}
