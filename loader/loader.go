// Package loader fetches programs into machine memory.
//
// Every program source, whether an object image, a literal word list, or
// assembly text, implements Source, so the machine never cares where its
// program came from.
package loader

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"iter"

	"github.com/ezrec/lc3/cpu"
)

// Source provides a program: its load address and its words.
type Source interface {
	Fetch() (origin uint16, words []uint16, err error)
}

// Image is an object file: a big-endian origin word, then big-endian words.
type Image struct {
	Reader io.Reader
}

var _ Source = (*Image)(nil)

// Fetch reads and decodes the whole image.
func (img *Image) Fetch() (origin uint16, words []uint16, err error) {
	if img.Reader == nil {
		err = ErrSourceMissing
		return
	}

	data, err := io.ReadAll(img.Reader)
	if err != nil {
		return
	}

	origin, words, err = decodeImage(data)
	return
}

func decodeImage(data []byte) (origin uint16, words []uint16, err error) {
	if len(data) < 2 {
		err = ErrImageShort
		return
	}
	if len(data)%2 != 0 {
		err = ErrImageOdd
		return
	}

	origin = binary.BigEndian.Uint16(data)
	data = data[2:]
	if int(origin)+len(data)/2 > cpu.MEMORY_SIZE {
		err = ErrImageOverflow
		return
	}

	words = make([]uint16, len(data)/2)
	for n := range words {
		words[n] = binary.BigEndian.Uint16(data[n*2:])
	}

	return
}

// File is an object image in a file system.
type File struct {
	FS   fs.FS
	Name string
}

var _ Source = (*File)(nil)

func (fl *File) Fetch() (origin uint16, words []uint16, err error) {
	if fl.FS == nil {
		err = ErrSourceMissing
		return
	}

	data, err := fs.ReadFile(fl.FS, fl.Name)
	if err != nil {
		return
	}

	return decodeImage(data)
}

// Literal is a program given directly as words.
type Literal struct {
	Origin uint16
	Words  []uint16
}

var _ Source = (*Literal)(nil)

func (lit *Literal) Fetch() (origin uint16, words []uint16, err error) {
	if int(lit.Origin)+len(lit.Words) > cpu.MEMORY_SIZE {
		err = ErrImageOverflow
		return
	}
	return lit.Origin, lit.Words, nil
}

// Assembly is assembler source text.
// After a successful Fetch, Program holds the listing for debugging.
type Assembly struct {
	Verbose bool
	Reader  io.Reader
	Defines iter.Seq2[string, string] // Extra equates, may be nil.

	Program *cpu.Program
}

var _ Source = (*Assembly)(nil)

func (as *Assembly) Fetch() (origin uint16, words []uint16, err error) {
	if as.Reader == nil {
		err = ErrSourceMissing
		return
	}

	asm := &cpu.Assembler{Verbose: as.Verbose}
	if as.Defines != nil {
		for key, value := range as.Defines {
			asm.Predefine(key, value)
		}
	}

	prog, err := asm.Parse(as.Reader)
	if err != nil {
		return
	}

	as.Program = prog
	return prog.Origin, prog.Words(), nil
}

// Load fetches src into mem.
func Load(mem *cpu.Memory, src Source) (origin uint16, err error) {
	origin, words, err := src.Fetch()
	if err != nil {
		err = &ErrLoad{Source: Describe(src), Err: err}
		return
	}

	mem.Load(origin, words)
	return
}

// Describe names a source for diagnostics.
func Describe(src Source) string {
	switch src := src.(type) {
	case *File:
		return src.Name
	case *Literal:
		return fmt.Sprintf("literal x%04X", src.Origin)
	case *Image:
		return "image"
	case *Assembly:
		return "assembly"
	}
	return fmt.Sprintf("%T", src)
}
