package loader

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/cpu"
)

func TestImage(t *testing.T) {
	assert := assert.New(t)

	img := &Image{Reader: bytes.NewReader([]byte{0x30, 0x00, 0xe0, 0x02, 0xf0, 0x25})}
	origin, words, err := img.Fetch()
	assert.NoError(err)
	assert.Equal(uint16(0x3000), origin)
	if diff := cmp.Diff([]uint16{0xe002, 0xf025}, words); diff != "" {
		t.Errorf("words (-want +got):\n%s", diff)
	}

	// Origin only is an empty program.
	img = &Image{Reader: bytes.NewReader([]byte{0x40, 0x00})}
	origin, words, err = img.Fetch()
	assert.NoError(err)
	assert.Equal(uint16(0x4000), origin)
	assert.Len(words, 0)
}

func TestImageErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		data []byte
		err  error
	}){
		{nil, ErrImageShort},
		{[]byte{0x30}, ErrImageShort},
		{[]byte{0x30, 0x00, 0x12}, ErrImageOdd},
		{[]byte{0xff, 0xff, 0x00, 0x01, 0x00, 0x02}, ErrImageOverflow},
	}

	for _, entry := range table {
		mem := cpu.NewMemory()
		_, err := Load(mem, &Image{Reader: bytes.NewReader(entry.data)})
		assert.ErrorIs(err, entry.err, "% x", entry.data)

		var errLoad *ErrLoad
		if assert.True(errors.As(err, &errLoad)) {
			assert.Equal("image", errLoad.Source)
		}
	}

	// The last word of memory can be loaded.
	_, words, err := (&Image{Reader: bytes.NewReader([]byte{0xff, 0xff, 0x12, 0x34})}).Fetch()
	assert.NoError(err)
	assert.Equal([]uint16{0x1234}, words)
}

func TestFile(t *testing.T) {
	assert := assert.New(t)

	fsys := fstest.MapFS{
		"hello.obj": &fstest.MapFile{Data: []byte{0x30, 0x00, 0xf0, 0x25}},
	}

	mem := cpu.NewMemory()
	origin, err := Load(mem, &File{FS: fsys, Name: "hello.obj"})
	assert.NoError(err)
	assert.Equal(uint16(0x3000), origin)
	assert.Equal(uint16(0xf025), mem.Data[0x3000])

	_, err = Load(mem, &File{FS: fsys, Name: "missing.obj"})
	assert.ErrorIs(err, fs.ErrNotExist)
	assert.Contains(err.Error(), "missing.obj")
}

func TestLiteral(t *testing.T) {
	assert := assert.New(t)

	mem := cpu.NewMemory()
	origin, err := Load(mem, &Literal{Origin: 0x3000, Words: []uint16{0xe002, 0xf022, 0xf025}})
	assert.NoError(err)
	assert.Equal(uint16(0x3000), origin)
	if diff := cmp.Diff([]uint16{0xe002, 0xf022, 0xf025, 0}, mem.Data[0x3000:0x3004]); diff != "" {
		t.Errorf("memory (-want +got):\n%s", diff)
	}

	_, err = Load(mem, &Literal{Origin: 0xffff, Words: []uint16{1, 2}})
	assert.ErrorIs(err, ErrImageOverflow)
}

func TestAssembly(t *testing.T) {
	assert := assert.New(t)

	src := &Assembly{
		Reader: strings.NewReader(strings.Join([]string{
			".ORIG START",
			"LEA R0, MSG",
			"PUTS",
			"HALT",
			"MSG .STRINGZ \"hi\"",
		}, "\n")),
		Defines: func(yield func(string, string) bool) {
			yield("START", "x4000")
		},
	}

	mem := cpu.NewMemory()
	origin, err := Load(mem, src)
	assert.NoError(err)
	assert.Equal(uint16(0x4000), origin)
	if assert.NotNil(src.Program) {
		assert.Equal(uint16(0x4003), src.Program.Symbols["MSG"])
	}
	if diff := cmp.Diff([]uint16{0xe002, 0xf022, 0xf025, 'h', 'i', 0}, mem.Data[0x4000:0x4006]); diff != "" {
		t.Errorf("memory (-want +got):\n%s", diff)
	}

	_, err = Load(mem, &Assembly{Reader: strings.NewReader("HALT")})
	assert.ErrorIs(err, cpu.ErrOrigMissing)
	var errLoad *ErrLoad
	if assert.True(errors.As(err, &errLoad)) {
		assert.Equal("assembly", errLoad.Source)
	}
}

func TestDescribe(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("a.obj", Describe(&File{Name: "a.obj"}))
	assert.Equal("literal x3000", Describe(&Literal{Origin: 0x3000}))
	assert.Equal("image", Describe(&Image{}))
	assert.Equal("assembly", Describe(&Assembly{}))
}

func TestSourceMissing(t *testing.T) {
	assert := assert.New(t)

	for _, src := range []Source{&Image{}, &File{Name: "a.obj"}, &Assembly{}} {
		mem := cpu.NewMemory()
		_, err := Load(mem, src)
		assert.ErrorIs(err, ErrSourceMissing, Describe(src))
	}
}
