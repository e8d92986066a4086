package emulator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/io"
	"github.com/ezrec/lc3/loader"
)

func newTestEmulator(t *testing.T, program ...string) (emu *Emulator, display *strings.Builder) {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	display = &strings.Builder{}

	emu = NewEmulator()
	emu.Cpu.Log = logger
	emu.Cpu.Display = display

	_, err := emu.Load(&loader.Assembly{Reader: strings.NewReader(strings.Join(program, "\n"))})
	if err != nil {
		t.Fatal(err)
	}

	return
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu.Memory)
	assert.Equal(0, emu.LineNo())

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}
	assert.Equal("65536", defines["MEMORY_SIZE"])
	assert.Equal("0x8000", defines["KBSR_READY"])
	assert.Equal("0x3000", defines["PC_START"])
}

func TestEmulatorTick(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		"        AND R0, R0, #0",
		"        ADD R0, R0, #2",
		"LOOP    ADD R0, R0, #-1",
		"        BRp LOOP",
		"        HALT",
		".END",
	}
	emu, display := newTestEmulator(t, program...)

	lines := []int{2, 3, 4, 5, 4, 5, 6}
	for _, lineno := range lines {
		assert.Equal(lineno, emu.LineNo(), program[lineno-1])
		assert.Equal(emu.Code(), cpu.Code(emu.Cpu.Memory.Data[emu.Cpu.Pc]))
		done, err := emu.Tick()
		assert.NoError(err)
		assert.Equal(lineno == 6, done)
	}

	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)
	assert.Equal("HALT\n", display.String())
	assert.Equal(7, emu.Ticks)
}

func TestEmulatorRuntimeError(t *testing.T) {
	assert := assert.New(t)

	emu, _ := newTestEmulator(t,
		".ORIG x3000",
		"ADD R1, R1, #1",
		"RTI",
	)

	err := emu.Run(context.Background())
	var errRuntime *ErrRuntime
	if assert.True(errors.As(err, &errRuntime)) {
		assert.Equal(3, errRuntime.LineNo)
		assert.Equal(uint16(0x3001), errRuntime.Pc)
	}
	assert.ErrorIs(err, cpu.ErrUnsupported)
	assert.Equal("x3001 line 3 unsupported fault at x3001 (RTI): unsupported instruction", err.Error())
}

func TestEmulatorLiteral(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	display := &strings.Builder{}
	emu.Cpu.Display = display

	origin, err := emu.Load(&loader.Literal{
		Origin: 0x3000,
		Words:  []uint16{0xe002, 0xf022, 0xf025, 'A', 'B', 'C', 'D', '\n', 0},
	})
	assert.NoError(err)
	assert.Equal(uint16(0x3000), origin)

	assert.NoError(emu.Run(context.Background()))
	assert.Equal("ABCD\nHALT\n", display.String())
	assert.Equal(0, emu.LineNo())

	// Unknown source lines report only the address.
	emu = NewEmulator()
	_, err = emu.Load(&loader.Literal{Origin: 0x3000, Words: []uint16{0x8000}})
	assert.NoError(err)
	err = emu.Run(context.Background())
	assert.True(strings.HasPrefix(err.Error(), "x3000: "), err.Error())
}

func TestEmulatorLoadError(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	_, err := emu.Load(&loader.Assembly{Reader: strings.NewReader(".ORIG x3000\nBOGUS R9\n")})
	var errLoad *loader.ErrLoad
	assert.True(errors.As(err, &errLoad))
	assert.Equal(0, len(emu.Program.Statements))
}

func TestEmulatorDefines(t *testing.T) {
	assert := assert.New(t)

	emu, _ := newTestEmulator(t,
		".ORIG x3000",
		".FILL $(MEMORY_SIZE - 1)",
		".FILL KBSR_READY",
		".FILL $(KBDR - KBSR)",
	)

	assert.Equal(uint16(0xffff), emu.Cpu.Memory.Data[0x3000])
	assert.Equal(uint16(0x8000), emu.Cpu.Memory.Data[0x3001])
	assert.Equal(uint16(2), emu.Cpu.Memory.Data[0x3002])
}

func TestEmulatorRunQueue(t *testing.T) {
	assert := assert.New(t)

	// Echo keys until 'q', polling the status register.
	emu, display := newTestEmulator(t,
		".ORIG x3000",
		"POLL    LDI R1, KBSRP",
		"        BRzp POLL",
		"        LDI R0, KBDRP",
		"        LD R2, QUIT",
		"        ADD R2, R2, R0",
		"        BRz DONE",
		"        OUT",
		"        BRnzp POLL",
		"DONE    HALT",
		"KBSRP   .FILL KBSR",
		"KBDRP   .FILL KBDR",
		"QUIT    .FILL #-113",
	)

	queue := io.NewQueue(4)
	emu.Cpu.Memory.Keyboard = queue

	err := emu.Run(context.Background(), func(ctx context.Context) error {
		return queue.Feed(ctx, strings.NewReader("hi\rthereq!"))
	})
	assert.NoError(err)
	assert.Equal("hi\nthereHALT\n", display.String())
}

func TestEmulatorRunGetcCancel(t *testing.T) {
	assert := assert.New(t)

	emu, display := newTestEmulator(t,
		".ORIG x3000",
		"LOOP    GETC",
		"        OUT",
		"        BRnzp LOOP",
	)

	queue := io.NewQueue(0)
	emu.Cpu.Memory.Keyboard = queue

	err := emu.Run(context.Background(), func(ctx context.Context) error {
		return queue.Feed(ctx, strings.NewReader("ok\x03more"))
	})
	assert.ErrorIs(err, cpu.ErrInputCancelled)
	var errRuntime *ErrRuntime
	if assert.True(errors.As(err, &errRuntime)) {
		assert.Equal(2, errRuntime.LineNo)
	}
	assert.Equal("ok", display.String())
}

func TestEmulatorRunCancel(t *testing.T) {
	assert := assert.New(t)

	emu, _ := newTestEmulator(t,
		".ORIG x3000",
		"SPIN BRnzp SPIN",
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := emu.Run(ctx)
	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.False(emu.Cpu.Halted())
	assert.Greater(emu.Ticks, 0)
}

func TestEmulatorRunFeederError(t *testing.T) {
	assert := assert.New(t)

	emu, _ := newTestEmulator(t,
		".ORIG x3000",
		"SPIN BRnzp SPIN",
	)

	broken := errors.New("broken feeder")
	err := emu.Run(context.Background(), func(ctx context.Context) error {
		return broken
	})
	assert.ErrorIs(err, broken)
}
