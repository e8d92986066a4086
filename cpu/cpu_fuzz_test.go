package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/io"
)

func FuzzCpu(f *testing.F) {
	for op := range 16 {
		f.Add(uint16(op<<12), uint16(0x1234), uint16(0x8001))
		f.Add(uint16(op<<12)|0x0fff, uint16(0xffff), uint16(0))
	}

	f.Fuzz(func(t *testing.T, word uint16, r1 uint16, data uint16) {
		assert := assert.New(t)

		cpu, display, _ := newTestCpu(t, Code(word), Code(data))
		cpu.Memory.Keyboard = &io.Tape{Input: strings.NewReader("z")}
		cpu.Register[1] = r1
		for n := range cpu.Register {
			if n != 1 {
				cpu.Register[n] = PC_START + 1
			}
		}

		code := Code(word)
		err := cpu.Step()

		switch code.Opcode() {
		case OP_RTI:
			assert.ErrorIs(err, ErrUnsupported)
			return
		case OP_RES:
			assert.NoError(err)
			assert.True(cpu.Halted())
			return
		}
		assert.NoError(err, "%v", code)
		assert.Equal(1, cpu.Ticks)

		// Exactly one condition code is ever set.
		cond := cpu.Cond()
		assert.True(cond == COND_N || cond == COND_Z || cond == COND_P, "%v: cond %v", code, cond)

		switch code.Opcode() {
		case OP_ADD, OP_AND, OP_NOT, OP_LD, OP_LDI, OP_LDR, OP_LEA:
			value := cpu.Register[code.Dr()]
			switch cond {
			case COND_Z:
				assert.Equal(uint16(0), value)
			case COND_N:
				assert.NotEqual(uint16(0), value&0x8000)
			case COND_P:
				assert.Equal(uint16(0), value&0x8000)
				assert.NotEqual(uint16(0), value)
			}
		case OP_BR:
			if code.Cond()&COND_Z != 0 {
				assert.Equal(PC_START+1+code.PcOffset9(), cpu.Pc)
			} else {
				assert.Equal(PC_START+1, cpu.Pc)
			}
		case OP_TRAP:
			assert.Equal(PC_START+1, cpu.Register[REGISTER_LINK])
			if code.TrapVector() == TRAP_HALT {
				assert.True(cpu.Halted())
				assert.True(strings.HasSuffix(display.String(), DEFAULT_HALT_NOTICE))
			}
		}
	})
}
