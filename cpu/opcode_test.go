package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignExtend(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		value    uint16
		width    uint
		expected uint16
	}){
		{0x1f, 5, 0xffff},
		{0x0f, 5, 0x000f},
		{0x10, 5, 0xfff0},
		{0x1ff, 9, 0xffff},
		{0x100, 9, 0xff00},
		{0x0ff, 9, 0x00ff},
		{0x3ff, 11, 0x03ff},
		{0x400, 11, 0xfc00},
		{0xfff0, 5, 0xfff0},
		{0x1234, 0, 0x1234},
		{0x8000, 16, 0x8000},
	}

	for _, entry := range table {
		assert.Equal(entry.expected, SignExtend(entry.value, entry.width), "%#x/%d", entry.value, entry.width)
	}
}

func TestSignExtendProperty(t *testing.T) {
	assert := assert.New(t)

	for width := uint(1); width < 16; width++ {
		mask := uint16(1<<width) - 1
		for _, value := range []uint16{0, 1, mask >> 1, (mask >> 1) + 1, mask, 0xa5a5, 0x5a5a} {
			got := SignExtend(value, width)
			assert.Equal(value&mask, got&mask, "low bits %#x/%d", value, width)

			expected := int(value & mask)
			if expected >= 1<<(width-1) {
				expected -= 1 << width
			}
			assert.Equal(expected, int(int16(got)), "value %#x/%d", value, width)
		}
	}
}

func TestCodeFields(t *testing.T) {
	assert := assert.New(t)

	code := Code(0b0001_011_100_1_11110) // ADD R3, R4, #-2
	assert.Equal(OP_ADD, code.Opcode())
	assert.Equal(3, code.Dr())
	assert.Equal(4, code.Sr1())
	assert.True(code.Immediate())
	assert.Equal(uint16(0xfffe), code.Imm5())

	code = Code(0b0101_000_001_0_00_010) // AND R0, R1, R2
	assert.Equal(OP_AND, code.Opcode())
	assert.False(code.Immediate())
	assert.Equal(2, code.Sr2())

	code = Code(0b0000_101_111111101) // BRnp #-3
	assert.Equal(COND_N|COND_P, code.Cond())
	assert.Equal(uint16(0xfffd), code.PcOffset9())

	code = Code(0b0100_1_10000000000) // JSR #-1024
	assert.True(code.Long())
	assert.Equal(uint16(0xfc00), code.PcOffset11())

	code = Code(0b0110_010_110_100000) // LDR R2, R6, #-32
	assert.Equal(uint16(0xffe0), code.Offset6())

	assert.Equal(uint8(0x25), Code(0xf025).TrapVector())
}

func TestCodeMake(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(Code(0x16bf), MakeCodeImm(OP_ADD, 3, 2, -1))
	assert.Equal(Code(0x5042), MakeCodeReg(OP_AND, 0, 1, 2))
	assert.Equal(Code(0x947f), MakeCodeNot(2, 1))
	assert.Equal(Code(0x0bfd), MakeCodeBr(COND_N|COND_P, -3))
	assert.Equal(Code(0xe002), MakeCodePc(OP_LEA, 0, 2))
	assert.Equal(Code(0x6583), MakeCodeBase(OP_LDR, 2, 6, 3))
	assert.Equal(Code(0xc1c0), MakeCodeJmp(REGISTER_LINK))
	assert.Equal(Code(0x4804), MakeCodeJsr(4))
	assert.Equal(Code(0x4080), MakeCodeJsrr(2))
	assert.Equal(Code(0xf022), MakeCodeTrap(TRAP_PUTS))
}

func TestCodeString(t *testing.T) {
	assert := assert.New(t)

	table := map[Code]string{
		0x16bf: "ADD R3, R2, #-1",
		0x5042: "AND R0, R1, R2",
		0x947f: "NOT R2, R1",
		0x0bfd: "BRnp #-3",
		0x0e01: "BRnzp #1",
		0x0000: "NOP",
		0x2002: "LD R0, #2",
		0xe1ff: "LEA R0, #-1",
		0x6583: "LDR R2, R6, #3",
		0xc1c0: "RET",
		0xc080: "JMP R2",
		0x4804: "JSR #4",
		0x4080: "JSRR R2",
		0xf025: "TRAP x25",
		0x8000: "RTI",
		0xd123: ".FILL xD123",
	}

	for code, expected := range table {
		assert.Equal(expected, code.String(), "%#04x", uint16(code))
	}

	assert.Equal("TRAP", OP_TRAP.String())
	assert.Equal("Opcode(16)", Opcode(16).String())
}
