package cpu

import (
	"fmt"
)

// Opcode is the instruction class held in bits 15-12.
type Opcode int

const (
	OP_BR   = Opcode(0b0000) // BR
	OP_ADD  = Opcode(0b0001) // ADD
	OP_LD   = Opcode(0b0010) // LD
	OP_ST   = Opcode(0b0011) // ST
	OP_JSR  = Opcode(0b0100) // JSR
	OP_AND  = Opcode(0b0101) // AND
	OP_LDR  = Opcode(0b0110) // LDR
	OP_STR  = Opcode(0b0111) // STR
	OP_RTI  = Opcode(0b1000) // RTI
	OP_NOT  = Opcode(0b1001) // NOT
	OP_LDI  = Opcode(0b1010) // LDI
	OP_STI  = Opcode(0b1011) // STI
	OP_JMP  = Opcode(0b1100) // JMP
	OP_RES  = Opcode(0b1101) // RES
	OP_LEA  = Opcode(0b1110) // LEA
	OP_TRAP = Opcode(0b1111) // TRAP
)

var _opcode_names = [16]string{
	"BR", "ADD", "LD", "ST", "JSR", "AND", "LDR", "STR",
	"RTI", "NOT", "LDI", "STI", "JMP", "RES", "LEA", "TRAP",
}

func (op Opcode) String() string {
	if op < 0 || int(op) >= len(_opcode_names) {
		return fmt.Sprintf("Opcode(%d)", int(op))
	}
	return _opcode_names[op]
}

// Code is a single instruction word.
type Code uint16

// SignExtend widens the low width bits of value to 16 bits, two's complement.
func SignExtend(value uint16, width uint) uint16 {
	if width == 0 || width >= 16 {
		return value
	}
	value &= (1 << width) - 1
	if (value>>(width-1))&1 == 1 {
		value |= 0xffff << width
	}
	return value
}

// Opcode returns bits 15-12.
func (code Code) Opcode() Opcode {
	return Opcode(uint16(code) >> 12)
}

// Dr returns bits 11-9: the destination register, or the source of a store.
func (code Code) Dr() int {
	return int((uint16(code) >> 9) & 0x7)
}

// Sr1 returns bits 8-6: the first source or base register.
func (code Code) Sr1() int {
	return int((uint16(code) >> 6) & 0x7)
}

// Sr2 returns bits 2-0: the second source register.
func (code Code) Sr2() int {
	return int(uint16(code) & 0x7)
}

// Immediate reports whether bit 5 selects the imm5 operand.
func (code Code) Immediate() bool {
	return (uint16(code)>>5)&1 == 1
}

// Imm5 returns bits 4-0, sign extended.
func (code Code) Imm5() uint16 {
	return SignExtend(uint16(code), 5)
}

// Offset6 returns bits 5-0, sign extended.
func (code Code) Offset6() uint16 {
	return SignExtend(uint16(code), 6)
}

// PcOffset9 returns bits 8-0, sign extended.
func (code Code) PcOffset9() uint16 {
	return SignExtend(uint16(code), 9)
}

// PcOffset11 returns bits 10-0, sign extended.
func (code Code) PcOffset11() uint16 {
	return SignExtend(uint16(code), 11)
}

// Long reports whether bit 11 selects the JSR (PC relative) form.
func (code Code) Long() bool {
	return (uint16(code)>>11)&1 == 1
}

// Cond returns the BR condition mask in bits 11-9.
func (code Code) Cond() Cond {
	return Cond((uint16(code) >> 9) & 0x7)
}

// TrapVector returns bits 7-0.
func (code Code) TrapVector() uint8 {
	return uint8(code)
}

func field(value int, width uint) uint16 {
	return uint16(value) & ((1 << width) - 1)
}

func makeCode(op Opcode, bits uint16) Code {
	return Code((uint16(op) << 12) | (bits & 0x0fff))
}

// MakeCodeReg creates an ADD or AND with a register operand.
func MakeCodeReg(op Opcode, dr, sr1, sr2 int) Code {
	return makeCode(op, field(dr, 3)<<9|field(sr1, 3)<<6|field(sr2, 3))
}

// MakeCodeImm creates an ADD or AND with an imm5 operand.
func MakeCodeImm(op Opcode, dr, sr1, imm5 int) Code {
	return makeCode(op, field(dr, 3)<<9|field(sr1, 3)<<6|1<<5|field(imm5, 5))
}

// MakeCodeNot creates a NOT.
func MakeCodeNot(dr, sr int) Code {
	return makeCode(OP_NOT, field(dr, 3)<<9|field(sr, 3)<<6|0x3f)
}

// MakeCodeBr creates a conditional branch.
func MakeCodeBr(cond Cond, offset9 int) Code {
	return makeCode(OP_BR, uint16(cond&COND_MASK)<<9|field(offset9, 9))
}

// MakeCodePc creates an LD, LDI, LEA, ST or STI with a PC relative offset.
func MakeCodePc(op Opcode, dr, offset9 int) Code {
	return makeCode(op, field(dr, 3)<<9|field(offset9, 9))
}

// MakeCodeBase creates an LDR or STR.
func MakeCodeBase(op Opcode, dr, base, offset6 int) Code {
	return makeCode(op, field(dr, 3)<<9|field(base, 3)<<6|field(offset6, 6))
}

// MakeCodeJmp creates a JMP (RET when base is R7).
func MakeCodeJmp(base int) Code {
	return makeCode(OP_JMP, field(base, 3)<<6)
}

// MakeCodeJsr creates a PC relative JSR.
func MakeCodeJsr(offset11 int) Code {
	return makeCode(OP_JSR, 1<<11|field(offset11, 11))
}

// MakeCodeJsrr creates a register JSRR.
func MakeCodeJsrr(base int) Code {
	return makeCode(OP_JSR, field(base, 3)<<6)
}

// MakeCodeTrap creates a TRAP.
func MakeCodeTrap(vector uint8) Code {
	return makeCode(OP_TRAP, uint16(vector))
}

func signed(value uint16) int16 {
	return int16(value)
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	op := code.Opcode()

	switch op {
	case OP_ADD, OP_AND:
		if code.Immediate() {
			out = fmt.Sprintf("%v R%d, R%d, #%d", op, code.Dr(), code.Sr1(), signed(code.Imm5()))
		} else {
			out = fmt.Sprintf("%v R%d, R%d, R%d", op, code.Dr(), code.Sr1(), code.Sr2())
		}
	case OP_NOT:
		out = fmt.Sprintf("NOT R%d, R%d", code.Dr(), code.Sr1())
	case OP_BR:
		cond := code.Cond()
		if cond == 0 {
			out = "NOP"
			return
		}
		out = fmt.Sprintf("BR%v #%d", cond, signed(code.PcOffset9()))
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		out = fmt.Sprintf("%v R%d, #%d", op, code.Dr(), signed(code.PcOffset9()))
	case OP_LDR, OP_STR:
		out = fmt.Sprintf("%v R%d, R%d, #%d", op, code.Dr(), code.Sr1(), signed(code.Offset6()))
	case OP_JMP:
		if code.Sr1() == 7 {
			out = "RET"
		} else {
			out = fmt.Sprintf("JMP R%d", code.Sr1())
		}
	case OP_JSR:
		if code.Long() {
			out = fmt.Sprintf("JSR #%d", signed(code.PcOffset11()))
		} else {
			out = fmt.Sprintf("JSRR R%d", code.Sr1())
		}
	case OP_TRAP:
		out = fmt.Sprintf("TRAP x%02X", code.TrapVector())
	case OP_RTI:
		out = "RTI"
	default:
		out = fmt.Sprintf(".FILL x%04X", uint16(code))
	}

	return
}
