// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"strings"

	"github.com/sirupsen/logrus"
)

// PC_START is the program counter after reset, the conventional load address.
const PC_START = uint16(0x3000)

// REGISTER_LINK receives the return address of JSR, JSRR and TRAP.
const REGISTER_LINK = 7

// Cond is the N/Z/P condition code set, as held in the low bits of the PSR.
type Cond uint16

const (
	COND_P    = Cond(1 << 0)
	COND_Z    = Cond(1 << 1)
	COND_N    = Cond(1 << 2)
	COND_MASK = COND_N | COND_Z | COND_P
)

func (cond Cond) String() (text string) {
	if cond&COND_N != 0 {
		text += "n"
	}
	if cond&COND_Z != 0 {
		text += "z"
	}
	if cond&COND_P != 0 {
		text += "p"
	}
	return
}

var _cpu_defines = map[string]string{
	"PC_START": fmt.Sprintf("0x%x", PC_START),
	"KBSR":     fmt.Sprintf("0x%x", ADDR_KBSR),
	"KBDR":     fmt.Sprintf("0x%x", ADDR_KBDR),
}

// Cpu is the simulation context for the processor and its memory.
type Cpu struct {
	Verbose bool // Set to enable per-instruction debug logging.

	Log        logrus.FieldLogger // Destination for diagnostics.
	Display    io.Writer          // Console output; discarded when nil.
	Policy     Policy             // Fault handling; DefaultPolicy() when nil.
	HaltNotice string             // Written to Display by the HALT trap.

	Memory   *Memory   // Main memory and keyboard.
	Register [8]uint16 // Register bank.
	Pc       uint16    // Program counter.
	Psr      uint16    // Processor status; low three bits are the condition codes.
	Ticks    int       // Instructions executed.

	halted bool
}

// DEFAULT_HALT_NOTICE is written by the HALT trap unless overridden.
const DEFAULT_HALT_NOTICE = "HALT\n"

// NewCpu creates a CPU attached to mem. A nil mem gets a fresh Memory.
func NewCpu(mem *Memory) (cpu *Cpu) {
	if mem == nil {
		mem = NewMemory()
	}

	cpu = &Cpu{
		Log:        logrus.StandardLogger(),
		Policy:     DefaultPolicy(),
		HaltNotice: DEFAULT_HALT_NOTICE,
		Memory:     mem,
		Pc:         PC_START,
		Psr:        uint16(COND_Z),
	}

	return
}

// Defines for the cpu.
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Halted reports whether the machine has stopped.
func (cpu *Cpu) Halted() bool {
	return cpu.halted
}

// Halt stops the machine. There is no way back.
func (cpu *Cpu) Halt() {
	cpu.halted = true
}

// Cond returns the current condition codes.
func (cpu *Cpu) Cond() Cond {
	return Cond(cpu.Psr) & COND_MASK
}

// String returns the register dump.
func (cpu *Cpu) String() string {
	var text strings.Builder

	text.WriteString("Registers:\n")
	for n, val := range cpu.Register {
		fmt.Fprintf(&text, "R%d:\tx%04X\n", n, val)
	}
	fmt.Fprintf(&text, "PC:\tx%04X\n", cpu.Pc)
	fmt.Fprintf(&text, "PSR:\tx%04X (N=%d, Z=%d, P=%d)\n",
		cpu.Psr, (cpu.Psr>>2)&1, (cpu.Psr>>1)&1, cpu.Psr&1)

	return text.String()
}

// setcc stores value in register reg and recomputes the condition codes.
func (cpu *Cpu) setcc(reg int, value uint16) {
	cond := COND_P
	switch {
	case value == 0:
		cond = COND_Z
	case value&0x8000 != 0:
		cond = COND_N
	}

	cpu.Psr = (cpu.Psr &^ uint16(COND_MASK)) | uint16(cond)
	cpu.Register[reg] = value
}

// Logger returns Log, or the standard logger when Log is nil.
func (cpu *Cpu) Logger() logrus.FieldLogger {
	if cpu.Log == nil {
		return logrus.StandardLogger()
	}
	return cpu.Log
}

func (cpu *Cpu) read(address uint16) (value uint16, err error) {
	return cpu.Memory.Read(address)
}

// write sends console output to the Display.
func (cpu *Cpu) write(text []byte) (err error) {
	if cpu.Display == nil {
		return
	}
	_, err = cpu.Display.Write(text)
	if err != nil {
		err = deviceFault(err)
	}
	return
}

// Step fetches, decodes and executes one instruction.
// Faults are resolved by the Policy: ignored, halted (nil is returned), or
// returned as a *Fault.
func (cpu *Cpu) Step() (err error) {
	if cpu.halted {
		return ErrHalted
	}

	pc := cpu.Pc
	word, err := cpu.read(pc)
	code := Code(word)
	cpu.Pc = pc + 1
	if err == nil {
		if cpu.Verbose {
			cpu.Logger().WithFields(logrus.Fields{
				"pc":   fmt.Sprintf("x%04X", pc),
				"code": code.String(),
			}).Debug("cpu: step")
		}

		err = cpu.Execute(code)
		cpu.Ticks++
	}

	if err != nil {
		err = cpu.fault(pc, code, err)
	}

	return
}

// fault applies the policy to a failed instruction.
func (cpu *Cpu) fault(pc uint16, code Code, err error) error {
	fault := deviceFault(err)
	fault.Pc = pc
	fault.Code = code

	policy := cpu.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}

	action := policy.Action(fault.Kind)
	log := cpu.Logger().WithFields(logrus.Fields{
		"pc":     fmt.Sprintf("x%04X", pc),
		"fault":  fault.Kind.String(),
		"action": action.String(),
	})

	switch action {
	case ACTION_IGNORE:
		if cpu.Verbose {
			log.Debug(fault.Error())
		}
		return nil
	case ACTION_HALT:
		log.Error(fault.Error())
		cpu.halted = true
		return nil
	}

	return fault
}

// Execute executes a single decoded instruction.
// The PC must already point past it.
func (cpu *Cpu) Execute(code Code) (err error) {
	dr := code.Dr()
	sr1 := cpu.Register[code.Sr1()]

	switch code.Opcode() {
	case OP_ADD, OP_AND:
		var operand uint16
		if code.Immediate() {
			operand = code.Imm5()
		} else {
			operand = cpu.Register[code.Sr2()]
		}
		if code.Opcode() == OP_ADD {
			cpu.setcc(dr, sr1+operand)
		} else {
			cpu.setcc(dr, sr1&operand)
		}
	case OP_NOT:
		cpu.setcc(dr, ^sr1)
	case OP_BR:
		if cpu.Cond()&code.Cond() != 0 {
			cpu.Pc += code.PcOffset9()
		}
	case OP_JMP:
		cpu.Pc = sr1
	case OP_JSR:
		target := sr1
		if code.Long() {
			target = cpu.Pc + code.PcOffset11()
		}
		cpu.Register[REGISTER_LINK] = cpu.Pc
		cpu.Pc = target
	case OP_LD:
		var value uint16
		value, err = cpu.read(cpu.Pc + code.PcOffset9())
		if err != nil {
			return
		}
		cpu.setcc(dr, value)
	case OP_LDI:
		var pointer, value uint16
		pointer, err = cpu.read(cpu.Pc + code.PcOffset9())
		if err != nil {
			return
		}
		value, err = cpu.read(pointer)
		if err != nil {
			return
		}
		cpu.setcc(dr, value)
	case OP_LDR:
		var value uint16
		value, err = cpu.read(sr1 + code.Offset6())
		if err != nil {
			return
		}
		cpu.setcc(dr, value)
	case OP_LEA:
		cpu.setcc(dr, cpu.Pc+code.PcOffset9())
	case OP_ST:
		cpu.Memory.Write(cpu.Pc+code.PcOffset9(), cpu.Register[dr])
	case OP_STI:
		var pointer uint16
		pointer, err = cpu.read(cpu.Pc + code.PcOffset9())
		if err != nil {
			return
		}
		cpu.Memory.Write(pointer, cpu.Register[dr])
	case OP_STR:
		cpu.Memory.Write(sr1+code.Offset6(), cpu.Register[dr])
	case OP_TRAP:
		err = cpu.Trap(code.TrapVector())
	case OP_RTI:
		// No supervisor mode to return to.
		err = &Fault{Kind: FAULT_UNSUPPORTED, Err: ErrUnsupported}
	default:
		err = &Fault{Kind: FAULT_UNKNOWN_OPCODE, Err: ErrUnknownOpcode}
	}

	return
}

// Run steps the machine until it halts or a fault aborts it.
func (cpu *Cpu) Run() (err error) {
	for !cpu.halted {
		err = cpu.Step()
		if err != nil {
			return
		}
	}
	return
}

// IsAbort reports whether err ended a run abnormally.
func IsAbort(err error) bool {
	return err != nil && !errors.Is(err, ErrHalted)
}
