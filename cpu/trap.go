package cpu

// Trap vectors.
const (
	TRAP_GETC  = uint8(0x20) // Read a character into R0.
	TRAP_OUT   = uint8(0x21) // Write the character in R0.
	TRAP_PUTS  = uint8(0x22) // Write the word string at R0.
	TRAP_IN    = uint8(0x23) // Prompt, read and echo a character into R0.
	TRAP_PUTSP = uint8(0x24) // Write the packed byte string at R0.
	TRAP_HALT  = uint8(0x25) // Stop the machine.
)

// IN_PROMPT is written by the IN trap before it reads.
const IN_PROMPT = "\nInput a character> "

var _trap_names = map[string]uint8{
	"GETC":  TRAP_GETC,
	"OUT":   TRAP_OUT,
	"PUTS":  TRAP_PUTS,
	"IN":    TRAP_IN,
	"PUTSP": TRAP_PUTSP,
	"HALT":  TRAP_HALT,
}

// getc reads one key into R0.
func (cpu *Cpu) getc() (err error) {
	key, err := cpu.Memory.keyboard().ReadByte()
	if err != nil {
		return deviceFault(err)
	}
	cpu.Register[0] = uint16(key)
	return
}

// Trap runs the service routine for vector.
func (cpu *Cpu) Trap(vector uint8) (err error) {
	cpu.Register[REGISTER_LINK] = cpu.Pc

	switch vector {
	case TRAP_GETC:
		err = cpu.getc()
	case TRAP_OUT:
		err = cpu.write([]byte{byte(cpu.Register[0])})
	case TRAP_PUTS:
		var text []byte
		for n := range MEMORY_SIZE {
			var word uint16
			word, err = cpu.read(cpu.Register[0] + uint16(n))
			if err != nil || word == 0 {
				break
			}
			text = append(text, byte(word))
		}
		if err == nil {
			err = cpu.write(text)
		}
	case TRAP_PUTSP:
		var text []byte
		for n := range MEMORY_SIZE {
			var word uint16
			word, err = cpu.read(cpu.Register[0] + uint16(n))
			if err != nil || word == 0 {
				break
			}
			text = append(text, byte(word))
			if word>>8 == 0 {
				break
			}
			text = append(text, byte(word>>8))
		}
		if err == nil {
			err = cpu.write(text)
		}
	case TRAP_IN:
		err = cpu.write([]byte(IN_PROMPT))
		if err != nil {
			return
		}
		err = cpu.getc()
		if err != nil {
			return
		}
		err = cpu.write([]byte{byte(cpu.Register[0])})
	case TRAP_HALT:
		err = cpu.write([]byte(cpu.HaltNotice))
		cpu.halted = true
	default:
		err = &Fault{Kind: FAULT_UNKNOWN_TRAP, Err: ErrUnknownTrap}
	}

	return
}
