package cpu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ezrec/lc3/io"
	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalted         = errors.New(f("halted"))
	ErrUnknownOpcode  = errors.New(f("unknown opcode"))
	ErrUnsupported    = errors.New(f("unsupported instruction"))
	ErrUnknownTrap    = errors.New(f("unknown trap vector"))
	ErrInputCancelled = io.ErrInputCancelled

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelInvalid       = errors.New(f("label invalid"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOrigMissing        = errors.New(f(".orig missing"))
	ErrOrigDuplicate      = errors.New(f(".orig duplicated"))
	ErrStringSyntax       = errors.New(f(".stringz syntax"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissingArgs  = errors.New(f("missing arguments"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrProgramOverflow    = errors.New(f("program overflows memory"))
)

// FaultKind classifies a Fault.
type FaultKind int

const (
	FAULT_UNKNOWN_OPCODE  = FaultKind(0) // unknown-opcode
	FAULT_UNSUPPORTED     = FaultKind(1) // unsupported
	FAULT_INPUT_CANCELLED = FaultKind(2) // input-cancelled
	FAULT_UNKNOWN_TRAP    = FaultKind(3) // unknown-trap
	FAULT_DEVICE          = FaultKind(4) // device
)

var _fault_kind_names = []string{
	"unknown-opcode",
	"unsupported",
	"input-cancelled",
	"unknown-trap",
	"device",
}

func (kind FaultKind) String() string {
	if kind < 0 || int(kind) >= len(_fault_kind_names) {
		return fmt.Sprintf("FaultKind(%d)", int(kind))
	}
	return _fault_kind_names[kind]
}

// ParseFaultKind parses the String() form of a FaultKind.
func ParseFaultKind(name string) (kind FaultKind, err error) {
	for n, known := range _fault_kind_names {
		if strings.EqualFold(known, name) {
			kind = FaultKind(n)
			return
		}
	}
	err = ErrFaultName(name)
	return
}

// FaultAction is what the Cpu does when a fault is raised.
type FaultAction int

const (
	ACTION_IGNORE = FaultAction(0) // ignore
	ACTION_HALT   = FaultAction(1) // halt
	ACTION_ABORT  = FaultAction(2) // abort
)

var _fault_action_names = []string{"ignore", "halt", "abort"}

func (action FaultAction) String() string {
	if action < 0 || int(action) >= len(_fault_action_names) {
		return fmt.Sprintf("FaultAction(%d)", int(action))
	}
	return _fault_action_names[action]
}

// ParseFaultAction parses the String() form of a FaultAction.
func ParseFaultAction(name string) (action FaultAction, err error) {
	for n, known := range _fault_action_names {
		if strings.EqualFold(known, name) {
			action = FaultAction(n)
			return
		}
	}
	err = ErrFaultName(name)
	return
}

// Policy maps fault kinds to actions. Kinds not in the map abort.
type Policy map[FaultKind]FaultAction

// DefaultPolicy halts on unknown opcodes, ignores unknown trap vectors,
// and aborts on everything else.
func DefaultPolicy() Policy {
	return Policy{
		FAULT_UNKNOWN_OPCODE:  ACTION_HALT,
		FAULT_UNSUPPORTED:     ACTION_ABORT,
		FAULT_INPUT_CANCELLED: ACTION_ABORT,
		FAULT_UNKNOWN_TRAP:    ACTION_IGNORE,
		FAULT_DEVICE:          ACTION_ABORT,
	}
}

// Action returns the action for kind.
func (policy Policy) Action(kind FaultKind) FaultAction {
	action, ok := policy[kind]
	if !ok {
		return ACTION_ABORT
	}
	return action
}

// Fault is an architectural fault raised while executing an instruction.
type Fault struct {
	Kind FaultKind
	Pc   uint16 // Address of the faulting instruction.
	Code Code
	Err  error
}

func (err *Fault) Error() string {
	return f("%v fault at x%04X (%v): %v", err.Kind, err.Pc, err.Code, err.Err)
}

func (err *Fault) Unwrap() error {
	return err.Err
}

type ErrFaultName string

func (err ErrFaultName) Error() string {
	return f("'%v' is not a fault kind or action", string(err))
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrOffsetRange struct {
	Label  string
	Offset int
	Width  uint
}

func (err ErrOffsetRange) Error() string {
	return f("label %v offset %d does not fit in %d bits", err.Label, err.Offset, err.Width)
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseRange struct {
	Value int64
	Width uint
}

func (err ErrParseRange) Error() string {
	return f("%d does not fit in %d bits", err.Value, err.Width)
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
