// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Assembler is a single pass macro assembler for LC-3 assembly.
// Label references are linked once the whole input has been read.
type Assembler struct {
	Verbose   bool        // If set, verbosely logs the assembler actions.
	Statement []Statement // List of generated statements.

	predefine map[string]string   // Predefines
	Label     map[string]uint16   // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	origin     uint16
	next       int // Address of the next generated word.
	started    bool
	ended      bool
	expansions int // Count of macro expansions.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

var (
	reChar  = regexp.MustCompile(`'\\?[^']'`)
	reParen = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	reBr    = regexp.MustCompile(`^BR(N?Z?P?)$`)
)

// valueOf returns the value of a numeric word: #dec, xHEX, or a Go literal.
func valueOf(word string) (value int64, err error) {
	text := word
	base := 0
	switch {
	case strings.HasPrefix(text, "#"):
		text = text[1:]
		base = 10
	case len(text) > 1 && (text[0] == 'x' || text[0] == 'X'):
		text = text[1:]
		base = 16
	}

	value, err = strconv.ParseInt(text, base, 64)
	if err != nil {
		err = ErrParseNumber(word)
	}
	return
}

// fitSigned checks that value is a two's complement width-bit number.
func fitSigned(value int64, width uint) (field int, err error) {
	if value < -(int64(1)<<(width-1)) || value >= int64(1)<<(width-1) {
		err = ErrParseRange{Value: value, Width: width}
		return
	}
	field = int(value)
	return
}

// fitWord checks that value is a signed or unsigned 16-bit word.
func fitWord(value int64) (word uint16, err error) {
	if value < -0x8000 || value > 0xffff {
		err = ErrParseRange{Value: value, Width: 16}
		return
	}
	word = uint16(value)
	return
}

// register parses R0 through R7.
func register(word string) (reg int, err error) {
	if len(word) != 2 || (word[0] != 'R' && word[0] != 'r') || word[1] < '0' || word[1] > '7' {
		err = ErrRegisterInvalid
		return
	}
	reg = int(word[1] - '0')
	return
}

func isRegister(word string) bool {
	_, err := register(word)
	return err == nil
}

// mnemonics that are not trap aliases or branches.
var _mnemonics = map[string]bool{
	"ADD": true, "AND": true, "NOT": true,
	"JMP": true, "RET": true, "JSR": true, "JSRR": true,
	"LD": true, "LDI": true, "LDR": true, "LEA": true,
	"ST": true, "STI": true, "STR": true,
	"RTI": true, "TRAP": true,
	".ORIG": true, ".FILL": true, ".BLKW": true, ".STRINGZ": true, ".END": true,
}

// isMnemonic reports whether word names an instruction or directive.
func (asm *Assembler) isMnemonic(word string) bool {
	if _, ok := asm.Macro[word]; ok {
		return true
	}
	upper := strings.ToUpper(word)
	if _mnemonics[upper] || reBr.MatchString(upper) {
		return true
	}
	_, ok := _trap_names[upper]
	return ok
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v int64
		v, err = valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(v)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(int(addr))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// mapUnquoted applies fn to the parts of line outside double quotes.
func mapUnquoted(line string, fn func(string) string) string {
	var out strings.Builder
	start := 0
	quoted := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quoted {
			switch c {
			case '\\':
				i++
			case '"':
				out.WriteString(line[start : i+1])
				start = i + 1
				quoted = false
			}
			continue
		}
		if c == '"' {
			out.WriteString(fn(line[start:i]))
			start = i
			quoted = true
		}
	}
	if quoted {
		out.WriteString(line[start:])
	} else {
		out.WriteString(fn(line[start:]))
	}
	return out.String()
}

// stripComment removes a ';' comment that is not inside quotes.
func stripComment(text string) string {
	quoted := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quoted && c == '\\':
			i++
		case c == '"':
			quoted = !quoted
		case !quoted && c == '\'' && i+2 < len(text) && text[i+2] == '\'':
			i += 2
		case !quoted && c == ';':
			return text[:i]
		}
	}
	return text
}

// tokenize splits a line at spaces and commas, keeping quoted strings whole.
func tokenize(line string) (words []string, err error) {
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	quoted := false
	escaped := false
	for _, r := range line {
		switch {
		case quoted:
			word.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				quoted = false
				flush()
			}
		case r == '"':
			flush()
			word.WriteRune(r)
			quoted = true
		case r == ',' || r == ' ' || r == '\t':
			flush()
		default:
			word.WriteRune(r)
		}
	}
	if quoted {
		err = ErrStringSyntax
		return
	}
	flush()

	return
}

// defineLabel records label at the current address.
func (asm *Assembler) defineLabel(label string) (err error) {
	if !reLabel.MatchString(label) || isRegister(label) {
		err = ErrLabelInvalid
		return
	}
	if !asm.started {
		err = ErrOrigMissing
		return
	}
	_, ok := asm.Label[label]
	if ok {
		err = ErrLabelDuplicate
		return
	}
	if asm.Label == nil {
		asm.Label = make(map[string]uint16, 16)
	}
	asm.Label[label] = uint16(asm.next)
	return
}

// parseLine parses a single line into words, handling equates, labels and macros.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = mapUnquoted(line, func(part string) string {
		return reChar.ReplaceAllStringFunc(part, func(word string) string {
			str := word[1 : len(word)-1]
			if str[0] == '\\' {
				str = str[1:]
				switch str {
				case "\\":
					str = "\\"
				case "n":
					str = "\n"
				case "r":
					str = "\r"
				case "t":
					str = "\t"
				case "e":
					str = "\033"
				case "0":
					str = "\000"
				default:
					return word
				}
			} else if len(str) != 1 {
				return word
			}
			return fmt.Sprintf("#%d", str[0])
		})
	})

	// Do $() evaluations
	line = mapUnquoted(line, func(part string) string {
		return reParen.ReplaceAllStringFunc(part, func(str string) string {
			value, _err := asm.parenEval(str[2 : len(str)-1])
			if _err != nil {
				err = _err
			}
			return fmt.Sprintf("#%d", value)
		})
	})
	if err != nil {
		return
	}

	words, err = tokenize(line)
	if err != nil || len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.EqualFold(words[0], ".equ") {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		if strings.HasPrefix(word, "\"") {
			continue
		}
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	// Labels are either 'NAME:' or a leading word that is not an instruction.
	for len(words) > 0 {
		label, colon := strings.CutSuffix(words[0], ":")
		if !colon && asm.isMnemonic(label) {
			break
		}
		err = asm.defineLabel(label)
		if err != nil {
			return
		}
		words = words[1:]
		if !colon {
			break
		}
	}
	if len(words) == 0 {
		return
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = args[n]
		}
		defer func() { asm.Equate = old_equate }()

		// '@' makes a label local to this expansion.
		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = mapUnquoted(line, func(part string) string {
				return strings.ReplaceAll(part, "@", local)
			})
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Statement = asm.Statement[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(_cpu_defines)
	asm.Equate["LINENO"] = "0"
	for name, vector := range _trap_names {
		asm.Equate["TRAP_"+name] = fmt.Sprintf("0x%02x", vector)
	}
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}
	asm.origin = PC_START
	asm.next = int(PC_START)
	asm.started = false
	asm.ended = false
	asm.expansions = 0

	for !asm.ended && scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			logrus.WithField("line", lineno).Debug(text)
		}

		line = strings.TrimSpace(stripComment(text))
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && strings.EqualFold(words[0], ".macro") {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && strings.EqualFold(words[0], ".endm") {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Statement {
		st := &asm.Statement[n]
		if st.Link == nil {
			continue
		}
		lineno = st.LineNo
		line = strings.Join(st.Words, " ")

		addr, ok := asm.Label[st.Link.Label]
		if !ok {
			err = ErrLabelMissing(st.Link.Label)
			return
		}
		if !st.Link.Relative {
			st.Codes[0] = Code(addr)
			continue
		}
		offset := int(addr) - (int(st.Addr) + 1)
		_, err = fitSigned(int64(offset), st.Link.Width)
		if err != nil {
			err = ErrOffsetRange{Label: st.Link.Label, Offset: offset, Width: st.Link.Width}
			return
		}
		st.Codes[0] |= Code(field(offset, st.Link.Width))
	}

	prog = &Program{
		Origin:     asm.origin,
		Statements: slices.Clone(asm.Statement),
		Symbols:    maps.Clone(asm.Label),
	}

	return
}

// wantArgs checks the operand count.
func wantArgs(args []string, count int) (err error) {
	switch {
	case len(args) < count:
		err = ErrOpcodeMissingArgs
	case len(args) > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// registers parses every word as a register.
func registers(words ...string) (regs []int, err error) {
	regs = make([]int, len(words))
	for n, word := range words {
		regs[n], err = register(word)
		if err != nil {
			return
		}
	}
	return
}

// signedArg parses a numeric operand that must fit width bits.
func signedArg(word string, width uint) (field int, err error) {
	value, err := valueOf(word)
	if err != nil {
		return
	}
	return fitSigned(value, width)
}

// target parses a PC relative operand: a literal offset, or a label.
func target(word string, width uint) (offset int, link *Link, err error) {
	if _, nerr := valueOf(word); nerr == nil {
		offset, err = signedArg(word, width)
		return
	}
	if !reLabel.MatchString(word) || isRegister(word) {
		err = ErrLabelInvalid
		return
	}
	link = &Link{Label: word, Width: width, Relative: true}
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var link *Link

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(codes) == 0 {
			return
		}
		if asm.next+len(codes) > MEMORY_SIZE {
			err = ErrProgramOverflow
			return
		}
		st := Statement{LineNo: lineno, Addr: uint16(asm.next), Words: initial_words, Codes: codes, Link: link}
		asm.Statement = append(asm.Statement, st)
		asm.next += len(codes)
	}()

	mnemonic := strings.ToUpper(words[0])
	args := words[1:]

	if mnemonic != ".ORIG" && !asm.started {
		err = ErrOrigMissing
		return
	}

	switch mnemonic {
	case ".ORIG":
		if asm.started {
			err = ErrOrigDuplicate
			return
		}
		if err = wantArgs(args, 1); err != nil {
			return
		}
		var value int64
		value, err = valueOf(args[0])
		if err != nil {
			return
		}
		if value < 0 || value > 0xffff {
			err = ErrParseRange{Value: value, Width: 16}
			return
		}
		asm.origin = uint16(value)
		asm.next = int(value)
		asm.started = true
	case ".END":
		asm.ended = true
	case ".FILL":
		if err = wantArgs(args, 1); err != nil {
			return
		}
		value, nerr := valueOf(args[0])
		if nerr != nil {
			if !reLabel.MatchString(args[0]) {
				err = nerr
				return
			}
			link = &Link{Label: args[0], Width: 16}
			codes = append(codes, 0)
			return
		}
		var word uint16
		word, err = fitWord(value)
		if err != nil {
			return
		}
		codes = append(codes, Code(word))
	case ".BLKW":
		if len(args) < 1 {
			err = ErrOpcodeMissingArgs
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var count int64
		count, err = valueOf(args[0])
		if err != nil {
			return
		}
		if count < 0 || count > MEMORY_SIZE {
			err = ErrParseRange{Value: count, Width: 16}
			return
		}
		var fill uint16
		if len(args) == 2 {
			var value int64
			value, err = valueOf(args[1])
			if err != nil {
				return
			}
			fill, err = fitWord(value)
			if err != nil {
				return
			}
		}
		for range count {
			codes = append(codes, Code(fill))
		}
	case ".STRINGZ":
		if err = wantArgs(args, 1); err != nil {
			return
		}
		var text string
		text, err = strconv.Unquote(args[0])
		if err != nil || !strings.HasPrefix(args[0], "\"") {
			err = ErrStringSyntax
			return
		}
		for _, c := range []byte(text) {
			codes = append(codes, Code(c))
		}
		codes = append(codes, 0)
	case "ADD", "AND":
		if err = wantArgs(args, 3); err != nil {
			return
		}
		op := OP_ADD
		if mnemonic == "AND" {
			op = OP_AND
		}
		var regs []int
		regs, err = registers(args[0], args[1])
		if err != nil {
			return
		}
		if sr2, rerr := register(args[2]); rerr == nil {
			codes = append(codes, MakeCodeReg(op, regs[0], regs[1], sr2))
			return
		}
		var imm5 int
		imm5, err = signedArg(args[2], 5)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeImm(op, regs[0], regs[1], imm5))
	case "NOT":
		if err = wantArgs(args, 2); err != nil {
			return
		}
		var regs []int
		regs, err = registers(args...)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeNot(regs[0], regs[1]))
	case "JMP", "JSRR":
		if err = wantArgs(args, 1); err != nil {
			return
		}
		var base int
		base, err = register(args[0])
		if err != nil {
			return
		}
		if mnemonic == "JMP" {
			codes = append(codes, MakeCodeJmp(base))
		} else {
			codes = append(codes, MakeCodeJsrr(base))
		}
	case "RET":
		if err = wantArgs(args, 0); err != nil {
			return
		}
		codes = append(codes, MakeCodeJmp(REGISTER_LINK))
	case "JSR":
		if err = wantArgs(args, 1); err != nil {
			return
		}
		var offset int
		offset, link, err = target(args[0], 11)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeJsr(offset))
	case "LD", "LDI", "LEA", "ST", "STI":
		if err = wantArgs(args, 2); err != nil {
			return
		}
		op := map[string]Opcode{"LD": OP_LD, "LDI": OP_LDI, "LEA": OP_LEA, "ST": OP_ST, "STI": OP_STI}[mnemonic]
		var dr, offset int
		dr, err = register(args[0])
		if err != nil {
			return
		}
		offset, link, err = target(args[1], 9)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodePc(op, dr, offset))
	case "LDR", "STR":
		if err = wantArgs(args, 3); err != nil {
			return
		}
		op := OP_LDR
		if mnemonic == "STR" {
			op = OP_STR
		}
		var regs []int
		regs, err = registers(args[0], args[1])
		if err != nil {
			return
		}
		var offset6 int
		offset6, err = signedArg(args[2], 6)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeBase(op, regs[0], regs[1], offset6))
	case "RTI":
		if err = wantArgs(args, 0); err != nil {
			return
		}
		codes = append(codes, makeCode(OP_RTI, 0))
	case "TRAP":
		if err = wantArgs(args, 1); err != nil {
			return
		}
		var vector int64
		vector, err = valueOf(args[0])
		if err != nil {
			return
		}
		if vector < 0 || vector > 0xff {
			err = ErrParseRange{Value: vector, Width: 8}
			return
		}
		codes = append(codes, MakeCodeTrap(uint8(vector)))
	default:
		if vector, ok := _trap_names[mnemonic]; ok {
			if err = wantArgs(args, 0); err != nil {
				return
			}
			codes = append(codes, MakeCodeTrap(vector))
			return
		}
		match := reBr.FindStringSubmatch(mnemonic)
		if match == nil {
			err = ErrInstructionInvalid
			return
		}
		if err = wantArgs(args, 1); err != nil {
			return
		}
		cond := COND_MASK
		if flags := match[1]; len(flags) > 0 {
			cond = 0
			if strings.Contains(flags, "N") {
				cond |= COND_N
			}
			if strings.Contains(flags, "Z") {
				cond |= COND_Z
			}
			if strings.Contains(flags, "P") {
				cond |= COND_P
			}
		}
		var offset int
		offset, link, err = target(args[0], 9)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeBr(cond, offset))
	}

	return
}
