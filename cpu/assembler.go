// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = func() (equ map[string]string) {
	equ = maps.Clone(_cpu_defines)
	equ["LINENO"] = "0"
	return
}()

// Assembler is a single pass macro assembler for CHIP-8 programs.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine  map[string]string   // Predefines
	expansions int                 // Macro expansion counter.
	Label      map[string]int      // Map of labels to memory addresses.
	Equate     map[string]string   // Map of equates.
	Macro      map[string](*Macro) // Map of macros.
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
	labelRegexp     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	characterRegexp = regexp.MustCompile(`'\\?[^']'`)
	parenRegexp     = regexp.MustCompile(`\$\([^\$]*\)`)
)

// registerOf returns the index of a v0..vf register name.
func registerOf(word string) (reg uint8, ok bool) {
	if len(word) != 2 || (word[0] != 'v' && word[0] != 'V') {
		return
	}
	value, err := strconv.ParseUint(word[1:], 16, 4)
	if err != nil {
		return
	}

	return uint8(value), true
}

// register returns the index of a register operand.
func (asm *Assembler) register(word string) (reg uint8, err error) {
	reg, ok := registerOf(word)
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word)
		return
	}
	value, err = strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	return
}

// fieldOf returns the value of a word that must fit in an operand field
// of the given width. Negative values are stored as two's complement.
func (asm *Assembler) fieldOf(word string, width int) (value uint16, err error) {
	v64, err := asm.valueOf(word)
	if err != nil {
		return
	}

	limit := int64(1) << width
	if v64 >= limit || v64 < -(limit>>1) {
		err = ErrValueRange{Value: v64, Bits: width}
		return
	}

	value = uint16(v64) & uint16(limit-1)
	return
}

// addressOf returns an address operand, or the label it is to be linked to.
func (asm *Assembler) addressOf(word string) (addr uint16, label string, err error) {
	if _, is_reg := registerOf(word); !is_reg && labelRegexp.MatchString(word) {
		label = word
		return
	}

	addr, err = asm.fieldOf(word, 12)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v64 int64
		v64, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
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

// isSeparator splits operands on whitespace and commas.
func isSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == ','
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = characterRegexp.ReplaceAllStringFunc(line, func(word string) string {
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
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = parenRegexp.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = strings.FieldsFunc(line, isSeparator)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
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
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if !labelRegexp.MatchString(label) {
			err = ErrLabelInvalid
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddress()
		words = words[1:]
		if len(words) == 0 {
			return
		}
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
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansions++
		prefix := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", prefix)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddress gets the memory address of the next opcode.
func (asm *Assembler) currentAddress() int {
	if len(asm.Opcode) == 0 {
		return LOAD_ADDRESS
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Address + len(last.Data)
}

// Parse parses an input stream into a Program containing opcodes.
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
	asm.Opcode = asm.Opcode[:0]
	asm.expansions = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := strings.FieldsFunc(line, isSeparator)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
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

		if len(words) > 0 && words[0] == ".endm" {
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

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of address labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrLabelMissing(label)
			return
		}
		if addr > ADDRESS_MASK {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrValueRange{Value: int64(addr), Bits: 12}
			return
		}
		op.Data[0] |= uint8(addr>>8) & 0xf
		op.Data[1] = uint8(addr)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// aluMap maps register-to-register operation names.
var aluMap = map[string]CodeAluOp{
	"or":   ALU_OP_OR,
	"and":  ALU_OP_AND,
	"xor":  ALU_OP_XOR,
	"sub":  ALU_OP_SUB,
	"subn": ALU_OP_SUBN,
	"shr":  ALU_OP_SHR,
	"shl":  ALU_OP_SHL,
}

// argCount checks the number of operands.
func argCount(args []string, count int) (err error) {
	switch {
	case len(args) < count:
		err = ErrOpcodeValueMissing
	case len(args) > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var data []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(data) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Address: asm.currentAddress(), Words: initial_words, Data: data, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	emit := func(code Code) {
		data = append(data, code.Upper(), code.Lower())
	}

	op := strings.ToLower(words[0])
	args := words[1:]

	// Alternate syntax substitutions
	switch {
	case op == "halt" && len(args) == 0:
		// halt => jp <here>
		op = "jp"
		args = []string{strconv.Itoa(asm.currentAddress())}
	case (op == "shr" || op == "shl") && len(args) == 1:
		// shr vx => shr vx vx
		args = []string{args[0], args[0]}
	default:
		// unchanged
	}

	var addr uint16
	var value uint16
	var x, y uint8

	switch op {
	case "cls", "ret":
		err = argCount(args, 0)
		if err != nil {
			return
		}
		if op == "cls" {
			emit(CODE_CLS)
		} else {
			emit(CODE_RET)
		}
	case "jp", "call":
		class := OP_JP
		if op == "call" {
			class = OP_CALL
		}
		if op == "jp" && len(args) == 2 {
			// jp v0 ADDR
			x, err = asm.register(args[0])
			if err != nil {
				return
			}
			if x != 0 {
				err = ErrRegisterInvalid
				return
			}
			class = OP_JP_V0
			args = args[1:]
		}
		err = argCount(args, 1)
		if err != nil {
			return
		}
		addr, label, err = asm.addressOf(args[0])
		if err != nil {
			return
		}
		emit(MakeCodeAddr(class, addr))
	case "se", "sne", "ld", "add":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		if op == "ld" && strings.ToLower(args[0]) == "i" {
			addr, label, err = asm.addressOf(args[1])
			if err != nil {
				return
			}
			emit(MakeCodeAddr(OP_LD_INDEX, addr))
			break
		}
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		var is_reg bool
		y, is_reg = registerOf(args[1])
		if is_reg {
			switch op {
			case "se":
				emit(MakeCodeReg(OP_SE_REG, x, y, 0))
			case "sne":
				emit(MakeCodeReg(OP_SNE_REG, x, y, 0))
			case "ld":
				emit(MakeCodeAlu(ALU_OP_LD, x, y))
			case "add":
				emit(MakeCodeAlu(ALU_OP_ADD, x, y))
			}
			break
		}
		value, err = asm.fieldOf(args[1], 8)
		if err != nil {
			return
		}
		class := map[string]CodeClass{
			"se":  OP_SE_IMM,
			"sne": OP_SNE_IMM,
			"ld":  OP_LD_IMM,
			"add": OP_ADD_IMM,
		}[op]
		emit(MakeCodeImm(class, x, uint8(value)))
	case "or", "and", "xor", "sub", "subn", "shr", "shl":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		y, err = asm.register(args[1])
		if err != nil {
			return
		}
		emit(MakeCodeAlu(aluMap[op], x, y))
	case "rnd":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		value, err = asm.fieldOf(args[1], 8)
		if err != nil {
			return
		}
		emit(MakeCodeImm(OP_RND, x, uint8(value)))
	case "drw":
		err = argCount(args, 3)
		if err != nil {
			return
		}
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		y, err = asm.register(args[1])
		if err != nil {
			return
		}
		value, err = asm.fieldOf(args[2], 4)
		if err != nil {
			return
		}
		emit(MakeCodeReg(OP_DRW, x, y, uint8(value)))
	case ".byte":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, arg := range args {
			value, err = asm.fieldOf(arg, 8)
			if err != nil {
				return
			}
			data = append(data, uint8(value))
		}
	case ".word":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, arg := range args {
			value, err = asm.fieldOf(arg, 16)
			if err != nil {
				return
			}
			data = append(data, uint8(value>>8), uint8(value))
		}
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
