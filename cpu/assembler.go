// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

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

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":      "0",
	"MEMORY_SIZE": fmt.Sprintf("%d", MEMORY_SIZE),
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel      = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
)

// Assembler is a single pass assembler for the vm16 instruction set.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of labels to byte addresses.
	Equate    map[string]string // Map of equates.

	instructions []Instruction
	lines        []Line
	links        []string // Label to link into A1, per instruction.
	addr         int      // Address of the next instruction.
}

// Predefine defines a new equate or redefines an existing equate.
// Predefines survive across calls to Parse.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// movMap maps mov destinations to opcodes.
var movMap = map[string]Opcode{
	"ax": OP_MOV_AX,
	"bx": OP_MOV_BX,
	"cx": OP_MOV_CX,
	"dx": OP_MOV_DX,
	"sp": OP_MOV_SP,
}

// regMap maps push/pop register names to selectors.
var regMap = map[string]Register{
	"ax": REG_AX,
	"bx": REG_BX,
	"cx": REG_CX,
	"dx": REG_DX,
}

// valueOf returns the 16-bit value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	invert := false
	if len(word) > 1 && word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) > 0 && word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 > 0xffff || v64 < -0x8000 {
		err = ErrValueRange
		return
	}

	value = uint16(v64)

	if invert {
		value = ^value
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint16, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, err := strconv.ParseInt(str, 0, 64)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	for key, addr := range asm.Label {
		if _, ok := pred[key]; !ok {
			pred[key] = starlark.MakeInt(addr)
		}
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
	st_int64, ok := st_int.Int64()
	if !ok || st_int64 > 0xffff || st_int64 < -0x8000 {
		err = ErrParseExpression(expr)
		return
	}
	value = uint16(st_int64)
	return
}

// parseLine expands a single line of text into words, handling
// character literals, expressions, equates and labels.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
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
			case "0":
				str = "\000"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("0x%x", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.ToLower(words[0]) == ".equ" {
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

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if !reLabel.MatchString(label) {
			err = ErrLabelInvalid
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		asm.Label[label] = asm.addr
		words = words[1:]
	}

	for n, word := range words {
		// Register names are never substituted.
		if _, ok := movMap[strings.ToLower(word)]; ok {
			continue
		}

		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]int, 16)
	asm.instructions = asm.instructions[:0]
	asm.lines = asm.lines[:0]
	asm.links = asm.links[:0]
	asm.addr = 0
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

		text_comment := strings.SplitN(text, ";", 2)
		line = strings.TrimSpace(text_comment[0])

		var words []string
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

	// Final linking of labels.
	for n, label := range asm.links {
		if len(label) == 0 {
			continue
		}
		addr, ok := asm.Label[label]
		if !ok {
			lineno = asm.lines[n].LineNo
			line = strings.Join(asm.lines[n].Words, " ")
			err = ErrLabelMissing(label)
			return
		}
		asm.instructions[n].A1 = uint16(addr)
	}

	prog = &Program{
		Instructions: slices.Clone(asm.instructions),
		Lines:        slices.Clone(asm.lines),
	}

	return
}

// operand evaluates a value operand, which may be a label to link later.
func (asm *Assembler) operand(word string) (value uint16, label string, err error) {
	value, err = asm.valueOf(word)
	if err == nil {
		return
	}

	if reLabel.MatchString(word) {
		addr, ok := asm.Label[word]
		if ok {
			value = uint16(addr)
		} else {
			label = word
		}
		err = nil
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	var ins Instruction
	var label string

	mnemonic := strings.ToLower(words[0])
	args := words[1:]

	switch mnemonic {
	case "mov":
		if len(args) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		op, ok := movMap[strings.ToLower(args[0])]
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		ins.Op = op
		ins.A1, label, err = asm.operand(args[1])
		if err != nil {
			return
		}
	case "push", "pop":
		if len(args) < 1 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 1 {
			err = ErrOpcodeExtraArgs
			return
		}
		ins.Op, _ = LookupMnemonic(mnemonic)
		reg, ok := regMap[strings.ToLower(args[0])]
		if ok {
			ins.A1 = uint16(reg)
		} else {
			// Raw selectors are permitted, and checked at run time.
			ins.A1, err = asm.valueOf(args[0])
			if err != nil {
				err = ErrRegisterInvalid
				return
			}
		}
	default:
		op, ok := LookupMnemonic(mnemonic)
		if !ok {
			err = ErrInstructionInvalid
			return
		}
		if len(args) > 0 {
			err = ErrOpcodeExtraArgs
			return
		}
		ins.Op = op
	}

	size, err := ins.Size()
	if err != nil {
		return
	}

	asm.instructions = append(asm.instructions, ins)
	asm.lines = append(asm.lines, Line{LineNo: lineno, Addr: asm.addr, Words: words})
	asm.links = append(asm.links, label)
	asm.addr += size

	return
}
