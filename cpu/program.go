package cpu

import (
	"iter"
	"strings"
)

// Opcode represents a line of assembled code with its source location and generated bytes.
type Opcode struct {
	LineNo    int
	Address   int
	Words     []string
	Data      []byte
	LinkLabel string
}

// IsData returns true if the opcode was generated by a data directive.
func (op *Opcode) IsData() bool {
	return len(op.Words) > 0 && strings.HasPrefix(op.Words[0], ".")
}

type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the opcode covering a memory address.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= op.Address && int(addr) < op.Address+len(op.Data) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr) - op.Address,
			}
			break
		}
	}

	return
}

// Binary returns the program image, to be loaded at LOAD_ADDRESS.
func (prog *Program) Binary() (bin []byte) {
	for _, op := range prog.Opcodes {
		bin = append(bin, op.Data...)
	}

	return
}

// Codes iterates over the instructions, skipping data directives.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, op := range prog.Opcodes {
			if op.IsData() {
				continue
			}
			for n := 0; n+1 < len(op.Data); n += CODE_SIZE {
				code := MakeCode(op.Data[n], op.Data[n+1])
				if !yield(uint16(op.Address+n), code) {
					return
				}
			}
		}
	}
}
