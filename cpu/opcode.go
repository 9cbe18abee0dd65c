package cpu

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// CodeClass is the instruction family, selected by the top nibble.
type CodeClass int

const (
	OP_SYS      = CodeClass(0x0) // sys
	OP_JP       = CodeClass(0x1) // jp
	OP_CALL     = CodeClass(0x2) // call
	OP_SE_IMM   = CodeClass(0x3) // se
	OP_SNE_IMM  = CodeClass(0x4) // sne
	OP_SE_REG   = CodeClass(0x5) // se
	OP_LD_IMM   = CodeClass(0x6) // ld
	OP_ADD_IMM  = CodeClass(0x7) // add
	OP_ALU      = CodeClass(0x8) // alu
	OP_SNE_REG  = CodeClass(0x9) // sne
	OP_LD_INDEX = CodeClass(0xa) // ld
	OP_JP_V0    = CodeClass(0xb) // jp
	OP_RND      = CodeClass(0xc) // rnd
	OP_DRW      = CodeClass(0xd) // drw
)

// String returns the mnemonic shared by every instruction of the family.
func (class CodeClass) String() string {
	var name string
	if class >= 0 && int(class) < len(chip8.Opcodes) {
		for _, op := range chip8.Opcodes[class] {
			if name != "" && op.Instruction.Name != name {
				name = ""
				break
			}
			name = op.Instruction.Name
		}
	}
	if name == "" {
		return fmt.Sprintf("CodeClass(%d)", int(class))
	}
	return name
}

// CodeAluOp is a register-to-register operation of the OP_ALU family.
type CodeAluOp int

const (
	ALU_OP_LD   = CodeAluOp(0x0) // ld
	ALU_OP_OR   = CodeAluOp(0x1) // or
	ALU_OP_AND  = CodeAluOp(0x2) // and
	ALU_OP_XOR  = CodeAluOp(0x3) // xor
	ALU_OP_ADD  = CodeAluOp(0x4) // add
	ALU_OP_SUB  = CodeAluOp(0x5) // sub
	ALU_OP_SHR  = CodeAluOp(0x6) // shr
	ALU_OP_SUBN = CodeAluOp(0x7) // subn
	ALU_OP_SHL  = CodeAluOp(0xe) // shl
)

func (op CodeAluOp) String() string {
	var name string
	if op >= 0 && op <= 0xf {
		name = MakeCodeAlu(op, 0, 0).Name()
	}
	if name == "" {
		return fmt.Sprintf("CodeAluOp(%d)", int(op))
	}
	return name
}

// Flags returns true if the operation writes the flag register.
func (op CodeAluOp) Flags() bool {
	switch op {
	case ALU_OP_ADD, ALU_OP_SUB, ALU_OP_SHR, ALU_OP_SUBN, ALU_OP_SHL:
		return true
	}
	return false
}

// Code is a single two-byte instruction word, most significant byte first.
type Code uint16

// The two OP_SYS instructions.
const (
	CODE_CLS = Code(0x00e0)
	CODE_RET = Code(0x00ee)
)

// MakeCode assembles an instruction from its upper and lower bytes.
func MakeCode(upper, lower uint8) Code {
	return Code(uint16(upper)<<8 | uint16(lower))
}

// MakeCodeAddr creates an instruction with a 12-bit address operand.
func MakeCodeAddr(class CodeClass, addr uint16) Code {
	return Code((uint16(class) << 12) | (addr & ADDRESS_MASK))
}

// MakeCodeImm creates an instruction with a register and an 8-bit immediate.
func MakeCodeImm(class CodeClass, x uint8, value uint8) Code {
	return Code((uint16(class) << 12) | (uint16(x&0xf) << 8) | uint16(value))
}

// MakeCodeReg creates an instruction with two registers and a 4-bit operand.
func MakeCodeReg(class CodeClass, x, y, n uint8) Code {
	return Code((uint16(class) << 12) | (uint16(x&0xf) << 8) | (uint16(y&0xf) << 4) | uint16(n&0xf))
}

// MakeCodeAlu creates an OP_ALU instruction.
func MakeCodeAlu(op CodeAluOp, x, y uint8) Code {
	return MakeCodeReg(OP_ALU, x, y, uint8(op))
}

// Upper returns the first byte of the instruction.
func (code Code) Upper() uint8 {
	return uint8(code >> 8)
}

// Lower returns the second byte of the instruction.
func (code Code) Lower() uint8 {
	return uint8(code)
}

// Class returns the instruction family.
func (code Code) Class() CodeClass {
	return CodeClass(code >> 12)
}

// X returns the first register index.
func (code Code) X() uint8 {
	return code.Upper() & 0xf
}

// Y returns the second register index.
func (code Code) Y() uint8 {
	return code.Lower() >> 4
}

// N returns the 4-bit operand.
func (code Code) N() uint8 {
	return code.Lower() & 0xf
}

// Byte returns the 8-bit immediate operand.
func (code Code) Byte() uint8 {
	return code.Lower()
}

// Address returns the 12-bit address operand.
func (code Code) Address() uint16 {
	return uint16(code) & ADDRESS_MASK
}

// AluOp returns the OP_ALU sub-operation selector.
func (code Code) AluOp() CodeAluOp {
	return CodeAluOp(code.N())
}

// lookup finds the instruction in the published CHIP-8 opcode table.
func (code Code) lookup() (op chip8.Opcode, ok bool) {
	word := uint16(code)
	for _, op = range chip8.Opcodes[int(code.Class())] {
		if op.Info.Mask&word == op.Info.Value {
			ok = true
			return
		}
	}
	return
}

// Name returns the instruction mnemonic, or the empty string if the
// instruction is not in the CHIP-8 opcode table.
func (code Code) Name() string {
	op, ok := code.lookup()
	if !ok {
		return ""
	}
	return op.Instruction.Name
}

// executable returns true if Cpu.Execute implements the instruction.
func (code Code) executable() bool {
	switch code.Class() {
	case OP_SYS:
		return code == CODE_CLS || code == CODE_RET
	case OP_ALU:
		switch code.AluOp() {
		case ALU_OP_LD, ALU_OP_OR, ALU_OP_AND, ALU_OP_XOR, ALU_OP_ADD,
			ALU_OP_SUB, ALU_OP_SHR, ALU_OP_SUBN, ALU_OP_SHL:
			return true
		}
		return false
	}
	return code.Class() <= OP_DRW
}

// Valid returns true if the instruction is in the CHIP-8 opcode table
// and is executable by Cpu.Execute.
func (code Code) Valid() bool {
	_, ok := code.lookup()
	return ok && code.executable()
}

// String returns the assembly language representation of the instruction.
func (code Code) String() string {
	name := code.Name()
	if name == "" {
		return fmt.Sprintf(".word 0x%04x", uint16(code))
	}
	if !code.executable() {
		return fmt.Sprintf(".word 0x%04x ; %v", uint16(code), name)
	}

	x := code.X()
	y := code.Y()

	switch code.Class() {
	case OP_SYS:
		return name
	case OP_JP, OP_CALL:
		return fmt.Sprintf("%v 0x%03x", name, code.Address())
	case OP_SE_IMM, OP_SNE_IMM, OP_LD_IMM, OP_ADD_IMM, OP_RND:
		return fmt.Sprintf("%v v%x, 0x%02x", name, x, code.Byte())
	case OP_SE_REG, OP_SNE_REG:
		return fmt.Sprintf("%v v%x, v%x", name, x, y)
	case OP_ALU:
		return fmt.Sprintf("%v v%x, v%x", name, x, y)
	case OP_LD_INDEX:
		return fmt.Sprintf("%v i, 0x%03x", name, code.Address())
	case OP_JP_V0:
		return fmt.Sprintf("%v v0, 0x%03x", name, code.Address())
	case OP_DRW:
		return fmt.Sprintf("%v v%x, v%x, %d", name, x, y, code.N())
	}

	return name
}
