package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math/rand/v2"
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":    fmt.Sprintf("%#x", MEMORY_SIZE),
	"LOAD_ADDRESS":   fmt.Sprintf("%#x", LOAD_ADDRESS),
	"DISPLAY_WIDTH":  fmt.Sprintf("%d", DISPLAY_WIDTH),
	"DISPLAY_HEIGHT": fmt.Sprintf("%d", DISPLAY_HEIGHT),
}

// Cpu is the complete state of a CHIP-8 machine.
type Cpu struct {
	Verbose      bool // Set to enable verbose logging.
	NoBorrowFlag bool // Set to flag sub and subn when no borrow occurs.

	Memory   [MEMORY_SIZE]byte // Linear memory.
	Register [REGISTERS]uint8  // Register bank, v0 to vf.
	Index    uint16            // Index register, i.
	Pc       uint16            // Program counter.
	Stack    Stack             // Subroutine return addresses.
	Display  Display           // Framebuffer.

	DelayTimer uint8 // Delay timer, decremented by the host.
	SoundTimer uint8 // Sound timer, decremented by the host.

	Random func() uint8 // Entropy source for rnd.

	Ticks int // Instructions executed.
}

// randomByte draws a uniformly distributed byte.
func randomByte() uint8 {
	return uint8(rand.Uint32())
}

// NewCpu creates a new CPU, ready to execute from LOAD_ADDRESS.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears memory, registers, stack, timers and display.
// - Zeros the tick counter.
// - Sets the program counter to LOAD_ADDRESS.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory[:])
	clear(cpu.Register[:])
	cpu.Index = 0
	cpu.Pc = LOAD_ADDRESS
	cpu.Stack.Reset()
	cpu.Display.Clear()
	cpu.DelayTimer = 0
	cpu.SoundTimer = 0
	cpu.Ticks = 0

	if cpu.Random == nil {
		cpu.Random = randomByte
	}
}

// Load copies a program image into memory at origin.
// Bytes past the end of memory are dropped.
func (cpu *Cpu) Load(image []byte, origin uint16) {
	if int(origin) >= MEMORY_SIZE {
		return
	}
	copy(cpu.Memory[origin:], image)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("%5s: %03X\n", "pc", cpu.Pc)
	text += fmt.Sprintf("%5s: %03X\n", "i", cpu.Index)
	for n, val := range cpu.Register {
		text += fmt.Sprintf("%5s: %02X\n", fmt.Sprintf("v%x", n), val)
	}
	var strval string
	val, ok := cpu.Stack.Peek()
	if ok {
		strval = fmt.Sprintf("%03X (%d)", val, cpu.Stack.Depth())
	} else {
		strval = "---"
	}
	text += fmt.Sprintf("%5s: %v\n", "stack", strval)
	text += fmt.Sprintf("%5s: %02X\n", "dt", cpu.DelayTimer)
	text += fmt.Sprintf("%5s: %02X\n", "st", cpu.SoundTimer)

	return
}

// FetchCode fetches the instruction at the program counter.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	if int(cpu.Pc)+1 >= MEMORY_SIZE {
		err = ErrAddress(cpu.Pc)
		return
	}

	code = MakeCode(cpu.Memory[cpu.Pc], cpu.Memory[cpu.Pc+1])

	return
}

// Step executes a single CPU instruction cycle. On error the program
// counter still addresses the failed instruction.
func (cpu *Cpu) Step() (err error) {
	code, err := cpu.FetchCode()
	if err != nil {
		return
	}

	pc := cpu.Pc
	cpu.Pc += CODE_SIZE

	err = cpu.Execute(code)
	if err != nil {
		cpu.Pc = pc
		return
	}

	cpu.Ticks += 1

	return
}

// Execute executes a single decoded instruction. The program counter
// must already address the following instruction.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()
	if cpu.Verbose {
		log.Printf("%03x: %v", cpu.Pc-CODE_SIZE, code)
	}

	vx := &cpu.Register[code.X()]
	vy := cpu.Register[code.Y()]

	switch code.Class() {
	case OP_SYS:
		switch code {
		case CODE_CLS:
			cpu.Display.Clear()
		case CODE_RET:
			addr, ok := cpu.Stack.Pop()
			if !ok {
				err = ErrStackEmpty
				return
			}
			cpu.Pc = addr
		default:
			err = ErrOpcodeSys
			return
		}
	case OP_JP:
		cpu.Pc = code.Address()
	case OP_CALL:
		cpu.Stack.Push(cpu.Pc)
		cpu.Pc = code.Address()
	case OP_SE_IMM:
		cpu.skipIf(*vx == code.Byte())
	case OP_SNE_IMM:
		cpu.skipIf(*vx != code.Byte())
	case OP_SE_REG:
		cpu.skipIf(*vx == vy)
	case OP_LD_IMM:
		*vx = code.Byte()
	case OP_ADD_IMM:
		*vx += code.Byte()
	case OP_ALU:
		err = cpu.doAlu(code.AluOp(), code.X(), code.Y())
		if err != nil {
			return
		}
	case OP_SNE_REG:
		cpu.skipIf(*vx != vy)
	case OP_LD_INDEX:
		cpu.Index = code.Address()
	case OP_JP_V0:
		cpu.Pc = uint16(cpu.Register[0]) + code.Address()
	case OP_RND:
		*vx = cpu.Random() & code.Byte()
	case OP_DRW:
		err = cpu.draw(code.X(), code.Y(), code.N())
		if err != nil {
			return
		}
	default:
		err = ErrOpcodeDecode
		return
	}

	return
}

// skipIf skips the next instruction if cond holds.
func (cpu *Cpu) skipIf(cond bool) {
	if cond {
		cpu.Pc += CODE_SIZE
	}
}

// borrowFlag returns the flag for minuend - subtrahend: 1 on borrow, or
// 1 on no borrow when NoBorrowFlag is set.
func (cpu *Cpu) borrowFlag(minuend, subtrahend uint8) (flag uint8) {
	set := minuend < subtrahend
	if cpu.NoBorrowFlag {
		set = !set
	}
	if set {
		flag = 1
	}
	return
}

// doAlu performs the register-to-register operation vx = vx op vy.
// The flag register is written after the result, so vf holds the flag
// when it is also the destination.
func (cpu *Cpu) doAlu(op CodeAluOp, x, y uint8) (err error) {
	a := cpu.Register[x]
	b := cpu.Register[y]

	var output uint8
	var flag uint8

	switch op {
	case ALU_OP_LD:
		output = b
	case ALU_OP_OR:
		output = a | b
	case ALU_OP_AND:
		output = a & b
	case ALU_OP_XOR:
		output = a ^ b
	case ALU_OP_ADD:
		sum := uint16(a) + uint16(b)
		output = uint8(sum)
		flag = uint8(sum >> 8)
	case ALU_OP_SUB:
		output = a - b
		flag = cpu.borrowFlag(a, b)
	case ALU_OP_SHR:
		output = a >> 1
		flag = a & 1
	case ALU_OP_SUBN:
		output = b - a
		flag = cpu.borrowFlag(b, a)
	case ALU_OP_SHL:
		output = a << 1
		flag = a >> 7
	default:
		err = ErrOpcodeAlu
		return
	}

	cpu.Register[x] = output
	if op.Flags() {
		cpu.Register[REG_FLAG] = flag
	}

	return
}

// draw XORs an n-row sprite from memory at the index register onto the
// display at (vx, vy), and sets vf if any lit pixel was erased.
func (cpu *Cpu) draw(x, y, n uint8) (err error) {
	base := int(cpu.Index)
	if base+int(n) > MEMORY_SIZE {
		err = ErrAddress(base + int(n) - 1)
		return
	}

	ox := int(cpu.Register[x])
	oy := int(cpu.Register[y])

	var flag uint8
	for row := range int(n) {
		if cpu.Display.DrawRow(ox, oy+row, cpu.Memory[base+row]) {
			flag = 1
		}
	}

	cpu.Register[REG_FLAG] = flag

	return
}
