package emulator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/viper/cpu"
)

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.NotNil(emu.Program)
	assert.Equal(uint16(cpu.LOAD_ADDRESS), emu.Cpu.Pc)

	defines := map[string]string{}
	for key, value := range emu.Defines() {
		defines[key] = value
	}
	assert.Equal("60", defines["TIMER_HZ"])
	assert.Equal("10", defines["STEPS_PER_TIMER"])
	assert.Equal("0x200", defines["LOAD_ADDRESS"])
}

func assemble(emu *Emulator, program []string, t *testing.T) {
	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	emu.Program = prog

	err = emu.Reset()
	if err != nil {
		t.Fatal(err)
	}
}

func TestEmulatorSingle(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"  ld v0, 5",
		"  ld v1, 7",
		"  add v0, v1",
		"  halt",
	}

	emu := NewEmulator()
	assemble(emu, program, t)

	for n, op := range emu.Program.Opcodes {
		here := program[op.LineNo-1]
		assert.Equal(op.LineNo, emu.LineNo(), here)
		assert.Equal(uint16(op.Address), emu.Cpu.Pc, here)
		assert.Equal(cpu.MakeCode(op.Data[0], op.Data[1]), emu.Code(), here)

		done, err := emu.Tick()
		assert.NoError(err, here)
		assert.Equal(n == len(emu.Program.Opcodes)-1, done, here)
	}

	assert.Equal(uint8(12), emu.Cpu.Register[0])
	assert.Equal(uint8(0), emu.Cpu.Register[cpu.REG_FLAG])
	assert.Equal(4, emu.Ticks())
}

func TestEmulatorLoop(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"  ld v0, 0",
		"loop:",
		"  call inc",
		"  se v0, 10",
		"  jp loop",
		"  halt",
		"inc:",
		"  add v0, 1",
		"  ret",
	}

	emu := NewEmulator()
	assemble(emu, program, t)
	emu.Cpu.DelayTimer = 20
	emu.Cpu.SoundTimer = 3

	ran, err := emu.Run(1000, 10)
	assert.NoError(err)
	assert.Equal(51, ran)
	assert.Equal(uint8(10), emu.Cpu.Register[0])
	assert.True(emu.Cpu.Stack.Empty())
	assert.Equal(uint8(15), emu.Cpu.DelayTimer)
	assert.Equal(uint8(0), emu.Cpu.SoundTimer)
	assert.False(emu.Buzzing())
}

func TestEmulatorRunaway(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"loop: add v0, 1",
		"  jp loop",
	}

	emu := NewEmulator()
	assemble(emu, program, t)

	ran, err := emu.Run(10, 0)
	assert.NoError(err)
	assert.Equal(10, ran)
	assert.Equal(uint8(5), emu.Cpu.Register[0])
}

func TestEmulatorDraw(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"  ld i, sprite",
		"  ld v0, 3",
		"  ld v1, 4",
		"  drw v0, v1, 3",
		"  halt",
		"sprite:",
		"  .byte 0x55 0xaa 0x55",
	}

	emu := NewEmulator()
	assemble(emu, program, t)

	ran, err := emu.Run(100, 0)
	assert.NoError(err)
	assert.Equal(5, ran)

	assert.Equal(uint64(0x55), emu.Cpu.Display.Bits(4*cpu.DISPLAY_WIDTH+3, 8))
	assert.Equal(uint64(0xaa), emu.Cpu.Display.Bits(5*cpu.DISPLAY_WIDTH+3, 8))
	assert.Equal(uint64(0x55), emu.Cpu.Display.Bits(6*cpu.DISPLAY_WIDTH+3, 8))
	assert.Equal(uint8(0), emu.Cpu.Register[cpu.REG_FLAG])
}

func TestEmulatorRuntimeError(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"  cls",
		"  ret",
	}

	emu := NewEmulator()
	assemble(emu, program, t)

	ran, err := emu.Run(100, 0)
	assert.Equal(1, ran)
	assert.ErrorIs(err, cpu.ErrStackEmpty)

	var re *ErrRuntime
	assert.True(errors.As(err, &re))
	if re != nil {
		assert.Equal(2, re.LineNo)
		assert.Equal(uint16(0x202), re.Address)
	}
}

func TestEmulatorRom(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Rom = []byte{0x60, 0x42, 0x12, 0x02}

	err := emu.Reset()
	assert.NoError(err)
	assert.Equal(0, emu.LineNo())
	assert.Equal(cpu.Code(0x6042), emu.Code())

	ran, err := emu.Run(100, 0)
	assert.NoError(err)
	assert.Equal(2, ran)
	assert.Equal(uint8(0x42), emu.Cpu.Register[0])

	// Runtime errors without a listing have no line number.
	emu.Rom = []byte{0xf0, 0x07}
	err = emu.Reset()
	assert.NoError(err)
	_, err = emu.Tick()
	var re *ErrRuntime
	assert.True(errors.As(err, &re))
	assert.ErrorIs(err, cpu.ErrOpcodeDecode)
	if re != nil {
		assert.Equal(0, re.LineNo)
	}
}

func TestEmulatorCodeMemory(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assemble(emu, []string{
		"  ld v0, 5",
		"  halt",
	}, t)
	assert.Equal(cpu.Code(0x6005), emu.Code())

	// Modified memory is decoded, not the listing.
	emu.Cpu.Memory[cpu.LOAD_ADDRESS+1] = 0x09
	assert.Equal(cpu.Code(0x6009), emu.Code())
	_, err := emu.Tick()
	assert.NoError(err)
	assert.Equal(uint8(9), emu.Cpu.Register[0])

	// A ROM overrides the listing.
	emu.Rom = []byte{0x61, 0x42, 0x12, 0x02}
	err = emu.Reset()
	assert.NoError(err)
	assert.Equal(cpu.Code(0x6142), emu.Code())
	assert.Equal(0, emu.LineNo())
}

func TestEmulatorImageSize(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Rom = make([]byte, cpu.MEMORY_SIZE-cpu.LOAD_ADDRESS)
	assert.NoError(emu.Reset())

	emu.Rom = make([]byte, cpu.MEMORY_SIZE-cpu.LOAD_ADDRESS+1)
	err := emu.Reset()
	assert.Equal(ErrImageSize(cpu.MEMORY_SIZE-cpu.LOAD_ADDRESS+1), err)
}

func TestEmulatorTimers(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Cpu.DelayTimer = 2
	emu.Cpu.SoundTimer = 1
	assert.True(emu.Buzzing())

	emu.TickTimers()
	assert.Equal(uint8(1), emu.Cpu.DelayTimer)
	assert.Equal(uint8(0), emu.Cpu.SoundTimer)
	assert.False(emu.Buzzing())

	emu.TickTimers()
	emu.TickTimers()
	assert.Equal(uint8(0), emu.Cpu.DelayTimer)
	assert.Equal(uint8(0), emu.Cpu.SoundTimer)
}
