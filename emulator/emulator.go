// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/viper/cpu"
	"github.com/ezrec/viper/internal"
)

const (
	TIMER_HZ        = 60 // Timer decrement rate.
	STEPS_PER_TIMER = 10 // Default instructions per timer decrement.
)

var _emulator_defines = map[string]string{
	"TIMER_HZ":        fmt.Sprintf("%v", TIMER_HZ),
	"STEPS_PER_TIMER": fmt.Sprintf("%v", STEPS_PER_TIMER),
}

// Emulator state. CPU + program image + timer cadence.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Rom []byte // Raw image, loaded in place of the program when set.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Image returns the memory image loaded on reset.
func (emu *Emulator) Image() []byte {
	if emu.Rom != nil {
		return emu.Rom
	}

	return emu.Program.Binary()
}

// Reset the machine, and load the image at LOAD_ADDRESS.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	image := emu.Image()
	if len(image) > cpu.MEMORY_SIZE-cpu.LOAD_ADDRESS {
		err = ErrImageSize(len(image))
		return
	}

	emu.Cpu.Load(image, cpu.LOAD_ADDRESS)

	if emu.Verbose {
		log.Printf("emulator: loaded %d bytes", len(image))
	}

	return
}

// Ticks returns the total instructions executed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Code returns the instruction in memory at the program counter.
func (emu *Emulator) Code() cpu.Code {
	code, _ := emu.Cpu.FetchCode()

	return code
}

// LineNo returns the current line number for the executing opcode, or 0
// when running a ROM.
func (emu *Emulator) LineNo() int {
	if emu.Rom != nil {
		return 0
	}

	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
// done is set when the instruction was a jump to itself.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Address: pc, LineNo: lineno, Err: err}
		}
	}()

	code, _ := emu.Cpu.FetchCode()

	err = emu.Cpu.Step()
	if err != nil {
		return
	}

	switch code.Class() {
	case cpu.OP_JP, cpu.OP_JP_V0:
		done = emu.Cpu.Pc == pc
	}

	if done && emu.Verbose {
		log.Printf("emulator: halted at %03x", pc)
	}

	return
}

// TickTimers decrements the delay and sound timers, as at TIMER_HZ.
func (emu *Emulator) TickTimers() {
	if emu.Cpu.DelayTimer > 0 {
		emu.Cpu.DelayTimer--
	}
	if emu.Cpu.SoundTimer > 0 {
		emu.Cpu.SoundTimer--
	}
}

// Buzzing returns true while the sound timer is active.
func (emu *Emulator) Buzzing() bool {
	return emu.Cpu.SoundTimer > 0
}

// Run executes up to steps instructions, decrementing the timers every
// stepsPerTimer instructions. Stops early on a halt or an error.
func (emu *Emulator) Run(steps int, stepsPerTimer int) (ran int, err error) {
	for ran < steps {
		var done bool
		done, err = emu.Tick()
		if err != nil {
			return
		}

		ran++

		if stepsPerTimer > 0 && ran%stepsPerTimer == 0 {
			emu.TickTimers()
		}

		if done {
			break
		}
	}

	return
}
