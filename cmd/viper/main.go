// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/ezrec/viper/cpu"
	"github.com/ezrec/viper/emulator"
	"github.com/ezrec/viper/translate"
)

// listProgram writes an assembly listing of the program, or a disassembly
// of a raw image when there is no program source.
func listProgram(w io.Writer, prog *cpu.Program, image []byte) (err error) {
	if image == nil {
		for _, op := range prog.Opcodes {
			_, err = fmt.Fprintf(w, "%03x: %-12x %4d  %v\n", op.Address, op.Data, op.LineNo, strings.Join(op.Words, " "))
			if err != nil {
				return
			}
		}
		return
	}

	for offset := 0; offset+1 < len(image); offset += cpu.CODE_SIZE {
		code := cpu.MakeCode(image[offset], image[offset+1])
		_, err = fmt.Fprintf(w, "%03x: %04x  %v\n", cpu.LOAD_ADDRESS+offset, uint16(code), code)
		if err != nil {
			return
		}
	}
	if len(image)%cpu.CODE_SIZE != 0 {
		_, err = fmt.Fprintf(w, "%03x: %02x    .byte 0x%02x\n", cpu.LOAD_ADDRESS+len(image)-1, image[len(image)-1], image[len(image)-1])
	}

	return
}

func main() {
	var compile string
	var rom string
	var output string
	var execute bool
	var listing bool
	var steps int
	var stepsPerTimer int
	var noBorrowFlag bool
	var language string
	var verbose bool

	flag.StringVar(&compile, "c", "", ".c8s file to assemble")
	flag.StringVar(&rom, "r", "", ".ch8 ROM image to run")
	flag.StringVar(&output, "o", "", "Save image to file, do not execute")
	flag.BoolVar(&execute, "x", false, "Execute, even when saving with -o")
	flag.BoolVar(&listing, "d", false, "Print listing")
	flag.IntVar(&steps, "n", 1000, "Maximum instructions to execute")
	flag.IntVar(&stepsPerTimer, "t", emulator.STEPS_PER_TIMER, "Instructions per timer decrement")
	flag.BoolVar(&noBorrowFlag, "b", false, "Set the sub and subn flag when no borrow occurs")
	flag.StringVar(&language, "l", "", "Message language (BCP 47 tag)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if len(language) != 0 {
		translate.SetLocale(language)
	}

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) != 0 && len(rom) != 0 {
		log.Fatalf("%v: -c and -r are mutually exclusive", os.Args[0])
	}

	prog := &cpu.Program{}
	var image []byte

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		prog, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	if len(rom) != 0 {
		var err error
		image, err = os.ReadFile(rom)
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
	}

	if listing {
		err := listProgram(os.Stdout, prog, image)
		if err != nil {
			log.Fatal(err)
		}
	}

	emu := emulator.NewEmulator()
	emu.Program = prog
	emu.Rom = image
	emu.Verbose = verbose
	emu.Cpu.NoBorrowFlag = noBorrowFlag

	if len(output) != 0 {
		err := os.WriteFile(output, emu.Image(), 0o644)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		if !execute {
			return
		}
	}

	err := emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	ran, err := emu.Run(steps, stepsPerTimer)
	if err != nil {
		log.Fatal(err)
	}

	if verbose {
		log.Printf("%v: %d instructions", os.Args[0], ran)
	}

	on, off := "#", "."
	if isTerminal(os.Stdout.Fd()) {
		on, off = "█", " "
	}
	fmt.Print(emu.Cpu.Display.Render(on, off))
}
