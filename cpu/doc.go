// Package cpu implements the CHIP-8 virtual machine and its assembler.
//
// The machine consists of 4KiB of byte-addressed memory, sixteen 8-bit
// registers (v0-vf, with vf doubling as the carry/borrow/collision flag),
// a 16-bit index register (i), a program counter, a growable call stack,
// the delay and sound timers, and a 64x32 monochrome framebuffer.
//
// Each call to Cpu.Step fetches one two-byte instruction, advances the
// program counter, and executes it. Invalid instructions and returns with
// an empty call stack are reported as errors rather than panics.
//
// The assembler accepts a small assembly language for the same instruction
// set, supporting labels, macros, equates, and compile-time expression
// evaluation.
package cpu
