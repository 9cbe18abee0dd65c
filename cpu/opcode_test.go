package cpu

import (
	"testing"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
	"github.com/stretchr/testify/assert"
)

func TestCode_Fields(t *testing.T) {
	assert := assert.New(t)

	code := Code(0xd5a3)
	assert.Equal(uint8(0xd5), code.Upper())
	assert.Equal(uint8(0xa3), code.Lower())
	assert.Equal(OP_DRW, code.Class())
	assert.Equal(uint8(0x5), code.X())
	assert.Equal(uint8(0xa), code.Y())
	assert.Equal(uint8(0x3), code.N())
	assert.Equal(uint8(0xa3), code.Byte())
	assert.Equal(uint16(0x5a3), code.Address())

	assert.Equal(code, MakeCode(0xd5, 0xa3))
	assert.Equal(code, MakeCodeReg(OP_DRW, 5, 0xa, 3))
	assert.Equal(Code(0x1234), MakeCodeAddr(OP_JP, 0x1234))
	assert.Equal(Code(0x6c42), MakeCodeImm(OP_LD_IMM, 0xc, 0x42))
	assert.Equal(Code(0x812e), MakeCodeAlu(ALU_OP_SHL, 1, 2))
	assert.Equal(ALU_OP_SHL, Code(0x812e).AluOp())
}

func TestCode_Valid(t *testing.T) {
	assert := assert.New(t)

	valid := 0
	for n := range 0x10000 {
		if Code(n).Valid() {
			valid++
		}
	}

	// cls, ret, 10 families of 4096, se and sne of 256, and 9 alu ops of 256.
	assert.Equal(2+10*4096+2*256+9*256, valid)

	assert.False(Code(0x0123).Valid())
	assert.False(Code(0x8008).Valid())
	assert.False(Code(0x5a61).Valid())
	assert.False(Code(0x9a6f).Valid())
	assert.False(Code(0xe09e).Valid())
	assert.False(Code(0xf007).Valid())
}

func TestCode_Name(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		code Code
		name string
	}){
		{0x00e0, chip8.ClsName},
		{0x00ee, chip8.RetName},
		{0x0123, ""},
		{0x5a60, chip8.SeName},
		{0x5a61, ""},
		{0x8bc5, chip8.SubName},
		{0x8bc7, chip8.SubnName},
		{0x8bce, chip8.ShlName},
		{0x8bc8, ""},
		{0x9a60, chip8.SneName},
		{0xe09e, chip8.SkpName},
		{0xe0a1, chip8.SknpName},
		{0xe0a2, ""},
		{0xf007, chip8.LdName},
		{0xf01e, chip8.AddName},
		{0xf0ff, ""},
	}

	for _, entry := range table {
		assert.Equal(entry.name, entry.code.Name(), "%04x", uint16(entry.code))
	}
}

func TestCode_String(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		code Code
		text string
	}){
		{0x00e0, "cls"},
		{0x00ee, "ret"},
		{0x1234, "jp 0x234"},
		{0x2345, "call 0x345"},
		{0x35c8, "se v5, 0xc8"},
		{0x45c8, "sne v5, 0xc8"},
		{0x5a60, "se va, v6"},
		{0x6b01, "ld vb, 0x01"},
		{0x7b02, "add vb, 0x02"},
		{0x8bc0, "ld vb, vc"},
		{0x8bc1, "or vb, vc"},
		{0x8bc2, "and vb, vc"},
		{0x8bc3, "xor vb, vc"},
		{0x8bc4, "add vb, vc"},
		{0x8bc5, "sub vb, vc"},
		{0x8bc6, "shr vb, vc"},
		{0x8bc7, "subn vb, vc"},
		{0x8bce, "shl vb, vc"},
		{0x9a60, "sne va, v6"},
		{0xa123, "ld i, 0x123"},
		{0xb300, "jp v0, 0x300"},
		{0xc70f, "rnd v7, 0x0f"},
		{0xdab3, "drw va, vb, 3"},
		{0x0123, ".word 0x0123"},
		{0x5a61, ".word 0x5a61"},
		{0xe09e, ".word 0xe09e ; skp"},
		{0xf007, ".word 0xf007 ; ld"},
		{0xf0ff, ".word 0xf0ff"},
	}

	for _, entry := range table {
		assert.Equal(entry.text, entry.code.String())
	}
}

func TestCodeClass_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("drw", OP_DRW.String())
	assert.Equal("se", OP_SE_REG.String())
	assert.Equal("CodeClass(0)", OP_SYS.String())
	assert.Equal("CodeClass(8)", OP_ALU.String())
	assert.Equal("CodeClass(15)", CodeClass(0xf).String())
	assert.Equal("CodeClass(16)", CodeClass(0x10).String())
	assert.Equal("subn", ALU_OP_SUBN.String())
	assert.Equal("CodeAluOp(8)", CodeAluOp(8).String())
	assert.Equal("CodeAluOp(21)", CodeAluOp(0x15).String())
	assert.True(ALU_OP_ADD.Flags())
	assert.False(ALU_OP_XOR.Flags())
}
