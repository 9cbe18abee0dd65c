package cpu

const (
	MEMORY_SIZE  = 4096  // Bytes of addressable memory.
	LOAD_ADDRESS = 0x200 // Program images are loaded, and begin execution, here.
	ADDRESS_MASK = 0xfff // Mask of a 12-bit instruction address operand.
	CODE_SIZE    = 2     // Bytes per instruction.
	REGISTERS    = 16    // General purpose registers.
	REG_FLAG     = 0xf   // Register written by flag-setting instructions.
)
