package cpu

import (
	"math/bits"
	"slices"
	"strings"
)

const (
	DISPLAY_WIDTH  = 64                             // Pixels per row.
	DISPLAY_HEIGHT = 32                             // Rows.
	DISPLAY_PIXELS = DISPLAY_WIDTH * DISPLAY_HEIGHT // Pixels total.
	DISPLAY_SIZE   = DISPLAY_PIXELS / 8             // Bytes of packed framebuffer.
)

// Display is a monochrome framebuffer, packed one bit per pixel in row-major
// order with the leftmost pixel of each byte in its most significant bit.
//
// All coordinates wrap modulo the display width and height.
type Display struct {
	bits [DISPLAY_SIZE]byte
}

// wrap reduces value into [0, size).
func wrap(value, size int) int {
	value %= size
	if value < 0 {
		value += size
	}
	return value
}

// locate returns the byte index and bit mask of a pixel.
func (d *Display) locate(x, y int) (index int, mask byte) {
	bit := wrap(y, DISPLAY_HEIGHT)*DISPLAY_WIDTH + wrap(x, DISPLAY_WIDTH)
	return bit >> 3, 0x80 >> (bit & 7)
}

// Width of the display in pixels.
func (d *Display) Width() int {
	return DISPLAY_WIDTH
}

// Height of the display in pixels.
func (d *Display) Height() int {
	return DISPLAY_HEIGHT
}

// Clear turns off all pixels.
func (d *Display) Clear() {
	clear(d.bits[:])
}

// Pixel returns true if the pixel at x, y is lit.
func (d *Display) Pixel(x, y int) bool {
	index, mask := d.locate(x, y)
	return d.bits[index]&mask != 0
}

// Set lights or clears the pixel at x, y.
func (d *Display) Set(x, y int, lit bool) {
	index, mask := d.locate(x, y)
	if lit {
		d.bits[index] |= mask
	} else {
		d.bits[index] &^= mask
	}
}

// Flip inverts the pixel at x, y, and returns true if it was lit before.
func (d *Display) Flip(x, y int) (erased bool) {
	index, mask := d.locate(x, y)
	erased = d.bits[index]&mask != 0
	d.bits[index] ^= mask
	return
}

// DrawRow XORs the eight bits of row, most significant first, into the
// pixels x..x+7 of line y. Returns true if any lit pixel was turned off.
func (d *Display) DrawRow(x, y int, row byte) (collision bool) {
	for n := range 8 {
		if row&(0x80>>n) == 0 {
			continue
		}
		if d.Flip(x+n, y) {
			collision = true
		}
	}
	return
}

// Bits reads count (up to 64) pixels starting at the linear pixel offset,
// returning them with the first pixel in the most significant position.
func (d *Display) Bits(offset, count int) (value uint64) {
	for n := range count {
		bit := wrap(offset+n, DISPLAY_PIXELS)
		value <<= 1
		if d.bits[bit>>3]&(0x80>>(bit&7)) != 0 {
			value |= 1
		}
	}
	return
}

// Lit returns the number of lit pixels.
func (d *Display) Lit() (count int) {
	for _, b := range d.bits {
		count += bits.OnesCount8(b)
	}
	return
}

// Bytes returns a copy of the packed framebuffer.
func (d *Display) Bytes() []byte {
	return slices.Clone(d.bits[:])
}

// Render draws the display as text, one line per row, using on and off
// for lit and unlit pixels.
func (d *Display) Render(on, off string) string {
	var sb strings.Builder
	for y := range DISPLAY_HEIGHT {
		for x := range DISPLAY_WIDTH {
			if d.Pixel(x, y) {
				sb.WriteString(on)
			} else {
				sb.WriteString(off)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// String returns the display rendered with '#' and '.'.
func (d *Display) String() string {
	return d.Render("#", ".")
}
