package emulator

import (
	"github.com/ezrec/viper/translate"
)

var f = translate.From

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Address uint16
	LineNo  int
	Err     error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("address %03x %v", err.Address, err.Err)
	}
	return f("line %d (address %03x) %v", err.LineNo, err.Address, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrImageSize is an image too large to load.
type ErrImageSize int

func (err ErrImageSize) Error() string {
	return f("image of %d bytes exceeds memory", int(err))
}
