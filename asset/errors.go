package asset

import (
	"fmt"
	"strconv"
)

// FormatError reports input that does not follow the expected layout: a bad
// magic, a malformed header or an unsupported feature
type FormatError struct {
	Format string
	Msg    string
}

func (e *FormatError) Error() string {
	return e.Format + ": " + e.Msg
}

// Formatf returns a new FormatError for the named format
func Formatf(format, msg string, args ...interface{}) error {
	return &FormatError{Format: format, Msg: fmt.Sprintf(msg, args...)}
}

// BoundsError reports a declared length or computed offset that falls
// outside the input. It is always raised before the out of range access
type BoundsError struct {
	Format string
	What   string
	Offset int
	Length int
	Size   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s: %s at offset %d needs %d bytes, only %d available", e.Format, e.What, e.Offset, e.Length, e.Size-e.Offset)
}

// CheckBounds returns a BoundsError if reading length bytes at offset would
// run past size
func CheckBounds(format, what string, offset, length, size int) error {
	if offset < 0 || length < 0 || offset > size || length > size-offset {
		return &BoundsError{Format: format, What: what, Offset: offset, Length: length, Size: size}
	}
	return nil
}

// CompressionError reports an unknown compression tag or a decompressor
// result that cannot be used. Errors raised by the decompressors themselves
// are returned as is and never wrapped in a CompressionError
type CompressionError struct {
	Tag uint32
	Msg string
}

func (e *CompressionError) Error() string {
	return "compression type " + strconv.FormatUint(uint64(e.Tag), 10) + ": " + e.Msg
}

// LookupError reports an archive member that doesn't exist. It only affects
// the lookup, the archive remains usable
type LookupError struct {
	Name string
}

func (e *LookupError) Error() string {
	return strconv.Quote(e.Name) + " not found"
}
