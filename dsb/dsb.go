/*
Package dsb implements the compiled script format: a short header followed by
fixed-width 20-byte lines, optionally encrypted.
*/
package dsb

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/merklejerk/furnarchy-zero-sub001/asset"
	"github.com/merklejerk/furnarchy-zero-sub001/keystream"
)

const (
	// Extension is the conventional file extension used
	Extension = ".dsb"

	// LineSize is the size of a single encoded line
	LineSize = 20

	format     = "dsb"
	bodyOffset = 21
)

var signature = [4]byte{'D', 'S', 'B', '1'}

// Mode is the encryption mode recorded in the header
type Mode uint32

// These are the encryption modes. Any mode above ModeB behaves as ModeB
const (
	ModeNone Mode = iota
	ModeA
	ModeB
)

func (m Mode) permutation() *keystream.Permutation {
	if m >= ModeB {
		return &keystream.PermutationB
	}
	return &keystream.PermutationA
}

func (m Mode) order() binary.ByteOrder {
	if m >= ModeB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Line is one script instruction
type Line struct {
	Type    uint16
	Subtype uint16
	Params  [8]uint16
}

func (l Line) String() string {
	return fmt.Sprintf("(%d:%d) %v", l.Type, l.Subtype, l.Params)
}

// Script is a decoded DSB file
type Script struct {
	DeclaredLines int
	Mode          Mode
	Lines         []Line
}

// Decode parses a script from b. A file with fewer complete lines than its
// header declares is accepted and holds only the complete lines
func Decode(b []byte) (*Script, error) {
	if len(b) < len(signature) || !bytes.Equal(b[:len(signature)], signature[:]) {
		return nil, asset.Formatf(format, "invalid signature")
	}

	if len(b) < bodyOffset {
		return nil, asset.Formatf(format, "header too short: %d bytes", len(b))
	}

	if b[4] != '0' {
		return nil, asset.Formatf(format, "unsupported revision %q", b[4])
	}

	declared := binary.LittleEndian.Uint32(b[5:9])

	s := &Script{
		DeclaredLines: int(declared),
		Mode:          Mode(binary.LittleEndian.Uint32(b[9:13])),
	}

	body := b[bodyOffset:]
	if s.Mode != ModeNone {
		body = keystream.CRC(body, s.Mode.permutation())
	}

	n := len(body) / LineSize
	if uint64(declared) < uint64(n) {
		n = int(declared)
	}

	order := s.Mode.order()

	s.Lines = make([]Line, n)
	for i := range s.Lines {
		var fields [10]uint16
		for j := range fields {
			fields[j] = order.Uint16(body[i*LineSize+j*2:])
		}

		s.Lines[i] = Line{Type: fields[0], Subtype: fields[1]}
		copy(s.Lines[i].Params[:], fields[2:])
	}

	return s, nil
}
