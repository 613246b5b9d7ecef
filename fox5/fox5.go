/*
Package fox5 implements the FOX5 sprite container. A FOX5 file is a footer
driven format: the footer locates an LZMA compressed, optionally encrypted,
command stream describing objects, shapes, frames and sprite layers, and the
sprite pixel data follows the command stream.
*/
package fox5

import (
	"bytes"
	"encoding/binary"

	"github.com/merklejerk/furnarchy-zero-sub001/asset"
	"github.com/merklejerk/furnarchy-zero-sub001/compression"
	"github.com/merklejerk/furnarchy-zero-sub001/keystream"
)

const (
	// Extension is the conventional file extension used
	Extension = ".fox"

	format = "fox5"
)

var signature = [4]byte{'F', 'O', 'X', '5'}

type footer struct {
	Version     uint8
	Encryption  uint8
	_           [2]byte
	CommandSize uint32
	KeyModifier uint32
	Signature   [4]byte
	Suffix      [4]byte
}

var footerSize = binary.Size(footer{})

// IDTable holds the id assigned before the first object of an edit type.
// Edit types not in the table start from -1, so their first implicit id is 0
type IDTable map[uint8]int

func (t IDTable) start(editType uint8) int {
	if id, ok := t[editType]; ok {
		return id
	}
	return -1
}

// These are the starting id tables of the two client generations. They
// don't differ in any file seen so far
var (
	LegacyIDs = IDTable{}
	ModernIDs = IDTable{}
)

// Options changes how a file is decoded
type Options struct {
	// Modern selects the id table of the current client over the legacy one
	Modern bool
}

func (o Options) ids() IDTable {
	if o.Modern {
		return ModernIDs
	}
	return LegacyIDs
}

// Point is a two-dimensional offset in pixels
type Point struct {
	X, Y int16
}

// FXFilter is the special effect applied to an object
type FXFilter struct {
	Target uint8
	Mode   uint8
}

// Ratio is the scale a shape is drawn at
type Ratio struct {
	Num, Den uint8
}

// SpriteLayer places one sprite from the sprite table within a frame
type SpriteLayer struct {
	Purpose uint16
	Sprite  uint16 // index into File.Sprites
	Offset  Point
}

// Frame is a single image of a shape built from one or more sprite layers
type Frame struct {
	Offset      Point
	FurreOffset Point
	Layers      []SpriteLayer
}

// Shape is one state of an object, e.g. a direction or animation
type Shape struct {
	Purpose   uint8
	State     uint8
	Direction uint8
	Ratio     Ratio
	Frames    []Frame
}

// Object is a single item, floor, wall or avatar in the file
type Object struct {
	ID          int
	ExplicitID  bool
	EditType    uint8
	Flags       uint8
	MoreFlags   uint32
	License     uint8
	FXFilter    FXFilter
	Name        string
	Description string
	Keywords    []string
	Authors     []uint32
	Shapes      []Shape
}

// File is a decoded FOX5 file
type File struct {
	Version   uint8
	Encrypted bool
	Generator uint8
	Objects   []Object
	Sprites   []Sprite
}

// Sprite returns the sprite table entry at index i
func (f *File) Sprite(i int) (*Sprite, bool) {
	if i < 0 || i >= len(f.Sprites) {
		return nil, false
	}
	return &f.Sprites[i], true
}

// Decode parses a FOX5 file from b. The sprite pixel data is left
// compressed, see Sprite.Pixels
func Decode(b []byte, opts Options) (*File, error) {
	if len(b) < footerSize {
		return nil, asset.Formatf(format, "file too small: %d bytes", len(b))
	}

	end := len(b) - footerSize

	var ft footer
	// Reading from bytes.Reader can't fail, the length is checked above
	_ = binary.Read(bytes.NewReader(b[end:]), binary.BigEndian, &ft)

	if ft.Signature != signature {
		return nil, asset.Formatf(format, "invalid signature %q", ft.Signature[:])
	}

	f := &File{
		Version:   ft.Version,
		Encrypted: ft.Encryption != 0,
	}

	var seed [keystream.SeedSize]byte
	if f.Encrypted {
		if end < keystream.SeedSize {
			return nil, asset.Formatf(format, "encrypted file has no seed")
		}
		end -= keystream.SeedSize
		copy(seed[:], b[end:])
	}

	if err := asset.CheckBounds(format, "command block", 0, int(ft.CommandSize), end); err != nil {
		return nil, err
	}

	block := b[:ft.CommandSize]
	if f.Encrypted {
		block = keystream.SaltedCopy(block, seed, ft.KeyModifier)
	}

	stream, err := compression.Decompress(block, compression.LZMA)
	if err != nil {
		return nil, err
	}

	p := newParser(stream, opts.ids())
	p.file(f)
	if p.err != nil {
		return nil, p.err
	}

	f.Sprites = p.sprites
	if err := resolveSprites(f.Sprites, b[ft.CommandSize:end], f.Encrypted, seed); err != nil {
		return nil, err
	}

	return f, nil
}
