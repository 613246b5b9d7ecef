package fox5

import (
	"bytes"
	"io/ioutil"

	"github.com/bodgit/plumbing"
	"github.com/merklejerk/furnarchy-zero-sub001/asset"
	"github.com/merklejerk/furnarchy-zero-sub001/compression"
	"github.com/merklejerk/furnarchy-zero-sub001/keystream"
)

// Image format values of the image list
const (
	format8Bit  = 0
	formatAlpha = 1
)

// Sprite is an entry of the sprite table. Its pixel data stays compressed
// until Pixels is called
type Sprite struct {
	Width  uint16
	Height uint16
	Alpha  bool
	Size   uint32 // compressed size
	Offset uint64 // within the pixel section
	Empty  bool
	data   []byte
}

// BytesPerPixel is 4 for sprites with an alpha channel and 1 for 8-bit
// palette sprites
func (s *Sprite) BytesPerPixel() int {
	if s.Alpha {
		return 4
	}
	return 1
}

// PixelSize returns the size of the decompressed pixel data
func (s *Sprite) PixelSize() int {
	return int(s.Width) * int(s.Height) * s.BytesPerPixel()
}

// Compressed returns a copy of the sprite's still compressed data
func (s *Sprite) Compressed() []byte {
	return append([]byte(nil), s.data...)
}

// Pixels decompresses the sprite. The result is always PixelSize bytes long,
// short streams are padded with zeroes
func (s *Sprite) Pixels() ([]byte, error) {
	r := bytes.NewReader(s.data)

	if s.Empty {
		return ioutil.ReadAll(plumbing.PaddedReader(r, int64(s.PixelSize()), 0))
	}

	if len(s.data) < compression.LZMAHeaderSize {
		return nil, &asset.CompressionError{Tag: uint32(compression.LZMA), Msg: "header too short"}
	}

	zr, err := compression.NewReader(r, compression.LZMA)
	if err != nil {
		return nil, err
	}

	return ioutil.ReadAll(plumbing.PaddedReader(zr, int64(s.PixelSize()), 0))
}

// resolveSprites copies each sprite's data out of the pixel section. A
// sprite that doesn't fit fails the whole file
func resolveSprites(sprites []Sprite, section []byte, encrypted bool, seed [keystream.SeedSize]byte) error {
	for i := range sprites {
		s := &sprites[i]

		if s.Size == 0 {
			s.Empty = true
			continue
		}

		if err := asset.CheckBounds(format, "sprite data", int(s.Offset), int(s.Size), len(section)); err != nil {
			return err
		}

		s.data = make([]byte, s.Size)
		copy(s.data, section[s.Offset:])

		if encrypted {
			keystream.Salted(s.data, seed, uint32(s.PixelSize()))
		}
	}

	return nil
}
