/*
Package compression undoes the per-entry and per-stream compression used by
the client's asset formats.
*/
package compression

import (
	"bytes"
	"compress/bzip2"
	"io"
	"io/ioutil"

	"github.com/merklejerk/furnarchy-zero-sub001/asset"
	"github.com/ulikunitz/xz/lzma"
)

// Type is the compression tag stored with an archive entry or stream
type Type uint32

// These are the known compression tags
const (
	None Type = iota
	Invert
	Bzip2
	Stored
	LZMA
)

// LZMAHeaderSize is the size of the properties, dictionary size and
// uncompressed size header that starts every LZMA stream
const LZMAHeaderSize = 13

func (t Type) String() string {
	strings := map[Type]string{
		None:   "None",
		Invert: "Invert",
		Bzip2:  "BZip2",
		Stored: "Stored",
		LZMA:   "LZMA",
	}

	if s, ok := strings[t]; ok {
		return s
	}
	return "Unknown"
}

// Valid reports whether t is a known compression tag
func (t Type) Valid() bool {
	return t <= LZMA
}

type invertReader struct {
	r io.Reader
}

func (ir invertReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	for i := range p[:n] {
		p[i] = ^p[i]
	}
	return n, err
}

// NewReader returns a reader that decompresses r according to t. Errors from
// the underlying decompressor are returned as is
func NewReader(r io.Reader, t Type) (io.Reader, error) {
	switch t {
	case None, Stored:
		return r, nil
	case Invert:
		return invertReader{r}, nil
	case Bzip2:
		return bzip2.NewReader(r), nil
	case LZMA:
		return lzma.NewReader(r)
	default:
		return nil, &asset.CompressionError{Tag: uint32(t), Msg: "unknown compression type"}
	}
}

// Decompress returns a new buffer holding b decompressed according to t. b
// itself is never modified
func Decompress(b []byte, t Type) ([]byte, error) {
	if t == LZMA && len(b) < LZMAHeaderSize {
		return nil, &asset.CompressionError{Tag: uint32(t), Msg: "header too short"}
	}

	r, err := NewReader(bytes.NewReader(b), t)
	if err != nil {
		return nil, err
	}

	out, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if out == nil {
		return nil, &asset.CompressionError{Tag: uint32(t), Msg: "no data"}
	}

	return out, nil
}
