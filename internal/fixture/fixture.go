/*
Package fixture builds synthetic assets for tests. Nothing outside _test.go
files should import it; the decoders in this module are read-only.
*/
package fixture

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/ulikunitz/xz/lzma"
)

var table = crc32.MakeTable(crc32.IEEE)

// EncryptCRC is the inverse of keystream.CRC. plain[0] is the seed
func EncryptCRC(plain []byte, perm [16]int) []byte {
	b := make([]byte, len(plain))
	copy(b, plain)

	if len(plain) == 0 {
		return b
	}

	key := 0x00ffffff ^ table[255^plain[0]]

	for start := 1; start+16 <= len(plain); start += 16 {
		for i, j := range perm {
			p := plain[start+i]
			b[start+j] = p + byte(key)
			key = key>>8 ^ table[byte(key)^p]
		}
	}

	return b
}

// LZMA compresses b into the LZMA-alone format with a 13-byte header
func LZMA(b []byte) []byte {
	buf := new(bytes.Buffer)
	w, err := lzma.NewWriter(buf)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Member is one file stored in an archive built by Archive
type Member struct {
	Name        string
	Compression uint32
	Data        []byte
}

// Archive builds an FR01 container holding members
func Archive(members ...Member) []byte {
	buf := new(bytes.Buffer)

	header := make([]byte, 28)
	copy(header, "FR01")
	binary.LittleEndian.PutUint32(header[4:], uint32(len(members)))
	buf.Write(header)

	for _, m := range members {
		record := make([]byte, 62)
		binary.LittleEndian.PutUint16(record[0:], 0x5a46)
		copy(record[2:42], m.Name)
		binary.LittleEndian.PutUint32(record[50:], uint32(len(m.Data)))
		binary.LittleEndian.PutUint32(record[54:], uint32(len(m.Data)))
		binary.LittleEndian.PutUint32(record[58:], m.Compression)
		buf.Write(record)
		buf.Write(m.Data)
	}

	return buf.Bytes()
}

// Writer accumulates big-endian fields, the byte order of FOX5 command
// streams
type Writer struct {
	bytes.Buffer
}

// Tag writes a single command byte
func (w *Writer) Tag(t byte) *Writer {
	w.WriteByte(t)
	return w
}

// U8 writes a byte
func (w *Writer) U8(v uint8) *Writer {
	w.WriteByte(v)
	return w
}

// U16 writes a big-endian uint16
func (w *Writer) U16(v uint16) *Writer {
	_ = binary.Write(w, binary.BigEndian, v)
	return w
}

// U32 writes a big-endian uint32
func (w *Writer) U32(v uint32) *Writer {
	_ = binary.Write(w, binary.BigEndian, v)
	return w
}

// S16 writes a big-endian int16
func (w *Writer) S16(v int16) *Writer {
	_ = binary.Write(w, binary.BigEndian, v)
	return w
}

// S32 writes a big-endian int32
func (w *Writer) S32(v int32) *Writer {
	_ = binary.Write(w, binary.BigEndian, v)
	return w
}

// Str writes a string prefixed with its big-endian uint16 length
func (w *Writer) Str(s string) *Writer {
	w.U16(uint16(len(s)))
	w.WriteString(s)
	return w
}

// List opens a list of count records at level
func (w *Writer) List(level uint8, count uint32) *Writer {
	return w.Tag('L').U8(level).U32(count)
}

// End closes the current record
func (w *Writer) End() *Writer {
	return w.Tag('<')
}
