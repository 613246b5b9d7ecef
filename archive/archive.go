/*
Package archive implements the FR01 multi-file container used to bundle the
client's assets.
*/
package archive

import (
	"bytes"
	"encoding/binary"
	"io/ioutil"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
	"github.com/merklejerk/furnarchy-zero-sub001/asset"
	"github.com/merklejerk/furnarchy-zero-sub001/compression"
)

const (
	// Extension is the conventional file extension used
	Extension = ".fr"

	// DefaultCacheSize is the number of decompressed members kept by default
	DefaultCacheSize = 32

	// tinylfu gives caches smaller than this no protected segment
	minCacheSize = 3

	format     = "archive"
	headerSize = 28
	nameLength = 40
	entryMagic = 0x5a46
)

var signature = [4]byte{'F', 'R', '0', '1'}

type recordFields struct {
	Magic        uint16
	Name         [nameLength]byte
	_            [8]byte
	Size         uint32
	OriginalSize uint32
	Compression  uint32
}

var recordSize = binary.Size(recordFields{})

// Entry is a single member of an archive as stored
type Entry struct {
	Name         string
	Compression  compression.Type
	OriginalSize uint32
	data         []byte
}

// Size returns the number of bytes stored for the entry
func (e *Entry) Size() int {
	return len(e.data)
}

// Raw returns a copy of the stored, still compressed, bytes
func (e *Entry) Raw() []byte {
	return clone(e.data)
}

// Decompress returns the entry contents. The stored bytes are left intact
func (e *Entry) Decompress() ([]byte, error) {
	return compression.Decompress(e.data, e.Compression)
}

// Archive is a decoded FR01 container. Members are decompressed when they
// are extracted, not when the archive is decoded. An Archive is safe for
// concurrent use
type Archive struct {
	entries []Entry
	index   map[string]int

	cacheSize int
	mu        sync.Mutex
	cache     *tinylfu.T[string, []byte]
}

// Option configures an Archive
type Option func(*Archive)

// WithCacheSize sets how many decompressed members are kept for repeated
// extraction. Zero disables the cache
func WithCacheSize(n int) Option {
	return func(a *Archive) {
		a.cacheSize = n
	}
}

func key(name string) string {
	return strings.ToLower(name)
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

func hasher(k string) uint64 {
	return xxhash.Sum64String(k)
}

// Decode parses an archive from b. The stored member bytes are copied so b
// isn't referenced once Decode returns
func Decode(b []byte, opts ...Option) (*Archive, error) {
	if len(b) < len(signature) || !bytes.Equal(b[:len(signature)], signature[:]) {
		return nil, asset.Formatf(format, "invalid signature")
	}

	if err := asset.CheckBounds(format, "header", 0, headerSize, len(b)); err != nil {
		return nil, err
	}

	a := &Archive{
		index:     make(map[string]int),
		cacheSize: DefaultCacheSize,
	}

	for _, o := range opts {
		o(a)
	}

	for offset := headerSize; offset+2 <= len(b) && binary.LittleEndian.Uint16(b[offset:]) == entryMagic; {
		if err := asset.CheckBounds(format, "entry header", offset, recordSize, len(b)); err != nil {
			return nil, err
		}

		var fields recordFields
		// Reading from bytes.Reader can't fail, the bounds are checked above
		_ = binary.Read(bytes.NewReader(b[offset:offset+recordSize]), binary.LittleEndian, &fields)
		offset += recordSize

		if err := asset.CheckBounds(format, "entry data", offset, int(fields.Size), len(b)); err != nil {
			return nil, err
		}

		e := Entry{
			Name:         string(bytes.SplitN(fields.Name[:], []byte{0}, 2)[0]),
			Compression:  compression.Type(fields.Compression),
			OriginalSize: fields.OriginalSize,
			data:         make([]byte, fields.Size),
		}
		copy(e.data, b[offset:])
		offset += int(fields.Size)

		if _, ok := a.index[key(e.Name)]; !ok {
			a.index[key(e.Name)] = len(a.entries)
		}
		a.entries = append(a.entries, e)
	}

	if a.cacheSize > 0 {
		size := a.cacheSize
		if size < minCacheSize {
			size = minCacheSize
		}
		a.cache = tinylfu.New[string, []byte](size, size*10, hasher)
	}

	return a, nil
}

// Open reads and decodes the archive at path
func Open(path string, opts ...Option) (*Archive, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b, opts...)
}

// Len returns the number of members
func (a *Archive) Len() int {
	return len(a.entries)
}

// Names returns the member names in archive order
func (a *Archive) Names() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns the members in archive order
func (a *Archive) Entries() []Entry {
	entries := make([]Entry, len(a.entries))
	copy(entries, a.entries)
	return entries
}

// Has reports whether a member exists, ignoring case
func (a *Archive) Has(name string) bool {
	_, ok := a.index[key(name)]
	return ok
}

// Entry returns a copy of the member matching name, ignoring case. When
// several members share a name the first one wins
func (a *Archive) Entry(name string) (Entry, error) {
	i, ok := a.index[key(name)]
	if !ok {
		return Entry{}, &asset.LookupError{Name: name}
	}
	return a.entries[i], nil
}

// Extract returns the decompressed contents of the member matching name.
// The returned slice belongs to the caller
func (a *Archive) Extract(name string) ([]byte, error) {
	e, err := a.Entry(name)
	if err != nil {
		return nil, err
	}

	k := key(name)

	if a.cache != nil {
		a.mu.Lock()
		b, ok := a.cache.Get(k)
		a.mu.Unlock()
		if ok {
			return clone(b), nil
		}
	}

	b, err := e.Decompress()
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		a.mu.Lock()
		a.cache.Add(k, b)
		a.mu.Unlock()
		b = clone(b)
	}

	return b, nil
}
