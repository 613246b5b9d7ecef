/*
Package mapfile implements the map format: a text header of key=value pairs
followed by a binary body holding the raster layers, optionally encrypted.
*/
package mapfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/merklejerk/furnarchy-zero-sub001/asset"
	"github.com/merklejerk/furnarchy-zero-sub001/keystream"
)

const (
	// Extension is the conventional file extension used
	Extension = ".map"

	format      = "map"
	searchLimit = 2048

	// From this version the body uses the second block order, keeps its
	// seed byte and stores 16-bit cells big-endian
	modernVersion = 120
)

var bodyMarker = []byte("BODY")

// Map is a decoded map file
type Map struct {
	Version  int // major*100 + minor
	Width    int
	Height   int
	Name     string
	Revision int
	Encoded  bool
	NoLoad   bool
	Header   map[string]string // every key=value pair, keys lowercased
	layers   []*Layer
}

// Encrypted reports whether the body was stored encrypted
func (m *Map) Encrypted() bool {
	return m.Encoded && m.NoLoad
}

// Layers returns the layers present in the file in storage order
func (m *Map) Layers() []*Layer {
	return m.layers
}

// Layer returns the layer of the given kind if the map version has it
func (m *Map) Layer(kind LayerKind) (*Layer, bool) {
	for _, l := range m.layers {
		if l.Kind == kind {
			return l, true
		}
	}
	return nil, false
}

// At returns the normalised id at x, y. On walls it is the side stored first
// for the tile, see WallAt
func (m *Map) At(kind LayerKind, x, y int) (int, bool) {
	if kind == Walls {
		return m.WallAt(x, y, 0)
	}

	l, ok := m.Layer(kind)
	if !ok || x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0, false
	}
	return l.IDs[y*m.Width+x], true
}

// WallAt returns the normalised id of one side of the wall at x, y. Side 0
// is stored first in each column pair and, as columns run bottom to top,
// lands on row 2y+1; side 1 lands on row 2y
func (m *Map) WallAt(x, y, side int) (int, bool) {
	l, ok := m.Layer(Walls)
	if !ok || x < 0 || y < 0 || x >= m.Width || y >= m.Height || side < 0 || side > 1 {
		return 0, false
	}
	row := 2*y + 1 - side
	return l.IDs[row*m.Width+x], true
}

func (m Map) String() string {
	return fmt.Sprintf("%s, %dx%d, v%d.%02d, revision %d", m.Name, m.Width, m.Height, m.Version/100, m.Version%100, m.Revision)
}

func parseVersion(line string) (int, error) {
	var major, minor int
	if n, err := fmt.Sscanf(strings.TrimSpace(line), "MAP V%d.%d", &major, &minor); err != nil || n != 2 || major < 0 || minor < 0 {
		return 0, asset.Formatf(format, "invalid version line %q", line)
	}
	return major*100 + minor, nil
}

func parseDimension(m *Map, key string) (int, error) {
	v, ok := m.Header[key]
	if !ok {
		return 0, asset.Formatf(format, "missing %s", key)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
	if err != nil || n <= 0 {
		return 0, asset.Formatf(format, "invalid %s %q", key, v)
	}
	return int(n), nil
}

func (m *Map) parseHeader(text string) error {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var err error
	if m.Version, err = parseVersion(lines[0]); err != nil {
		return err
	}

	m.Header = make(map[string]string)
	for _, line := range lines[1:] {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		m.Header[strings.ToLower(strings.TrimSpace(k))] = strings.TrimRight(v, "\r")
	}

	if m.Width, err = parseDimension(m, "width"); err != nil {
		return err
	}
	if m.Height, err = parseDimension(m, "height"); err != nil {
		return err
	}

	m.Name = m.Header["name"]
	m.Revision, _ = strconv.Atoi(strings.TrimSpace(m.Header["revision"]))
	m.Encoded = strings.TrimSpace(m.Header["encoded"]) == "1"
	m.NoLoad = strings.TrimSpace(m.Header["noload"]) == "1"

	return nil
}

// Decode parses a map from b
func Decode(b []byte) (*Map, error) {
	limit := len(b)
	if limit > searchLimit {
		limit = searchLimit
	}

	i := bytes.Index(b[:limit], bodyMarker)
	if i < 0 {
		return nil, asset.Formatf(format, "no BODY marker in the first %d bytes", searchLimit)
	}

	m := new(Map)
	if err := m.parseHeader(string(b[:i])); err != nil {
		return nil, err
	}

	body := b[i+len(bodyMarker):]
	switch {
	case bytes.HasPrefix(body, []byte("\r\n")):
		body = body[2:]
	case bytes.HasPrefix(body, []byte("\n")):
		body = body[1:]
	}

	var order binary.ByteOrder = binary.LittleEndian

	if m.Encrypted() && len(body) > 0 {
		if m.Version >= modernVersion {
			body = keystream.CRC(body, &keystream.PermutationB)
			order = binary.BigEndian
		} else {
			body = keystream.CRC(body, &keystream.PermutationA)[1:]
		}
	}

	offset := 0
	for _, info := range layers {
		if !info.since(m.Version) {
			continue
		}

		l, n, err := readLayer(body, offset, info, m.Width, m.Height, order)
		if err != nil {
			return nil, err
		}
		offset += n

		m.layers = append(m.layers, l)
	}

	return m, nil
}

// readLayer reads a raster stored column by column from the bottom row up
// and returns it in row-major order along with the number of bytes read
func readLayer(body []byte, offset int, info layerInfo, width, height int, order binary.ByteOrder) (*Layer, int, error) {
	rows := height * info.steps
	column := rows * info.width

	// Compare per column first so huge dimensions can't overflow the size
	if width > (len(body)-offset)/column {
		size := uint64(width) * uint64(column)
		if size > math.MaxInt32 {
			size = math.MaxInt32
		}
		return nil, 0, &asset.BoundsError{Format: format, What: info.kind.String() + " layer", Offset: offset, Length: int(size), Size: len(body)}
	}

	cells := width * rows
	size := cells * info.width

	l := &Layer{
		Kind: info.kind,
		Raw:  make([]uint16, cells),
		IDs:  make([]int, cells),
	}

	src := body[offset : offset+size]
	for k := 0; k < cells; k++ {
		var raw uint16
		if info.width == 1 {
			raw = uint16(src[k])
		} else {
			raw = order.Uint16(src[k*2:])
		}

		x, y := k/rows, rows-1-k%rows
		i := y*width + x

		l.Raw[i] = raw
		l.IDs[i] = normalise(info.kind, raw)
	}

	return l, size, nil
}
