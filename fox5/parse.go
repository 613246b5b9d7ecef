package fox5

import (
	"encoding/binary"

	"github.com/merklejerk/furnarchy-zero-sub001/asset"
)

// List levels, each one nests inside the one before. An object may hold a
// frame list directly, which then forms a single implicit shape
const (
	levelFile uint8 = iota
	levelObject
	levelShape
	levelFrame
	levelSprite
)

// Structural tags, the same in every record
const (
	tagList   = 'L'
	tagEnd    = '<'
	tagImages = 'S'
)

// parser walks the decompressed command stream. The first error sticks and
// every later read returns zero values, so callers only check p.err at
// loop boundaries
type parser struct {
	b   []byte
	pos int
	err error

	ids     IDTable
	lastIDs map[uint8]int

	sprites     []Sprite
	imageOffset uint64
}

func newParser(b []byte, ids IDTable) *parser {
	return &parser{
		b:       b,
		ids:     ids,
		lastIDs: make(map[uint8]int),
	}
}

func (p *parser) more() bool {
	return p.err == nil && p.pos < len(p.b)
}

func (p *parser) read(n int, what string) []byte {
	if p.err != nil {
		return nil
	}
	if err := asset.CheckBounds(format, what, p.pos, n, len(p.b)); err != nil {
		p.err = err
		return nil
	}
	b := p.b[p.pos : p.pos+n]
	p.pos += n
	return b
}

func (p *parser) u8(what string) uint8 {
	if b := p.read(1, what); b != nil {
		return b[0]
	}
	return 0
}

func (p *parser) u16(what string) uint16 {
	if b := p.read(2, what); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (p *parser) u32(what string) uint32 {
	if b := p.read(4, what); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (p *parser) point(what string) Point {
	x := int16(p.u16(what))
	y := int16(p.u16(what))
	return Point{x, y}
}

func (p *parser) str(what string) string {
	n := p.u16(what)
	return string(p.read(int(n), what))
}

func (p *parser) fail(msg string, args ...interface{}) {
	if p.err == nil {
		p.err = asset.Formatf(format, msg, args...)
	}
}

func (p *parser) list() (uint8, uint32) {
	level := p.u8("list level")
	count := p.u32("list count")
	return level, count
}

// file reads file level records until the end tag or the end of the stream
func (p *parser) file(f *File) {
	for p.more() {
		switch p.u8("tag") {
		case tagEnd:
			return
		case tagList:
			level, count := p.list()
			switch level {
			case levelFile:
				for i := uint32(0); i < count && p.more(); i++ {
					p.file(f)
				}
			case levelObject:
				f.Objects = append(f.Objects, p.objects(count)...)
			default:
				p.fail("list of level %d in file", level)
			}
		case tagImages:
			p.images()
		case 'g':
			f.Generator = p.u8("generator")
		}
	}
}

// images reads an image list. Offsets into the pixel section are a running
// sum of the sizes, carried across image lists
func (p *parser) images() {
	count := p.u32("image count")

	for i := uint32(0); i < count && p.err == nil; i++ {
		s := Sprite{
			Size:   p.u32("image size"),
			Width:  p.u16("image width"),
			Height: p.u16("image height"),
			Alpha:  p.u8("image format") == formatAlpha,
			Offset: p.imageOffset,
		}
		if p.err != nil {
			return
		}
		p.imageOffset += uint64(s.Size)
		p.sprites = append(p.sprites, s)
	}
}

func (p *parser) assignID(o *Object) {
	last, ok := p.lastIDs[o.EditType]
	if !ok {
		last = p.ids.start(o.EditType)
	}

	if !o.ExplicitID {
		o.ID = last + 1
	}
	p.lastIDs[o.EditType] = o.ID
}

// objects reads count object records. Fields missing from an object are
// taken from the object before it in the same list
func (p *parser) objects(count uint32) []Object {
	var objects []Object
	var prev Object

	for i := uint32(0); i < count && p.more(); i++ {
		o := p.object(&prev)
		if p.err != nil {
			return nil
		}
		p.assignID(&o)

		objects = append(objects, o)
		prev = o
	}

	return objects
}

func (p *parser) object(prev *Object) Object {
	o := Object{
		Flags:     prev.Flags,
		MoreFlags: prev.MoreFlags,
		License:   prev.License,
		FXFilter:  prev.FXFilter,
	}

loop:
	for p.more() {
		switch p.u8("tag") {
		case tagEnd:
			break loop
		case tagList:
			level, count := p.list()
			switch level {
			case levelShape:
				o.Shapes = append(o.Shapes, p.shapes(count)...)
			case levelFrame:
				o.Shapes = append(o.Shapes, Shape{Frames: p.frames(count)})
			default:
				p.fail("list of level %d in object", level)
			}
		case 'i':
			o.ID = int(int32(p.u32("object id")))
			o.ExplicitID = true
		case 'e':
			o.EditType = p.u8("edit type")
		case 'f':
			o.Flags = p.u8("flags")
		case '!':
			o.MoreFlags = p.u32("more flags")
		case 'l':
			o.License = p.u8("license")
		case 'F':
			o.FXFilter.Target = p.u8("fx filter")
			o.FXFilter.Mode = p.u8("fx filter")
		case 'n':
			o.Name = p.str("name")
		case 'D':
			o.Description = p.str("description")
		case 'k':
			o.Keywords = append(o.Keywords, p.str("keyword"))
		case 'a':
			o.Authors = append(o.Authors, p.u32("author"))
		}
	}

	if len(o.Shapes) == 0 {
		o.Shapes = cloneShapes(prev.Shapes)
	}

	return o
}

func (p *parser) shapes(count uint32) []Shape {
	var shapes []Shape
	var prev Shape

	for i := uint32(0); i < count && p.more(); i++ {
		s := p.shape(&prev)
		shapes = append(shapes, s)
		prev = s
	}

	return shapes
}

func (p *parser) shape(prev *Shape) Shape {
	s := Shape{
		Purpose:   prev.Purpose,
		State:     prev.State,
		Direction: prev.Direction,
		Ratio:     prev.Ratio,
	}

	for p.more() {
		switch p.u8("tag") {
		case tagEnd:
			return s
		case tagList:
			level, count := p.list()
			if level != levelFrame {
				p.fail("list of level %d in shape", level)
				return s
			}
			s.Frames = append(s.Frames, p.frames(count)...)
		case 'p':
			s.Purpose = p.u8("purpose")
		case 's':
			s.State = p.u8("state")
		case 'd':
			s.Direction = p.u8("direction")
		case 'r':
			s.Ratio.Num = p.u8("ratio")
			s.Ratio.Den = p.u8("ratio")
		}
	}

	return s
}

func (p *parser) frames(count uint32) []Frame {
	var frames []Frame
	var prev Frame

	for i := uint32(0); i < count && p.more(); i++ {
		f := p.frame(&prev)
		frames = append(frames, f)
		prev = f
	}

	return frames
}

func (p *parser) frame(prev *Frame) Frame {
	f := Frame{
		Offset:      prev.Offset,
		FurreOffset: prev.FurreOffset,
	}

	for p.more() {
		switch p.u8("tag") {
		case tagEnd:
			return f
		case tagList:
			level, count := p.list()
			if level != levelSprite {
				p.fail("list of level %d in frame", level)
				return f
			}
			f.Layers = append(f.Layers, p.spriteLayers(count)...)
		case 'o':
			f.Offset = p.point("frame offset")
		case 'm':
			f.FurreOffset = p.point("furre offset")
		}
	}

	return f
}

func (p *parser) spriteLayers(count uint32) []SpriteLayer {
	var layers []SpriteLayer

	for i := uint32(0); i < count && p.more(); i++ {
		layers = append(layers, p.spriteLayer())
	}

	return layers
}

func (p *parser) spriteLayer() SpriteLayer {
	var l SpriteLayer

	for p.more() {
		switch p.u8("tag") {
		case tagEnd:
			return l
		case tagList:
			level, _ := p.list()
			p.fail("list of level %d in sprite", level)
			return l
		case 'p':
			l.Purpose = p.u16("sprite purpose")
		case 'c':
			l.Sprite = p.u16("sprite index")
		case 'O':
			l.Offset = p.point("sprite offset")
		}
	}

	return l
}

func cloneShapes(shapes []Shape) []Shape {
	if shapes == nil {
		return nil
	}

	c := make([]Shape, len(shapes))
	for i, s := range shapes {
		c[i] = s
		if s.Frames == nil {
			continue
		}
		c[i].Frames = make([]Frame, len(s.Frames))
		for j, f := range s.Frames {
			c[i].Frames[j] = f
			c[i].Frames[j].Layers = append([]SpriteLayer(nil), f.Layers...)
		}
	}
	return c
}
