package fox5

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/merklejerk/furnarchy-zero-sub001/asset"
	"github.com/merklejerk/furnarchy-zero-sub001/internal/fixture"
	"github.com/merklejerk/furnarchy-zero-sub001/keystream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testImage struct {
	width, height uint16
	alpha         bool
	data          []byte // compressed
}

func (ti testImage) pixelSize() int {
	if ti.alpha {
		return int(ti.width) * int(ti.height) * 4
	}
	return int(ti.width) * int(ti.height)
}

type builder struct {
	stream    []byte
	encrypted bool
	seed      [keystream.SeedSize]byte
	modifier  uint32
	images    []testImage
}

func imageList(w *fixture.Writer, images []testImage) {
	w.Tag('S').U32(uint32(len(images)))
	for _, img := range images {
		f := uint8(format8Bit)
		if img.alpha {
			f = formatAlpha
		}
		w.U32(uint32(len(img.data))).U16(img.width).U16(img.height).U8(f)
	}
}

func (fb builder) bytes() []byte {
	block := fixture.LZMA(fb.stream)
	if fb.encrypted {
		keystream.Salted(block, fb.seed, fb.modifier)
	}

	b := append([]byte(nil), block...)
	for _, img := range fb.images {
		d := append([]byte(nil), img.data...)
		if fb.encrypted {
			keystream.Salted(d, fb.seed, uint32(img.pixelSize()))
		}
		b = append(b, d...)
	}

	if fb.encrypted {
		b = append(b, fb.seed[:]...)
	}

	ft := make([]byte, footerSize)
	ft[0] = 1
	if fb.encrypted {
		ft[1] = 1
	}
	binary.BigEndian.PutUint32(ft[4:], uint32(len(block)))
	binary.BigEndian.PutUint32(ft[8:], fb.modifier)
	copy(ft[12:], "FOX5")
	copy(ft[16:], ".1.1")

	return append(b, ft...)
}

func objectStream() []byte {
	w := new(fixture.Writer)
	w.Tag('g').U8(3)
	w.List(levelObject, 4)

	// Object 0 sets most fields explicitly
	w.Tag('f').U8(3).Tag('l').U8(2).Tag('F').U8(1).U8(4)
	w.Tag('n').Str("chair").Tag('k').Str("seat").Tag('k').Str("wood").Tag('a').U32(77)
	w.List(levelShape, 2)
	w.Tag('p').U8(1).Tag('d').U8(3).Tag('r').U8(1).U8(2)
	w.List(levelFrame, 2)
	w.Tag('o').S16(-4).S16(8).Tag('m').S16(1).S16(2)
	w.List(levelSprite, 1)
	w.Tag('p').U16(0x0100).Tag('c').U16(0).Tag('O').S16(3).S16(-3).End()
	w.End()
	w.List(levelSprite, 1).Tag('c').U16(1).End()
	w.End()
	w.End()
	w.Tag('s').U8(2).End()
	w.End()

	// Object 1 is empty and inherits everything that carries forward
	w.End()

	// Object 2 changes the flags and has unknown tags
	w.Tag('f').U8(7).Tag('!').U32(0xdeadbeef).Tag(0x7f).Tag('z').End()

	// Object 3 holds frames directly
	w.List(levelFrame, 1).Tag('o').S16(1).S16(1).End()
	w.End()

	return w.Bytes()
}

func TestDecodeObjects(t *testing.T) {
	f, err := Decode(builder{stream: objectStream()}.bytes(), Options{})
	require.NoError(t, err)

	assert.Equal(t, uint8(1), f.Version)
	assert.False(t, f.Encrypted)
	assert.Equal(t, uint8(3), f.Generator)
	require.Len(t, f.Objects, 4)

	o := f.Objects[0]
	assert.Equal(t, 0, o.ID)
	assert.False(t, o.ExplicitID)
	assert.Equal(t, uint8(3), o.Flags)
	assert.Equal(t, uint8(2), o.License)
	assert.Equal(t, FXFilter{1, 4}, o.FXFilter)
	assert.Equal(t, "chair", o.Name)
	assert.Equal(t, []string{"seat", "wood"}, o.Keywords)
	assert.Equal(t, []uint32{77}, o.Authors)

	want := []Shape{
		{
			Purpose:   1,
			Direction: 3,
			Ratio:     Ratio{1, 2},
			Frames: []Frame{
				{
					Offset:      Point{-4, 8},
					FurreOffset: Point{1, 2},
					Layers:      []SpriteLayer{{Purpose: 0x0100, Sprite: 0, Offset: Point{3, -3}}},
				},
				{
					Offset:      Point{-4, 8},
					FurreOffset: Point{1, 2},
					Layers:      []SpriteLayer{{Sprite: 1}},
				},
			},
		},
		{
			Purpose:   1,
			State:     2,
			Direction: 3,
			Ratio:     Ratio{1, 2},
		},
	}
	assert.Equal(t, want, o.Shapes)

	o = f.Objects[1]
	assert.Equal(t, 1, o.ID)
	assert.Equal(t, uint8(3), o.Flags)
	assert.Equal(t, uint8(2), o.License)
	assert.Equal(t, FXFilter{1, 4}, o.FXFilter)
	assert.Empty(t, o.Name)
	assert.Empty(t, o.Keywords)
	assert.Equal(t, want, o.Shapes)

	o = f.Objects[2]
	assert.Equal(t, 2, o.ID)
	assert.Equal(t, uint8(7), o.Flags)
	assert.Equal(t, uint32(0xdeadbeef), o.MoreFlags)
	assert.Equal(t, uint8(2), o.License)
	assert.Equal(t, want, o.Shapes)

	o = f.Objects[3]
	assert.Equal(t, 3, o.ID)
	assert.Equal(t, uint8(7), o.Flags)
	assert.Equal(t, uint32(0xdeadbeef), o.MoreFlags)
	assert.Equal(t, []Shape{{Frames: []Frame{{Offset: Point{1, 1}}}}}, o.Shapes)
}

func TestInheritedShapesAreCopies(t *testing.T) {
	f, err := Decode(builder{stream: objectStream()}.bytes(), Options{})
	require.NoError(t, err)

	f.Objects[1].Shapes[0].Frames[0].Layers[0].Sprite = 99
	f.Objects[1].Shapes[0].Purpose = 42

	assert.Equal(t, uint16(0), f.Objects[0].Shapes[0].Frames[0].Layers[0].Sprite)
	assert.Equal(t, uint16(0), f.Objects[2].Shapes[0].Frames[0].Layers[0].Sprite)
	assert.Equal(t, uint8(1), f.Objects[0].Shapes[0].Purpose)
}

func TestImplicitIDs(t *testing.T) {
	w := new(fixture.Writer)
	w.List(levelObject, 8)
	w.Tag('e').U8(0).End()
	w.Tag('e').U8(1).End()
	w.Tag('e').U8(0).End()
	w.Tag('e').U8(0).Tag('i').S32(10).End()
	w.Tag('e').U8(0).End()
	w.Tag('e').U8(1).End()
	w.Tag('e').U8(2).Tag('i').S32(-5).End()
	w.Tag('e').U8(2).End()

	want := []int{0, 0, 1, 10, 11, 1, -5, -4}

	for _, opts := range []Options{{}, {Modern: true}} {
		f, err := Decode(builder{stream: w.Bytes()}.bytes(), opts)
		require.NoError(t, err)

		ids := make([]int, len(f.Objects))
		for i, o := range f.Objects {
			ids[i] = o.ID
		}
		assert.Equal(t, want, ids)
		assert.True(t, f.Objects[3].ExplicitID)
	}
}

func TestImplicitIDsAcrossLists(t *testing.T) {
	w := new(fixture.Writer)
	w.List(levelObject, 2).End().End()
	w.List(levelFile, 1)
	w.List(levelObject, 1).End()
	w.End()

	f, err := Decode(builder{stream: w.Bytes()}.bytes(), Options{})
	require.NoError(t, err)

	require.Len(t, f.Objects, 3)
	assert.Equal(t, 2, f.Objects[2].ID)
}

func TestIDTableStart(t *testing.T) {
	table := IDTable{4: 99}
	assert.Equal(t, 99, table.start(4))
	assert.Equal(t, -1, table.start(0))
}

func testImages() []testImage {
	alpha := make([]byte, 16)
	for i := range alpha {
		alpha[i] = byte(i)
	}

	return []testImage{
		{width: 2, height: 2, alpha: true, data: fixture.LZMA(alpha)},
		{width: 3, height: 1},
		{width: 2, height: 1, data: fixture.LZMA([]byte{9})},
	}
}

func spriteStream(images []testImage) []byte {
	w := new(fixture.Writer)
	imageList(w, images)
	w.List(levelObject, 1)
	w.List(levelFrame, 1).List(levelSprite, 1).Tag('c').U16(2).End().End()
	w.End()
	return w.Bytes()
}

func checkSprites(t *testing.T, f *File, images []testImage) {
	require.Len(t, f.Sprites, 3)

	a, ok := f.Sprite(0)
	require.True(t, ok)
	assert.Equal(t, uint64(0), a.Offset)
	assert.Equal(t, 4, a.BytesPerPixel())
	assert.Equal(t, images[0].data, a.Compressed())

	px, err := a.Pixels()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, px)

	b, _ := f.Sprite(1)
	assert.True(t, b.Empty)
	assert.Equal(t, uint64(len(images[0].data)), b.Offset)

	px, err = b.Pixels()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0}, px)

	c, _ := f.Sprite(2)
	assert.False(t, c.Empty)
	assert.Equal(t, uint64(len(images[0].data)), c.Offset)

	px, err = c.Pixels()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 0}, px)

	_, ok = f.Sprite(3)
	assert.False(t, ok)

	assert.Equal(t, uint16(2), f.Objects[0].Shapes[0].Frames[0].Layers[0].Sprite)
}

func TestDecodeSprites(t *testing.T) {
	images := testImages()

	f, err := Decode(builder{stream: spriteStream(images), images: images}.bytes(), Options{})
	require.NoError(t, err)

	checkSprites(t, f, images)
}

func TestDecodeEncrypted(t *testing.T) {
	images := testImages()

	fb := builder{
		stream:    spriteStream(images),
		encrypted: true,
		modifier:  0x00c0ffee,
		images:    images,
	}
	for i := range fb.seed {
		fb.seed[i] = byte(i*31 + 7)
	}

	b := fb.bytes()

	f, err := Decode(b, Options{})
	require.NoError(t, err)

	assert.True(t, f.Encrypted)
	checkSprites(t, f, images)

	// The input is left untouched
	assert.Equal(t, fb.bytes(), b)
}

func TestDecodeFormatErrors(t *testing.T) {
	var fe *asset.FormatError

	b := builder{stream: objectStream()}.bytes()
	b[len(b)-8] = 'B'
	_, err := Decode(b, Options{})
	assert.True(t, errors.As(err, &fe), "signature")

	_, err = Decode(make([]byte, footerSize-1), Options{})
	assert.True(t, errors.As(err, &fe), "too small")

	ft := make([]byte, 10+footerSize)
	ft[10+1] = 1
	copy(ft[10+12:], "FOX5")
	_, err = Decode(ft, Options{})
	assert.True(t, errors.As(err, &fe), "no seed")

	tables := map[string]func(w *fixture.Writer){
		"frame list in file":  func(w *fixture.Writer) { w.List(levelFrame, 1).End() },
		"file list in object": func(w *fixture.Writer) { w.List(levelObject, 1).List(levelFile, 1) },
		"sprite in shape":     func(w *fixture.Writer) { w.List(levelObject, 1).List(levelShape, 1).List(levelSprite, 1) },
		"shape in frame":      func(w *fixture.Writer) { w.List(levelObject, 1).List(levelFrame, 1).List(levelShape, 1) },
		"list in sprite":      func(w *fixture.Writer) { w.List(levelObject, 1).List(levelFrame, 1).List(levelSprite, 1).List(levelSprite, 1) },
	}

	for name, fn := range tables {
		w := new(fixture.Writer)
		fn(w)
		_, err := Decode(builder{stream: w.Bytes()}.bytes(), Options{})
		assert.True(t, errors.As(err, &fe), name)
	}
}

func TestDecodeBoundsErrors(t *testing.T) {
	var be *asset.BoundsError

	b := builder{stream: objectStream()}.bytes()
	binary.BigEndian.PutUint32(b[len(b)-footerSize+4:], uint32(len(b)))
	_, err := Decode(b, Options{})
	assert.True(t, errors.As(err, &be), "command block")

	w := new(fixture.Writer)
	w.List(levelObject, 1).Tag('i').U16(1)
	_, err = Decode(builder{stream: w.Bytes()}.bytes(), Options{})
	assert.True(t, errors.As(err, &be), "truncated field")

	images := testImages()
	_, err = Decode(builder{stream: spriteStream(images), images: images[:1]}.bytes(), Options{})
	assert.True(t, errors.As(err, &be), "sprite data")

	w = new(fixture.Writer)
	w.Tag('S').U32(2).U32(0).U16(1)
	_, err = Decode(builder{stream: w.Bytes()}.bytes(), Options{})
	assert.True(t, errors.As(err, &be), "image list")
}

func TestDecodeBadCommandBlock(t *testing.T) {
	b := builder{stream: objectStream()}.bytes()
	binary.BigEndian.PutUint32(b[len(b)-footerSize+4:], 4)

	_, err := Decode(b, Options{})

	var ce *asset.CompressionError
	assert.True(t, errors.As(err, &ce))
}

func TestDecodeEndsAtEndTag(t *testing.T) {
	w := new(fixture.Writer)
	w.Tag('g').U8(1).End().Tag('g').U8(2)

	f, err := Decode(builder{stream: w.Bytes()}.bytes(), Options{})
	require.NoError(t, err)
	assert.Equal(t, uint8(1), f.Generator)
}
