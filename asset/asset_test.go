package asset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "Unknown", Kind(0).String())
	assert.Equal(t, "DSB", Script.String())
	assert.Equal(t, "", Kind(42).String())
}

func TestDetect(t *testing.T) {
	fox := make([]byte, 24)
	copy(fox[16:], "FOX5")

	tables := []struct {
		b    []byte
		kind Kind
	}{
		{[]byte("FR01\x00\x00"), Archive},
		{[]byte("DSB10"), Script},
		{[]byte("MAP V01.50\nBODY"), Map},
		{fox, Fox5},
		{[]byte("FOX5"), Unknown},
		{nil, Unknown},
	}

	for _, table := range tables {
		assert.Equal(t, table.kind, Detect(table.b))
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Archive", Describe([]byte("FR01")))
	assert.Equal(t, "image/png", Describe([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")))
}

func TestCheckBounds(t *testing.T) {
	assert.NoError(t, CheckBounds("x", "y", 0, 4, 4))
	assert.NoError(t, CheckBounds("x", "y", 4, 0, 4))

	err := CheckBounds("archive", "payload", 2, 10, 8)
	var be *BoundsError
	if assert.True(t, errors.As(err, &be)) {
		assert.Equal(t, 2, be.Offset)
		assert.Equal(t, "archive: payload at offset 2 needs 10 bytes, only 6 available", be.Error())
	}

	assert.Error(t, CheckBounds("x", "y", -1, 1, 8))
	assert.Error(t, CheckBounds("x", "y", 9, 0, 8))
}

func TestErrorStrings(t *testing.T) {
	assert.Equal(t, "map: missing BODY marker", Formatf("map", "missing %s marker", "BODY").Error())
	assert.Equal(t, `"a.map" not found`, (&LookupError{Name: "a.map"}).Error())
	assert.Equal(t, "compression type 9: unknown", (&CompressionError{Tag: 9, Msg: "unknown"}).Error())
}
