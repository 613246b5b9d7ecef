/*
Package asset holds what the individual decoders share: the error types they
return and the detection of which format a buffer holds.
*/
package asset

import (
	"bytes"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the format of an asset buffer
type Kind int

// These are the formats understood by the decoders in this module
const (
	Unknown Kind = iota
	Archive
	Map
	Fox5
	Script
)

func (k Kind) String() string {
	strings := map[Kind]string{
		Unknown: "Unknown",
		Archive: "Archive",
		Map:     "Map",
		Fox5:    "FOX5",
		Script:  "DSB",
	}

	return strings[k]
}

var (
	archiveMagic = []byte("FR01")
	mapMagic     = []byte("MAP V")
	fox5Magic    = []byte("FOX5")
	scriptMagic  = []byte("DSB1")
)

// Detect sniffs the format of b from its magic. FOX5 is footer driven so it
// is checked at len(b)-8 rather than at the start
func Detect(b []byte) Kind {
	switch {
	case bytes.HasPrefix(b, archiveMagic):
		return Archive
	case bytes.HasPrefix(b, scriptMagic):
		return Script
	case bytes.HasPrefix(b, mapMagic):
		return Map
	case len(b) >= 20 && bytes.Equal(b[len(b)-8:len(b)-4], fox5Magic):
		return Fox5
	}
	return Unknown
}

// Describe returns the format name for known kinds or the MIME type for
// anything else, e.g. the PNG and text files that ship inside archives
func Describe(b []byte) string {
	if k := Detect(b); k != Unknown {
		return k.String()
	}
	return mimetype.Detect(b).String()
}
