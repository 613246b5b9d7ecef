package keystream

import (
	"crypto/rc4"
	"encoding/binary"
)

// SeedSize is the size of the seed stored alongside salted ciphertext
const SeedSize = 16

// The key is the seed mixed with one salt from each pair. The first eight
// bytes pick by bit 2 of the data length, the last eight by bit 3
var (
	saltLow = [2][8]byte{
		{0x5a, 0x1f, 0xc3, 0x77, 0x09, 0xe4, 0x2b, 0x96},
		{0xb1, 0x6d, 0x38, 0xf2, 0x4e, 0x83, 0xd7, 0x1c},
	}
	saltHigh = [2][8]byte{
		{0x27, 0x9c, 0x61, 0xea, 0xd5, 0x0b, 0x7f, 0x42},
		{0xe8, 0x33, 0xaf, 0x14, 0x69, 0xc6, 0x5d, 0x80},
	}
)

func saltedKey(seed [SeedSize]byte, modifier uint32, length int) (key [SeedSize]byte) {
	low, high := saltLow[0], saltHigh[0]
	if length&4 != 0 {
		low = saltLow[1]
	}
	if length&8 != 0 {
		high = saltHigh[1]
	}

	for i := 0; i < 8; i++ {
		key[i] = seed[i] ^ low[i]
		key[i+8] = seed[i+8] ^ high[i]
	}

	var m [4]byte
	binary.BigEndian.PutUint32(m[:], modifier)
	for i := range m {
		key[4+i] ^= m[i]
	}

	return
}

// Salted XORs data in place with the keystream for seed and modifier.
// Applying it twice with the same arguments restores the input
func Salted(data []byte, seed [SeedSize]byte, modifier uint32) {
	key := saltedKey(seed, modifier, len(data))

	// A 16-byte key is always within the accepted key sizes
	c, _ := rc4.NewCipher(key[:])
	c.XORKeyStream(data, data)
}

// SaltedCopy is Salted on a copy of data, leaving data untouched
func SaltedCopy(data []byte, seed [SeedSize]byte, modifier uint32) []byte {
	b := make([]byte, len(data))
	copy(b, data)
	Salted(b, seed, modifier)
	return b
}
