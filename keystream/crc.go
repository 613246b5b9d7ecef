/*
Package keystream implements the two stream ciphers protecting the client's
asset bodies: a rolling cipher driven by the CRC-32 table, used by maps and
scripts, and a salted RC4-like cipher used by FOX5 sprite containers.
*/
package keystream

import "hash/crc32"

// BlockSize is the number of bytes shuffled together by a Permutation
const BlockSize = 16

// Permutation gives, for each position of a plaintext block, the position
// within the ciphertext block it was read from
type Permutation [BlockSize]int

// These are the two block orders in use. Which one applies depends on the
// version or mode flags of the containing format
var (
	PermutationA = Permutation{1, 12, 4, 8, 15, 0, 11, 2, 14, 7, 6, 9, 13, 3, 10, 5}
	PermutationB = Permutation{1, 15, 8, 12, 5, 11, 7, 4, 0, 14, 10, 2, 6, 3, 9, 13}
)

var table = crc32.MakeTable(crc32.IEEE)

func initialKey(seed byte) uint32 {
	return 0x00ffffff ^ table[255^seed]
}

func nextKey(key uint32, plain byte) uint32 {
	return key>>8 ^ table[byte(key)^plain]
}

// CRC decrypts body into a new buffer. The first byte is the seed and is
// copied through, as is any tail shorter than a full block
func CRC(body []byte, perm *Permutation) []byte {
	b := make([]byte, len(body))
	copy(b, body)

	if len(body) == 0 {
		return b
	}

	key := initialKey(body[0])

	for start := 1; start+BlockSize <= len(body); start += BlockSize {
		for i, j := range perm {
			plain := body[start+j] - byte(key)
			b[start+i] = plain
			key = nextKey(key, plain)
		}
	}

	return b
}
