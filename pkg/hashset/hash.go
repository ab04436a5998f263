package hashset

import (
	crand "crypto/rand"
	"encoding/binary"

	"github.com/dchest/siphash"
)

// The process-wide hash function seed. It is initialized to random bytes at
// startup and may be replaced with SetHashFunctionSeed before any set sees
// traffic. All sets created with default or Gen* hash functions share it.
var hashSeed [16]byte

func init() {
	if _, err := crand.Read(hashSeed[:]); err != nil {
		panic(err)
	}
}

// SetHashFunctionSeed replaces the process-wide 16-byte hash seed. Call it
// before creating any set; changing the seed with live sets breaks lookups.
func SetHashFunctionSeed(seed [16]byte) { hashSeed = seed }

// HashFunctionSeed returns the current process-wide hash seed.
func HashFunctionSeed() [16]byte { return hashSeed }

func seedKeys() (uint64, uint64) {
	return binary.LittleEndian.Uint64(hashSeed[:8]), binary.LittleEndian.Uint64(hashSeed[8:])
}

// GenHashFunction hashes a byte slice with the seeded SipHash.
func GenHashFunction(buf []byte) uint64 {
	k0, k1 := seedKeys()
	return siphash.Hash(k0, k1, buf)
}

// GenCaseHashFunction hashes a byte slice case-insensitively: ASCII upper
// case letters hash as their lower case counterparts.
func GenCaseHashFunction(buf []byte) uint64 {
	h := siphash.New(hashSeed[:])
	var chunk [64]byte
	for len(buf) > 0 {
		n := copy(chunk[:], buf)
		for i := 0; i < n; i++ {
			c := chunk[i]
			if c >= 'A' && c <= 'Z' {
				chunk[i] = c + ('a' - 'A')
			}
		}
		_, _ = h.Write(chunk[:n])
		buf = buf[n:]
	}
	return h.Sum64()
}

// HashString hashes a string key with the seeded SipHash.
func HashString(s string) uint64 { return GenHashFunction([]byte(s)) }

// HashStringCase hashes a string key case-insensitively.
func HashStringCase(s string) uint64 { return GenCaseHashFunction([]byte(s)) }

// HashUint64 hashes the bit pattern of an integer key with the seeded
// SipHash. This is the default hash for integer keys.
func HashUint64(v uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	k0, k1 := seedKeys()
	return siphash.Hash(k0, k1, buf[:])
}
