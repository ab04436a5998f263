package hashset

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

func TestHashFunctionSeed(t *testing.T) {
	orig := HashFunctionSeed()
	defer SetHashFunctionSeed(orig)

	seed := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	SetHashFunctionSeed(seed)
	require.Equal(t, seed, HashFunctionSeed())

	h1 := GenHashFunction([]byte("hello"))
	require.Equal(t, h1, GenHashFunction([]byte("hello")))
	require.NotEqual(t, h1, GenHashFunction([]byte("hellp")))

	// A different seed yields different hashes for the same input.
	SetHashFunctionSeed([16]byte{42})
	require.NotEqual(t, h1, GenHashFunction([]byte("hello")))
}

func TestGenCaseHashFunction(t *testing.T) {
	require.Equal(t, GenCaseHashFunction([]byte("Hello World")), GenCaseHashFunction([]byte("hello world")))
	require.Equal(t, GenCaseHashFunction([]byte("ABC")), GenCaseHashFunction([]byte("abc")))
	require.NotEqual(t, GenCaseHashFunction([]byte("abc")), GenCaseHashFunction([]byte("abd")))
	// Input without upper case letters hashes as it does with the
	// case-sensitive function.
	require.Equal(t, GenHashFunction([]byte("abc")), GenCaseHashFunction([]byte("abc")))
}

func TestGenCaseHashFunctionLongInput(t *testing.T) {
	// Inputs longer than the internal chunk still fold consistently.
	long := make([]byte, 1000)
	longLower := make([]byte, 1000)
	for i := range long {
		long[i] = byte('A' + i%26)
		longLower[i] = byte('a' + i%26)
	}
	require.Equal(t, GenCaseHashFunction(longLower), GenCaseHashFunction(long))
}

func TestHashUint64Distribution(t *testing.T) {
	// Sequential keys should not collide in the low bits used for bucket
	// selection.
	const n = 10000
	const mask = 1<<14 - 1
	counts := make(map[uint64]int)
	for i := uint64(0); i < n; i++ {
		counts[HashUint64(i)&mask]++
	}
	for _, c := range counts {
		require.Less(t, c, 12, "low-bit clustering")
	}
}

func TestStringKeysWithAlternativeHash(t *testing.T) {
	// The type descriptor accepts any keyed hash; xxhash works as well as
	// the default SipHash.
	typ := &Type[string, string]{
		Hash: xxhash.Sum64String,
	}
	s := New(typ)
	require.True(t, s.Add("alpha"))
	require.True(t, s.Add("beta"))
	require.False(t, s.Add("alpha"))
	_, ok := s.Find("beta")
	require.True(t, ok)
}
