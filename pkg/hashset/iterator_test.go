package hashset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIteratorExactlyOnce(t *testing.T) {
	const count = 50000
	s := New[uint64, uint64](nil)
	for j := uint64(0); j < count; j++ {
		require.True(t, s.Add(j))
	}

	seen := make([]int, count)
	returned := 0
	it := s.Iterator()
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		seen[e]++
		returned++
	}
	it.Release()

	require.Equal(t, count, returned)
	for j := 0; j < count; j++ {
		require.Equal(t, 1, seen[j], "element %d", j)
	}
}

func TestIteratorDuringRehash(t *testing.T) {
	s := New[uint64, uint64](nil)
	j := uint64(0)
	for ; j < 10000; j++ {
		require.True(t, s.Add(j))
	}
	for !s.IsRehashing() {
		require.True(t, s.Add(j))
		j++
	}
	count := s.Len()

	seen := make(map[uint64]int, count)
	it := s.Iterator()
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		seen[e]++
	}
	it.Release()

	require.Len(t, seen, count)
	for e, n := range seen {
		require.Equal(t, 1, n, "element %d", e)
	}
}

func TestIteratorEmptySet(t *testing.T) {
	s := New[uint64, uint64](nil)
	it := s.Iterator()
	_, ok := it.Next()
	require.False(t, ok)
	it.Release()
}

func TestIteratorMisuseDetected(t *testing.T) {
	s := New[uint64, uint64](nil)
	for j := uint64(0); j < 100; j++ {
		require.True(t, s.Add(j))
	}

	it := s.Iterator()
	_, ok := it.Next()
	require.True(t, ok)
	require.True(t, s.Add(1000)) // mutation mid-iteration: misuse
	require.Panics(t, func() { it.Release() })
}

func TestSafeIteratorWithMutation(t *testing.T) {
	const count = 1000
	s := New[uint64, uint64](nil)
	for j := uint64(0); j < count; j++ {
		require.True(t, s.Add(j))
	}

	seen := make([]int, count*2)
	returned := 0
	it := s.SafeIterator()
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		require.Less(t, e, uint64(count*2))
		seen[e]++
		returned++
		if e%4 == 0 {
			require.True(t, s.Delete(e))
		}
		if e < count {
			require.True(t, s.Add(e+count))
		}
	}
	it.Release()
	require.False(t, s.IsRehashingPaused())

	// Elements present for the entire iteration: exactly once.
	require.GreaterOrEqual(t, returned, count)
	for j := 0; j < count; j++ {
		require.Equal(t, 1, seen[j], "element %d", j)
	}
	// Elements inserted mid-iteration: at most once.
	for j := count; j < count*2; j++ {
		require.LessOrEqual(t, seen[j], 1, "element %d", j)
	}
}

func TestSafeIteratorPausesRehashing(t *testing.T) {
	s := New[uint64, uint64](nil)
	j := uint64(0)
	for ; j < 10000; j++ {
		require.True(t, s.Add(j))
	}
	for !s.IsRehashing() {
		require.True(t, s.Add(j))
		j++
	}

	it := s.SafeIterator()
	require.True(t, s.IsRehashingPaused())
	cursorBefore := s.rehashIdx

	// Mutations succeed but do not advance the migration.
	require.True(t, s.Add(j+1))
	require.True(t, s.Delete(j+1))
	require.Equal(t, cursorBefore, s.rehashIdx)
	require.True(t, s.IsRehashing())

	it.Release()
	require.False(t, s.IsRehashingPaused())
}
