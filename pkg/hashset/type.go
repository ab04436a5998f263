package hashset

import "fmt"

// Type is the behavior bundle for a Set. All callbacks are optional. With
// every callback omitted the set stores elements that act as their own keys,
// hashed by their integer bit pattern and compared with ==.
type Type[K, E any] struct {
	// ElementKey returns the lookup key within an element. When nil, the
	// element is the key (E must be assignable to K).
	ElementKey func(e E) K

	// Hash computes the 64-bit hash of a key. When nil, keys of type int,
	// int32, int64, uint, uint32, uint64 and uintptr are hashed by their bit
	// pattern and string keys with the seeded default hash function; any
	// other key type (including the 8- and 16-bit integers) requires an
	// explicit Hash.
	Hash func(k K) uint64

	// Equal reports whether two keys are equal. When nil, keys are
	// compared with == through their dynamic type.
	Equal func(a, b K) bool

	// Destructor is invoked on an element when it is overwritten or
	// deleted by the set. Elements popped by the caller are not destroyed.
	Destructor func(e E)

	// ResizeAllowed gates automatic resizing. moreMem is the extra memory
	// in bytes the resize will allocate, usedRatio the current number of
	// elements per bucket. Returning false defers the resize.
	ResizeAllowed func(moreMem uintptr, usedRatio float64) bool

	// RehashingStarted is invoked when rehashing begins. Both tables are
	// already allocated at that point.
	RehashingStarted func(s *Set[K, E])

	// RehashingCompleted is invoked when rehashing ends. Both tables still
	// exist and are cleaned up after the callback returns.
	RehashingCompleted func(s *Set[K, E])

	// Metadata constructs per-instance caller metadata, retrievable with
	// Set.Metadata.
	Metadata func() any

	// InstantRehashing disables incremental rehashing: any resize
	// completes entirely inside the mutation that triggered it.
	InstantRehashing bool

	// UserData is an arbitrary caller value carried by the type. Useful
	// for the rehashing callbacks.
	UserData any
}

func (t *Type[K, E]) elementKey(e E) K {
	if t.ElementKey != nil {
		return t.ElementKey(e)
	}
	k, ok := any(e).(K)
	if !ok {
		panic(fmt.Sprintf("hashset: element type %T is not the key type and ElementKey is not set", e))
	}
	return k
}

func (t *Type[K, E]) hash(k K) uint64 {
	if t.Hash != nil {
		return t.Hash(k)
	}
	switch v := any(k).(type) {
	case uint64:
		return HashUint64(v)
	case int:
		return HashUint64(uint64(v))
	case int64:
		return HashUint64(uint64(v))
	case uint:
		return HashUint64(uint64(v))
	case uintptr:
		return HashUint64(uint64(v))
	case uint32:
		return HashUint64(uint64(v))
	case int32:
		return HashUint64(uint64(v))
	case string:
		return HashString(v)
	default:
		panic(fmt.Sprintf("hashset: no default hash for key type %T, set Type.Hash", k))
	}
}

func (t *Type[K, E]) equal(a, b K) bool {
	if t.Equal != nil {
		return t.Equal(a, b)
	}
	return any(a) == any(b)
}
