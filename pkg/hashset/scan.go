package hashset

import "math/bits"

// ScanFlags modify the behavior of Scan and ScanRef.
type ScanFlags uint8

const (
	// ScanSingleStep makes the scan visit one cursor position per call,
	// emitting the slots of its buckets verbatim without following probe
	// chains: one bucket, or during a rehash the smaller table's bucket plus
	// the larger table's buckets that map to it. Cheaper and bounded, at the
	// cost of occasional duplicates across calls.
	ScanSingleStep ScanFlags = 1 << iota
)

// Scan enumerates elements using a caller-held cursor. Pass cursor 0 to
// start; the returned cursor feeds the next call and a return of 0 marks a
// complete traversal. Every element present for the whole traversal is
// emitted at least once, and exactly once if the table is not resized
// between calls; a resize between calls can emit an element twice.
func (s *Set[K, E]) Scan(cursor uint64, fn func(e E), flags ScanFlags) uint64 {
	return s.scan(cursor, func(ref *E) { fn(*ref) }, flags)
}

// ScanRef is Scan emitting a pointer to the slot holding each element. The
// caller may overwrite the slot to relocate an element in place; nothing
// derived from the slot is cached between callbacks.
func (s *Set[K, E]) ScanRef(cursor uint64, fn func(ref *E), flags ScanFlags) uint64 {
	return s.scan(cursor, fn, flags)
}

func (s *Set[K, E]) scan(cursor uint64, emit func(*E), flags ScanFlags) uint64 {
	if !s.tables[0].allocated() {
		return 0
	}
	if !s.IsRehashing() {
		m := s.tables[0].mask()
		s.scanBucket(0, int(cursor&m), emit, flags)
		return nextCursor(cursor, m)
	}

	// Two tables coexist. The smaller one defines the cursor advance; each
	// step also covers every bucket of the larger table whose index masks
	// down to the current one.
	small, large := 0, 1
	if s.tables[0].exp > s.tables[1].exp {
		small, large = 1, 0
	}
	ms := s.tables[small].mask()
	ml := s.tables[large].mask()

	s.scanBucket(small, int(cursor&ms), emit, flags)
	v := cursor
	for {
		s.scanBucket(large, int(v&ml), emit, flags)
		v |= ^ml
		v = bits.Reverse64(v)
		v++
		v = bits.Reverse64(v)
		if v&(ms^ml) == 0 {
			break
		}
	}
	return v
}

// scanBucket emits the elements of one logical bucket. Elements displaced
// into later buckets by probing are attributed to their home bucket, so a
// stable table emits every element exactly once across a full traversal and
// a concurrent resize relocates elements only within the cursor equivalence
// class already covered by the reverse-bit order.
func (s *Set[K, E]) scanBucket(ti, b int, emit func(*E), flags ScanFlags) {
	t := &s.tables[ti]
	bk := &t.buckets[b]

	if flags&ScanSingleStep != 0 {
		for pres := bk.presence(); pres != 0; pres &= pres - 1 {
			emit(&bk.slots[bits.TrailingZeros8(pres)])
		}
		return
	}

	mask := t.mask()
	// A bucket can only hold foreign elements if the probe chain of some
	// earlier bucket reaches it, which requires its predecessor to be full
	// or chain-flagged.
	prev := &t.buckets[int(uint64(b-1)&mask)]
	if mixed := prev.full() || prev.chained(); !mixed {
		for pres := bk.presence(); pres != 0; pres &= pres - 1 {
			emit(&bk.slots[bits.TrailingZeros8(pres)])
		}
	} else {
		for pres := bk.presence(); pres != 0; pres &= pres - 1 {
			i := bits.TrailingZeros8(pres)
			if int(s.hashOf(bk.slots[i])&mask) == b {
				emit(&bk.slots[i])
			}
		}
	}

	// Elements whose home is this bucket may sit further along the probe
	// chain.
	j := b
	for steps := 0; steps < t.numBuckets(); steps++ {
		cb := &t.buckets[j]
		if !cb.full() && !cb.chained() {
			break
		}
		j = int(uint64(j+1) & mask)
		if j == b {
			break
		}
		nb := &t.buckets[j]
		for pres := nb.presence(); pres != 0; pres &= pres - 1 {
			i := bits.TrailingZeros8(pres)
			if int(s.hashOf(nb.slots[i])&mask) == b {
				emit(&nb.slots[i])
			}
		}
	}
}

// nextCursor advances a scan cursor: the bits covered by mask are
// incremented with reversed carry direction, yielding an enumeration order
// that stays coherent when the table size doubles or halves between calls.
func nextCursor(v, mask uint64) uint64 {
	v |= ^mask
	v = bits.Reverse64(v)
	v++
	return bits.Reverse64(v)
}
