package hashset

import (
	"github.com/segmentio/fasthash/fnv1a"
)

// Iterator is a forward cursor over the elements of a set.
//
// A plain iterator requires the set to stay unmodified for the duration of
// the iteration; mutations are detected by a fingerprint check in Release
// and reported as misuse. A safe iterator suspends incremental rehashing
// instead and tolerates mutation: every element present for the entire
// iteration is returned exactly once, elements inserted during iteration
// are returned at most once, and elements deleted before being reached are
// not returned.
type Iterator[K, E any] struct {
	set         *Set[K, E]
	tableIdx    int
	bucketIdx   int
	posInBucket int
	safe        bool
	released    bool
	fingerprint uint64
}

// Iterator returns an unsafe iterator. The caller must not mutate the set
// until Release.
func (s *Set[K, E]) Iterator() *Iterator[K, E] {
	return &Iterator[K, E]{set: s, fingerprint: s.fingerprint()}
}

// SafeIterator returns an iterator that pauses rehashing for its lifetime
// and allows the caller to add, replace and delete elements mid-iteration.
func (s *Set[K, E]) SafeIterator() *Iterator[K, E] {
	s.pauseRehashing()
	return &Iterator[K, E]{set: s, safe: true}
}

// Next returns the next element. It returns false when the iteration is
// complete.
func (it *Iterator[K, E]) Next() (E, bool) {
	var zero E
	if it.released {
		return zero, false
	}
	s := it.set
	for {
		t := &s.tables[it.tableIdx]
		if t.allocated() {
			for it.bucketIdx < t.numBuckets() {
				bk := &t.buckets[it.bucketIdx]
				for it.posInBucket < numBucketSlots {
					i := it.posInBucket
					it.posInBucket++
					if bk.present(i) {
						return bk.slots[i], true
					}
				}
				it.posInBucket = 0
				it.bucketIdx++
			}
		}
		if it.tableIdx == 0 && s.IsRehashing() {
			it.tableIdx = 1
			it.bucketIdx = 0
			it.posInBucket = 0
			continue
		}
		return zero, false
	}
}

// Release ends the iteration. A safe iterator resumes rehashing; an unsafe
// iterator verifies the misuse fingerprint and panics when the set was
// mutated mid-iteration.
func (it *Iterator[K, E]) Release() {
	if it.released {
		return
	}
	it.released = true
	if it.safe {
		it.set.resumeRehashing()
		return
	}
	if it.fingerprint != it.set.fingerprint() {
		panic("hashset: set was mutated during unsafe iteration")
	}
}

// fingerprint condenses the structural state of the set: table size
// exponents, per-table used counts and the rehash cursor. A mutation that
// changes any of them changes the fingerprint; one that leaves all of them
// as they were (replacing an existing element, or an add undone by a delete
// with no rehash step in between) is not detected.
func (s *Set[K, E]) fingerprint() uint64 {
	h := fnv1a.Init64
	h = fnv1a.AddUint64(h, uint64(int64(s.tables[0].exp)))
	h = fnv1a.AddUint64(h, uint64(int64(s.tables[1].exp)))
	h = fnv1a.AddUint64(h, uint64(s.tables[0].used))
	h = fnv1a.AddUint64(h, uint64(s.tables[1].used))
	h = fnv1a.AddUint64(h, uint64(int64(s.rehashIdx)))
	return h
}
