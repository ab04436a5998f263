// Package hashset implements a cache-friendly hash table used as the keyed
// index of in-memory stores. Elements are caller-owned values that contain,
// or are, a lookup key. Buckets are sized to one cache line and hold seven
// elements plus a presence bitmap, per-slot hash fragments and a chained
// flag for displacement tracking; collisions are resolved by linear bucket
// probing. Resizes are rehashed incrementally, one bucket per mutating
// operation or under an explicit time budget.
//
// Sets are not safe for concurrent use; callers serialize access.
package hashset

import (
	"math/bits"
	"unsafe"
)

// ResizePolicy is the process-wide switch modulating automatic resizing.
type ResizePolicy int

const (
	// ResizeAllow lets tables grow and shrink at the soft watermarks.
	ResizeAllow ResizePolicy = iota
	// ResizeAvoid defers resizing until the hard watermarks are crossed.
	ResizeAvoid
	// ResizeForbid disables automatic resizing entirely.
	ResizeForbid
)

var resizePolicy = ResizeAllow

// SetResizePolicy sets the process-wide resize policy. Like the hash seed,
// it is configuration with an initialization boundary: set it before the
// affected sets see traffic.
func SetResizePolicy(p ResizePolicy) { resizePolicy = p }

// emptyCallbackPeriod is how often, in buckets released, Empty invokes its
// progress callback.
const emptyCallbackPeriod = 1 << 16

// Set is a hash table instance: a pair of power-of-two sized bucket tables
// that coexist during rehashing, plus the rehash cursor and pause counters.
type Set[K, E any] struct {
	typ       *Type[K, E]
	tables    [2]table[E]
	rehashIdx int
	// pauseRehash suspends incremental rehash steps (and deletion
	// compaction) while safe iterators or two-phase pairs are live.
	pauseRehash     int
	pauseAutoShrink int
	metadata        any
}

// Position identifies a table slot chosen by FindPositionForInsert or
// TwoPhasePopFindRef, to be consumed by the matching commit call without
// re-hashing. It is opaque to callers.
type Position struct {
	table  int
	bucket int
	slot   int
	home   int
	hash   uint64
}

// New creates an empty set with the given type descriptor. A nil descriptor
// is equivalent to a zero one.
func New[K, E any](typ *Type[K, E]) *Set[K, E] {
	if typ == nil {
		typ = &Type[K, E]{}
	}
	s := &Set[K, E]{typ: typ, rehashIdx: -1}
	s.tables[0].exp = -1
	s.tables[1].exp = -1
	if typ.Metadata != nil {
		s.metadata = typ.Metadata()
	}
	return s
}

// Type returns the set's type descriptor.
func (s *Set[K, E]) Type() *Type[K, E] { return s.typ }

// Metadata returns the per-instance metadata constructed by the type's
// Metadata callback, or nil.
func (s *Set[K, E]) Metadata() any { return s.metadata }

// Len returns the number of elements stored across both tables.
func (s *Set[K, E]) Len() int { return s.tables[0].used + s.tables[1].used }

// Buckets returns the total bucket count across both tables.
func (s *Set[K, E]) Buckets() int {
	return s.tables[0].numBuckets() + s.tables[1].numBuckets()
}

// MemUsage returns the memory consumed by the set and its tables in bytes.
// Element memory is owned by the caller and not accounted.
func (s *Set[K, E]) MemUsage() uint64 {
	m := uint64(unsafe.Sizeof(*s))
	for i := range s.tables {
		m += uint64(s.tables[i].numBuckets()) * uint64(unsafe.Sizeof(bucket[E]{}))
	}
	return m
}

// Empty deletes every element, invoking the destructor on each, and releases
// both tables. The progress callback, when non-nil, is invoked before the
// first bucket is released and then once per 65536 buckets released; a set
// with no allocated table releases no buckets and does not invoke it.
func (s *Set[K, E]) Empty(callback func(*Set[K, E])) {
	released := 0
	for ti := range s.tables {
		t := &s.tables[ti]
		if !t.allocated() {
			continue
		}
		for bi := range t.buckets {
			if callback != nil && released%emptyCallbackPeriod == 0 {
				callback(s)
			}
			released++
			if s.typ.Destructor == nil {
				continue
			}
			bk := &t.buckets[bi]
			for pres := bk.presence(); pres != 0; pres &= pres - 1 {
				s.typ.Destructor(bk.slots[bits.TrailingZeros8(pres)])
			}
		}
		t.reset()
	}
	s.rehashIdx = -1
	s.pauseRehash = 0
	s.pauseAutoShrink = 0
}

// Release destroys all elements and drops the tables. The set may be reused
// afterwards, but the idiomatic lifecycle is one Release at the end.
func (s *Set[K, E]) Release() { s.Empty(nil) }

// PauseAutoShrink suspends automatic shrinking after deletes. Pauses nest.
func (s *Set[K, E]) PauseAutoShrink() { s.pauseAutoShrink++ }

// ResumeAutoShrink undoes one PauseAutoShrink and applies any shrink that
// became due while paused.
func (s *Set[K, E]) ResumeAutoShrink() {
	if s.pauseAutoShrink > 0 {
		s.pauseAutoShrink--
	}
	if s.pauseAutoShrink == 0 {
		s.ShrinkIfNeeded()
	}
}

func (s *Set[K, E]) pauseRehashing() { s.pauseRehash++ }

func (s *Set[K, E]) resumeRehashing() {
	if s.pauseRehash > 0 {
		s.pauseRehash--
	}
}

// IsRehashingPaused reports whether incremental rehashing is currently
// suspended by a safe iterator or a two-phase pair.
func (s *Set[K, E]) IsRehashingPaused() bool { return s.pauseRehash > 0 }

func (s *Set[K, E]) hashOf(e E) uint64 { return s.typ.hash(s.typ.elementKey(e)) }

// --- Lookup ---

// findSlot locates key in table ti. It returns the bucket index and slot.
func (s *Set[K, E]) findSlot(ti int, h uint64, key K) (int, int, bool) {
	t := &s.tables[ti]
	if t.used == 0 {
		return 0, 0, false
	}
	mask := t.mask()
	frag := hashFragment(h)
	b := int(h & mask)
	for probed := 0; probed < t.numBuckets(); probed++ {
		bk := &t.buckets[b]
		for pres := bk.presence(); pres != 0; pres &= pres - 1 {
			i := bits.TrailingZeros8(pres)
			if bk.frags[i] != frag {
				continue
			}
			if s.typ.equal(s.typ.elementKey(bk.slots[i]), key) {
				return b, i, true
			}
		}
		// A bucket with a free slot and no chained flag means no element
		// with this home bucket was ever pushed past it.
		if !bk.full() && !bk.chained() {
			return 0, 0, false
		}
		b = int(uint64(b+1) & mask)
	}
	return 0, 0, false
}

func (s *Set[K, E]) lookup(h uint64, key K) (int, int, int, bool) {
	for ti := 0; ti < 2; ti++ {
		if !s.tables[ti].allocated() {
			continue
		}
		if b, i, ok := s.findSlot(ti, h, key); ok {
			return ti, b, i, true
		}
	}
	return 0, 0, 0, false
}

// Find returns the element stored for key.
func (s *Set[K, E]) Find(key K) (E, bool) {
	var zero E
	if s.Len() == 0 {
		return zero, false
	}
	ti, b, i, ok := s.lookup(s.typ.hash(key), key)
	if !ok {
		return zero, false
	}
	return s.tables[ti].buckets[b].slots[i], true
}

// FindRef returns a pointer to the slot holding the element for key, or nil.
// The reference is invalidated by any mutation of the set.
func (s *Set[K, E]) FindRef(key K) *E {
	if s.Len() == 0 {
		return nil
	}
	ti, b, i, ok := s.lookup(s.typ.hash(key), key)
	if !ok {
		return nil
	}
	return &s.tables[ti].buckets[b].slots[i]
}

// --- Insertion ---

// insertTable is the table new elements go into: the rehash target while
// rehashing, otherwise the primary.
func (s *Set[K, E]) insertTable() int {
	if s.IsRehashing() {
		return 1
	}
	return 0
}

// findInsertPos picks the bucket and slot for a new element with hash h in
// table ti: the first bucket along the probe sequence with a free slot.
func (s *Set[K, E]) findInsertPos(ti int, h uint64) Position {
	t := &s.tables[ti]
	if t.used >= t.capacity() {
		panic("hashset: table is full and cannot grow under the current resize policy")
	}
	mask := t.mask()
	home := int(h & mask)
	b := home
	for {
		bk := &t.buckets[b]
		if !bk.full() {
			return Position{table: ti, bucket: b, slot: bk.firstFree(), home: home, hash: h}
		}
		b = int(uint64(b+1) & mask)
	}
}

// commitInsert writes an element into a previously chosen position and
// marks the probe chain it displaced across.
func (s *Set[K, E]) commitInsert(e E, pos Position) {
	t := &s.tables[pos.table]
	bk := &t.buckets[pos.bucket]
	bk.slots[pos.slot] = e
	bk.frags[pos.slot] = hashFragment(pos.hash)
	bk.setPresent(pos.slot)
	if pos.bucket != pos.home {
		// Mark the chain from the home bucket up to (but excluding) the
		// landing bucket, the home itself included, so probes keep going
		// even after deletes punch holes in it.
		mask := t.mask()
		for p := pos.home; p != pos.bucket; p = int(uint64(p+1) & mask) {
			t.buckets[p].setChained()
		}
	}
	t.used++
}

func (s *Set[K, E]) insertInto(ti int, h uint64, e E) {
	s.commitInsert(e, s.findInsertPos(ti, h))
}

// Add inserts an element. It fails, leaving the set unchanged, when an
// element with the same key already exists.
func (s *Set[K, E]) Add(e E) bool {
	_, added := s.AddOrFind(e)
	return added
}

// AddOrFind inserts an element, or returns the existing element with the
// same key. The second return is true when the element was inserted.
func (s *Set[K, E]) AddOrFind(e E) (E, bool) {
	s.rehashStepIfNeeded()
	s.expandIfNeeded()
	key := s.typ.elementKey(e)
	h := s.typ.hash(key)
	if ti, b, i, ok := s.lookup(h, key); ok {
		return s.tables[ti].buckets[b].slots[i], false
	}
	s.commitInsert(e, s.findInsertPos(s.insertTable(), h))
	return e, true
}

// Replace inserts an element, overwriting any existing element with the same
// key and destroying the displaced one. It returns true when the element was
// added rather than replacing.
func (s *Set[K, E]) Replace(e E) bool {
	s.rehashStepIfNeeded()
	s.expandIfNeeded()
	key := s.typ.elementKey(e)
	h := s.typ.hash(key)
	if ti, b, i, ok := s.lookup(h, key); ok {
		bk := &s.tables[ti].buckets[b]
		old := bk.slots[i]
		bk.slots[i] = e
		if s.typ.Destructor != nil {
			s.typ.Destructor(old)
		}
		return false
	}
	s.commitInsert(e, s.findInsertPos(s.insertTable(), h))
	return true
}

// --- Deletion ---

// removeSlot clears a located slot and restores the probing invariants. The
// caller accounts for the element itself.
func (s *Set[K, E]) removeSlot(ti, b, i int, h uint64) {
	t := &s.tables[ti]
	bk := &t.buckets[b]
	bk.clearPresent(i)
	var zero E
	bk.slots[i] = zero
	t.used--
	home := int(h & t.mask())
	// Compaction is skipped while rehashing is paused: live safe iterators
	// and two-phase positions must not observe elements moving. The
	// chained flags keep every remaining element reachable regardless.
	if s.pauseRehash == 0 && (bk.chained() || home != b) {
		s.compact(ti, home, b)
	}
	s.ShrinkIfNeeded()
}

// Pop finds and removes the element for key, returning it without invoking
// the destructor. Ownership returns to the caller.
func (s *Set[K, E]) Pop(key K) (E, bool) {
	var zero E
	s.rehashStepIfNeeded()
	if s.Len() == 0 {
		return zero, false
	}
	h := s.typ.hash(key)
	ti, b, i, ok := s.lookup(h, key)
	if !ok {
		return zero, false
	}
	e := s.tables[ti].buckets[b].slots[i]
	s.removeSlot(ti, b, i, h)
	return e, true
}

// Delete removes the element for key and invokes the destructor on it.
func (s *Set[K, E]) Delete(key K) bool {
	e, ok := s.Pop(key)
	if !ok {
		return false
	}
	if s.typ.Destructor != nil {
		s.typ.Destructor(e)
	}
	return true
}

// compact pulls displaced elements backward after a deletion and recomputes
// the chained flags of the affected probe chain. home is the home bucket of
// the deleted element, freed the bucket its slot was cleared in.
func (s *Set[K, E]) compact(ti, home, freed int) {
	t := &s.tables[ti]
	mask := t.mask()
	n := t.numBuckets()

	// Cascade the hole toward the chain tail: as long as elements are
	// displaced past the freed bucket, move the farthest one that may
	// legally live here back into the hole.
	for t.buckets[freed].chained() {
		src, srcSlot := -1, -1
		prev := freed
		j := int(uint64(freed+1) & mask)
		for steps := 0; steps < n-1; steps++ {
			pb := &t.buckets[prev]
			if !pb.full() && !pb.chained() {
				break
			}
			bk := &t.buckets[j]
			for pres := bk.presence(); pres != 0; pres &= pres - 1 {
				i := bits.TrailingZeros8(pres)
				eh := int(s.hashOf(bk.slots[i]) & mask)
				if t.dist(eh, freed) < t.dist(eh, j) {
					src, srcSlot = j, i
				}
			}
			prev = j
			j = int(uint64(j+1) & mask)
		}
		if src < 0 {
			break
		}
		sb := &t.buckets[src]
		fb := &t.buckets[freed]
		slot := fb.firstFree()
		fb.slots[slot] = sb.slots[srcSlot]
		fb.frags[slot] = sb.frags[srcSlot]
		fb.setPresent(slot)
		sb.clearPresent(srcSlot)
		var zero E
		sb.slots[srcSlot] = zero
		freed = src
	}

	s.recomputeChainFlags(ti, home)
}

// recomputeChainFlags rebuilds the chained flags of the probe chain starting
// at bucket start from the elements that actually remain displaced across
// it.
func (s *Set[K, E]) recomputeChainFlags(ti, start int) {
	t := &s.tables[ti]
	mask := t.mask()
	n := t.numBuckets()

	length := 0
	for length < n {
		bk := &t.buckets[int(uint64(start+length)&mask)]
		if !bk.full() && !bk.chained() {
			break
		}
		length++
	}
	if length == 0 {
		return
	}

	type placement struct{ home, loc int }
	var placed []placement
	scanTo := length
	if scanTo < n {
		scanTo++ // the chain-terminating bucket may hold displaced elements too
	}
	for o := 0; o < scanTo; o++ {
		idx := int(uint64(start+o) & mask)
		bk := &t.buckets[idx]
		for pres := bk.presence(); pres != 0; pres &= pres - 1 {
			i := bits.TrailingZeros8(pres)
			home := int(s.hashOf(bk.slots[i]) & mask)
			if home != idx {
				placed = append(placed, placement{home: home, loc: idx})
			}
		}
	}

	for o := 0; o < length; o++ {
		idx := int(uint64(start+o) & mask)
		needed := false
		for _, p := range placed {
			if t.dist(p.home, idx) < t.dist(p.home, p.loc) {
				needed = true
				break
			}
		}
		if needed {
			t.buckets[idx].setChained()
		} else {
			t.buckets[idx].clearChained()
		}
	}
}

// --- Two-phase insert and pop ---

// FindPositionForInsert hashes and probes for key. When the key already
// exists it returns a nil position and the existing element. Otherwise it
// returns the position the element will occupy, to be consumed by
// InsertAtPosition. Rehashing is paused until the matching commit; mutating
// the set between the two calls is undefined.
func (s *Set[K, E]) FindPositionForInsert(key K) (*Position, E) {
	var zero E
	s.rehashStepIfNeeded()
	s.expandIfNeeded()
	h := s.typ.hash(key)
	if ti, b, i, ok := s.lookup(h, key); ok {
		return nil, s.tables[ti].buckets[b].slots[i]
	}
	pos := s.findInsertPos(s.insertTable(), h)
	s.pauseRehashing()
	return &pos, zero
}

// InsertAtPosition writes an element into a position returned by
// FindPositionForInsert and resumes rehashing.
func (s *Set[K, E]) InsertAtPosition(e E, pos *Position) {
	s.resumeRehashing()
	s.commitInsert(e, *pos)
}

// TwoPhasePopFindRef locates key and returns a reference to its slot along
// with a position for the matching TwoPhasePopDelete. The caller may read
// the element through the reference before committing; the set is not
// modified and rehashing is paused until the commit. Returns nil when the
// key is absent.
func (s *Set[K, E]) TwoPhasePopFindRef(key K) (*E, *Position) {
	s.rehashStepIfNeeded()
	if s.Len() == 0 {
		return nil, nil
	}
	h := s.typ.hash(key)
	ti, b, i, ok := s.lookup(h, key)
	if !ok {
		return nil, nil
	}
	s.pauseRehashing()
	pos := Position{table: ti, bucket: b, slot: i, home: int(h & s.tables[ti].mask()), hash: h}
	return &s.tables[ti].buckets[b].slots[i], &pos
}

// TwoPhasePopDelete removes the element at a position returned by
// TwoPhasePopFindRef and resumes rehashing. The destructor is not invoked;
// the caller owns the element it read through the reference.
func (s *Set[K, E]) TwoPhasePopDelete(pos *Position) {
	s.resumeRehashing()
	s.removeSlot(pos.table, pos.bucket, pos.slot, pos.hash)
}
