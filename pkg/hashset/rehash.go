package hashset

import (
	"math/bits"
	"time"
	"unsafe"

	"github.com/pkg/errors"
)

// Automatic resize watermarks, expressed as elements per bucket. The table
// operates at roughly one element per bucket: growth triggers when an insert
// would exceed that, shrinking when fill drops below an eighth of it. Under
// the Avoid policy only the hard watermarks apply.
const (
	growFillSoft      = 1  // used+1 > buckets
	growFillHard      = 5  // used+1 > 5*buckets, Avoid policy ceiling
	shrinkDivisorSoft = 8  // used < buckets/8
	shrinkDivisorHard = 32 // used < buckets/32, Avoid policy floor
)

// rehashBudgetCheckInterval is how many migrated buckets RehashFor processes
// between clock checks.
const rehashBudgetCheckInterval = 128

// ErrResizeFailed reports that an explicit expand could not start.
var ErrResizeFailed = errors.New("hashset: resize could not be started")

// IsRehashing reports whether an incremental rehash is in progress.
func (s *Set[K, E]) IsRehashing() bool { return s.rehashIdx >= 0 }

// RehashingInfo returns the bucket counts of the source and target tables of
// an in-progress rehash, or zeros when none is in progress.
func (s *Set[K, E]) RehashingInfo() (from, to int) {
	if !s.IsRehashing() {
		return 0, 0
	}
	return s.tables[0].numBuckets(), s.tables[1].numBuckets()
}

// rehashStepIfNeeded advances the rehash by one populated bucket. It is
// invoked at the start of every mutating operation.
func (s *Set[K, E]) rehashStepIfNeeded() {
	if s.IsRehashing() && s.pauseRehash == 0 {
		s.rehashStep()
	}
}

// rehashStep migrates the next populated source bucket into the target
// table and finalizes the rehash when the source is drained.
func (s *Set[K, E]) rehashStep() {
	src := &s.tables[0]
	n := src.numBuckets()
	for s.rehashIdx < n && src.buckets[s.rehashIdx].presence() == 0 {
		s.rehashIdx++
	}
	if s.rehashIdx < n {
		bk := &src.buckets[s.rehashIdx]
		moved := bk.count()
		for pres := bk.presence(); pres != 0; pres &= pres - 1 {
			i := bits.TrailingZeros8(pres)
			e := bk.slots[i]
			s.insertInto(1, s.hashOf(e), e)
			var zero E
			bk.slots[i] = zero
		}
		// Presence is cleared but the chained flag stays: elements whose
		// probe chain crosses this bucket may still await migration.
		bk.meta &= chainedBit
		src.used -= moved
		s.rehashIdx++
		for s.rehashIdx < n && src.buckets[s.rehashIdx].presence() == 0 {
			s.rehashIdx++
		}
	}
	if s.rehashIdx >= n {
		s.finishRehash()
	}
}

func (s *Set[K, E]) finishRehash() {
	if s.typ.RehashingCompleted != nil {
		s.typ.RehashingCompleted(s)
	}
	s.tables[0] = s.tables[1]
	s.tables[1].reset()
	s.rehashIdx = -1
}

// RehashFor migrates buckets until the rehash completes or the wall-clock
// budget elapses, checking the clock every 128 buckets. It reports whether
// rehashing is still in progress afterwards.
func (s *Set[K, E]) RehashFor(budget time.Duration) bool {
	if !s.IsRehashing() || s.pauseRehash > 0 {
		return s.IsRehashing()
	}
	start := time.Now()
	for steps := 0; s.IsRehashing(); {
		s.rehashStep()
		steps++
		if steps%rehashBudgetCheckInterval == 0 && time.Since(start) >= budget {
			break
		}
	}
	return s.IsRehashing()
}

// resizeTo allocates a table with the given size exponent and begins (or,
// for an empty or instant-rehashing set, completes) the migration into it.
func (s *Set[K, E]) resizeTo(exp int8) bool {
	if s.IsRehashing() || exp == s.tables[0].exp {
		return false
	}
	nt := newTable[E](exp)
	if !s.tables[0].allocated() || s.tables[0].used == 0 {
		s.tables[0] = nt
		return true
	}
	s.tables[1] = nt
	s.rehashIdx = 0
	if s.typ.RehashingStarted != nil {
		s.typ.RehashingStarted(s)
	}
	if s.typ.InstantRehashing {
		for s.IsRehashing() && s.pauseRehash == 0 {
			s.rehashStep()
		}
	}
	return true
}

// resizeAllowed consults the type's resize gate for an automatic resize to
// the given exponent.
func (s *Set[K, E]) resizeAllowed(exp int8) bool {
	if s.typ.ResizeAllowed == nil {
		return true
	}
	moreMem := uintptr(1<<uint(exp)) * unsafe.Sizeof(bucket[E]{})
	ratio := 0.0
	if nb := s.tables[0].numBuckets(); nb > 0 {
		ratio = float64(s.tables[0].used) / float64(nb)
	}
	return s.typ.ResizeAllowed(moreMem, ratio)
}

// Expand grows the set to hold at least capacity elements at one element per
// bucket, bypassing the resize policy. It reports whether the resize was
// applied or already satisfied.
func (s *Set[K, E]) Expand(capacity int) bool {
	if capacity <= 0 || s.IsRehashing() {
		return false
	}
	exp := bucketExpFor(capacity)
	if s.tables[0].allocated() && exp <= s.tables[0].exp {
		return true
	}
	return s.resizeTo(exp)
}

// TryExpand is Expand with an error report instead of a silent refusal.
func (s *Set[K, E]) TryExpand(capacity int) error {
	if !s.Expand(capacity) {
		return errors.Wrapf(ErrResizeFailed, "expand to %d", capacity)
	}
	return nil
}

// ExpandIfNeeded applies the growth policy for one pending insert. It is
// invoked before every insert and may be called explicitly.
func (s *Set[K, E]) ExpandIfNeeded() bool {
	return s.expandIfNeeded()
}

func (s *Set[K, E]) expandIfNeeded() bool {
	if s.IsRehashing() {
		return false
	}
	t := &s.tables[0]
	if !t.allocated() {
		return s.resizeTo(bucketExpFor(s.Len() + 1))
	}
	needed := t.used + 1
	switch resizePolicy {
	case ResizeAllow:
		if needed <= t.numBuckets()*growFillSoft {
			return false
		}
	case ResizeAvoid:
		if needed <= t.numBuckets()*growFillHard {
			return false
		}
	case ResizeForbid:
		return false
	}
	exp := bucketExpFor(needed)
	if !s.resizeAllowed(exp) {
		return false
	}
	return s.resizeTo(exp)
}

// ShrinkIfNeeded applies the shrink policy after a delete: when fill drops
// below the low watermark and auto-shrink is not paused, migration into a
// smaller table begins.
func (s *Set[K, E]) ShrinkIfNeeded() bool {
	if s.IsRehashing() || s.pauseAutoShrink > 0 || !s.tables[0].allocated() {
		return false
	}
	t := &s.tables[0]
	switch resizePolicy {
	case ResizeAllow:
		if t.used*shrinkDivisorSoft >= t.numBuckets() {
			return false
		}
	case ResizeAvoid:
		if t.used*shrinkDivisorHard >= t.numBuckets() {
			return false
		}
	case ResizeForbid:
		return false
	}
	exp := bucketExpFor(t.used)
	if exp >= t.exp {
		return false
	}
	if !s.resizeAllowed(exp) {
		return false
	}
	return s.resizeTo(exp)
}
