package hashset

import (
	"fmt"
	"strings"
)

// Debug helpers used by tests and the CLI stats command. They take a full
// pass over the buckets and are not meant for hot paths.

// ProbeCounter returns the number of buckets in table ti carrying the
// chained flag.
func (s *Set[K, E]) ProbeCounter(ti int) int {
	t := &s.tables[ti]
	n := 0
	for bi := range t.buckets {
		if t.buckets[bi].chained() {
			n++
		}
	}
	return n
}

// LongestProbingChain returns the longest run of buckets, in either table,
// that a probe cannot stop in (full or chain-flagged buckets).
func (s *Set[K, E]) LongestProbingChain() int {
	longest := 0
	for ti := range s.tables {
		t := &s.tables[ti]
		run := 0
		for bi := range t.buckets {
			bk := &t.buckets[bi]
			if bk.full() || bk.chained() {
				run++
				if run > longest {
					longest = run
				}
			} else {
				run = 0
			}
		}
	}
	return longest
}

// Histogram renders the bucket fill distribution of both tables on one
// line, e.g. "0:3 1:12 2:7".
func (s *Set[K, E]) Histogram() string {
	counts := make([]int, numBucketSlots+1)
	buckets := 0
	for ti := range s.tables {
		t := &s.tables[ti]
		for bi := range t.buckets {
			counts[t.buckets[bi].count()]++
			buckets++
		}
	}
	if buckets == 0 {
		return "empty"
	}
	parts := make([]string, 0, len(counts))
	for i, n := range counts {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d:%d", i, n))
		}
	}
	return strings.Join(parts, " ")
}

// ProbeMap renders the chained flags of table ti as a string of 0s and 1s,
// one character per bucket.
func (s *Set[K, E]) ProbeMap(ti int) string {
	t := &s.tables[ti]
	var b strings.Builder
	b.Grow(t.numBuckets())
	for bi := range t.buckets {
		if t.buckets[bi].chained() {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
