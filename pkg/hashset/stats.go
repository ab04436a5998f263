package hashset

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// TableStats is a point-in-time snapshot of one of the two tables.
type TableStats struct {
	TableIndex    int
	Buckets       int
	Size          int // buckets * slots per bucket
	Used          int
	MaxChainLen   int // longest probing chain, in buckets
	TotalChainLen int // buckets carrying the chained flag
	// FillHistogram counts buckets by the number of occupied slots,
	// index 0 through numBucketSlots. Nil unless collected with full=true.
	FillHistogram []int
}

// TableStats collects statistics for table ti (0 or 1). With full set, the
// fill histogram and probing chain measurements are computed as well, which
// costs a pass over the buckets.
func (s *Set[K, E]) TableStats(ti int, full bool) *TableStats {
	t := &s.tables[ti]
	st := &TableStats{
		TableIndex: ti,
		Buckets:    t.numBuckets(),
		Size:       t.capacity(),
		Used:       t.used,
	}
	if !full || !t.allocated() {
		return st
	}
	st.FillHistogram = make([]int, numBucketSlots+1)
	run := 0
	for bi := range t.buckets {
		bk := &t.buckets[bi]
		st.FillHistogram[bk.count()]++
		if bk.chained() {
			st.TotalChainLen++
		}
		if bk.full() || bk.chained() {
			run++
			if run > st.MaxChainLen {
				st.MaxChainLen = run
			}
		} else {
			run = 0
		}
	}
	return st
}

// CombineStats folds the statistics of one table into another, mirroring
// how per-table snapshots are aggregated for reporting.
func CombineStats(from, into *TableStats) {
	into.Buckets += from.Buckets
	into.Size += from.Size
	into.Used += from.Used
	into.TotalChainLen += from.TotalChainLen
	if from.MaxChainLen > into.MaxChainLen {
		into.MaxChainLen = from.MaxChainLen
	}
	if from.FillHistogram == nil {
		return
	}
	if into.FillHistogram == nil {
		into.FillHistogram = make([]int, numBucketSlots+1)
	}
	for i, n := range from.FillHistogram {
		into.FillHistogram[i] += n
	}
}

// String renders the snapshot for humans.
func (st *TableStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hash table %d stats:\n", st.TableIndex)
	if st.Buckets == 0 {
		b.WriteString(" empty\n")
		return b.String()
	}
	fmt.Fprintf(&b, " buckets: %s\n", humanize.Comma(int64(st.Buckets)))
	fmt.Fprintf(&b, " slots: %s\n", humanize.Comma(int64(st.Size)))
	fmt.Fprintf(&b, " elements: %s\n", humanize.Comma(int64(st.Used)))
	fmt.Fprintf(&b, " avg fill: %.2f%%\n", 100*float64(st.Used)/float64(st.Size))
	if st.FillHistogram != nil {
		fmt.Fprintf(&b, " max probing chain: %d\n", st.MaxChainLen)
		fmt.Fprintf(&b, " buckets with probing flag: %d\n", st.TotalChainLen)
		b.WriteString(" bucket fill:")
		for i, n := range st.FillHistogram {
			if n == 0 {
				continue
			}
			fmt.Fprintf(&b, " %d:%d (%.2f%%)", i, n, 100*float64(n)/float64(st.Buckets))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// StatsString renders statistics for both tables, the rehash target
// included when a rehash is in progress.
func (s *Set[K, E]) StatsString(full bool) string {
	out := s.TableStats(0, full).String()
	if s.IsRehashing() {
		out += s.TableStats(1, full).String()
	}
	return out
}
