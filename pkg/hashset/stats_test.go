package hashset

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestTableStats(t *testing.T) {
	s := New[uint64, uint64](nil)
	for j := uint64(0); j < 1000; j++ {
		require.True(t, s.Add(j))
	}
	s.RehashFor(time.Second)

	st := s.TableStats(0, true)
	require.Equal(t, 1024, st.Buckets)
	require.Equal(t, 1024*numBucketSlots, st.Size)
	require.Equal(t, 1000, st.Used)
	require.NotNil(t, st.FillHistogram)

	total := 0
	elements := 0
	for fill, n := range st.FillHistogram {
		total += n
		elements += fill * n
	}
	require.Equal(t, st.Buckets, total)
	require.Equal(t, st.Used, elements)

	require.Contains(t, st.String(), "buckets: 1,024")

	// Without full, the expensive fields stay unset.
	cheap := s.TableStats(0, false)
	require.Nil(t, cheap.FillHistogram)
	require.Equal(t, 1000, cheap.Used)
}

func TestCombineStats(t *testing.T) {
	a := &TableStats{Buckets: 4, Size: 28, Used: 10, MaxChainLen: 2, FillHistogram: []int{1, 1, 1, 1, 0, 0, 0, 0}}
	b := &TableStats{Buckets: 8, Size: 56, Used: 5, MaxChainLen: 5}
	CombineStats(a, b)
	require.Equal(t, 12, b.Buckets)
	require.Equal(t, 84, b.Size)
	require.Equal(t, 15, b.Used)
	require.Equal(t, 5, b.MaxChainLen)
	require.Equal(t, []int{1, 1, 1, 1, 0, 0, 0, 0}, b.FillHistogram)
}

func TestStatsStringDuringRehash(t *testing.T) {
	s := New[uint64, uint64](nil)
	j := uint64(0)
	for ; j < 5000; j++ {
		require.True(t, s.Add(j))
	}
	for !s.IsRehashing() {
		require.True(t, s.Add(j))
		j++
	}
	out := s.StatsString(true)
	require.Contains(t, out, "hash table 0 stats")
	require.Contains(t, out, "hash table 1 stats")
}

func TestHistogramAndProbeMap(t *testing.T) {
	s := New[uint64, uint64](nil)
	require.Equal(t, "empty", s.Histogram())

	for j := uint64(0); j < 100; j++ {
		require.True(t, s.Add(j))
	}
	require.NotEmpty(t, s.Histogram())
	pm := s.ProbeMap(0)
	require.Len(t, pm, s.tables[0].numBuckets())
}

func TestCollector(t *testing.T) {
	s := New[uint64, uint64](nil)
	for j := uint64(0); j < 100; j++ {
		require.True(t, s.Add(j))
	}
	s.RehashFor(time.Second)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(s, prometheus.Labels{"name": "test"})))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			byName[mf.GetName()] = m.GetGauge().GetValue()
		}
	}
	require.Equal(t, float64(100), byName["hashset_elements"])
	require.Equal(t, float64(128), byName["hashset_buckets"])
	require.Positive(t, byName["hashset_mem_bytes"])
	require.Equal(t, float64(0), byName["hashset_rehashing"])
}
