package hashset

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomElement(t *testing.T) {
	s := New[uint64, uint64](nil)
	_, ok := s.RandomElement()
	require.False(t, ok)

	const count = 1000
	for j := uint64(0); j < count; j++ {
		require.True(t, s.Add(j))
	}
	for i := 0; i < 100; i++ {
		e, ok := s.RandomElement()
		require.True(t, ok)
		require.Less(t, e, uint64(count))
	}
}

func TestSampleElements(t *testing.T) {
	s := New[uint64, uint64](nil)
	require.Zero(t, s.SampleElements(make([]uint64, 10)))

	const count = 500
	for j := uint64(0); j < count; j++ {
		require.True(t, s.Add(j))
	}

	dst := make([]uint64, 100)
	got := s.SampleElements(dst)
	require.Equal(t, 100, got)
	for _, e := range dst {
		_, ok := s.Find(e)
		require.True(t, ok)
	}

	// Asking for more than the table holds returns every element once the
	// walk wraps back to its starting bucket.
	big := make([]uint64, count*2)
	got = s.SampleElements(big)
	require.Equal(t, count, got)
}

func TestSampleElementsDuringRehash(t *testing.T) {
	s := New[uint64, uint64](nil)
	j := uint64(0)
	for ; j < 5000; j++ {
		require.True(t, s.Add(j))
	}
	for !s.IsRehashing() {
		require.True(t, s.Add(j))
		j++
	}

	dst := make([]uint64, 200)
	got := s.SampleElements(dst)
	require.Equal(t, 200, got)
	for _, e := range dst[:got] {
		_, ok := s.Find(e)
		require.True(t, ok)
	}
}

// TestFairRandomElementFairness repeats single-element selection and checks
// the per-element pick counts against the binomial distribution: with
// n/m >= 5 the counts approach a normal distribution and at least 60% of
// the elements must lie within 3 standard deviations of the expectation.
func TestFairRandomElementFairness(t *testing.T) {
	const count = 400
	const numRounds = 10000

	s := New[uint64, uint64](nil)
	for j := uint64(0); j < count; j++ {
		require.True(t, s.Add(j))
	}

	timesPicked := make([]int, count)
	for i := 0; i < numRounds; i++ {
		e, ok := s.FairRandomElement()
		require.True(t, ok)
		timesPicked[e]++
	}

	m := float64(count)
	n := float64(numRounds)
	expected := n / m
	stdDev := math.Sqrt(n * (m - 1) / (m * m))

	within3 := 0
	for j := 0; j < count; j++ {
		dev := expected - float64(timesPicked[j])
		if dev >= -3*stdDev && dev <= 3*stdDev {
			within3++
		}
	}
	require.GreaterOrEqual(t, 100*float64(within3)/m, 60.0, "too unfair randomness")
}

// mockElement carries a fixed hash so tests can force probe chains.
type mockElement struct {
	value uint64
	hash  uint64
}

func (m *mockElement) hashValue() uint64 {
	if m.hash != 0 {
		return m.hash
	}
	return m.value
}

// TestFairRandomElementWithLongChain verifies that an artificially long
// probe chain does not dominate sampling. The sample count derives from the
// estimator of true probability: n = p(1-p) z^2 / eps^2 with z=5 (five
// sigma) and eps=0.01.
func TestFairRandomElementWithLongChain(t *testing.T) {
	const numChained = 64
	const numRandom = 448
	const pFair = float64(numChained) / (numChained + numRandom)
	const precision = 0.01
	// Worst systematic deviation observed across many runs of the window
	// sampler; the measurement tolerance adds to the precision.
	const acceptableDeviation = 0.015
	const z = 5.0

	estimatedSamples := pFair * (1 - pFair) * z * z / (precision * precision)
	numSamples := int(estimatedSamples) + 1

	typ := &Type[*mockElement, *mockElement]{
		Hash: func(k *mockElement) uint64 { return k.hashValue() },
	}
	s := New(typ)
	require.True(t, s.Expand(numChained+numRandom))

	chainHash := rand.Uint64()
	if chainHash == 0 {
		chainHash++
	}
	for i := 0; i < numRandom; i++ {
		h := rand.Uint64()
		if h == chainHash {
			h++
		}
		require.True(t, s.Add(&mockElement{value: h}))
	}
	for i := 0; i < numChained; i++ {
		require.True(t, s.Add(&mockElement{value: uint64(i), hash: chainHash}))
	}
	require.False(t, s.IsRehashing())

	picked := 0
	for i := 0; i < numSamples; i++ {
		e, ok := s.FairRandomElement()
		require.True(t, ok)
		if e.hash == chainHash {
			picked++
		}
	}
	measured := float64(picked) / float64(numSamples)
	deviation := math.Abs(measured - pFair)
	require.LessOrEqual(t, deviation, precision+acceptableDeviation,
		"measured %.3f expected %.3f", measured, pFair)
}

func TestFairRandomElementEmpty(t *testing.T) {
	s := New[uint64, uint64](nil)
	_, ok := s.FairRandomElement()
	require.False(t, ok)
}
