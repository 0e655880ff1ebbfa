package frequency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entriesFromCounts(vc map[string]float64) []Entry {
	out := make([]Entry, 0, len(vc))
	for v, c := range vc {
		out = append(out, Entry{Value: v, Count: c})
	}
	return out
}

func TestDenseRankingWithTies(t *testing.T) {
	entries := entriesFromCounts(map[string]float64{"a": 3, "b": 2, "c": 2, "d": 1})
	ranked := Rank(entries, Dense, false, 0)
	want := map[string]float64{"a": 1, "b": 2, "c": 2, "d": 3}
	for _, e := range ranked {
		assert.Equal(t, want[e.Value], e.Rank, "rank for %s", e.Value)
	}
}

func TestAverageRankingWithTies(t *testing.T) {
	entries := entriesFromCounts(map[string]float64{
		"a": 5, "b": 3, "c": 3, "d": 2, "e": 2, "f": 1,
	})
	ranked := Rank(entries, Average, false, 0)
	want := map[string]float64{"a": 1, "b": 2.5, "c": 2.5, "d": 4.5, "e": 4.5, "f": 6}
	for _, e := range ranked {
		assert.Equal(t, want[e.Value], e.Rank, "rank for %s", e.Value)
	}
}

func TestMinMaxRanking(t *testing.T) {
	entries := entriesFromCounts(map[string]float64{"a": 3, "b": 2, "c": 2, "d": 1})

	minRanked := Rank(entries, Min, false, 0)
	minWant := map[string]float64{"a": 1, "b": 2, "c": 2, "d": 4}
	for _, e := range minRanked {
		assert.Equal(t, minWant[e.Value], e.Rank, "min rank for %s", e.Value)
	}

	maxRanked := Rank(entries, Max, false, 0)
	maxWant := map[string]float64{"a": 1, "b": 3, "c": 3, "d": 4}
	for _, e := range maxRanked {
		assert.Equal(t, maxWant[e.Value], e.Rank, "max rank for %s", e.Value)
	}
}

func TestOrdinalRankingBreaksTiesLexicographically(t *testing.T) {
	entries := entriesFromCounts(map[string]float64{"b": 2, "a": 2})
	ranked := Rank(entries, Ordinal, false, 0)
	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].Value)
	assert.Equal(t, 1.0, ranked[0].Rank)
	assert.Equal(t, "b", ranked[1].Value)
	assert.Equal(t, 2.0, ranked[1].Rank)
}

func TestTruncateProducesOtherBucket(t *testing.T) {
	ranked := []Entry{
		{Value: "a", Count: 5}, {Value: "b", Count: 3}, {Value: "c", Count: 2}, {Value: "d", Count: 1},
	}
	out := Truncate(ranked, 2)
	require.Len(t, out, 3)
	assert.Equal(t, OtherBucketValue, out[2].Value)
	assert.Equal(t, 3.0, out[2].Count)
}

func TestTruncateNegativeLimitRetainsByCount(t *testing.T) {
	ranked := []Entry{
		{Value: "a", Count: 5}, {Value: "b", Count: 3}, {Value: "c", Count: 2}, {Value: "d", Count: 1},
	}
	out := Truncate(ranked, -3)
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].Value)
	assert.Equal(t, "b", out[1].Value)
	assert.Equal(t, OtherBucketValue, out[2].Value)
	assert.Equal(t, 3.0, out[2].Count)
}

func TestTruncateZeroLimitDisablesTruncation(t *testing.T) {
	ranked := []Entry{{Value: "a", Count: 5}, {Value: "b", Count: 1}}
	out := Truncate(ranked, 0)
	assert.Len(t, out, 2)
}

func TestApplyDistinctThresholdGatesLimit(t *testing.T) {
	ranked := []Entry{
		{Value: "a", Count: 5}, {Value: "b", Count: 3}, {Value: "c", Count: 2},
	}
	below := ApplyDistinctThreshold(ranked, 1, 3, 10)
	assert.Len(t, below, 3, "cardinality below threshold: limit should not apply")

	above := ApplyDistinctThreshold(ranked, 1, 3, 2)
	assert.Len(t, above, 2, "cardinality meets threshold: limit should apply")
}

func TestToleranceFromStatsFallsBackToEpsilon(t *testing.T) {
	tol := toleranceFromStats(0, 0, 0)
	assert.Equal(t, fallbackWeightEpsilon, tol)
}
