package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gmhafiz/reconcile/internal/domain/match"
	"github.com/gmhafiz/reconcile/internal/domain/recon"
	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

func TestProjectSortKeyNumericString(t *testing.T) {
	row := scalar.Row{"Amount": scalar.String("$1,234.50")}
	sv := ProjectSortKey(row, "Amount")
	assert.True(t, sv.isNum)
	assert.InDelta(t, 1234.50, sv.num, 0.001)
}

func TestProjectSortKeyDateString(t *testing.T) {
	row := scalar.Row{"Ts": scalar.String("2024-03-15")}
	sv := ProjectSortKey(row, "Ts")
	assert.True(t, sv.isNum)
}

func TestProjectSortKeyNullSortsLowest(t *testing.T) {
	row := scalar.Row{}
	sv := ProjectSortKey(row, "Missing")
	cfg := match.Config{ToleranceUnit: match.UnitExact}
	other := ProjectSortKey(scalar.Row{"Missing": scalar.Number(1)}, "Missing")
	assert.Equal(t, -1, compareKeys(sv, other, cfg))
}

func TestRunTwoPointerExactMatchesInOrder(t *testing.T) {
	mappings := []recon.ColumnMapping{{ID: "m1", Source: []string{"K"}, Target: "K", Kind: recon.MatchExact}}
	cfg := Config{SourceSortKey: "K", TargetSortKey: "K", ToleranceUnit: match.UnitExact, MatchStrategy: recon.StrategyExact}

	source := []scalar.Row{
		{"K": scalar.Number(1)},
		{"K": scalar.Number(2)},
		{"K": scalar.Number(4)},
	}
	target := []scalar.Row{
		{"K": scalar.Number(1)},
		{"K": scalar.Number(3)},
		{"K": scalar.Number(4)},
	}

	results, stats, err := Run(context.Background(), source, target, mappings, cfg, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 1, stats.UnmatchedSource)
	assert.Equal(t, 1, stats.UnmatchedTarget)
	assert.Len(t, results, 4)
}

func TestRunSlidingWindowPicksBestConfidenceInWindow(t *testing.T) {
	mappings := []recon.ColumnMapping{
		{ID: "m1", Source: []string{"Ref"}, Target: "Ref", Kind: recon.MatchFuzzy},
	}
	cfg := Config{
		SourceSortKey: "Ts", TargetSortKey: "Ts",
		Tolerance: 5, ToleranceUnit: match.UnitMinutes, MatchStrategy: recon.StrategyFuzzy,
	}

	source := []scalar.Row{
		{"Ts": scalar.String("2024-01-15 09:03:00"), "Ref": scalar.String("X")},
	}
	target := []scalar.Row{
		{"Ts": scalar.String("2024-01-15 09:07:00"), "Ref": scalar.String("X")},
	}

	results, stats, err := Run(context.Background(), source, target, mappings, cfg, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)
	assert.Len(t, results, 1)
	assert.Equal(t, recon.StatusMatched, results[0].Status)
}

func TestRunEmptySourceAllTargetsUnmatched(t *testing.T) {
	mappings := []recon.ColumnMapping{{ID: "m1", Source: []string{"K"}, Target: "K", Kind: recon.MatchExact}}
	cfg := Config{SourceSortKey: "K", TargetSortKey: "K", ToleranceUnit: match.UnitExact, MatchStrategy: recon.StrategyExact}

	target := []scalar.Row{{"K": scalar.Number(1)}, {"K": scalar.Number(2)}}

	results, stats, err := Run(context.Background(), nil, target, mappings, cfg, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, stats.UnmatchedTarget)
	assert.Len(t, results, 2)
}

func TestRunRespectsCancellation(t *testing.T) {
	mappings := []recon.ColumnMapping{{ID: "m1", Source: []string{"K"}, Target: "K", Kind: recon.MatchExact}}
	cfg := Config{SourceSortKey: "K", TargetSortKey: "K", ToleranceUnit: match.UnitExact, MatchStrategy: recon.StrategyExact, ChunkSize: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := []scalar.Row{{"K": scalar.Number(1)}}
	target := []scalar.Row{{"K": scalar.Number(1)}}

	_, _, err := Run(ctx, source, target, mappings, cfg, nil)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestPartitionSplitsIntoNContiguousChunks(t *testing.T) {
	rows := make([]Row, 10)
	for i := range rows {
		rows[i] = Row{Key: sortValue{isNum: true, num: float64(i)}}
	}

	parts := Partition(rows, 3)
	assert.Len(t, parts, 3)

	var total int
	for _, p := range parts {
		total += len(p)
	}
	assert.Equal(t, 10, total)
}

func TestShouldStreamThreshold(t *testing.T) {
	assert.False(t, ShouldStream(100, 100))
	assert.True(t, ShouldStream(30_000, 30_000))
}
