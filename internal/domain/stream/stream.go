// Package stream implements the two-pointer / sliding-window streaming
// reconciliation engine over sorted row streams, with chunked reads, an
// optional cancellation signal, and periodic progress reporting (spec.md
// §4.8, §5).
package stream

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/gmhafiz/reconcile/internal/apperr"
	"github.com/gmhafiz/reconcile/internal/domain/match"
	"github.com/gmhafiz/reconcile/internal/domain/recon"
	"github.com/gmhafiz/reconcile/internal/domain/scalar"
	"github.com/gmhafiz/reconcile/internal/telemetry"
)

// lineOf reads the reserved __line provenance key off row, if present.
func lineOf(row scalar.Row) *int64 {
	if row == nil {
		return nil
	}
	if v, ok := row[scalar.LineKey]; ok {
		n := int64(scalar.ToNumber(v))
		return &n
	}
	return nil
}

// ErrCancelled is returned when the caller's context is cancelled at a
// chunk boundary; partial results are discarded (spec.md §5).
var ErrCancelled = apperr.ErrCancelled

// InMemoryThreshold is the row-count sum above which streaming mode is
// selected over the in-memory engine (spec.md §4.8).
const InMemoryThreshold = 50_000

// DefaultChunkSize bounds peak memory while materializing rows for the
// sliding-window variant.
const DefaultChunkSize = 10_000

// Stage names the progress callback's current phase.
type Stage string

const (
	StageProcessingSource Stage = "Processing source file"
	StageProcessingTarget Stage = "Processing target file"
	StageMatching         Stage = "Matching records"
	StageStreaming        Stage = "Streaming reconciliation"
	StageComplete         Stage = "Complete"
)

// ProgressFunc is invoked at least every 1000 records processed.
type ProgressFunc func(processed, total int, stage Stage)

// Stats tallies verdict outcomes and dropped/errored rows alongside the
// verdict sequence (spec.md §7's dropped-row tally, supplemented here).
type Stats struct {
	Matched         int
	Discrepancy     int
	UnmatchedSource int
	UnmatchedTarget int
	Excluded        int
	Errors          int
}

func (s *Stats) Record(status recon.Status) {
	switch status {
	case recon.StatusMatched:
		s.Matched++
	case recon.StatusDiscrepancy:
		s.Discrepancy++
	case recon.StatusUnmatchedSource:
		s.UnmatchedSource++
	case recon.StatusUnmatchedTarget:
		s.UnmatchedTarget++
	}
}

// Config parameterizes a streaming run: sort keys, tolerance/strategy
// (shared with the in-memory engine), chunk size, and optional partition
// count for key-range parallelism (spec.md §5).
type Config struct {
	SourceSortKey string
	TargetSortKey string
	Tolerance     float64
	ToleranceUnit match.ToleranceUnit
	MatchStrategy recon.Strategy
	ChunkSize     int
	Partitions    int
}

func (c Config) chunkSize() int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return DefaultChunkSize
}

func (c Config) reconConfig() recon.Config {
	return recon.Config{Tolerance: c.Tolerance, ToleranceUnit: c.ToleranceUnit, MatchStrategy: c.MatchStrategy}
}

var numericLike = regexp.MustCompile(`^[0-9.,\-$€£¥₹%\s]+$`)
var nonNumericStrip = regexp.MustCompile(`[^0-9.\-]`)

// sortValue is the projected value used for ordering and comparison: a
// float64 for numeric and date-like keys, or a string otherwise. nullKey
// sorts lowest.
type sortValue struct {
	isNull bool
	isNum  bool
	num    float64
	str    string
}

// ProjectSortKey computes the sort-key projection for enriched[key]
// (spec.md §4.8): date-looking strings become epoch-ms, numeric strings
// become numbers after stripping non-numeric characters, everything else
// is compared as its raw string form. Null projects lowest.
func ProjectSortKey(enriched scalar.Row, key string) sortValue {
	v, ok := enriched[key]
	if !ok || v.IsNull() {
		return sortValue{isNull: true}
	}

	if v.IsDate() {
		return sortValue{isNum: true, num: float64(v.DateMs)}
	}

	if v.IsNumber() {
		return sortValue{isNum: true, num: v.Number}
	}

	s := strings.TrimSpace(scalar.ToString(v, scalar.FormatISODate))
	if ms, ok := scalar.ToDate(scalar.String(s)); ok && looksLikeDate(s) {
		return sortValue{isNum: true, num: float64(ms)}
	}
	if numericLike.MatchString(s) {
		if n, err := strconv.ParseFloat(nonNumericStrip.ReplaceAllString(s, ""), 64); err == nil {
			return sortValue{isNum: true, num: n}
		}
	}
	return sortValue{str: s}
}

var dateLikePattern = regexp.MustCompile(`^\d{1,4}[-/]\d{1,2}[-/]\d{1,4}`)

func looksLikeDate(s string) bool {
	return dateLikePattern.MatchString(s)
}

// compareKeys returns 0 when a and b are within cfg's tolerance window,
// else the sign of a-b (spec.md §4.8). For toleranceUnit=exact this
// reduces to total/lexicographic order.
func compareKeys(a, b sortValue, cfg match.Config) int {
	if a.isNull && b.isNull {
		return 0
	}
	if a.isNull {
		return -1
	}
	if b.isNull {
		return 1
	}

	if a.isNum && b.isNum {
		if cfg.ToleranceUnit != match.UnitExact {
			av, bv := scalar.Number(a.num), scalar.Number(b.num)
			if cfg.ToleranceUnit == match.UnitMinutes || cfg.ToleranceUnit == match.UnitHours || cfg.ToleranceUnit == match.UnitDays {
				av, bv = scalar.Date(int64(a.num)), scalar.Date(int64(b.num))
			}
			if match.ValuesMatch(av, bv, cfg) {
				return 0
			}
		} else if a.num == b.num {
			return 0
		}
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		default:
			return 0
		}
	}

	as, bs := a.str, b.str
	if a.isNum {
		as = strconv.FormatFloat(a.num, 'f', -1, 64)
	}
	if b.isNum {
		bs = strconv.FormatFloat(b.num, 'f', -1, 64)
	}
	return strings.Compare(as, bs)
}

// Row pairs an enriched row with its projected sort key for one side of a
// streaming run.
type Row struct {
	Data scalar.Row
	Key  sortValue
}

// Project builds Rows from enriched rows using the side's configured sort
// key.
func Project(rows []scalar.Row, sortKey string) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row{Data: r, Key: ProjectSortKey(r, sortKey)}
	}
	return out
}

// ShouldStream reports whether streaming mode is selected over in-memory
// matching, per spec.md §4.8's row-count threshold.
func ShouldStream(sourceCount, targetCount int) bool {
	return sourceCount+targetCount > InMemoryThreshold
}

// Run executes the streaming reconciliation: the strict O(1)-space
// two-pointer walk when cfg.MatchStrategy is exact, else the sliding-window
// variant with confidence-based best-of-window selection (spec.md §4.8).
// Source rows must already be sorted by SourceSortKey; target rows by
// TargetSortKey (callers are responsible — no external sort is performed).
func Run(ctx context.Context, source, target []scalar.Row, mappings []recon.ColumnMapping, cfg Config, progress ProgressFunc) ([]recon.Result, Stats, error) {
	sourceRows := Project(source, cfg.SourceSortKey)
	targetRows := Project(target, cfg.TargetSortKey)

	if cfg.MatchStrategy == recon.StrategyExact {
		return runTwoPointer(ctx, sourceRows, targetRows, mappings, cfg, progress)
	}
	return runSlidingWindow(ctx, sourceRows, targetRows, mappings, cfg, progress)
}

func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrCancelled
	default:
		return nil
	}
}

// checkCancelChunk opens a chunk span at the given row offset, checks ctx
// for cancellation, and closes the span before returning.
func checkCancelChunk(ctx context.Context, offset int) error {
	_, span := telemetry.StartChunk(ctx, offset)
	defer span.End()
	return checkCancel(ctx)
}

func reportEvery1000(progress ProgressFunc, processed, total int, stage Stage) {
	if progress == nil {
		return
	}
	if processed%1000 == 0 || processed == total {
		progress(processed, total, stage)
	}
}

// runTwoPointer implements the strict O(1)-space walk: on equality advance
// both pointers by one (so duplicate keys pair up one to one), on less-than emit
// unmatched-source and advance i, on greater-than emit unmatched-target and
// advance j (spec.md §4.8 "True O(1)-space variant").
func runTwoPointer(ctx context.Context, source, target []Row, mappings []recon.ColumnMapping, cfg Config, progress ProgressFunc) ([]recon.Result, Stats, error) {
	var results []recon.Result
	var stats Stats
	matchCfg := match.Config{Tolerance: cfg.Tolerance, ToleranceUnit: cfg.ToleranceUnit}

	i, j := 0, 0
	total := len(source) + len(target)
	processed := 0

	for i < len(source) && j < len(target) {
		if processed%cfg.chunkSize() == 0 {
			if err := checkCancelChunk(ctx, processed); err != nil {
				return nil, Stats{}, err
			}
		}

		c := compareKeys(source[i].Key, target[j].Key, matchCfg)
		switch {
		case c == 0:
			confidence, discrepancies := recon.Score(source[i].Data, target[j].Data, mappings, cfg.reconConfig())
			status := recon.StatusMatched
			if len(discrepancies) > 0 {
				status = recon.StatusDiscrepancy
			}
			conf := confidence
			results = append(results, recon.Result{
				ID:         uuid.NewString(),
				SourceRow:  source[i].Data, TargetRow: target[j].Data,
				Status:     status, Confidence: &conf, Discrepancies: discrepancies,
				SourceLine: lineOf(source[i].Data), TargetLine: lineOf(target[j].Data),
			})
			stats.Record(status)
			i++
			j++
		case c < 0:
			results = append(results, recon.Result{ID: uuid.NewString(), SourceRow: source[i].Data, Status: recon.StatusUnmatchedSource, SourceLine: lineOf(source[i].Data)})
			stats.Record(recon.StatusUnmatchedSource)
			i++
		default:
			results = append(results, recon.Result{ID: uuid.NewString(), TargetRow: target[j].Data, Status: recon.StatusUnmatchedTarget, TargetLine: lineOf(target[j].Data)})
			stats.Record(recon.StatusUnmatchedTarget)
			j++
		}

		processed++
		reportEvery1000(progress, processed, total, StageStreaming)
	}

	for ; i < len(source); i++ {
		results = append(results, recon.Result{ID: uuid.NewString(), SourceRow: source[i].Data, Status: recon.StatusUnmatchedSource, SourceLine: lineOf(source[i].Data)})
		stats.Record(recon.StatusUnmatchedSource)
	}
	for ; j < len(target); j++ {
		results = append(results, recon.Result{ID: uuid.NewString(), TargetRow: target[j].Data, Status: recon.StatusUnmatchedTarget, TargetLine: lineOf(target[j].Data)})
		stats.Record(recon.StatusUnmatchedTarget)
	}

	if progress != nil {
		progress(total, total, StageComplete)
	}

	return results, stats, nil
}

// runSlidingWindow implements the canonical sliding-window scan (spec.md
// §4.8): the target window advances past entries too old to match any
// future source; within the window, the best-by-confidence candidate above
// 0.3 is claimed.
func runSlidingWindow(ctx context.Context, source, target []Row, mappings []recon.ColumnMapping, cfg Config, progress ProgressFunc) ([]recon.Result, Stats, error) {
	var results []recon.Result
	var stats Stats
	matchCfg := match.Config{Tolerance: cfg.Tolerance, ToleranceUnit: cfg.ToleranceUnit}

	matchedTarget := make(map[int]bool, len(target))
	j := 0
	total := len(source) + len(target)

	for i := range source {
		if i%cfg.chunkSize() == 0 {
			if err := checkCancelChunk(ctx, i); err != nil {
				return nil, Stats{}, err
			}
		}

		s := source[i]
		for j < len(target) && !matchedTarget[j] && compareKeys(s.Key, target[j].Key, matchCfg) > 0 {
			j++
		}

		bestK := -1
		bestConfidence := 0.0
		var bestDiscrepancies []string

		for k := j; k < len(target); k++ {
			if matchedTarget[k] {
				continue
			}
			c := compareKeys(s.Key, target[k].Key, matchCfg)
			if c < 0 {
				break
			}
			if c == 0 {
				confidence, discrepancies := recon.Score(s.Data, target[k].Data, mappings, cfg.reconConfig())
				if confidence > bestConfidence {
					bestConfidence = confidence
					bestK = k
					bestDiscrepancies = discrepancies
				}
			}
		}

		if bestConfidence > 0.3 {
			status := recon.StatusMatched
			if len(bestDiscrepancies) > 0 {
				status = recon.StatusDiscrepancy
			}
			conf := bestConfidence
			results = append(results, recon.Result{
				ID:         uuid.NewString(),
				SourceRow:  s.Data, TargetRow: target[bestK].Data,
				Status:     status, Confidence: &conf, Discrepancies: bestDiscrepancies,
				SourceLine: lineOf(s.Data), TargetLine: lineOf(target[bestK].Data),
			})
			stats.Record(status)
			matchedTarget[bestK] = true
		} else {
			results = append(results, recon.Result{ID: uuid.NewString(), SourceRow: s.Data, Status: recon.StatusUnmatchedSource, SourceLine: lineOf(s.Data)})
			stats.Record(recon.StatusUnmatchedSource)
		}

		reportEvery1000(progress, i+1, total, StageStreaming)
	}

	for k := range target {
		if !matchedTarget[k] {
			results = append(results, recon.Result{ID: uuid.NewString(), TargetRow: target[k].Data, Status: recon.StatusUnmatchedTarget, TargetLine: lineOf(target[k].Data)})
			stats.Record(recon.StatusUnmatchedTarget)
		}
	}

	if progress != nil {
		progress(total, total, StageComplete)
	}

	return results, stats, nil
}

// Partition splits rows into n contiguous key-range partitions, preserving
// order within each; the caller is responsible for running each partition's
// scan independently and concatenating verdicts in key order (spec.md §5).
func Partition(rows []Row, n int) [][]Row {
	if n <= 1 || len(rows) == 0 {
		return [][]Row{rows}
	}

	size := (len(rows) + n - 1) / n
	partitions := make([][]Row, 0, n)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		partitions = append(partitions, rows[start:end])
	}
	return partitions
}

// RunPartitioned scans each of cfg.Partitions key-range partitions on its
// own goroutine and concatenates verdicts in partition (key) order
// (spec.md §5's "partitioning the sorted streams by key ranges").
func RunPartitioned(ctx context.Context, source, target []scalar.Row, mappings []recon.ColumnMapping, cfg Config, progress ProgressFunc) ([]recon.Result, Stats, error) {
	n := cfg.Partitions
	if n <= 1 {
		return Run(ctx, source, target, mappings, cfg, progress)
	}

	sourceRows := Project(source, cfg.SourceSortKey)
	targetRows := Project(target, cfg.TargetSortKey)

	sourceParts := Partition(sourceRows, n)
	targetParts := assignTargetPartitions(sourceParts, targetRows, match.Config{Tolerance: cfg.Tolerance, ToleranceUnit: cfg.ToleranceUnit})

	type partitionOutcome struct {
		results []recon.Result
		stats   Stats
		err     error
	}
	outcomes := make([]partitionOutcome, len(sourceParts))

	done := make(chan int, len(sourceParts))
	for p := range sourceParts {
		go func(p int) {
			sourceData := toScalarRows(sourceParts[p])
			targetData := toScalarRows(targetParts[p])
			results, stats, err := Run(ctx, sourceData, targetData, mappings, cfg, nil)
			outcomes[p] = partitionOutcome{results: results, stats: stats, err: err}
			done <- p
		}(p)
	}
	for range sourceParts {
		<-done
	}

	var allResults []recon.Result
	var total Stats
	for _, o := range outcomes {
		if o.err != nil {
			return nil, Stats{}, o.err
		}
		allResults = append(allResults, o.results...)
		total.Matched += o.stats.Matched
		total.Discrepancy += o.stats.Discrepancy
		total.UnmatchedSource += o.stats.UnmatchedSource
		total.UnmatchedTarget += o.stats.UnmatchedTarget
		total.Excluded += o.stats.Excluded
		total.Errors += o.stats.Errors
	}

	if progress != nil {
		progress(len(source)+len(target), len(source)+len(target), StageComplete)
	}

	return allResults, total, nil
}

func toScalarRows(rows []Row) []scalar.Row {
	out := make([]scalar.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Data
	}
	return out
}

// assignTargetPartitions buckets target rows to the source partition whose
// key range they fall within, by boundary comparison against each source
// partition's last key; the final partition absorbs any remainder.
func assignTargetPartitions(sourceParts [][]Row, targetRows []Row, cfg match.Config) [][]Row {
	boundaries := make([]sortValue, len(sourceParts))
	for i, part := range sourceParts {
		if len(part) > 0 {
			boundaries[i] = part[len(part)-1].Key
		}
	}

	targetParts := make([][]Row, len(sourceParts))
	for _, t := range targetRows {
		idx := sort.Search(len(boundaries), func(i int) bool {
			return compareKeys(t.Key, boundaries[i], cfg) <= 0
		})
		if idx >= len(targetParts) {
			idx = len(targetParts) - 1
		}
		targetParts[idx] = append(targetParts[idx], t)
	}
	return targetParts
}
