// Package recon implements the in-memory reconciliation engine: scoring
// every source/target pair under a chosen match strategy and emitting the
// canonical verdict sequence (spec.md §4.7, §4.9).
package recon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/gmhafiz/reconcile/internal/domain/match"
	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

// Strategy is the closed set of matching strategies spec.md §4.7 names.
type Strategy string

const (
	StrategyExact Strategy = "exact"
	StrategyFuzzy Strategy = "fuzzy"
	StrategySmart Strategy = "smart"
)

// MatchKind tags how one column mapping is compared.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchFuzzy   MatchKind = "fuzzy"
	MatchFormula MatchKind = "formula"
)

// FormulaKind is the closed set of mapping-level formula descriptors.
type FormulaKind string

const (
	FormulaDebitCreditToAmount FormulaKind = "debit_credit_to_amount"
	FormulaAmountToDebitCredit FormulaKind = "amount_to_debit_credit"
	FormulaCustom              FormulaKind = "custom"
)

// Formula names the columns a mapping-level formula descriptor reads from
// and writes to.
type Formula struct {
	Kind          FormulaKind
	DebitColumn   string
	CreditColumn  string
	AmountColumn  string
}

// ColumnMapping binds a source selector (one or more columns, concatenated
// with single spaces when more than one) to a single target column.
type ColumnMapping struct {
	ID        string
	Source    []string
	Target    string
	Kind      MatchKind
	Tolerance *match.Config
	Formula   *Formula
}

// Config is the reconciliation-wide setup: sort keys are consumed by the
// streaming engine (package stream); this package only needs ToleranceUnit/
// Tolerance defaults and the match strategy.
type Config struct {
	Tolerance     float64
	ToleranceUnit match.ToleranceUnit
	MatchStrategy Strategy
}

func (c Config) defaultMatchConfig() match.Config {
	return match.Config{Tolerance: c.Tolerance, ToleranceUnit: c.ToleranceUnit}
}

// Status is the closed set of verdict outcomes.
type Status string

const (
	StatusMatched         Status = "matched"
	StatusDiscrepancy     Status = "discrepancy"
	StatusUnmatchedSource Status = "unmatched-source"
	StatusUnmatchedTarget Status = "unmatched-target"
)

// Result is one reconciliation verdict (spec.md §4.9, C9).
type Result struct {
	ID            string
	SourceRow     scalar.Row
	TargetRow     scalar.Row
	Status        Status
	Confidence    *float64
	Discrepancies []string
	SourceLine    *int64
	TargetLine    *int64
	Amount        *float64
}

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

// amountOf finds the first mapping whose first source column name or target
// column name contains "amount" and returns that mapping's source field's
// numeric value from row (row is the source-side row; source and target
// column names may differ, e.g. Amount -> Value).
func amountOf(row scalar.Row, mappings []ColumnMapping) *float64 {
	if row == nil {
		return nil
	}
	for _, m := range mappings {
		if len(m.Source) == 0 {
			continue
		}
		if !strings.Contains(strings.ToLower(m.Source[0]), "amount") && !strings.Contains(strings.ToLower(m.Target), "amount") {
			continue
		}
		if v, ok := row[m.Source[0]]; ok {
			n := scalar.ToNumber(v)
			return &n
		}
	}
	return nil
}

// formulaValue derives the comparable amount scalar.Value a mapping-level
// Formula descriptor describes: debit_credit_to_amount combines two split
// columns into a signed total (credit minus debit); amount_to_debit_credit
// reads the single combined column so it can be compared against a
// debit/credit pair on the other side.
func formulaValue(row scalar.Row, f *Formula) scalar.Value {
	switch f.Kind {
	case FormulaDebitCreditToAmount:
		debit := scalar.ToNumber(row[f.DebitColumn])
		credit := scalar.ToNumber(row[f.CreditColumn])
		return scalar.Number(credit - debit)
	case FormulaAmountToDebitCredit:
		return scalar.Number(scalar.ToNumber(row[f.AmountColumn]))
	default:
		return scalar.Null()
	}
}

func sourceValue(row scalar.Row, selector []string) scalar.Value {
	if len(selector) == 1 {
		return row[selector[0]]
	}
	parts := make([]string, 0, len(selector))
	for _, col := range selector {
		parts = append(parts, scalar.ToString(row[col], scalar.FormatISODate))
	}
	return scalar.String(strings.Join(parts, " "))
}

// candidate is a scored source/target pair awaiting strategy-based
// admission.
type candidate struct {
	targetIdx     int
	confidence    float64
	discrepancies []string
}

// Score evaluates every mapping for one source/target pair and returns the
// weighted confidence plus the list of human-readable discrepancies. The
// streaming engine (package stream) uses this directly to score candidates
// within its sliding window without running the full in-memory matcher.
func Score(sourceRow, targetRow scalar.Row, mappings []ColumnMapping, cfg Config) (float64, []string) {
	matchMappings := make([]match.Mapping, 0, len(mappings))
	var discrepancies []string

	for _, m := range mappings {
		var sv scalar.Value
		if m.Formula != nil {
			sv = formulaValue(sourceRow, m.Formula)
		} else {
			sv = sourceValue(sourceRow, m.Source)
		}
		tv := targetRow[m.Target]

		cfgForMapping := cfg.defaultMatchConfig()
		if m.Tolerance != nil {
			cfgForMapping = *m.Tolerance
		}

		weight := 1
		if cfg.MatchStrategy != StrategyExact {
			weight = match.FieldWeight(m.Target)
		}

		matchMappings = append(matchMappings, match.Mapping{Source: sv, Target: tv, Weight: weight})

		if !match.ValuesMatch(sv, tv, cfgForMapping) {
			discrepancies = append(discrepancies, fmt.Sprintf("%s: %s ≠ %s",
				m.Target,
				scalar.ToString(sv, scalar.FormatISODate),
				scalar.ToString(tv, scalar.FormatISODate)))
		}
	}

	return match.Confidence(matchMappings, cfg.defaultMatchConfig()), discrepancies
}

// TargetKey produces the deduplication identity for a target row: the first
// present of id/transaction_id/reference/ref_number (case-insensitive), else
// a stable content hash of the row's sorted-key JSON projection (spec.md
// §4.7, §9).
func TargetKey(row scalar.Row) string {
	idLike := []string{"id", "transaction_id", "reference", "ref_number"}
	lowerToActual := make(map[string]string, len(row))
	for k := range row {
		lowerToActual[strings.ToLower(k)] = k
	}
	for _, candidateKey := range idLike {
		if actual, ok := lowerToActual[candidateKey]; ok {
			if v := row[actual]; !v.IsNull() {
				return scalar.ToString(v, scalar.FormatISODate)
			}
		}
	}
	return contentHash(row)
}

func contentHash(row scalar.Row) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(scalar.ToString(row[k], scalar.FormatISODate))
		sb.WriteByte(';')
	}

	h := xxhash.Sum64String(sb.String())
	return fmt.Sprintf("%016x", h)
}

// Run matches every source row against every target row in memory,
// admitting candidates with confidence > 0.3 and selecting per
// cfg.MatchStrategy (spec.md §4.7): exact keeps the single best candidate
// with confidence > 0.8, fuzzy keeps the top 3, smart prefers any > 0.8 else the top 1. Target
// rows never claimed become unmatched-target after all sources are
// processed; source rows with zero surviving candidates become
// unmatched-source.
func Run(sourceRows, targetRows []scalar.Row, mappings []ColumnMapping, cfg Config) []Result {
	claimed := make(map[string]bool, len(targetRows))
	targetKeys := make([]string, len(targetRows))
	for i, row := range targetRows {
		targetKeys[i] = TargetKey(row)
	}

	var results []Result

	for _, sourceRow := range sourceRows {
		var candidates []candidate
		for ti, targetRow := range targetRows {
			if claimed[targetKeys[ti]] {
				continue
			}
			confidence, discrepancies := Score(sourceRow, targetRow, mappings, cfg)
			if confidence > 0.3 {
				candidates = append(candidates, candidate{targetIdx: ti, confidence: confidence, discrepancies: discrepancies})
			}
		}

		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].confidence > candidates[j].confidence })

		selected := selectCandidates(candidates, cfg.MatchStrategy)

		if len(selected) == 0 {
			results = append(results, Result{ID: uuid.NewString(), Status: StatusUnmatchedSource, SourceRow: sourceRow, SourceLine: lineOf(sourceRow)})
			continue
		}

		for _, c := range selected {
			targetRow := targetRows[c.targetIdx]
			claimed[targetKeys[c.targetIdx]] = true

			status := StatusMatched
			if len(c.discrepancies) > 0 {
				status = StatusDiscrepancy
			}

			confidence := c.confidence
			results = append(results, Result{
				ID:            uuid.NewString(),
				SourceRow:     sourceRow,
				TargetRow:     targetRow,
				Status:        status,
				Confidence:    &confidence,
				Discrepancies: c.discrepancies,
				SourceLine:    lineOf(sourceRow),
				TargetLine:    lineOf(targetRow),
				Amount:        amountOf(sourceRow, mappings),
			})
		}
	}

	for ti, targetRow := range targetRows {
		if !claimed[targetKeys[ti]] {
			results = append(results, Result{ID: uuid.NewString(), Status: StatusUnmatchedTarget, TargetRow: targetRow, TargetLine: lineOf(targetRow)})
		}
	}

	return results
}

func selectCandidates(candidates []candidate, strategy Strategy) []candidate {
	switch strategy {
	case StrategyExact:
		var kept []candidate
		for _, c := range candidates {
			if c.confidence > 0.8 {
				kept = append(kept, c)
			}
		}
		if len(kept) > 1 {
			kept = kept[:1]
		}
		return kept
	case StrategyFuzzy:
		if len(candidates) > 3 {
			return candidates[:3]
		}
		return candidates
	case StrategySmart:
		var strong []candidate
		for _, c := range candidates {
			if c.confidence > 0.8 {
				strong = append(strong, c)
			}
		}
		if len(strong) > 0 {
			return strong[:1]
		}
		if len(candidates) > 0 {
			return candidates[:1]
		}
		return nil
	}
	if len(candidates) > 0 {
		return candidates[:1]
	}
	return nil
}
