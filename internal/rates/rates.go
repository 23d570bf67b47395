// Package rates implements the currency-rate provider the transformation
// engine's currency_conversion step reads from (spec.md §6 "Currency-rate
// provider"). The core never depends on this package directly — it only
// sees transform.RateProvider.
package rates

import (
	"context"
	"strings"
	"sync"
)

// Provider is the currency-rate collaborator spec.md §6 names: same shape
// as transform.RateProvider, named here so callers outside the transform
// package (server, cmd) can depend on an interface instead of a concrete
// type.
type Provider interface {
	Rate(from, to string) (float64, bool)
}

// StaticProvider is an in-memory rate table keyed "FROM->TO" — the test
// double and the smallest real implementation of the injected Provider
// collaborator spec.md §6 requires.
type StaticProvider struct {
	mu    sync.RWMutex
	rates map[string]float64
}

// NewStaticProvider builds a StaticProvider seeded with rates, keyed
// "FROM->TO" (case-insensitive currency codes).
func NewStaticProvider(seed map[string]float64) *StaticProvider {
	p := &StaticProvider{rates: make(map[string]float64, len(seed))}
	for k, v := range seed {
		p.Set(k, v)
	}
	return p
}

func normalizeKey(from, to string) string {
	return strings.ToUpper(from) + "->" + strings.ToUpper(to)
}

// Set records (or overwrites) a from->to rate.
func (p *StaticProvider) Set(pair string, rate float64) {
	parts := strings.SplitN(pair, "->", 2)
	if len(parts) != 2 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates[normalizeKey(parts[0], parts[1])] = rate
}

// Rate implements transform.RateProvider: same-currency pairs always
// return 1 without a lookup.
func (p *StaticProvider) Rate(from, to string) (float64, bool) {
	if strings.EqualFold(from, to) {
		return 1, true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	rate, ok := p.rates[normalizeKey(from, to)]
	return rate, ok
}

// RateRow is the row shape queried out of the backing currency_rates table.
type RateRow struct {
	FromCurrency string  `db:"from_currency"`
	ToCurrency   string  `db:"to_currency"`
	Rate         float64 `db:"rate"`
}

// rateStore is the narrow slice of *sqlx.DB the Postgres provider needs;
// satisfied by *sqlx.DB and trivially faked in tests.
type rateStore interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

// PostgresProvider looks up currency rates from a Postgres-backed table,
// following the teacher's sqlx repository pattern (GetContext + $-placeholder
// queries) rather than ad-hoc database/sql calls. Any query error, including
// sql.ErrNoRows, reports the pair as not found.
type PostgresProvider struct {
	db rateStore
}

// NewPostgresProvider wraps a *sqlx.DB (or any rateStore double) as a
// currency-rate provider. The caller owns the connection's lifecycle;
// the batch treats it as a read-only collaborator for its duration
// (spec.md §5 "Shared resources").
func NewPostgresProvider(db rateStore) *PostgresProvider {
	return &PostgresProvider{db: db}
}

const selectRateQuery = `
	SELECT from_currency, to_currency, rate
	FROM currency_rates
	WHERE from_currency = $1 AND to_currency = $2
	ORDER BY effective_at DESC
	LIMIT 1
`

// Rate queries the most recent rate row for from->to. Same-currency pairs
// short-circuit to 1 without touching the database.
func (p *PostgresProvider) Rate(from, to string) (float64, bool) {
	if strings.EqualFold(from, to) {
		return 1, true
	}

	var row RateRow
	err := p.db.GetContext(context.Background(), &row, selectRateQuery, strings.ToUpper(from), strings.ToUpper(to))
	if err != nil {
		return 0, false
	}
	return row.Rate, true
}
