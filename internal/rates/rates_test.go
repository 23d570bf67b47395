package rates

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticProviderSameCurrencyShortCircuits(t *testing.T) {
	p := NewStaticProvider(nil)
	rate, ok := p.Rate("USD", "USD")
	assert.True(t, ok)
	assert.Equal(t, 1.0, rate)
}

func TestStaticProviderLooksUpCaseInsensitive(t *testing.T) {
	p := NewStaticProvider(map[string]float64{"USD->EUR": 0.92})
	rate, ok := p.Rate("usd", "eur")
	assert.True(t, ok)
	assert.Equal(t, 0.92, rate)
}

func TestStaticProviderMissingPairNotOK(t *testing.T) {
	p := NewStaticProvider(nil)
	_, ok := p.Rate("USD", "GBP")
	assert.False(t, ok)
}

type fakeRateStore struct {
	row RateRow
	err error
}

func (f *fakeRateStore) GetContext(_ context.Context, dest any, _ string, _ ...any) error {
	if f.err != nil {
		return f.err
	}
	row := dest.(*RateRow)
	*row = f.row
	return nil
}

func TestPostgresProviderSameCurrencyShortCircuits(t *testing.T) {
	p := NewPostgresProvider(&fakeRateStore{err: sql.ErrNoRows})
	rate, ok := p.Rate("EUR", "EUR")
	assert.True(t, ok)
	assert.Equal(t, 1.0, rate)
}

func TestPostgresProviderReturnsRowRate(t *testing.T) {
	p := NewPostgresProvider(&fakeRateStore{row: RateRow{FromCurrency: "USD", ToCurrency: "EUR", Rate: 0.91}})
	rate, ok := p.Rate("USD", "EUR")
	assert.True(t, ok)
	assert.Equal(t, 0.91, rate)
}

func TestPostgresProviderNoRowsNotOK(t *testing.T) {
	p := NewPostgresProvider(&fakeRateStore{err: sql.ErrNoRows})
	_, ok := p.Rate("USD", "JPY")
	assert.False(t, ok)
}
