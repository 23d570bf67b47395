package config

import "github.com/kelseyhightower/envconfig"

// Rates selects and seeds the currency-rate provider a run's
// currency_conversion steps read from.
type Rates struct {
	// Source is "static" (seeded from StaticPairs) or "postgres" (reads the
	// currency_rates table through the Database connection).
	Source string `default:"static"`

	// StaticPairs is a comma-separated "FROM:TO:RATE" list, e.g.
	// "USD:EUR:0.92,EUR:USD:1.087".
	StaticPairs []string `split_words:"true" default:""`
}

func NewRates() Rates {
	var r Rates
	envconfig.MustProcess("Rates", &r)
	return r
}
