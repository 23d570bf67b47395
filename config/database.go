package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Database holds the connection settings for the optional Postgres-backed
// currency-rate table (spec.md §6 "Currency-rate provider"). A batch run
// that only uses static or no currency conversion never opens this
// connection.
type Database struct {
	Driver   string `default:"pgx"`
	Host     string `default:"127.0.0.1"`
	Port     string `default:"5432"`
	Name     string `split_words:"true" default:"reconcile"`
	User     string `default:"reconcile"`
	Password string `default:""`
	SSLMode  string `split_words:"true" default:"disable"`

	MaxOpenConns int `split_words:"true" default:"10"`
	MaxIdleConns int `split_words:"true" default:"5"`
}

func DataStore() Database {
	var d Database
	envconfig.MustProcess("Db", &d)
	return d
}

// DSN renders the libpq-style connection string pgx and sqlx both accept.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}
