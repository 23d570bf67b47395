package config

import "github.com/kelseyhightower/envconfig"

type Cors struct {
	AllowedOrigins   []string `split_words:"true" default:"*"`
	AllowedMethods   []string `split_words:"true" default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `split_words:"true" default:"*"`
	AllowCredentials bool     `split_words:"true" default:"false"`
}

func NewCors() Cors {
	var c Cors
	envconfig.MustProcess("Cors", &c)
	return c
}
