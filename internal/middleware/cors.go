package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/gmhafiz/reconcile/config"
)

// Cors builds the CORS-handling middleware from config, mirroring the
// teacher's config-driven API/Cors setup.
func Cors(cfg config.Cors) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
	})
	return c.Handler
}
