package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/nochance19900208-source/Real-Estate/pkg/config"
)

// CORS returns middleware applying the configured origin policy. Development
// allows any origin so the frontend dev server can hit the API directly.
func CORS(appCfg config.AppConfig, corsCfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := corsCfg.AllowedOrigins
	if appCfg.IsDev() {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
