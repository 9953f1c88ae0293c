package routing

import (
	"io/fs"
	"net/http"

	"coffeeapi/internal/handlers"
	"coffeeapi/internal/middleware"

	"github.com/rs/zerolog"
)

// Config holds the configuration needed for setting up routes
type Config struct {
	Handlers  *handlers.Handler
	ImagesDir string
	RateLimit *middleware.RateLimitConfig
	Logger    zerolog.Logger
}

// SetupRouter creates and configures the HTTP router with all routes and middleware
func SetupRouter(cfg Config) http.Handler {
	h := cfg.Handlers
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.HandleHome)

	// Catalog reads
	mux.HandleFunc("GET /coffees", h.HandleCoffeeList)
	mux.HandleFunc("GET /coffee/{id}", h.HandleCoffeeGet)
	mux.HandleFunc("GET /coffee/name/{name}", h.HandleCoffeeByName)
	mux.HandleFunc("GET /coffee/desc/{desc}", h.HandleCoffeeSearch)

	// Secret-protected mutations
	mux.HandleFunc("PATCH /coffee/{id}", h.HandleCoffeeUpdate)
	mux.HandleFunc("POST /add-coffee", h.HandleCoffeeCreate)

	if cfg.ImagesDir != "" {
		images := http.FileServer(filesOnly{http.Dir(cfg.ImagesDir)})
		mux.Handle("GET /images/", http.StripPrefix("/images/", images))
	}

	// Catch-all 404 handler - must be last, catches any unmatched routes
	mux.HandleFunc("/", h.HandleNotFound)

	// Apply middleware in order (outermost last)
	var handler http.Handler = mux
	handler = middleware.LimitBodyMiddleware(handler)
	if cfg.RateLimit != nil {
		handler = middleware.RateLimitMiddleware(cfg.RateLimit)(handler)
	}
	handler = middleware.SecurityHeadersMiddleware(handler)
	handler = middleware.LoggingMiddleware(cfg.Logger)(handler)

	return handler
}

// filesOnly hides directories so the file server never renders a listing
type filesOnly struct {
	root http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}
