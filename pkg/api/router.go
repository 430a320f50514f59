package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	log "github.com/sirupsen/logrus"
)

// RouterOptions controls the protections wrapped around the routes.
type RouterOptions struct {
	// CSRFKey enables CSRF checks on form posts when it is 32 bytes long.
	CSRFKey       string
	SecureCookies bool
}

// GetRouter initialises a new http router and applies all routes
func GetRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if opts.CSRFKey != "" {
		if !opts.SecureCookies {
			r.Use(plaintextHTTP)
		}
		r.Use(csrf.Protect([]byte(opts.CSRFKey),
			csrf.Secure(opts.SecureCookies),
			csrf.Path("/"),
			csrf.FieldName(csrfField),
		))
	}
	return applyRoutes(r, h)
}

func applyRoutes(r chi.Router, h *Handler) chi.Router {
	r.Get("/healthz", h.getHealth)
	r.Get("/metrics", h.getMetrics)

	r.Route("/", func(r chi.Router) {
		r.Get("/", h.getIndex)
		r.Post("/login", h.postLogin)
		r.Post("/logout", h.postLogout)
		r.Post("/filter", h.postFilter)
		r.Post("/refresh", h.postRefresh)
		r.Post("/upload", h.postUpload)
		r.Get("/export.xlsx", h.getExport)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.getDashboard)
		r.Get("/uploads", h.getUploads)
	})

	return r
}

// plaintextHTTP marks requests as served over plain HTTP so the CSRF
// middleware skips its HTTPS referer checks.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}
