package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

func RegisterRoutes(r chi.Router, h *Handler, limiter *RateLimiter) {
	r.Get("/ping", h.Ping)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Post("/autoreply/evaluate", h.Evaluate)
		r.Post("/autoreply/match", h.Match)

		r.Get("/tenants/{tenantID}/quick-replies", h.ListQuickReplies)
		r.Post("/tenants/{tenantID}/quick-replies", h.CreateQuickReply)
		r.Patch("/quick-replies/{id}", h.UpdateQuickReply)
		r.Post("/quick-replies/{id}/usage", h.RecordUsage)
	})
}

// NewRouter builds the full HTTP stack: request ids, access logs, panic
// recovery, CORS and the API routes.
func NewRouter(h *Handler, limiter *RateLimiter, allowedOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}))

	RegisterRoutes(r, h, limiter)
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.New().String()
			}
			w.Header().Set(requestIDHeader, reqID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
