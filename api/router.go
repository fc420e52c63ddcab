// Package api exposes the analyzer over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"gitlabanalyzer/analyzer"
	"gitlabanalyzer/logger"
)

// HashedTokenHeader carries the hashed credential of every project request.
const HashedTokenHeader = "X-Hashed-Token"

const requestTimeout = 60 * time.Second

// Handler is the container for API dependencies.
type Handler struct {
	analyzer   *analyzer.Analyzer
	defaultURL string
	log        *zap.Logger
}

// NewRouter creates a chi router with all API routes. defaultURL is used when a
// session request names no GitLab instance.
func NewRouter(a *analyzer.Analyzer, defaultURL string) http.Handler {
	h := &Handler{
		analyzer:   a,
		defaultURL: defaultURL,
		log:        logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", h.healthCheck)
	r.Post("/sessions", h.addSession)

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.projectList)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/sync", h.syncProject)
			r.Get("/sync", h.syncState)
			r.Get("/members", h.members)
			r.Get("/users", h.users)
			r.Get("/commits/trunk", h.trunkCommits)
			r.Get("/commits/by-user", h.commitsByUser)
			r.Get("/merge-requests", h.mergeRequests)
			r.Get("/merge-requests/by-user", h.mergeRequestsByUser)
			r.Get("/merge-requests/{iid}", h.mergeRequest)
			r.Get("/code-diffs/{diffID}", h.codeDiff)
			r.Get("/issues", h.issues)
			r.Get("/comments", h.comments)
			r.Get("/comments/by-user", h.commentsByUser)
		})
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		h.log.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
