package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/darkodi/url-diet/internal/errors"
	"github.com/darkodi/url-diet/internal/logger"
	"github.com/darkodi/url-diet/internal/middleware"
	"github.com/darkodi/url-diet/internal/model"
	"github.com/darkodi/url-diet/internal/service"
)

const (
	apiPrefix    = "/api/"
	shortenPath  = "/api/shorten"
	maxBodyBytes = 64 << 10
	healthWait   = 2 * time.Second
)

// Shortener creates short links
type Shortener interface {
	Shorten(ctx context.Context, longURL, clientID string) (*model.ShortenResponse, error)
}

// Resolver resolves keys to long URLs
type Resolver interface {
	Resolve(ctx context.Context, key string, info service.RequestInfo) (string, error)
}

// StatsReader reads link metadata
type StatsReader interface {
	Link(ctx context.Context, key string) (*model.Link, error)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// LinkHandler handles HTTP requests for link operations
type LinkHandler struct {
	shortener      Shortener
	resolver       Resolver
	stats          StatsReader
	checks         map[string]HealthCheck
	clientIPHeader string
	log            *logger.Logger
}

// NewLinkHandler creates a new handler instance. clientIPHeader names the
// trusted proxy header carrying the client address.
func NewLinkHandler(
	shortener Shortener,
	resolver Resolver,
	stats StatsReader,
	clientIPHeader string,
	log *logger.Logger,
) *LinkHandler {
	return &LinkHandler{
		shortener:      shortener,
		resolver:       resolver,
		stats:          stats,
		checks:         make(map[string]HealthCheck),
		clientIPHeader: clientIPHeader,
		log:            log,
	}
}

// AddHealthCheck registers a dependency probed by the health endpoint
func (h *LinkHandler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// ============ HANDLERS ============

// HandlePreflight answers CORS preflight requests. The CORS middleware has
// already set the headers.
// OPTIONS /api/shorten
func (h *LinkHandler) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// HandleShorten creates a new short URL
// POST /api/shorten
func (h *LinkHandler) HandleShorten(w http.ResponseWriter, r *http.Request) {
	req, err := decodeShortenRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		errors.InvalidJSON().WriteJSON(w)
		return
	}

	clientIP := middleware.ClientIP(r, h.clientIPHeader)
	resp, err := h.shortener.Shorten(r.Context(), req.URL(), clientIP)
	if err != nil {
		switch {
		case stderrors.Is(err, service.ErrInvalidInput):
			errors.InvalidURL().WriteJSON(w)
		case stderrors.Is(err, service.ErrRateLimited):
			errors.RateLimitExceeded().WriteJSON(w)
		default:
			h.log.ErrorContext(r.Context(), "shorten failed", "error", err.Error())
			errors.Internal().WithCause(err).WriteJSON(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleRedirect redirects to the original URL
// GET /{key}
func (h *LinkHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/" || path == strings.TrimSuffix(apiPrefix, "/") || strings.HasPrefix(path, apiPrefix) {
		errors.NotFound().WriteText(w)
		return
	}

	key := strings.TrimPrefix(path, "/")
	longURL, err := h.resolver.Resolve(r.Context(), key, service.RequestInfo{
		ClientIP:  middleware.ClientIP(r, h.clientIPHeader),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	})
	if err != nil {
		switch {
		case stderrors.Is(err, service.ErrInvalidInput):
			errors.MissingKey().WriteText(w)
		case stderrors.Is(err, service.ErrNotFound):
			errors.LinkNotFound().WriteText(w)
		default:
			h.log.ErrorContext(r.Context(), "redirect failed", "key", key, "error", err.Error())
			errors.Internal().WithCause(err).WriteText(w)
		}
		return
	}

	// Location is sent verbatim, no body
	w.Header().Set("Location", longURL)
	w.WriteHeader(http.StatusFound)
}

// HandleStats returns metadata and click counters for a link
// GET /api/links/{key}
func (h *LinkHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	link, err := h.stats.Link(r.Context(), key)
	if err != nil {
		switch {
		case stderrors.Is(err, service.ErrInvalidInput):
			errors.MissingKey().WriteJSON(w)
		case stderrors.Is(err, service.ErrNotFound):
			errors.LinkNotFound().WriteJSON(w)
		default:
			h.log.ErrorContext(r.Context(), "stats failed", "key", key, "error", err.Error())
			errors.Internal().WithCause(err).WriteJSON(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// HandleHealth returns service health status
// GET /api/health
func (h *LinkHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthWait)
	defer cancel()

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.WarnContext(ctx, "health check failed", "dependency", name, "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"failed": name,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// HandleNotFound answers every unrouted path and method
func (h *LinkHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	errors.NotFound().WriteText(w)
}

// ============ ROUTER SETUP ============

// Routes configures all HTTP routes
func (h *LinkHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(h.HandleNotFound)
	r.MethodNotAllowed(h.HandleNotFound)

	// Specific routes first
	r.Options(shortenPath, h.HandlePreflight)
	r.Post(shortenPath, h.HandleShorten)
	r.Get("/api/links/{key}", h.HandleStats)
	r.Get("/api/health", h.HandleHealth)

	// Catch-all for redirects
	r.Get("/*", h.HandleRedirect)

	return r
}

var errTrailingData = stderrors.New("trailing data after request body")

// decodeShortenRequest reads exactly one JSON value. Any well-formed value
// is accepted; one that is not an object simply carries no URL.
func decodeShortenRequest(body io.Reader) (model.ShortenRequest, error) {
	var req model.ShortenRequest

	dec := json.NewDecoder(body)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return req, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return req, errTrailingData
	}

	if err := json.Unmarshal(raw, &req); err != nil {
		return model.ShortenRequest{}, nil
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
