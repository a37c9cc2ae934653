package publish

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/calloway/fixport/internal/apperr"
	"github.com/calloway/fixport/internal/schema"
)

// DefaultIdentityHeader is where the auth proxy places the caller identity.
const DefaultIdentityHeader = "X-Auth-Request-Email"

// Config controls the publish endpoint's auth and CORS policy.
type Config struct {
	// Path is the mount path of the endpoint, echoed in the status payload.
	Path string
	// RequireIdentity rejects requests without an identity header. Off in
	// dev deployments that run without an auth proxy.
	RequireIdentity bool
	// IdentityHeader names the trusted header carrying the caller's
	// identity. Defaults to DefaultIdentityHeader.
	IdentityHeader string
	// AllowedUsers restricts publishing to these identities. Empty means
	// any authenticated identity may publish.
	AllowedUsers []string
	// AllowedOrigins restricts browser callers. Empty reflects any Origin.
	AllowedOrigins []string
}

// Handler exposes the publish service over HTTP.
type Handler struct {
	svc    *Service
	cfg    Config
	logger *slog.Logger
}

// NewHandler creates the publish HTTP handler.
func NewHandler(svc *Service, cfg Config, logger *slog.Logger) *Handler {
	if cfg.IdentityHeader == "" {
		cfg.IdentityHeader = DefaultIdentityHeader
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, cfg: cfg, logger: logger}
}

// Routes returns the router for the publish endpoint.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.cors)
	r.Get("/", h.Status)
	r.Post("/", h.Publish)
	r.Options("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func (h *Handler) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			// The response varies on Origin whether or not it is allowed.
			w.Header().Set("Vary", "Origin")
			if h.originAllowed(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+h.cfg.IdentityHeader)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) originAllowed(origin string) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// identity resolves the caller identity, applying the auth policy.
// A nil error with an empty string means anonymous access is allowed.
func (h *Handler) identity(r *http.Request) (string, int) {
	id := strings.TrimSpace(r.Header.Get(h.cfg.IdentityHeader))
	if id == "" {
		if h.cfg.RequireIdentity {
			return "", http.StatusUnauthorized
		}
		return "", 0
	}
	if len(h.cfg.AllowedUsers) == 0 {
		return id, 0
	}
	for _, allowed := range h.cfg.AllowedUsers {
		if strings.EqualFold(allowed, id) {
			return id, 0
		}
	}
	return "", http.StatusForbidden
}

// Status handles GET on the publish path. Always 200 and side-effect free:
// reports the endpoint configuration and echoes the identity seen through
// the proxy header so callers can check their setup before publishing.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":         "fixport-publish",
		"path":            h.cfg.Path,
		"requireIdentity": h.cfg.RequireIdentity,
		"restricted":      len(h.cfg.AllowedUsers) > 0,
		"identity":        strings.TrimSpace(r.Header.Get(h.cfg.IdentityHeader)),
	})
}

// PublishRequest is the POST body accepted by the publish endpoint.
type PublishRequest struct {
	Fix           json.RawMessage `json:"fix"`
	Source        string          `json:"source,omitempty"`
	RequestedAt   string          `json:"requestedAt,omitempty"`
	CommitMessage string          `json:"commitMessage,omitempty"`
}

// Publish handles POST on the publish path. Error mapping: 400 for bad
// request shape, 401/403 from the auth policy, 422 for validation
// failures, 409 for a concurrent-write conflict, 500 otherwise. A 500 with
// code "indeterminate" means the write outcome is unknown and the caller
// should re-read before retrying.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	id, code := h.identity(r)
	if code != 0 {
		writeError(w, code, authMessage(code), "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}
	if len(req.Fix) == 0 {
		writeError(w, http.StatusBadRequest, "fix is required", "")
		return
	}

	res, err := h.svc.Publish(r.Context(), req.Fix, id, req.CommitMessage)
	if err != nil {
		var verr *schema.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "validation failed",
				"code":   "validation",
				"issues": verr.Issues,
			})
		case errors.Is(err, apperr.ErrConflict):
			writeError(w, http.StatusConflict, "store changed during publish, retry", "conflict")
		case errors.Is(err, apperr.ErrIndeterminate):
			h.logger.Error("publish outcome unknown", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "write outcome unknown, re-read before retrying", "indeterminate")
		default:
			h.logger.Error("publish failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "publish failed", "backend")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"result": res,
	})
}

func authMessage(code int) string {
	if code == http.StatusForbidden {
		return "identity is not allowed to publish"
	}
	return "identity required"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	body := map[string]any{"error": msg}
	if code != "" {
		body["code"] = code
	}
	writeJSON(w, status, body)
}
