package share

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/liveshare/internal/domain"
	"github.com/hilthontt/liveshare/internal/infrastructure/json"
	"github.com/hilthontt/liveshare/internal/infrastructure/turnstile"
	"github.com/hilthontt/liveshare/internal/session"
	"go.uber.org/zap"
)

const (
	roleHost   = "host"
	roleViewer = "viewer"
)

type Handler struct {
	registry  *session.Registry
	turnstile *turnstile.Verifier
	logger    *zap.SugaredLogger
	upgrader  websocket.Upgrader
}

func NewHandler(
	registry *session.Registry,
	verifier *turnstile.Verifier,
	logger *zap.SugaredLogger,
	allowedOrigins []string,
) *Handler {
	return &Handler{
		registry:  registry,
		turnstile: verifier,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker mirrors the CORS allow-list for upgrade requests. Requests
// without an Origin header (non-browser clients) pass.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return false
	}
}

// StartHandler creates a room: key and host token are generated, the room is
// activated and persisted, and its TTL timer armed. The admission filters
// (content type, editor header, per-IP limit) have already run as middleware.
func (h *Handler) StartHandler(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.Read(r, &req); err != nil && !errors.Is(err, io.EOF) {
		json.WriteValidationError(w, err)
		return
	}

	if h.turnstile.Enabled() {
		if req.TurnstileToken == "" {
			json.WriteError(w, http.StatusBadRequest, errors.New("turnstile required"), "Missing turnstile token")
			return
		}
		ok, err := h.turnstile.Verify(r.Context(), req.TurnstileToken)
		if err != nil {
			json.WriteInternalError(w, err)
			return
		}
		if !ok {
			json.WriteError(w, http.StatusForbidden, errors.New("turnstile failed"), "Turnstile verification failed")
			return
		}
	}

	key, hostToken, ttl, err := h.registry.Start(r.Context(), r.RemoteAddr)
	if err != nil {
		h.logger.Errorw("start failed", "error", err)
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, startResponse{
		Key:        key,
		HostToken:  hostToken,
		ViewerURL:  viewerURL(r, key),
		TTLSeconds: int64(ttl.Seconds()),
	})
}

func (h *Handler) StopHandler(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := json.Read(r, &req); err != nil && !errors.Is(err, io.EOF) {
		json.WriteValidationError(w, err)
		return
	}

	err := h.registry.Stop(r.Context(), req.Key, req.HostToken)
	switch {
	case err == nil:
		json.Write(w, http.StatusOK, stopResponse{OK: true})
	case errors.Is(err, domain.ErrInvalidKey):
		json.WriteError(w, http.StatusBadRequest, err, "Malformed room key")
	case errors.Is(err, domain.ErrUnauthorized):
		json.WriteError(w, http.StatusUnauthorized, err, "Host token mismatch")
	default:
		json.WriteInternalError(w, err)
	}
}

// SnapshotHandler is a read-only query, safe against inactive and unknown
// rooms: those read as {active:false}.
func (h *Handler) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	room, err := h.registry.Snapshot(r.Context(), key)
	switch {
	case err == nil:
		json.Write(w, http.StatusOK, snapshotResponse{
			Active:    room.Active,
			Content:   room.Content,
			Selection: room.Selection,
			Version:   room.Version,
			Language:  room.Language,
		})
	case errors.Is(err, domain.ErrInvalidKey):
		json.WriteError(w, http.StatusBadRequest, err, "Malformed room key")
	default:
		json.WriteInternalError(w, err)
	}
}

// SocketHandler routes a WebSocket upgrade to the room actor for the key.
// Malformed keys are rejected before the upgrade; every later reject still
// completes the handshake and explains itself with a frame before closing.
func (h *Handler) SocketHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !domain.ValidKey(key) {
		json.WriteError(w, http.StatusBadRequest, domain.ErrInvalidKey, "Malformed room key")
		return
	}

	role := r.URL.Query().Get("role")
	token := r.URL.Query().Get("token")

	actor, err := h.registry.Resolve(r.Context(), key)
	if err != nil {
		h.logger.Errorw("resolve failed", "key", key, "error", err)
		json.WriteInternalError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("upgrade failed", "key", key, "error", err)
		return
	}

	if role == roleHost {
		actor.AcceptHost(r.Context(), conn, token)
		return
	}
	actor.AcceptViewer(conn)
}

func viewerURL(r *http.Request, key string) string {
	origin := r.Header.Get("Origin")
	if origin == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		origin = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/?share=%s", origin, key)
}
