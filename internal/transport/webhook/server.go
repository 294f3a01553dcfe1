// Package webhook exposes the assistant to a chat transport over HTTP.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chat-assistant/internal/common/logger"
	"chat-assistant/internal/models"
)

const TokenHeader = "X-Bot-Token"

const maxBodyBytes = 1 << 20

type Dispatcher interface {
	Dispatch(ctx context.Context, msg models.InboundMessage) ([]models.Reply, error)
}

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type MessageResponse struct {
	Replies []models.Reply `json:"replies"`
}

type Handler struct {
	dispatcher Dispatcher
	token      string
	checks     map[string]Check
	logger     logger.Logger
}

func NewHandler(dispatcher Dispatcher, token string, checks map[string]Check, log logger.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		token:      token,
		checks:     checks,
		logger:     log.With(map[string]interface{}{"component": "webhook"}),
	}
}

// NewRouter wires the middleware stack and every route.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())
	h.RegisterRoutes(r)

	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Post("/messages", h.PostMessage)
	})
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(TokenHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			Error(w, http.StatusUnauthorized, "invalid bot token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostMessage accepts one inbound chat message and answers with the replies
// to deliver.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var msg models.InboundMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&msg); err != nil {
		Error(w, http.StatusBadRequest, "invalid message body")
		return
	}
	if msg.SessionKey == "" {
		Error(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	// Images are fetched over HTTP; a bare file_id cannot be resolved.
	if msg.Image != nil && msg.Image.FileID != "" && msg.Image.URL == "" {
		Error(w, http.StatusBadRequest, "image url is required")
		return
	}

	replies, err := h.dispatcher.Dispatch(r.Context(), msg)
	if err != nil {
		h.logger.Warn("message not dispatched", map[string]interface{}{
			"sessionKey": msg.SessionKey,
			"requestId":  chiMiddleware.GetReqID(r.Context()),
			"error":      err.Error(),
		})
		Error(w, http.StatusServiceUnavailable, "message could not be processed")
		return
	}
	if replies == nil {
		replies = []models.Reply{}
	}

	JSON(w, http.StatusOK, MessageResponse{Replies: replies})
}

// Ready runs every dependency check.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]interface{}{"status": "ok"}
	checks := make(map[string]string, len(h.checks))
	statusCode := http.StatusOK

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = "unreachable"
			statusCode = http.StatusServiceUnavailable
			status["status"] = "degraded"
			continue
		}
		checks[name] = "ok"
	}
	status["checks"] = checks

	JSON(w, statusCode, status)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
