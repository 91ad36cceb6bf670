package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"card-alerts-go/internal/alerts"
	"card-alerts-go/internal/notify"
	"card-alerts-go/internal/store"
)

type Handler struct {
	Alerts   *alerts.Service
	Users    store.UserStore
	Push     store.PushStore
	Audit    store.AuditStore
	Feed     *store.EventFeed
	Pusher   *notify.Pusher
	sessions *sessions.CookieStore
	logger   *zap.Logger
}

func NewHandler(alertSvc *alerts.Service, users store.UserStore, push store.PushStore, audit store.AuditStore, feed *store.EventFeed, pusher *notify.Pusher, sessionSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		Alerts:   alertSvc,
		Users:    users,
		Push:     push,
		Audit:    audit,
		Feed:     feed,
		Pusher:   pusher,
		sessions: sessions.NewCookieStore([]byte(sessionSecret)),
		logger:   logger,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("response encode failed", zap.Error(err))
	}
}

// writeError translates the service error taxonomy into HTTP statuses:
// validation 400, forbidden 403, not found 404, everything else 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *alerts.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": verr.Error(),
			"field": verr.Field,
		})
	case errors.Is(err, alerts.ErrForbidden):
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, alerts.ErrNotFound), errors.Is(err, store.ErrUserNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
