package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"card-alerts-go/internal/alerts"
	"card-alerts-go/internal/models"
)

func (h *Handler) ListAlertsHandler(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	views, err := h.Alerts.List(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"alerts": views})
}

func (h *Handler) ListAlertsByCardHandler(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/alerts/card/")
	cardID, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Invalid card ID", http.StatusBadRequest)
		return
	}

	views, err := h.Alerts.ListByCard(r.Context(), actor, cardID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"alerts": views})
}

func (h *Handler) CreateAlertHandler(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var spec alerts.AlertSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	created, err := h.Alerts.Create(r.Context(), actor, spec)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateAlertHandler(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, ok := alertID(w, r, "/api/alerts/")
	if !ok {
		return
	}

	var spec alerts.AlertSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	updated, err := h.Alerts.Update(r.Context(), actor, id, spec)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) UnsubscribeHandler(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
	idStr = strings.TrimSuffix(idStr, "/unsubscribe")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Invalid alert ID", http.StatusBadRequest)
		return
	}

	if err := h.Alerts.Unsubscribe(r.Context(), actor, id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) DeleteAlertHandler(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	id, ok := alertID(w, r, "/api/alerts/")
	if !ok {
		return
	}

	if err := h.Alerts.Delete(r.Context(), actor, id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func alertID(w http.ResponseWriter, r *http.Request, prefix string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, prefix))
	if err != nil {
		http.Error(w, "Invalid alert ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
