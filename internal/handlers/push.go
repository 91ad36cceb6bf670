package handlers

import (
	"encoding/json"
	"net/http"

	"card-alerts-go/internal/models"
)

// GetVAPIDKeyHandler returns the public VAPID key
func (h *Handler) GetVAPIDKeyHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"publicKey": h.Pusher.PublicKey(),
	})
}

// SubscribePushHandler saves a push subscription for the current user
func (h *Handler) SubscribePushHandler(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := h.Push.SavePushSubscription(r.Context(), actor.UserID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
