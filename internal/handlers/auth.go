package handlers

import (
	"encoding/json"
	"net/http"

	"card-alerts-go/internal/models"
)

const sessionName = "card-alerts-session"

// LoginHandler verifies credentials and stores the actor identity in the
// session. Authentication beyond this lookup is out of scope; everything
// downstream only needs the resolved actor.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.Users.GetUserByUsername(r.Context(), req.Username)
	if err != nil || !user.CheckPassword(req.Password) {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["is_superuser"] = user.IsSuperuser
	session.Save(r, w)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["user_id"] = nil
	session.Options.MaxAge = -1
	session.Save(r, w)

	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// currentActor resolves the actor from the session. The second return is
// false for unauthenticated requests.
func (h *Handler) currentActor(r *http.Request) (models.Actor, bool) {
	session, _ := h.sessions.Get(r, sessionName)
	userID, ok := session.Values["user_id"].(int)
	if !ok || userID == 0 {
		return models.Actor{}, false
	}
	superuser, _ := session.Values["is_superuser"].(bool)
	return models.Actor{UserID: userID, IsSuperuser: superuser}, true
}

// RequireActor rejects unauthenticated requests and passes the actor to
// the wrapped handler.
func (h *Handler) RequireActor(next func(http.ResponseWriter, *http.Request, models.Actor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := h.currentActor(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r, actor)
	}
}

// RequireSuperuser additionally rejects non-superusers.
func (h *Handler) RequireSuperuser(next func(http.ResponseWriter, *http.Request, models.Actor)) http.HandlerFunc {
	return h.RequireActor(func(w http.ResponseWriter, r *http.Request, actor models.Actor) {
		if !actor.IsSuperuser {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r, actor)
	})
}
