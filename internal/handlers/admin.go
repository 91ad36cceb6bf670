package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"card-alerts-go/internal/models"
)

// === User Management (superuser only) ===

func (h *Handler) GetUsersHandler(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	users, err := h.Users.GetUsers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	var req struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		IsSuperuser bool   `json:"is_superuser"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "username, email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.Users.CreateUser(r.Context(), req.Username, req.Email, req.Password, req.IsSuperuser)
	if err != nil {
		h.writeError(w, err)
		return
	}

	meta, _ := json.Marshal(map[string]any{"username": req.Username, "is_superuser": req.IsSuperuser})
	_ = h.Audit.Record(r.Context(), actor.UserID, "create_user", 0, string(meta))

	h.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": user})
}

func (h *Handler) DeleteUserHandler(w http.ResponseWriter, r *http.Request, actor models.Actor) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/users/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := h.Users.DeleteUser(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	_ = h.Audit.Record(r.Context(), actor.UserID, "delete_user", 0, "")

	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// === Audit Log (superuser only) ===

func (h *Handler) GetAuditLogsHandler(w http.ResponseWriter, r *http.Request, _ models.Actor) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	logs, err := h.Audit.GetAuditLogs(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"audit": logs})
}
