package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"card-alerts-go/internal/models"
)

type fakeUserStore struct {
	deleted []int
}

func (f *fakeUserStore) CreateUser(_ context.Context, username, email, _ string, superuser bool) (models.User, error) {
	return models.User{ID: 1, Username: username, Email: email, IsSuperuser: superuser}, nil
}

func (f *fakeUserStore) GetUser(_ context.Context, id int) (models.User, error) {
	return models.User{ID: id}, nil
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	return models.User{ID: 1, Username: username}, nil
}

func (f *fakeUserStore) GetUsers(context.Context) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUserStore) DeleteUser(_ context.Context, id int) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeAuditStore struct{}

func (fakeAuditStore) Record(context.Context, int, string, int, string) error { return nil }

func (fakeAuditStore) GetAuditLogs(context.Context, int) ([]models.AuditLog, error) {
	return nil, nil
}

func TestDeleteUserHandler_RejectsNonDeleteMethods(t *testing.T) {
	users := &fakeUserStore{}
	h := NewHandler(nil, users, nil, fakeAuditStore{}, nil, nil, "secret", zap.NewNop())

	admin := models.Actor{UserID: 1, IsSuperuser: true}
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(method, "/api/users/5", nil)
		h.DeleteUserHandler(w, r, admin)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
	}
	assert.Empty(t, users.deleted, "nothing may be deleted off the DELETE method")
}

func TestDeleteUserHandler_Delete(t *testing.T) {
	users := &fakeUserStore{}
	h := NewHandler(nil, users, nil, fakeAuditStore{}, nil, nil, "secret", zap.NewNop())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/users/5", nil)
	h.DeleteUserHandler(w, r, models.Actor{UserID: 1, IsSuperuser: true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{5}, users.deleted)
}
