package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatClient_SendPostsPayload(t *testing.T) {
	var got chatMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewChatClient(ChatConfig{WebhookURL: server.URL})
	require.True(t, c.Enabled())

	err := c.Send(context.Background(), "#ops", "New alert on card 10")
	require.NoError(t, err)

	assert.Equal(t, "#ops", got.Channel)
	assert.Equal(t, "New alert on card 10", got.Text)
}

func TestChatClient_SendNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "channel_not_found", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewChatClient(ChatConfig{WebhookURL: server.URL})
	err := c.Send(context.Background(), "#nowhere", "hello")
	assert.ErrorContains(t, err, "404")
}

func TestChatClient_Disabled(t *testing.T) {
	c := NewChatClient(ChatConfig{})
	assert.False(t, c.Enabled())
}
