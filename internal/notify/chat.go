package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type ChatConfig struct {
	// Webhook endpoint of the chat integration. Empty disables chat
	// delivery.
	WebhookURL string
}

// ChatClient posts alert notices to the chat integration's incoming
// webhook. The alert's chat channel destination names the room.
type ChatClient struct {
	c      ChatConfig
	client *http.Client
}

func NewChatClient(c ChatConfig) *ChatClient {
	return &ChatClient{
		c:      c,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *ChatClient) Enabled() bool {
	return c.c.WebhookURL != ""
}

type chatMessage struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

func (c *ChatClient) Send(ctx context.Context, destination, text string) error {
	var post bytes.Buffer
	if err := json.NewEncoder(&post).Encode(chatMessage{Channel: destination, Text: text}); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.c.WebhookURL, &post)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chat webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
