package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

// ChatSender posts into the operator chat channel.
type ChatSender interface {
	SendChat(ctx context.Context, message string) error
}

// ChatClient implements ChatSender against a chat webhook (Slack-style
// incoming webhook payload). A nil client is safe to call.
type ChatClient struct {
	webhookURL string
	apiKey     string
	http       *http.Client
	log        *logger.Logger
}

type chatRequest struct {
	Text string `json:"text"`
}

// NewChatClient creates the webhook client, or nil when chat is not
// configured.
func NewChatClient(cfg config.ChatConfig, log *logger.Logger) *ChatClient {
	if !cfg.IsChatEnabled() {
		return nil
	}
	return &ChatClient{
		webhookURL: cfg.GetChatWebhookURL(),
		apiKey:     cfg.GetChatAPIKey(),
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// SendChat posts one message to the channel.
func (c *ChatClient) SendChat(ctx context.Context, message string) error {
	if c == nil {
		return fmt.Errorf("chat webhook not configured")
	}

	body, err := json.Marshal(chatRequest{Text: message})
	if err != nil {
		return fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("chat_message_sent")
	return nil
}
