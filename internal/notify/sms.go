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
	"leadflow_backend/platform/phone"
)

// SMSSender delivers text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// SMSClient implements SMSSender against the configured SMS gateway.
// A nil client is safe to call and reports the channel unavailable.
type SMSClient struct {
	apiURL     string
	apiKey     string
	fromNumber string
	http       *http.Client
	log        *logger.Logger
}

type smsRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

// NewSMSClient creates the gateway client, or nil when SMS is not configured.
func NewSMSClient(cfg config.SMSConfig, log *logger.Logger) *SMSClient {
	if !cfg.IsSMSEnabled() {
		return nil
	}
	return &SMSClient{
		apiURL:     strings.TrimRight(cfg.GetSMSAPIURL(), "/"),
		apiKey:     cfg.GetSMSAPIKey(),
		fromNumber: cfg.GetSMSFromNumber(),
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// SendSMS delivers one message, normalizing the recipient to E.164.
func (c *SMSClient) SendSMS(ctx context.Context, to, message string) error {
	if c == nil {
		return fmt.Errorf("sms gateway not configured")
	}

	normalized := phone.NormalizeE164(to)
	if normalized == "" {
		return fmt.Errorf("sms: empty recipient")
	}

	body, err := json.Marshal(smsRequest{To: normalized, From: c.fromNumber, Message: message})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/messages", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("sms_sent", "to", normalized)
	return nil
}
