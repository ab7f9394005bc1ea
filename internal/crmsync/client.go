// Package crmsync pushes canonical lead records to the configured external
// CRM over signed HTTP.
package crmsync

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

// Client posts lead payloads to the CRM endpoint. A nil client means sync
// is not configured.
type Client struct {
	syncURL string
	secret  string
	http    *http.Client
	log     *logger.Logger
	now     func() time.Time
}

// NewClient creates the CRM client, or nil when sync is disabled.
func NewClient(cfg config.CRMConfig, log *logger.Logger) *Client {
	if !cfg.IsCRMSyncEnabled() {
		return nil
	}
	return &Client{
		syncURL: strings.TrimRight(cfg.GetCRMSyncURL(), "/"),
		secret:  cfg.GetCRMSyncSecret(),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
		now:     time.Now,
	}
}

// Push sends one canonical lead payload. The request is signed the same
// way inbound webhooks are verified: HMAC-SHA256 over "timestamp.body".
func (c *Client) Push(ctx context.Context, payload any) error {
	if c == nil {
		return fmt.Errorf("crm sync not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal crm payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.syncURL+"/leads", bytes.NewReader(body))
	if err != nil {
		return err
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Sync-Timestamp", timestamp)
	req.Header.Set("X-Sync-Signature", sign(c.secret, timestamp, body))

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.External("crm endpoint unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return apperr.External(
			fmt.Sprintf("crm returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))), nil)
	}
	return nil
}

func sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
