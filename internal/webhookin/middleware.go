package webhookin

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// rawBodyKey stores the verified request body on the gin context so the
// handler does not re-read a drained stream.
const rawBodyKey = "webhookRawBody"

// maxBodyBytes caps inbound webhook payloads.
const maxBodyBytes = 1 << 20

// SignatureMiddleware authenticates signed webhooks. The signature is
// HMAC-SHA256 over "<timestamp>.<body>" with the source's secret, sent as
// hex in X-Webhook-Signature with the unix timestamp in
// X-Webhook-Timestamp. Timestamps outside the configured window are
// rejected to blunt replayed captures.
func SignatureMiddleware(cfg config.WebhookConfig, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		source := c.Param("source")
		secret := cfg.GetWebhookSecret(source)
		if secret == "" {
			log.WebhookRejected(source, "no signing secret configured", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown webhook source"})
			return
		}

		signature := c.GetHeader("X-Webhook-Signature")
		rawTimestamp := c.GetHeader("X-Webhook-Timestamp")
		if signature == "" || rawTimestamp == "" {
			log.WebhookRejected(source, "missing signature headers", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing signature"})
			return
		}

		unix, err := strconv.ParseInt(rawTimestamp, 10, 64)
		if err != nil {
			log.WebhookRejected(source, "malformed timestamp", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid timestamp"})
			return
		}

		age := time.Since(time.Unix(unix, 0))
		window := cfg.GetWebhookTimestampWindow()
		if age > window || age < -window {
			log.WebhookRejected(source, "timestamp outside window", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "stale timestamp"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !VerifySignature(secret, rawTimestamp, body, signature) {
			log.WebhookRejected(source, "signature mismatch", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Set(rawBodyKey, body)
		c.Next()
	}
}

// VerifySignature checks an HMAC-SHA256 hex signature over
// "<timestamp>.<body>" in constant time.
func VerifySignature(secret, timestamp string, body []byte, signature string) bool {
	expected := ComputeSignature(secret, timestamp, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// ComputeSignature produces the hex HMAC-SHA256 signature for a payload.
// Exported for outbound signing and tests.
func ComputeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// APIKeyMiddleware authenticates the public form intake endpoint via the
// X-API-Key header.
func APIKeyMiddleware(cfg config.WebhookConfig, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := cfg.GetFormAPIKey()
		if expected == "" {
			log.WebhookRejected(SourceForm, "form api key not configured", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "form intake disabled"})
			return
		}

		provided := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			log.WebhookRejected(SourceForm, "invalid api key", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}

// rawBody returns the body captured by the signature middleware, reading
// the request directly when no middleware ran (form intake).
func rawBody(c *gin.Context) ([]byte, error) {
	if cached, ok := c.Get(rawBodyKey); ok {
		if body, ok := cached.([]byte); ok {
			return body, nil
		}
	}
	return io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
}
