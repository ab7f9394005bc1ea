package webhookin

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testWebhookConfig struct {
	secrets map[string]string
	apiKey  string
	window  time.Duration
}

func (c testWebhookConfig) GetWebhookSecret(source string) string { return c.secrets[source] }
func (c testWebhookConfig) GetFormAPIKey() string                 { return c.apiKey }
func (c testWebhookConfig) GetWebhookMaxRetries() int             { return 5 }
func (c testWebhookConfig) GetWebhookTimestampWindow() time.Duration {
	if c.window == 0 {
		return 5 * time.Minute
	}
	return c.window
}

func signedRouter(cfg testWebhookConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhooks/:source", SignatureMiddleware(cfg, logger.New("test")), func(c *gin.Context) {
		body, err := rawBody(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	})
	return router
}

func signedRequest(t *testing.T, secret string, timestamp time.Time, body []byte) *http.Request {
	t.Helper()
	unix := strconv.FormatInt(timestamp.Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/engagement", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Timestamp", unix)
	req.Header.Set("X-Webhook-Signature", ComputeSignature(secret, unix, body))
	return req
}

func TestSignatureMiddleware_ValidSignaturePasses(t *testing.T) {
	cfg := testWebhookConfig{secrets: map[string]string{"engagement": "s3cret"}}
	router := signedRouter(cfg)

	body := []byte(`{"event":"opened","email":"a@b.c"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, "s3cret", time.Now(), body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != string(body) {
		t.Fatalf("handler did not see the verified body: %s", rec.Body.String())
	}
}

func TestSignatureMiddleware_WrongSecretRejected(t *testing.T) {
	cfg := testWebhookConfig{secrets: map[string]string{"engagement": "s3cret"}}
	router := signedRouter(cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, "wrong-secret", time.Now(), []byte(`{}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSignatureMiddleware_TamperedBodyRejected(t *testing.T) {
	cfg := testWebhookConfig{secrets: map[string]string{"engagement": "s3cret"}}
	router := signedRouter(cfg)

	req := signedRequest(t, "s3cret", time.Now(), []byte(`{"event":"opened"}`))
	req.Body = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"event":"clicked"}`))).Body

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered body, got %d", rec.Code)
	}
}

func TestSignatureMiddleware_StaleTimestampRejected(t *testing.T) {
	cfg := testWebhookConfig{secrets: map[string]string{"engagement": "s3cret"}, window: 5 * time.Minute}
	router := signedRouter(cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, "s3cret", time.Now().Add(-time.Hour), []byte(`{}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for stale timestamp, got %d", rec.Code)
	}
}

func TestSignatureMiddleware_FutureTimestampRejected(t *testing.T) {
	cfg := testWebhookConfig{secrets: map[string]string{"engagement": "s3cret"}, window: 5 * time.Minute}
	router := signedRouter(cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, "s3cret", time.Now().Add(time.Hour), []byte(`{}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for future timestamp, got %d", rec.Code)
	}
}

func TestSignatureMiddleware_MissingHeadersRejected(t *testing.T) {
	cfg := testWebhookConfig{secrets: map[string]string{"engagement": "s3cret"}}
	router := signedRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/engagement", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing headers, got %d", rec.Code)
	}
}

func TestSignatureMiddleware_UnknownSourceRejected(t *testing.T) {
	cfg := testWebhookConfig{secrets: map[string]string{}}
	router := signedRouter(cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedRequest(t, "s3cret", time.Now(), []byte(`{}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unconfigured source, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testWebhookConfig{apiKey: "form-key"}
	router := gin.New()
	router.POST("/webhooks/form", APIKeyMiddleware(cfg, logger.New("test")), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/form", nil)
	req.Header.Set("X-API-Key", "form-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhooks/form", nil)
	req.Header.Set("X-API-Key", "guess")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with invalid key, got %d", rec.Code)
	}
}

func TestComputeSignature_Deterministic(t *testing.T) {
	first := ComputeSignature("secret", "1700000000", []byte(`{"a":1}`))
	second := ComputeSignature("secret", "1700000000", []byte(`{"a":1}`))
	if first != second {
		t.Fatalf("signatures differ: %s vs %s", first, second)
	}
	if !VerifySignature("secret", "1700000000", []byte(`{"a":1}`), first) {
		t.Fatalf("expected signature to verify")
	}
	if VerifySignature("secret", "1700000001", []byte(`{"a":1}`), first) {
		t.Fatalf("timestamp is part of the signed material, verification must fail")
	}
}
