package mirror

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
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

const (
	HeaderEvent     = "X-Mirror-Event"
	HeaderEventID   = "X-Mirror-Event-ID"
	HeaderSignature = "X-Mirror-Signature"

	maxResponseBody = 64 << 10
)

// DeliveryError describes a failed webhook attempt.
type DeliveryError struct {
	Event      Event
	StatusCode int
	Message    string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mirror %s: %v", e.Event, e.Err)
	}
	return fmt.Sprintf("mirror %s: %s", e.Event, e.Message)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Temporary reports whether a later attempt could succeed. Transport errors,
// 5xx and 429 are temporary; other rejections are not.
func (e *DeliveryError) Temporary() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type WebhookConfig struct {
	BaseURL       string
	SigningSecret string
	Timeout       time.Duration
	// AllowPrivateNetworks disables the SSRF guard so a webhook on localhost
	// or a private address can be reached. Development only.
	AllowPrivateNetworks bool
}

// Webhook posts payloads to BaseURL + event path.
type Webhook struct {
	baseURL string
	secret  []byte
	client  *http.Client
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	return &Webhook{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  []byte(cfg.SigningSecret),
		client:  NewHTTPClient(cfg.Timeout, cfg.AllowPrivateNetworks),
	}
}

// NewHTTPClient returns an SSRF-guarded client that refuses private, loopback
// and link-local destinations, unless allowPrivate is set.
func NewHTTPClient(timeout time.Duration, allowPrivate bool) *http.Client {
	if allowPrivate {
		return &http.Client{Timeout: timeout}
	}
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

func (w *Webhook) Deliver(ctx context.Context, payload Payload) error {
	path := payload.Event.Path()
	if path == "" {
		return &DeliveryError{Event: payload.Event, StatusCode: http.StatusBadRequest, Message: "unknown event"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &DeliveryError{Event: payload.Event, StatusCode: http.StatusBadRequest, Message: "encode payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Event: payload.Event, StatusCode: http.StatusBadRequest, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, payload.Event.String())
	req.Header.Set(HeaderEventID, payload.EventID)
	if len(w.secret) > 0 {
		req.Header.Set(HeaderSignature, Sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return &DeliveryError{Event: payload.Event, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{
			Event:      payload.Event,
			StatusCode: resp.StatusCode,
			Message:    failureMessage(resp, respBody),
		}
	}
	return nil
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// failureMessage prefers the remote JSON message and hint over the status line.
func failureMessage(resp *http.Response, body []byte) string {
	var remote struct {
		Message string `json:"message"`
		Hint    string `json:"hint"`
	}
	if json.Unmarshal(body, &remote) == nil && remote.Message != "" {
		if remote.Hint != "" {
			return remote.Message + ". " + remote.Hint
		}
		return remote.Message
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
