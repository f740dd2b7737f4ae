package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nebulacloud/console/pkg/money"
)

const (
	defaultTimeout   = 5 * time.Second
	maxErrorBodySize = 4096
)

// ErrUnauthorized indicates the API rejected the service token.
var ErrUnauthorized = errors.New("event emitter unauthorized")

// ErrInvalidArgument indicates the API rejected the payload with validation errors.
var ErrInvalidArgument = errors.New("event emitter invalid argument")

// Emitter posts platform events to the internal API endpoints.
type Emitter struct {
	baseURL string
	token   string
	client  *http.Client
}

// Notification is addressed to a single user.
type Notification struct {
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type,omitempty"`
	ServiceType string `json:"service_type,omitempty"`
	ResourceID  string `json:"resource_id,omitempty"`
}

// Usage is a metered charge against a user's credit balance.
type Usage struct {
	UserID      string      `json:"user_id"`
	Amount      money.Cents `json:"amount_cents"`
	Description string      `json:"description,omitempty"`
	ServiceType string      `json:"service_type,omitempty"`
}

// NewEmitter creates an emitter using the provided API base URL and service token.
func NewEmitter(baseURL, serviceToken string, client *http.Client) (*Emitter, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("event emitter base url required")
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	} else if client.Timeout == 0 {
		client.Timeout = defaultTimeout
	}
	return &Emitter{
		baseURL: trimmed,
		token:   strings.TrimSpace(serviceToken),
		client:  client,
	}, nil
}

// Notify publishes a notification to its owner.
func (e *Emitter) Notify(ctx context.Context, n Notification) error {
	if strings.TrimSpace(n.UserID) == "" {
		return errors.New("notification requires user_id")
	}
	return e.post(ctx, "/internal/notifications", n)
}

// RecordUsage appends a usage debit to the owner's ledger.
func (e *Emitter) RecordUsage(ctx context.Context, u Usage) error {
	if strings.TrimSpace(u.UserID) == "" {
		return errors.New("usage requires user_id")
	}
	if u.Amount <= 0 {
		return errors.New("usage amount must be positive")
	}
	return e.post(ctx, "/internal/usage", u)
}

func (e *Emitter) post(ctx context.Context, path string, payload any) error {
	if e == nil {
		return errors.New("event emitter not initialised")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("X-Service-Token", e.token)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send event request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return errorForStatus(resp)
	}
	return nil
}

func errorForStatus(resp *http.Response) error {
	limited := io.LimitReader(resp.Body, maxErrorBodySize)
	buf, _ := io.ReadAll(limited)
	summary := strings.TrimSpace(string(buf))
	if summary == "" {
		summary = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, summary)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, summary)
	default:
		return fmt.Errorf("event request failed: %s", summary)
	}
}
