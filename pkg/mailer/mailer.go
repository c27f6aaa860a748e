// Package mailer talks to the platform's mail delivery service. Email
// blocks hand it a rendered body and it returns the provider message id.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/appforge/flowcore/pkg/runfail"
)

const defaultSendTimeout = 15 * time.Second

type sendRequest struct {
	To         string `json:"to"`
	Kind       string `json:"kind"`
	Body       string `json:"body"`
	SenderName string `json:"sender_name"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

// HTTPMailer posts notification email to the mail service's internal
// API.
type HTTPMailer struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPMailer(baseURL, apiKey string, client *http.Client) *HTTPMailer {
	if client == nil {
		client = &http.Client{Timeout: defaultSendTimeout}
	}

	return &HTTPMailer{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
	}
}

func (m *HTTPMailer) SendNotificationEmail(ctx context.Context, to, kind, body, senderName string) (string, error) {
	payload, err := json.Marshal(sendRequest{
		To:         to,
		Kind:       kind,
		Body:       body,
		SenderName: senderName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/notifications/email", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build mail request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", runfail.Wrap(runfail.CodeExternalService, fmt.Errorf("mail service unreachable: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", runfail.Wrap(runfail.CodeExternalService, fmt.Errorf("failed to read mail service response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", runfail.New(runfail.CodeExternalService,
			fmt.Sprintf("mail service returned %s", resp.Status))
	}

	var decoded sendResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", runfail.Wrap(runfail.CodeExternalService, fmt.Errorf("malformed mail service response: %w", err))
	}

	return decoded.MessageID, nil
}

// NopMailer logs the send and succeeds. Used when no mail service is
// configured, so local stacks can run email workflows end to end.
type NopMailer struct {
	logger *slog.Logger
}

func NewNopMailer(logger *slog.Logger) *NopMailer {
	return &NopMailer{logger: logger.With("module", "mailer")}
}

func (m *NopMailer) SendNotificationEmail(ctx context.Context, to, kind, _, senderName string) (string, error) {
	id := uuid.New().String()

	m.logger.InfoContext(ctx, "Email delivery skipped, no mail service configured",
		"to", to, "kind", kind, "sender_name", senderName, "message_id", id)

	return id, nil
}
