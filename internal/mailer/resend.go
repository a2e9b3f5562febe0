// Package mailer relays contact-form messages to the developer mailbox via
// the Resend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/recapstack/decide-api/internal/config"
	"go.uber.org/zap"
)

const defaultEndpoint = "https://api.resend.com/emails"

type ResendMailer struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	from       string
	to         string
	logger     *zap.Logger
}

func NewResendMailer(cfg *config.ContactConfig, logger *zap.Logger) *ResendMailer {
	return &ResendMailer{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   defaultEndpoint,
		apiKey:     cfg.ResendAPIKey,
		from:       cfg.From,
		to:         cfg.To,
		logger:     logger.Named("ResendMailer"),
	}
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	ReplyTo string `json:"reply_to,omitempty"`
	HTML    string `json:"html"`
}

// SendContact forwards a user message. ReplyTo is set to the user's address
// so the developer can answer directly.
func (m *ResendMailer) SendContact(ctx context.Context, fromEmail, msgType, message string) error {
	payload := sendRequest{
		From:    m.from,
		To:      m.to,
		Subject: fmt.Sprintf("DECIDE App: [%s] from User", msgType),
		ReplyTo: fromEmail,
		HTML: fmt.Sprintf(
			"<h3>New Message from DECIDE App</h3><p><strong>From:</strong> %s</p><p><strong>Type:</strong> %s</p><hr /><p>%s</p>",
			fromEmail, msgType, message,
		),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal contact email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("resend call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Warn("Resend rejected the email", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("resend returned status %d", resp.StatusCode)
	}

	m.logger.Info("Contact message relayed", zap.String("type", msgType))
	return nil
}
