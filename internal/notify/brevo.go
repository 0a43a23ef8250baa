// Package notify delivers transactional email through the Brevo HTTP API.
// Callers depend on the Notifier interface; digest composition never knows
// which provider is behind it.
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

type Email struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

type Notifier interface {
	Send(ctx context.Context, email Email) error
}

type BrevoConfig struct {
	APIKey      string
	BaseURL     string
	SenderName  string
	SenderEmail string
}

type BrevoClient struct {
	cfg    BrevoConfig
	client *http.Client
}

func NewBrevoClient(cfg BrevoConfig) *BrevoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.brevo.com/v3"
	}
	return &BrevoClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type brevoRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoMessage struct {
	Sender      brevoRecipient   `json:"sender"`
	To          []brevoRecipient `json:"to"`
	Subject     string           `json:"subject"`
	HTMLContent string           `json:"htmlContent"`
}

func (b *BrevoClient) Send(ctx context.Context, email Email) error {
	if b.cfg.APIKey == "" {
		return fmt.Errorf("brevo api key is not configured")
	}
	if email.To == "" {
		return fmt.Errorf("recipient email is missing")
	}

	msg := brevoMessage{
		Sender:      brevoRecipient{Email: b.cfg.SenderEmail, Name: b.cfg.SenderName},
		To:          []brevoRecipient{{Email: email.To, Name: email.ToName}},
		Subject:     email.Subject,
		HTMLContent: email.HTML,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+"/smtp/email", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", b.cfg.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("brevo returned status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
