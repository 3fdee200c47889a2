// Package notify delivers generated documents to customers by email and
// WhatsApp.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"caterly/internal/config"
)

var (
	ErrNotConfigured = errors.New("notification channel is not configured")
	ErrNoRecipient   = errors.New("recipient is required")
)

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Email struct {
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

func (e Email) validate() error {
	for _, to := range e.To {
		if strings.TrimSpace(to) != "" {
			return nil
		}
	}
	return ErrNoRecipient
}

// EmailSender delivers one email. Name identifies the provider in logs
// and metrics.
type EmailSender interface {
	Send(ctx context.Context, e Email) error
	Name() string
}

// NewEmailSender picks the providers that are configured: the HTTP API
// when it has a key, SMTP when it has a host, both in that order when both
// are set.
func NewEmailSender(cfg *config.Config) (EmailSender, error) {
	var senders []EmailSender
	if cfg.EmailConfig.APIKey != "" {
		senders = append(senders, NewHTTPEmailSender(cfg.EmailConfig))
	}
	if cfg.SMTPConfig.Host != "" {
		senders = append(senders, NewSMTPSender(cfg.SMTPConfig))
	}

	switch len(senders) {
	case 0:
		return nil, ErrNotConfigured
	case 1:
		return Record(senders[0]), nil
	}
	return &FallbackEmailSender{Primary: senders[0], Fallback: senders[1]}, nil
}

// statusError reads at most 4KB of a failed provider response.
func statusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("%s: status %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body)))
}
