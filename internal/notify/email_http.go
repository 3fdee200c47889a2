package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"caterly/internal/config"
)

// HTTPEmailSender posts emails to a JSON email API (Resend-compatible).
type HTTPEmailSender struct {
	url    string
	apiKey string
	from   string
	client *http.Client
}

func NewHTTPEmailSender(cfg config.EmailConfig) *HTTPEmailSender {
	return &HTTPEmailSender{
		url:    cfg.APIURL,
		apiKey: cfg.APIKey,
		from:   cfg.From,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPEmailSender) Name() string { return "http" }

type apiAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type apiEmail struct {
	From        string          `json:"from"`
	To          []string        `json:"to"`
	Subject     string          `json:"subject"`
	HTML        string          `json:"html"`
	Attachments []apiAttachment `json:"attachments,omitempty"`
}

func (s *HTTPEmailSender) Send(ctx context.Context, e Email) error {
	if err := e.validate(); err != nil {
		return err
	}

	payload := apiEmail{From: s.from, To: e.To, Subject: e.Subject, HTML: e.HTML}
	for _, a := range e.Attachments {
		payload.Attachments = append(payload.Attachments, apiAttachment{
			Filename:    a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError("email api", resp)
	}
	return nil
}
