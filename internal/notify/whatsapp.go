package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"caterly/internal/config"
	"caterly/internal/metrics"
)

// WhatsAppSender sends document messages through the WhatsApp Cloud API.
// The document itself must already be reachable at a public URL.
type WhatsAppSender struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewWhatsAppSender returns ErrNotConfigured without a phone number id
// and token.
func NewWhatsAppSender(cfg config.WhatsAppConfig) (*WhatsAppSender, error) {
	if cfg.PhoneNumberID == "" || cfg.AccessToken == "" {
		return nil, ErrNotConfigured
	}
	return &WhatsAppSender{
		endpoint: strings.TrimRight(cfg.APIURL, "/") + "/" + cfg.PhoneNumberID + "/messages",
		token:    cfg.AccessToken,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type Document struct {
	To       string
	Link     string
	Filename string
	Caption  string
}

type waDocument struct {
	Link     string `json:"link"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type waMessage struct {
	MessagingProduct string     `json:"messaging_product"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Document         waDocument `json:"document"`
}

func (s *WhatsAppSender) SendDocument(ctx context.Context, d Document) (err error) {
	defer func() { metrics.RecordNotification(ChannelWhatsApp, "cloud_api", err) }()

	to := NormalizePhone(d.To)
	if to == "" {
		return ErrNoRecipient
	}

	body, err := json.Marshal(waMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "document",
		Document:         waDocument{Link: d.Link, Filename: d.Filename, Caption: d.Caption},
	})
	if err != nil {
		return fmt.Errorf("marshal whatsapp message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError("whatsapp", resp)
	}
	return nil
}

// NormalizePhone keeps the digits; a bare 10 digit number is taken as Indian.
func NormalizePhone(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
	digits = strings.TrimLeft(digits, "0")
	if len(digits) == 10 {
		return "91" + digits
	}
	return digits
}
