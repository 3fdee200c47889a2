package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Converter turns a rendered HTML document into a PDF.
type Converter interface {
	Convert(ctx context.Context, html string) ([]byte, error)
}

// GotenbergConverter posts the page to a Gotenberg instance, which prints
// it with headless Chromium.
type GotenbergConverter struct {
	endpoint string
	client   *http.Client
}

func NewGotenbergConverter(baseURL string) *GotenbergConverter {
	return &GotenbergConverter{
		endpoint: strings.TrimRight(baseURL, "/") + "/forms/chromium/convert/html",
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Convert writes the page into a private temp directory, streams it to the
// converter and removes the directory again on every return path.
func (g *GotenbergConverter) Convert(ctx context.Context, html string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "caterly-render-*")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	page := filepath.Join(dir, "index.html")
	if err := os.WriteFile(page, []byte(html), 0o600); err != nil {
		return nil, fmt.Errorf("write page: %w", err)
	}

	body, contentType, err := formBody(page)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create convert request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("convert: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if mt := mimetype.Detect(pdf); !mt.Is("application/pdf") {
		return nil, fmt.Errorf("convert: unexpected content type %s", mt.String())
	}
	return pdf, nil
}

// formBody builds the multipart form Gotenberg expects: the entry page as
// a file field named index.html.
func formBody(page string) (*bytes.Buffer, string, error) {
	f, err := os.Open(page)
	if err != nil {
		return nil, "", fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy page: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
