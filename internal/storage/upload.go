package storage

import (
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ContentType detects the MIME type of an upload from its leading bytes.
func ContentType(body []byte) string {
	return mimetype.Detect(body).String()
}

// ObjectKey builds documents/<kind>/<yyyy-mm>/<name>-<rand><ext>, using the
// extension mimetype associates with body.
func ObjectKey(kind, name string, body []byte) string {
	ext := mimetype.Detect(body).Extension()
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, name)

	return path.Join(
		"documents",
		kind,
		time.Now().UTC().Format("2006-01"),
		name+"-"+uuid.NewString()[:8]+ext,
	)
}
