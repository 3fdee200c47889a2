package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"caterly/internal/config"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestUploadDetectsContentType(t *testing.T) {
	put := &fakePutter{}
	r := &R2Client{client: put, bucket: "docs", baseURL: "https://cdn.example.com"}

	pdf := []byte("%PDF-1.7\n1 0 obj\n")
	url, err := r.Upload(context.Background(), "documents/bill/a.pdf", pdf)
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/documents/bill/a.pdf", url)
	assert.Equal(t, "docs", *put.in.Bucket)
	assert.Equal(t, "application/pdf", *put.in.ContentType)
	assert.Equal(t, pdf, put.body)
}

func TestUploadWrapsError(t *testing.T) {
	r := &R2Client{client: &fakePutter{err: errors.New("denied")}, bucket: "docs"}

	_, err := r.Upload(context.Background(), "k", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload k")
}

func TestNewR2ClientDisabled(t *testing.T) {
	c, err := NewR2Client(context.Background(), config.R2Config{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("bill", "BILL 2024/001", []byte("<!DOCTYPE html><html><body></body></html>"))

	assert.True(t, strings.HasPrefix(key, "documents/bill/"), key)
	assert.True(t, strings.HasSuffix(key, ".html"), key)
	assert.Contains(t, key, "BILL-2024-001-")
	assert.True(t, strings.HasPrefix(ContentType([]byte("<html><body>x</body></html>")), "text/html"))
}
