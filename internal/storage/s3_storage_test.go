package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, baseURL string) *S3Storage {
	s, err := NewS3Storage(context.Background(), "us-east-1", "kiply-test", "AKIATEST", "secret", baseURL)
	require.NoError(t, err)
	return s
}

func TestPresignUpload(t *testing.T) {
	s := newTestStorage(t, "")

	up, err := s.PresignUpload(context.Background(), "products", "foto.PNG", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.Key, "products/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, "https://kiply-test.s3.us-east-1.amazonaws.com/"+up.Key, up.FileURL)

	u, err := url.Parse(up.UploadURL)
	require.NoError(t, err)
	assert.Contains(t, u.Host, "kiply-test")
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignUpload_RejectsNonImages(t *testing.T) {
	s := newTestStorage(t, "")

	_, err := s.PresignUpload(context.Background(), "products", "doc.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrContentTypeNotAllowed)
}

func TestFileURL_WithCDN(t *testing.T) {
	s := newTestStorage(t, "https://cdn.kiplystart.com/")
	assert.Equal(t, "https://cdn.kiplystart.com/products/a.jpg", s.FileURL("products/a.jpg"))
}
