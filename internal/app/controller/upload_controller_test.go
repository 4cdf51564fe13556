package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiplystart/kiplystart-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	folder string
	err    error
}

func (p *fakePresigner) PresignUpload(_ context.Context, folder, filename, contentType string) (*storage.PresignedUpload, error) {
	if p.err != nil {
		return nil, p.err
	}
	if _, ok := storage.ImageContentTypes[contentType]; !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrContentTypeNotAllowed, contentType)
	}
	p.folder = folder
	key := folder + "/abc.jpg"
	return &storage.PresignedUpload{
		UploadURL: "https://bucket.s3.amazonaws.com/" + key + "?X-Amz-Signature=sig",
		FileURL:   "https://cdn.kiplystart.com/" + key,
		Key:       key,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func setupUploadControllerTest(presigner Presigner) *gin.Engine {
	ctrl := NewUploadController(presigner)
	router := newTestRouter()
	router.POST("/uploads/presigned-url", ctrl.GeneratePresignedURL)
	return router
}

func TestUploadController_GeneratePresignedURL(t *testing.T) {
	presigner := &fakePresigner{}
	router := setupUploadControllerTest(presigner)

	w := doJSON(router, http.MethodPost, "/uploads/presigned-url", gin.H{"filename": "serum.jpg", "content_type": "image/jpeg"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	upload := decodeBody(t, w)["upload"].(map[string]interface{})
	assert.Equal(t, "products/abc.jpg", upload["key"])
	assert.Equal(t, "https://cdn.kiplystart.com/products/abc.jpg", upload["file_url"])
	assert.Equal(t, "products", presigner.folder)

	tests := []struct {
		name     string
		body     gin.H
		wantCode int
		wantErr  string
	}{
		{"pdf rejected", gin.H{"filename": "a.pdf", "content_type": "application/pdf"}, http.StatusBadRequest, "UPLOAD_INVALID_FILE_TYPE"},
		{"unknown folder", gin.H{"filename": "a.jpg", "content_type": "image/jpeg", "folder": "../secrets"}, http.StatusBadRequest, "VALIDATION_INVALID_INPUT"},
		{"missing filename", gin.H{"content_type": "image/jpeg"}, http.StatusBadRequest, "VALIDATION_INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/uploads/presigned-url", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantErr, decodeBody(t, w)["error"])
		})
	}
}

func TestUploadController_Failures(t *testing.T) {
	w := doJSON(setupUploadControllerTest(&fakePresigner{err: errors.New("no credentials")}),
		http.MethodPost, "/uploads/presigned-url", gin.H{"filename": "a.jpg", "content_type": "image/jpeg"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "UPLOAD_FAILED", decodeBody(t, w)["error"])

	w = doJSON(setupUploadControllerTest(nil),
		http.MethodPost, "/uploads/presigned-url", gin.H{"filename": "a.jpg", "content_type": "image/jpeg"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
