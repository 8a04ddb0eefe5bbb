package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractor_Local(t *testing.T) {
	ext, err := NewExtractor(Config{Provider: "local"})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, ext)
}

func TestNewExtractor_LocalDefault(t *testing.T) {
	ext, err := NewExtractor(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, ext)
}

func TestNewExtractor_MistralMissingKey(t *testing.T) {
	_, err := NewExtractor(Config{Provider: "mistral"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral provider requires mistral_api_key")
}

func TestNewExtractor_MistralWithKey(t *testing.T) {
	ext, err := NewExtractor(Config{Provider: "mistral", MistralKey: "test-key"})
	require.NoError(t, err)
	assert.IsType(t, &MistralOCR{}, ext)
}

func TestNewExtractor_UnknownProvider(t *testing.T) {
	_, err := NewExtractor(Config{Provider: "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "unknown"`)
}

func TestLocal_UnsupportedType(t *testing.T) {
	l := NewLocal("", "")
	_, err := l.ExtractText(context.Background(), []byte("data"), "docx", "por")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported file type "docx"`)
}

func TestLocal_DefaultBinPaths(t *testing.T) {
	l := NewLocal("", "")
	assert.Equal(t, "pdftotext", l.pdfToTextPath)
	assert.Equal(t, "tesseract", l.tesseractPath)

	l = NewLocal("/custom/pdftotext", "/custom/tesseract")
	assert.Equal(t, "/custom/pdftotext", l.pdfToTextPath)
	assert.Equal(t, "/custom/tesseract", l.tesseractPath)
}

func TestMistralOCR_DefaultModel(t *testing.T) {
	m := NewMistralOCR("key", "")
	assert.Equal(t, defaultMistralModel, m.model)
	assert.Equal(t, mistralOCREndpoint, m.endpoint)
}

func TestMistralOCR_ExtractText(t *testing.T) {
	var gotReq mistralOCRRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := mistralOCRResponse{Pages: []mistralOCRPage{
			{Index: 0, Markdown: "page one"},
			{Index: 1, Markdown: "page two"},
		}}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	m := NewMistralOCR("test-key", "")
	m.endpoint = srv.URL

	text, err := m.ExtractText(context.Background(), []byte("%PDF-1.4"), TypePDF, "por")
	require.NoError(t, err)
	assert.Equal(t, "page one\n\npage two", text)
	assert.Equal(t, "document_url", gotReq.Document.Type)
	assert.True(t, strings.HasPrefix(gotReq.Document.DocumentURL, "data:application/pdf;base64,"))
}

func TestMistralOCR_ImagePayload(t *testing.T) {
	var gotReq mistralOCRRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(mistralOCRResponse{}) //nolint:errcheck
	}))
	defer srv.Close()

	m := NewMistralOCR("test-key", "")
	m.endpoint = srv.URL

	_, err := m.ExtractText(context.Background(), []byte{0x89, 'P', 'N', 'G'}, TypePNG, "por")
	require.NoError(t, err)
	assert.Equal(t, "image_url", gotReq.Document.Type)
	assert.True(t, strings.HasPrefix(gotReq.Document.ImageURL, "data:image/png;base64,"))
}

func TestMistralOCR_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewMistralOCR("bad-key", "")
	m.endpoint = srv.URL

	_, err := m.ExtractText(context.Background(), []byte("%PDF"), TypePDF, "por")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
