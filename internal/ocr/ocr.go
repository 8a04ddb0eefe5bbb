// Package ocr turns uploaded fiscal documents (PDF or image bytes) into
// plain text. Providers are interchangeable behind the Extractor interface.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"
)

// Supported file type markers.
const (
	TypePDF  = "pdf"
	TypeJPG  = "jpg"
	TypeJPEG = "jpeg"
	TypePNG  = "png"
)

// Extractor extracts text from a document's raw bytes. The fileType marker
// is the lower-cased extension; anything outside pdf/jpg/jpeg/png is a
// fatal input error at this boundary.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte, fileType, lang string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider      string // "local" (default) or "mistral"
	PdfToTextPath string
	TesseractPath string
	MistralKey    string
	MistralModel  string
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg Config) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocal(cfg.PdfToTextPath, cfg.TesseractPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// supportedType reports whether the marker names a file type we can OCR.
func supportedType(fileType string) bool {
	switch fileType {
	case TypePDF, TypeJPG, TypeJPEG, TypePNG:
		return true
	}
	return false
}

// ErrUnsupportedType builds the input error for an unknown file type.
func ErrUnsupportedType(fileType string) error {
	return eris.Errorf("ocr: unsupported file type %q", fileType)
}
