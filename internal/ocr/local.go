package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Local extracts text with command-line tools: pdftotext for PDFs and
// tesseract for images.
type Local struct {
	pdfToTextPath string
	tesseractPath string
}

// NewLocal creates a Local extractor. Empty paths fall back to the tool
// names, resolved via PATH.
func NewLocal(pdfToTextPath, tesseractPath string) *Local {
	if pdfToTextPath == "" {
		pdfToTextPath = "pdftotext"
	}
	if tesseractPath == "" {
		tesseractPath = "tesseract"
	}
	return &Local{pdfToTextPath: pdfToTextPath, tesseractPath: tesseractPath}
}

// ExtractText dispatches on fileType: pdftotext -layout for PDFs,
// tesseract for jpg/jpeg/png.
func (l *Local) ExtractText(ctx context.Context, data []byte, fileType, lang string) (string, error) {
	if !supportedType(fileType) {
		return "", ErrUnsupportedType(fileType)
	}

	// Both tools want a file on disk; neither handles every input well on
	// stdin across versions.
	tmp, err := writeTemp(data, fileType)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp) //nolint:errcheck

	if fileType == TypePDF {
		return l.runPdfToText(ctx, tmp)
	}
	return l.runTesseract(ctx, tmp, lang)
}

func (l *Local) runPdfToText(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, l.pdfToTextPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed: %s", stderr.String())
	}
	return stdout.String(), nil
}

func (l *Local) runTesseract(ctx context.Context, path, lang string) (string, error) {
	if lang == "" {
		lang = "por"
	}
	cmd := exec.CommandContext(ctx, l.tesseractPath, path, "stdout", "-l", lang)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: tesseract failed: %s", stderr.String())
	}
	return stdout.String(), nil
}

func writeTemp(data []byte, fileType string) (string, error) {
	f, err := os.CreateTemp("", "agent-ocr-*."+fileType)
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp file")
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name) //nolint:errcheck
		return "", eris.Wrap(err, "ocr: write temp file")
	}
	if err := f.Close(); err != nil {
		os.Remove(name) //nolint:errcheck
		return "", eris.Wrap(err, "ocr: close temp file")
	}
	return filepath.Clean(name), nil
}
