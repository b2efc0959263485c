package main

import (
	"bytes"
	"fmt"
	"os/exec"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
)

// pdfMaxPages caps PDF extraction to the first pages of a document;
// the rest is never needed for classification.
const pdfMaxPages = 10

// PDFExtractor pulls plain text out of a PDF file.
type PDFExtractor interface {
	Extract(path string) (string, error)
}

// OCRBackend recognizes text in a raster image. Configured reports
// whether the backend is usable at all; an unconfigured backend is a
// valid state and image extraction then reports absent.
type OCRBackend interface {
	Configured() bool
	Recognize(path string) (string, error)
}

// decodeText decodes raw file bytes, preferring UTF-8 and falling back
// to Windows-1252 for the legacy submissions that fail it. The decoder
// is total (undefined bytes come back as U+FFFD), so there is no error
// path.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, _ := charmap.Windows1252.NewDecoder().Bytes(data)
	return string(decoded)
}

type pdfTextExtractor struct{}

func (pdfTextExtractor) Extract(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	pages := r.NumPage()
	if pages > pdfMaxPages {
		pages = pdfMaxPages
	}

	var buf bytes.Buffer
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	return buf.String(), nil
}

// tesseractOCR shells out to the tesseract binary. Page segmentation
// mode 6 (uniform text block) with English+Italian matches the kinds
// of submissions the repo receives.
type tesseractOCR struct {
	binPath string
}

func NewTesseractOCR() *tesseractOCR {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		return &tesseractOCR{}
	}
	return &tesseractOCR{binPath: path}
}

func (t *tesseractOCR) Configured() bool {
	return t.binPath != ""
}

func (t *tesseractOCR) Recognize(path string) (string, error) {
	if t.binPath == "" {
		return "", fmt.Errorf("tesseract binary not found")
	}

	cmd := exec.Command(t.binPath, path, "stdout", "--psm", "6", "-l", "eng+ita")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running tesseract: %w (%s)", err, stderr.String())
	}
	return stdout.String(), nil
}
