package main

import (
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// mathKeywords is the curated vocabulary used for relevance scoring.
// Longer keywords weigh more (1 + len/10 per occurrence).
var mathKeywords = []string{
	// Basic math terms
	"solve", "equation", "calculate", "find", "prove", "show",
	"determine", "compute", "evaluate", "simplify",

	// Algebra
	"algebra", "polynomial", "quadratic", "linear", "variable",
	"coefficient", "factor", "expand", "expression",

	// Calculus
	"calculus", "derivative", "integral", "limit", "continuity",
	"differentiate", "integrate", "optimization", "chain rule",

	// Geometry
	"geometry", "triangle", "circle", "angle", "area", "volume",
	"perimeter", "theorem", "proof", "coordinate", "vector",

	// Trigonometry
	"trigonometry", "sin", "cos", "tan", "sine", "cosine", "tangent",
	"radian", "degree", "amplitude", "period", "frequency",

	// Statistics and probability
	"statistics", "probability", "mean", "median", "mode", "variance",
	"standard deviation", "distribution", "sample", "population",
	"correlation", "regression", "hypothesis",

	// Advanced math
	"matrix", "determinant", "eigenvalue", "eigenvector", "linear algebra",
	"differential equation", "partial derivative", "series", "sequence",
	"convergence", "divergence", "fourier", "laplace",

	// Symbols and operators
	"∫", "∑", "∏", "∂", "∇", "∆", "lim", "max", "min", "log", "ln",
	"√", "∞", "≤", "≥", "≠", "≈", "∈", "∉", "⊂", "⊆", "∪", "∩",

	// Units and measurements
	"meter", "centimeter", "kilometer", "gram", "kilogram", "second",
	"minute", "hour", "degree celsius", "fahrenheit", "kelvin",
}

// italianMathKeywords extends the vocabulary for Italian submissions.
var italianMathKeywords = []string{
	"risolvere", "equazione", "calcolare", "trovare", "dimostrare",
	"determinare", "semplificare", "algebra", "geometria", "calcolo",
	"derivata", "integrale", "limite", "funzione", "grafico",
	"triangolo", "cerchio", "angolo", "area", "volume", "perimetro",
	"statistica", "probabilità", "media", "mediana", "varianza",
	"matrice", "determinante", "vettore", "polinomio", "radice",
}

var allMathKeywords = append(append([]string{}, mathKeywords...), italianMathKeywords...)

// forbiddenKeywords holds topics that fail validation immediately,
// independent of the relevance score.
var forbiddenKeywords = []string{
	"hack", "crack", "exploit", "malware", "virus", "password",
	"personal", "private", "confidential", "secret", "illegal",
	"violence", "weapon", "drug", "adult", "explicit",
}

// symbolPatterns match structural math notation. Each match counts
// double compared to a keyword occurrence.
var symbolPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+\s*[+\-*/=]\s*\d+`), // basic arithmetic
	regexp.MustCompile(`[xy]\s*[+\-]\s*\d+`),   // variables with numbers
	regexp.MustCompile(`\b\d+x\b`),             // coefficient notation
	regexp.MustCompile(`[a-z]\(\w+\)`),         // function notation
	regexp.MustCompile(`\b\d+/\d+\b`),          // fractions
	regexp.MustCompile(`\^\d+`),                // exponents
	regexp.MustCompile(`√\d+`),                 // square roots
	regexp.MustCompile(`∫|∑|∏|∂|∇|∆`),          // math symbols
	regexp.MustCompile(`[≤≥≠≈∈∉⊂⊆∪∩]`),         // math operators
}

var wordPattern = regexp.MustCompile(`\b\w+\b`)

var (
	supportedImageTypes = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif"}
	supportedTextTypes  = []string{".txt", ".md", ".tex"}
	supportedPDFTypes   = []string{".pdf"}
)

var safeMIMETypes = []string{
	"text/plain", "text/markdown", "application/pdf", "application/x-tex",
	"image/jpeg", "image/png", "image/bmp", "image/tiff", "image/gif",
}

const minMathScore = 0.1

// Validator gates submitted files before any expensive processing:
// safety checks first, then text extraction, then a forbidden-content
// scan and relevance scoring on the extracted text.
type Validator struct {
	maxFileSizeMB int
	pdf           PDFExtractor
	ocr           OCRBackend
}

func NewValidator(cfg Config) *Validator {
	return &Validator{
		maxFileSizeMB: cfg.MaxFileSizeMB,
		pdf:           pdfTextExtractor{},
		ocr:           NewTesseractOCR(),
	}
}

// ValidateSafety checks existence, readability, MIME type and file
// extension against the allow-lists. It runs before any extraction.
func (v *Validator) ValidateSafety(path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, "File does not exist"
	}
	if info.IsDir() {
		return false, "File is a directory"
	}

	f, err := os.Open(path)
	if err != nil {
		return false, "File is not readable"
	}
	f.Close()

	ext := strings.ToLower(filepath.Ext(path))

	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		if base, _, err := mime.ParseMediaType(mimeType); err == nil {
			mimeType = base
		}
		if !containsString(safeMIMETypes, mimeType) {
			return false, fmt.Sprintf("Unsafe MIME type: %s", mimeType)
		}
	}

	if !containsString(supportedImageTypes, ext) &&
		!containsString(supportedTextTypes, ext) &&
		!containsString(supportedPDFTypes, ext) {
		return false, fmt.Sprintf("Unsafe file extension: %s", ext)
	}

	return true, "File is safe to process"
}

// ExtractText pulls text out of the file, dispatching on extension.
// Extraction failures report absent (ok=false) instead of an error so
// a bad file never aborts the batch.
func (v *Validator) ExtractText(path, ext string) (string, bool) {
	switch {
	case containsString(supportedTextTypes, ext):
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("extract read error path=%s: %v", path, err)
			return "", false
		}
		return decodeText(data), true

	case containsString(supportedImageTypes, ext):
		if !v.ocr.Configured() {
			log.Printf("extract skipped path=%s: OCR backend not configured", path)
			return "", false
		}
		text, err := v.ocr.Recognize(path)
		if err != nil {
			log.Printf("extract ocr error path=%s: %v", path, err)
			return "", false
		}
		return strings.TrimSpace(text), true

	case containsString(supportedPDFTypes, ext):
		text, err := v.pdf.Extract(path)
		if err != nil {
			log.Printf("extract pdf error path=%s: %v", path, err)
			return "", false
		}
		return strings.TrimSpace(text), true

	default:
		log.Printf("extract unsupported type path=%s ext=%s", path, ext)
		return "", false
	}
}

// ContainsForbiddenContent scans text, case-insensitively, against the
// deny-list. Any hit rejects the content regardless of its score.
func ContainsForbiddenContent(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range forbiddenKeywords {
		if strings.Contains(lower, keyword) {
			log.Printf("forbidden keyword found: %s", keyword)
			return true
		}
	}
	return false
}

// MathScore estimates how mathematical a text is, in [0,1]. Keyword
// occurrences are weighted by keyword length, structural pattern
// matches count double, and the total is normalized against half the
// word count.
func MathScore(text string) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := wordPattern.FindAllString(lower, -1)
	if len(words) == 0 {
		return 0
	}

	var keywordScore float64
	for _, keyword := range allMathKeywords {
		if n := strings.Count(lower, keyword); n > 0 {
			weight := float64(utf8.RuneCountInString(keyword))/10.0 + 1.0
			keywordScore += float64(n) * weight
		}
	}

	var symbolScore float64
	for _, pattern := range symbolPatterns {
		symbolScore += float64(len(pattern.FindAllString(text, -1))) * 2
	}

	maxPossible := float64(len(words)) * 0.5
	score := (keywordScore + symbolScore) / maxPossible
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Validate composes the full content check for a downloaded file.
// Cheap gates (existence, size) run before extraction; the forbidden
// scan and scoring run only on successfully extracted text.
func (v *Validator) Validate(path string) ValidationVerdict {
	info, err := os.Stat(path)
	if err != nil {
		return ValidationVerdict{Valid: false, Reason: fmt.Sprintf("File not found: %s", path)}
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	if sizeMB > float64(v.maxFileSizeMB) {
		return ValidationVerdict{
			Valid:  false,
			Reason: fmt.Sprintf("File too large: %.1fMB (max %dMB)", sizeMB, v.maxFileSizeMB),
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	text, ok := v.ExtractText(path, ext)
	if !ok || strings.TrimSpace(text) == "" {
		return ValidationVerdict{Valid: false, Reason: "Could not extract text content from file"}
	}

	return v.ValidateText(text)
}

// ValidateText is the text-level half of Validate, used directly when
// the content is already in hand.
func (v *Validator) ValidateText(text string) ValidationVerdict {
	if strings.TrimSpace(text) == "" {
		return ValidationVerdict{Valid: false, Reason: "Empty or whitespace-only content"}
	}

	if ContainsForbiddenContent(text) {
		return ValidationVerdict{Valid: false, Reason: "File contains inappropriate content"}
	}

	score := MathScore(text)
	if score < minMathScore {
		return ValidationVerdict{
			Valid:  false,
			Score:  score,
			Reason: fmt.Sprintf("Insufficient mathematical content (score: %.2f)", score),
		}
	}

	return ValidationVerdict{
		Valid:  true,
		Score:  score,
		Reason: fmt.Sprintf("Valid mathematical content (score: %.2f)", score),
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
