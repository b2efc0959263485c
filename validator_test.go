package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testValidator(t *testing.T) *Validator {
	t.Helper()
	return NewValidator(Config{MaxFileSizeMB: 50})
}

func TestMathScoreBounds(t *testing.T) {
	inputs := []string{
		"",
		"Hello, how are you today?",
		"Solve x^2 - 4 = 0",
		"derivative integral matrix equation limit ∫ ∑ 2x 3+4=7",
		strings.Repeat("equation ", 200),
	}
	for _, input := range inputs {
		score := MathScore(input)
		if score < 0 || score > 1 {
			t.Errorf("MathScore(%q) = %f, out of [0,1]", input, score)
		}
	}
}

func TestMathScoreEmpty(t *testing.T) {
	if score := MathScore(""); score != 0 {
		t.Fatalf("MathScore of empty text = %f, want 0", score)
	}
	if score := MathScore("   \n\t  "); score != 0 {
		t.Fatalf("MathScore of whitespace = %f, want 0", score)
	}
}

func TestMathScoreMonotonicInKeywords(t *testing.T) {
	// Fixed word count; replacing filler words with math keywords must
	// never decrease the score.
	const totalWords = 20
	prev := -1.0
	for keywords := 0; keywords <= totalWords; keywords += 5 {
		words := make([]string, totalWords)
		for i := range words {
			if i < keywords {
				words[i] = "equation"
			} else {
				words[i] = "thing"
			}
		}
		score := MathScore(strings.Join(words, " "))
		if score < prev {
			t.Fatalf("score decreased from %f to %f at %d keywords", prev, score, keywords)
		}
		prev = score
	}
}

func TestContainsForbiddenContentCaseInsensitive(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"How to hack into systems", true},
		{"How to HACK into systems", true},
		{"The PASSWORD is hidden", true},
		{"Solve x^2 - 4 = 0", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ContainsForbiddenContent(tt.input); got != tt.want {
			t.Errorf("ContainsForbiddenContent(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestForbiddenContentOverridesScore(t *testing.T) {
	v := testValidator(t)

	// Strongly mathematical text that still trips the deny-list.
	text := "Solve the equation x^2 - 4 = 0 and compute the derivative. The password is secret."
	if MathScore(text) < 0.1 {
		t.Fatal("test premise broken: text should score above the threshold")
	}

	verdict := v.ValidateText(text)
	if verdict.Valid {
		t.Fatal("expected forbidden content to reject regardless of score")
	}
	if !strings.Contains(verdict.Reason, "inappropriate") {
		t.Fatalf("unexpected reason: %q", verdict.Reason)
	}
}

func TestValidateTextScenarioA(t *testing.T) {
	v := testValidator(t)
	verdict := v.ValidateText("Solve x^2 - 4 = 0")
	if !verdict.Valid {
		t.Fatalf("expected valid verdict, got reason %q", verdict.Reason)
	}
	if verdict.Score < 0.1 {
		t.Fatalf("score = %f, want >= 0.1", verdict.Score)
	}
}

func TestValidateTextScenarioB(t *testing.T) {
	v := testValidator(t)
	verdict := v.ValidateText("Hello, how are you today?")
	if verdict.Valid {
		t.Fatal("expected small talk to be rejected")
	}
	if verdict.Score >= 0.1 {
		t.Fatalf("score = %f, want < 0.1", verdict.Score)
	}
	if !strings.Contains(verdict.Reason, "Insufficient mathematical content") {
		t.Fatalf("unexpected reason: %q", verdict.Reason)
	}
}

func TestValidateTextEmpty(t *testing.T) {
	v := testValidator(t)
	verdict := v.ValidateText("   ")
	if verdict.Valid {
		t.Fatal("expected empty content to be rejected")
	}
}

func TestValidateSafetyExtensionGate(t *testing.T) {
	v := testValidator(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "problem.txt")
	if err := os.WriteFile(good, []byte("solve x = 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if ok, reason := v.ValidateSafety(good); !ok {
		t.Fatalf("expected .txt to pass safety, got: %s", reason)
	}

	bad := filepath.Join(dir, "payload.exe")
	if err := os.WriteFile(bad, []byte("MZ"), 0644); err != nil {
		t.Fatal(err)
	}
	if ok, _ := v.ValidateSafety(bad); ok {
		t.Fatal("expected .exe to fail safety")
	}

	if ok, _ := v.ValidateSafety(filepath.Join(dir, "missing.txt")); ok {
		t.Fatal("expected missing file to fail safety")
	}
}

func TestValidateFile(t *testing.T) {
	v := testValidator(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "problem.txt")
	if err := os.WriteFile(path, []byte("Solve the equation x + 2 = 5"), 0644); err != nil {
		t.Fatal(err)
	}

	verdict := v.Validate(path)
	if !verdict.Valid {
		t.Fatalf("expected valid verdict, got reason %q", verdict.Reason)
	}

	missing := v.Validate(filepath.Join(dir, "gone.txt"))
	if missing.Valid {
		t.Fatal("expected missing file to be invalid")
	}
	if !strings.Contains(missing.Reason, "File not found") {
		t.Fatalf("unexpected reason: %q", missing.Reason)
	}
}

func TestValidateOversizeFile(t *testing.T) {
	v := NewValidator(Config{MaxFileSizeMB: 1})
	dir := t.TempDir()

	path := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(path, make([]byte, 2*1024*1024), 0644); err != nil {
		t.Fatal(err)
	}

	verdict := v.Validate(path)
	if verdict.Valid {
		t.Fatal("expected oversize file to be invalid")
	}
	if !strings.Contains(verdict.Reason, "File too large") {
		t.Fatalf("unexpected reason: %q", verdict.Reason)
	}
}

func TestDecodeTextEncodingFallback(t *testing.T) {
	utf8Text := decodeText([]byte("piano di studio: più x"))
	if !strings.Contains(utf8Text, "più") {
		t.Fatalf("unexpected utf-8 result: %q", utf8Text)
	}

	// "più" in Latin-1: 0xF9 is ù, invalid as UTF-8.
	latin1 := []byte{'p', 'i', 0xF9, ' ', 'x'}
	if decoded := decodeText(latin1); !strings.Contains(decoded, "ù") {
		t.Fatalf("unexpected latin-1 result: %q", decoded)
	}

	// Bytes undefined in Windows-1252 decode to the replacement rune
	// instead of failing the file.
	undefined := []byte{'x', 0x81, 'y'}
	if decoded := decodeText(undefined); !strings.Contains(decoded, "x") || !strings.Contains(decoded, "y") {
		t.Fatalf("unexpected result for undefined bytes: %q", decoded)
	}
}

func TestExtractTextPlainFile(t *testing.T) {
	v := testValidator(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "p.md")
	if err := os.WriteFile(path, []byte("simplify 2x + 4x"), 0644); err != nil {
		t.Fatal(err)
	}

	text, ok := v.ExtractText(path, ".md")
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if text != "simplify 2x + 4x" {
		t.Fatalf("unexpected text: %q", text)
	}

	if _, ok := v.ExtractText(path, ".exe"); ok {
		t.Fatal("expected unsupported extension to report absent")
	}
}
