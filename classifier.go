package main

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// mathGlyphReplacer substitutes Unicode math glyphs and Greek letters
// with the ASCII-safe spellings the solver expects.
var mathGlyphReplacer = strings.NewReplacer(
	"×", "*",
	"÷", "/",
	"²", "^2",
	"³", "^3",
	"√", "sqrt",
	"∞", "oo",
	"≤", "<=",
	"≥", ">=",
	"≠", "!=",
	"±", "+/-",
	"π", "pi",
	"α", "alpha",
	"β", "beta",
	"γ", "gamma",
	"θ", "theta",
	"λ", "lambda",
	"μ", "mu",
	"σ", "sigma",
	"Δ", "Delta",
	"∂", "d",
)

// categoryPatterns is evaluated in order; the first match wins, so the
// slice order is the category priority.
var categoryPatterns = []struct {
	category Category
	re       *regexp.Regexp
}{
	{CategoryEquation, regexp.MustCompile(`(?i)(?:solve|find|calculate)\s+.*?=`)},
	{CategoryDerivative, regexp.MustCompile(`(?i)(?:derivative|differentiate|d/dx)`)},
	{CategoryIntegral, regexp.MustCompile(`(?i)(?:integral|integrate|∫)`)},
	{CategoryLimit, regexp.MustCompile(`(?i)(?:limit|lim|approaches)`)},
	{CategoryMatrix, regexp.MustCompile(`(?i)(?:matrix|determinant|eigenvalue|system)`)},
	{CategorySimplify, regexp.MustCompile(`(?i)(?:simplify|reduce|factor)`)},
	{CategoryGraph, regexp.MustCompile(`(?i)(?:graph|plot|sketch)`)},
	{CategoryOptimization, regexp.MustCompile(`(?i)(?:maximum|minimum|optimize|extrema)`)},
}

// commonVariables are the letters treated as unknowns when deciding
// whether bare "=" text is an equation.
var commonVariables = []string{"x", "y", "z", "t", "a", "b", "c", "n", "k", "m"}

var instructionVerbs = regexp.MustCompile(`(?i)\b(solve|find|calculate|determine|compute|evaluate|simplify)\b`)

var equationPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+\-*/^()\s]*=\s*[a-zA-Z0-9+\-*/^()\s]*`)

// expressionFallbacks are tried, in order, only when no equation-shaped
// span was found. The chain stops at the first pattern that yields a
// candidate.
var expressionFallbacks = []*regexp.Regexp{
	regexp.MustCompile(`\([a-zA-Z0-9+\-*/^().\s]+\)\([a-zA-Z0-9+\-*/^().\s]+\)`), // products like (a+b)(a-b)
	regexp.MustCompile(`[a-zA-Z0-9+\-*/^().\s]+(?:\^[0-9]+)?`),                   // general expressions
	regexp.MustCompile(`\b\d+[a-zA-Z]\b`),                                        // coefficient notation like 2x
	regexp.MustCompile(`[a-zA-Z]\([a-zA-Z0-9+\-*/^(),\s]+\)`),                    // function notation
}

// NormalizeProblemText collapses whitespace runs and substitutes math
// glyphs. It must run before both classification and extraction.
func NormalizeProblemText(text string) string {
	text = whitespaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
	return mathGlyphReplacer.Replace(text)
}

// ClassifyProblem assigns the category for normalized text. When no
// cue pattern matches, "=" alongside a known variable means equation,
// bare arithmetic operators mean simplify, anything else is general.
func ClassifyProblem(text string) Category {
	for _, entry := range categoryPatterns {
		if entry.re.MatchString(text) {
			return entry.category
		}
	}

	if strings.Contains(text, "=") {
		for _, v := range commonVariables {
			if strings.Contains(text, v) {
				return CategoryEquation
			}
		}
	}
	for _, op := range []string{"+", "-", "*", "/", "^"} {
		if strings.Contains(text, op) {
			return CategorySimplify
		}
	}
	return CategoryGeneral
}

// ExtractExpressions pulls candidate formal expressions out of
// normalized text: instruction verbs are stripped, equation-shaped
// spans are preferred, and fallback patterns are tried only when no
// equation was found. The result is deduplicated in first-seen order.
// An empty result means "nothing to solve", not an error.
func ExtractExpressions(text string) []string {
	cleaned := strings.TrimSpace(instructionVerbs.ReplaceAllString(text, ""))

	var candidates []string
	for _, match := range equationPattern.FindAllString(cleaned, -1) {
		if trimmed := strings.TrimSpace(match); len(trimmed) > 2 {
			candidates = append(candidates, trimmed)
		}
	}

	if len(candidates) == 0 {
		for _, pattern := range expressionFallbacks {
			for _, match := range pattern.FindAllString(cleaned, -1) {
				if trimmed := strings.TrimSpace(match); len(trimmed) > 2 {
					candidates = append(candidates, trimmed)
				}
			}
			if len(candidates) > 0 {
				break
			}
		}
	}

	seen := make(map[string]bool)
	var unique []string
	for _, expr := range candidates {
		if !seen[expr] {
			seen[expr] = true
			unique = append(unique, expr)
		}
	}
	return unique
}

// ClassifyAndExtract is the classifier's pipeline entry point.
func ClassifyAndExtract(rawText string) Classification {
	normalized := NormalizeProblemText(rawText)
	return Classification{
		Category:    ClassifyProblem(normalized),
		Expressions: ExtractExpressions(normalized),
	}
}
