package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// Solver is the solve capability. Implementations must never fail out
// of band: every failure is encoded in the returned SolutionResult.
type Solver interface {
	Solve(ctx context.Context, category Category, expressions []string, problemText, fileName string) SolutionResult
}

func NewSolver(cfg Config) Solver {
	if cfg.AnthropicAPIKey == "" {
		log.Println("Solver not configured (anthropic_api_key not set)")
		return nullSolver{}
	}
	return &AnthropicSolver{apiKey: cfg.AnthropicAPIKey, model: cfg.AnthropicModel, timeout: cfg.SolveTimeout()}
}

// nullSolver stands in when no API key is configured; it reports every
// problem as unsolved rather than guessing.
type nullSolver struct{}

func (nullSolver) Solve(_ context.Context, category Category, expressions []string, problemText, fileName string) SolutionResult {
	return SolutionResult{
		Success:      false,
		Category:     category,
		OriginalText: problemText,
		Expressions:  expressions,
		ErrorMessage: "solver not configured",
		CompletedAt:  time.Now(),
		FileName:     fileName,
	}
}

// AnthropicSolver routes classified problems to the Anthropic Messages
// API under a JSON-only response contract.
type AnthropicSolver struct {
	apiKey  string
	model   string
	timeout time.Duration
}

type solverResponse struct {
	Solved   bool      `json:"solved"`
	Solution string    `json:"solution"`
	Steps    []string  `json:"steps"`
	Numeric  []float64 `json:"numeric"`
	Error    string    `json:"error"`
}

const solverSystemPrompt = `You are a symbolic mathematics engine. You receive a problem category and a list of extracted expressions, and you solve them exactly.

Rules:
- Show every algebraic step.
- If the problem cannot be solved from the given expressions, set "solved" to false and explain why in "error".
- Include numeric values in "numeric" only when solutions evaluate to real numbers.

Respond with JSON only (no markdown):
{"solved": true, "solution": "x = 2 or x = -2", "steps": ["step 1", "step 2"], "numeric": [2, -2], "error": ""}`

func (s *AnthropicSolver) Solve(ctx context.Context, category Category, expressions []string, problemText, fileName string) SolutionResult {
	start := time.Now()

	result := SolutionResult{
		Category:     category,
		OriginalText: problemText,
		Expressions:  expressions,
		FileName:     fileName,
	}

	fail := func(msg string) SolutionResult {
		result.Success = false
		result.ErrorMessage = msg
		result.Elapsed = time.Since(start)
		result.CompletedAt = time.Now()
		return result
	}

	if len(expressions) == 0 {
		return fail("no expressions to solve")
	}

	var userPrompt strings.Builder
	fmt.Fprintf(&userPrompt, "Category: %s\n\nExpressions:\n", category)
	for _, expr := range expressions {
		fmt.Fprintf(&userPrompt, "- %s\n", expr)
	}
	fmt.Fprintf(&userPrompt, "\nProblem statement:\n%s\n", problemText)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client := anthropic.NewClient(option.WithAPIKey(s.apiKey))
	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: solverSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt.String())),
		},
	})
	if err != nil {
		log.Printf("solver anthropic error file=%s: %v", fileName, err)
		return fail(fmt.Sprintf("Anthropic API error: %v", err))
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return fail("no text content in Anthropic response")
	}
	log.Printf("solver anthropic response file=%s size=%d tokens_in=%d tokens_out=%d",
		fileName, len(responseText), message.Usage.InputTokens, message.Usage.OutputTokens)

	parsed, err := parseSolverResponse(responseText)
	if err != nil {
		return fail(err.Error())
	}
	if !parsed.Solved {
		msg := parsed.Error
		if msg == "" {
			msg = "solver could not solve the problem"
		}
		return fail(msg)
	}

	result.Success = true
	result.Solution = parsed.Solution
	result.Steps = parsed.Steps
	result.Numeric = parsed.Numeric
	result.Elapsed = time.Since(start)
	result.CompletedAt = time.Now()
	return result
}

func parseSolverResponse(responseText string) (*solverResponse, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var parsed solverResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		truncated := responseText
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(responseText))
		}
		return nil, fmt.Errorf("parsing solver response: %w (truncated response: %s)", err, truncated)
	}
	return &parsed, nil
}
