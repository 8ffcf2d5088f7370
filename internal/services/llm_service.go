package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/justsurfingit/jobtrack/internal/apperr"
	"github.com/justsurfingit/jobtrack/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// LLMService is the classifier gateway: it wraps the hosted Gemini model
// and turns raw email text into a validated ClassificationResult.
// Malformed model output is rejected here, behind apperr.ErrGateway,
// so untyped payloads never reach the reconciler.
type LLMService struct {
	Client llms.Model
}

func NewLLMService() *LLMService {
	ctx := context.Background()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("CRITICAL ERROR: GEMINI_API_KEY is empty. Did you load the .env file?")
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel("gemini-2.5-flash"),
	)
	if err != nil {
		log.Fatal("Failed to create Gemini client:", err)
	}

	return &LLMService{Client: llm}
}

const classificationPrompt = `
You are an expert email classifier for a job application tracking system. Analyze the following email and provide a detailed classification.

From: %s
Subject: %s
Content: %s

Respond with a JSON object containing:

1. "category": One of:
   - "job_interview": Email is scheduling/confirming an actual job interview
   - "job_application": Email is about a job application (confirmation, status update)
   - "promotional": Email is promotional/marketing from job boards, recruiting agencies
   - "irrelevant": Email is not related to job searching

2. "confidence": Float between 0.0 and 1.0 indicating your confidence in the classification

3. "reasoning": Brief explanation of your classification decision

4. "company": The actual company name (not job board) if identifiable, or null

5. "role": The job role/position if mentioned, or null

6. "interview_scheduled": Boolean - true if this email is scheduling a specific interview

7. "status_suggestion": One of "applied", "interview_scheduled", "interviewed", "rejected", "offer", "accepted"

Focus on:
- Is this from an actual company or a job board/recruiting platform?
- Does it contain specific interview scheduling details?
- Is the language personalized or generic/mass-marketing?

Respond ONLY with valid JSON, no other text.
`

const maxEmailContentLen = 2000

// ClassifyEmail runs one email through the model. This is the only call
// in the pipeline with real latency; callers must issue it before
// touching the store, never while holding a transaction.
func (s *LLMService) ClassifyEmail(ctx context.Context, from, subject, body string) (*ClassificationResult, error) {
	if len(body) > maxEmailContentLen {
		body = body[:maxEmailContentLen] + "... [truncated]"
	}

	prompt := fmt.Sprintf(classificationPrompt, from, subject, body)
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrGateway, err)
	}
	return parseClassification(resp)
}

// classificationPayload mirrors the JSON schema the prompt asks for.
type classificationPayload struct {
	Category           string  `json:"category"`
	Confidence         float64 `json:"confidence"`
	Reasoning          string  `json:"reasoning"`
	Company            string  `json:"company"`
	Role               string  `json:"role"`
	InterviewScheduled bool    `json:"interview_scheduled"`
	StatusSuggestion   string  `json:"status_suggestion"`
}

// parseClassification validates the raw model response. Gemini often
// wraps JSON in a markdown fence despite instructions, so strip that
// before decoding.
func parseClassification(raw string) (*ClassificationResult, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var p classificationPayload
	if err := json.Unmarshal([]byte(clean), &p); err != nil {
		return nil, fmt.Errorf("%w: response is not valid JSON: %v", apperr.ErrGateway, err)
	}

	cat := Category(p.Category)
	if !cat.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", apperr.ErrGateway, p.Category)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", apperr.ErrGateway, p.Confidence)
	}

	return &ClassificationResult{
		Category:           cat,
		Confidence:         p.Confidence,
		Reasoning:          p.Reasoning,
		Company:            strings.TrimSpace(p.Company),
		Role:               strings.TrimSpace(p.Role),
		SuggestedStage:     stageForStatus(p.StatusSuggestion),
		InterviewScheduled: p.InterviewScheduled,
	}, nil
}

// stageForStatus maps the classifier's status vocabulary onto pipeline
// stages. Both "offer" and "rejected"/"accepted" land in the same
// terminal buckets the board uses. Unknown statuses map to no opinion.
func stageForStatus(status string) models.Stage {
	switch status {
	case "applied":
		return models.StageApplied
	case "interview_scheduled", "interviewed":
		return models.StageInterview
	case "offer":
		return models.StageFinal
	case "rejected", "accepted":
		return models.StageClosed
	default:
		return ""
	}
}
