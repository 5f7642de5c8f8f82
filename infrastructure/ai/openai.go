package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"priomatrix-backend/application/ports"
	appErrors "priomatrix-backend/pkg/errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

const systemPrompt = `You are a product brainstorming assistant for a priority matrix tool.
The matrix is a 520x520 canvas. X is feasibility (0 = hard, 520 = easy) and Y is value (0 = low, 520 = high).
Given a topic, respond with ONLY a JSON array of idea objects, no prose. Each object has:
  "content": short idea title (max 100 chars)
  "details": one or two sentences expanding the idea
  "x": feasibility estimate, 0-520
  "y": value estimate, 0-520
  "priority": one of "low", "moderate", "high", "strategic", "innovation"`

// OpenAISource generates idea card drafts from a chat completion model
type OpenAISource struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAISource creates an OpenAI-backed idea source
func NewOpenAISource(apiKey, model string, logger *zap.Logger) *OpenAISource {
	return &OpenAISource{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}
}

type rawDraft struct {
	Content  string  `json:"content"`
	Details  string  `json:"details"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Priority string  `json:"priority"`
}

// GenerateDrafts asks the model for count idea drafts about prompt
func (s *OpenAISource) GenerateDrafts(ctx context.Context, projectID, prompt string, count int) ([]ports.IdeaDraft, error) {
	userPrompt := fmt.Sprintf("Generate exactly %d ideas for: %s", count, prompt)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.9),
	})
	if err != nil {
		return nil, appErrors.NewUnavailableError("idea generation is temporarily unavailable", err)
	}
	if len(resp.Choices) == 0 {
		return nil, appErrors.NewUnavailableError("idea generation returned no choices", nil)
	}

	content := resp.Choices[0].Message.Content
	drafts, err := parseDrafts(content)
	if err != nil {
		s.logger.Warn("failed to parse idea drafts from model output",
			zap.String("projectID", projectID),
			zap.Error(err),
		)
		return nil, appErrors.NewUnavailableError("idea generation produced unreadable output", err)
	}

	s.logger.Info("generated idea drafts",
		zap.String("projectID", projectID),
		zap.Int("requested", count),
		zap.Int("returned", len(drafts)),
	)

	return drafts, nil
}

// parseDrafts extracts the JSON array from the model output. Models
// sometimes wrap JSON in markdown fences, so strip those first.
func parseDrafts(content string) ([]ports.IdeaDraft, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in model output")
	}

	var raw []rawDraft
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal drafts: %w", err)
	}

	drafts := make([]ports.IdeaDraft, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		drafts = append(drafts, ports.IdeaDraft{
			Content:  r.Content,
			Details:  r.Details,
			X:        r.X,
			Y:        r.Y,
			Priority: r.Priority,
		})
	}
	return drafts, nil
}
