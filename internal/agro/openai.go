package agro

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/agrihub/farm-backend/internal/weather"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You are an expert agricultural advisor. Always respond with valid JSON."

// Models sometimes wrap JSON in prose; this pulls out the first object.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// OpenAIAdvisor implements Advisor using the OpenAI chat completions API.
type OpenAIAdvisor struct {
	client openai.Client
	model  string
}

// NewOpenAIAdvisor builds an advisor. A missing API key is a configuration
// error and fails here, at construction, rather than on first use.
func NewOpenAIAdvisor(apiKey, model string) (*OpenAIAdvisor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("agro: openai api key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIAdvisor{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (a *OpenAIAdvisor) Suggest(ctx context.Context, snap weather.Snapshot) (Suggestion, error) {
	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(snap)),
		},
		MaxTokens:   openai.Int(500),
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Suggestion{}, fmt.Errorf("openai completion returned no choices")
	}

	return parseAdvisorResponse(completion.Choices[0].Message.Content, snap)
}

func buildPrompt(snap weather.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following weather data and provide farming recommendations.\n\n")
	fmt.Fprintf(&b, "Location: %s\n", snap.Location)
	fmt.Fprintf(&b, "Current Conditions:\n")
	fmt.Fprintf(&b, "- Temperature: %.1f°C\n", snap.Temperature)
	fmt.Fprintf(&b, "- Humidity: %.0f%%\n", snap.Humidity)
	fmt.Fprintf(&b, "- Atmospheric Pressure: %.0f hPa\n", snap.Pressure)
	fmt.Fprintf(&b, "- Weather Description: %s\n", snap.Description)
	fmt.Fprintf(&b, "- Data Timestamp: %s\n\n", snap.Timestamp.Format("2006-01-02 15:04 MST"))
	b.WriteString(`Please provide:
1. 3-5 specific agricultural recommendations based on these conditions
2. Priority level (low/medium/high/urgent)
3. Confidence level (0.0 to 1.0)
4. Brief reasoning for your recommendations

Focus on practical actions like irrigation, fertilization, pest control, harvesting timing, or protective measures.

Respond in JSON format:
{
    "suggestions": ["suggestion 1", "suggestion 2", "suggestion 3"],
    "priority": "medium",
    "confidence": 0.85,
    "reasoning": "Brief explanation of why these suggestions are recommended"
}`)
	return b.String()
}

// parseAdvisorResponse turns the raw model output into a Suggestion. A
// response that cannot be parsed as JSON, even after extracting an embedded
// object, is treated the same as an upstream failure.
func parseAdvisorResponse(raw string, snap weather.Snapshot) (Suggestion, error) {
	var payload struct {
		Suggestions []string `json:"suggestions"`
		Priority    string   `json:"priority"`
		Confidence  float64  `json:"confidence"`
		Reasoning   string   `json:"reasoning"`
	}

	content := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		match := jsonObjectPattern.FindString(content)
		if match == "" {
			return Suggestion{}, fmt.Errorf("could not parse advisor response as JSON")
		}
		if err := json.Unmarshal([]byte(match), &payload); err != nil {
			return Suggestion{}, fmt.Errorf("could not parse advisor response as JSON: %w", err)
		}
	}

	if len(payload.Suggestions) == 0 {
		return Suggestion{}, fmt.Errorf("advisor response contained no suggestions")
	}

	sug := newSuggestion(snap.Location, snap)
	for _, item := range payload.Suggestions {
		item = strings.TrimSpace(item)
		if item != "" {
			sug.Suggestions = append(sug.Suggestions, item)
		}
	}
	sug.Priority = ParsePriority(payload.Priority)
	sug.Reasoning = strings.TrimSpace(payload.Reasoning)

	if payload.Confidence >= 0 && payload.Confidence <= 1 {
		sug.Confidence = payload.Confidence
	} else {
		sug.Confidence = 0.5
	}

	return sug, nil
}
