package assist

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// GeminiProvider summarizes exceptions via the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	usage  Usage
}

// NewGeminiProvider creates a provider with the given API key.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

// GetUsage returns the accumulated token usage.
func (p *GeminiProvider) GetUsage() *Usage {
	return &p.usage
}

// SummarizeExceptions drafts an approver digest of the pending requests.
func (p *GeminiProvider) SummarizeExceptions(ctx context.Context, items []PendingItem) (string, error) {
	if len(items) == 0 {
		return "No pending exception requests.", nil
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: digestPrompt + "\n\n" + formatItems(items)}},
		},
	}

	result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if result.UsageMetadata != nil {
		p.usage.InputTokens += int(result.UsageMetadata.PromptTokenCount)
		p.usage.OutputTokens += int(result.UsageMetadata.CandidatesTokenCount)
	}

	content := result.Text()
	if content == "" {
		return "", errors.New("no response from Gemini")
	}
	return content, nil
}
