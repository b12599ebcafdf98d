package assist

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

//go:embed prompts/digest.txt
var digestPrompt string

const chatModel = openai.ChatModelGPT4_1Mini

// OpenAIProvider summarizes exceptions via the OpenAI chat API.
type OpenAIProvider struct {
	client *openai.Client
	usage  Usage
}

// NewOpenAIProvider creates a provider with the given API key.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client}
}

func (p *OpenAIProvider) Name() string {
	return chatModel
}

// GetUsage returns the accumulated token usage.
func (p *OpenAIProvider) GetUsage() *Usage {
	return &p.usage
}

// SummarizeExceptions drafts an approver digest of the pending requests.
func (p *OpenAIProvider) SummarizeExceptions(ctx context.Context, items []PendingItem) (string, error) {
	if len(items) == 0 {
		return "No pending exception requests.", nil
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(digestPrompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(formatItems(items)),
					},
				},
			},
		},
		MaxTokens: openai.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		p.usage.InputTokens += int(resp.Usage.PromptTokens)
		p.usage.OutputTokens += int(resp.Usage.CompletionTokens)
	}

	return resp.Choices[0].Message.Content, nil
}
