package translate

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAITranslator struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAITranslator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAITranslator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (t *OpenAITranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(
					"You translate live captions from %s to %s. "+
						"Reply with the translation only, no comments, no quotes. "+
						"The input may be a mid-sentence fragment; translate it as-is.",
					source, target),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("translating to %s: %w", target, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("translating to %s: empty response", target)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
