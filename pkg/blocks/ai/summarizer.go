package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/appforge/flowcore/pkg/runfail"
)

// OpenAISummarizer condenses text through the chat completion API.
type OpenAISummarizer struct {
	client *openai.Client
	model  string
}

func NewOpenAISummarizer(apiKey, model string) *OpenAISummarizer {
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAISummarizer{client: openai.NewClient(apiKey), model: model}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	if maxWords <= 0 {
		maxWords = 100
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Summarize the user's text in at most %d words. Reply with the summary only.", maxWords),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	})
	if err != nil {
		return "", runfail.Wrap(runfail.CodeExternalService, fmt.Errorf("summarization failed: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", runfail.New(runfail.CodeExternalService, "summarization returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
