// Package google adapts Google's Gemini API to the ChatModel interface.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Kevin180791/dob-mvp-enhanced/agent/model"
)

// DefaultModel is the Gemini model used when none is specified.
const DefaultModel = "gemini-1.5-flash"

// ChatModel wraps the official generative-ai-go client. Close it when no
// longer needed to release the underlying connection.
type ChatModel struct {
	client *genai.Client
	model  string
}

// NewChatModel creates a Gemini-backed chat model. An empty modelName
// selects DefaultModel.
func NewChatModel(ctx context.Context, apiKey, modelName string) (*ChatModel, error) {
	if apiKey == "" {
		return nil, errors.New("google: API key cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}
	return &ChatModel{
		client: client,
		model:  modelName,
	}, nil
}

// Close releases the underlying client.
func (c *ChatModel) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Chat implements model.ChatModel. Gemini has no separate turn structure
// for single-shot calls here; the conversation is flattened into one
// prompt, with a leading system message installed as the system
// instruction.
func (c *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	gm := c.client.GenerativeModel(c.model)

	var parts []string
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			gm.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
			continue
		}
		parts = append(parts, msg.Content)
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(strings.Join(parts, "\n\n")))
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return model.ChatOut{}, errors.New("google: no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	out := model.ChatOut{Text: sb.String()}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}
