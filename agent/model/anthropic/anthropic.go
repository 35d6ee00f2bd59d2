// Package anthropic adapts Anthropic's Claude API to the ChatModel
// interface.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Kevin180791/dob-mvp-enhanced/agent/model"
)

const defaultMaxTokens = 4096

// ChatModel wraps the official anthropic-sdk-go client. Safe for
// concurrent use after creation.
type ChatModel struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewChatModel creates a Claude-backed chat model. The model parameter
// names one of Anthropic's available models, e.g.
// "claude-3-5-sonnet-20241022".
func NewChatModel(apiKey, modelName string) (*ChatModel, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: API key cannot be empty")
	}
	if modelName == "" {
		return nil, errors.New("anthropic: model cannot be empty")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ChatModel{
		client:    &client,
		model:     modelName,
		maxTokens: defaultMaxTokens,
	}, nil
}

// Chat implements model.ChatModel. A leading system message is passed as
// the Claude system prompt; the rest become conversation turns.
func (c *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
	}

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case model.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("anthropic: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return model.ChatOut{
		Text:       text,
		TokensUsed: int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}, nil
}
