package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloudwego/eino/schema"
)

// MessagesClient is the part of the Anthropic SDK the generator needs.
type MessagesClient interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicGenerator calls the Messages API. Structured calls append the JSON
// schema to the system prompt and pull the first JSON object out of the text.
type AnthropicGenerator struct {
	client      MessagesClient
	model       string
	temperature float32
	maxTokens   int
}

var _ Generator = (*AnthropicGenerator)(nil)

func NewAnthropicClient(apiKey, baseURL string) *anthropic.Client {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(apiKey))}
	if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	client := anthropic.NewClient(opts...)
	return &client
}

func NewAnthropicGenerator(client MessagesClient, model string, temperature float32, maxTokens int) *AnthropicGenerator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicGenerator{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (g *AnthropicGenerator) GenerateStructured(ctx context.Context, msgs []*schema.Message, format StructuredSpec) (*schema.Message, error) {
	schemaJSON, err := json.Marshal(format.Schema)
	if err != nil {
		return nil, err
	}
	instruction := "Respond with a single JSON object and no other text. It must match this JSON schema:\n" + string(schemaJSON)

	text, err := g.complete(ctx, msgs, instruction)
	if err != nil {
		return nil, err
	}
	if obj := extractJSONObject(text); obj != "" {
		text = obj
	}
	return schema.AssistantMessage(text, nil), nil
}

func (g *AnthropicGenerator) GenerateText(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
	text, err := g.complete(ctx, msgs, "")
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

func (g *AnthropicGenerator) complete(ctx context.Context, msgs []*schema.Message, extraSystem string) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("anthropic generator has no client")
	}

	system, messages := toAnthropicMessages(msgs)
	if extraSystem != "" {
		system = append(system, anthropic.TextBlockParam{Text: extraSystem})
	}
	if len(messages) == 0 {
		return "", errors.New("anthropic request needs at least one user message")
	}

	resp, err := g.client.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   int64(g.maxTokens),
		System:      system,
		Messages:    messages,
		Temperature: anthropic.Float(float64(g.temperature)),
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// toAnthropicMessages lifts leading system messages into the system prompt.
// Later system messages become user text, and consecutive messages with the
// same role are merged into one turn.
func toAnthropicMessages(msgs []*schema.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	var out []anthropic.MessageParam

	leading := true
	for _, m := range msgs {
		if m == nil {
			continue
		}
		if leading && m.Role == schema.System {
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
			continue
		}
		leading = false

		role := anthropic.MessageParamRoleUser
		if m.Role == schema.Assistant {
			role = anthropic.MessageParamRoleAssistant
		}
		block := anthropic.NewTextBlock(m.Content)

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, block)
			continue
		}
		if role == anthropic.MessageParamRoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return system, out
}

func extractJSONObject(text string) string {
	start := -1
	depth := 0
	for i, r := range text {
		switch r {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
