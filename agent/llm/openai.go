package llm

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
)

// OpenAIGenerator calls the Chat Completions API directly and uses strict
// json_schema response formats for structured calls.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

var _ Generator = (*OpenAIGenerator)(nil)

func NewOpenAIGenerator(client *openai.Client, model string, temperature float32, maxTokens int) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (g *OpenAIGenerator) GenerateStructured(ctx context.Context, msgs []*schema.Message, format StructuredSpec) (*schema.Message, error) {
	params := g.params(msgs)
	jsonSchema := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   format.Name,
		Schema: format.Schema,
		Strict: openai.Bool(true),
	}
	if format.Description != "" {
		jsonSchema.Description = openai.String(format.Description)
	}
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: jsonSchema},
	}
	return g.complete(ctx, params)
}

func (g *OpenAIGenerator) GenerateText(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
	return g.complete(ctx, g.params(msgs))
}

func (g *OpenAIGenerator) params(msgs []*schema.Message) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    toOpenAIMessages(msgs),
		Temperature: openai.Float(float64(g.temperature)),
	}
	if g.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(g.maxTokens))
	}
	return params
}

func (g *OpenAIGenerator) complete(ctx context.Context, params openai.ChatCompletionNewParams) (*schema.Message, error) {
	if g == nil || g.client == nil {
		return nil, errors.New("openai generator has no client")
	}
	chat, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(chat.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}
	return schema.AssistantMessage(chat.Choices[0].Message.Content, nil), nil
}

func toOpenAIMessages(msgs []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.System, schema.Tool:
			out = append(out, openai.SystemMessage(m.Content))
		case schema.Assistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
