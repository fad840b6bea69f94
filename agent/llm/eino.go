package llm

import (
	"context"
	"errors"
	"maps"

	aclopenai "github.com/cloudwego/eino-ext/libs/acl/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoGenerator drives any eino chat model. Structured calls send a strict
// json_schema response_format with the request; models outside the OpenAI
// family ignore the option.
type EinoGenerator struct {
	model einomodel.BaseChatModel
	// extraFields are the model's own request extras. A per-call extras
	// option replaces them, so structured calls resend them.
	extraFields map[string]any
}

var _ Generator = (*EinoGenerator)(nil)

func NewEinoGenerator(model einomodel.BaseChatModel, extraFields map[string]any) *EinoGenerator {
	return &EinoGenerator{model: model, extraFields: extraFields}
}

func (g *EinoGenerator) GenerateStructured(ctx context.Context, msgs []*schema.Message, format StructuredSpec) (*schema.Message, error) {
	if g == nil {
		return nil, errors.New("eino generator has no model")
	}
	fields := make(map[string]any, len(g.extraFields)+1)
	maps.Copy(fields, g.extraFields)
	fields["response_format"] = jsonSchemaResponseFormat(format)

	return g.generate(ctx, msgs, aclopenai.WithExtraFields(fields))
}

func (g *EinoGenerator) GenerateText(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
	return g.generate(ctx, msgs)
}

func (g *EinoGenerator) generate(ctx context.Context, msgs []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if g == nil || g.model == nil {
		return nil, errors.New("eino generator has no model")
	}
	msg, err := g.model.Generate(ctx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, errors.New("chat model returned no message")
	}
	return msg, nil
}

// jsonSchemaResponseFormat is the chat-completions response_format body for a
// strict structured call.
func jsonSchemaResponseFormat(format StructuredSpec) map[string]any {
	jsonSchema := map[string]any{
		"name":   format.Name,
		"schema": format.Schema,
		"strict": true,
	}
	if format.Description != "" {
		jsonSchema["description"] = format.Description
	}
	return map[string]any{
		"type":        "json_schema",
		"json_schema": jsonSchema,
	}
}
