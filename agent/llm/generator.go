// Package llm is the generation capability used by the classifier and the
// reply drafter. Providers take eino messages in and hand eino messages back
// so they slot into compiled graphs as lambda nodes.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
)

// StructuredSpec describes the JSON object a structured call must return.
type StructuredSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

type Generator interface {
	// GenerateStructured returns an assistant message whose content is a JSON
	// object conforming to format.
	GenerateStructured(ctx context.Context, msgs []*schema.Message, format StructuredSpec) (*schema.Message, error)
	GenerateText(ctx context.Context, msgs []*schema.Message) (*schema.Message, error)
}

// ClassificationSpec is the schema the classifier asks for: one issue type
// from the closed enumeration plus an optional order id.
func ClassificationSpec() StructuredSpec {
	values := make([]string, 0, len(contractx.IssueTypes()))
	for _, t := range contractx.IssueTypes() {
		values = append(values, t.String())
	}
	return StructuredSpec{
		Name:        "classification",
		Description: "Support ticket issue type and the order id mentioned by the customer.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"issue_type": map[string]any{
					"type": "string",
					"enum": values,
				},
				"order_id": map[string]any{
					"type": []string{"string", "null"},
				},
			},
			"required":             []string{"issue_type", "order_id"},
			"additionalProperties": false,
		},
	}
}

// FromTranscript converts session entries into chat messages. Tool results
// are rendered as system messages so every provider accepts them without a
// matching tool call.
func FromTranscript(transcript []statex.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(transcript))
	for _, m := range transcript {
		switch m.Role {
		case statex.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case statex.RoleAgent:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		case statex.RoleTool:
			out = append(out, schema.SystemMessage(toolResultText(m)))
		}
	}
	return out
}

func toolResultText(m statex.Message) string {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		name = "tool"
	}
	if tag := strings.TrimSpace(m.Tag); tag != "" {
		return fmt.Sprintf("Tool result (%s, %s): %s", name, tag, m.Content)
	}
	return fmt.Sprintf("Tool result (%s): %s", name, m.Content)
}
