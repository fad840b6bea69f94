package specialist

import (
	"context"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	llmx "github.com/tanpawarit/support-triage-agent/agent/llm"
)

const (
	transcriptKey = "transcript"
	modeKey       = "mode"

	modeAskOrderID = "ask_order_id"
	modeReply      = "reply"
)

func compileClassifierGraph(
	ctx context.Context,
	gen llmx.Generator,
	systemPrompt string,
) (compose.Runnable[map[string]any, classifierLLMOutput], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder(transcriptKey, false),
	)
	format := llmx.ClassificationSpec()
	parser := schema.NewMessageJSONParser[classifierLLMOutput](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, classifierLLMOutput]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add classifier prompt node: %w", err)
	}
	if err := graph.AddLambdaNode("generate",
		compose.InvokableLambda(func(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
			return gen.GenerateStructured(ctx, msgs, format)
		}),
	); err != nil {
		return nil, fmt.Errorf("add classifier generate node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json",
		compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (classifierLLMOutput, error) {
			out, err := parser.Parse(ctx, trimCodeFence(msg))
			if err != nil {
				violation := fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
				log.Ctx(ctx).Warn().Err(violation).Msg("classifier output is not valid json, falling back to other")
				return classifierLLMOutput{IssueType: contractx.IssueOther.String()}, nil
			}
			return out, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add classifier parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add classifier edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "generate"); err != nil {
		return nil, fmt.Errorf("add classifier edge prompt->generate: %w", err)
	}
	if err := graph.AddEdge("generate", "parse_json"); err != nil {
		return nil, fmt.Errorf("add classifier edge generate->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add classifier edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("classifier.model_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile classifier graph: %w", err)
	}
	return runner, nil
}

func compileDrafterGraph(
	ctx context.Context,
	gen llmx.Generator,
	askPrompt string,
	replyPrompt string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	askTemplate := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(askPrompt),
		schema.MessagesPlaceholder(transcriptKey, false),
	)
	replyTemplate := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(replyPrompt),
		schema.MessagesPlaceholder(transcriptKey, false),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()

	if err := graph.AddLambdaNode("select_mode",
		compose.InvokableLambda(func(ctx context.Context, in map[string]any) (map[string]any, error) {
			switch in[modeKey] {
			case modeAskOrderID, modeReply:
				return in, nil
			default:
				return nil, fmt.Errorf("%w: unknown draft mode %v", contractx.ErrValidation, in[modeKey])
			}
		}),
	); err != nil {
		return nil, fmt.Errorf("add drafter select node: %w", err)
	}
	if err := graph.AddChatTemplateNode("ask_prompt", askTemplate); err != nil {
		return nil, fmt.Errorf("add drafter ask prompt node: %w", err)
	}
	if err := graph.AddChatTemplateNode("reply_prompt", replyTemplate); err != nil {
		return nil, fmt.Errorf("add drafter reply prompt node: %w", err)
	}
	if err := graph.AddLambdaNode("generate",
		compose.InvokableLambda(func(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
			return gen.GenerateText(ctx, msgs)
		}),
	); err != nil {
		return nil, fmt.Errorf("add drafter generate node: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in map[string]any) (string, error) {
			if in[modeKey] == modeReply {
				return "reply_prompt", nil
			}
			return "ask_prompt", nil
		},
		map[string]bool{
			"ask_prompt":   true,
			"reply_prompt": true,
		},
	)

	if err := graph.AddEdge(compose.START, "select_mode"); err != nil {
		return nil, fmt.Errorf("add drafter edge start->select: %w", err)
	}
	if err := graph.AddBranch("select_mode", branch); err != nil {
		return nil, fmt.Errorf("add drafter branch: %w", err)
	}
	if err := graph.AddEdge("ask_prompt", "generate"); err != nil {
		return nil, fmt.Errorf("add drafter edge ask->generate: %w", err)
	}
	if err := graph.AddEdge("reply_prompt", "generate"); err != nil {
		return nil, fmt.Errorf("add drafter edge reply->generate: %w", err)
	}
	if err := graph.AddEdge("generate", compose.END); err != nil {
		return nil, fmt.Errorf("add drafter edge generate->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("drafter.model_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile drafter graph: %w", err)
	}
	return runner, nil
}

// trimCodeFence strips a ```json fence some models wrap around JSON answers.
func trimCodeFence(msg *schema.Message) *schema.Message {
	if msg == nil {
		return schema.AssistantMessage("", nil)
	}
	content := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(content, "```") {
		return msg
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return schema.AssistantMessage(strings.TrimSpace(content), nil)
}
