package llm

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	openrouterx "github.com/tanpawarit/support-triage-agent/pkg/openrouter"
)

// NewGenerator builds the configured provider for one agent.
func NewGenerator(ctx context.Context, cfg Config, agentType contractx.AgentType) (Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	modelName, temp := cfg.ModelFor(agentType)

	switch cfg.ProviderName() {
	case ProviderOpenAI:
		orCfg := cfg.OpenRouterFor(agentType)
		orCfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
		client := openrouterx.NewClient(orCfg)
		if client == nil {
			return nil, fmt.Errorf("%w: openai client needs an api key", contractx.ErrValidation)
		}
		return NewOpenAIGenerator(client, modelName, temp, cfg.MaxCompletionToken), nil

	case ProviderAnthropic:
		client := NewAnthropicClient(cfg.APIKey, cfg.BaseURL)
		return NewAnthropicGenerator(&client.Messages, modelName, temp, cfg.MaxCompletionToken), nil

	default:
		orCfg := cfg.OpenRouterFor(agentType)
		chatModel, err := orCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, agentType, err)
		}
		return NewEinoGenerator(chatModel, orCfg.ExtraFields()), nil
	}
}
