package specialist

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	llmx "github.com/tanpawarit/support-triage-agent/agent/llm"
	promptx "github.com/tanpawarit/support-triage-agent/agent/prompt"
	templatex "github.com/tanpawarit/support-triage-agent/agent/template"
)

type registryImpl struct {
	classifier contractx.Classifier
	drafter    contractx.Drafter
}

func (r *registryImpl) Classifier() contractx.Classifier {
	return r.classifier
}

func (r *registryImpl) Drafter() contractx.Drafter {
	return r.drafter
}

func NewRegistry(ctx context.Context, cfg llmx.Config, templates *templatex.Registry) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	classifierGen, err := llmx.NewGenerator(ctx, cfg, contractx.AgentTypeClassifier)
	if err != nil {
		return nil, err
	}
	drafterGen, err := llmx.NewGenerator(ctx, cfg, contractx.AgentTypeDrafter)
	if err != nil {
		return nil, err
	}
	return NewRegistryWithGenerators(ctx, classifierGen, drafterGen, templates, cfg.Timeout)
}

// NewRegistryWithGenerators wires both agents to the given generators. A nil
// templates registry uses the embedded defaults.
func NewRegistryWithGenerators(
	ctx context.Context,
	classifierGen llmx.Generator,
	drafterGen llmx.Generator,
	templates *templatex.Registry,
	timeout time.Duration,
) (contractx.Registry, error) {
	if classifierGen == nil || drafterGen == nil {
		return nil, fmt.Errorf("%w: classifier and drafter generators are required", contractx.ErrValidation)
	}

	prompts := promptx.LoadPromptSet()
	if missing := prompts.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", contractx.ErrPromptMissing, strings.Join(missing, ", "))
	}
	if templates == nil {
		templates = templatex.Default()
	}

	classifier, err := newClassifier(ctx, classifierGen, prompts.Classifier, templates.Categories(), timeout)
	if err != nil {
		return nil, err
	}
	drafter, err := newDrafter(ctx, drafterGen, prompts.AskOrderID, prompts.Reply, templates, timeout)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		classifier: classifier,
		drafter:    drafter,
	}, nil
}
