package specialist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	llmx "github.com/tanpawarit/support-triage-agent/agent/llm"
	templatex "github.com/tanpawarit/support-triage-agent/agent/template"
)

type classifierImpl struct {
	runner  compose.Runnable[map[string]any, classifierLLMOutput]
	vars    map[string]any
	timeout time.Duration
}

var _ contractx.Classifier = (*classifierImpl)(nil)

type classifierLLMOutput struct {
	IssueType string          `json:"issue_type"`
	OrderID   flexibleOrderID `json:"order_id"`
}

// flexibleOrderID accepts a string, a bare number or null.
type flexibleOrderID string

func (f *flexibleOrderID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleOrderID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*f = ""
		return nil
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*f = flexibleOrderID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexibleOrderID(n.String())
	return nil
}

func newClassifier(
	ctx context.Context,
	gen llmx.Generator,
	systemPrompt string,
	categories []templatex.Category,
	timeout time.Duration,
) (*classifierImpl, error) {
	runner, err := compileClassifierGraph(ctx, gen, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}

	var rules strings.Builder
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, "'"+c.IssueType.String()+"'")
		if c.IssueType == contractx.IssueOther {
			continue
		}
		fmt.Fprintf(&rules, "- '%s': %s\n", c.IssueType, c.Description)
	}

	return &classifierImpl{
		runner: runner,
		vars: map[string]any{
			"categories":  strings.TrimRight(rules.String(), "\n"),
			"issue_types": strings.Join(names, ", "),
		},
		timeout: timeout,
	}, nil
}

func (c *classifierImpl) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.ClassificationResult, error) {
	transcript := llmx.FromTranscript(req.Transcript)
	if len(transcript) == 0 {
		if strings.TrimSpace(req.TicketText) == "" {
			return contractx.ClassificationResult{}, fmt.Errorf("%w: classifier needs a transcript or ticket text", contractx.ErrValidation)
		}
		transcript = []*schema.Message{schema.UserMessage(req.TicketText)}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	in := make(map[string]any, len(c.vars)+1)
	for k, v := range c.vars {
		in[k] = v
	}
	in[transcriptKey] = transcript

	out, err := c.runner.Invoke(ctx, in)
	if err != nil {
		return contractx.ClassificationResult{}, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}

	return contractx.ClassificationResult{
		IssueType:        contractx.ParseIssueType(out.IssueType),
		OrderIDCandidate: strings.TrimSpace(string(out.OrderID)),
	}, nil
}
