package specialist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	llmx "github.com/tanpawarit/support-triage-agent/agent/llm"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
	templatex "github.com/tanpawarit/support-triage-agent/agent/template"
)

type drafterImpl struct {
	runner    compose.Runnable[map[string]any, *schema.Message]
	templates contractx.TemplateRegistry
	timeout   time.Duration
}

var _ contractx.Drafter = (*drafterImpl)(nil)

func newDrafter(
	ctx context.Context,
	gen llmx.Generator,
	askPrompt string,
	replyPrompt string,
	templates contractx.TemplateRegistry,
	timeout time.Duration,
) (*drafterImpl, error) {
	runner, err := compileDrafterGraph(ctx, gen, askPrompt, replyPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile drafter graph: %v", contractx.ErrModelInvoke, err)
	}
	if templates == nil {
		templates = templatex.Default()
	}
	return &drafterImpl{runner: runner, templates: templates, timeout: timeout}, nil
}

func (d *drafterImpl) Draft(ctx context.Context, req contractx.DraftRequest) (string, error) {
	issueType := req.IssueType
	if !issueType.Valid() {
		issueType = contractx.IssueOther
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	in := map[string]any{
		transcriptKey: llmx.FromTranscript(req.Transcript),
		"issue_type":  issueType.String(),
		"today":       now.UTC().Format(time.DateOnly),
	}

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		in[modeKey] = modeAskOrderID
		latest, ok := statex.LastUserMessage(req.Transcript)
		if !ok {
			latest = "Unknown"
		}
		in["latest_user_message"] = latest
	} else {
		in[modeKey] = modeReply
		in["order_id"] = orderID
		in["order_lookup"] = describeLookup(req)
		in["reply_template"] = templatex.Render(d.templates.TemplateFor(issueType), orderID, req.Order)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	msg, err := d.runner.Invoke(ctx, in)
	if err != nil {
		return "", fmt.Errorf("%w: drafter invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: drafter returned an empty reply", contractx.ErrModelInvoke)
	}
	return strings.TrimSpace(msg.Content), nil
}

func describeLookup(req contractx.DraftRequest) string {
	if req.Order == nil {
		return fmt.Sprintf("Order ID %s not found in the database.", req.OrderID)
	}
	return fmt.Sprintf("found. Item: %s. Status: %s. Customer: %s.", req.Order.Item, req.Order.Status, req.Order.CustomerName)
}
