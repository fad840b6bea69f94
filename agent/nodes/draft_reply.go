package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
)

func DraftReply(ctx context.Context, in *GraphState, drafter contractx.Drafter) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	reply, err := drafter.Draft(ctx, contractx.DraftRequest{
		Transcript: in.Session.History(),
		IssueType:  in.IssueType,
		OrderID:    in.OrderID,
		Order:      in.Order,
		Now:        in.Now,
	})
	if err != nil {
		return nil, err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("%w: drafter returned an empty reply", contractx.ErrModelInvoke)
	}

	in.Session.Append(statex.AgentMessage(reply, in.Now))
	in.Reply = reply
	return in, nil
}
