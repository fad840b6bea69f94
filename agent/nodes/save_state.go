package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
)

func SaveState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.IssueType = in.IssueType.String()
	in.Session.OrderID = in.OrderID
	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, fmt.Errorf("save session %s: %w", in.ThreadID, err)
	}

	return in, nil
}
