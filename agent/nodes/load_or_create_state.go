package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
)

// LoadOrCreateState loads the thread's session (or starts a new one), takes a
// private copy and appends this turn's user message to it. The prior order id
// is the caller's explicit id when given, else the persisted one.
func LoadOrCreateState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := store.Load(ctx, in.ThreadID)
	switch {
	case errors.Is(err, statex.ErrStateNotFound):
		st = statex.NewSession(in.ThreadID, in.Now)
	case err != nil:
		return nil, fmt.Errorf("load session %s: %w", in.ThreadID, err)
	default:
		st = st.Clone()
	}

	in.PriorOrderID = st.OrderID
	if in.ExplicitOrderID != "" {
		in.PriorOrderID = in.ExplicitOrderID
	}

	st.Append(statex.UserMessage(in.Text, in.Now))
	in.Session = st
	return in, nil
}
