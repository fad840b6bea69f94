package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	"github.com/tanpawarit/support-triage-agent/agent/orderid"
)

func ResolveOrderID(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	id, source := orderid.Resolve(orderid.Candidates{
		Classifier: in.Classification.OrderIDCandidate,
		Text:       in.Text,
		Prior:      in.PriorOrderID,
	})
	in.OrderID = id
	in.OrderIDSource = source

	log.Ctx(ctx).Info().
		Str("thread_id", in.ThreadID).
		Str("issue_type", in.IssueType.String()).
		Str("order_id", id).
		Str("order_id_source", string(source)).
		Msg("classifier decision")

	return in, nil
}
