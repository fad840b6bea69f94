package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
	toolx "github.com/tanpawarit/support-triage-agent/agent/tool"
)

func FetchOrder(ctx context.Context, in *GraphState, repo orderx.Repository) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	lookup, err := toolx.FetchOrder(ctx, repo, in.OrderID, in.Now)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("order_id", in.OrderID).
		Bool("order_found", lookup.Found()).
		Msg("order lookup")

	in.Session.Append(lookup.Message)
	in.Order = lookup.Order
	return in, nil
}
