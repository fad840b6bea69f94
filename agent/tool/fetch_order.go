// Package tool runs the order lookup the pipeline performs once an order id
// is resolved and renders its outcome as a transcript entry.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
	"github.com/tanpawarit/support-triage-agent/agent/orderid"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
)

const ToolFetchOrder = "fetch_order"

// Lookup is the outcome of one fetch_order call. Order is nil on a miss.
type Lookup struct {
	Order   *orderx.Record
	Message statex.Message
}

func (l Lookup) Found() bool {
	return l.Order != nil
}

// FetchOrder looks orderID up with normalized comparison. A miss is not an
// error: it produces a "not found" tool message. Any other repository failure
// is wrapped in contract.ErrRepository.
func FetchOrder(ctx context.Context, repo orderx.Repository, orderID string, now time.Time) (Lookup, error) {
	if repo == nil {
		return Lookup{}, fmt.Errorf("%w: order repository is nil", contractx.ErrRepository)
	}
	id := orderid.Normalize(strings.TrimSpace(orderID))
	if id == "" {
		return Lookup{}, fmt.Errorf("%w: order id is required", contractx.ErrValidation)
	}
	tag := "call_" + id

	rec, err := repo.GetByNormalizedID(ctx, id)
	switch {
	case errors.Is(err, orderx.ErrOrderNotFound):
		content := fmt.Sprintf("Order ID %s not found in the database.", id)
		return Lookup{
			Message: statex.ToolMessage(ToolFetchOrder, tag, content, now),
		}, nil
	case err != nil:
		return Lookup{}, fmt.Errorf("%w: fetch order %s: %v", contractx.ErrRepository, id, err)
	case rec == nil:
		return Lookup{}, fmt.Errorf("%w: fetch order %s: repository returned no record", contractx.ErrRepository, id)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return Lookup{}, fmt.Errorf("%w: encode order %s: %v", contractx.ErrRepository, id, err)
	}
	return Lookup{
		Order:   rec,
		Message: statex.ToolMessage(ToolFetchOrder, tag, string(payload), now),
	}, nil
}
