package orchestratornode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
	"github.com/tanpawarit/support-triage-agent/agent/orderid"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
)

var (
	ErrInvalidMessage = errors.New("ticket text is empty")
	ErrInvalidThread  = errors.New("thread id is empty")
)

type GraphInput struct {
	ThreadID        string
	TicketText      string
	ExplicitOrderID string
}

type GraphOutput struct {
	Response contractx.TurnResponse
	Session  *statex.Session
}

// GraphState is threaded through every node of one turn. Session is a clone
// of the stored session; nothing reaches the store before save_state.
type GraphState struct {
	ThreadID        string
	Text            string
	ExplicitOrderID string
	Now             time.Time

	Session      *statex.Session
	PriorOrderID string

	Classification contractx.ClassificationResult
	IssueType      contractx.IssueType
	OrderID        string
	OrderIDSource  orderid.Source

	Order *orderx.Record
	Reply string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	threadID := strings.TrimSpace(in.ThreadID)
	if threadID == "" {
		return nil, fmt.Errorf("%w: %w", contractx.ErrValidation, ErrInvalidThread)
	}

	text := strings.TrimSpace(in.TicketText)
	if text == "" {
		return nil, fmt.Errorf("%w: %w", contractx.ErrValidation, ErrInvalidMessage)
	}

	explicit := strings.TrimSpace(in.ExplicitOrderID)
	if orderid.IsPlaceholder(explicit) {
		explicit = ""
	}

	return &GraphState{
		ThreadID:        threadID,
		Text:            text,
		ExplicitOrderID: orderid.Normalize(explicit),
		Now:             nowFn().UTC(),
	}, nil
}
