package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	resp := contractx.TurnResponse{
		ThreadID:  in.ThreadID,
		IssueType: in.IssueType,
		Order:     in.Order,
		ReplyText: in.Reply,
	}
	if in.OrderID != "" {
		id := in.OrderID
		resp.OrderID = &id
	}
	return GraphOutput{Response: resp, Session: in.Session}, nil
}
