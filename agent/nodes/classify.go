package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
)

func Classify(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	res, err := classifier.Classify(ctx, contractx.ClassifyRequest{
		Transcript: in.Session.History(),
		TicketText: in.Text,
	})
	if err != nil {
		return nil, err
	}

	if !res.IssueType.Valid() {
		res.IssueType = contractx.IssueOther
	}
	in.Classification = res
	in.IssueType = res.IssueType
	return in, nil
}
