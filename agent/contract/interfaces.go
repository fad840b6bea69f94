package contract

import "context"

type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (ClassificationResult, error)
}

type Drafter interface {
	Draft(ctx context.Context, req DraftRequest) (string, error)
}

type Registry interface {
	Classifier() Classifier
	Drafter() Drafter
}

// TemplateRegistry returns reply template text for an issue type, never an
// empty string: unmapped types get the generic default.
type TemplateRegistry interface {
	TemplateFor(issueType IssueType) string
}

type EventPublisher interface {
	PublishTurn(ctx context.Context, ev TurnEvent) error
}
