package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/draft_ask_order_id.txt
	askOrderIDRaw string

	//go:embed template/draft_reply.txt
	replyRaw string
)

// PromptSet holds FString prompt templates.
type PromptSet struct {
	Classifier string
	AskOrderID string
	Reply      string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
		AskOrderID: strings.TrimSpace(askOrderIDRaw),
		Reply:      strings.TrimSpace(replyRaw),
	}
}

// Missing returns the names of empty prompts.
func (p PromptSet) Missing() []string {
	var out []string
	if p.Classifier == "" {
		out = append(out, "classifier")
	}
	if p.AskOrderID == "" {
		out = append(out, "draft_ask_order_id")
	}
	if p.Reply == "" {
		out = append(out, "draft_reply")
	}
	return out
}
