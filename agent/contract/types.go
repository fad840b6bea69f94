package contract

import (
	"strings"
	"time"

	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
)

type AgentType string

const (
	AgentTypeClassifier AgentType = "classifier"
	AgentTypeDrafter    AgentType = "drafter"
)

// IssueType is the closed support-ticket taxonomy. IssueOther is the fallback
// for anything the classifier cannot place.
type IssueType string

const (
	IssueDefectiveProduct IssueType = "defective_product"
	IssueDamagedItem      IssueType = "damaged_item"
	IssueMissingItem      IssueType = "missing_item"
	IssueLateDelivery     IssueType = "late_delivery"
	IssueWrongItem        IssueType = "wrong_item"
	IssueRefundRequest    IssueType = "refund_request"
	IssueDuplicateCharge  IssueType = "duplicate_charge"
	IssueOther            IssueType = "other"
)

var issueTypes = []IssueType{
	IssueDefectiveProduct,
	IssueDamagedItem,
	IssueMissingItem,
	IssueLateDelivery,
	IssueWrongItem,
	IssueRefundRequest,
	IssueDuplicateCharge,
	IssueOther,
}

// IssueTypes returns every issue type, IssueOther last.
func IssueTypes() []IssueType {
	return append([]IssueType(nil), issueTypes...)
}

func (t IssueType) String() string {
	return string(t)
}

func (t IssueType) Valid() bool {
	for _, it := range issueTypes {
		if it == t {
			return true
		}
	}
	return false
}

// ParseIssueType accepts the value form ("damaged_item") as well as enum-name
// forms ("DAMAGED_ITEM", "IssueType.DAMAGED_ITEM", "damaged item"). Anything
// else maps to IssueOther.
func ParseIssueType(raw string) IssueType {
	s := strings.TrimSpace(raw)
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Trim(s, `"' `)
	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)

	t := IssueType(s)
	if t.Valid() {
		return t
	}
	return IssueOther
}

// ClassificationResult is what the classifier reports for one turn. The id
// candidate is raw: it may be empty, a placeholder, or an unnormalized id.
type ClassificationResult struct {
	IssueType        IssueType `json:"issue_type"`
	OrderIDCandidate string    `json:"order_id,omitempty"`
}

type ClassifyRequest struct {
	Transcript []statex.Message `json:"transcript"`
	TicketText string           `json:"ticket_text"`
}

type DraftRequest struct {
	Transcript []statex.Message `json:"transcript"`
	IssueType  IssueType        `json:"issue_type"`
	OrderID    string           `json:"order_id,omitempty"`
	Order      *orderx.Record   `json:"order,omitempty"`
	Now        time.Time        `json:"now"`
}

// TurnRequest is one incoming ticket message.
type TurnRequest struct {
	TicketText     string `json:"ticket_text"`
	OrderID        string `json:"order_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// TurnResponse is the outcome of one turn. OrderID and Order are nil when no
// id was resolved or the order was not found.
type TurnResponse struct {
	ThreadID  string         `json:"thread_id"`
	OrderID   *string        `json:"order_id"`
	IssueType IssueType      `json:"issue_type"`
	Order     *orderx.Record `json:"order"`
	ReplyText string         `json:"reply_text"`
}

// TurnEvent is published after a turn has been persisted.
type TurnEvent struct {
	ThreadID    string    `json:"thread_id"`
	IssueType   IssueType `json:"issue_type"`
	OrderID     string    `json:"order_id,omitempty"`
	OrderFound  bool      `json:"order_found"`
	ReplyText   string    `json:"reply_text"`
	CompletedAt time.Time `json:"completed_at"`
}
