package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Session is the persisted state of one conversation thread.
// - Transcript is append-only; Append is the only mutator.
// - IssueType and OrderID hold the last resolved values ("" means none).
// - Version is the compare-and-swap token; 0 means never saved.
type Session struct {
	ThreadID   string    `json:"thread_id"`
	Transcript []Message `json:"transcript,omitempty"`
	IssueType  string    `json:"issue_type,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleTool  Role = "tool"
)

// Message is one transcript entry. Tag identifies the tool call a tool
// message answers; Name is the tool name.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Tag       string    `json:"tag,omitempty"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrInvalidRole = errors.New("invalid message role")

func NewSession(threadID string, now time.Time) *Session {
	return &Session{
		ThreadID:  threadID,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func UserMessage(content string, now time.Time) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: now.UTC()}
}

func AgentMessage(content string, now time.Time) Message {
	return Message{Role: RoleAgent, Content: content, CreatedAt: now.UTC()}
}

func ToolMessage(name, tag, content string, now time.Time) Message {
	return Message{Role: RoleTool, Name: name, Tag: tag, Content: content, CreatedAt: now.UTC()}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Append adds entries to the end of the transcript.
func (s *Session) Append(msgs ...Message) {
	s.Transcript = append(s.Transcript, msgs...)
}

// History returns a copy of the transcript.
func (s *Session) History() []Message {
	if s == nil || len(s.Transcript) == 0 {
		return nil
	}
	return append([]Message(nil), s.Transcript...)
}

// LastUserMessage returns the content of the most recent user entry.
func LastUserMessage(transcript []Message) (string, bool) {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == RoleUser {
			return transcript[i].Content, true
		}
	}
	return "", false
}

// Clone returns a deep copy, so a turn can work on its own snapshot and
// discard it on failure.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Transcript = s.History()
	return &out
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(s.ThreadID) == "" {
		return ErrInvalidSession
	}
	if s.Version < 0 {
		return fmt.Errorf("negative version %d", s.Version)
	}
	for i, m := range s.Transcript {
		switch m.Role {
		case RoleUser, RoleAgent, RoleTool:
		default:
			return fmt.Errorf("%w: transcript[%d] role=%q", ErrInvalidRole, i, m.Role)
		}
	}
	return nil
}
