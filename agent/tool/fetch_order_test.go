package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
)

type stubRepo struct {
	records map[string]orderx.Record
	err     error
	gotID   string
}

func (s *stubRepo) GetByNormalizedID(ctx context.Context, id string) (*orderx.Record, error) {
	s.gotID = id
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, orderx.ErrOrderNotFound
	}
	return &rec, nil
}

func (s *stubRepo) Search(ctx context.Context, q orderx.SearchQuery) ([]orderx.Record, error) {
	return nil, nil
}

func TestFetchOrderFound(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{records: map[string]orderx.Record{
		"ORD123": {OrderID: "ORD-123", Item: "Lamp", Status: "shipped"},
	}}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	out, err := FetchOrder(context.Background(), repo, "ord-123", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.gotID != "ORD123" {
		t.Fatalf("repository saw %q, want normalized id", repo.gotID)
	}
	if !out.Found() || out.Order.Item != "Lamp" {
		t.Fatalf("unexpected order: %#v", out.Order)
	}
	msg := out.Message
	if msg.Role != statex.RoleTool || msg.Name != "fetch_order" || msg.Tag != "call_ORD123" {
		t.Fatalf("unexpected message envelope: %#v", msg)
	}
	if !strings.Contains(msg.Content, `"order_id":"ORD-123"`) || !msg.CreatedAt.Equal(now) {
		t.Fatalf("unexpected message content: %#v", msg)
	}
}

func TestFetchOrderMissIsNotAnError(t *testing.T) {
	t.Parallel()

	out, err := FetchOrder(context.Background(), &stubRepo{}, "ORD 9", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Found() {
		t.Fatal("expected a miss")
	}
	if out.Message.Content != "Order ID ORD9 not found in the database." {
		t.Fatalf("unexpected content: %q", out.Message.Content)
	}
	if out.Order != nil || out.Message.Tag != "call_ORD9" {
		t.Fatalf("unexpected miss lookup: %#v", out)
	}
}

func TestFetchOrderRepositoryFailure(t *testing.T) {
	t.Parallel()

	_, err := FetchOrder(context.Background(), &stubRepo{err: context.DeadlineExceeded}, "ORD1", time.Now())
	if !errors.Is(err, contractx.ErrRepository) {
		t.Fatalf("expected ErrRepository, got %v", err)
	}
	if !contractx.IsCapabilityFailure(err) {
		t.Fatal("repository failure must be terminal")
	}

	_, err = FetchOrder(context.Background(), nil, "ORD1", time.Now())
	if !errors.Is(err, contractx.ErrRepository) {
		t.Fatalf("expected ErrRepository for nil repo, got %v", err)
	}

	_, err = FetchOrder(context.Background(), &stubRepo{}, " - ", time.Now())
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty id, got %v", err)
	}
}
