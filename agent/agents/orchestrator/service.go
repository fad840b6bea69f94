package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	nodex "github.com/tanpawarit/support-triage-agent/agent/nodes"
	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
	"github.com/tanpawarit/support-triage-agent/agent/orderid"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidThread  = nodex.ErrInvalidThread
)

const (
	defaultLookupTimeout  = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

type Option func(*Orchestrator)

// WithEventPublisher publishes a TurnEvent after every persisted turn.
func WithEventPublisher(p contractx.EventPublisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.events = p
		}
	}
}

func WithLookupTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.lookupTimeout = d
	}
}

// WithPublishTimeout bounds each background event publish.
func WithPublishTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.publishTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator sets how thread ids are minted for requests that carry
// neither a conversation id nor an order id.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// Orchestrator runs one triage turn per call. Turns for the same thread id
// are serialized; different threads run concurrently.
type Orchestrator struct {
	store  statex.Store
	models contractx.Registry
	orders orderx.Repository
	events contractx.EventPublisher
	locks  *statex.Locker

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	lookupTimeout  time.Duration
	publishTimeout time.Duration
	now            func() time.Time
	newID          func() string

	publishing sync.WaitGroup
}

func New(
	store statex.Store,
	models contractx.Registry,
	orders orderx.Repository,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if models == nil || models.Classifier() == nil || models.Drafter() == nil {
		return nil, errors.New("classifier and drafter are required")
	}
	if orders == nil {
		return nil, errors.New("order repository is required")
	}

	o := &Orchestrator{
		store:          store,
		models:         models,
		orders:         orders,
		events:         noopPublisher{},
		locks:          statex.NewLocker(),
		lookupTimeout:  defaultLookupTimeout,
		publishTimeout: defaultPublishTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one ticket message. On error nothing is persisted for
// the turn.
func (o *Orchestrator) HandleTurn(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResponse, error) {
	if strings.TrimSpace(req.TicketText) == "" {
		return contractx.TurnResponse{}, fmt.Errorf("%w: %w", contractx.ErrValidation, ErrInvalidMessage)
	}

	threadID := orderid.ThreadID(req.ConversationID, req.OrderID, req.TicketText, o.newID)
	logger := log.Ctx(ctx).With().Str("thread_id", threadID).Logger()
	ctx = logger.WithContext(ctx)

	out, err := o.runLocked(ctx, nodex.GraphInput{
		ThreadID:        threadID,
		TicketText:      req.TicketText,
		ExplicitOrderID: req.OrderID,
	})
	if err != nil {
		logger.Error().Err(err).Bool("capability_failure", contractx.IsCapabilityFailure(err)).Msg("triage turn failed")
		return contractx.TurnResponse{}, err
	}

	resp := out.Response
	logger.Info().
		Str("issue_type", resp.IssueType.String()).
		Bool("order_found", resp.Order != nil).
		Msg("triage turn completed")

	o.publish(ctx, resp)
	return resp, nil
}

func (o *Orchestrator) runLocked(ctx context.Context, in nodex.GraphInput) (nodex.GraphOutput, error) {
	unlock, err := o.locks.Lock(ctx, in.ThreadID)
	if err != nil {
		return nodex.GraphOutput{}, fmt.Errorf("acquire thread %s: %w", in.ThreadID, err)
	}
	defer unlock()

	return o.graphRunner.Invoke(ctx, in)
}

// Close waits for in-flight event publishes.
func (o *Orchestrator) Close() error {
	o.publishing.Wait()
	return nil
}

// publish sends the turn event in the background. The reply never waits on
// it, and a client disconnect does not cancel it.
func (o *Orchestrator) publish(ctx context.Context, resp contractx.TurnResponse) {
	ev := contractx.TurnEvent{
		ThreadID:    resp.ThreadID,
		IssueType:   resp.IssueType,
		OrderFound:  resp.Order != nil,
		ReplyText:   resp.ReplyText,
		CompletedAt: o.now().UTC(),
	}
	if resp.OrderID != nil {
		ev.OrderID = *resp.OrderID
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.publishTimeout)
	o.publishing.Add(1)
	go func() {
		defer o.publishing.Done()
		defer cancel()
		if err := o.events.PublishTurn(ctx, ev); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("publish turn event failed")
		}
	}()
}

type noopPublisher struct{}

func (noopPublisher) PublishTurn(context.Context, contractx.TurnEvent) error {
	return nil
}
