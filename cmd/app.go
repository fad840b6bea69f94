package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/support-triage-agent/agent/agents/orchestrator"
	"github.com/tanpawarit/support-triage-agent/agent/agents/specialist"
	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	llmx "github.com/tanpawarit/support-triage-agent/agent/llm"
	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
	templatex "github.com/tanpawarit/support-triage-agent/agent/template"
	configx "github.com/tanpawarit/support-triage-agent/pkg/config"
	qstashx "github.com/tanpawarit/support-triage-agent/pkg/qstash"
)

const (
	sessionBackendMemory = "memory"
	sessionBackendRedis  = "redis"
	sessionBackendSQLite = "sqlite"

	orderBackendFile     = "file"
	orderBackendPostgres = "postgres"
)

// AppConfig is read with the TRIAGE prefix.
type AppConfig struct {
	Addr            string        `split_words:"true" default:":8000"`
	SessionBackend  string        `split_words:"true" default:"memory"`
	OrderBackend    string        `split_words:"true" default:"file"`
	OrdersPath      string        `split_words:"true" default:"data/orders.json"`
	RepliesPath     string        `split_words:"true"`
	IssuesPath      string        `split_words:"true"`
	CacheSize       int           `split_words:"true" default:"1024"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	LookupTimeout   time.Duration `split_words:"true" default:"10s"`
	PublishEvents   bool          `split_words:"true" default:"false"`
	PublishTimeout  time.Duration `split_words:"true" default:"5s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// app owns every long-lived dependency a command needs.
type app struct {
	cfg     AppConfig
	orders  orderx.Repository
	triage  *orchestrator.Orchestrator
	closers []io.Closer
}

func loadAppConfig() (*AppConfig, error) {
	return configx.New[AppConfig]("TRIAGE")
}

// newOrdersApp wires only the order repository, enough for the orders
// commands.
func newOrdersApp(cfg AppConfig) (*app, error) {
	a := &app{cfg: cfg}
	orders, err := a.openOrders()
	if err != nil {
		return nil, err
	}
	a.orders = orders
	return a, nil
}

func newTriageApp(ctx context.Context, cfg AppConfig) (*app, error) {
	a, err := newOrdersApp(cfg)
	if err != nil {
		return nil, err
	}

	store, err := a.openSessionStore()
	if err != nil {
		a.Close()
		return nil, err
	}

	templates, err := templatex.Load(cfg.RepliesPath, cfg.IssuesPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load reply templates: %w", err)
	}

	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		a.Close()
		return nil, err
	}
	models, err := specialist.NewRegistry(ctx, *llmCfg, templates)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build specialists: %w", err)
	}

	opts := []orchestrator.Option{orchestrator.WithLookupTimeout(cfg.LookupTimeout)}
	if cfg.PublishEvents {
		publisher, err := openPublisher()
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts,
			orchestrator.WithEventPublisher(publisher),
			orchestrator.WithPublishTimeout(cfg.PublishTimeout),
		)
	}

	a.triage, err = orchestrator.New(store, models, a.orders, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.triage)

	log.Info().
		Str("session_backend", cfg.SessionBackend).
		Str("order_backend", cfg.OrderBackend).
		Str("llm_provider", string(llmCfg.ProviderName())).
		Bool("publish_events", cfg.PublishEvents).
		Msg("triage agent ready")
	return a, nil
}

func (a *app) openOrders() (orderx.Repository, error) {
	var repo orderx.Repository
	switch strings.ToLower(strings.TrimSpace(a.cfg.OrderBackend)) {
	case "", orderBackendFile:
		fileRepo, err := orderx.LoadFileRepository(a.cfg.OrdersPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, fileRepo)
		repo = fileRepo
	case orderBackendPostgres:
		pgCfg, err := configx.New[orderx.PostgresConfig]("POSTGRES")
		if err != nil {
			return nil, err
		}
		pgRepo, err := orderx.OpenPostgresRepository(*pgCfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pgRepo)
		repo = pgRepo
	default:
		return nil, fmt.Errorf("%w: unknown order backend %q", contractx.ErrValidation, a.cfg.OrderBackend)
	}

	if a.cfg.CacheSize > 0 {
		repo = orderx.NewCachedRepository(repo, a.cfg.CacheSize, a.cfg.CacheTTL)
	}
	return repo, nil
}

func (a *app) openSessionStore() (statex.Store, error) {
	switch strings.ToLower(strings.TrimSpace(a.cfg.SessionBackend)) {
	case "", sessionBackendMemory:
		return statex.NewMemoryStore(), nil
	case sessionBackendRedis:
		redisCfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, err
		}
		return statex.NewUpstashRedisStore(*redisCfg, statex.WithTTL(redisCfg.TTL))
	case sessionBackendSQLite:
		sqliteCfg, err := configx.New[statex.SQLiteConfig]("SQLITE")
		if err != nil {
			return nil, err
		}
		store, err := statex.OpenSQLiteStore(*sqliteCfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown session backend %q", contractx.ErrValidation, a.cfg.SessionBackend)
	}
}

func openPublisher() (*qstashx.Client, error) {
	qCfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		return nil, err
	}
	return qstashx.NewClient(*qCfg)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
