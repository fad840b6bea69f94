package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/tanpawarit/support-triage-agent/agent/orderid"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s"`
}

type orderRow struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	OrderID      string    `bun:"order_id,pk"`
	CustomerName string    `bun:"customer_name"`
	Email        string    `bun:"email"`
	Item         string    `bun:"item"`
	Status       string    `bun:"status"`
	OrderDate    time.Time `bun:"order_date,nullzero"`
	Total        float64   `bun:"total,nullzero"`
}

func (r orderRow) record() Record {
	rec := Record{
		OrderID:      r.OrderID,
		CustomerName: r.CustomerName,
		Email:        r.Email,
		Item:         r.Item,
		Status:       r.Status,
		Total:        r.Total,
	}
	if !r.OrderDate.IsZero() {
		rec.OrderDate = r.OrderDate.Format(time.DateOnly)
	}
	return rec
}

// PostgresRepository reads orders from an existing "orders" table.
type PostgresRepository struct {
	db *bun.DB
}

var _ Repository = (*PostgresRepository)(nil)

func OpenPostgresRepository(cfg PostgresConfig) (*PostgresRepository, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	return NewPostgresRepository(bun.NewDB(sqldb, pgdialect.New())), nil
}

func NewPostgresRepository(db *bun.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PostgresRepository) GetByNormalizedID(ctx context.Context, id string) (*Record, error) {
	key := orderid.Normalize(strings.TrimSpace(id))
	if key == "" {
		return nil, fmt.Errorf("%w: empty id", ErrOrderNotFound)
	}

	var row orderRow
	err := r.db.NewSelect().
		Model(&row).
		Where("upper(replace(replace(?TableAlias.order_id, '-', ''), ' ', '')) = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("select order %s: %w", key, err)
	}

	rec := row.record()
	return &rec, nil
}

func (r *PostgresRepository) Search(ctx context.Context, q SearchQuery) ([]Record, error) {
	email := strings.ToLower(strings.TrimSpace(q.Email))
	text := strings.TrimSpace(q.Text)
	if email == "" && text == "" {
		return []Record{}, nil
	}

	var rows []orderRow
	err := searchOrders(r.db.NewSelect().Model(&rows), email, text).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

// searchOrders matches the same rows as FileRepository.Search: an equal email,
// an order id equal to one extracted from text, or a non-empty customer name
// contained in text.
func searchOrders(sq *bun.SelectQuery, email, text string) *bun.SelectQuery {
	return sq.
		WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			if email != "" {
				sq = sq.WhereOr("lower(trim(?TableAlias.email)) = ?", email)
			}
			if text == "" {
				return sq
			}
			if ids := orderid.ExtractAll(text); len(ids) > 0 {
				sq = sq.WhereOr("upper(replace(replace(?TableAlias.order_id, '-', ''), ' ', '')) IN (?)", bun.In(ids))
			}
			return sq.WhereOr("trim(?TableAlias.customer_name) <> '' AND strpos(?, lower(trim(?TableAlias.customer_name))) > 0", strings.ToLower(text))
		}).
		OrderExpr("?TableAlias.order_id ASC")
}
