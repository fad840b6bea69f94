package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/support-triage-agent/agent/orderid"
)

// FileRepository serves orders from a JSON array loaded once at startup.
// Search goes through an in-memory bleve index.
type FileRepository struct {
	orders []Record
	byKey  map[string]int
	index  bleve.Index
}

var _ Repository = (*FileRepository)(nil)

type indexDocument struct {
	OrderKey     string `json:"order_key"`
	Email        string `json:"email"`
	CustomerName string `json:"customer_name"`
	Item         string `json:"item"`
}

// LoadFileRepository reads orders from path. A missing file yields an empty
// repository.
func LoadFileRepository(path string) (*FileRepository, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("orders file not found, serving an empty repository")
		return NewFileRepository(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read orders file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode orders file %s: %w", path, err)
	}
	return NewFileRepository(records)
}

func NewFileRepository(records []Record) (*FileRepository, error) {
	idx, err := bleve.NewMemOnly(newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create order index: %w", err)
	}

	r := &FileRepository{
		orders: append([]Record(nil), records...),
		byKey:  make(map[string]int, len(records)),
		index:  idx,
	}

	batch := idx.NewBatch()
	for i, rec := range r.orders {
		key := orderid.Normalize(strings.TrimSpace(rec.OrderID))
		if key == "" {
			continue
		}
		if _, dup := r.byKey[key]; dup {
			log.Warn().Str("order_id", rec.OrderID).Msg("duplicate order id in orders file, keeping the first")
			continue
		}
		r.byKey[key] = i
		doc := indexDocument{
			OrderKey:     key,
			Email:        strings.ToLower(strings.TrimSpace(rec.Email)),
			CustomerName: rec.CustomerName,
			Item:         rec.Item,
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("index order %s: %w", rec.OrderID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("index orders: %w", err)
	}
	return r, nil
}

func newIndexMapping() mapping.IndexMapping {
	keyword := bleve.NewKeywordFieldMapping()
	text := bleve.NewTextFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("order_key", keyword)
	doc.AddFieldMappingsAt("email", keyword)
	doc.AddFieldMappingsAt("customer_name", text)
	doc.AddFieldMappingsAt("item", text)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

func (r *FileRepository) Len() int {
	return len(r.byKey)
}

func (r *FileRepository) Close() error {
	if r == nil || r.index == nil {
		return nil
	}
	return r.index.Close()
}

func (r *FileRepository) GetByNormalizedID(ctx context.Context, id string) (*Record, error) {
	key := orderid.Normalize(strings.TrimSpace(id))
	i, ok := r.byKey[key]
	if key == "" || !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, key)
	}
	rec := r.orders[i]
	return &rec, nil
}

func (r *FileRepository) Search(ctx context.Context, q SearchQuery) ([]Record, error) {
	email := strings.ToLower(strings.TrimSpace(q.Email))
	text := strings.TrimSpace(q.Text)
	if email == "" && text == "" {
		return []Record{}, nil
	}

	var clauses []query.Query
	if email != "" {
		tq := bleve.NewTermQuery(email)
		tq.SetField("email")
		clauses = append(clauses, tq)
	}
	if text != "" {
		for _, id := range orderid.ExtractAll(text) {
			tq := bleve.NewTermQuery(id)
			tq.SetField("order_key")
			clauses = append(clauses, tq)
		}
		mq := bleve.NewMatchQuery(text)
		mq.SetField("customer_name")
		clauses = append(clauses, mq)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(clauses...), len(r.orders)+1, 0, false)
	res, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}

	lowerText := strings.ToLower(text)
	textKeys := make(map[string]struct{})
	for _, id := range orderid.ExtractAll(text) {
		textKeys[id] = struct{}{}
	}

	positions := make([]int, 0, len(res.Hits))
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || i < 0 || i >= len(r.orders) {
			continue
		}
		rec := r.orders[i]
		if matchesSearch(rec, email, lowerText, textKeys) {
			positions = append(positions, i)
		}
	}
	sort.Ints(positions)

	out := make([]Record, 0, len(positions))
	for _, i := range positions {
		out = append(out, r.orders[i])
	}
	return out, nil
}

// matchesSearch narrows index hits to exact matches: the email equals, an
// extracted id equals the order id, or the full customer name appears in the
// text.
func matchesSearch(rec Record, email, lowerText string, textKeys map[string]struct{}) bool {
	if email != "" && strings.EqualFold(strings.TrimSpace(rec.Email), email) {
		return true
	}
	if lowerText == "" {
		return false
	}
	if _, ok := textKeys[orderid.Normalize(rec.OrderID)]; ok {
		return true
	}
	name := strings.ToLower(strings.TrimSpace(rec.CustomerName))
	return name != "" && strings.Contains(lowerText, name)
}
