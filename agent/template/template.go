// Package template holds the reply templates registered per issue type and
// the issue catalogue the classifier is instructed with.
package template

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
)

// DefaultTemplate is used for issue types without a registered template.
const DefaultTemplate = "Hi {{customer_name}}, regarding order {{order_id}}: We are looking into your issue."

const otherDescription = "None of the categories above apply."

//go:embed defaults/replies.json defaults/issues.json
var defaults embed.FS

type Reply struct {
	IssueType string `json:"issue_type" yaml:"issue_type"`
	Template  string `json:"template" yaml:"template"`
}

type Issue struct {
	IssueType   string `json:"issue_type" yaml:"issue_type"`
	Description string `json:"description" yaml:"description"`
}

type Category struct {
	IssueType   contractx.IssueType
	Description string
}

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	templates  map[contractx.IssueType]string
	categories []Category
}

var _ contractx.TemplateRegistry = (*Registry)(nil)

// Default returns the registry built from the embedded files.
func Default() *Registry {
	r, err := Load("", "")
	if err != nil {
		panic(fmt.Sprintf("template: embedded defaults are invalid: %v", err))
	}
	return r
}

// Load builds a registry from the given reply and issue files. An empty path
// falls back to the embedded default. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
func Load(repliesPath, issuesPath string) (*Registry, error) {
	var replies []Reply
	if err := decodeFile(repliesPath, "defaults/replies.json", &replies); err != nil {
		return nil, fmt.Errorf("load replies: %w", err)
	}
	var issues []Issue
	if err := decodeFile(issuesPath, "defaults/issues.json", &issues); err != nil {
		return nil, fmt.Errorf("load issues: %w", err)
	}
	return New(replies, issues), nil
}

// New builds a registry. Entries naming unknown issue types are skipped; the
// first entry for a type wins. Every known issue type ends up in the
// catalogue, with IssueOther last.
func New(replies []Reply, issues []Issue) *Registry {
	r := &Registry{templates: make(map[contractx.IssueType]string, len(replies))}

	for _, rp := range replies {
		t := contractx.IssueType(strings.TrimSpace(rp.IssueType))
		if !t.Valid() {
			log.Warn().Str("issue_type", rp.IssueType).Msg("skipping reply template for unknown issue type")
			continue
		}
		if _, dup := r.templates[t]; dup || strings.TrimSpace(rp.Template) == "" {
			continue
		}
		r.templates[t] = rp.Template
	}

	described := make(map[contractx.IssueType]string, len(issues))
	for _, is := range issues {
		t := contractx.IssueType(strings.TrimSpace(is.IssueType))
		if !t.Valid() || t == contractx.IssueOther {
			continue
		}
		if _, dup := described[t]; dup {
			continue
		}
		described[t] = strings.TrimSpace(is.Description)
	}

	fallback := embeddedDescriptions()
	for _, t := range contractx.IssueTypes() {
		desc := described[t]
		if desc == "" {
			desc = fallback[t]
		}
		if t == contractx.IssueOther {
			desc = otherDescription
		}
		r.categories = append(r.categories, Category{IssueType: t, Description: desc})
	}
	return r
}

func (r *Registry) TemplateFor(issueType contractx.IssueType) string {
	if r != nil {
		if tpl, ok := r.templates[issueType]; ok {
			return tpl
		}
	}
	return DefaultTemplate
}

// Categories returns the issue catalogue in classification order.
func (r *Registry) Categories() []Category {
	return append([]Category(nil), r.categories...)
}

// Render fills the placeholders that can be answered from the order record.
// Without a record only {{order_id}} is filled; the rest are left for the
// drafting model.
func Render(tpl, orderID string, rec *orderx.Record) string {
	pairs := []string{"{{order_id}}", orderID}
	if rec != nil {
		pairs = append(pairs,
			"{{customer_name}}", rec.CustomerName,
			"{{item}}", rec.Item,
			"{{status}}", rec.Status,
			"{{email}}", rec.Email,
		)
	}
	if orderID == "" {
		pairs = pairs[2:]
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

func embeddedDescriptions() map[contractx.IssueType]string {
	var issues []Issue
	out := make(map[contractx.IssueType]string)
	if err := decodeFile("", "defaults/issues.json", &issues); err != nil {
		return out
	}
	for _, is := range issues {
		out[contractx.IssueType(is.IssueType)] = is.Description
	}
	return out
}

func decodeFile(path, embedded string, dst any) error {
	if strings.TrimSpace(path) == "" {
		raw, err := defaults.ReadFile(embedded)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dst)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", contractx.ErrValidation, err)
		}
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(raw, dst)
	default:
		return json.Unmarshal(raw, dst)
	}
}
