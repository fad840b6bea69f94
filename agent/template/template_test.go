package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
)

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()
	r := Default()

	for _, it := range contractx.IssueTypes() {
		assert.NotEmpty(t, r.TemplateFor(it), it)
	}
	assert.Contains(t, r.TemplateFor(contractx.IssueRefundRequest), "5 business days")
	assert.Equal(t, DefaultTemplate, r.TemplateFor(contractx.IssueOther))
	assert.Equal(t, DefaultTemplate, r.TemplateFor("no_such_type"))

	cats := r.Categories()
	require.Len(t, cats, len(contractx.IssueTypes()))
	assert.Equal(t, contractx.IssueOther, cats[len(cats)-1].IssueType)
	for _, c := range cats {
		assert.NotEmpty(t, c.Description, c.IssueType)
	}
}

func TestNilRegistryFallsBack(t *testing.T) {
	t.Parallel()
	var r *Registry
	assert.Equal(t, DefaultTemplate, r.TemplateFor(contractx.IssueWrongItem))
}

func TestNewSkipsUnknownAndDuplicates(t *testing.T) {
	t.Parallel()
	r := New(
		[]Reply{
			{IssueType: "wrong_item", Template: "first"},
			{IssueType: "wrong_item", Template: "second"},
			{IssueType: "bogus", Template: "nope"},
			{IssueType: "late_delivery", Template: "  "},
		},
		[]Issue{{IssueType: "wrong_item", Description: "custom wording"}},
	)

	assert.Equal(t, "first", r.TemplateFor(contractx.IssueWrongItem))
	assert.Equal(t, DefaultTemplate, r.TemplateFor(contractx.IssueLateDelivery))

	cats := r.Categories()
	byType := map[contractx.IssueType]string{}
	for _, c := range cats {
		byType[c.IssueType] = c.Description
	}
	assert.Equal(t, "custom wording", byType[contractx.IssueWrongItem])
	assert.Contains(t, byType[contractx.IssueDamagedItem], "BROKEN")
}

func TestLoadYAMLOverride(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "replies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- issue_type: damaged_item
  template: "Sorry {{customer_name}}, {{item}} broke."
`), 0o600))

	r, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "Sorry {{customer_name}}, {{item}} broke.", r.TemplateFor(contractx.IssueDamagedItem))
	assert.Equal(t, DefaultTemplate, r.TemplateFor(contractx.IssueWrongItem))

	_, err = Load(filepath.Join(dir, "missing.json"), "")
	assert.ErrorIs(t, err, contractx.ErrValidation)
}

func TestRender(t *testing.T) {
	t.Parallel()
	rec := &orderx.Record{OrderID: "ORD-1", CustomerName: "Ana", Item: "Lamp", Status: "shipped", Email: "ana@example.com"}

	got := Render("Hi {{customer_name}}, {{item}} on {{order_id}} is {{status}} ({{email}})", "ORD1", rec)
	assert.Equal(t, "Hi Ana, Lamp on ORD1 is shipped (ana@example.com)", got)

	got = Render(DefaultTemplate, "ORD9", nil)
	assert.Equal(t, "Hi {{customer_name}}, regarding order ORD9: We are looking into your issue.", got)

	assert.Equal(t, "x {{order_id}}", Render("x {{order_id}}", "", nil))
}
