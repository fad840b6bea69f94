package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	statex "github.com/tanpawarit/support-triage-agent/agent/state"
	openrouterx "github.com/tanpawarit/support-triage-agent/pkg/openrouter"
)

func TestConfigModelFor(t *testing.T) {
	t.Parallel()
	cfg := Config{
		APIKey:                "k",
		Model:                 "base",
		Temperature:           0.3,
		ClassifierModel:       "small",
		ClassifierTemperature: 0,
		DrafterTemperature:    -1,
	}

	m, temp := cfg.ModelFor(contractx.AgentTypeClassifier)
	assert.Equal(t, "small", m)
	assert.Equal(t, float32(0), temp)

	m, temp = cfg.ModelFor(contractx.AgentTypeDrafter)
	assert.Equal(t, "base", m)
	assert.Equal(t, float32(0.3), temp)

	or := cfg.OpenRouterFor(contractx.AgentTypeDrafter)
	assert.Equal(t, "https://openrouter.ai/api/v1", or.BaseURL)
	require.NotNil(t, or.MaxCompletionToken)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Config{APIKey: "k", Model: "m"}.Validate())
	assert.ErrorIs(t, Config{Model: "m"}.Validate(), contractx.ErrValidation)
	assert.ErrorIs(t, Config{APIKey: "k"}.Validate(), contractx.ErrValidation)
	assert.ErrorIs(t, Config{APIKey: "k", Model: "m", Provider: "ollama"}.Validate(), contractx.ErrValidation)
	assert.Equal(t, ProviderAnthropic, Config{Provider: " Anthropic "}.ProviderName())
}

func TestFromTranscript(t *testing.T) {
	t.Parallel()
	now := time.Now()
	msgs := FromTranscript([]statex.Message{
		statex.UserMessage("hi", now),
		statex.ToolMessage("fetch_order", "call_ORD1", `{"order_id":"ORD1"}`, now),
		statex.AgentMessage("hello", now),
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, schema.System, msgs[1].Role)
	assert.Equal(t, `Tool result (fetch_order, call_ORD1): {"order_id":"ORD1"}`, msgs[1].Content)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
}

func TestClassificationSpecListsEveryIssueType(t *testing.T) {
	t.Parallel()
	format := ClassificationSpec()

	props := format.Schema["properties"].(map[string]any)
	enum := props["issue_type"].(map[string]any)["enum"].([]string)
	assert.Len(t, enum, len(contractx.IssueTypes()))
	assert.Contains(t, enum, "other")
}

type fakeChatModel struct {
	reply *schema.Message
	err   error
	seen  []*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.seen = input
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestEinoGenerator(t *testing.T) {
	t.Parallel()
	fake := &fakeChatModel{reply: schema.AssistantMessage("ok", nil)}
	g := NewEinoGenerator(fake, nil)

	msg, err := g.GenerateText(context.Background(), []*schema.Message{schema.UserMessage("x")})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Len(t, fake.seen, 1)

	fake.reply = nil
	_, err = g.GenerateStructured(context.Background(), nil, ClassificationSpec())
	assert.Error(t, err)
}

func newOpenAITestServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		_ = json.Unmarshal(body, captured)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEinoGeneratorSendsResponseFormat(t *testing.T) {
	t.Parallel()
	var captured map[string]any
	srv := newOpenAITestServer(t, `{"issue_type":"damaged_item","order_id":"ORD-1"}`, &captured)

	orCfg := openrouterx.Config{BaseURL: srv.URL + "/v1", APIKey: "test", Model: "deepseek/deepseek-r1", Timeout: 5 * time.Second}
	chatModel, err := orCfg.New(context.Background())
	require.NoError(t, err)
	g := NewEinoGenerator(chatModel, orCfg.ExtraFields())

	msg, err := g.GenerateStructured(context.Background(), []*schema.Message{schema.UserMessage("ORD-1 is broken")}, ClassificationSpec())
	require.NoError(t, err)
	assert.JSONEq(t, `{"issue_type":"damaged_item","order_id":"ORD-1"}`, msg.Content)

	format, ok := captured["response_format"].(map[string]any)
	require.True(t, ok, "request carries no response_format: %v", captured)
	assert.Equal(t, "json_schema", format["type"])
	js := format["json_schema"].(map[string]any)
	assert.Equal(t, "classification", js["name"])
	assert.Equal(t, true, js["strict"])
	props := js["schema"].(map[string]any)["properties"].(map[string]any)
	enum := props["issue_type"].(map[string]any)["enum"].([]any)
	assert.Len(t, enum, len(contractx.IssueTypes()))
	assert.Contains(t, enum, "damaged_item")
	assert.Contains(t, captured, "reasoning", "model extras must survive the per-call option")

	captured = nil
	_, err = g.GenerateText(context.Background(), []*schema.Message{schema.UserMessage("draft")})
	require.NoError(t, err)
	assert.NotContains(t, captured, "response_format")
	assert.Contains(t, captured, "reasoning")
}

func TestOpenAIGeneratorStructured(t *testing.T) {
	t.Parallel()
	var captured map[string]any
	srv := newOpenAITestServer(t, `{"issue_type":"wrong_item","order_id":null}`, &captured)

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithMaxRetries(0),
	)
	g := NewOpenAIGenerator(&client, "test-model", 0, 256)

	msg, err := g.GenerateStructured(context.Background(), []*schema.Message{
		schema.SystemMessage("policy"),
		schema.UserMessage("I got the wrong shoes"),
	}, ClassificationSpec())
	require.NoError(t, err)
	assert.JSONEq(t, `{"issue_type":"wrong_item","order_id":null}`, msg.Content)

	assert.Equal(t, "test-model", captured["model"])
	format := captured["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	js := format["json_schema"].(map[string]any)
	assert.Equal(t, "classification", js["name"])
	assert.Equal(t, true, js["strict"])

	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestOpenAIGeneratorText(t *testing.T) {
	t.Parallel()
	var captured map[string]any
	srv := newOpenAITestServer(t, "Please share your order id.", &captured)

	client := openai.NewClient(option.WithAPIKey("test"), option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	g := NewOpenAIGenerator(&client, "test-model", 0.2, 0)

	msg, err := g.GenerateText(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "Please share your order id.", msg.Content)
	_, hasFormat := captured["response_format"]
	assert.False(t, hasFormat)
}

func TestOpenAIGeneratorHTTPError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithAPIKey("test"), option.WithBaseURL(srv.URL+"/v1/"), option.WithMaxRetries(0))
	_, err := NewOpenAIGenerator(&client, "m", 0, 0).GenerateText(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.Error(t, err)
}

type fakeMessages struct {
	text   string
	err    error
	params anthropic.MessageNewParams
}

func (f *fakeMessages) New(ctx context.Context, params anthropic.MessageNewParams, opts ...anthropicoption.RequestOption) (*anthropic.Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{{Type: "text", Text: f.text}},
	}, nil
}

func TestAnthropicGeneratorStructured(t *testing.T) {
	t.Parallel()
	fake := &fakeMessages{text: "Sure! {\"issue_type\": \"late_delivery\", \"order_id\": \"ORD-7\"} hope that helps"}
	g := NewAnthropicGenerator(fake, "claude-test", 0, 0)

	msg, err := g.GenerateStructured(context.Background(), []*schema.Message{
		schema.SystemMessage("policy"),
		schema.UserMessage("where is ORD-7"),
		schema.SystemMessage("Tool result (fetch_order): {}"),
		schema.AssistantMessage("checking", nil),
	}, ClassificationSpec())
	require.NoError(t, err)
	assert.JSONEq(t, `{"issue_type":"late_delivery","order_id":"ORD-7"}`, msg.Content)

	require.Len(t, fake.params.System, 2)
	assert.Equal(t, "policy", fake.params.System[0].Text)
	assert.Contains(t, fake.params.System[1].Text, "JSON schema")
	assert.Equal(t, int64(1024), fake.params.MaxTokens)

	require.Len(t, fake.params.Messages, 2)
	assert.Equal(t, anthropic.MessageParamRoleUser, fake.params.Messages[0].Role)
	assert.Len(t, fake.params.Messages[0].Content, 2, "late system message merged into the user turn")
	assert.Equal(t, anthropic.MessageParamRoleAssistant, fake.params.Messages[1].Role)
}

func TestAnthropicGeneratorErrors(t *testing.T) {
	t.Parallel()

	g := NewAnthropicGenerator(&fakeMessages{err: errors.New("overloaded")}, "m", 0, 10)
	_, err := g.GenerateText(context.Background(), []*schema.Message{schema.UserMessage("x")})
	assert.EqualError(t, err, "overloaded")

	_, err = g.GenerateText(context.Background(), []*schema.Message{schema.SystemMessage("only system")})
	assert.Error(t, err)
}

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":{"b":1}}`, extractJSONObject(`x {"a":{"b":1}} y {"c":2}`))
	assert.Equal(t, "", extractJSONObject("no json } here"))
	assert.Equal(t, "", extractJSONObject(`{"open": true`))
}

func TestNewGeneratorProviders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	g, err := NewGenerator(ctx, Config{Provider: "openai", APIKey: "k", Model: "gpt"}, contractx.AgentTypeClassifier)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIGenerator{}, g)

	g, err = NewGenerator(ctx, Config{Provider: "anthropic", APIKey: "k", Model: "claude"}, contractx.AgentTypeDrafter)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicGenerator{}, g)

	g, err = NewGenerator(ctx, Config{APIKey: "k", Model: "openrouter/model"}, contractx.AgentTypeDrafter)
	require.NoError(t, err)
	assert.IsType(t, &EinoGenerator{}, g)

	_, err = NewGenerator(ctx, Config{Model: "m"}, contractx.AgentTypeDrafter)
	assert.ErrorIs(t, err, contractx.ErrValidation)
}
