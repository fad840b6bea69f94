package qstash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
)

func TestPublishTurn(t *testing.T) {
	t.Parallel()

	var (
		gotPath  string
		gotAuth  string
		gotDedup string
		gotEvent contractx.TurnEvent
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDedup = r.Header.Get("Upstash-Deduplication-Id")
		if err := json.NewDecoder(r.Body).Decode(&gotEvent); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"msg_1"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL + "/", Token: "tok", Destination: "https://hooks.example.com/turns"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ev := contractx.TurnEvent{ThreadID: "ORD4521", IssueType: contractx.IssueDamagedItem, OrderID: "ORD4521", OrderFound: true, ReplyText: "hi", CompletedAt: at}
	if err := client.PublishTurn(context.Background(), ev); err != nil {
		t.Fatalf("PublishTurn() error = %v", err)
	}

	if gotPath != "/v2/publish/https://hooks.example.com/turns" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotDedup == "" {
		t.Fatal("expected a deduplication id")
	}
	if gotEvent.ThreadID != "ORD4521" || !gotEvent.OrderFound || !gotEvent.CompletedAt.Equal(at) {
		t.Fatalf("event = %+v", gotEvent)
	}
}

func TestPublishTurnHTTPError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL, Token: "tok", Destination: "dest"})
	if err := client.PublishTurn(context.Background(), contractx.TurnEvent{ThreadID: "t"}); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()
	cases := map[string]Config{
		"missing url":         {Token: "t", Destination: "d"},
		"bad url":             {URL: "::", Token: "t", Destination: "d"},
		"missing token":       {URL: "https://qstash.upstash.io", Destination: "d"},
		"missing destination": {URL: "https://qstash.upstash.io", Token: "t"},
	}
	for name, cfg := range cases {
		if _, err := NewClient(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
