// Package api exposes the triage pipeline and the order repository over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
)

// TurnHandler runs one triage turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResponse, error)
}

type Server struct {
	turns  TurnHandler
	orders orderx.Repository
}

// NewServer returns the routed handler wrapped in logging, request id and
// CORS middleware.
func NewServer(turns TurnHandler, orders orderx.Repository, logger zerolog.Logger) http.Handler {
	s := &Server{turns: turns, orders: orders}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/orders/get", s.handleOrdersGet)
	mux.HandleFunc("/orders/search", s.handleOrdersSearch)
	mux.HandleFunc("/triage/invoke", s.handleTriageInvoke)

	return chain(mux,
		withCORS,
		withAccessLog,
		withRequestID,
		withLogger(logger),
	)
}

type detailResponse struct {
	Detail string `json:"detail"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type searchResponse struct {
	Results []orderx.Record `json:"results"`
}

type triageRequest struct {
	TicketText     string `json:"ticket_text"`
	OrderID        string `json:"order_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
}
