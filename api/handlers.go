package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
	"github.com/tanpawarit/support-triage-agent/agent/orderid"
)

const maxRequestBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleOrdersGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id := orderid.Normalize(strings.TrimSpace(r.URL.Query().Get("order_id")))
	if id == "" {
		writeDetail(w, http.StatusBadRequest, "order_id is required")
		return
	}

	rec, err := s.orders.GetByNormalizedID(r.Context(), id)
	switch {
	case errors.Is(err, orderx.ErrOrderNotFound):
		writeDetail(w, http.StatusNotFound, "Order not found")
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("order_id", id).Msg("order lookup failed")
		writeDetail(w, http.StatusInternalServerError, "order lookup failed")
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleOrdersSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	q := orderx.SearchQuery{
		Email: strings.TrimSpace(r.URL.Query().Get("customer_email")),
		Text:  strings.TrimSpace(r.URL.Query().Get("q")),
	}

	results, err := s.orders.Search(r.Context(), q)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("order search failed")
		writeDetail(w, http.StatusInternalServerError, "order search failed")
		return
	}
	if results == nil {
		results = []orderx.Record{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (s *Server) handleTriageInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var body triageRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.TicketText) == "" {
		writeDetail(w, http.StatusBadRequest, "ticket_text is required")
		return
	}

	resp, err := s.turns.HandleTurn(r.Context(), contractx.TurnRequest{
		TicketText:     body.TicketText,
		OrderID:        body.OrderID,
		ConversationID: body.ConversationID,
	})
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("triage invoke failed")
		writeDetail(w, http.StatusInternalServerError, "triage failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
