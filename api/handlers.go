package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/go-chi/chi/v5"
)

var errBadRequest = errors.New("bad request")

// scope reads the query scope: the account, broker, asset and window query
// parameters, overridden by the path parameters of the route.
func scope(r *http.Request) (costbasis.Scope, error) {
	q := r.URL.Query()
	s := costbasis.Scope{
		AccountID: q.Get("account"),
		Asset:     q.Get("asset"),
	}
	if id := chi.URLParam(r, "account_id"); id != "" {
		s.AccountID = id
	}
	broker := q.Get("broker")
	if b := chi.URLParam(r, "broker"); b != "" {
		broker = b
	}
	if broker != "" {
		b, err := costbasis.ParseBroker(broker)
		if err != nil {
			return s, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		s.Broker = b
	}
	window, err := date.ParseRange(q.Get("window"))
	if err != nil {
		return s, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	s.Window = window
	return s, nil
}

type syncResponse struct {
	NewTransactions int                    `json:"new_transactions"`
	Accounts        []costbasis.SyncReport `json:"accounts"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no brokerage feed configured"))
		return
	}
	reports, err := s.ledger.SyncAll(r.Context(), s.feed)
	if err != nil {
		s.log.Error().Err(err).Int("accounts_done", len(reports)).Msg("sync failed")
		writeError(w, statusOf(err), err)
		return
	}
	resp := syncResponse{Accounts: reports}
	if resp.Accounts == nil {
		resp.Accounts = []costbasis.SyncReport{}
	}
	for _, rep := range reports {
		resp.NewTransactions += rep.Ingested
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnrealized(w http.ResponseWriter, r *http.Request) {
	sc, err := scope(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	u, err := s.ledger.Unrealized(r.Context(), sc)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type realizedResponse struct {
	RealizedGain costbasis.Money `json:"realized_gain"`
	Window       string          `json:"window,omitempty"`
}

func (s *Server) handleRealized(w http.ResponseWriter, r *http.Request) {
	sc, err := scope(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	total, err := s.ledger.Realized(r.Context(), sc)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, realizedResponse{RealizedGain: total, Window: sc.Window.Identifier()})
}

func (s *Server) handleAverageEntry(w http.ResponseWriter, r *http.Request) {
	sc, err := scope(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	a, err := s.ledger.AverageEntry(r.Context(), sc)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleActivePositions(w http.ResponseWriter, r *http.Request) {
	sc, err := scope(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	p, err := s.ledger.ActivePositions(r.Context(), sc)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	if p.Items == nil {
		p.Items = []costbasis.Position{}
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleClosedPositions(w http.ResponseWriter, r *http.Request) {
	sc, err := scope(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	gains, err := s.ledger.ClosedPositions(r.Context(), sc)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	if gains == nil {
		gains = []costbasis.Gain{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": gains})
}
