package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"caixa/internal/core"
	"caixa/internal/services"
	"caixa/internal/storage"
)

const dateLayout = "2006-01-02"

type (
	openSessionRequest struct {
		ServiceDate    string `json:"service_date"`
		Label          string `json:"label"`
		CongregationID int64  `json:"congregation_id"`
		ActorID        string `json:"actor_id"`
	}

	sessionResponse struct {
		ID             int64  `json:"id"`
		ServiceDate    string `json:"service_date"`
		Label          string `json:"label"`
		CongregationID int64  `json:"congregation_id"`
		Status         string `json:"status"`
		CreatedBy      string `json:"created_by"`
		ValidatedBy    string `json:"validated_by,omitempty"`
		ValidatedAt    string `json:"validated_at,omitempty"`
	}

	posRecordRequest struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		Direction   string `json:"direction"`
		Instrument  string `json:"instrument,omitempty"`
		Amount      string `json:"amount"`
	}

	pixRecordRequest struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
	}

	entriesRequest struct {
		POS []posRecordRequest `json:"pos"`
		Pix []pixRecordRequest `json:"pix"`
	}

	entriesResponse struct {
		Added int `json:"added"`
	}

	obligationRequest struct {
		Kind        string `json:"kind"`
		Payee       string `json:"payee"`
		AmountCents int64  `json:"amount_cents"`
	}

	obligationsRequest struct {
		Obligations []obligationRequest `json:"obligations"`
	}

	bookEntryResponse struct {
		Date         string `json:"date"`
		Description  string `json:"description"`
		Direction    string `json:"direction"`
		Instrument   string `json:"instrument,omitempty"`
		AmountCents  int64  `json:"amount_cents"`
		BalanceCents int64  `json:"balance_cents"`
	}

	cashBookResponse struct {
		OpeningCents int64               `json:"opening_cents"`
		FinalCents   int64               `json:"final_cents"`
		Entries      []bookEntryResponse `json:"entries"`
	}

	summaryResponse struct {
		NetCashCents int64 `json:"net_cash_cents"`
		PixCents     int64 `json:"pix_cents"`
		DebitCents   int64 `json:"debit_cents"`
		CreditCents  int64 `json:"credit_cents"`
		OutflowCents int64 `json:"outflow_cents"`
		Count        int   `json:"count"`
	}

	allocationResponse struct {
		Kind           string `json:"kind"`
		Payee          string `json:"payee"`
		RequestedCents int64  `json:"requested_cents"`
		CoveredCents   int64  `json:"covered_cents"`
		PendingCents   int64  `json:"pending_cents"`
	}

	pendingResponse struct {
		AvailableCents int64                `json:"available_cents"`
		RemainingCents int64                `json:"remaining_cents"`
		Allocations    []allocationResponse `json:"allocations"`
	}

	actorRequest struct {
		ActorID string `json:"actor_id"`
	}

	errorResponse struct {
		Error string `json:"error"`
		Field string `json:"field,omitempty"`
	}
)

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := parseDate(req.ServiceDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	session, err := s.sessions.OpenSession(r.Context(), services.OpenSessionRequest{
		ServiceDate:    date,
		Label:          sanitizeInput(req.Label),
		CongregationID: req.CongregationID,
		CreatedBy:      strings.TrimSpace(req.ActorID),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	session, err := s.sessions.Session(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) handleRecordEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req entriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pos := make([]core.POSRecord, 0, len(req.POS))
	for _, rec := range req.POS {
		date, err := parseDate(rec.Date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		pos = append(pos, core.POSRecord{
			Date:        date,
			Description: sanitizeInput(rec.Description),
			Direction:   core.Direction(rec.Direction),
			Instrument:  core.Instrument(rec.Instrument),
			Amount:      strings.TrimSpace(rec.Amount),
		})
	}
	pix := make([]core.PixRecord, 0, len(req.Pix))
	for _, rec := range req.Pix {
		date, err := parseDate(rec.Date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		pix = append(pix, core.PixRecord{
			Date:        date,
			Description: sanitizeInput(rec.Description),
			Amount:      strings.TrimSpace(rec.Amount),
		})
	}

	added, err := s.sessions.RecordEntries(r.Context(), id, pos, pix)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSession(id)
	writeJSON(w, http.StatusOK, entriesResponse{Added: added})
}

func (s *Server) handleRecordObligations(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req obligationsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	obligations := make([]core.Obligation, 0, len(req.Obligations))
	for _, o := range req.Obligations {
		obligations = append(obligations, core.Obligation{
			Kind:      core.ObligationKind(o.Kind),
			Payee:     sanitizeInput(o.Payee),
			Requested: core.Money{Cents: o.AmountCents},
		})
	}

	if err := s.sessions.RecordObligations(r.Context(), id, obligations); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSession(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCashBook(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	key := s.sessionCacheKey(id)
	book, found := s.cashbookCache.Get(key)
	if !found {
		var err error
		book, err = s.sessions.CashBook(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.cashbookCache.Set(key, book)
	}

	resp := cashBookResponse{
		OpeningCents: book.Opening.Cents,
		FinalCents:   book.Final.Cents,
		Entries:      make([]bookEntryResponse, 0, len(book.Entries)),
	}
	for _, e := range book.Entries {
		resp.Entries = append(resp.Entries, bookEntryResponse{
			Date:         e.Date.Format(dateLayout),
			Description:  e.Description,
			Direction:    string(e.Direction),
			Instrument:   string(e.Instrument),
			AmountCents:  e.Amount.Cents,
			BalanceCents: e.Balance.Cents,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	key := s.sessionCacheKey(id)
	summary, found := s.summaryCache.Get(key)
	if !found {
		var err error
		summary, err = s.sessions.Summary(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.summaryCache.Set(key, summary)
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		NetCashCents: summary.NetCash.Cents,
		PixCents:     summary.Pix.Cents,
		DebitCents:   summary.Debit.Cents,
		CreditCents:  summary.Credit.Cents,
		OutflowCents: summary.Outflow.Cents,
		Count:        summary.Count,
	})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	pending, err := s.sessions.Pending(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := pendingResponse{
		AvailableCents: pending.Available.Cents,
		RemainingCents: pending.Remaining.Cents,
		Allocations:    make([]allocationResponse, 0, len(pending.Allocations)),
	}
	for _, a := range pending.Allocations {
		resp.Allocations = append(resp.Allocations, allocationResponse{
			Kind:           string(a.Kind),
			Payee:          a.Payee,
			RequestedCents: a.Requested.Cents,
			CoveredCents:   a.Covered.Cents,
			PendingCents:   a.Pending.Cents,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.handleReview(w, r, s.sessions.Validate)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.handleReview(w, r, s.sessions.Close)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request, review func(ctx context.Context, id int64, actor string) (core.Session, error)) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actor := strings.TrimSpace(req.ActorID)
	if actor == "" {
		writeError(w, r, &core.ValidationError{Field: "actor_id", Reason: "required"})
		return
	}

	session, err := review(r.Context(), id, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateSession(id)
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req actorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actor := strings.TrimSpace(req.ActorID)
	if actor == "" {
		writeError(w, r, &core.ValidationError{Field: "actor_id", Reason: "required"})
		return
	}

	if err := s.sessions.Reject(r.Context(), id, actor); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func sessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session id"})
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return core.Date{Time: t}, nil
}

func toSessionResponse(s core.Session) sessionResponse {
	resp := sessionResponse{
		ID:             s.ID,
		ServiceDate:    s.ServiceDate.Format(dateLayout),
		Label:          s.Label,
		CongregationID: s.CongregationID,
		Status:         string(s.Status),
		CreatedBy:      s.CreatedBy,
		ValidatedBy:    s.ValidatedBy,
	}
	if !s.ValidatedAt.IsZero() {
		resp.ValidatedAt = s.ValidatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors to status codes: invalid input is 422,
// review conflicts are 409, creator-exclusion is 403.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Reason, Field: verr.Field})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrOwnSession):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrSessionNotOpen), errors.Is(err, core.ErrSessionModified):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "url", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
