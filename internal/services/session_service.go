package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"caixa/internal/core"
	"caixa/internal/sheets"
)

// Store is the persistence surface SessionService needs. Implemented by
// storage.SQLiteRepository.
type Store interface {
	CreateSession(ctx context.Context, s core.Session) (int64, error)
	GetSession(ctx context.Context, id int64) (core.Session, error)
	TransitionStatus(ctx context.Context, id int64, from, to core.SessionStatus, validatedBy string, validatedAt time.Time) error
	AddEntries(ctx context.Context, sessionID int64, entries []core.Entry) error
	ListEntries(ctx context.Context, sessionID int64) ([]core.Entry, error)
	ListEntriesBefore(ctx context.Context, congregationID int64, before core.Date) ([]core.Entry, error)
	AddObligations(ctx context.Context, sessionID int64, obligations []core.Obligation) error
	ListObligations(ctx context.Context, sessionID int64) ([]core.Obligation, error)
}

// Publisher hands reviewed sessions to the export queue. Implemented by
// amqp.Client.
type Publisher interface {
	PublishSessionExport(ctx context.Context, sessionID int64, status string) error
}

// SessionService orchestrates cash sessions across storage and AMQP.
type SessionService struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

func NewSessionService(store Store, publisher Publisher) *SessionService {
	return &SessionService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// OpenSessionRequest describes a new cash session for one event.
type OpenSessionRequest struct {
	ServiceDate    core.Date
	Label          string
	CongregationID int64
	CreatedBy      string
}

// CashBook is a session's dated ledger with running balances.
type CashBook struct {
	Opening core.Money
	Entries []core.BalancedEntry
	Final   core.Money
}

// PendingPayouts is the allocation of collected cash across a session's
// obligations, in payout priority order.
type PendingPayouts struct {
	Available   core.Money
	Allocations []core.Allocation
	Remaining   core.Money
}

// OpenSession creates a new open session.
func (s *SessionService) OpenSession(ctx context.Context, req OpenSessionRequest) (core.Session, error) {
	session := core.Session{
		ServiceDate:    req.ServiceDate,
		Label:          req.Label,
		CongregationID: req.CongregationID,
		Status:         core.StatusOpen,
		CreatedBy:      req.CreatedBy,
	}
	if err := session.Check(); err != nil {
		return core.Session{}, err
	}

	id, err := s.store.CreateSession(ctx, session)
	if err != nil {
		return core.Session{}, fmt.Errorf("open session: %w", err)
	}
	session.ID = id

	return session, nil
}

// Session loads a session by id.
func (s *SessionService) Session(ctx context.Context, id int64) (core.Session, error) {
	return s.store.GetSession(ctx, id)
}

// RecordEntries normalizes and appends raw records to an open session.
// Zero-amount records are dropped silently; any invalid record aborts
// the whole batch so a form is recorded all or nothing.
func (s *SessionService) RecordEntries(ctx context.Context, sessionID int64, pos []core.POSRecord, pix []core.PixRecord) (int, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if session.Status != core.StatusOpen {
		return 0, core.ErrSessionNotOpen
	}

	var entries []core.Entry
	for _, rec := range pos {
		entry, ok, err := core.NormalizePOS(rec)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		entry.SessionID = sessionID
		entries = append(entries, entry)
	}
	for _, rec := range pix {
		entry, ok, err := core.NormalizePix(rec)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		entry.SessionID = sessionID
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return 0, nil
	}
	if err := s.store.AddEntries(ctx, sessionID, entries); err != nil {
		return 0, fmt.Errorf("record entries: %w", err)
	}

	return len(entries), nil
}

// RecordObligations appends payout requests to an open session.
func (s *SessionService) RecordObligations(ctx context.Context, sessionID int64, obligations []core.Obligation) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != core.StatusOpen {
		return core.ErrSessionNotOpen
	}

	for _, o := range obligations {
		if !o.Kind.Valid() {
			return &core.ValidationError{Field: "kind", Reason: "unknown obligation kind"}
		}
		if o.Requested.Cents < 0 {
			return &core.ValidationError{Field: "amount", Reason: "must be non-negative"}
		}
	}

	if err := s.store.AddObligations(ctx, sessionID, obligations); err != nil {
		return fmt.Errorf("record obligations: %w", err)
	}
	return nil
}

// CashBook returns the session's dated ledger. The opening balance is
// carried over from all earlier sessions of the same congregation.
func (s *SessionService) CashBook(ctx context.Context, sessionID int64) (CashBook, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return CashBook{}, err
	}

	prior, err := s.store.ListEntriesBefore(ctx, session.CongregationID, session.ServiceDate)
	if err != nil {
		return CashBook{}, fmt.Errorf("prior entries: %w", err)
	}
	opening := core.CarryOver(prior)

	entries, err := s.store.ListEntries(ctx, sessionID)
	if err != nil {
		return CashBook{}, fmt.Errorf("session entries: %w", err)
	}

	book := core.BuildLedger(entries, opening)
	return CashBook{
		Opening: opening,
		Entries: book,
		Final:   core.FinalBalance(book, opening),
	}, nil
}

// Summary returns the session's per-instrument totals.
func (s *SessionService) Summary(ctx context.Context, sessionID int64) (core.Summary, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return core.Summary{}, err
	}
	entries, err := s.store.ListEntries(ctx, sessionID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("session entries: %w", err)
	}
	return core.Summarize(entries), nil
}

// Pending allocates the session's collected cash across its obligations
// in payout priority order.
func (s *SessionService) Pending(ctx context.Context, sessionID int64) (PendingPayouts, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return PendingPayouts{}, err
	}
	entries, err := s.store.ListEntries(ctx, sessionID)
	if err != nil {
		return PendingPayouts{}, fmt.Errorf("session entries: %w", err)
	}
	obligations, err := s.store.ListObligations(ctx, sessionID)
	if err != nil {
		return PendingPayouts{}, fmt.Errorf("session obligations: %w", err)
	}

	available := core.CashIn(entries)
	allocations, remaining := core.Allocate(available, core.OrderObligations(obligations))
	return PendingPayouts{
		Available:   available,
		Allocations: allocations,
		Remaining:   remaining,
	}, nil
}

// Validate marks a session validated by a second pair of eyes.
func (s *SessionService) Validate(ctx context.Context, sessionID int64, actor string) (core.Session, error) {
	return s.review(ctx, sessionID, actor, core.StatusValidated)
}

// Close marks a session closed without full validation.
func (s *SessionService) Close(ctx context.Context, sessionID int64, actor string) (core.Session, error) {
	return s.review(ctx, sessionID, actor, core.StatusClosed)
}

func (s *SessionService) review(ctx context.Context, sessionID int64, actor string, to core.SessionStatus) (core.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return core.Session{}, err
	}

	now := s.now()
	switch to {
	case core.StatusValidated:
		err = session.Validate(actor, now)
	case core.StatusClosed:
		err = session.Close(actor, now)
	default:
		err = fmt.Errorf("unsupported review status: %s", to)
	}
	if err != nil {
		return core.Session{}, err
	}

	// The read above is unguarded, so the write re-checks the status it
	// saw. A concurrent reviewer makes this a no-op and we report the
	// conflict instead of overwriting their stamp.
	if err := s.store.TransitionStatus(ctx, sessionID, core.StatusOpen, to, actor, now); err != nil {
		return core.Session{}, err
	}

	s.publishExport(ctx, sessionID, string(to))
	return session, nil
}

// Reject sends a session back to its creator. The session stays open and
// keeps its entries; nothing is stamped.
func (s *SessionService) Reject(ctx context.Context, sessionID int64, actor string) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !core.CanReview(session.CreatedBy, actor) {
		return core.ErrOwnSession
	}
	if session.Status != core.StatusOpen {
		return core.ErrSessionNotOpen
	}

	session.Reject()
	slog.InfoContext(ctx, "Session rejected", "id", sessionID, "by", actor)
	return nil
}

// ExportRecord flattens a reviewed session into an audit-book row.
func (s *SessionService) ExportRecord(ctx context.Context, sessionID int64) (sheets.AuditRecord, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return sheets.AuditRecord{}, err
	}
	if session.Status == core.StatusOpen {
		return sheets.AuditRecord{}, core.ErrSessionNotOpen
	}

	book, err := s.CashBook(ctx, sessionID)
	if err != nil {
		return sheets.AuditRecord{}, err
	}
	entries, err := s.store.ListEntries(ctx, sessionID)
	if err != nil {
		return sheets.AuditRecord{}, fmt.Errorf("session entries: %w", err)
	}

	return sheets.AuditRecord{
		SessionID:    session.ID,
		ServiceDate:  session.ServiceDate,
		Label:        session.Label,
		Status:       string(session.Status),
		CreatedBy:    session.CreatedBy,
		ValidatedBy:  session.ValidatedBy,
		Summary:      core.Summarize(entries),
		FinalBalance: book.Final,
	}, nil
}

func (s *SessionService) publishExport(ctx context.Context, sessionID int64, status string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping export message")
		return
	}
	if err := s.publisher.PublishSessionExport(ctx, sessionID, status); err != nil {
		// Don't fail the request, the review is already persisted. The
		// worker's backfill picks the session up later.
		slog.ErrorContext(ctx, "Failed to publish export message",
			"session_id", sessionID, "error", err)
	}
}
