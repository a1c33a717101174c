package core

import (
	"errors"
	"strings"
	"time"
)

const (
	In  Direction = "in"
	Out Direction = "out"
)

const (
	Cash   Instrument = "cash"
	Pix    Instrument = "pix"
	Debit  Instrument = "debit"
	Credit Instrument = "credit"
)

const (
	StatusOpen      SessionStatus = "open"
	StatusValidated SessionStatus = "validated"
	StatusClosed    SessionStatus = "closed"
)

type (
	Direction     string
	Instrument    string
	SessionStatus string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Session is one event's cash-handling record. Entries and
	// obligations hang off it; once validated or closed it is locked.
	Session struct {
		ID             int64
		ServiceDate    Date
		Label          string
		CongregationID int64
		Status         SessionStatus
		CreatedBy      string
		ValidatedBy    string    // empty until validated or closed
		ValidatedAt    time.Time // zero until validated or closed
	}

	// Entry is one normalized movement of money inside a session.
	// Amount is always a non-negative magnitude; Direction carries the
	// sign. Instrument is set only for inflows.
	Entry struct {
		Date        Date
		Description string
		Direction   Direction
		Instrument  Instrument
		Amount      Money
		SessionID   int64
	}
)

var (
	ErrInvalidDirection  = errors.New("invalid direction")
	ErrInvalidInstrument = errors.New("invalid instrument")
	ErrEmptyDescription  = errors.New("empty description")
	ErrSessionNotOpen    = errors.New("session is not open")
	ErrOwnSession        = errors.New("creator cannot review own session")
	ErrSessionModified   = errors.New("session was modified concurrently")
)

// ValidationError reports a rejected input value, citing the field so the
// caller can decide whether to skip the record or abort the batch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// NewDate creates a Date from year, month, day (UTC, midnight).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Direction) Valid() bool {
	return d == In || d == Out
}

func (i Instrument) Valid() bool {
	switch i {
	case Cash, Pix, Debit, Credit:
		return true
	}
	return false
}

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusValidated, StatusClosed:
		return true
	}
	return false
}

func (e Entry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.Direction.Valid() {
		return ErrInvalidDirection
	}
	if e.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	// Inflows carry the instrument that funded them; outflows are paid
	// from the till and carry none.
	if e.Direction == In && !e.Instrument.Valid() {
		return ErrInvalidInstrument
	}
	if e.Direction == Out && e.Instrument != "" {
		return ErrInvalidInstrument
	}
	return nil
}

// Check verifies the session's record-level invariants. Status
// transitions are handled by Validate, Close and Reject.
func (s Session) Check() error {
	if err := s.ServiceDate.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(s.Label)) == 0 {
		return errors.New("empty session label")
	}
	if !s.Status.Valid() {
		return errors.New("invalid session status")
	}
	if strings.TrimSpace(s.CreatedBy) == "" {
		return errors.New("empty session creator")
	}
	// Validator identity and timestamp travel together.
	if (s.ValidatedBy == "") != s.ValidatedAt.IsZero() {
		return errors.New("validator and validation timestamp must both be set or both be absent")
	}
	if s.ValidatedBy != "" && s.ValidatedBy == s.CreatedBy {
		return errors.New("session creator and validator must differ")
	}
	return nil
}
