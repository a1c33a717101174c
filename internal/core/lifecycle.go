package core

import "time"

// Session lifecycle: open -> validated (terminal) or open -> closed
// (terminal); reject keeps a session open. Validated and closed both
// lock the session's entries, but the audit trail preserves which path
// was taken: validated means reviewed and accepted, closed means ended
// without formal review.

// Validate moves an open session to validated, stamping the validator
// identity and timestamp.
//
// The creator may never validate their own session (ErrOwnSession,
// checked for any status), and only open sessions can transition
// (ErrSessionNotOpen); re-validating an already validated session is
// an error, never a silent no-op.
func (s *Session) Validate(actor string, now time.Time) error {
	return s.review(actor, now, StatusValidated)
}

// Close moves an open session to closed under the same
// creator-exclusion rule as Validate, stamping the reviewer
// identically.
func (s *Session) Close(actor string, now time.Time) error {
	return s.review(actor, now, StatusClosed)
}

func (s *Session) review(actor string, now time.Time, to SessionStatus) error {
	if actor == s.CreatedBy {
		return ErrOwnSession
	}
	if s.Status != StatusOpen {
		return ErrSessionNotOpen
	}
	s.Status = to
	s.ValidatedBy = actor
	s.ValidatedAt = now
	return nil
}

// Reject resets the session to open, exiting an intermediate review
// step. Nothing else is cleared: validator and timestamp are only ever
// stamped by Validate or Close, and those states are terminal, so a
// rejected session never carries a stale stamp. Who may reject is an
// authorization concern outside this state machine.
func (s *Session) Reject() {
	s.Status = StatusOpen
}

// CanReview reports whether actor is allowed to validate or close a
// session created by creator. Pure function of the two identities:
// role gating beyond creator-exclusion lives outside this layer.
func CanReview(creator, actor string) bool {
	return actor != creator
}
