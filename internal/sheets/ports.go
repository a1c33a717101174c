package sheets

import (
	"context"

	"caixa/internal/core"
)

// AuditRecord is one reviewed session flattened to a row of the
// congregation's audit book.
type AuditRecord struct {
	SessionID    int64
	ServiceDate  core.Date
	Label        string
	Status       string
	CreatedBy    string
	ValidatedBy  string
	Summary      core.Summary
	FinalBalance core.Money
}

// Ports for outbound adapters.
type (
	AuditWriter interface {
		Append(ctx context.Context, rec AuditRecord) (rowRef string, err error)
	}
)
