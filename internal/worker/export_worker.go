package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"caixa/internal/amqp"
	"caixa/internal/sheets"
)

// exportConcurrency bounds parallel audit-book appends during backfill
// so the Sheets API quota is not exhausted.
const exportConcurrency = 4

// ExportStore is the export bookkeeping the worker needs. Implemented by
// storage.SQLiteRepository.
type ExportStore interface {
	ListPendingExports(ctx context.Context, limit int) ([]int64, error)
	MarkExported(ctx context.Context, id int64) error
	MarkExportError(ctx context.Context, id int64) error
}

// RecordSource flattens sessions into audit rows. Implemented by
// services.SessionService.
type RecordSource interface {
	ExportRecord(ctx context.Context, sessionID int64) (sheets.AuditRecord, error)
}

// ExportWorker writes reviewed sessions to the congregation's audit
// book. Messages arrive over AMQP; a periodic backfill catches sessions
// whose message was lost.
type ExportWorker struct {
	store     ExportStore
	source    RecordSource
	audit     sheets.AuditWriter
	batchSize int
}

func NewExportWorker(store ExportStore, source RecordSource, audit sheets.AuditWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		source:    source,
		audit:     audit,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single session export message from AMQP
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.SessionExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"message_id", msg.MessageID,
		"session_id", msg.SessionID,
		"status", msg.Status)

	return w.exportSession(ctx, msg.SessionID)
}

// ProcessPending exports any reviewed sessions that still lack an audit
// row. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	return w.backfill(ctx, w.batchSize)
}

// StartupBackfill drains the pending backlog at worker startup to
// recover from missed messages or worker downtime. Exports run
// concurrently, bounded by exportConcurrency.
func (w *ExportWorker) StartupBackfill(ctx context.Context) error {
	return w.backfill(ctx, w.batchSize*5)
}

func (w *ExportWorker) backfill(ctx context.Context, limit int) error {
	ids, err := w.store.ListPendingExports(ctx, limit)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(ids))

	var exported, failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(exportConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := w.exportSession(ctx, id); err != nil {
				// Already marked, the next backfill pass retries.
				slog.ErrorContext(ctx, "Failed to export session", "session_id", id, "error", err)
				failed.Add(1)
				return nil
			}
			exported.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Pending exports processed",
		"total", len(ids),
		"exported", exported.Load(),
		"errors", failed.Load())

	return nil
}

func (w *ExportWorker) exportSession(ctx context.Context, id int64) error {
	rec, err := w.source.ExportRecord(ctx, id)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "session_id", id, "error", markErr)
		}
		return fmt.Errorf("build export record: %w", err)
	}

	ref, err := w.audit.Append(ctx, rec)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "session_id", id, "error", markErr)
		}
		return fmt.Errorf("append to audit book: %w", err)
	}

	if err := w.store.MarkExported(ctx, id); err != nil {
		// Don't fail here, the row is already in the audit book.
		slog.ErrorContext(ctx, "Failed to mark as exported", "session_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Session exported to audit book",
		"session_id", id,
		"audit_ref", ref,
		"status", rec.Status)

	return nil
}
