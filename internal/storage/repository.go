package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"caixa/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateSession inserts a new open session and returns its id.
func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (service_date, label, congregation_id, status, created_by)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ServiceDate.Format(dateLayout), s.Label, s.CongregationID, string(core.StatusOpen), s.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session id: %w", err)
	}

	slog.InfoContext(ctx, "Session created",
		"id", id,
		"service_date", s.ServiceDate.Format(dateLayout),
		"label", s.Label,
		"created_by", s.CreatedBy)

	return id, nil
}

// GetSession loads a session by id.
func (r *SQLiteRepository) GetSession(ctx context.Context, id int64) (core.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, service_date, label, congregation_id, status, created_by, validated_by, validated_at
		 FROM sessions WHERE id = ?`, id)

	var (
		s           core.Session
		serviceDate string
		status      string
		validatedBy sql.NullString
		validatedAt sql.NullTime
	)
	err := row.Scan(&s.ID, &serviceDate, &s.Label, &s.CongregationID, &status, &s.CreatedBy, &validatedBy, &validatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, ErrNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}

	date, err := time.Parse(dateLayout, serviceDate)
	if err != nil {
		return core.Session{}, fmt.Errorf("parse service date: %w", err)
	}
	s.ServiceDate = core.Date{Time: date}
	s.Status = core.SessionStatus(status)
	s.ValidatedBy = validatedBy.String
	if validatedAt.Valid {
		s.ValidatedAt = validatedAt.Time
	}

	return s, nil
}

// TransitionStatus moves a session from one status to another, stamping
// the reviewer when the target status is terminal. The transition is a
// compare-and-set on the current status: when another reviewer got there
// first the update matches no rows and ErrSessionModified is returned.
func (r *SQLiteRepository) TransitionStatus(ctx context.Context, id int64, from, to core.SessionStatus, validatedBy string, validatedAt time.Time) error {
	var (
		res sql.Result
		err error
	)
	if to == core.StatusOpen {
		res, err = r.db.ExecContext(ctx,
			`UPDATE sessions SET status = ? WHERE id = ? AND status = ?`,
			string(to), id, string(from))
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE sessions SET status = ?, validated_by = ?, validated_at = ? WHERE id = ? AND status = ?`,
			string(to), validatedBy, validatedAt, id, string(from))
	}
	if err != nil {
		return fmt.Errorf("transition session status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		// Either the session is gone or its status changed under us.
		if _, err := r.GetSession(ctx, id); err != nil {
			return err
		}
		return core.ErrSessionModified
	}

	slog.InfoContext(ctx, "Session status changed", "id", id, "from", from, "to", to)
	return nil
}

// AddEntries appends normalized entries to a session in one transaction.
func (r *SQLiteRepository) AddEntries(ctx context.Context, sessionID int64, entries []core.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entries tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		var instrument any
		if e.Instrument != "" {
			instrument = string(e.Instrument)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO entries (session_id, entry_date, description, direction, instrument, amount_cents)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, e.Date.Format(dateLayout), e.Description, string(e.Direction), instrument, e.Amount.Cents)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entries: %w", err)
	}

	slog.InfoContext(ctx, "Entries recorded", "session_id", sessionID, "count", len(entries))
	return nil
}

// ListEntries returns a session's entries in insertion order.
func (r *SQLiteRepository) ListEntries(ctx context.Context, sessionID int64) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entry_date, description, direction, instrument, amount_cents, session_id
		 FROM entries WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListEntriesBefore returns all entries of a congregation's sessions with
// a service date strictly before the given one, in insertion order. The
// caller derives the carry-over balance from them.
func (r *SQLiteRepository) ListEntriesBefore(ctx context.Context, congregationID int64, before core.Date) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.entry_date, e.description, e.direction, e.instrument, e.amount_cents, e.session_id
		 FROM entries e
		 JOIN sessions s ON s.id = e.session_id
		 WHERE s.congregation_id = ? AND s.service_date < ?
		 ORDER BY e.id`,
		congregationID, before.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list prior entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]core.Entry, error) {
	var entries []core.Entry
	for rows.Next() {
		var (
			e          core.Entry
			entryDate  string
			direction  string
			instrument sql.NullString
		)
		if err := rows.Scan(&entryDate, &e.Description, &direction, &instrument, &e.Amount.Cents, &e.SessionID); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		date, err := time.Parse(dateLayout, entryDate)
		if err != nil {
			return nil, fmt.Errorf("parse entry date: %w", err)
		}
		e.Date = core.Date{Time: date}
		e.Direction = core.Direction(direction)
		e.Instrument = core.Instrument(instrument.String)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddObligations records a session's payout requests, keeping their
// submission order.
func (r *SQLiteRepository) AddObligations(ctx context.Context, sessionID int64, obligations []core.Obligation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin obligations tx: %w", err)
	}
	defer tx.Rollback()

	for i, o := range obligations {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO obligations (session_id, kind, payee, amount_cents, position)
			 VALUES (?, ?, ?, ?, ?)`,
			sessionID, string(o.Kind), o.Payee, o.Requested.Cents, i)
		if err != nil {
			return fmt.Errorf("insert obligation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit obligations: %w", err)
	}

	slog.InfoContext(ctx, "Obligations recorded", "session_id", sessionID, "count", len(obligations))
	return nil
}

// ListObligations returns a session's obligations in submission order.
func (r *SQLiteRepository) ListObligations(ctx context.Context, sessionID int64) ([]core.Obligation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, payee, amount_cents FROM obligations
		 WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var obligations []core.Obligation
	for rows.Next() {
		var (
			o    core.Obligation
			kind string
		)
		if err := rows.Scan(&kind, &o.Payee, &o.Requested.Cents); err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		o.Kind = core.ObligationKind(kind)
		obligations = append(obligations, o)
	}
	return obligations, rows.Err()
}

// ListPendingExports returns reviewed sessions still waiting for their
// audit-book export, oldest first.
func (r *SQLiteRepository) ListPendingExports(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM sessions
		 WHERE export_state = 'pending' AND status IN ('validated', 'closed')
		 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkExported records a successful audit-book export.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET export_state = 'exported' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	slog.InfoContext(ctx, "Session marked as exported", "id", id)
	return nil
}

// MarkExportError records a failed audit-book export.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET export_state = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Session marked with export error", "id", id)
	return nil
}
