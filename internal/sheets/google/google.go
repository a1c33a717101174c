package google

import (
	"context"
	"errors"
	"fmt"
	"os"

	"caixa/internal/core"
	ports "caixa/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config carries the sheet settings and service account credentials.
// Callers resolve them (from env or elsewhere) before constructing the
// client; the adapter itself never reads the environment.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.AuditWriter = (*Client)(nil)

// New creates a Sheets client from the given settings.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.SheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	credentialsJSON, err := cfg.credentials()
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
	}, nil
}

func (cfg Config) credentials() ([]byte, error) {
	switch {
	case cfg.ServiceAccountJSON != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case cfg.ServiceAccountFile != "":
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("missing service account credentials")
}

// Append writes one audit row for a reviewed session:
// date, session id, label, status, creator, reviewer, net cash, pix,
// debit, credit, outflows, final balance. Amounts are written as decimal
// currency values.
func (c *Client) Append(ctx context.Context, rec ports.AuditRecord) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row := []any{
		rec.ServiceDate.Format("2006-01-02"),
		rec.SessionID,
		rec.Label,
		rec.Status,
		rec.CreatedBy,
		rec.ValidatedBy,
		toDecimal(rec.Summary.NetCash),
		toDecimal(rec.Summary.Pix),
		toDecimal(rec.Summary.Debit),
		toDecimal(rec.Summary.Credit),
		toDecimal(rec.Summary.Outflow),
		toDecimal(rec.FinalBalance),
	}

	rng := fmt.Sprintf("%s!A:L", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append audit row to %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

func toDecimal(m core.Money) float64 {
	return float64(m.Cents) / 100.0
}
