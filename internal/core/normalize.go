package core

import "errors"

// POSRecord is a raw point-of-sale style entry as submitted from an
// entry form: a direction, a decimal amount string, and for inflows the
// instrument that funded the movement.
type POSRecord struct {
	Date        Date
	Description string
	Direction   Direction
	Instrument  Instrument
	Amount      string
}

// PixRecord is a raw instant-transfer entry. Direction and instrument
// are implied: transfers are always inflows funded via Pix.
type PixRecord struct {
	Date        Date
	Description string
	Amount      string
}

// NormalizePOS converts a point-of-sale record into an Entry.
//
// Zero-amount records represent unfilled form fields and are dropped:
// ok is false and err is nil. Negative or non-numeric amounts return a
// *ValidationError citing the amount field; the caller decides whether
// to skip the record or abort the batch.
func NormalizePOS(rec POSRecord) (Entry, bool, error) {
	cents, err := ParseAmountCents(rec.Amount)
	if err != nil {
		return Entry{}, false, &ValidationError{Field: "amount", Reason: "must be a non-negative decimal"}
	}
	if cents == 0 {
		return Entry{}, false, nil
	}
	e := Entry{
		Date:        rec.Date,
		Description: rec.Description,
		Direction:   rec.Direction,
		Instrument:  rec.Instrument,
		Amount:      Money{Cents: cents},
	}
	if err := e.Validate(); err != nil {
		return Entry{}, false, &ValidationError{Field: fieldFor(err), Reason: err.Error()}
	}
	return e, true, nil
}

// NormalizePix converts an instant-transfer record into an Entry with
// the same drop/reject rules as NormalizePOS.
func NormalizePix(rec PixRecord) (Entry, bool, error) {
	return NormalizePOS(POSRecord{
		Date:        rec.Date,
		Description: rec.Description,
		Direction:   In,
		Instrument:  Pix,
		Amount:      rec.Amount,
	})
}

func fieldFor(err error) string {
	switch {
	case errors.Is(err, ErrEmptyDescription):
		return "description"
	case errors.Is(err, ErrInvalidDirection):
		return "direction"
	case errors.Is(err, ErrInvalidInstrument):
		return "instrument"
	case errors.Is(err, ErrInvalidAmount):
		return "amount"
	}
	return "entry"
}
