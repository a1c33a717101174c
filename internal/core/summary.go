package core

// Summary aggregates a set of entries into the totals shown on
// dashboards and validation screens. It is a pure projection of an
// entry set and holds no identity of its own.
type Summary struct {
	// NetCash is cash-instrument inflows minus ALL outflows, regardless
	// of what instrument funded them. Outflows are assumed paid from
	// physical cash first; a negative value flags that the assumption
	// broke (see Allocate).
	NetCash Money
	Pix     Money
	Debit   Money
	Credit  Money
	Outflow Money
	Count   int
}

// Summarize computes the category summary for a set of entries.
// An empty entry set yields all-zero totals.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		s.Count++
		if e.Direction == Out {
			s.Outflow.Cents += e.Amount.Cents
			s.NetCash.Cents -= e.Amount.Cents
			continue
		}
		switch e.Instrument {
		case Cash:
			s.NetCash.Cents += e.Amount.Cents
		case Pix:
			s.Pix.Cents += e.Amount.Cents
		case Debit:
			s.Debit.Cents += e.Amount.Cents
		case Credit:
			s.Credit.Cents += e.Amount.Cents
		}
	}
	return s
}

// CashIn returns the cash-instrument inflow total of a set of entries,
// before any outflow is subtracted. This is the amount the allocator
// distributes across obligations.
func CashIn(entries []Entry) Money {
	var total Money
	for _, e := range entries {
		if e.Direction == In && e.Instrument == Cash {
			total.Cents += e.Amount.Cents
		}
	}
	return total
}
