package core

import "sort"

// BalancedEntry is a ledger entry annotated with the running balance
// after applying it. Derived, never stored; rebuilt on demand.
type BalancedEntry struct {
	Entry
	Balance Money
}

// BuildLedger orders entries chronologically and computes the running
// balance per entry, starting from opening.
//
// Ordering is by date ascending with insertion order breaking ties.
// Same-date entries are never reordered by amount or category, which
// keeps the cash book auditable and reproducible. Pure function: the
// input slice is not mutated and identical inputs always yield
// identical output.
func BuildLedger(entries []Entry, opening Money) []BalancedEntry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})

	book := make([]BalancedEntry, len(sorted))
	balance := opening.Cents
	for i, e := range sorted {
		if e.Direction == In {
			balance += e.Amount.Cents
		} else {
			balance -= e.Amount.Cents
		}
		book[i] = BalancedEntry{Entry: e, Balance: Money{Cents: balance}}
	}
	return book
}

// FinalBalance returns the closing balance of a built ledger, or the
// opening balance when the ledger is empty.
func FinalBalance(book []BalancedEntry, opening Money) Money {
	if len(book) == 0 {
		return opening
	}
	return book[len(book)-1].Balance
}

// CarryOver derives the opening balance for a period from all entries
// strictly before it: the closing balance of the prior ledger, or zero
// when no prior entries exist. Building period N's book never requires
// re-deriving period N-1's stored data.
func CarryOver(prior []Entry) Money {
	return FinalBalance(BuildLedger(prior, Money{}), Money{})
}
