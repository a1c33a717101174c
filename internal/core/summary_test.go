package core

import "testing"

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    Summary
	}{
		{
			name: "empty set yields zero totals",
			want: Summary{},
		},
		{
			name: "net cash is cash in minus all outflows",
			entries: []Entry{
				{Date: NewDate(2025, 3, 1), Description: "offering", Direction: In, Instrument: Cash, Amount: Money{Cents: 10000}},
				{Date: NewDate(2025, 3, 1), Description: "security", Direction: Out, Amount: Money{Cents: 3000}},
				{Date: NewDate(2025, 3, 2), Description: "pix offering", Direction: In, Instrument: Pix, Amount: Money{Cents: 5000}},
			},
			want: Summary{
				NetCash: Money{Cents: 7000},
				Pix:     Money{Cents: 5000},
				Outflow: Money{Cents: 3000},
				Count:   3,
			},
		},
		{
			name: "card totals do not reduce net cash",
			entries: []Entry{
				{Date: NewDate(2025, 3, 1), Description: "tithe", Direction: In, Instrument: Debit, Amount: Money{Cents: 2500}},
				{Date: NewDate(2025, 3, 1), Description: "tithe", Direction: In, Instrument: Credit, Amount: Money{Cents: 1500}},
				{Date: NewDate(2025, 3, 1), Description: "cleaning", Direction: Out, Amount: Money{Cents: 1000}},
			},
			want: Summary{
				NetCash: Money{Cents: -1000},
				Debit:   Money{Cents: 2500},
				Credit:  Money{Cents: 1500},
				Outflow: Money{Cents: 1000},
				Count:   3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.entries); got != tt.want {
				t.Errorf("Summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCashIn(t *testing.T) {
	entries := []Entry{
		{Date: NewDate(2025, 3, 1), Description: "offering", Direction: In, Instrument: Cash, Amount: Money{Cents: 4000}},
		{Date: NewDate(2025, 3, 1), Description: "pix", Direction: In, Instrument: Pix, Amount: Money{Cents: 9999}},
		{Date: NewDate(2025, 3, 1), Description: "security", Direction: Out, Amount: Money{Cents: 2500}},
		{Date: NewDate(2025, 3, 2), Description: "offering", Direction: In, Instrument: Cash, Amount: Money{Cents: 1000}},
	}

	// Outflows are not subtracted here: the allocator does that
	// obligation by obligation.
	if got := CashIn(entries); got.Cents != 5000 {
		t.Errorf("CashIn() = %d, want 5000", got.Cents)
	}
}
