package core

import "testing"

func TestAllocate_PartialCoverage(t *testing.T) {
	// 50 available against Ana 30, Bia 30, security 20: Ana fully
	// covered, Bia covered 20 with 10 pending, security entirely
	// pending, nothing left in the till.
	obligations := []Obligation{
		{Kind: Volunteer, Payee: "Ana", Requested: Money{Cents: 3000}},
		{Kind: Volunteer, Payee: "Bia", Requested: Money{Cents: 3000}},
		{Kind: Security, Payee: "night watch", Requested: Money{Cents: 2000}},
	}

	allocations, remaining := Allocate(Money{Cents: 5000}, obligations)

	want := []struct {
		payee   string
		covered int64
		pending int64
	}{
		{"Ana", 3000, 0},
		{"Bia", 2000, 1000},
		{"night watch", 0, 2000},
	}
	if len(allocations) != len(want) {
		t.Fatalf("Allocate() returned %d allocations, want %d", len(allocations), len(want))
	}
	for i, w := range want {
		a := allocations[i]
		if a.Payee != w.payee || a.Covered.Cents != w.covered || a.Pending.Cents != w.pending {
			t.Errorf("allocation[%d] = %s covered=%d pending=%d, want %s covered=%d pending=%d",
				i, a.Payee, a.Covered.Cents, a.Pending.Cents, w.payee, w.covered, w.pending)
		}
	}
	if remaining.Cents != 0 {
		t.Errorf("remaining = %d, want 0", remaining.Cents)
	}
}

func TestAllocate_FullCoverage(t *testing.T) {
	obligations := []Obligation{
		{Kind: Volunteer, Payee: "Ana", Requested: Money{Cents: 1000}},
		{Kind: Security, Payee: "watch", Requested: Money{Cents: 2000}},
		{Kind: Misc, Payee: "supplies", Requested: Money{Cents: 500}},
	}

	allocations, remaining := Allocate(Money{Cents: 10000}, obligations)

	for _, a := range allocations {
		if a.Pending.Cents != 0 {
			t.Errorf("%s pending = %d, want 0", a.Payee, a.Pending.Cents)
		}
		if a.Covered.Cents != a.Requested.Cents {
			t.Errorf("%s covered = %d, want %d", a.Payee, a.Covered.Cents, a.Requested.Cents)
		}
	}
	if remaining.Cents != 6500 {
		t.Errorf("remaining = %d, want available minus requested = 6500", remaining.Cents)
	}
}

func TestAllocate_ConservesAmounts(t *testing.T) {
	tests := []struct {
		name      string
		available int64
		requested []int64
	}{
		{"shortfall", 700, []int64{500, 400, 300}},
		{"exact fit", 1200, []int64{500, 400, 300}},
		{"nothing available", 0, []int64{500, 400}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var obligations []Obligation
			var totalRequested int64
			for _, r := range tt.requested {
				obligations = append(obligations, Obligation{Kind: Volunteer, Payee: "v", Requested: Money{Cents: r}})
				totalRequested += r
			}

			allocations, remaining := Allocate(Money{Cents: tt.available}, obligations)

			var covered, pending int64
			seenShortfall := false
			for _, a := range allocations {
				if a.Covered.Cents < 0 || a.Pending.Cents < 0 {
					t.Errorf("%s has negative amounts: covered=%d pending=%d", a.Payee, a.Covered.Cents, a.Pending.Cents)
				}
				// Priority is never inverted: once one obligation is
				// short, no later one is fully covered.
				if seenShortfall && a.Pending.Cents == 0 {
					t.Error("a later obligation was fully covered after an earlier shortfall")
				}
				if a.Pending.Cents > 0 {
					seenShortfall = true
				}
				covered += a.Covered.Cents
				pending += a.Pending.Cents
			}

			if totalRequested <= tt.available {
				if pending != 0 {
					t.Errorf("pending = %d, want 0 when cash suffices", pending)
				}
				if remaining.Cents != tt.available-totalRequested {
					t.Errorf("remaining = %d, want %d", remaining.Cents, tt.available-totalRequested)
				}
			} else {
				if covered != tt.available {
					t.Errorf("covered = %d, want all available cash %d", covered, tt.available)
				}
				if pending != totalRequested-tt.available {
					t.Errorf("pending = %d, want %d", pending, totalRequested-tt.available)
				}
			}
		})
	}
}

func TestAllocate_SkipsEmptyRequests(t *testing.T) {
	obligations := []Obligation{
		{Kind: Volunteer, Payee: "zero", Requested: Money{Cents: 0}},
		{Kind: Volunteer, Payee: "negative", Requested: Money{Cents: -100}},
		{Kind: Volunteer, Payee: "Ana", Requested: Money{Cents: 500}},
	}

	allocations, remaining := Allocate(Money{Cents: 500}, obligations)

	if len(allocations) != 1 {
		t.Fatalf("Allocate() returned %d allocations, want 1 (empty requests skipped)", len(allocations))
	}
	if allocations[0].Payee != "Ana" {
		t.Errorf("allocation payee = %q, want %q", allocations[0].Payee, "Ana")
	}
	if remaining.Cents != 0 {
		t.Errorf("remaining = %d, want 0", remaining.Cents)
	}
}

func TestOrderObligations(t *testing.T) {
	obligations := []Obligation{
		{Kind: Misc, Payee: "supplies", Requested: Money{Cents: 100}},
		{Kind: Volunteer, Payee: "Ana", Requested: Money{Cents: 100}},
		{Kind: Security, Payee: "watch", Requested: Money{Cents: 100}},
		{Kind: Volunteer, Payee: "Bia", Requested: Money{Cents: 100}},
	}

	ordered := OrderObligations(obligations)

	wantOrder := []string{"Ana", "Bia", "watch", "supplies"}
	for i, w := range wantOrder {
		if ordered[i].Payee != w {
			t.Errorf("ordered[%d].Payee = %q, want %q", i, ordered[i].Payee, w)
		}
	}
	// Original slice untouched
	if obligations[0].Payee != "supplies" {
		t.Error("OrderObligations() mutated its input")
	}
}
