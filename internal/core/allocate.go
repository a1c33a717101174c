package core

const (
	Volunteer ObligationKind = "volunteer"
	Security  ObligationKind = "security"
	Misc      ObligationKind = "misc"
)

type (
	ObligationKind string

	// Obligation is a named outflow request: a volunteer payment, the
	// security payment, or a miscellaneous expense.
	Obligation struct {
		Kind      ObligationKind
		Payee     string
		Requested Money
	}

	// Allocation is an obligation after allocation: how much of the
	// request the available cash covered and how much is left pending.
	Allocation struct {
		Obligation
		Covered Money
		Pending Money
	}
)

func (k ObligationKind) Valid() bool {
	switch k {
	case Volunteer, Security, Misc:
		return true
	}
	return false
}

// payoutPriority fixes the payout order: volunteers are paid first,
// then security, then miscellaneous expenses. Within a kind the order
// obligations were added is preserved.
var payoutPriority = map[ObligationKind]int{
	Volunteer: 0,
	Security:  1,
	Misc:      2,
}

// OrderObligations returns obligations in payout priority order. The
// sort is stable so same-kind obligations keep their insertion order.
func OrderObligations(obs []Obligation) []Obligation {
	ordered := make([]Obligation, len(obs))
	copy(ordered, obs)
	// Stable insertion-order-preserving partition by kind.
	out := ordered[:0:len(ordered)]
	for rank := 0; rank <= payoutPriority[Misc]; rank++ {
		for _, ob := range obs {
			if payoutPriority[ob.Kind] == rank {
				out = append(out, ob)
			}
		}
	}
	return out
}

// Allocate distributes available physical cash across obligations in
// the order given, greedily and in a single pass.
//
// Each obligation is covered in full while cash remains; the first one
// that does not fit is covered up to the remaining cash and the
// shortfall recorded as pending, after which every later obligation is
// entirely pending. Earlier obligations always win over later ones
// even when reordering would fit everything: this is payout priority,
// not bin packing. Obligations with a zero or negative requested
// amount are skipped and do not appear in the output. Covered and
// pending amounts are never negative and remaining cash never drops
// below zero.
func Allocate(available Money, obligations []Obligation) ([]Allocation, Money) {
	allocations := make([]Allocation, 0, len(obligations))
	remaining := available.Cents
	if remaining < 0 {
		remaining = 0
	}
	for _, ob := range obligations {
		if ob.Requested.Cents <= 0 {
			continue
		}
		covered := ob.Requested.Cents
		if covered > remaining {
			covered = remaining
		}
		allocations = append(allocations, Allocation{
			Obligation: ob,
			Covered:    Money{Cents: covered},
			Pending:    Money{Cents: ob.Requested.Cents - covered},
		})
		remaining -= covered
	}
	return allocations, Money{Cents: remaining}
}
