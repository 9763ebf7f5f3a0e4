package calculator

import (
	"fmt"
	"sort"
)

// ExpenseForBalance represents an expense with the minimal information needed for balance calculations.
type ExpenseForBalance struct {
	PaidBy           string
	Participants     []string
	SplitAmountCents int64
	Settled          bool
}

// CounterpartyBalance is what one other user and the viewer owe each other.
type CounterpartyBalance struct {
	UserID string
	// NetCents is positive when the counterparty owes the viewer,
	// negative when the viewer owes the counterparty.
	NetCents int64
}

// Summary aggregates a viewer's position across unsettled expenses.
type Summary struct {
	// PaidCents is what the viewer fronted for others (their shares only).
	PaidCents int64
	// OwedCents is what the viewer owes to payers.
	OwedCents int64
	// Counterparties is sorted by absolute balance, largest first.
	Counterparties []CounterpartyBalance
}

// NetCents is the viewer's overall position: positive means others owe them.
func (s Summary) NetCents() int64 {
	return s.PaidCents - s.OwedCents
}

// CalculateBalances nets the viewer's unsettled expenses per counterparty.
//
// Algorithm:
//   - payer is owed SplitAmountCents by every other participant
//   - the payer's own share never creates a debt
//   - settled expenses are skipped
func CalculateBalances(viewerID string, expenses []ExpenseForBalance) (Summary, error) {
	net := make(map[string]int64)
	var summary Summary

	for _, e := range expenses {
		if e.Settled {
			continue
		}
		if e.PaidBy == "" {
			return Summary{}, fmt.Errorf("expense without payer")
		}

		if e.PaidBy == viewerID {
			for _, p := range e.Participants {
				if p == viewerID {
					continue
				}
				net[p] += e.SplitAmountCents
				summary.PaidCents += e.SplitAmountCents
			}
			continue
		}

		for _, p := range e.Participants {
			if p == viewerID {
				net[e.PaidBy] -= e.SplitAmountCents
				summary.OwedCents += e.SplitAmountCents
				break
			}
		}
	}

	for id, cents := range net {
		if cents == 0 {
			continue
		}
		summary.Counterparties = append(summary.Counterparties, CounterpartyBalance{UserID: id, NetCents: cents})
	}
	sort.Slice(summary.Counterparties, func(i, j int) bool {
		a, b := abs(summary.Counterparties[i].NetCents), abs(summary.Counterparties[j].NetCents)
		if a != b {
			return a > b
		}
		return summary.Counterparties[i].UserID < summary.Counterparties[j].UserID
	})

	return summary, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
