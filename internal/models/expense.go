package models

// Expense represents an amount paid by one user and split equally
// between the payer and one or more friends.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Description is what the money was spent on (e.g., "Dinner").
	Description string

	// AmountCents is the total amount paid, in cents.
	AmountCents int64

	// PaidBy is the user ID of the payer.
	PaidBy string

	// PaidByUsername is the payer's username at the time of recording.
	PaidByUsername string

	// Participants lists every user sharing the expense.
	// The payer is always first and appears exactly once.
	Participants []string

	// SplitAmountCents is the share owed by each non-paying participant.
	SplitAmountCents int64

	// PayerShareCents is the payer's own share: SplitAmountCents plus any
	// rounding remainder, so that the shares always add up to AmountCents.
	PayerShareCents int64

	// Date is when the expense was recorded, in Unix milliseconds.
	Date int64

	// Settled marks the expense as reconciled. Always false on creation.
	Settled bool
}

// HasParticipant reports whether userID shares this expense.
func (e *Expense) HasParticipant(userID string) bool {
	for _, p := range e.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Others returns the participants other than the payer.
func (e *Expense) Others() []string {
	others := make([]string, 0, len(e.Participants))
	for _, p := range e.Participants {
		if p != e.PaidBy {
			others = append(others, p)
		}
	}
	return others
}
