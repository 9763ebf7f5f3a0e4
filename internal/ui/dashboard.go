package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitfriends/pkg/api"
	"github.com/mmynk/splitfriends/pkg/api/apiconnect"
)

// Card is one rendered expense.
type Card struct {
	ID     string
	Title  string
	Amount string
	// Subtitle reads "Paid by <payer> • <relative time>".
	Subtitle string
	// Flow reads "<payer> → <first other> +N others".
	Flow string
}

// Dashboard shows the signed-in user's expenses, newest first.
type Dashboard struct {
	Expenses []*api.Expense

	// Names resolves participant IDs for display. Unknown IDs are shown as is.
	Names map[string]string
	Now   func() time.Time

	expenses apiconnect.ExpenseServiceClient
}

func NewDashboard(expenses apiconnect.ExpenseServiceClient, names map[string]string) *Dashboard {
	if names == nil {
		names = make(map[string]string)
	}
	return &Dashboard{Names: names, Now: time.Now, expenses: expenses}
}

// Refresh loads the current expense list once.
func (d *Dashboard) Refresh(ctx context.Context) error {
	resp, err := d.expenses.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{}))
	if err != nil {
		return err
	}
	d.Expenses = resp.Msg.Expenses
	return nil
}

// Follow replaces Expenses with every snapshot the server pushes and calls
// onUpdate with the rendered cards, until ctx is done or the stream ends.
func (d *Dashboard) Follow(ctx context.Context, onUpdate func([]Card)) error {
	stream, err := d.expenses.WatchExpenses(ctx, connect.NewRequest(&api.WatchExpensesRequest{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		d.Expenses = stream.Msg().Expenses
		if onUpdate != nil {
			onUpdate(d.Cards())
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Cards renders Expenses.
func (d *Dashboard) Cards() []Card {
	now := d.Now()
	cards := make([]Card, len(d.Expenses))
	for i, e := range d.Expenses {
		cards[i] = d.card(e, now)
	}
	return cards
}

func (d *Dashboard) name(id string) string {
	if n, ok := d.Names[id]; ok && n != "" {
		return n
	}
	return id
}

func (d *Dashboard) card(e *api.Expense, now time.Time) Card {
	payer := e.PaidByUsername
	if payer == "" {
		payer = d.name(e.PaidBy)
	}

	var others []string
	for _, p := range e.Participants {
		if p != e.PaidBy {
			others = append(others, d.name(p))
		}
	}

	flow := "No other participants"
	if len(others) > 0 {
		flow = payer + " → " + others[0]
		if n := len(others) - 1; n == 1 {
			flow += " +1 other"
		} else if n > 1 {
			flow += fmt.Sprintf(" +%d others", n)
		}
	}

	when := humanize.RelTime(time.UnixMilli(e.Date), now, "ago", "from now")
	return Card{
		ID:       e.ID,
		Title:    e.Description,
		Amount:   FormatUSD(e.Amount),
		Subtitle: "Paid by " + payer + " • " + when,
		Flow:     flow,
	}
}

// FormatUSD renders d as "$1,234.50".
func FormatUSD(d decimal.Decimal) string {
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return "$" + d.StringFixed(2)
	}
	out := "$" + humanize.Comma(n) + "." + frac
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}
