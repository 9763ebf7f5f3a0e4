// Package feed delivers "your expenses changed" signals to open
// subscriptions. Signals carry no payload: a subscriber reacts by reading
// a fresh snapshot, so pending signals coalesce.
package feed

import (
	"context"
	"log/slog"
	"sync"
)

// Event announces a newly recorded expense.
type Event struct {
	ExpenseID    string   `json:"expense_id"`
	Participants []string `json:"participants"`
}

type subscription struct {
	ch chan struct{}
}

// Broker is an in-process pub/sub keyed by user ID.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*subscription]struct{})}
}

// Subscribe registers interest in userID's expenses. The returned channel
// receives a signal after every change; cancel releases the subscription.
func (b *Broker) Subscribe(userID string) (<-chan struct{}, func()) {
	sub := &subscription{ch: make(chan struct{}, 1)}

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*subscription]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], sub)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			b.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// ExpenseRecorded signals every participant of ev.
func (b *Broker) ExpenseRecorded(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, userID := range ev.Participants {
		for sub := range b.subs[userID] {
			select {
			case sub.ch <- struct{}{}:
			default:
				// a signal is already pending
			}
		}
	}
	slog.Debug("Expense change fanned out", "expense_id", ev.ExpenseID, "participants", len(ev.Participants))
	return nil
}

// Subscribers returns the number of open subscriptions for userID.
func (b *Broker) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}
