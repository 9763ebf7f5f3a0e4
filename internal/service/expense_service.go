package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitfriends/internal/calculator"
	"github.com/mmynk/splitfriends/internal/ledger"
	"github.com/mmynk/splitfriends/internal/models"
	"github.com/mmynk/splitfriends/internal/validate"
	"github.com/mmynk/splitfriends/pkg/api"
)

// UserDirectory resolves user IDs to accounts.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// ExpenseService implements the ExpenseService RPC interface.
type ExpenseService struct {
	ledger *ledger.Ledger
	users  UserDirectory
	logger *slog.Logger
}

// NewExpenseService creates a new expense service.
func NewExpenseService(l *ledger.Ledger, users UserDirectory, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{ledger: l, users: users, logger: logger}
}

// CreateExpense records an expense paid by the caller and split equally
// with the selected friends.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	form := validate.Expense{
		Description: req.Msg.Description,
		Amount:      req.Msg.Amount,
		SplitWith:   req.Msg.SplitWith,
	}
	expense, err := s.ledger.RecordExpense(ctx, sess, form)
	if err != nil {
		s.logger.Error("CreateExpense failed", "user_id", sess.UserID, "error", err)
		return nil, toConnectError(err, MsgSplitFailed)
	}

	s.logger.Info("Expense recorded",
		"expense_id", expense.ID,
		"paid_by", expense.PaidBy,
		"amount_cents", expense.AmountCents,
		"participants", len(expense.Participants),
	)
	return connect.NewResponse(&api.CreateExpenseResponse{Expense: expenseToAPI(expense)}), nil
}

// ListExpenses returns every expense the caller takes part in, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.ledger.Expenses(ctx, sess)
	if err != nil {
		s.logger.Error("ListExpenses failed", "user_id", sess.UserID, "error", err)
		return nil, toConnectError(err, MsgLoadFailed)
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: expensesToAPI(expenses)}), nil
}

// WatchExpenses streams a full snapshot of the caller's expenses, first
// immediately and then after every change touching the caller, until the
// client goes away.
func (s *ExpenseService) WatchExpenses(ctx context.Context, req *connect.Request[api.WatchExpensesRequest], stream *connect.ServerStream[api.WatchExpensesResponse]) error {
	sess, err := requireSession(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("WatchExpenses started", "user_id", sess.UserID)
	defer s.logger.Info("WatchExpenses ended", "user_id", sess.UserID)

	for expenses, err := range s.ledger.WatchExpenses(ctx, sess) {
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("WatchExpenses failed", "user_id", sess.UserID, "error", err)
			return toConnectError(err, MsgLoadFailed)
		}
		if err := stream.Send(&api.WatchExpensesResponse{Expenses: expensesToAPI(expenses)}); err != nil {
			return err
		}
	}
	return nil
}

// GetBalances nets the caller's unsettled expenses per counterparty.
func (s *ExpenseService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.ledger.Balances(ctx, sess)
	if err != nil {
		s.logger.Error("GetBalances failed", "user_id", sess.UserID, "error", err)
		return nil, toConnectError(err, MsgLoadFailed)
	}

	ids := make([]string, len(summary.Counterparties))
	for i, c := range summary.Counterparties {
		ids[i] = c.UserID
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to resolve counterparties", "user_id", sess.UserID, "error", err)
		return nil, toConnectError(err, MsgLoadFailed)
	}

	balances := make([]*api.Balance, len(summary.Counterparties))
	for i, c := range summary.Counterparties {
		user := &api.User{ID: c.UserID}
		if u, ok := users[c.UserID]; ok {
			user = summaryToAPI(u.Summary())
		}
		balances[i] = &api.Balance{User: user, Net: calculator.FromCents(c.NetCents)}
	}

	return connect.NewResponse(&api.GetBalancesResponse{
		Paid:     calculator.FromCents(summary.PaidCents),
		Owed:     calculator.FromCents(summary.OwedCents),
		Net:      calculator.FromCents(summary.NetCents()),
		Balances: balances,
	}), nil
}
