package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitfriends/internal/auth"
	"github.com/mmynk/splitfriends/internal/feed"
	"github.com/mmynk/splitfriends/internal/ledger"
	"github.com/mmynk/splitfriends/internal/middleware"
	"github.com/mmynk/splitfriends/internal/storage/sqlite"
	"github.com/mmynk/splitfriends/pkg/api"
	"github.com/mmynk/splitfriends/pkg/api/apiconnect"
)

type testServer struct {
	url string
}

type testClient struct {
	account apiconnect.AccountServiceClient
	friends apiconnect.FriendServiceClient
	expense apiconnect.ExpenseServiceClient
	user    *api.User
}

// setupTestServer hosts the real handlers, behind the real auth
// interceptor, over a temporary SQLite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	broker := feed.NewBroker()
	l := ledger.New(store, broker, broker)

	interceptors := connect.WithInterceptors(
		middleware.NewAuthInterceptor(jwtManager, apiconnect.PublicProcedures...),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAccountServiceHandler(NewAccountService(authenticator, jwtManager, store, logger), interceptors))
	mux.Handle(apiconnect.NewFriendServiceHandler(NewFriendService(l, logger), interceptors))
	mux.Handle(apiconnect.NewExpenseServiceHandler(NewExpenseService(l, store, logger), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	})

	return &testServer{url: server.URL}
}

func (s *testServer) client(token string) *testClient {
	opts := connect.WithInterceptors(middleware.TokenInterceptor{Token: func() string { return token }})
	return &testClient{
		account: apiconnect.NewAccountServiceClient(http.DefaultClient, s.url, opts),
		friends: apiconnect.NewFriendServiceClient(http.DefaultClient, s.url, opts),
		expense: apiconnect.NewExpenseServiceClient(http.DefaultClient, s.url, opts),
	}
}

// signUp registers username and returns a client carrying its token.
func (s *testServer) signUp(t *testing.T, username string) *testClient {
	t.Helper()

	resp, err := s.client("").account.SignUp(context.Background(), connect.NewRequest(&api.SignUpRequest{
		Email:    username + "@example.com",
		Password: "password123",
		Username: username,
	}))
	if err != nil {
		t.Fatalf("SignUp(%s) failed: %v", username, err)
	}

	c := s.client(resp.Msg.Token)
	c.user = resp.Msg.User
	return c
}

func (c *testClient) addFriend(t *testing.T, friend *testClient) []string {
	t.Helper()

	resp, err := c.friends.AddFriend(context.Background(), connect.NewRequest(&api.AddFriendRequest{FriendID: friend.user.ID}))
	if err != nil {
		t.Fatalf("AddFriend failed: %v", err)
	}
	return resp.Msg.Friends
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect error, got %v", err)
	}
	if connectErr.Code() != want {
		t.Errorf("expected code %v, got %v (%s)", want, connectErr.Code(), connectErr.Message())
	}
}

func TestAccount_SignUpSignIn(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	alice := srv.signUp(t, "alice")
	if alice.user.ID == "" || alice.user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", alice.user)
	}

	me, err := alice.account.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if me.Msg.User.ID != alice.user.ID || me.Msg.User.Email != "alice@example.com" {
		t.Errorf("unexpected current user: %+v", me.Msg.User)
	}

	anon := srv.client("")
	signIn, err := anon.account.SignIn(ctx, connect.NewRequest(&api.SignInRequest{
		Email:    "alice@example.com",
		Password: "password123",
	}))
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if signIn.Msg.Token == "" {
		t.Error("expected a token")
	}

	_, err = anon.account.SignIn(ctx, connect.NewRequest(&api.SignInRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	}))
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = anon.account.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = srv.client("not-a-token").account.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)

	if _, err := alice.account.SignOut(ctx, connect.NewRequest(&api.SignOutRequest{})); err != nil {
		t.Errorf("SignOut failed: %v", err)
	}
}

func TestAccount_SignUpErrors(t *testing.T) {
	srv := setupTestServer(t)
	srv.signUp(t, "alice")
	anon := srv.client("")

	tests := []struct {
		name string
		req  *api.SignUpRequest
		code connect.Code
	}{
		{"duplicate email", &api.SignUpRequest{Email: "alice@example.com", Password: "password123", Username: "alice2"}, connect.CodeAlreadyExists},
		{"duplicate username", &api.SignUpRequest{Email: "other@example.com", Password: "password123", Username: "alice"}, connect.CodeAlreadyExists},
		{"short password", &api.SignUpRequest{Email: "bob@example.com", Password: "12345", Username: "bob"}, connect.CodeInvalidArgument},
		{"short username", &api.SignUpRequest{Email: "bob@example.com", Password: "password123", Username: "bo"}, connect.CodeInvalidArgument},
		{"bad email", &api.SignUpRequest{Email: "bob", Password: "password123", Username: "bob"}, connect.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := anon.account.SignUp(context.Background(), connect.NewRequest(tt.req))
			assertCode(t, err, tt.code)
		})
	}
}

func TestFriends_SearchUsers(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	me := srv.signUp(t, "me_user")
	alicia := srv.signUp(t, "alicia")
	srv.signUp(t, "alice")
	srv.signUp(t, "bob")
	me.addFriend(t, alicia)

	resp, err := me.friends.SearchUsers(ctx, connect.NewRequest(&api.SearchUsersRequest{Term: "ali"}))
	if err != nil {
		t.Fatalf("SearchUsers failed: %v", err)
	}

	users := resp.Msg.Users
	if len(users) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(users))
	}
	if users[0].User.Username != "alice" || users[0].IsFriend {
		t.Errorf("unexpected first match: %+v", users[0])
	}
	if users[1].User.Username != "alicia" || !users[1].IsFriend {
		t.Errorf("unexpected second match: %+v", users[1])
	}

	resp, err = me.friends.SearchUsers(ctx, connect.NewRequest(&api.SearchUsersRequest{Term: "me"}))
	if err != nil {
		t.Fatalf("SearchUsers failed: %v", err)
	}
	if len(resp.Msg.Users) != 0 {
		t.Errorf("search must never return the caller, got %+v", resp.Msg.Users)
	}

	_, err = me.friends.SearchUsers(ctx, connect.NewRequest(&api.SearchUsersRequest{Term: "   "}))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = srv.client("").friends.SearchUsers(ctx, connect.NewRequest(&api.SearchUsersRequest{Term: "ali"}))
	assertCode(t, err, connect.CodeUnauthenticated)
}

func TestFriends_AddFriend(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	u1 := srv.signUp(t, "user1")
	u2 := srv.signUp(t, "user2")
	u9 := srv.signUp(t, "user9")

	u1.addFriend(t, u2)
	friends := u1.addFriend(t, u9)
	if len(friends) != 2 || friends[0] != u2.user.ID || friends[1] != u9.user.ID {
		t.Errorf("expected [user2 user9], got %v", friends)
	}

	friends = u1.addFriend(t, u9)
	if len(friends) != 2 {
		t.Errorf("adding a friend twice should keep one entry, got %v", friends)
	}

	list, err := u1.friends.ListFriends(ctx, connect.NewRequest(&api.ListFriendsRequest{}))
	if err != nil {
		t.Fatalf("ListFriends failed: %v", err)
	}
	if len(list.Msg.Friends) != 2 || list.Msg.Friends[0].Username != "user2" {
		t.Errorf("unexpected friends: %+v", list.Msg.Friends)
	}

	_, err = u1.friends.AddFriend(ctx, connect.NewRequest(&api.AddFriendRequest{FriendID: u1.user.ID}))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = u1.friends.AddFriend(ctx, connect.NewRequest(&api.AddFriendRequest{FriendID: "no-such-user"}))
	assertCode(t, err, connect.CodeNotFound)
}

func TestExpenses_CreateAndList(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	u1 := srv.signUp(t, "user1")
	u2 := srv.signUp(t, "user2")
	u3 := srv.signUp(t, "user3")
	u1.addFriend(t, u2)
	u1.addFriend(t, u3)

	resp, err := u1.expense.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{
		Description: "Dinner",
		Amount:      "90",
		SplitWith:   []string{u2.user.ID, u3.user.ID},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	e := resp.Msg.Expense
	if !e.Amount.Equal(decimal.NewFromInt(90)) {
		t.Errorf("expected amount 90, got %s", e.Amount)
	}
	if !e.SplitAmount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected share 30, got %s", e.SplitAmount)
	}
	want := []string{u1.user.ID, u2.user.ID, u3.user.ID}
	if len(e.Participants) != len(want) {
		t.Fatalf("expected participants %v, got %v", want, e.Participants)
	}
	for i := range want {
		if e.Participants[i] != want[i] {
			t.Errorf("participant %d: expected %s, got %s", i, want[i], e.Participants[i])
		}
	}
	if e.PaidByUsername != "user1" || e.Settled {
		t.Errorf("unexpected expense: %+v", e)
	}

	for _, c := range []*testClient{u1, u2, u3} {
		list, err := c.expense.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{}))
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(list.Msg.Expenses) != 1 || list.Msg.Expenses[0].ID != e.ID {
			t.Errorf("%s: expected the new expense, got %+v", c.user.Username, list.Msg.Expenses)
		}
	}

	balances, err := u2.expense.GetBalances(ctx, connect.NewRequest(&api.GetBalancesRequest{}))
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}
	if !balances.Msg.Net.Equal(decimal.NewFromInt(-30)) {
		t.Errorf("expected user2 net -30, got %s", balances.Msg.Net)
	}
	if len(balances.Msg.Balances) != 1 || balances.Msg.Balances[0].User.Username != "user1" {
		t.Errorf("unexpected balances: %+v", balances.Msg.Balances)
	}
}

func TestExpenses_CreateValidation(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	u1 := srv.signUp(t, "user1")
	u2 := srv.signUp(t, "user2")
	stranger := srv.signUp(t, "stranger")
	u1.addFriend(t, u2)

	tests := []struct {
		name string
		req  *api.CreateExpenseRequest
	}{
		{"no friends selected", &api.CreateExpenseRequest{Description: "Lunch", Amount: "10"}},
		{"not a number", &api.CreateExpenseRequest{Description: "Lunch", Amount: "ten", SplitWith: []string{u2.user.ID}}},
		{"zero amount", &api.CreateExpenseRequest{Description: "Lunch", Amount: "0", SplitWith: []string{u2.user.ID}}},
		{"too precise", &api.CreateExpenseRequest{Description: "Lunch", Amount: "1.005", SplitWith: []string{u2.user.ID}}},
		{"blank description", &api.CreateExpenseRequest{Description: "  ", Amount: "10", SplitWith: []string{u2.user.ID}}},
		{"not a friend", &api.CreateExpenseRequest{Description: "Lunch", Amount: "10", SplitWith: []string{stranger.user.ID}}},
		{"payer selected", &api.CreateExpenseRequest{Description: "Lunch", Amount: "10", SplitWith: []string{u1.user.ID}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := u1.expense.CreateExpense(ctx, connect.NewRequest(tt.req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}

	list, err := u1.expense.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(list.Msg.Expenses) != 0 {
		t.Errorf("rejected requests must not persist anything, got %d expenses", len(list.Msg.Expenses))
	}
}

func TestExpenses_Watch(t *testing.T) {
	srv := setupTestServer(t)

	u1 := srv.signUp(t, "user1")
	u2 := srv.signUp(t, "user2")
	u1.addFriend(t, u2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := u2.expense.WatchExpenses(ctx, connect.NewRequest(&api.WatchExpensesRequest{}))
	if err != nil {
		t.Fatalf("WatchExpenses failed: %v", err)
	}
	defer stream.Close()

	if !stream.Receive() {
		t.Fatalf("expected initial snapshot: %v", stream.Err())
	}
	if n := len(stream.Msg().Expenses); n != 0 {
		t.Fatalf("expected empty initial snapshot, got %d", n)
	}

	_, err = u1.expense.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{
		Description: "Taxi",
		Amount:      "25.50",
		SplitWith:   []string{u2.user.ID},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	if !stream.Receive() {
		t.Fatalf("expected snapshot after create: %v", stream.Err())
	}
	got := stream.Msg().Expenses
	if len(got) != 1 || got[0].Description != "Taxi" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if !got[0].SplitAmount.Equal(decimal.RequireFromString("12.75")) {
		t.Errorf("expected share 12.75, got %s", got[0].SplitAmount)
	}
}

func TestExpenses_WatchRequiresSession(t *testing.T) {
	srv := setupTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := srv.client("").expense.WatchExpenses(ctx, connect.NewRequest(&api.WatchExpensesRequest{}))
	if err == nil {
		defer stream.Close()
		if stream.Receive() {
			t.Fatal("expected no messages without a session")
		}
		err = stream.Err()
	}
	assertCode(t, err, connect.CodeUnauthenticated)
}
