// Package apiconnect wires the splitfriends.v1 services onto Connect
// handlers and clients. Every handler and client is configured with the
// api.Codec JSON codec.
package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitfriends/pkg/api"
)

const (
	AccountServiceName = "splitfriends.v1.AccountService"
	FriendServiceName  = "splitfriends.v1.FriendService"
	ExpenseServiceName = "splitfriends.v1.ExpenseService"
)

// Fully-qualified procedure names, as they appear in request paths and in
// connect.Spec.Procedure.
const (
	AccountServiceSignUpProcedure         = "/splitfriends.v1.AccountService/SignUp"
	AccountServiceSignInProcedure         = "/splitfriends.v1.AccountService/SignIn"
	AccountServiceSignOutProcedure        = "/splitfriends.v1.AccountService/SignOut"
	AccountServiceGetCurrentUserProcedure = "/splitfriends.v1.AccountService/GetCurrentUser"

	FriendServiceSearchUsersProcedure = "/splitfriends.v1.FriendService/SearchUsers"
	FriendServiceAddFriendProcedure   = "/splitfriends.v1.FriendService/AddFriend"
	FriendServiceListFriendsProcedure = "/splitfriends.v1.FriendService/ListFriends"

	ExpenseServiceCreateExpenseProcedure = "/splitfriends.v1.ExpenseService/CreateExpense"
	ExpenseServiceListExpensesProcedure  = "/splitfriends.v1.ExpenseService/ListExpenses"
	ExpenseServiceWatchExpensesProcedure = "/splitfriends.v1.ExpenseService/WatchExpenses"
	ExpenseServiceGetBalancesProcedure   = "/splitfriends.v1.ExpenseService/GetBalances"
)

// PublicProcedures can be called without a session.
var PublicProcedures = []string{
	AccountServiceSignUpProcedure,
	AccountServiceSignInProcedure,
}

func withCodec[T any](opts []T, codec T) []T {
	return append([]T{codec}, opts...)
}

func route(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// AccountService

type AccountServiceClient interface {
	SignUp(context.Context, *connect.Request[api.SignUpRequest]) (*connect.Response[api.SignUpResponse], error)
	SignIn(context.Context, *connect.Request[api.SignInRequest]) (*connect.Response[api.SignInResponse], error)
	SignOut(context.Context, *connect.Request[api.SignOutRequest]) (*connect.Response[api.SignOutResponse], error)
	GetCurrentUser(context.Context, *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error)
}

func NewAccountServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AccountServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withCodec(opts, connect.ClientOption(connect.WithCodec(api.Codec{})))
	return &accountServiceClient{
		signUp:         connect.NewClient[api.SignUpRequest, api.SignUpResponse](httpClient, baseURL+AccountServiceSignUpProcedure, opts...),
		signIn:         connect.NewClient[api.SignInRequest, api.SignInResponse](httpClient, baseURL+AccountServiceSignInProcedure, opts...),
		signOut:        connect.NewClient[api.SignOutRequest, api.SignOutResponse](httpClient, baseURL+AccountServiceSignOutProcedure, opts...),
		getCurrentUser: connect.NewClient[api.GetCurrentUserRequest, api.GetCurrentUserResponse](httpClient, baseURL+AccountServiceGetCurrentUserProcedure, opts...),
	}
}

type accountServiceClient struct {
	signUp         *connect.Client[api.SignUpRequest, api.SignUpResponse]
	signIn         *connect.Client[api.SignInRequest, api.SignInResponse]
	signOut        *connect.Client[api.SignOutRequest, api.SignOutResponse]
	getCurrentUser *connect.Client[api.GetCurrentUserRequest, api.GetCurrentUserResponse]
}

func (c *accountServiceClient) SignUp(ctx context.Context, req *connect.Request[api.SignUpRequest]) (*connect.Response[api.SignUpResponse], error) {
	return c.signUp.CallUnary(ctx, req)
}

func (c *accountServiceClient) SignIn(ctx context.Context, req *connect.Request[api.SignInRequest]) (*connect.Response[api.SignInResponse], error) {
	return c.signIn.CallUnary(ctx, req)
}

func (c *accountServiceClient) SignOut(ctx context.Context, req *connect.Request[api.SignOutRequest]) (*connect.Response[api.SignOutResponse], error) {
	return c.signOut.CallUnary(ctx, req)
}

func (c *accountServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

type AccountServiceHandler interface {
	SignUp(context.Context, *connect.Request[api.SignUpRequest]) (*connect.Response[api.SignUpResponse], error)
	SignIn(context.Context, *connect.Request[api.SignInRequest]) (*connect.Response[api.SignInResponse], error)
	SignOut(context.Context, *connect.Request[api.SignOutRequest]) (*connect.Response[api.SignOutResponse], error)
	GetCurrentUser(context.Context, *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error)
}

// NewAccountServiceHandler returns the mount path and handler for svc.
func NewAccountServiceHandler(svc AccountServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts, connect.HandlerOption(connect.WithCodec(api.Codec{})))
	return "/" + AccountServiceName + "/", route(map[string]http.Handler{
		AccountServiceSignUpProcedure:         connect.NewUnaryHandler(AccountServiceSignUpProcedure, svc.SignUp, opts...),
		AccountServiceSignInProcedure:         connect.NewUnaryHandler(AccountServiceSignInProcedure, svc.SignIn, opts...),
		AccountServiceSignOutProcedure:        connect.NewUnaryHandler(AccountServiceSignOutProcedure, svc.SignOut, opts...),
		AccountServiceGetCurrentUserProcedure: connect.NewUnaryHandler(AccountServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts...),
	})
}

// FriendService

type FriendServiceClient interface {
	SearchUsers(context.Context, *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error)
	AddFriend(context.Context, *connect.Request[api.AddFriendRequest]) (*connect.Response[api.AddFriendResponse], error)
	ListFriends(context.Context, *connect.Request[api.ListFriendsRequest]) (*connect.Response[api.ListFriendsResponse], error)
}

func NewFriendServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) FriendServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withCodec(opts, connect.ClientOption(connect.WithCodec(api.Codec{})))
	return &friendServiceClient{
		searchUsers: connect.NewClient[api.SearchUsersRequest, api.SearchUsersResponse](httpClient, baseURL+FriendServiceSearchUsersProcedure, opts...),
		addFriend:   connect.NewClient[api.AddFriendRequest, api.AddFriendResponse](httpClient, baseURL+FriendServiceAddFriendProcedure, opts...),
		listFriends: connect.NewClient[api.ListFriendsRequest, api.ListFriendsResponse](httpClient, baseURL+FriendServiceListFriendsProcedure, opts...),
	}
}

type friendServiceClient struct {
	searchUsers *connect.Client[api.SearchUsersRequest, api.SearchUsersResponse]
	addFriend   *connect.Client[api.AddFriendRequest, api.AddFriendResponse]
	listFriends *connect.Client[api.ListFriendsRequest, api.ListFriendsResponse]
}

func (c *friendServiceClient) SearchUsers(ctx context.Context, req *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error) {
	return c.searchUsers.CallUnary(ctx, req)
}

func (c *friendServiceClient) AddFriend(ctx context.Context, req *connect.Request[api.AddFriendRequest]) (*connect.Response[api.AddFriendResponse], error) {
	return c.addFriend.CallUnary(ctx, req)
}

func (c *friendServiceClient) ListFriends(ctx context.Context, req *connect.Request[api.ListFriendsRequest]) (*connect.Response[api.ListFriendsResponse], error) {
	return c.listFriends.CallUnary(ctx, req)
}

type FriendServiceHandler interface {
	SearchUsers(context.Context, *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error)
	AddFriend(context.Context, *connect.Request[api.AddFriendRequest]) (*connect.Response[api.AddFriendResponse], error)
	ListFriends(context.Context, *connect.Request[api.ListFriendsRequest]) (*connect.Response[api.ListFriendsResponse], error)
}

// NewFriendServiceHandler returns the mount path and handler for svc.
func NewFriendServiceHandler(svc FriendServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts, connect.HandlerOption(connect.WithCodec(api.Codec{})))
	return "/" + FriendServiceName + "/", route(map[string]http.Handler{
		FriendServiceSearchUsersProcedure: connect.NewUnaryHandler(FriendServiceSearchUsersProcedure, svc.SearchUsers, opts...),
		FriendServiceAddFriendProcedure:   connect.NewUnaryHandler(FriendServiceAddFriendProcedure, svc.AddFriend, opts...),
		FriendServiceListFriendsProcedure: connect.NewUnaryHandler(FriendServiceListFriendsProcedure, svc.ListFriends, opts...),
	})
}

// ExpenseService

type ExpenseServiceClient interface {
	CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	WatchExpenses(context.Context, *connect.Request[api.WatchExpensesRequest]) (*connect.ServerStreamForClient[api.WatchExpensesResponse], error)
	GetBalances(context.Context, *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error)
}

func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ExpenseServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withCodec(opts, connect.ClientOption(connect.WithCodec(api.Codec{})))
	return &expenseServiceClient{
		createExpense: connect.NewClient[api.CreateExpenseRequest, api.CreateExpenseResponse](httpClient, baseURL+ExpenseServiceCreateExpenseProcedure, opts...),
		listExpenses:  connect.NewClient[api.ListExpensesRequest, api.ListExpensesResponse](httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		watchExpenses: connect.NewClient[api.WatchExpensesRequest, api.WatchExpensesResponse](httpClient, baseURL+ExpenseServiceWatchExpensesProcedure, opts...),
		getBalances:   connect.NewClient[api.GetBalancesRequest, api.GetBalancesResponse](httpClient, baseURL+ExpenseServiceGetBalancesProcedure, opts...),
	}
}

type expenseServiceClient struct {
	createExpense *connect.Client[api.CreateExpenseRequest, api.CreateExpenseResponse]
	listExpenses  *connect.Client[api.ListExpensesRequest, api.ListExpensesResponse]
	watchExpenses *connect.Client[api.WatchExpensesRequest, api.WatchExpensesResponse]
	getBalances   *connect.Client[api.GetBalancesRequest, api.GetBalancesResponse]
}

func (c *expenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *expenseServiceClient) WatchExpenses(ctx context.Context, req *connect.Request[api.WatchExpensesRequest]) (*connect.ServerStreamForClient[api.WatchExpensesResponse], error) {
	return c.watchExpenses.CallServerStream(ctx, req)
}

func (c *expenseServiceClient) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	WatchExpenses(context.Context, *connect.Request[api.WatchExpensesRequest], *connect.ServerStream[api.WatchExpensesResponse]) error
	GetBalances(context.Context, *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error)
}

// NewExpenseServiceHandler returns the mount path and handler for svc.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts, connect.HandlerOption(connect.WithCodec(api.Codec{})))
	return "/" + ExpenseServiceName + "/", route(map[string]http.Handler{
		ExpenseServiceCreateExpenseProcedure: connect.NewUnaryHandler(ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts...),
		ExpenseServiceListExpensesProcedure:  connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...),
		ExpenseServiceWatchExpensesProcedure: connect.NewServerStreamHandler(ExpenseServiceWatchExpensesProcedure, svc.WatchExpenses, opts...),
		ExpenseServiceGetBalancesProcedure:   connect.NewUnaryHandler(ExpenseServiceGetBalancesProcedure, svc.GetBalances, opts...),
	})
}
