// Package client bundles the Connect clients for one splitfriends server
// and the bearer token they send.
package client

import (
	"net/http"
	"sync"

	"connectrpc.com/connect"

	"github.com/mmynk/splitfriends/internal/middleware"
	"github.com/mmynk/splitfriends/pkg/api/apiconnect"
)

// Client talks to a splitfriends server. The token can be changed at any
// time; every later call carries the new value.
type Client struct {
	Account  apiconnect.AccountServiceClient
	Friends  apiconnect.FriendServiceClient
	Expenses apiconnect.ExpenseServiceClient

	mu    sync.RWMutex
	token string
}

// New creates a client for baseURL. A nil httpClient means http.DefaultClient.
func New(baseURL string, httpClient connect.HTTPClient, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{}
	opts = append(opts, connect.WithInterceptors(middleware.TokenInterceptor{Token: c.Token}))
	c.Account = apiconnect.NewAccountServiceClient(httpClient, baseURL, opts...)
	c.Friends = apiconnect.NewFriendServiceClient(httpClient, baseURL, opts...)
	c.Expenses = apiconnect.NewExpenseServiceClient(httpClient, baseURL, opts...)
	return c
}

// Token returns the current bearer token, or "" when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token. An empty token signs the client out.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}
