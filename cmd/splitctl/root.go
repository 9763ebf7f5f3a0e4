package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/splitfriends/internal/client"
	"github.com/mmynk/splitfriends/internal/ui"
	"github.com/mmynk/splitfriends/pkg/api"
)

type app struct {
	serverURL string
	tokenFile string

	client  *client.Client
	toaster ui.Toaster
	stderr  io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "splitctl",
		Short:         "Split expenses with friends",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.serverURL, "server", envOr("SPLITFRIENDS_URL", "http://localhost:8080"), "server base URL")
	root.PersistentFlags().StringVar(&a.tokenFile, "token-file", defaultTokenFile(), "where the session token is kept")

	root.AddCommand(
		a.signUpCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.searchCmd(),
		a.addFriendCmd(),
		a.friendsCmd(),
		a.splitCmd(),
		a.expensesCmd(),
		a.balancesCmd(),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	a.client = client.New(a.serverURL, nil)
	a.stderr = stderr
	a.toaster = ui.ToasterFunc(func(kind ui.ToastKind, msg string) {
		fmt.Fprintf(stderr, "[%s] %s\n", kind, msg)
	})

	token, err := os.ReadFile(a.tokenFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read token: %w", err)
	}
	a.client.SetToken(strings.TrimSpace(string(token)))
	return nil
}

// SetToken hands the session token to the client and persists it for the
// next invocation. A failed write only costs the saved session, so it is
// reported instead of failing the sign in.
func (a *app) SetToken(token string) {
	a.client.SetToken(token)
	if err := a.saveToken(token); err != nil {
		fmt.Fprintf(a.stderr, "warning: session not saved, later commands will ask you to sign in again: %v\n", err)
	}
}

func (a *app) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(a.tokenFile), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(a.tokenFile, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (a *app) currentUser(cmd *cobra.Command) (*api.User, error) {
	if a.client.Token() == "" {
		return nil, errors.New("not signed in; run `splitctl login` first")
	}
	resp, err := a.client.Account.GetCurrentUser(cmd.Context(), connect.NewRequest(&api.GetCurrentUserRequest{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.User, nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".splitfriends-token"
	}
	return filepath.Join(dir, "splitfriends", "token")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
