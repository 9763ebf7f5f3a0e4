package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/splitfriends/internal/ui"
	"github.com/mmynk/splitfriends/pkg/api"
)

func (a *app) signUpCmd() *cobra.Command {
	var email, username, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := ui.NewLoginForm(a.client.Account, a, a.toaster)
			form.SignUp = true
			form.Email, form.Username, form.Password = email, username, password
			user, err := form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed up as %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&username, "username", "", "public username")
	cmd.Flags().StringVar(&password, "password", os.Getenv("SPLITFRIENDS_PASSWORD"), "password (or SPLITFRIENDS_PASSWORD)")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := ui.NewLoginForm(a.client.Account, a, a.toaster)
			form.Email, form.Password = email, password
			user, err := form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", os.Getenv("SPLITFRIENDS_PASSWORD"), "password (or SPLITFRIENDS_PASSWORD)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.client.Token() != "" {
				// stateless tokens: the server call only records the sign out
				_, _ = a.client.Account.SignOut(cmd.Context(), connect.NewRequest(&api.SignOutRequest{}))
			}
			a.client.SetToken("")
			if err := os.Remove(a.tokenFile); err != nil && !os.IsNotExist(err) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.currentUser(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> %s\n", user.Username, user.Email, user.ID)
			return nil
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM",
		Short: "Find users by username prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := ui.NewFriendSearch(a.client.Friends, a.toaster)
			s.Term = args[0]
			if err := s.Search(cmd.Context()); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tID\tFRIEND")
			for _, m := range s.Results {
				friend := ""
				if m.IsFriend {
					friend = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.User.Username, m.User.ID, friend)
			}
			return w.Flush()
		},
	}
}

func (a *app) addFriendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-friend USER_ID",
		Short: "Add a user to your friend list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := ui.NewFriendSearch(a.client.Friends, a.toaster)
			if err := s.Add(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d friends\n", len(s.Friends))
			return nil
		},
	}
}

func (a *app) friendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "friends",
		Short: "List your friends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Friends.ListFriends(cmd.Context(), connect.NewRequest(&api.ListFriendsRequest{}))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tID")
			for _, f := range resp.Msg.Friends {
				fmt.Fprintf(w, "%s\t%s\n", f.Username, f.ID)
			}
			return w.Flush()
		},
	}
}

func (a *app) splitCmd() *cobra.Command {
	var description, amount string
	var with []string
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Record an expense you paid, split equally with friends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := a.currentUser(cmd)
			if err != nil {
				return err
			}
			form := ui.NewSplitBillForm(me.ID, a.client.Friends, a.client.Expenses, a.toaster)
			if err := form.LoadFriends(cmd.Context()); err != nil {
				return err
			}

			// friends can be named by username or ID
			byName := make(map[string]string, len(form.Friends))
			for _, f := range form.Friends {
				byName[f.Username] = f.ID
			}
			form.Description, form.Amount = description, amount
			form.Select(resolveFriends(with, byName)...)

			e, err := form.Submit(cmd.Context())
			if err != nil {
				for field, msg := range form.FieldErrors {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %s each\n", e.Description, ui.FormatUSD(e.Amount), ui.FormatUSD(e.SplitAmount))
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "what the money was spent on")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "total amount, e.g. 90 or 12.50")
	cmd.Flags().StringSliceVarP(&with, "with", "w", nil, "friends to split with (usernames or IDs)")
	return cmd
}

func (a *app) expensesCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "List expenses you take part in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.names(cmd)
			if err != nil {
				return err
			}
			d := ui.NewDashboard(a.client.Expenses, names)
			out := cmd.OutOrStdout()

			if watch {
				return d.Follow(cmd.Context(), func(cards []ui.Card) {
					fmt.Fprintln(out, strings.Repeat("-", 40))
					printCards(out, cards)
				})
			}
			if err := d.Refresh(cmd.Context()); err != nil {
				return err
			}
			printCards(out, d.Cards())
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and reprint on every change")
	return cmd
}

func (a *app) balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show who owes whom across unsettled expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Expenses.GetBalances(cmd.Context(), connect.NewRequest(&api.GetBalancesRequest{}))
			if err != nil {
				return err
			}
			b := resp.Msg
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Paid for others: %s\nYou owe: %s\nNet: %s\n\n",
				ui.FormatUSD(b.Paid), ui.FormatUSD(b.Owed), ui.FormatUSD(b.Net))

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, bal := range b.Balances {
				name := bal.User.Username
				if name == "" {
					name = bal.User.ID
				}
				if bal.Net.IsPositive() {
					fmt.Fprintf(w, "%s\towes you\t%s\n", name, ui.FormatUSD(bal.Net))
				} else {
					fmt.Fprintf(w, "you owe\t%s\t%s\n", name, ui.FormatUSD(bal.Net.Neg()))
				}
			}
			return w.Flush()
		},
	}
}

// resolveFriends turns usernames into IDs, passing unknown values through
// unchanged. Repeats are kept so validation can reject them.
func resolveFriends(with []string, byName map[string]string) []string {
	ids := make([]string, 0, len(with))
	for _, w := range with {
		if id, ok := byName[w]; ok {
			w = id
		}
		ids = append(ids, w)
	}
	return ids
}

// names maps the caller and their friends to usernames for display.
func (a *app) names(cmd *cobra.Command) (map[string]string, error) {
	me, err := a.currentUser(cmd)
	if err != nil {
		return nil, err
	}
	names := map[string]string{me.ID: me.Username}

	resp, err := a.client.Friends.ListFriends(cmd.Context(), connect.NewRequest(&api.ListFriendsRequest{}))
	if err != nil {
		return nil, err
	}
	for _, f := range resp.Msg.Friends {
		names[f.ID] = f.Username
	}
	return names, nil
}

func printCards(out io.Writer, cards []ui.Card) {
	if len(cards) == 0 {
		fmt.Fprintln(out, "No expenses yet. Start splitting bills with your friends.")
		return
	}
	for _, c := range cards {
		fmt.Fprintf(out, "%s  %s\n  %s\n  %s\n", c.Title, c.Amount, c.Subtitle, c.Flow)
	}
}
