package ui

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/splitfriends/internal/validate"
	"github.com/mmynk/splitfriends/pkg/api"
	"github.com/mmynk/splitfriends/pkg/api/apiconnect"
)

// TokenSink stores the session token after a successful sign in.
type TokenSink interface {
	SetToken(token string)
}

// LoginForm signs a user in, or up when SignUp is set.
type LoginForm struct {
	Email    string
	Password string
	Username string
	SignUp   bool

	FieldErrors validate.Errors

	account apiconnect.AccountServiceClient
	tokens  TokenSink
	toaster Toaster
}

func NewLoginForm(account apiconnect.AccountServiceClient, tokens TokenSink, toaster Toaster) *LoginForm {
	return &LoginForm{account: account, tokens: tokens, toaster: toaster}
}

// Submit validates the form and, when it is valid, signs in. Field errors
// are left in FieldErrors without contacting the server; a server failure
// produces one toast.
func (f *LoginForm) Submit(ctx context.Context) (*api.User, error) {
	var err error
	if f.SignUp {
		err = validate.CheckSignUp(validate.SignUp{Email: f.Email, Password: f.Password, Username: f.Username})
	} else {
		err = validate.CheckSignIn(f.Email, f.Password)
	}
	if fe, ok := validate.AsErrors(err); ok {
		f.FieldErrors = fe
		return nil, err
	}
	f.FieldErrors = nil

	var (
		user  *api.User
		token string
	)
	if f.SignUp {
		var resp *connect.Response[api.SignUpResponse]
		resp, err = f.account.SignUp(ctx, connect.NewRequest(&api.SignUpRequest{
			Email: f.Email, Password: f.Password, Username: f.Username,
		}))
		if err == nil {
			user, token = resp.Msg.User, resp.Msg.Token
		}
	} else {
		var resp *connect.Response[api.SignInResponse]
		resp, err = f.account.SignIn(ctx, connect.NewRequest(&api.SignInRequest{
			Email: f.Email, Password: f.Password,
		}))
		if err == nil {
			user, token = resp.Msg.User, resp.Msg.Token
		}
	}
	if err != nil {
		f.toaster.Toast(ToastError, MsgSignInFailed)
		return nil, err
	}

	f.tokens.SetToken(token)
	f.Password = ""
	return user, nil
}
