// Package validate holds the form rules shared by the server and the
// headless client screens, so that a form is rejected before any call
// reaches the network and again at the server boundary.
package validate

import (
	"errors"
	"net/mail"
	"sort"
	"strings"

	"github.com/mmynk/splitfriends/internal/calculator"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

// Errors maps a form field name to a one-line message.
type Errors map[string]string

// Error implements error, listing fields in a stable order.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return strings.Join(parts, "; ")
}

// Err returns nil when there are no field errors.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// AsErrors extracts field errors from err.
func AsErrors(err error) (Errors, bool) {
	var fe Errors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Expense is the split-bill form as submitted.
type Expense struct {
	Description string
	Amount      string
	SplitWith   []string
}

// ValidExpense is an Expense that passed validation.
type ValidExpense struct {
	Description string
	AmountCents int64
	SplitWith   []string
}

// CheckExpense validates the split-bill form for payerID.
// friends, when non-nil, restricts SplitWith to the payer's friend list.
func CheckExpense(form Expense, payerID string, friends []string) (ValidExpense, error) {
	errs := Errors{}
	out := ValidExpense{Description: strings.TrimSpace(form.Description)}

	if out.Description == "" {
		errs["description"] = "Description is required"
	}

	amount := strings.TrimSpace(form.Amount)
	if amount == "" {
		errs["amount"] = "Amount is required"
	} else if cents, err := calculator.ParseAmount(amount); err != nil {
		errs["amount"] = err.Error()
	} else {
		out.AmountCents = cents
	}

	if msg := checkSplitWith(form.SplitWith, payerID, friends); msg != "" {
		errs["splitWith"] = msg
	} else {
		out.SplitWith = append([]string(nil), form.SplitWith...)
	}

	if err := errs.Err(); err != nil {
		return ValidExpense{}, err
	}
	return out, nil
}

func checkSplitWith(ids []string, payerID string, friends []string) string {
	if len(ids) == 0 {
		return "Select at least one friend"
	}

	var friendSet map[string]bool
	if friends != nil {
		friendSet = make(map[string]bool, len(friends))
		for _, f := range friends {
			friendSet[f] = true
		}
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		switch {
		case id == "":
			return "participant id is empty"
		case id == payerID:
			return "the payer is already a participant"
		case seen[id]:
			return "participant " + id + " selected more than once"
		case friendSet != nil && !friendSet[id]:
			return "participant " + id + " is not in your friend list"
		}
		seen[id] = true
	}
	return ""
}

// SignUp is the registration form.
type SignUp struct {
	Email    string
	Password string
	Username string
}

// CheckSignUp validates the registration form.
func CheckSignUp(form SignUp) error {
	errs := Errors{}
	checkEmail(errs, form.Email)
	if len(form.Password) < MinPasswordLength {
		errs["password"] = "Password must be at least 6 characters"
	}
	if len(strings.TrimSpace(form.Username)) < MinUsernameLength {
		errs["username"] = "Username must be at least 3 characters"
	}
	return errs.Err()
}

// CheckSignIn validates the sign-in form.
func CheckSignIn(email, password string) error {
	errs := Errors{}
	checkEmail(errs, email)
	if password == "" {
		errs["password"] = "Password is required"
	}
	return errs.Err()
}

func checkEmail(errs Errors, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs["email"] = "Email is required"
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs["email"] = "Invalid email address"
	}
}
