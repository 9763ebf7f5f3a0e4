package auth

// Session is the authenticated actor an operation runs on behalf of.
// It is passed explicitly to every ledger operation instead of being
// looked up from ambient state.
type Session struct {
	UserID   string
	Username string
	Email    string
}

// Valid reports whether the session identifies a user.
func (s Session) Valid() bool {
	return s.UserID != ""
}
