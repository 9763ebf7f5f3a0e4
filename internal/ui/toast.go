// Package ui holds headless view-models for the client screens: sign in,
// friend search, split bill and the expense dashboard. They validate
// input, call the server and report outcomes through a Toaster.
package ui

import "sync"

type ToastKind int

const (
	ToastSuccess ToastKind = iota
	ToastError
)

func (k ToastKind) String() string {
	if k == ToastError {
		return "error"
	}
	return "success"
}

const (
	MsgSignInFailed    = "Failed to sign in"
	MsgSearchFailed    = "Failed to search users"
	MsgFriendAdded     = "Friend added successfully"
	MsgAddFriendFailed = "Failed to add friend"
	MsgBillSplit       = "Bill split successfully"
	MsgSplitFailed     = "Failed to split bill"
)

// Toaster shows short, one-line notifications.
type Toaster interface {
	Toast(kind ToastKind, msg string)
}

// ToasterFunc adapts a function to Toaster.
type ToasterFunc func(kind ToastKind, msg string)

func (f ToasterFunc) Toast(kind ToastKind, msg string) { f(kind, msg) }

type Toast struct {
	Kind    ToastKind
	Message string
}

// Recorder is a Toaster that keeps every toast it receives.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Toast(kind ToastKind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{Kind: kind, Message: msg})
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}
