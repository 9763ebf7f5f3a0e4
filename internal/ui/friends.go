package ui

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitfriends/pkg/api"
	"github.com/mmynk/splitfriends/pkg/api/apiconnect"
)

// FriendSearch is the add-friends screen.
type FriendSearch struct {
	Term    string
	Results []*api.UserMatch
	Friends []string

	friends apiconnect.FriendServiceClient
	toaster Toaster
}

func NewFriendSearch(friends apiconnect.FriendServiceClient, toaster Toaster) *FriendSearch {
	return &FriendSearch{friends: friends, toaster: toaster}
}

// Search runs the directory lookup for Term. A blank term is ignored.
// On failure the previous results are kept.
func (s *FriendSearch) Search(ctx context.Context) error {
	term := strings.TrimSpace(s.Term)
	if term == "" {
		return nil
	}

	resp, err := s.friends.SearchUsers(ctx, connect.NewRequest(&api.SearchUsersRequest{Term: term}))
	if err != nil {
		s.toaster.Toast(ToastError, MsgSearchFailed)
		return err
	}
	s.Results = resp.Msg.Users
	return nil
}

// Add adds userID to the friend list and marks it in the results.
func (s *FriendSearch) Add(ctx context.Context, userID string) error {
	resp, err := s.friends.AddFriend(ctx, connect.NewRequest(&api.AddFriendRequest{FriendID: userID}))
	if err != nil {
		s.toaster.Toast(ToastError, MsgAddFriendFailed)
		return err
	}

	s.Friends = resp.Msg.Friends
	for _, r := range s.Results {
		if r.User != nil && r.User.ID == userID {
			r.IsFriend = true
		}
	}
	s.toaster.Toast(ToastSuccess, MsgFriendAdded)
	return nil
}
