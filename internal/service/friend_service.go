package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitfriends/internal/ledger"
	"github.com/mmynk/splitfriends/pkg/api"
)

// FriendService implements the FriendService RPC interface.
type FriendService struct {
	ledger *ledger.Ledger
	logger *slog.Logger
}

// NewFriendService creates a new friend service.
func NewFriendService(l *ledger.Ledger, logger *slog.Logger) *FriendService {
	return &FriendService{ledger: l, logger: logger}
}

// SearchUsers looks up the user directory by username prefix.
func (s *FriendService) SearchUsers(ctx context.Context, req *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	matches, err := s.ledger.SearchUsers(ctx, sess, req.Msg.Term, int(req.Msg.Limit))
	if err != nil {
		s.logger.Error("SearchUsers failed", "user_id", sess.UserID, "term", req.Msg.Term, "error", err)
		return nil, toConnectError(err, MsgSearchFailed)
	}

	users := make([]*api.UserMatch, len(matches))
	for i, m := range matches {
		users[i] = &api.UserMatch{User: summaryToAPI(m.User), IsFriend: m.IsFriend}
	}
	s.logger.Debug("SearchUsers", "user_id", sess.UserID, "term", req.Msg.Term, "results", len(users))
	return connect.NewResponse(&api.SearchUsersResponse{Users: users}), nil
}

// AddFriend adds a user to the caller's friend list.
func (s *FriendService) AddFriend(ctx context.Context, req *connect.Request[api.AddFriendRequest]) (*connect.Response[api.AddFriendResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	friends, err := s.ledger.AddFriend(ctx, sess, req.Msg.FriendID)
	if err != nil {
		s.logger.Error("AddFriend failed", "user_id", sess.UserID, "friend_id", req.Msg.FriendID, "error", err)
		return nil, toConnectError(err, MsgAddFriendFailed)
	}

	s.logger.Info("Friend added", "user_id", sess.UserID, "friend_id", req.Msg.FriendID, "friends", len(friends))
	return connect.NewResponse(&api.AddFriendResponse{Friends: friends}), nil
}

// ListFriends returns the caller's friends in the order they were added.
func (s *FriendService) ListFriends(ctx context.Context, req *connect.Request[api.ListFriendsRequest]) (*connect.Response[api.ListFriendsResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	friends, err := s.ledger.Friends(ctx, sess)
	if err != nil {
		s.logger.Error("ListFriends failed", "user_id", sess.UserID, "error", err)
		return nil, toConnectError(err, MsgFriendsFailed)
	}

	out := make([]*api.User, len(friends))
	for i, f := range friends {
		out[i] = summaryToAPI(f)
	}
	return connect.NewResponse(&api.ListFriendsResponse{Friends: out}), nil
}
