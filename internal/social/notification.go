package social

import (
	"context"

	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
)

// Notification is one of FollowedNotification, FavoritedNotification, RepostedNotification
// or RepliedNotification.
type Notification interface {
	Kind() Kind
	Equal(other Notification) bool
	payload() []string
}

// FollowedNotification tells User that Follower started following them. Follower is nil
// when the follower row no longer resolves.
type FollowedNotification struct {
	Follower *User
	User     *User
}

func (FollowedNotification) Kind() Kind { return KindFollowed }

func (n FollowedNotification) Equal(other Notification) bool {
	o, ok := other.(FollowedNotification)
	return ok && n.Follower.Equal(o.Follower) && n.User.Equal(o.User)
}

func (n FollowedNotification) payload() []string {
	return []string{userRefID(n.Follower), userRefID(n.User)}
}

// FavoritedNotification tells the owner of StatusUpdate that Favoriter favorited it.
type FavoritedNotification struct {
	Favoriter    *User
	StatusUpdate *StatusUpdate
}

func (FavoritedNotification) Kind() Kind { return KindFavorited }

func (n FavoritedNotification) Equal(other Notification) bool {
	o, ok := other.(FavoritedNotification)
	return ok && n.Favoriter.Equal(o.Favoriter) && n.StatusUpdate.Equal(o.StatusUpdate)
}

func (n FavoritedNotification) payload() []string {
	return []string{userRefID(n.Favoriter), statusUpdateRefID(n.StatusUpdate)}
}

// RepostedNotification tells the owner of StatusUpdate that Reposter reposted it.
type RepostedNotification struct {
	Reposter     *User
	StatusUpdate *StatusUpdate
}

func (RepostedNotification) Kind() Kind { return KindReposted }

func (n RepostedNotification) Equal(other Notification) bool {
	o, ok := other.(RepostedNotification)
	return ok && n.Reposter.Equal(o.Reposter) && n.StatusUpdate.Equal(o.StatusUpdate)
}

func (n RepostedNotification) payload() []string {
	return []string{userRefID(n.Reposter), statusUpdateRefID(n.StatusUpdate)}
}

// RepliedNotification tells the owner of StatusUpdate that Sender answered it with Reply.
type RepliedNotification struct {
	Sender       *User
	StatusUpdate *StatusUpdate
	Reply        *StatusUpdate
}

func (RepliedNotification) Kind() Kind { return KindReplied }

func (n RepliedNotification) Equal(other Notification) bool {
	o, ok := other.(RepliedNotification)
	return ok &&
		n.Sender.Equal(o.Sender) &&
		n.StatusUpdate.Equal(o.StatusUpdate) &&
		n.Reply.Equal(o.Reply)
}

func (n RepliedNotification) payload() []string {
	return []string{userRefID(n.Sender), statusUpdateRefID(n.StatusUpdate), statusUpdateRefID(n.Reply)}
}

// notificationValues encodes n as [kind, payload...].
func notificationValues(n Notification) []any {
	payload := n.payload()
	values := make([]any, 0, len(payload)+1)
	values = append(values, string(n.Kind()))
	for _, field := range payload {
		values = append(values, field)
	}
	return values
}

// notificationDecoder rebuilds a notification from the payload fields (after the kind tag)
// when it is addressed to recipient. ok is false for rows meant for someone else and for
// rows whose status update no longer resolves.
type notificationDecoder func(ctx context.Context, s *Service, payload []string, recipient recordstore.ID) (Notification, bool, error)

var notificationDecoders = map[Kind]notificationDecoder{
	KindFollowed:  decodeFollowed,
	KindFavorited: decodeFavorited,
	KindReposted:  decodeReposted,
	KindReplied:   decodeReplied,
}

// followed: [follower_id, user_id]
func decodeFollowed(ctx context.Context, s *Service, payload []string, recipient recordstore.ID) (Notification, bool, error) {
	userID, ok := recordstore.ParseID(field(payload, 1))
	if !ok || userID != recipient {
		return nil, false, nil
	}
	user, found, err := s.findUser(ctx, userID)
	if err != nil || !found {
		return nil, false, err
	}
	follower, err := s.optionalUser(ctx, field(payload, 0))
	if err != nil {
		return nil, false, err
	}
	return FollowedNotification{Follower: follower, User: user}, true, nil
}

// favorited: [favoriter_id, status_update_id]
func decodeFavorited(ctx context.Context, s *Service, payload []string, recipient recordstore.ID) (Notification, bool, error) {
	target, ok, err := s.ownedStatusUpdate(ctx, field(payload, 1), recipient)
	if err != nil || !ok {
		return nil, false, err
	}
	favoriter, err := s.optionalUser(ctx, field(payload, 0))
	if err != nil {
		return nil, false, err
	}
	return FavoritedNotification{Favoriter: favoriter, StatusUpdate: target}, true, nil
}

// reposted: [reposter_id, status_update_id]
func decodeReposted(ctx context.Context, s *Service, payload []string, recipient recordstore.ID) (Notification, bool, error) {
	target, ok, err := s.ownedStatusUpdate(ctx, field(payload, 1), recipient)
	if err != nil || !ok {
		return nil, false, err
	}
	reposter, err := s.optionalUser(ctx, field(payload, 0))
	if err != nil {
		return nil, false, err
	}
	return RepostedNotification{Reposter: reposter, StatusUpdate: target}, true, nil
}

// replied: [sender_id, status_update_id, reply_id]
func decodeReplied(ctx context.Context, s *Service, payload []string, recipient recordstore.ID) (Notification, bool, error) {
	target, ok, err := s.ownedStatusUpdate(ctx, field(payload, 1), recipient)
	if err != nil || !ok {
		return nil, false, err
	}
	replyID, ok := recordstore.ParseID(field(payload, 2))
	if !ok {
		return nil, false, nil
	}
	reply, found, err := s.findStatusUpdate(ctx, replyID)
	if err != nil || !found {
		return nil, false, err
	}
	sender, err := s.optionalUser(ctx, field(payload, 0))
	if err != nil {
		return nil, false, err
	}
	return RepliedNotification{Sender: sender, StatusUpdate: target, Reply: reply}, true, nil
}

func field(payload []string, index int) string {
	if index < 0 || index >= len(payload) {
		return ""
	}
	return payload[index]
}

func userRefID(u *User) string {
	if u == nil {
		return ""
	}
	return u.ID.String()
}

func statusUpdateRefID(s *StatusUpdate) string {
	if s == nil {
		return ""
	}
	return s.ID.String()
}
