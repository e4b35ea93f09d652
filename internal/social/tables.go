package social

import (
	"strconv"

	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
)

// Table names used by the social domain.
const (
	TableUsers         = "users"
	TableStatusUpdates = "status_updates"
	TableFollows       = "follows"
	TableBlocks        = "blocks"
	TableFavorites     = "favorites"
	TableNotifications = "notifications"
)

// Tables lists every table owned by the social domain.
func Tables() []string {
	return []string{TableUsers, TableStatusUpdates, TableFollows, TableBlocks, TableFavorites, TableNotifications}
}

// users: [email, password_hash, notifications_disabled, favorited_disabled,
// reposted_disabled, followed_disabled, replied_disabled]
const (
	userFieldEmail = iota
	userFieldPasswordHash
	userFieldNotificationsDisabled
	userFieldFavoritedDisabled
	userFieldRepostedDisabled
	userFieldFollowedDisabled
	userFieldRepliedDisabled
)

// status_updates: [owner_id, reply_for_id, repost_of_id]
const (
	statusFieldOwner = iota
	statusFieldReplyFor
	statusFieldRepostOf
)

// follows: [follower_id, followee_id]; blocks: [blocker_id, blocked_id]
const (
	edgeFieldFrom = iota
	edgeFieldTo
)

// favorites: [status_update_id, favoriter_id]
const (
	favoriteFieldStatusUpdate = iota
	favoriteFieldFavoriter
)

func userValues(u *User) []any {
	return []any{
		u.Email,
		u.passwordHash,
		formatFlag(u.Preferences.NotificationsDisabled),
		formatFlag(u.Preferences.FavoritedDisabled),
		formatFlag(u.Preferences.RepostedDisabled),
		formatFlag(u.Preferences.FollowedDisabled),
		formatFlag(u.Preferences.RepliedDisabled),
	}
}

func decodeUser(row recordstore.Row) *User {
	return &User{
		ID:           row.ID,
		Email:        row.Field(userFieldEmail),
		passwordHash: row.Field(userFieldPasswordHash),
		Preferences: Preferences{
			NotificationsDisabled: parseFlag(row.Field(userFieldNotificationsDisabled)),
			FavoritedDisabled:     parseFlag(row.Field(userFieldFavoritedDisabled)),
			RepostedDisabled:      parseFlag(row.Field(userFieldRepostedDisabled)),
			FollowedDisabled:      parseFlag(row.Field(userFieldFollowedDisabled)),
			RepliedDisabled:       parseFlag(row.Field(userFieldRepliedDisabled)),
		},
	}
}

func statusUpdateValues(s *StatusUpdate) []any {
	return []any{s.Owner.ID.String(), s.ReplyFor.ID.String(), s.RepostOf.ID.String()}
}

func decodeStatusUpdate(row recordstore.Row) *StatusUpdate {
	owner, _ := recordstore.ParseID(row.Field(statusFieldOwner))
	replyFor, _ := recordstore.ParseID(row.Field(statusFieldReplyFor))
	repostOf, _ := recordstore.ParseID(row.Field(statusFieldRepostOf))
	return &StatusUpdate{
		ID:       row.ID,
		Owner:    UserRef{ID: owner},
		ReplyFor: StatusUpdateRef{ID: replyFor},
		RepostOf: StatusUpdateRef{ID: repostOf},
	}
}

func edgeMatcher(from, to recordstore.ID) recordstore.Predicate {
	fromID, toID := from.String(), to.String()
	return func(row recordstore.Row) bool {
		return row.Field(edgeFieldFrom) == fromID && row.Field(edgeFieldTo) == toID
	}
}

func formatFlag(value bool) string {
	return strconv.FormatBool(value)
}

func parseFlag(raw string) bool {
	value, err := strconv.ParseBool(raw)
	return err == nil && value
}
