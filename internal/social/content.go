package social

import (
	"context"

	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
	"go.uber.org/zap"
)

// Post makes author the owner of draft and persists it as a new row, assigning draft.ID.
// Reply and repost targets set on draft are captured by id.
func (s *Service) Post(ctx context.Context, author *User, draft *StatusUpdate) error {
	if err := s.persistStatusUpdate(ctx, opPost, author, draft); err != nil {
		return err
	}
	s.tagPost(ctx, author, draft)
	return nil
}

// StatusUpdatesOf returns every status update owned by user, in table order.
func (s *Service) StatusUpdatesOf(ctx context.Context, user *User) ([]*StatusUpdate, error) {
	if !user.Persisted() {
		return []*StatusUpdate{}, nil
	}
	return s.statusUpdatesOwnedBy(ctx, opStatusUpdatesOf, user.ID)
}

// Repost posts a new status update reposting target on behalf of actor and notifies the
// owner of target.
func (s *Service) Repost(ctx context.Context, actor *User, target *StatusUpdate) (*StatusUpdate, error) {
	if err := requirePersistedStatusUpdate(opRepost, target); err != nil {
		return nil, err
	}
	repost := NewRepostOf(target)
	if err := s.persistStatusUpdate(ctx, opRepost, actor, repost); err != nil {
		return nil, err
	}
	s.tagPost(ctx, actor, repost)
	s.fanOut(ctx, s.ownerOf(ctx, opRepost, target), RepostedNotification{Reposter: actor, StatusUpdate: target})
	return repost, nil
}

// Reply posts draft as an answer to target and notifies the owner of target.
func (s *Service) Reply(ctx context.Context, actor *User, target, draft *StatusUpdate) error {
	if err := requirePersistedStatusUpdate(opReply, target); err != nil {
		return err
	}
	if draft == nil {
		return newServiceError(opReply, "missing_status_update", ErrMissingStatusUpdate)
	}
	draft.ReplyFor = RefStatusUpdate(target)
	if err := s.persistStatusUpdate(ctx, opReply, actor, draft); err != nil {
		return err
	}
	s.tagPost(ctx, actor, draft)
	s.fanOut(ctx, s.ownerOf(ctx, opReply, target), RepliedNotification{Sender: actor, StatusUpdate: target, Reply: draft})
	return nil
}

// Favorite records that actor favorited target and notifies the owner of target.
func (s *Service) Favorite(ctx context.Context, actor *User, target *StatusUpdate) error {
	if err := requirePersistedUser(opFavorite, actor); err != nil {
		return err
	}
	if err := requirePersistedStatusUpdate(opFavorite, target); err != nil {
		return err
	}
	if _, err := s.store.Insert(ctx, TableFavorites, target.ID.String(), actor.ID.String()); err != nil {
		s.logError(opFavorite, reasonInsertFailed, err,
			zap.Uint64("user_id", uint64(actor.ID)),
			zap.Uint64("status_update_id", uint64(target.ID)),
		)
		return newServiceError(opFavorite, reasonInsertFailed, err)
	}
	s.tag(ctx, EventFavoriteStatusUpdate, map[string]any{
		"user_id":          actor.ID.String(),
		"status_update_id": target.ID.String(),
	})
	s.fanOut(ctx, s.ownerOf(ctx, opFavorite, target), FavoritedNotification{Favoriter: actor, StatusUpdate: target})
	return nil
}

// FavoritedBy returns the users that favorited update, one entry per favorite row.
// Favorites whose user no longer resolves are skipped.
func (s *Service) FavoritedBy(ctx context.Context, update *StatusUpdate) ([]*User, error) {
	users := []*User{}
	if !update.Persisted() {
		return users, nil
	}
	updateID := update.ID.String()
	rows, err := s.store.Where(ctx, TableFavorites, func(row recordstore.Row) bool {
		return row.Field(favoriteFieldStatusUpdate) == updateID
	})
	if err != nil {
		s.logError(opFavoritedBy, reasonQueryFailed, err, zap.Uint64("status_update_id", uint64(update.ID)))
		return nil, newServiceError(opFavoritedBy, reasonQueryFailed, err)
	}
	for _, row := range rows {
		favoriter, err := s.optionalUser(ctx, row.Field(favoriteFieldFavoriter))
		if err != nil {
			s.logError(opFavoritedBy, reasonLookupFailed, err, zap.Uint64("status_update_id", uint64(update.ID)))
			return nil, newServiceError(opFavoritedBy, reasonLookupFailed, err)
		}
		if favoriter != nil {
			users = append(users, favoriter)
		}
	}
	return users, nil
}

func (s *Service) persistStatusUpdate(ctx context.Context, operation string, author *User, draft *StatusUpdate) error {
	if err := requirePersistedUser(operation, author); err != nil {
		return err
	}
	if draft == nil {
		return newServiceError(operation, "missing_status_update", ErrMissingStatusUpdate)
	}
	draft.Owner = RefUser(author)
	id, err := s.store.Insert(ctx, TableStatusUpdates, statusUpdateValues(draft)...)
	if err != nil {
		s.logError(operation, reasonInsertFailed, err, zap.Uint64("user_id", uint64(author.ID)))
		return newServiceError(operation, reasonInsertFailed, err)
	}
	draft.ID = id
	return nil
}

// ownerOf returns the stored owner of target. The caller's copy is used only when the row
// cannot be read.
func (s *Service) ownerOf(ctx context.Context, operation string, target *StatusUpdate) recordstore.ID {
	stored, found, err := s.findStatusUpdate(ctx, target.ID)
	if err != nil {
		s.logError(operation, reasonLookupFailed, err, zap.Uint64("status_update_id", uint64(target.ID)))
	}
	if err != nil || !found {
		return target.Owner.ID
	}
	return stored.Owner.ID
}

func (s *Service) tagPost(ctx context.Context, author *User, update *StatusUpdate) {
	s.tag(ctx, EventPostStatusUpdate, map[string]any{
		"user_id":          author.ID.String(),
		"status_update_id": update.ID.String(),
		"repost":           update.IsRepost(),
		"reply":            update.IsReply(),
	})
}

func (s *Service) statusUpdatesOwnedBy(ctx context.Context, operation string, owner recordstore.ID) ([]*StatusUpdate, error) {
	ownerID := owner.String()
	rows, err := s.store.Where(ctx, TableStatusUpdates, func(row recordstore.Row) bool {
		return row.Field(statusFieldOwner) == ownerID
	})
	if err != nil {
		s.logError(operation, reasonQueryFailed, err, zap.Uint64("user_id", uint64(owner)))
		return nil, newServiceError(operation, reasonQueryFailed, err)
	}
	updates := make([]*StatusUpdate, 0, len(rows))
	for _, row := range rows {
		updates = append(updates, decodeStatusUpdate(row))
	}
	return updates, nil
}
