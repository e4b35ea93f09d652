package social

import (
	"context"

	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
	"go.uber.org/zap"
)

// Follow records that actor follows target and notifies target. When target blocks actor
// the call is a silent no-op.
func (s *Service) Follow(ctx context.Context, actor, target *User) error {
	if err := requirePersistedUser(opFollow, actor, target); err != nil {
		return err
	}
	blocked, err := s.hasEdge(ctx, opFollow, TableBlocks, target.ID, actor.ID)
	if err != nil {
		return err
	}
	attributes := map[string]any{"user_id": actor.ID.String(), "target_id": target.ID.String()}
	if blocked {
		s.tag(ctx, EventFollowUserAttemptWhileBlocked, attributes)
		return nil
	}

	if _, err := s.store.Insert(ctx, TableFollows, actor.ID.String(), target.ID.String()); err != nil {
		s.logError(opFollow, reasonInsertFailed, err, edgeFields(actor, target)...)
		return newServiceError(opFollow, reasonInsertFailed, err)
	}
	s.tag(ctx, EventFollowUser, attributes)
	s.fanOut(ctx, target.ID, FollowedNotification{Follower: actor, User: target})
	return nil
}

// Unfollow removes every follow row from actor to target. It is safe to call when actor
// does not follow target.
func (s *Service) Unfollow(ctx context.Context, actor, target *User) error {
	if err := requirePersistedUser(opUnfollow, actor, target); err != nil {
		return err
	}
	rows, err := s.store.Where(ctx, TableFollows, edgeMatcher(actor.ID, target.ID))
	if err != nil {
		s.logError(opUnfollow, reasonQueryFailed, err, edgeFields(actor, target)...)
		return newServiceError(opUnfollow, reasonQueryFailed, err)
	}
	for _, row := range rows {
		if err := s.store.Delete(ctx, TableFollows, row.ID); err != nil {
			s.logError(opUnfollow, reasonDeleteFailed, err, edgeFields(actor, target)...)
			return newServiceError(opUnfollow, reasonDeleteFailed, err)
		}
	}
	s.tag(ctx, EventUnfollowUser, map[string]any{"user_id": actor.ID.String(), "target_id": target.ID.String()})
	return nil
}

// Block records that actor blocks target and retracts target's follow of actor.
// Actor's own follow of target is left alone.
func (s *Service) Block(ctx context.Context, actor, target *User) error {
	if err := requirePersistedUser(opBlock, actor, target); err != nil {
		return err
	}
	if _, err := s.store.Insert(ctx, TableBlocks, actor.ID.String(), target.ID.String()); err != nil {
		s.logError(opBlock, reasonInsertFailed, err, edgeFields(actor, target)...)
		return newServiceError(opBlock, reasonInsertFailed, err)
	}
	if err := s.Unfollow(ctx, target, actor); err != nil {
		return err
	}
	s.tag(ctx, EventBlockUser, map[string]any{"user_id": actor.ID.String(), "target_id": target.ID.String()})
	return nil
}

// IsFollowing reports whether at least one follow row goes from actor to target.
func (s *Service) IsFollowing(ctx context.Context, actor, target *User) (bool, error) {
	if !actor.Persisted() || !target.Persisted() {
		return false, nil
	}
	return s.hasEdge(ctx, opIsFollowing, TableFollows, actor.ID, target.ID)
}

// IsBlocking reports whether at least one block row goes from actor to target.
func (s *Service) IsBlocking(ctx context.Context, actor, target *User) (bool, error) {
	if !actor.Persisted() || !target.Persisted() {
		return false, nil
	}
	return s.hasEdge(ctx, opIsBlocking, TableBlocks, actor.ID, target.ID)
}

// Feed concatenates the status updates of every user actor follows, in follow order and
// then post order. Repeated follows repeat the followee's posts.
func (s *Service) Feed(ctx context.Context, actor *User) ([]*StatusUpdate, error) {
	feed := []*StatusUpdate{}
	if !actor.Persisted() {
		return feed, nil
	}
	actorID := actor.ID.String()
	follows, err := s.store.Where(ctx, TableFollows, func(row recordstore.Row) bool {
		return row.Field(edgeFieldFrom) == actorID
	})
	if err != nil {
		s.logError(opFeed, reasonQueryFailed, err, zap.Uint64("user_id", uint64(actor.ID)))
		return nil, newServiceError(opFeed, reasonQueryFailed, err)
	}
	for _, follow := range follows {
		followeeID, ok := recordstore.ParseID(follow.Field(edgeFieldTo))
		if !ok {
			continue
		}
		updates, err := s.statusUpdatesOwnedBy(ctx, opFeed, followeeID)
		if err != nil {
			return nil, err
		}
		feed = append(feed, updates...)
	}
	s.tag(ctx, EventFetchFeed, map[string]any{"user_id": actorID, "count": len(feed)})
	return feed, nil
}

func (s *Service) hasEdge(ctx context.Context, operation, table string, from, to recordstore.ID) (bool, error) {
	rows, err := s.store.Where(ctx, table, edgeMatcher(from, to))
	if err != nil {
		s.logError(operation, reasonQueryFailed, err,
			zap.String("table", table),
			zap.Uint64("from_id", uint64(from)),
			zap.Uint64("to_id", uint64(to)),
		)
		return false, newServiceError(operation, reasonQueryFailed, err)
	}
	return len(rows) > 0, nil
}

func edgeFields(actor, target *User) []zap.Field {
	return []zap.Field{
		zap.Uint64("user_id", uint64(actor.ID)),
		zap.Uint64("target_id", uint64(target.ID)),
	}
}
