package social

import (
	"context"

	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
	"go.uber.org/zap"
)

// fanOut stores n for recipient unless the recipient's preferences suppress its kind.
// Preferences are re-read at call time. Failures are logged and never reach the caller.
func (s *Service) fanOut(ctx context.Context, recipientID recordstore.ID, n Notification) {
	kind := n.Kind()
	recipient, found, err := s.findUser(ctx, recipientID)
	if err != nil {
		s.logError(opFanOut, reasonLookupFailed, err,
			zap.String("kind", string(kind)),
			zap.Uint64("recipient_id", uint64(recipientID)),
		)
		return
	}
	if !found {
		s.loggerOrDefault().Debug("notification recipient missing",
			zap.String("kind", string(kind)),
			zap.Uint64("recipient_id", uint64(recipientID)),
		)
		return
	}
	if recipient.Preferences.Suppresses(kind) {
		s.loggerOrDefault().Debug("notification suppressed",
			zap.String("kind", string(kind)),
			zap.Uint64("recipient_id", uint64(recipientID)),
		)
		return
	}
	if _, err := s.store.Insert(ctx, TableNotifications, notificationValues(n)...); err != nil {
		s.logError(opFanOut, reasonInsertFailed, err,
			zap.String("kind", string(kind)),
			zap.Uint64("recipient_id", uint64(recipientID)),
		)
	}
}

// Notifications reconstructs the notifications addressed to user, in table order. Rows
// with an unknown kind, or whose status update no longer resolves, are skipped.
func (s *Service) Notifications(ctx context.Context, user *User) ([]Notification, error) {
	notifications := []Notification{}
	if !user.Persisted() {
		return notifications, nil
	}
	rows, err := s.store.Where(ctx, TableNotifications, nil)
	if err != nil {
		s.logError(opNotifications, reasonQueryFailed, err, zap.Uint64("user_id", uint64(user.ID)))
		return nil, newServiceError(opNotifications, reasonQueryFailed, err)
	}
	for _, row := range rows {
		kind, ok := rowKind(row)
		if !ok {
			continue
		}
		notification, ok, err := notificationDecoders[kind](ctx, s, row.Fields[1:], user.ID)
		if err != nil {
			s.logError(opNotifications, reasonLookupFailed, err,
				zap.Uint64("user_id", uint64(user.ID)),
				zap.Uint64("notification_id", uint64(row.ID)),
			)
			return nil, newServiceError(opNotifications, reasonLookupFailed, err)
		}
		if ok {
			notifications = append(notifications, notification)
		}
	}
	s.tag(ctx, EventFetchNotifications, map[string]any{
		"user_id": user.ID.String(),
		"count":   len(notifications),
	})
	return notifications, nil
}

func rowKind(row recordstore.Row) (Kind, bool) {
	if len(row.Fields) == 0 {
		return "", false
	}
	tag := row.Fields[0]
	if kind, ok := ParseKind(tag); ok {
		return kind, true
	}
	return NormalizeLegacyKind(tag)
}
