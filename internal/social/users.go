package social

import (
	"context"
	"strings"

	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
	"go.uber.org/zap"
)

// Analytics event names tagged by user-facing operations.
const (
	EventCreatedUser                   = "created_user"
	EventPasswordSignIn                = "password_sign_in"
	EventSignOut                       = "sign_out"
	EventPostStatusUpdate              = "post_status_update"
	EventFollowUser                    = "follow_user"
	EventFollowUserAttemptWhileBlocked = "follow_user_attempt_while_blocked"
	EventUnfollowUser                  = "unfollow_user"
	EventBlockUser                     = "block_user"
	EventFetchFeed                     = "fetch_feed"
	EventFavoriteStatusUpdate          = "favorite_status_update"
	EventFetchNotifications            = "fetch_notifications"
	EventDisabledNotifications         = "disabled_notifications"
	EventEnabledNotifications          = "enabled_notifications"
)

// CreateUser hashes password and immediately persists a new user row.
func (s *Service) CreateUser(ctx context.Context, email, password string) (*User, error) {
	normalizedEmail := strings.TrimSpace(email)
	if normalizedEmail == "" {
		return nil, newServiceError(opCreateUser, "missing_email", ErrEmailRequired)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logError(opCreateUser, reasonHashFailed, err, zap.String("email", normalizedEmail))
		return nil, newServiceError(opCreateUser, reasonHashFailed, err)
	}

	user := &User{Email: normalizedEmail, passwordHash: hash}
	id, err := s.store.Insert(ctx, TableUsers, userValues(user)...)
	if err != nil {
		s.logError(opCreateUser, reasonInsertFailed, err, zap.String("email", normalizedEmail))
		return nil, newServiceError(opCreateUser, reasonInsertFailed, err)
	}
	user.ID = id

	s.tag(ctx, EventCreatedUser, map[string]any{"user_id": id.String()})
	return user, nil
}

// SignUp validates a registration form and creates the user.
func (s *Service) SignUp(ctx context.Context, email, password, passwordConfirmation string) (*User, error) {
	normalizedEmail := strings.TrimSpace(email)
	if normalizedEmail == "" {
		return nil, newServiceError(opSignUp, "missing_email", ErrEmailRequired)
	}
	if password != passwordConfirmation {
		return nil, newServiceError(opSignUp, "confirmation_mismatch", ErrPasswordConfirmationMismatch)
	}
	existing, found, err := s.FindUserByEmail(ctx, normalizedEmail)
	if err != nil {
		return nil, err
	}
	if found && existing != nil {
		return nil, newServiceError(opSignUp, "email_taken", ErrEmailTaken)
	}
	return s.CreateUser(ctx, normalizedEmail, password)
}

// FindUser loads a user by id.
func (s *Service) FindUser(ctx context.Context, id recordstore.ID) (*User, bool, error) {
	return s.ResolveUser(ctx, UserRef{ID: id})
}

// FindUserByEmail returns the first user whose email matches exactly after trimming.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (*User, bool, error) {
	normalizedEmail := strings.TrimSpace(email)
	if normalizedEmail == "" {
		return nil, false, nil
	}
	rows, err := s.store.Where(ctx, TableUsers, func(row recordstore.Row) bool {
		return row.Field(userFieldEmail) == normalizedEmail
	})
	if err != nil {
		s.logError(opFindUser, reasonQueryFailed, err, zap.String("email", normalizedEmail))
		return nil, false, newServiceError(opFindUser, reasonQueryFailed, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return decodeUser(rows[0]), true, nil
}

// PasswordMatches compares plaintext against the user's stored password.
func (s *Service) PasswordMatches(user *User, plaintext string) bool {
	if user == nil || user.passwordHash == "" {
		return false
	}
	return s.hasher.Matches(user.passwordHash, plaintext)
}

// SignIn looks the user up by email and checks the password. On success the returned
// user is marked signed in. A wrong email or password is not an error.
func (s *Service) SignIn(ctx context.Context, email, password string) (*User, bool, error) {
	user, found, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	success := found && s.PasswordMatches(user, password)
	attributes := map[string]any{"success": success}
	if found {
		attributes["user_id"] = user.ID.String()
	}
	s.tag(ctx, EventPasswordSignIn, attributes)
	if !success {
		return nil, false, nil
	}
	user.signedIn = true
	return user, true, nil
}

// SignOut clears the in-memory sign-in flag.
func (s *Service) SignOut(ctx context.Context, user *User) {
	if user == nil {
		return
	}
	user.signedIn = false
	s.tag(ctx, EventSignOut, map[string]any{"user_id": user.ID.String()})
}

// SetNotificationsDisabled flips the global notification switch. Only that column of the
// stored row changes and user is refreshed from the result.
func (s *Service) SetNotificationsDisabled(ctx context.Context, user *User, disabled bool) error {
	if err := requirePersistedUser(opSetPreference, user); err != nil {
		return err
	}
	err := s.updatePreferences(ctx, user, func(preferences *Preferences) {
		preferences.NotificationsDisabled = disabled
	})
	if err != nil {
		return err
	}
	name := EventEnabledNotifications
	if disabled {
		name = EventDisabledNotifications
	}
	s.tag(ctx, name, map[string]any{"user_id": user.ID.String()})
	return nil
}

// SetNotificationKindDisabled flips the switch for a single notification kind, leaving the
// rest of the stored row as it is.
func (s *Service) SetNotificationKindDisabled(ctx context.Context, user *User, kind Kind, disabled bool) error {
	if err := requirePersistedUser(opSetPreference, user); err != nil {
		return err
	}
	if !kind.known() {
		return newServiceError(opSetPreference, "unknown_kind", ErrUnknownNotificationKind)
	}
	err := s.updatePreferences(ctx, user, func(preferences *Preferences) {
		preferences.setKindDisabled(kind, disabled)
	})
	if err != nil {
		return err
	}
	s.tag(ctx, kindToggleEventName(kind, disabled), map[string]any{"user_id": user.ID.String()})
	return nil
}

// updatePreferences re-reads the user row, applies change to its preferences and writes it
// back. user is refreshed from the written row.
func (s *Service) updatePreferences(ctx context.Context, user *User, change func(*Preferences)) error {
	stored, found, err := s.findUser(ctx, user.ID)
	if err != nil {
		s.logError(opSetPreference, reasonLookupFailed, err, zap.Uint64("user_id", uint64(user.ID)))
		return newServiceError(opSetPreference, reasonLookupFailed, err)
	}
	if !found {
		return newServiceError(opSetPreference, "user_not_found", ErrUserNotFound)
	}
	change(&stored.Preferences)
	if err := s.store.Update(ctx, TableUsers, stored.ID, userValues(stored)...); err != nil {
		s.logError(opSetPreference, reasonUpdateFailed, err, zap.Uint64("user_id", uint64(user.ID)))
		return newServiceError(opSetPreference, reasonUpdateFailed, err)
	}
	user.Email = stored.Email
	user.passwordHash = stored.passwordHash
	user.Preferences = stored.Preferences
	return nil
}

func kindToggleEventName(kind Kind, disabled bool) string {
	state := "enabled"
	if disabled {
		state = "disabled"
	}
	return state + "_" + string(kind) + "_notification"
}
