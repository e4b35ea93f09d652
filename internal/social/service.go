package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/lemon/internal/analytics"
	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
	"go.uber.org/zap"
)

var (
	// ErrUserNotPersisted indicates that an operation needs a user with an assigned id.
	ErrUserNotPersisted = errors.New("social: user is not persisted")
	// ErrUserNotFound indicates that a persisted user id no longer has a stored row.
	ErrUserNotFound = errors.New("social: user not found")
	// ErrStatusUpdateNotPersisted indicates that an operation needs a saved status update.
	ErrStatusUpdateNotPersisted = errors.New("social: status update is not persisted")
	// ErrMissingStatusUpdate indicates that no status update was supplied.
	ErrMissingStatusUpdate = errors.New("social: status update is required")
	// ErrEmailRequired indicates an empty email address.
	ErrEmailRequired = errors.New("social: email is required")
	// ErrEmailTaken indicates that another user already signed up with the email.
	ErrEmailTaken = errors.New("social: user with such email already exists")
	// ErrPasswordConfirmationMismatch indicates that the sign-up confirmation differs from the password.
	ErrPasswordConfirmationMismatch = errors.New("social: password confirmation and password should be same")
	// ErrUnknownNotificationKind indicates a notification kind outside the known set.
	ErrUnknownNotificationKind = errors.New("social: unknown notification kind")

	errMissingRecordStore = errors.New("record store is required")
	errMissingHasher      = errors.New("password hasher is required")
	noOpLogger            = zap.NewNop()
)

// ServiceError wraps a failure with a dotted operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew       = "social.service.new"
	opCreateUser       = "social.create_user"
	opSignUp           = "social.sign_up"
	opFindUser         = "social.find_user"
	opSetPreference    = "social.set_preference"
	opFollow           = "social.follow"
	opUnfollow         = "social.unfollow"
	opBlock            = "social.block"
	opIsFollowing      = "social.is_following"
	opIsBlocking       = "social.is_blocking"
	opFeed             = "social.feed"
	opPost             = "social.post"
	opStatusUpdatesOf  = "social.status_updates_of"
	opFindStatusUpdate = "social.find_status_update"
	opRepost           = "social.repost"
	opReply            = "social.reply"
	opFavorite         = "social.favorite"
	opFavoritedBy      = "social.favorited_by"
	opFanOut           = "social.fan_out"
	opNotifications    = "social.notifications"

	reasonInsertFailed = "insert_failed"
	reasonUpdateFailed = "update_failed"
	reasonDeleteFailed = "delete_failed"
	reasonQueryFailed  = "query_failed"
	reasonLookupFailed = "lookup_failed"
	reasonHashFailed   = "hash_failed"
)

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// RecordStore is the subset of the record store the social domain depends on.
type RecordStore interface {
	Insert(ctx context.Context, table string, values ...any) (recordstore.ID, error)
	Find(ctx context.Context, table string, id recordstore.ID) (recordstore.Row, bool, error)
	Where(ctx context.Context, table string, predicate recordstore.Predicate) ([]recordstore.Row, error)
	Update(ctx context.Context, table string, id recordstore.ID, values ...any) error
	Delete(ctx context.Context, table string, id recordstore.ID) error
}

// PasswordHasher turns plaintext passwords into opaque stored values and compares them.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Matches(hash, plaintext string) bool
}

// ServiceConfig describes the dependencies of the social service.
type ServiceConfig struct {
	Store     RecordStore
	Hasher    PasswordHasher
	Analytics analytics.Tagger
	Logger    *zap.Logger
}

// Service implements users, the social graph, the content graph and notification fan-out
// on top of the record store. It holds no cached state: every read re-scans storage.
type Service struct {
	store     RecordStore
	hasher    PasswordHasher
	analytics analytics.Tagger
	logger    *zap.Logger
}

// NewService validates cfg and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_record_store", errMissingRecordStore)
	}
	if cfg.Hasher == nil {
		return nil, newServiceError(opServiceNew, "missing_hasher", errMissingHasher)
	}
	tagger := cfg.Analytics
	if tagger == nil {
		tagger = analytics.Nop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		store:     cfg.Store,
		hasher:    cfg.Hasher,
		analytics: tagger,
		logger:    logger,
	}, nil
}

func (s *Service) tag(ctx context.Context, name string, attributes map[string]any) {
	s.analytics.Tag(ctx, analytics.NewEvent(name, attributes))
}

func (s *Service) findUser(ctx context.Context, id recordstore.ID) (*User, bool, error) {
	if id.IsZero() {
		return nil, false, nil
	}
	row, found, err := s.store.Find(ctx, TableUsers, id)
	if err != nil || !found {
		return nil, false, err
	}
	return decodeUser(row), true, nil
}

// optionalUser resolves a persisted user id, returning nil for empty or dangling ids.
func (s *Service) optionalUser(ctx context.Context, raw string) (*User, error) {
	id, ok := recordstore.ParseID(raw)
	if !ok {
		return nil, nil
	}
	user, _, err := s.findUser(ctx, id)
	return user, err
}

func (s *Service) findStatusUpdate(ctx context.Context, id recordstore.ID) (*StatusUpdate, bool, error) {
	if id.IsZero() {
		return nil, false, nil
	}
	row, found, err := s.store.Find(ctx, TableStatusUpdates, id)
	if err != nil || !found {
		return nil, false, err
	}
	return decodeStatusUpdate(row), true, nil
}

// ownedStatusUpdate resolves raw and reports whether it exists and belongs to owner.
func (s *Service) ownedStatusUpdate(ctx context.Context, raw string, owner recordstore.ID) (*StatusUpdate, bool, error) {
	id, ok := recordstore.ParseID(raw)
	if !ok {
		return nil, false, nil
	}
	update, found, err := s.findStatusUpdate(ctx, id)
	if err != nil || !found {
		return nil, false, err
	}
	if update.Owner.ID != owner {
		return nil, false, nil
	}
	return update, true, nil
}

// ResolveUser loads the referenced user from storage.
func (s *Service) ResolveUser(ctx context.Context, ref UserRef) (*User, bool, error) {
	user, found, err := s.findUser(ctx, ref.ID)
	if err != nil {
		s.logError(opFindUser, reasonLookupFailed, err, zap.Uint64("user_id", uint64(ref.ID)))
		return nil, false, newServiceError(opFindUser, reasonLookupFailed, err)
	}
	return user, found, nil
}

// ResolveStatusUpdate loads the referenced status update from storage.
func (s *Service) ResolveStatusUpdate(ctx context.Context, ref StatusUpdateRef) (*StatusUpdate, bool, error) {
	update, found, err := s.findStatusUpdate(ctx, ref.ID)
	if err != nil {
		s.logError(opFindStatusUpdate, reasonLookupFailed, err, zap.Uint64("status_update_id", uint64(ref.ID)))
		return nil, false, newServiceError(opFindStatusUpdate, reasonLookupFailed, err)
	}
	return update, found, nil
}

// FindStatusUpdate loads a status update by id.
func (s *Service) FindStatusUpdate(ctx context.Context, id recordstore.ID) (*StatusUpdate, bool, error) {
	return s.ResolveStatusUpdate(ctx, StatusUpdateRef{ID: id})
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("social service error", attrs...)
}

func requirePersistedUser(operation string, users ...*User) error {
	for _, user := range users {
		if !user.Persisted() {
			return newServiceError(operation, "user_not_persisted", ErrUserNotPersisted)
		}
	}
	return nil
}

func requirePersistedStatusUpdate(operation string, update *StatusUpdate) error {
	if update == nil {
		return newServiceError(operation, "missing_status_update", ErrMissingStatusUpdate)
	}
	if !update.Persisted() {
		return newServiceError(operation, "status_update_not_persisted", ErrStatusUpdateNotPersisted)
	}
	return nil
}
