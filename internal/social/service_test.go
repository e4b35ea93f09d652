package social

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/MarcoPoloResearchLab/lemon/internal/analytics"
	"github.com/MarcoPoloResearchLab/lemon/internal/auth"
	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
)

const testPassword = "correct horse"

type fixture struct {
	ctx      context.Context
	store    *recordstore.Store
	service  *Service
	recorder *analytics.Recorder
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithBackend(t, recordstore.NewMemoryBackend())
}

func newFixtureWithBackend(t *testing.T, backend recordstore.Backend) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	store, err := recordstore.New(recordstore.Config{Backend: backend, Logger: logger})
	require.NoError(t, err)

	recorder := analytics.NewRecorder()
	service, err := NewService(ServiceConfig{
		Store:     store,
		Hasher:    auth.NewBcryptHasher(bcrypt.MinCost),
		Analytics: recorder,
		Logger:    logger,
	})
	require.NoError(t, err)

	return &fixture{
		ctx:      context.Background(),
		store:    store,
		service:  service,
		recorder: recorder,
		logs:     logs,
	}
}

func (f *fixture) user(t *testing.T, email string) *User {
	t.Helper()
	user, err := f.service.CreateUser(f.ctx, email, testPassword)
	require.NoError(t, err)
	return user
}

func (f *fixture) post(t *testing.T, author *User) *StatusUpdate {
	t.Helper()
	update := NewStatusUpdate()
	require.NoError(t, f.service.Post(f.ctx, author, update))
	return update
}

func (f *fixture) notifications(t *testing.T, user *User) []Notification {
	t.Helper()
	notifications, err := f.service.Notifications(f.ctx, user)
	require.NoError(t, err)
	return notifications
}

func (f *fixture) reload(t *testing.T, user *User) *User {
	t.Helper()
	reloaded, found, err := f.service.FindUser(f.ctx, user.ID)
	require.NoError(t, err)
	require.True(t, found)
	return reloaded
}

// tableFailingBackend fails saves of a single table.
type tableFailingBackend struct {
	*recordstore.MemoryBackend
	table string
}

func (b *tableFailingBackend) Save(ctx context.Context, table string, rows []recordstore.Row) error {
	if table == b.table {
		return errors.New("disk full")
	}
	return b.MemoryBackend.Save(ctx, table, rows)
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	store, err := recordstore.New(recordstore.Config{Backend: recordstore.NewMemoryBackend()})
	require.NoError(t, err)

	_, err = NewService(ServiceConfig{Hasher: auth.NewBcryptHasher(bcrypt.MinCost)})
	require.Error(t, err)
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "social.service.new.missing_record_store", serviceErr.Code())

	_, err = NewService(ServiceConfig{Store: store})
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "social.service.new.missing_hasher", serviceErr.Code())

	service, err := NewService(ServiceConfig{Store: store, Hasher: auth.NewBcryptHasher(bcrypt.MinCost)})
	require.NoError(t, err)
	_, err = service.CreateUser(context.Background(), "nop@x.org", testPassword)
	require.NoError(t, err)
}

func TestWriteOperationsRequirePersistedInputs(t *testing.T) {
	f := newFixture(t)
	saved := f.user(t, "saved@x.org")
	draftUser := &User{Email: "draft@x.org"}
	savedPost := f.post(t, saved)

	require.ErrorIs(t, f.service.Follow(f.ctx, draftUser, saved), ErrUserNotPersisted)
	require.ErrorIs(t, f.service.Block(f.ctx, saved, draftUser), ErrUserNotPersisted)
	require.ErrorIs(t, f.service.Post(f.ctx, draftUser, NewStatusUpdate()), ErrUserNotPersisted)
	require.ErrorIs(t, f.service.Post(f.ctx, saved, nil), ErrMissingStatusUpdate)
	require.ErrorIs(t, f.service.Favorite(f.ctx, saved, NewStatusUpdate()), ErrStatusUpdateNotPersisted)
	_, err := f.service.Repost(f.ctx, draftUser, savedPost)
	require.ErrorIs(t, err, ErrUserNotPersisted)
	require.ErrorIs(t, f.service.Reply(f.ctx, saved, savedPost, nil), ErrMissingStatusUpdate)

	rows, err := f.store.Where(f.ctx, TableStatusUpdates, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReadOperationsAreLenientForUnsavedValues(t *testing.T) {
	f := newFixture(t)
	saved := f.user(t, "saved@x.org")
	draftUser := &User{Email: "draft@x.org"}

	following, err := f.service.IsFollowing(f.ctx, draftUser, saved)
	require.NoError(t, err)
	assert.False(t, following)

	feed, err := f.service.Feed(f.ctx, draftUser)
	require.NoError(t, err)
	assert.Empty(t, feed)

	updates, err := f.service.StatusUpdatesOf(f.ctx, draftUser)
	require.NoError(t, err)
	assert.Empty(t, updates)

	favoriters, err := f.service.FavoritedBy(f.ctx, NewStatusUpdate())
	require.NoError(t, err)
	assert.Empty(t, favoriters)

	assert.Empty(t, f.notifications(t, draftUser))
}

func TestStorageFailuresAreWrappedAndLogged(t *testing.T) {
	backend := &tableFailingBackend{MemoryBackend: recordstore.NewMemoryBackend(), table: TableFollows}
	f := newFixtureWithBackend(t, backend)
	alice := f.user(t, "alice@x.org")
	bob := f.user(t, "bob@x.org")

	err := f.service.Follow(f.ctx, alice, bob)
	require.Error(t, err)
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "social.follow.insert_failed", serviceErr.Code())

	var storeErr *recordstore.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "recordstore.insert.save_failed", storeErr.Code())

	entries := f.logs.FilterMessage("social service error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "social.follow", entries[0].ContextMap()["operation"])
	assert.Equal(t, "insert_failed", entries[0].ContextMap()["reason"])
}

func TestResolveReferencesRereadStorage(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@x.org")
	update := f.post(t, alice)

	owner, found, err := f.service.ResolveUser(f.ctx, update.Owner)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, owner.Equal(alice))
	assert.NotSame(t, alice, owner)

	require.NoError(t, f.store.Delete(f.ctx, TableStatusUpdates, update.ID))
	_, found, err = f.service.ResolveStatusUpdate(f.ctx, RefStatusUpdate(update))
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = f.service.ResolveUser(f.ctx, UserRef{})
	require.NoError(t, err)
	assert.False(t, found)
}
