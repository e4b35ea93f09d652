package social

import "github.com/MarcoPoloResearchLab/lemon/internal/recordstore"

// User is a transient view of a row in the users table.
type User struct {
	ID           recordstore.ID
	Email        string
	Preferences  Preferences
	passwordHash string
	signedIn     bool
}

// SignedIn reports the in-memory sign-in state. It is never persisted.
func (u *User) SignedIn() bool {
	return u != nil && u.signedIn
}

// Persisted reports whether the user has an assigned id.
func (u *User) Persisted() bool {
	return u != nil && !u.ID.IsZero()
}

// Equal compares users by id when both are persisted and by email otherwise.
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == nil && other == nil
	}
	if u.Persisted() && other.Persisted() {
		return u.ID == other.ID
	}
	return u.Email == other.Email
}

// UserRef is a lazy reference to a user. It stores only the id and is resolved through
// the record store on every call.
type UserRef struct {
	ID recordstore.ID
}

// RefUser references u. A nil or unsaved user yields the zero reference.
func RefUser(u *User) UserRef {
	if u == nil {
		return UserRef{}
	}
	return UserRef{ID: u.ID}
}

// IsZero reports whether the reference points nowhere.
func (r UserRef) IsZero() bool {
	return r.ID.IsZero()
}

// StatusUpdate is a transient view of a row in the status_updates table.
type StatusUpdate struct {
	ID       recordstore.ID
	Owner    UserRef
	ReplyFor StatusUpdateRef
	RepostOf StatusUpdateRef
}

// NewStatusUpdate returns an unsaved status update draft.
func NewStatusUpdate() *StatusUpdate {
	return &StatusUpdate{}
}

// NewRepostOf returns an unsaved draft reposting target.
func NewRepostOf(target *StatusUpdate) *StatusUpdate {
	return &StatusUpdate{RepostOf: RefStatusUpdate(target)}
}

// Persisted reports whether the status update has an assigned id.
func (s *StatusUpdate) Persisted() bool {
	return s != nil && !s.ID.IsZero()
}

// IsRepost reports whether the status update reposts another one.
func (s *StatusUpdate) IsRepost() bool {
	return s != nil && !s.RepostOf.IsZero()
}

// IsReply reports whether the status update replies to another one.
func (s *StatusUpdate) IsReply() bool {
	return s != nil && !s.ReplyFor.IsZero()
}

// Equal compares status updates by id when both are persisted and by the
// (owner, reply_for, repost_of) key otherwise.
//
// Two fresh drafts with the same key are equal even though they are distinct values.
func (s *StatusUpdate) Equal(other *StatusUpdate) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}
	if s.Persisted() && other.Persisted() {
		return s.ID == other.ID
	}
	return s.structuralKey() == other.structuralKey()
}

type statusUpdateKey struct {
	owner    recordstore.ID
	replyFor recordstore.ID
	repostOf recordstore.ID
}

func (s *StatusUpdate) structuralKey() statusUpdateKey {
	return statusUpdateKey{owner: s.Owner.ID, replyFor: s.ReplyFor.ID, repostOf: s.RepostOf.ID}
}

// StatusUpdateRef is a lazy reference to a status update.
type StatusUpdateRef struct {
	ID recordstore.ID
}

// RefStatusUpdate references s. A nil or unsaved status update yields the zero reference.
func RefStatusUpdate(s *StatusUpdate) StatusUpdateRef {
	if s == nil {
		return StatusUpdateRef{}
	}
	return StatusUpdateRef{ID: s.ID}
}

// IsZero reports whether the reference points nowhere.
func (r StatusUpdateRef) IsZero() bool {
	return r.ID.IsZero()
}
