package social

import "strings"

// Kind discriminates notification variants. The value is the persisted tag.
type Kind string

const (
	KindFollowed  Kind = "followed"
	KindFavorited Kind = "favorited"
	KindReposted  Kind = "reposted"
	KindReplied   Kind = "replied"
)

const legacyKindSuffix = "_notification"

// Kinds lists every notification kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindFollowed, KindFavorited, KindReposted, KindReplied}
}

// ParseKind accepts a kind tag, case-insensitively.
func ParseKind(raw string) (Kind, bool) {
	candidate := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if !candidate.known() {
		return "", false
	}
	return candidate, true
}

func (k Kind) known() bool {
	for _, kind := range Kinds() {
		if kind == k {
			return true
		}
	}
	return false
}

// NormalizeLegacyKind maps the older "<kind>_notification" tags onto the current ones.
func NormalizeLegacyKind(tag string) (Kind, bool) {
	if !strings.HasSuffix(tag, legacyKindSuffix) {
		return "", false
	}
	return ParseKind(strings.TrimSuffix(tag, legacyKindSuffix))
}

// Preferences is the per-recipient notification gating matrix.
type Preferences struct {
	NotificationsDisabled bool
	FavoritedDisabled     bool
	RepostedDisabled      bool
	FollowedDisabled      bool
	RepliedDisabled       bool
}

// Suppresses reports whether a notification of kind must not be delivered. The global
// flag ORs with each kind-specific flag.
func (p Preferences) Suppresses(kind Kind) bool {
	if p.NotificationsDisabled {
		return true
	}
	switch kind {
	case KindFavorited:
		return p.FavoritedDisabled
	case KindReposted:
		return p.RepostedDisabled
	case KindFollowed:
		return p.FollowedDisabled
	case KindReplied:
		return p.RepliedDisabled
	default:
		return false
	}
}

// KindDisabled returns the kind-specific flag alone.
func (p Preferences) KindDisabled(kind Kind) bool {
	switch kind {
	case KindFavorited:
		return p.FavoritedDisabled
	case KindReposted:
		return p.RepostedDisabled
	case KindFollowed:
		return p.FollowedDisabled
	case KindReplied:
		return p.RepliedDisabled
	default:
		return false
	}
}

func (p *Preferences) setKindDisabled(kind Kind, disabled bool) bool {
	switch kind {
	case KindFavorited:
		p.FavoritedDisabled = disabled
	case KindReposted:
		p.RepostedDisabled = disabled
	case KindFollowed:
		p.FollowedDisabled = disabled
	case KindReplied:
		p.RepliedDisabled = disabled
	default:
		return false
	}
	return true
}
