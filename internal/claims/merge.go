package claims

import (
	"slices"
	"time"
)

// IntentKind identifies the state transition an event or command wants to
// apply to a RoleProfile.
type IntentKind string

const (
	IntentSeed       IntentKind = "seed"
	IntentAddRole    IntentKind = "add_role"
	IntentRemoveRole IntentKind = "remove_role"
	IntentReplaceAll IntentKind = "replace_all"
	IntentTombstone  IntentKind = "tombstone"
)

// Intent describes a requested transition. Only the fields relevant to the
// kind are read by Merge.
type Intent struct {
	Kind IntentKind

	Role  string   // AddRole, RemoveRole
	Roles []string // ReplaceAll

	Email        string // Seed, ReplaceAll
	DisplayName  string // Seed, ReplaceAll
	SystemUserID string // Seed, ReplaceAll

	Actor string
	At    time.Time
}

// SeedIntent builds the first-write intent for a newly created user.
func SeedIntent(email, displayName, systemUserID string, at time.Time) Intent {
	return Intent{
		Kind:         IntentSeed,
		Email:        email,
		DisplayName:  displayName,
		SystemUserID: systemUserID,
		Actor:        SystemActor,
		At:           at,
	}
}

// AddRoleIntent builds an intent granting a single role.
func AddRoleIntent(role, actor string, at time.Time) Intent {
	return Intent{Kind: IntentAddRole, Role: role, Actor: actor, At: at}
}

// RemoveRoleIntent builds an intent revoking a single role.
func RemoveRoleIntent(role, actor string, at time.Time) Intent {
	return Intent{Kind: IntentRemoveRole, Role: role, Actor: actor, At: at}
}

// ReplaceAllIntent builds an authoritative overwrite of the role set and
// display fields.
func ReplaceAllIntent(roles []string, email, displayName, systemUserID, actor string, at time.Time) Intent {
	return Intent{
		Kind:         IntentReplaceAll,
		Roles:        roles,
		Email:        email,
		DisplayName:  displayName,
		SystemUserID: systemUserID,
		Actor:        actor,
		At:           at,
	}
}

// TombstoneIntent builds the terminal deletion intent.
func TombstoneIntent(actor string, at time.Time) Intent {
	return Intent{Kind: IntentTombstone, Actor: actor, At: at}
}

// Merge computes the next RoleProfile from the current snapshot and an
// intent. It is pure: no I/O, no clock reads (the intent carries its own
// timestamp), so redelivered messages re-applying the same intent converge.
// The returned bool reports whether the profile actually changed; callers
// skip the provider write when it is false.
//
// Tombstoning is monotonic. Once a profile is deleted, every intent other
// than a repeated Tombstone is a no-op: a stale Seed or role change arriving
// after deletion must not resurrect the account. Timestamps are monotonic
// too: a stale intent that still changes the role set keeps the current
// updatedAt instead of rewinding it.
func Merge(current RoleProfile, intent Intent) (RoleProfile, bool) {
	if current.IsDeleted {
		return current, false
	}

	next := current
	next.Roles = slices.Clone(current.Roles)

	// Out-of-order delivery can apply a stale intent that still changes the
	// role set. Timestamps are clamped so updatedAt never moves backwards.
	at := intent.At
	if at.Before(current.UpdatedAt) {
		at = current.UpdatedAt
	}

	switch intent.Kind {
	case IntentSeed:
		// Redelivered creation event for an already seeded profile.
		if len(current.Roles) > 0 || !current.CreatedAt.IsZero() {
			return current, false
		}
		next.Roles = []string{RoleUser}
		next.Email = intent.Email
		next.DisplayName = intent.DisplayName
		next.SystemUserID = intent.SystemUserID
		next.IsDeleted = false
		next.CreatedAt = at
		next.UpdatedAt = at
		next.CreatedBy = intent.Actor
		next.UpdatedBy = intent.Actor
		return next, true

	case IntentAddRole:
		if current.HasRole(intent.Role) {
			return current, false
		}
		next.Roles = normalizeRoles(append(next.Roles, intent.Role))
		next.UpdatedAt = at
		next.UpdatedBy = intent.Actor
		return next, true

	case IntentRemoveRole:
		if !current.HasRole(intent.Role) {
			return current, false
		}
		next.Roles = slices.DeleteFunc(next.Roles, func(r string) bool {
			return r == intent.Role
		})
		next.UpdatedAt = at
		next.UpdatedBy = intent.Actor
		return next, true

	case IntentReplaceAll:
		next.Roles = normalizeRoles(intent.Roles)
		next.Email = intent.Email
		next.DisplayName = intent.DisplayName
		if intent.SystemUserID != "" {
			next.SystemUserID = intent.SystemUserID
		}
		next.UpdatedAt = at
		next.UpdatedBy = intent.Actor
		return next, true

	case IntentTombstone:
		next.Roles = []string{}
		next.IsDeleted = true
		next.UpdatedAt = at
		next.UpdatedBy = intent.Actor
		next.DeletedAt = at
		next.DeletedBy = intent.Actor
		return next, true

	default:
		return current, false
	}
}
