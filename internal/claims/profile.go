// Package claims holds the typed view of a user's custom claims and the pure
// logic that evolves it. Nothing in this package performs I/O: consumers read
// the raw claims bag from the identity provider, run it through the codec and
// merge logic here, and write the result back themselves.
package claims

import (
	"slices"
	"time"
)

// Well-known role names.
const (
	RoleUser     = "User"
	RoleBusiness = "Business"
	RoleAdmin    = "Admin"
)

// SystemActor is the audit actor recorded for writes made by the sync
// engine itself rather than on behalf of a person.
const SystemActor = "System"

// RoleProfile is the typed view of one identity's custom claims.
type RoleProfile struct {
	IdentityID   string
	Email        string
	DisplayName  string
	Roles        []string // sorted, no duplicates
	SystemUserID string
	IsDeleted    bool

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt time.Time

	CreatedBy string
	UpdatedBy string
	DeletedBy string
}

// HasRole reports whether the profile carries the given role.
func (p RoleProfile) HasRole(name string) bool {
	return slices.Contains(p.Roles, name)
}

// normalizeRoles returns a sorted copy of roles with duplicates and empty
// names removed. Every role set stored on a RoleProfile goes through here so
// the uniqueness invariant holds regardless of where the roles came from.
func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return out
}
