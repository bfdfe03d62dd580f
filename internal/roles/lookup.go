// Package roles provides the cross-service lookup used to enrich
// authoritative role-change events with the platform's own user identity.
package roles

import "context"

// UserRoles is the role-administration service's view of one user.
type UserRoles struct {
	SystemUserID string
	Roles        []string
}

// Lookup resolves platform user data for an identity-provider ID. Only the
// authoritative role-change consumer uses it; its failure fails the whole
// event so the enrichment is never silently skipped.
type Lookup interface {
	GetUserRoles(ctx context.Context, identityID string) (UserRoles, error)
}
