// Package identity abstracts the external identity provider that stores user
// accounts and their custom claims. Consumers depend on the Provider
// interface; the firebase subpackage is the production adapter and the memory
// subpackage is the test double.
package identity

import (
	"context"
	"time"
)

// UserRecord is the provider's view of a single user account.
type UserRecord struct {
	ID            string
	Email         string
	DisplayName   string
	EmailVerified bool
	Disabled      bool
	Claims        map[string]interface{}
	CreatedAt     time.Time
}

// UserPage is one page of a user listing. NextPageToken is an opaque cursor
// owned by the provider; an empty token means the listing is exhausted.
type UserPage struct {
	Users         []UserRecord
	NextPageToken string
}

// ProfileUpdate is a partial update of a user's profile fields. Nil fields
// are left untouched. Unlike claims, the provider's profile API supports
// partial patches, so this does not require read-before-write.
type ProfileUpdate struct {
	Email         *string
	DisplayName   *string
	EmailVerified *bool
}

// IsEmpty reports whether the update would touch nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Email == nil && u.DisplayName == nil && u.EmailVerified == nil
}

// Provider is the identity store client. All errors are apperr-typed so
// callers can classify them (NotFound, InvalidArgument, Unavailable) without
// knowing the adapter.
//
// SetClaims is a full replace of the claims bag. The provider has no
// merge/patch primitive for claims, so callers must read-before-write or
// they will discard fields written by others.
type Provider interface {
	GetUser(ctx context.Context, id string) (UserRecord, error)
	SetClaims(ctx context.Context, id string, claims map[string]interface{}) error
	RevokeTokens(ctx context.Context, id string) error
	SetDisabled(ctx context.Context, id string, disabled bool) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, pageToken string, pageSize int) (UserPage, error)
}
