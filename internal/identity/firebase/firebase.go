// Package firebase implements the identity.Provider interface over the
// Firebase Auth Admin SDK.
package firebase

import (
	"context"
	"time"

	"dinescout_backend/internal/identity"
	"dinescout_backend/platform/apperr"
	"dinescout_backend/platform/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Provider adapts a Firebase Auth client to the identity.Provider interface.
type Provider struct {
	client *auth.Client
}

// New creates a Provider from application config. Credentials fall back to
// application default credentials when no file is configured.
func New(ctx context.Context, cfg config.FirebaseConfig) (*Provider, error) {
	var opts []option.ClientOption
	if file := cfg.GetFirebaseCredentialsFile(); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.GetFirebaseProjectID()}, opts...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "initialize firebase app", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "initialize firebase auth client", err)
	}

	return &Provider{client: client}, nil
}

// GetUser fetches a user record by its provider-issued ID.
func (p *Provider) GetUser(ctx context.Context, id string) (identity.UserRecord, error) {
	u, err := p.client.GetUser(ctx, id)
	if err != nil {
		return identity.UserRecord{}, mapError("GetUser", err)
	}
	return toRecord(u), nil
}

// SetClaims performs a full replace of the user's custom claims bag.
func (p *Provider) SetClaims(ctx context.Context, id string, claims map[string]interface{}) error {
	if err := p.client.SetCustomUserClaims(ctx, id, claims); err != nil {
		return mapError("SetClaims", err)
	}
	return nil
}

// RevokeTokens invalidates all refresh tokens issued before now. Existing ID
// tokens stay valid until they expire, so claim changes become visible after
// at most one token refresh cycle.
func (p *Provider) RevokeTokens(ctx context.Context, id string) error {
	if err := p.client.RevokeRefreshTokens(ctx, id); err != nil {
		return mapError("RevokeTokens", err)
	}
	return nil
}

// SetDisabled flips the account's disabled flag.
func (p *Provider) SetDisabled(ctx context.Context, id string, disabled bool) error {
	update := (&auth.UserToUpdate{}).Disabled(disabled)
	if _, err := p.client.UpdateUser(ctx, id, update); err != nil {
		return mapError("SetDisabled", err)
	}
	return nil
}

// UpdateProfile patches only the profile fields set on the update.
func (p *Provider) UpdateProfile(ctx context.Context, id string, update identity.ProfileUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	u := &auth.UserToUpdate{}
	if update.Email != nil {
		u = u.Email(*update.Email)
	}
	if update.DisplayName != nil {
		u = u.DisplayName(*update.DisplayName)
	}
	if update.EmailVerified != nil {
		u = u.EmailVerified(*update.EmailVerified)
	}

	if _, err := p.client.UpdateUser(ctx, id, u); err != nil {
		return mapError("UpdateProfile", err)
	}
	return nil
}

// DeleteUser removes the account from the provider entirely.
func (p *Provider) DeleteUser(ctx context.Context, id string) error {
	if err := p.client.DeleteUser(ctx, id); err != nil {
		return mapError("DeleteUser", err)
	}
	return nil
}

// ListUsers returns one page of users. The page token is passed through from
// and back to the provider unchanged.
func (p *Provider) ListUsers(ctx context.Context, pageToken string, pageSize int) (identity.UserPage, error) {
	it := p.client.Users(ctx, "")
	pager := iterator.NewPager(it, pageSize, pageToken)

	var exported []*auth.ExportedUserRecord
	nextToken, err := pager.NextPage(&exported)
	if err != nil {
		return identity.UserPage{}, mapError("ListUsers", err)
	}

	page := identity.UserPage{
		Users:         make([]identity.UserRecord, 0, len(exported)),
		NextPageToken: nextToken,
	}
	for _, e := range exported {
		page.Users = append(page.Users, toRecord(e.UserRecord))
	}
	return page, nil
}

func toRecord(u *auth.UserRecord) identity.UserRecord {
	rec := identity.UserRecord{
		ID:            u.UID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		EmailVerified: u.EmailVerified,
		Disabled:      u.Disabled,
		Claims:        u.CustomClaims,
	}
	if u.UserMetadata != nil {
		rec.CreatedAt = time.UnixMilli(u.UserMetadata.CreationTimestamp).UTC()
	}
	return rec
}

// mapError translates SDK errors into the apperr taxonomy consumers
// dispatch on.
func mapError(op string, err error) error {
	switch {
	case auth.IsUserNotFound(err) || errorutils.IsNotFound(err):
		return apperr.Wrap(apperr.KindNotFound, "user not found", err).WithOp(op)
	case errorutils.IsInvalidArgument(err):
		return apperr.Wrap(apperr.KindInvalidArgument, "invalid argument", err).WithOp(op)
	case errorutils.IsUnavailable(err) || errorutils.IsResourceExhausted(err):
		return apperr.Wrap(apperr.KindUnavailable, "provider unavailable", err).WithOp(op)
	default:
		return apperr.Wrap(apperr.KindInternal, "provider error", err).WithOp(op)
	}
}

// Compile-time check that Provider implements identity.Provider
var _ identity.Provider = (*Provider)(nil)
