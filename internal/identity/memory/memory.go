// Package memory provides an in-memory identity.Provider used in tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"dinescout_backend/internal/identity"
	"dinescout_backend/platform/apperr"
)

// Provider is a threadsafe in-memory identity store. Per-operation failure
// injection lets tests script provider outages; Revoked and SetClaimsCalls
// record side effects for assertions.
type Provider struct {
	mu    sync.Mutex
	users map[string]identity.UserRecord

	FailGetUser     error
	FailSetClaims   error
	FailRevoke      error
	FailSetDisabled error
	FailUpdate      error
	FailDelete      error
	FailList        error

	Revoked        []string
	SetClaimsCalls int
	UpdateCalls    int
}

// New creates an empty in-memory provider.
func New() *Provider {
	return &Provider{users: make(map[string]identity.UserRecord)}
}

// Put inserts or replaces a user record directly, bypassing failure injection.
func (p *Provider) Put(u identity.UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.ID] = u
}

// User returns the stored record and whether it exists.
func (p *Provider) User(id string) (identity.UserRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[id]
	return u, ok
}

func (p *Provider) GetUser(_ context.Context, id string) (identity.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailGetUser != nil {
		return identity.UserRecord{}, p.FailGetUser
	}
	u, ok := p.users[id]
	if !ok {
		return identity.UserRecord{}, apperr.NotFound("user not found").WithOp("GetUser")
	}
	return u, nil
}

func (p *Provider) SetClaims(_ context.Context, id string, claims map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailSetClaims != nil {
		return p.FailSetClaims
	}
	u, ok := p.users[id]
	if !ok {
		return apperr.NotFound("user not found").WithOp("SetClaims")
	}
	u.Claims = claims
	p.users[id] = u
	p.SetClaimsCalls++
	return nil
}

func (p *Provider) RevokeTokens(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailRevoke != nil {
		return p.FailRevoke
	}
	if _, ok := p.users[id]; !ok {
		return apperr.NotFound("user not found").WithOp("RevokeTokens")
	}
	p.Revoked = append(p.Revoked, id)
	return nil
}

func (p *Provider) SetDisabled(_ context.Context, id string, disabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailSetDisabled != nil {
		return p.FailSetDisabled
	}
	u, ok := p.users[id]
	if !ok {
		return apperr.NotFound("user not found").WithOp("SetDisabled")
	}
	u.Disabled = disabled
	p.users[id] = u
	return nil
}

func (p *Provider) UpdateProfile(_ context.Context, id string, update identity.ProfileUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailUpdate != nil {
		return p.FailUpdate
	}
	u, ok := p.users[id]
	if !ok {
		return apperr.NotFound("user not found").WithOp("UpdateProfile")
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.DisplayName != nil {
		u.DisplayName = *update.DisplayName
	}
	if update.EmailVerified != nil {
		u.EmailVerified = *update.EmailVerified
	}
	p.users[id] = u
	p.UpdateCalls++
	return nil
}

func (p *Provider) DeleteUser(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailDelete != nil {
		return p.FailDelete
	}
	if _, ok := p.users[id]; !ok {
		return apperr.NotFound("user not found").WithOp("DeleteUser")
	}
	delete(p.users, id)
	return nil
}

// ListUsers pages through users in ID order. The page token is the numeric
// offset of the next record, mimicking an opaque provider cursor.
func (p *Provider) ListUsers(_ context.Context, pageToken string, pageSize int) (identity.UserPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailList != nil {
		return identity.UserPage{}, p.FailList
	}

	ids := make([]string, 0, len(p.users))
	for id := range p.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	offset := 0
	if pageToken != "" {
		parsed, err := strconv.Atoi(pageToken)
		if err != nil || parsed < 0 {
			return identity.UserPage{}, apperr.InvalidArgument("invalid page token").WithOp("ListUsers")
		}
		offset = parsed
	}

	var page identity.UserPage
	for i := offset; i < len(ids) && len(page.Users) < pageSize; i++ {
		page.Users = append(page.Users, p.users[ids[i]])
	}
	if next := offset + len(page.Users); next < len(ids) {
		page.NextPageToken = strconv.Itoa(next)
	}
	return page, nil
}

// Compile-time check that Provider implements identity.Provider
var _ identity.Provider = (*Provider)(nil)
