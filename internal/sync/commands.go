package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dinescout_backend/internal/claims"
	"dinescout_backend/internal/identity"
	"dinescout_backend/platform/apperr"

	"github.com/hibiken/asynq"
)

// Command consumers. Business-level outcomes, benign or not, travel in the
// Result reply; the handler returns nil so the queue acknowledges the
// message. The only errors returned to the queue are a failed reply write
// (retried, since the caller would otherwise never see an outcome) and
// malformed payloads (archived).

func (w *Worker) handleEnableUser(ctx context.Context, task *asynq.Task) error {
	p, err := parseCommand[EnableUserPayload](w, task)
	if err != nil {
		return err
	}
	reply := w.enableUser(ctx, p)
	w.log.CommandResult(TaskCmdEnableUser, p.IdentityID, reply.IsSuccess, reply.ErrorCode)
	return w.respond(ctx, task, p.CommandID, reply)
}

func (w *Worker) handleDisableUser(ctx context.Context, task *asynq.Task) error {
	p, err := parseCommand[DisableUserPayload](w, task)
	if err != nil {
		return err
	}
	reply := w.disableUser(ctx, p)
	w.log.CommandResult(TaskCmdDisableUser, p.IdentityID, reply.IsSuccess, reply.ErrorCode)
	return w.respond(ctx, task, p.CommandID, reply)
}

func (w *Worker) handleDeleteUser(ctx context.Context, task *asynq.Task) error {
	p, err := parseCommand[DeleteUserPayload](w, task)
	if err != nil {
		return err
	}
	reply := w.deleteUser(ctx, p)
	w.log.CommandResult(TaskCmdDeleteUser, p.IdentityID, reply.IsSuccess, reply.ErrorCode)
	return w.respond(ctx, task, p.CommandID, reply)
}

func (w *Worker) handleUpdateUser(ctx context.Context, task *asynq.Task) error {
	p, err := parseCommand[UpdateUserPayload](w, task)
	if err != nil {
		return err
	}
	reply := w.updateUser(ctx, p)
	w.log.CommandResult(TaskCmdUpdateUser, p.IdentityID, reply.IsSuccess, reply.ErrorCode)
	return w.respond(ctx, task, p.CommandID, reply)
}

func (w *Worker) handleAddRole(ctx context.Context, task *asynq.Task) error {
	p, err := parseCommand[AddRolePayload](w, task)
	if err != nil {
		return err
	}
	reply := w.changeRole(ctx, p.IdentityID, p.Role, p.Actor, true)
	w.log.CommandResult(TaskCmdAddRole, p.IdentityID, reply.IsSuccess, reply.ErrorCode)
	return w.respond(ctx, task, p.CommandID, reply)
}

func (w *Worker) handleRemoveRole(ctx context.Context, task *asynq.Task) error {
	p, err := parseCommand[RemoveRolePayload](w, task)
	if err != nil {
		return err
	}
	reply := w.changeRole(ctx, p.IdentityID, p.Role, p.Actor, false)
	w.log.CommandResult(TaskCmdRemoveRole, p.IdentityID, reply.IsSuccess, reply.ErrorCode)
	return w.respond(ctx, task, p.CommandID, reply)
}

func (w *Worker) handleGetUserRoles(ctx context.Context, task *asynq.Task) error {
	p, err := parseCommand[GetUserRolesPayload](w, task)
	if err != nil {
		return err
	}
	return w.respond(ctx, task, p.CommandID, w.getUserRoles(ctx, p))
}

func (w *Worker) handleGetUserStatus(ctx context.Context, task *asynq.Task) error {
	p, err := parseCommand[GetUserStatusPayload](w, task)
	if err != nil {
		return err
	}
	return w.respond(ctx, task, p.CommandID, w.getUserStatus(ctx, p))
}

func (w *Worker) handleSearchUsers(ctx context.Context, task *asynq.Task) error {
	p, err := parseCommand[SearchUsersPayload](w, task)
	if err != nil {
		return err
	}
	return w.respond(ctx, task, p.CommandID, w.searchUsers(ctx, p))
}

// =============================================================================
// Command logic
// =============================================================================

func (w *Worker) enableUser(ctx context.Context, p EnableUserPayload) Result {
	rec, err := w.provider.GetUser(ctx, p.IdentityID)
	if err != nil {
		return providerFailure(err)
	}
	if !rec.Disabled {
		return Fail(CodeUserAlreadyEnabled, "user is already enabled")
	}
	if err := w.provider.SetDisabled(ctx, p.IdentityID, false); err != nil {
		return providerFailure(err)
	}
	return OK("user enabled")
}

func (w *Worker) disableUser(ctx context.Context, p DisableUserPayload) Result {
	rec, err := w.provider.GetUser(ctx, p.IdentityID)
	if err != nil {
		return providerFailure(err)
	}
	if rec.Disabled {
		return Fail(CodeUserAlreadyDisabled, "user is already disabled")
	}
	if err := w.provider.SetDisabled(ctx, p.IdentityID, true); err != nil {
		return providerFailure(err)
	}
	return OK("user disabled")
}

func (w *Worker) deleteUser(ctx context.Context, p DeleteUserPayload) DeleteReply {
	reply := DeleteReply{IdentityID: p.IdentityID}

	// Fetched first so the reply can echo the email for audit purposes.
	rec, err := w.provider.GetUser(ctx, p.IdentityID)
	if err != nil {
		reply.Result = providerFailure(err)
		return reply
	}
	reply.Email = rec.Email

	if err := w.provider.DeleteUser(ctx, p.IdentityID); err != nil {
		reply.Result = providerFailure(err)
		return reply
	}
	reply.Result = OK("user deleted")
	return reply
}

func (w *Worker) updateUser(ctx context.Context, p UpdateUserPayload) Result {
	rec, err := w.provider.GetUser(ctx, p.IdentityID)
	if err != nil {
		return providerFailure(err)
	}

	// Only fields that actually differ are sent; an empty diff skips the
	// provider call entirely.
	var update identity.ProfileUpdate
	if p.Email != nil && *p.Email != rec.Email {
		update.Email = p.Email
	}
	if p.DisplayName != nil && *p.DisplayName != rec.DisplayName {
		update.DisplayName = p.DisplayName
	}
	if p.EmailVerified != nil && *p.EmailVerified != rec.EmailVerified {
		update.EmailVerified = p.EmailVerified
	}

	if update.IsEmpty() {
		return Fail(CodeNoChanges, "No changes")
	}

	if err := w.provider.UpdateProfile(ctx, p.IdentityID, update); err != nil {
		return providerFailure(err)
	}
	return OK("user updated")
}

// changeRole applies an AddRole or RemoveRole intent through the same
// read-merge-write cycle the event consumers use, but reports the no-op case
// as a benign result instead of silently acknowledging.
func (w *Worker) changeRole(ctx context.Context, identityID, role, actor string, add bool) Result {
	rec, err := w.provider.GetUser(ctx, identityID)
	if err != nil {
		return providerFailure(err)
	}

	profile := claims.Decode(rec.Claims)
	profile.IdentityID = identityID

	if profile.IsDeleted {
		return Fail(CodeUserDeleted, "user is deleted")
	}

	if actor == "" {
		actor = claims.SystemActor
	}
	now := time.Now().UTC()

	var intent claims.Intent
	if add {
		if profile.HasRole(role) {
			return Fail(CodeRoleAlreadyExists, fmt.Sprintf("role %q already assigned", role))
		}
		intent = claims.AddRoleIntent(role, actor, now)
	} else {
		if !profile.HasRole(role) {
			return Fail(CodeRoleNotFound, fmt.Sprintf("role %q not assigned", role))
		}
		intent = claims.RemoveRoleIntent(role, actor, now)
	}

	next, changed := claims.Merge(profile, intent)
	w.recordAudit(ctx, next, intent, changed)
	if !changed {
		// Merge disagreeing with the checks above means the profile is
		// tombstoned; already handled, but stay benign either way.
		return Fail(CodeNoChanges, "no changes")
	}

	if err := w.provider.SetClaims(ctx, identityID, claims.Encode(next)); err != nil {
		return providerFailure(err)
	}
	w.log.ClaimsWrite(identityID, string(intent.Kind), next.Roles)

	w.revokeBestEffort(ctx, identityID)
	return OK("roles updated")
}

// getUserRoles is a read path: provider failures degrade to a structurally
// valid reply with an empty role set instead of propagating.
func (w *Worker) getUserRoles(ctx context.Context, p GetUserRolesPayload) RolesReply {
	reply := RolesReply{IdentityID: p.IdentityID, Roles: []string{}}

	rec, err := w.provider.GetUser(ctx, p.IdentityID)
	if err != nil {
		reply.Result = providerFailure(err)
		return reply
	}

	profile := claims.Decode(rec.Claims)
	reply.Roles = profile.Roles
	reply.Result = OK("")
	return reply
}

func (w *Worker) getUserStatus(ctx context.Context, p GetUserStatusPayload) StatusReply {
	reply := StatusReply{IdentityID: p.IdentityID}

	rec, err := w.provider.GetUser(ctx, p.IdentityID)
	if err != nil {
		reply.Result = providerFailure(err)
		return reply
	}

	profile := claims.Decode(rec.Claims)
	reply.Email = rec.Email
	reply.Disabled = rec.Disabled
	reply.IsDeleted = profile.IsDeleted
	reply.Result = OK("")
	return reply
}

// searchUsers pages the provider listing once per command, filters in
// memory, and hands the provider's cursor back to the caller verbatim for
// the next page.
func (w *Worker) searchUsers(ctx context.Context, p SearchUsersPayload) SearchReply {
	reply := SearchReply{Users: []UserSummary{}}

	pageSize := p.PageSize
	if pageSize <= 0 || pageSize > w.searchPageSize {
		pageSize = w.searchPageSize
	}

	if err := w.limiter.Wait(ctx); err != nil {
		reply.Result = Fail(CodeInternal, "search cancelled")
		return reply
	}

	page, err := w.provider.ListUsers(ctx, p.PageToken, pageSize)
	if err != nil {
		reply.Result = providerFailure(err)
		return reply
	}

	query := strings.ToLower(strings.TrimSpace(p.Query))
	for _, u := range page.Users {
		if query != "" &&
			!strings.Contains(strings.ToLower(u.Email), query) &&
			!strings.Contains(strings.ToLower(u.DisplayName), query) {
			continue
		}
		profile := claims.Decode(u.Claims)
		reply.Users = append(reply.Users, UserSummary{
			IdentityID:  u.ID,
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Roles:       profile.Roles,
			Disabled:    u.Disabled,
		})
	}
	reply.NextPageToken = page.NextPageToken
	reply.Result = OK("")
	return reply
}

// =============================================================================
// Shared command plumbing
// =============================================================================

// parseCommand decodes and validates a command payload. A payload that fails
// here has no usable command ID, so no reply is possible; the task is
// archived for inspection.
func parseCommand[T any](w *Worker, task *asynq.Task) (T, error) {
	p, err := parsePayload[T](task)
	if err != nil {
		w.log.Error("malformed command payload", "task", task.Type(), "error", err.Error())
		var zero T
		return zero, fmt.Errorf("parse %s: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	if err := w.val.Struct(p); err != nil {
		w.log.Error("invalid command payload", "task", task.Type(), "error", err.Error())
		var zero T
		return zero, fmt.Errorf("validate %s: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return p, nil
}

// respond delivers the reply to the result writer (for queue tooling) and
// the reply store (for the caller). A reply store failure is returned to the
// queue: redelivering the command re-runs an idempotent operation, which is
// cheaper than a caller waiting on a reply that never arrives.
func (w *Worker) respond(ctx context.Context, task *asynq.Task, commandID string, reply interface{}) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("marshal reply for %s: %v: %w", task.Type(), err, asynq.SkipRetry)
	}

	if rw := task.ResultWriter(); rw != nil {
		if _, err := rw.Write(data); err != nil {
			w.log.Warn("result writer failed", "task", task.Type(), "error", err.Error())
		}
	}

	if w.replies != nil {
		if err := w.replies.Put(ctx, commandID, data); err != nil {
			w.log.Error("reply store write failed", "task", task.Type(), "command_id", commandID, "error", err.Error())
			return err
		}
	}
	return nil
}

// providerFailure maps a provider error onto the command error-code
// vocabulary.
func providerFailure(err error) Result {
	switch apperr.GetKind(err) {
	case apperr.KindNotFound:
		return Fail(CodeUserNotFound, "user not found")
	case apperr.KindUnavailable:
		return Fail(CodeProviderUnavailable, "identity provider unavailable")
	default:
		return Fail(CodeInternal, err.Error())
	}
}
