package sync

import (
	"context"
	"fmt"

	"dinescout_backend/internal/audit"
	"dinescout_backend/internal/claims"
	"dinescout_backend/platform/apperr"

	"github.com/hibiken/asynq"
)

// Event consumers. Each follows fetch -> decode -> merge -> write -> revoke.
// A non-nil return triggers redelivery by the queue, so only failures that a
// retry can fix are returned plainly; terminal conditions are either
// acknowledged (nil) or archived (asynq.SkipRetry).

func (w *Worker) handleUserCreated(ctx context.Context, task *asynq.Task) error {
	p, err := parseEvent[UserCreatedPayload](w, task)
	if err != nil {
		return err
	}

	intent := claims.SeedIntent(p.Email, p.DisplayName, p.SystemUserID, p.OccurredAt)

	// Seeding is the one consumer where a missing provider account is a
	// retryable failure: the account is created by the same upstream flow
	// that published this event, so NotFound only means we won the race.
	if err := w.applyIntent(ctx, p.IdentityID, intent); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			w.log.Warn("seed target not yet visible at provider", "identity_id", p.IdentityID)
			return err
		}
		return w.eventFailure(TaskUserCreated, p.IdentityID, err)
	}
	return nil
}

func (w *Worker) handleUserDeleted(ctx context.Context, task *asynq.Task) error {
	p, err := parseEvent[UserDeletedPayload](w, task)
	if err != nil {
		return err
	}

	actor := p.DeletedBy
	if actor == "" {
		actor = claims.SystemActor
	}

	rec, err := w.provider.GetUser(ctx, p.IdentityID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			w.log.Info("deletion target missing at provider, acknowledging", "identity_id", p.IdentityID)
			return nil
		}
		return w.eventFailure(TaskUserDeleted, p.IdentityID, err)
	}

	profile := claims.Decode(rec.Claims)
	profile.IdentityID = p.IdentityID
	intent := claims.TombstoneIntent(actor, p.OccurredAt)
	next, changed := claims.Merge(profile, intent)
	w.recordAudit(ctx, next, intent, changed)

	if changed {
		if err := w.provider.SetClaims(ctx, p.IdentityID, claims.Encode(next)); err != nil {
			return w.eventFailure(TaskUserDeleted, p.IdentityID, err)
		}
		w.log.ClaimsWrite(p.IdentityID, string(claims.IntentTombstone), next.Roles)
	} else {
		w.log.ClaimsNoop(p.IdentityID, string(claims.IntentTombstone))
	}

	// Disabling is re-applied even on a redelivered no-op so a crash between
	// the claims write and this call still converges.
	if err := w.provider.SetDisabled(ctx, p.IdentityID, true); err != nil {
		return w.eventFailure(TaskUserDeleted, p.IdentityID, err)
	}

	w.revokeBestEffort(ctx, p.IdentityID)
	return nil
}

func (w *Worker) handleBusinessActivated(ctx context.Context, task *asynq.Task) error {
	p, err := parseEvent[BusinessActivatedPayload](w, task)
	if err != nil {
		return err
	}

	intent := claims.AddRoleIntent(claims.RoleBusiness, claims.SystemActor, p.OccurredAt)
	return w.applyNonCreating(ctx, TaskBusinessActivated, p.IdentityID, intent)
}

func (w *Worker) handleBusinessDeactivated(ctx context.Context, task *asynq.Task) error {
	p, err := parseEvent[BusinessDeactivatedPayload](w, task)
	if err != nil {
		return err
	}

	intent := claims.RemoveRoleIntent(claims.RoleBusiness, claims.SystemActor, p.OccurredAt)
	return w.applyNonCreating(ctx, TaskBusinessDeactivated, p.IdentityID, intent)
}

func (w *Worker) handleRoleChanged(ctx context.Context, task *asynq.Task) error {
	p, err := parseEvent[RoleChangedPayload](w, task)
	if err != nil {
		return err
	}

	// The enrichment lookup is mandatory on this authoritative path. Any
	// failure, including NotFound, fails the whole event so it is retried
	// rather than written without a systemUserId.
	enriched, err := w.lookup.GetUserRoles(ctx, p.IdentityID)
	if err != nil {
		w.log.ConsumerError(TaskRoleChanged, p.IdentityID, err)
		return fmt.Errorf("role lookup: %w", err)
	}

	actor := p.ChangedBy
	if actor == "" {
		actor = claims.SystemActor
	}

	// No version check guards concurrent ReplaceAll events for the same
	// identity; with two interleaved authoritative changes the last writer
	// wins. Known gap, accepted until the provider offers a claims CAS.
	intent := claims.ReplaceAllIntent(p.Roles, p.Email, p.DisplayName, enriched.SystemUserID, actor, p.OccurredAt)
	return w.applyNonCreating(ctx, TaskRoleChanged, p.IdentityID, intent)
}

// =============================================================================
// Shared event plumbing
// =============================================================================

// parseEvent decodes and validates an event payload. Malformed payloads are
// archived instead of retried: they will never parse better. A free function
// because methods cannot carry type parameters.
func parseEvent[T any](w *Worker, task *asynq.Task) (T, error) {
	p, err := parsePayload[T](task)
	if err != nil {
		w.log.Error("malformed event payload", "task", task.Type(), "error", err.Error())
		var zero T
		return zero, fmt.Errorf("parse %s: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	if err := w.val.Struct(p); err != nil {
		w.log.Error("invalid event payload", "task", task.Type(), "error", err.Error())
		var zero T
		return zero, fmt.Errorf("validate %s: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	return p, nil
}

// applyNonCreating runs the read-merge-write cycle for events whose target
// may legitimately not exist at the provider yet. NotFound is acknowledged
// as terminal: the account never synced, and retrying cannot create it.
func (w *Worker) applyNonCreating(ctx context.Context, taskType, identityID string, intent claims.Intent) error {
	if err := w.applyIntent(ctx, identityID, intent); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			w.log.Info("event target missing at provider, acknowledging",
				"task", taskType, "identity_id", identityID)
			return nil
		}
		return w.eventFailure(taskType, identityID, err)
	}
	return nil
}

// applyIntent is the read-merge-write core shared by event consumers: fetch
// the current record, merge the intent, write only when something changed,
// then revoke tokens best-effort. No lock is held across the provider calls;
// convergence relies on intents being idempotent under redelivery.
func (w *Worker) applyIntent(ctx context.Context, identityID string, intent claims.Intent) error {
	rec, err := w.provider.GetUser(ctx, identityID)
	if err != nil {
		return err
	}

	profile := claims.Decode(rec.Claims)
	profile.IdentityID = identityID

	next, changed := claims.Merge(profile, intent)
	w.recordAudit(ctx, next, intent, changed)

	if !changed {
		w.log.ClaimsNoop(identityID, string(intent.Kind))
		return nil
	}

	if err := w.provider.SetClaims(ctx, identityID, claims.Encode(next)); err != nil {
		return err
	}
	w.log.ClaimsWrite(identityID, string(intent.Kind), next.Roles)

	w.revokeBestEffort(ctx, identityID)
	return nil
}

// revokeBestEffort invalidates refresh tokens in an isolated failure domain.
// Claims correctness outranks immediate token invalidation, so a failure
// here is logged and swallowed; stale tokens age out on their own.
func (w *Worker) revokeBestEffort(ctx context.Context, identityID string) {
	if err := w.provider.RevokeTokens(ctx, identityID); err != nil {
		w.log.RevocationFailed(identityID, err)
	}
}

// recordAudit writes the audit trail entry for a merge outcome. Best-effort.
// OccurredAt comes from the intent, not the profile, so no-op entries still
// record when the skipped intent happened.
func (w *Worker) recordAudit(ctx context.Context, profile claims.RoleProfile, intent claims.Intent, changed bool) {
	if w.audit == nil {
		return
	}
	entry := audit.Entry{
		IdentityID: profile.IdentityID,
		Intent:     string(intent.Kind),
		Changed:    changed,
		Roles:      profile.Roles,
		Actor:      intent.Actor,
		OccurredAt: intent.At,
	}
	if err := w.audit.Record(ctx, entry); err != nil {
		w.log.AuditWriteFailed(profile.IdentityID, string(intent.Kind), err)
	}
}

// eventFailure classifies a consumer error for the queue: retryable errors
// propagate for redelivery, everything else is archived.
func (w *Worker) eventFailure(taskType, identityID string, err error) error {
	w.log.ConsumerError(taskType, identityID, err)
	if !apperr.Retryable(err) {
		return fmt.Errorf("%s: %v: %w", taskType, err, asynq.SkipRetry)
	}
	return err
}
