package sync

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Event task types. Events are fire-and-forget: a handler error triggers
// redelivery by the queue.
const (
	TaskUserCreated         = "identity.user.created"
	TaskUserDeleted         = "identity.user.deleted"
	TaskBusinessActivated   = "business.activated"
	TaskBusinessDeactivated = "business.deactivated"
	TaskRoleChanged         = "identity.roles.changed"
)

// Command task types. Commands reply through the reply store; handlers
// acknowledge even on business-level failure.
const (
	TaskCmdEnableUser    = "identity.cmd.enable_user"
	TaskCmdDisableUser   = "identity.cmd.disable_user"
	TaskCmdDeleteUser    = "identity.cmd.delete_user"
	TaskCmdUpdateUser    = "identity.cmd.update_user"
	TaskCmdAddRole       = "identity.cmd.add_role"
	TaskCmdRemoveRole    = "identity.cmd.remove_role"
	TaskCmdGetUserRoles  = "identity.cmd.get_roles"
	TaskCmdGetUserStatus = "identity.cmd.get_status"
	TaskCmdSearchUsers   = "identity.cmd.search_users"
)

// =============================================================================
// Event payloads
// =============================================================================

type UserCreatedPayload struct {
	IdentityID   string    `json:"identityId" validate:"required"`
	SystemUserID string    `json:"systemUserId" validate:"required"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	OccurredAt   time.Time `json:"occurredAt"`
}

type UserDeletedPayload struct {
	IdentityID string    `json:"identityId" validate:"required"`
	DeletedBy  string    `json:"deletedBy"`
	OccurredAt time.Time `json:"occurredAt"`
}

type BusinessActivatedPayload struct {
	IdentityID string    `json:"identityId" validate:"required"`
	BusinessID string    `json:"businessId"`
	OccurredAt time.Time `json:"occurredAt"`
}

type BusinessDeactivatedPayload struct {
	IdentityID string    `json:"identityId" validate:"required"`
	BusinessID string    `json:"businessId"`
	OccurredAt time.Time `json:"occurredAt"`
}

type RoleChangedPayload struct {
	IdentityID  string    `json:"identityId" validate:"required"`
	Roles       []string  `json:"roles"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	ChangedBy   string    `json:"changedBy"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// =============================================================================
// Command payloads
// =============================================================================

type EnableUserPayload struct {
	CommandID  string `json:"commandId" validate:"required"`
	IdentityID string `json:"identityId" validate:"required"`
}

type DisableUserPayload struct {
	CommandID  string `json:"commandId" validate:"required"`
	IdentityID string `json:"identityId" validate:"required"`
}

type DeleteUserPayload struct {
	CommandID  string `json:"commandId" validate:"required"`
	IdentityID string `json:"identityId" validate:"required"`
}

type UpdateUserPayload struct {
	CommandID     string  `json:"commandId" validate:"required"`
	IdentityID    string  `json:"identityId" validate:"required"`
	Email         *string `json:"email,omitempty"`
	DisplayName   *string `json:"displayName,omitempty"`
	EmailVerified *bool   `json:"emailVerified,omitempty"`
}

type AddRolePayload struct {
	CommandID  string `json:"commandId" validate:"required"`
	IdentityID string `json:"identityId" validate:"required"`
	Role       string `json:"role" validate:"required"`
	Actor      string `json:"actor"`
}

type RemoveRolePayload struct {
	CommandID  string `json:"commandId" validate:"required"`
	IdentityID string `json:"identityId" validate:"required"`
	Role       string `json:"role" validate:"required"`
	Actor      string `json:"actor"`
}

type GetUserRolesPayload struct {
	CommandID  string `json:"commandId" validate:"required"`
	IdentityID string `json:"identityId" validate:"required"`
}

type GetUserStatusPayload struct {
	CommandID  string `json:"commandId" validate:"required"`
	IdentityID string `json:"identityId" validate:"required"`
}

type SearchUsersPayload struct {
	CommandID string `json:"commandId" validate:"required"`
	Query     string `json:"query"`
	PageSize  int    `json:"pageSize"`
	PageToken string `json:"pageToken"`
}

// NewTask marshals any payload into an asynq task of the given type.
func NewTask(taskType string, payload interface{}) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}

func parsePayload[T any](task *asynq.Task) (T, error) {
	var payload T
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		var zero T
		return zero, err
	}
	return payload, nil
}
