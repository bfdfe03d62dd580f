package sync

// Error codes returned in command replies. Benign codes describe a no-op or
// already-satisfied condition, not a failure of the sync engine.
const (
	CodeUserNotFound        = "UserNotFound"
	CodeUserAlreadyEnabled  = "UserAlreadyEnabled"
	CodeUserAlreadyDisabled = "UserAlreadyDisabled"
	CodeRoleAlreadyExists   = "RoleAlreadyExists"
	CodeRoleNotFound        = "RoleNotFound"
	CodeUserDeleted         = "UserDeleted"
	CodeNoChanges           = "NoChanges"
	CodeInvalidPayload      = "InvalidPayload"
	CodeProviderUnavailable = "ProviderUnavailable"
	CodeInternal            = "InternalError"
)

// Result is the caller-visible outcome of a command. Commands never surface
// business-level conditions as handler errors: the dispatcher acknowledges
// the message and the caller reads this instead. Event consumers use plain
// error returns; keeping the two propagation policies in distinct types
// prevents them being swapped by accident.
type Result struct {
	IsSuccess bool   `json:"isSuccess"`
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// OK builds a successful result.
func OK(message string) Result {
	return Result{IsSuccess: true, Message: message}
}

// Fail builds a failed result with a machine-readable code.
func Fail(code, message string) Result {
	return Result{IsSuccess: false, ErrorCode: code, Message: message}
}

// =============================================================================
// Typed reply payloads
// =============================================================================

// StatusReply answers GetUserStatus.
type StatusReply struct {
	Result
	IdentityID string `json:"identityId"`
	Email      string `json:"email,omitempty"`
	Disabled   bool   `json:"disabled"`
	IsDeleted  bool   `json:"isDeleted"`
}

// RolesReply answers GetUserRoles.
type RolesReply struct {
	Result
	IdentityID string   `json:"identityId"`
	Roles      []string `json:"roles"`
}

// DeleteReply answers DeleteUser, echoing the account email for audit.
type DeleteReply struct {
	Result
	IdentityID string `json:"identityId"`
	Email      string `json:"email,omitempty"`
}

// UserSummary is one row of a search result.
type UserSummary struct {
	IdentityID  string   `json:"identityId"`
	Email       string   `json:"email,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	Roles       []string `json:"roles"`
	Disabled    bool     `json:"disabled"`
}

// SearchReply answers SearchUsers. NextPageToken is the provider's cursor
// passed through verbatim; clients feed it back to continue paging.
type SearchReply struct {
	Result
	Users         []UserSummary `json:"users"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}
