package models

// Response represents a generic API response structure.
type Response struct {
	Success      int         `json:"success"`
	ErrorCode    string      `json:"error_code,omitempty"`
	ErrorDetails string      `json:"error_details,omitempty"`
	Data         interface{} `json:"data,omitempty"`
}

// SyncResult is returned by every single-entity sync operation. Actionable
// failures are carried here, not only logged.
type SyncResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	RemoteID string `json:"remoteId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BulkSyncResult aggregates a batch of per-entity sync outcomes.
type BulkSyncResult struct {
	SyncedCount int      `json:"syncedCount"`
	FailedCount int      `json:"failedCount"`
	Errors      []string `json:"errors,omitempty"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}

type UserResponse struct {
	User User `json:"user"`
}

type GroupsResponse struct {
	Groups []Group `json:"groups"`
}

type GroupResponse struct {
	Group Group `json:"group"`
}

type RolesResponse struct {
	Roles []Role `json:"roles"`
}

type RoleResponse struct {
	Role Role `json:"role"`
}

// UserRequest is the payload for creating or updating a user.
type UserRequest struct {
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	FirstName     *string `json:"firstName"`
	LastName      *string `json:"lastName"`
	FormattedName *string `json:"formattedName"`
	Title         *string `json:"title"`
	Active        *bool   `json:"active"`
}

// GroupRequest is the payload for creating or updating a group.
type GroupRequest struct {
	DisplayName string  `json:"displayName"`
	Description *string `json:"description"`
	MemberIDs   []int64 `json:"memberIds"`
}

// RoleRequest is the payload for creating or updating a role.
type RoleRequest struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	IdPRoleValue *string `json:"idpRoleValue"`
	Active       *bool   `json:"active"`
	IsDefault    *bool   `json:"isDefault"`
}
