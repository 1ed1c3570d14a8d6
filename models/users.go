package models

import "time"

// SyncStatus tracks where an entity is in its remote provisioning lifecycle.
// Entities are created pending, move to synced/failed/warning after a sync
// attempt, and return to pending only through an explicit local mutation.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
	SyncWarning SyncStatus = "warning"
)

// User represents a user in the local system of record.
type User struct {
	ID            int64      `json:"id"`
	UUID          string     `json:"uuid"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FirstName     *string    `json:"firstName,omitempty"`
	LastName      *string    `json:"lastName,omitempty"`
	FormattedName *string    `json:"formattedName,omitempty"`
	Title         *string    `json:"title,omitempty"`
	Active        bool       `json:"active"`
	ExternalID    *string    `json:"externalId,omitempty"`
	RemoteID      *string    `json:"remoteId,omitempty"`
	LastSynced    *time.Time `json:"lastSynced,omitempty"`
	SyncStatus    SyncStatus `json:"syncStatus"`
	SyncError     *string    `json:"syncError,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// DisplayName returns the name sent to the remote directory for this user.
func (u *User) DisplayName() string {
	if u.FormattedName != nil && *u.FormattedName != "" {
		return *u.FormattedName
	}
	name := ""
	if u.FirstName != nil {
		name = *u.FirstName
	}
	if u.LastName != nil {
		if name != "" {
			name += " "
		}
		name += *u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

// Group represents a group in the local system of record. Members hold local
// user records; the remote membership list is derived from their remote
// linkage at sync time, never stored.
type Group struct {
	ID          int64      `json:"id"`
	UUID        string     `json:"uuid"`
	DisplayName string     `json:"displayName"`
	Description *string    `json:"description,omitempty"`
	ExternalID  *string    `json:"externalId,omitempty"`
	RemoteID    *string    `json:"remoteId,omitempty"`
	LastSynced  *time.Time `json:"lastSynced,omitempty"`
	SyncStatus  SyncStatus `json:"syncStatus"`
	SyncError   *string    `json:"syncError,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Members     []User     `json:"members"`
}

// Role represents a locally managed role that IdP role values map onto.
type Role struct {
	ID           int64     `json:"id"`
	UUID         string    `json:"uuid"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	IdPRoleValue *string   `json:"idpRoleValue,omitempty"`
	RemoteRoleID *string   `json:"remoteRoleId,omitempty"`
	Active       bool      `json:"active"`
	IsDefault    bool      `json:"isDefault"`
	UserCount    int       `json:"userCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
