package models

import "time"

// Event actions published on sync status transitions.
const (
	ActionCreate    = "create"
	ActionUpdate    = "update"
	ActionLink      = "link"
	ActionReconcile = "reconcile"
)

// SyncEvent records a sync status transition for downstream consumers.
type SyncEvent struct {
	EntityType string     `json:"entityType"`
	EntityID   string     `json:"entityId"`
	RemoteID   string     `json:"remoteId,omitempty"`
	Action     string     `json:"action"`
	Status     SyncStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}
