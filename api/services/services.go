package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/dirsync/scim-provisioner/internal/appconfig"
	"github.com/dirsync/scim-provisioner/models"
)

// Store is the persistence surface the service layer depends on,
// implemented by db.SyncDB.
type Store interface {
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, userUUID string) (*models.User, error)
	CreateUser(ctx context.Context, req models.UserRequest) (*models.User, error)
	UpdateUser(ctx context.Context, userUUID string, req models.UserRequest) (*models.User, error)
	SetUserActive(ctx context.Context, userUUID string, active bool) (*models.User, error)
	DeleteUser(ctx context.Context, userUUID string) error

	GetGroups(ctx context.Context) ([]models.Group, error)
	GetGroup(ctx context.Context, groupUUID string) (*models.Group, error)
	CreateGroup(ctx context.Context, req models.GroupRequest) (*models.Group, error)
	UpdateGroup(ctx context.Context, groupUUID string, req models.GroupRequest) (*models.Group, error)
	DeleteGroup(ctx context.Context, groupUUID string) error
	AddGroupMember(ctx context.Context, groupUUID, userUUID string) error
	RemoveGroupMember(ctx context.Context, groupUUID, userUUID string) error

	GetRoles(ctx context.Context) ([]models.Role, error)
	GetRole(ctx context.Context, roleUUID string) (*models.Role, error)
	CreateRole(ctx context.Context, req models.RoleRequest) (*models.Role, error)
	UpdateRole(ctx context.Context, roleUUID string, req models.RoleRequest) (*models.Role, error)
	DeleteRole(ctx context.Context, roleUUID string) error
	AssignRole(ctx context.Context, roleUUID, userUUID string) error
	UnassignRole(ctx context.Context, roleUUID, userUUID string) error
}

// SyncEngine is the provisioning surface the service layer depends on,
// implemented by syncer.Engine.
type SyncEngine interface {
	SyncUser(ctx context.Context, userUUID string) (*models.SyncResult, error)
	DeactivateUser(ctx context.Context, userUUID string) (*models.SyncResult, error)
	SyncGroup(ctx context.Context, groupUUID string) (*models.SyncResult, error)
	BulkSyncPendingUsers(ctx context.Context) (*models.BulkSyncResult, error)
	BulkSyncPendingGroups(ctx context.Context) (*models.BulkSyncResult, error)
}

// Service contains all shared dependencies for handlers.
type Service struct {
	Config      *appconfig.Config
	DB          Store
	Engine      SyncEngine
	EmailClient AWSEmailClient
}

// AWSEmailClient is the SES surface used for failure notifications.
type AWSEmailClient interface {
	SendEmail(ctx context.Context, input *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}
