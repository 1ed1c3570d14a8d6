package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/dirsync/scim-provisioner/models"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

type MockSyncEngine struct {
	mock.Mock
}

type MockAWSEmailClient struct {
	mock.Mock
}

func (m *MockAWSEmailClient) SendEmail(ctx context.Context, input *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, input, opts)
	return args.Get(0).(*sesv2.SendEmailOutput), args.Error(1)
}

func (m *MockStore) GetUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockStore) GetUser(ctx context.Context, userUUID string) (*models.User, error) {
	args := m.Called(ctx, userUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) CreateUser(ctx context.Context, req models.UserRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) UpdateUser(ctx context.Context, userUUID string, req models.UserRequest) (*models.User, error) {
	args := m.Called(ctx, userUUID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) SetUserActive(ctx context.Context, userUUID string, active bool) (*models.User, error) {
	args := m.Called(ctx, userUUID, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) DeleteUser(ctx context.Context, userUUID string) error {
	args := m.Called(ctx, userUUID)
	return args.Error(0)
}

func (m *MockStore) GetGroups(ctx context.Context) ([]models.Group, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Group), args.Error(1)
}

func (m *MockStore) GetGroup(ctx context.Context, groupUUID string) (*models.Group, error) {
	args := m.Called(ctx, groupUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockStore) CreateGroup(ctx context.Context, req models.GroupRequest) (*models.Group, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockStore) UpdateGroup(ctx context.Context, groupUUID string, req models.GroupRequest) (*models.Group, error) {
	args := m.Called(ctx, groupUUID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockStore) DeleteGroup(ctx context.Context, groupUUID string) error {
	args := m.Called(ctx, groupUUID)
	return args.Error(0)
}

func (m *MockStore) AddGroupMember(ctx context.Context, groupUUID, userUUID string) error {
	args := m.Called(ctx, groupUUID, userUUID)
	return args.Error(0)
}

func (m *MockStore) RemoveGroupMember(ctx context.Context, groupUUID, userUUID string) error {
	args := m.Called(ctx, groupUUID, userUUID)
	return args.Error(0)
}

func (m *MockStore) GetRoles(ctx context.Context) ([]models.Role, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Role), args.Error(1)
}

func (m *MockStore) GetRole(ctx context.Context, roleUUID string) (*models.Role, error) {
	args := m.Called(ctx, roleUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockStore) CreateRole(ctx context.Context, req models.RoleRequest) (*models.Role, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockStore) UpdateRole(ctx context.Context, roleUUID string, req models.RoleRequest) (*models.Role, error) {
	args := m.Called(ctx, roleUUID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Role), args.Error(1)
}

func (m *MockStore) DeleteRole(ctx context.Context, roleUUID string) error {
	args := m.Called(ctx, roleUUID)
	return args.Error(0)
}

func (m *MockStore) AssignRole(ctx context.Context, roleUUID, userUUID string) error {
	args := m.Called(ctx, roleUUID, userUUID)
	return args.Error(0)
}

func (m *MockStore) UnassignRole(ctx context.Context, roleUUID, userUUID string) error {
	args := m.Called(ctx, roleUUID, userUUID)
	return args.Error(0)
}

func (m *MockSyncEngine) SyncUser(ctx context.Context, userUUID string) (*models.SyncResult, error) {
	args := m.Called(ctx, userUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncResult), args.Error(1)
}

func (m *MockSyncEngine) DeactivateUser(ctx context.Context, userUUID string) (*models.SyncResult, error) {
	args := m.Called(ctx, userUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncResult), args.Error(1)
}

func (m *MockSyncEngine) SyncGroup(ctx context.Context, groupUUID string) (*models.SyncResult, error) {
	args := m.Called(ctx, groupUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncResult), args.Error(1)
}

func (m *MockSyncEngine) BulkSyncPendingUsers(ctx context.Context) (*models.BulkSyncResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BulkSyncResult), args.Error(1)
}

func (m *MockSyncEngine) BulkSyncPendingGroups(ctx context.Context) (*models.BulkSyncResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BulkSyncResult), args.Error(1)
}
