package syncer

import (
	"context"

	"github.com/dirsync/scim-provisioner/models"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

type MockDirectory struct {
	mock.Mock
}

// recordingNotifier captures published events for inspection.
type recordingNotifier struct {
	events []models.SyncEvent
}

func (n *recordingNotifier) Notify(event models.SyncEvent) {
	n.events = append(n.events, event)
}

func (m *MockStore) GetUser(ctx context.Context, userUUID string) (*models.User, error) {
	args := m.Called(ctx, userUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) GetGroup(ctx context.Context, groupUUID string) (*models.Group, error) {
	args := m.Called(ctx, groupUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockStore) PendingUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockStore) PendingGroups(ctx context.Context) ([]models.Group, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Group), args.Error(1)
}

func (m *MockStore) UpdateUserSyncState(ctx context.Context, userUUID string, remoteID *string, status models.SyncStatus, syncErr *string) error {
	args := m.Called(ctx, userUUID, remoteID, status, syncErr)
	return args.Error(0)
}

func (m *MockStore) UpdateGroupSyncState(ctx context.Context, groupUUID string, remoteID *string, status models.SyncStatus, syncErr *string) error {
	args := m.Called(ctx, groupUUID, remoteID, status, syncErr)
	return args.Error(0)
}

func (m *MockDirectory) CreateUser(ctx context.Context, user models.SCIMUser) (*models.SCIMUserResource, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SCIMUserResource), args.Error(1)
}

func (m *MockDirectory) GetUser(ctx context.Context, userID string) (*models.SCIMUserResource, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SCIMUserResource), args.Error(1)
}

func (m *MockDirectory) UpdateUser(ctx context.Context, userID string, user models.SCIMUser) (*models.SCIMUserResource, error) {
	args := m.Called(ctx, userID, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SCIMUserResource), args.Error(1)
}

func (m *MockDirectory) DeactivateUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockDirectory) FindUserByEmail(ctx context.Context, email string) (*models.SCIMUserResource, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SCIMUserResource), args.Error(1)
}

func (m *MockDirectory) CreateGroup(ctx context.Context, group models.SCIMGroup) (*models.SCIMGroupResource, error) {
	args := m.Called(ctx, group)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SCIMGroupResource), args.Error(1)
}

func (m *MockDirectory) GetGroup(ctx context.Context, groupID string) (*models.SCIMGroupResource, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SCIMGroupResource), args.Error(1)
}

func (m *MockDirectory) PatchGroupMetadata(ctx context.Context, groupID, displayName, externalID string) error {
	args := m.Called(ctx, groupID, displayName, externalID)
	return args.Error(0)
}

func (m *MockDirectory) ReplaceGroupMembers(ctx context.Context, groupID string, memberIDs []string) error {
	args := m.Called(ctx, groupID, memberIDs)
	return args.Error(0)
}

func (m *MockDirectory) AddGroupMember(ctx context.Context, groupID, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *MockDirectory) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}
