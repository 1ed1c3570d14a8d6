package syncer

import (
	"context"
	"testing"

	"github.com/dirsync/scim-provisioner/internal/scim"
	"github.com/dirsync/scim-provisioner/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func remoteGroup(id, displayName, externalID string, memberIDs ...string) *models.SCIMGroupResource {
	members := make([]models.SCIMGroupMember, 0, len(memberIDs))
	for _, m := range memberIDs {
		members = append(members, models.SCIMGroupMember{Value: m})
	}
	return &models.SCIMGroupResource{
		ID:          id,
		DisplayName: displayName,
		ExternalID:  externalID,
		Members:     members,
	}
}

func localGroup(uuid, displayName, remoteID string, members ...models.User) *models.Group {
	g := &models.Group{
		UUID:        uuid,
		DisplayName: displayName,
		SyncStatus:  models.SyncPending,
		Members:     members,
	}
	if remoteID != "" {
		g.RemoteID = strPtr(remoteID)
		g.SyncStatus = models.SyncSynced
	}
	return g
}

func TestDiffMembers(t *testing.T) {
	toAdd, toRemove, unchanged := diffMembers([]string{"B", "C", "D"}, []string{"A", "B", "C"})
	assert.Equal(t, []string{"A"}, toAdd)
	assert.Equal(t, []string{"D"}, toRemove)
	assert.Equal(t, []string{"B", "C"}, unchanged)
}

func TestDiffMembersEmptySets(t *testing.T) {
	toAdd, toRemove, unchanged := diffMembers(nil, nil)
	assert.Empty(t, toAdd)
	assert.Empty(t, toRemove)
	assert.Empty(t, unchanged)

	toAdd, toRemove, _ = diffMembers(nil, []string{"A"})
	assert.Equal(t, []string{"A"}, toAdd)
	assert.Empty(t, toRemove)
}

func TestSyncGroupNoOpIssuesNoWrites(t *testing.T) {
	store := new(MockStore)
	dir := new(MockDirectory)
	engine := newTestEngine(store, dir, nil)

	members := []models.User{
		*syncedUser("u-1", "jane", "jane@example.com", "remote-1"),
		*syncedUser("u-2", "joe", "joe@example.com", "remote-2"),
	}
	store.On("GetGroup", mock.Anything, "g-1").Return(localGroup("g-1", "Engineering", "grp-1", members...), nil)
	dir.On("GetGroup", mock.Anything, "grp-1").Return(remoteGroup("grp-1", "Engineering", "g-1", "remote-1", "remote-2"), nil)
	store.On("UpdateGroupSyncState", mock.Anything, "g-1", strPtr("grp-1"), models.SyncSynced, (*string)(nil)).Return(nil)

	res, err := engine.SyncGroup(context.Background(), "g-1")
	assert.NoError(t, err)
	assert.True(t, res.Success)

	// Already converged: no membership or metadata write of any kind.
	dir.AssertNotCalled(t, "ReplaceGroupMembers", mock.Anything, mock.Anything, mock.Anything)
	dir.AssertNotCalled(t, "AddGroupMember", mock.Anything, mock.Anything, mock.Anything)
	dir.AssertNotCalled(t, "RemoveGroupMember", mock.Anything, mock.Anything, mock.Anything)
	dir.AssertNotCalled(t, "PatchGroupMetadata", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestSyncGroupCreatesAndPopulates(t *testing.T) {
	store := new(MockStore)
	dir := new(MockDirectory)
	notifier := &recordingNotifier{}
	engine := newTestEngine(store, dir, notifier)

	member := *syncedUser("u-1", "jane", "jane@example.com", "remote-1")
	store.On("GetGroup", mock.Anything, "g-1").Return(localGroup("g-1", "Engineering", "", member), nil)
	dir.On("CreateGroup", mock.Anything, mock.MatchedBy(func(g models.SCIMGroup) bool {
		return g.DisplayName == "Engineering" && g.ExternalID == "g-1"
	})).Return(remoteGroup("grp-1", "Engineering", "g-1"), nil)
	dir.On("GetGroup", mock.Anything, "grp-1").Return(remoteGroup("grp-1", "Engineering", "g-1"), nil)
	dir.On("ReplaceGroupMembers", mock.Anything, "grp-1", []string{"remote-1"}).Return(nil)
	store.On("UpdateGroupSyncState", mock.Anything, "g-1", strPtr("grp-1"), models.SyncSynced, (*string)(nil)).Return(nil)

	res, err := engine.SyncGroup(context.Background(), "g-1")
	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "grp-1", res.RemoteID)
	assert.Contains(t, res.Message, "created")

	assert.Len(t, notifier.events, 1)
	assert.Equal(t, models.ActionCreate, notifier.events[0].Action)
	dir.AssertExpectations(t)
}

func TestSyncGroupSyncsMembersFirst(t *testing.T) {
	store := new(MockStore)
	dir := new(MockDirectory)
	engine := newTestEngine(store, dir, nil)

	already := *syncedUser("u-1", "jane", "jane@example.com", "remote-1")
	fresh := *pendingUser("u-2", "joe", "joe@example.com")
	store.On("GetGroup", mock.Anything, "g-1").Return(localGroup("g-1", "Engineering", "grp-1", already, fresh), nil)
	store.On("GetUser", mock.Anything, "u-2").Return(&fresh, nil)
	dir.On("CreateUser", mock.Anything, mock.Anything).Return(&models.SCIMUserResource{ID: "remote-2"}, nil)
	store.On("UpdateUserSyncState", mock.Anything, "u-2", strPtr("remote-2"), models.SyncSynced, (*string)(nil)).Return(nil)
	dir.On("GetGroup", mock.Anything, "grp-1").Return(remoteGroup("grp-1", "Engineering", "g-1", "remote-1"), nil)
	dir.On("ReplaceGroupMembers", mock.Anything, "grp-1", []string{"remote-1", "remote-2"}).Return(nil)
	store.On("UpdateGroupSyncState", mock.Anything, "g-1", strPtr("grp-1"), models.SyncSynced, (*string)(nil)).Return(nil)

	res, err := engine.SyncGroup(context.Background(), "g-1")
	assert.NoError(t, err)
	assert.True(t, res.Success)
	dir.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestSyncGroupSkipsUnsyncableMembers(t *testing.T) {
	store := new(MockStore)
	dir := new(MockDirectory)
	engine := newTestEngine(store, dir, nil)

	broken := *pendingUser("u-1", "broken", "broken@example.com")
	store.On("GetGroup", mock.Anything, "g-1").Return(localGroup("g-1", "Engineering", "", broken), nil)
	store.On("GetUser", mock.Anything, "u-1").Return(&broken, nil)
	dir.On("CreateUser", mock.Anything, mock.Anything).Return(nil, &scim.APIError{Kind: scim.KindMalformed, Status: 400, Detail: "bad payload"})
	store.On("UpdateUserSyncState", mock.Anything, "u-1", (*string)(nil), models.SyncFailed, mock.Anything).Return(nil)
	dir.On("CreateGroup", mock.Anything, mock.Anything).Return(remoteGroup("grp-1", "Engineering", "g-1"), nil)
	dir.On("GetGroup", mock.Anything, "grp-1").Return(remoteGroup("grp-1", "Engineering", "g-1"), nil)
	store.On("UpdateGroupSyncState", mock.Anything, "g-1", strPtr("grp-1"), models.SyncWarning, mock.Anything).Return(nil)

	res, err := engine.SyncGroup(context.Background(), "g-1")
	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "broken")

	// The unsynced member is never transmitted.
	dir.AssertNotCalled(t, "ReplaceGroupMembers", mock.Anything, mock.Anything, mock.Anything)
	dir.AssertNotCalled(t, "AddGroupMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncGroupRetriesThenFallsBack(t *testing.T) {
	store := new(MockStore)
	dir := new(MockDirectory)
	engine := newTestEngine(store, dir, nil)

	member := *syncedUser("u-1", "jane", "jane@example.com", "remote-1")
	store.On("GetGroup", mock.Anything, "g-1").Return(localGroup("g-1", "Engineering", "grp-1", member), nil)
	dir.On("GetGroup", mock.Anything, "grp-1").Return(remoteGroup("grp-1", "Engineering", "g-1", "remote-9"), nil)
	dir.On("ReplaceGroupMembers", mock.Anything, "grp-1", []string{"remote-1"}).Return(conflictErr())
	dir.On("RemoveGroupMember", mock.Anything, "grp-1", "remote-9").Return(nil)
	dir.On("AddGroupMember", mock.Anything, "grp-1", "remote-1").Return(nil)
	store.On("UpdateGroupSyncState", mock.Anything, "g-1", strPtr("grp-1"), models.SyncSynced, (*string)(nil)).Return(nil)

	res, err := engine.SyncGroup(context.Background(), "g-1")
	assert.NoError(t, err)
	assert.True(t, res.Success)

	// Exactly the configured number of atomic attempts, then per-member ops.
	dir.AssertNumberOfCalls(t, "ReplaceGroupMembers", 3)
	dir.AssertNumberOfCalls(t, "RemoveGroupMember", 1)
	dir.AssertNumberOfCalls(t, "AddGroupMember", 1)
}

func TestSyncGroupFallbackAggregatesErrors(t *testing.T) {
	store := new(MockStore)
	dir := new(MockDirectory)
	engine := newTestEngine(store, dir, nil)

	members := []models.User{
		*syncedUser("u-1", "jane", "jane@example.com", "remote-1"),
		*syncedUser("u-2", "joe", "joe@example.com", "remote-2"),
	}
	store.On("GetGroup", mock.Anything, "g-1").Return(localGroup("g-1", "Engineering", "grp-1", members...), nil)
	dir.On("GetGroup", mock.Anything, "grp-1").Return(remoteGroup("grp-1", "Engineering", "g-1"), nil)
	dir.On("ReplaceGroupMembers", mock.Anything, "grp-1", mock.Anything).Return(&scim.APIError{Kind: scim.KindMalformed, Status: 400, Detail: "replace unsupported"})
	dir.On("AddGroupMember", mock.Anything, "grp-1", "remote-1").Return(&scim.APIError{Kind: scim.KindTransient, Status: 502})
	dir.On("AddGroupMember", mock.Anything, "grp-1", "remote-2").Return(nil)
	store.On("UpdateGroupSyncState", mock.Anything, "g-1", strPtr("grp-1"), models.SyncFailed, mock.Anything).Return(nil)

	res, err := engine.SyncGroup(context.Background(), "g-1")
	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "remote-1")

	// One member failing does not abort the other's add.
	dir.AssertNumberOfCalls(t, "AddGroupMember", 2)
	// A rejection that is not conflict or transient goes straight to fallback.
	dir.AssertNumberOfCalls(t, "ReplaceGroupMembers", 1)
}

func TestSyncGroupPatchesDriftedMetadata(t *testing.T) {
	store := new(MockStore)
	dir := new(MockDirectory)
	engine := newTestEngine(store, dir, nil)

	store.On("GetGroup", mock.Anything, "g-1").Return(localGroup("g-1", "Platform Engineering", "grp-1"), nil)
	dir.On("GetGroup", mock.Anything, "grp-1").Return(remoteGroup("grp-1", "Engineering", "g-1"), nil)
	dir.On("PatchGroupMetadata", mock.Anything, "grp-1", "Platform Engineering", "").Return(nil)
	store.On("UpdateGroupSyncState", mock.Anything, "g-1", strPtr("grp-1"), models.SyncSynced, (*string)(nil)).Return(nil)

	res, err := engine.SyncGroup(context.Background(), "g-1")
	assert.NoError(t, err)
	assert.True(t, res.Success)
	dir.AssertExpectations(t)
	dir.AssertNotCalled(t, "ReplaceGroupMembers", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncGroupMetadataFailureHasNoFallback(t *testing.T) {
	store := new(MockStore)
	dir := new(MockDirectory)
	engine := newTestEngine(store, dir, nil)

	store.On("GetGroup", mock.Anything, "g-1").Return(localGroup("g-1", "Platform Engineering", "grp-1"), nil)
	dir.On("GetGroup", mock.Anything, "grp-1").Return(remoteGroup("grp-1", "Engineering", "g-1"), nil)
	dir.On("PatchGroupMetadata", mock.Anything, "grp-1", "Platform Engineering", "").Return(&scim.APIError{Kind: scim.KindTransient, Status: 503})
	store.On("UpdateGroupSyncState", mock.Anything, "g-1", strPtr("grp-1"), models.SyncFailed, mock.Anything).Return(nil)

	res, err := engine.SyncGroup(context.Background(), "g-1")
	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "metadata")

	// Metadata is fail-and-report only; no per-field retry path exists.
	dir.AssertNumberOfCalls(t, "PatchGroupMetadata", 1)
}
