package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/dirsync/scim-provisioner/internal/appconfig"
	"github.com/dirsync/scim-provisioner/models"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *MockStore, *MockSyncEngine, *MockAWSEmailClient) {
	store := new(MockStore)
	engine := new(MockSyncEngine)
	email := new(MockAWSEmailClient)
	svc := &Service{
		Config: &appconfig.Config{
			AWS: appconfig.AWSConfig{
				Email: appconfig.EmailConfig{
					ServiceAccountEmail: "noreply@example.com",
					HelpdeskEmail:       "helpdesk@example.com",
				},
			},
		},
		DB:          store,
		Engine:      engine,
		EmailClient: email,
	}
	return svc, store, engine, email
}

func strPtr(s string) *string { return &s }

func TestGetUserService(t *testing.T) {
	svc, store, _, _ := newTestService()

	user := &models.User{UUID: "u-1", Username: "jane", Email: "jane@example.com", SyncStatus: models.SyncPending}
	store.On("GetUser", mock.Anything, "u-1").Return(user, nil)

	req := mux.SetURLVars(httptest.NewRequest("GET", "/users/u-1", nil), map[string]string{"user-id": "u-1"})
	rr := httptest.NewRecorder()

	GetUserService(svc, rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "max-age=0", rr.Header().Get("Cache-Control"))

	var resp struct {
		Success int                  `json:"success"`
		Data    models.UserResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Success)
	assert.Equal(t, "jane", resp.Data.User.Username)
}

func TestGetUserServiceNotFound(t *testing.T) {
	svc, store, _, _ := newTestService()

	store.On("GetUser", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

	req := mux.SetURLVars(httptest.NewRequest("GET", "/users/missing", nil), map[string]string{"user-id": "missing"})
	rr := httptest.NewRecorder()

	GetUserService(svc, rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)

	var resp models.Response
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 0, resp.Success)
}

func TestCreateUserService(t *testing.T) {
	svc, store, _, _ := newTestService()

	created := &models.User{UUID: "u-new", Username: "joe", Email: "joe@example.com", SyncStatus: models.SyncPending}
	store.On("CreateUser", mock.Anything, mock.MatchedBy(func(req models.UserRequest) bool {
		return req.Username == "joe" && req.Email == "joe@example.com"
	})).Return(created, nil)

	body, err := json.Marshal(models.UserRequest{Username: "joe", Email: "joe@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/users", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	CreateUserService(svc, rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/users/u-new", rr.Header().Get("Location"))

	var resp struct {
		Success int                  `json:"success"`
		Data    models.UserResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, models.SyncPending, resp.Data.User.SyncStatus)
}

func TestCreateUserServiceRequiresUsernameAndEmail(t *testing.T) {
	svc, store, _, _ := newTestService()

	body, _ := json.Marshal(models.UserRequest{Username: "joe"})
	req := httptest.NewRequest("POST", "/users", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()

	CreateUserService(svc, rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	store.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestUpdateUserServiceResyncsProvisionedUser(t *testing.T) {
	svc, store, engine, _ := newTestService()

	updated := &models.User{UUID: "u-1", Username: "jane", Email: "jane@new.example.com", RemoteID: strPtr("remote-1"), SyncStatus: models.SyncPending}
	refreshed := &models.User{UUID: "u-1", Username: "jane", Email: "jane@new.example.com", RemoteID: strPtr("remote-1"), SyncStatus: models.SyncSynced}

	store.On("UpdateUser", mock.Anything, "u-1", mock.Anything).Return(updated, nil)
	engine.On("SyncUser", mock.Anything, "u-1").Return(&models.SyncResult{Success: true, RemoteID: "remote-1"}, nil)
	store.On("GetUser", mock.Anything, "u-1").Return(refreshed, nil)

	body, _ := json.Marshal(models.UserRequest{Username: "jane", Email: "jane@new.example.com"})
	req := mux.SetURLVars(httptest.NewRequest("PUT", "/users/u-1", bytes.NewBuffer(body)), map[string]string{"user-id": "u-1"})
	rr := httptest.NewRecorder()

	UpdateUserService(svc, rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	engine.AssertNumberOfCalls(t, "SyncUser", 1)

	var resp struct {
		Success int                  `json:"success"`
		Data    models.UserResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, models.SyncSynced, resp.Data.User.SyncStatus)
}

func TestUpdateUserServiceSkipsResyncWhenUnprovisioned(t *testing.T) {
	svc, store, engine, _ := newTestService()

	updated := &models.User{UUID: "u-1", Username: "jane", Email: "jane@example.com", SyncStatus: models.SyncPending}
	store.On("UpdateUser", mock.Anything, "u-1", mock.Anything).Return(updated, nil)

	body, _ := json.Marshal(models.UserRequest{Username: "jane", Email: "jane@example.com"})
	req := mux.SetURLVars(httptest.NewRequest("PUT", "/users/u-1", bytes.NewBuffer(body)), map[string]string{"user-id": "u-1"})
	rr := httptest.NewRecorder()

	UpdateUserService(svc, rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	engine.AssertNotCalled(t, "SyncUser", mock.Anything, mock.Anything)
}

func TestSyncUserService(t *testing.T) {
	svc, _, engine, _ := newTestService()

	engine.On("SyncUser", mock.Anything, "u-1").Return(&models.SyncResult{Success: true, Message: "user created remotely", RemoteID: "remote-1"}, nil)

	req := mux.SetURLVars(httptest.NewRequest("POST", "/users/u-1/sync", nil), map[string]string{"user-id": "u-1"})
	rr := httptest.NewRecorder()

	SyncUserService(svc, rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success int               `json:"success"`
		Data    models.SyncResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Data.Success)
	assert.Equal(t, "remote-1", resp.Data.RemoteID)
}

func TestDeactivateUserServiceIsLocalOnly(t *testing.T) {
	svc, store, engine, _ := newTestService()

	deactivated := &models.User{UUID: "u-1", Username: "jane", Active: false, RemoteID: strPtr("remote-1")}
	store.On("SetUserActive", mock.Anything, "u-1", false).Return(deactivated, nil)

	req := mux.SetURLVars(httptest.NewRequest("POST", "/users/u-1/deactivate", nil), map[string]string{"user-id": "u-1"})
	rr := httptest.NewRecorder()

	DeactivateUserService(svc, rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	engine.AssertNotCalled(t, "DeactivateUser", mock.Anything, mock.Anything)
}

func TestSyncDeactivateUserService(t *testing.T) {
	svc, store, engine, _ := newTestService()

	deactivated := &models.User{UUID: "u-1", Username: "jane", Active: false, RemoteID: strPtr("remote-1")}
	store.On("SetUserActive", mock.Anything, "u-1", false).Return(deactivated, nil)
	engine.On("DeactivateUser", mock.Anything, "u-1").Return(&models.SyncResult{Success: true, Message: "user deactivated remotely"}, nil)

	req := mux.SetURLVars(httptest.NewRequest("POST", "/users/u-1/sync-deactivate", nil), map[string]string{"user-id": "u-1"})
	rr := httptest.NewRecorder()

	SyncDeactivateUserService(svc, rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	store.AssertExpectations(t)
	engine.AssertExpectations(t)
}

func TestBulkSyncUsersServiceNotifiesOnFailures(t *testing.T) {
	svc, _, engine, email := newTestService()

	engine.On("BulkSyncPendingUsers", mock.Anything).Return(&models.BulkSyncResult{
		SyncedCount: 2,
		FailedCount: 1,
		Errors:      []string{"broken: malformed payload"},
	}, nil)
	email.On("SendEmail", mock.Anything, mock.MatchedBy(func(input *sesv2.SendEmailInput) bool {
		return input.FromEmailAddress != nil && *input.FromEmailAddress == "noreply@example.com"
	}), mock.Anything).Return(&sesv2.SendEmailOutput{}, nil)

	req := httptest.NewRequest("POST", "/users/bulk-sync", nil)
	rr := httptest.NewRecorder()

	BulkSyncUsersService(svc, rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	email.AssertNumberOfCalls(t, "SendEmail", 1)

	var resp struct {
		Success int                   `json:"success"`
		Data    models.BulkSyncResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Data.SyncedCount)
	assert.Equal(t, 1, resp.Data.FailedCount)
}

func TestBulkSyncUsersServiceSkipsNotificationWhenClean(t *testing.T) {
	svc, _, engine, email := newTestService()

	engine.On("BulkSyncPendingUsers", mock.Anything).Return(&models.BulkSyncResult{SyncedCount: 3}, nil)

	req := httptest.NewRequest("POST", "/users/bulk-sync", nil)
	rr := httptest.NewRecorder()

	BulkSyncUsersService(svc, rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	email.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}
