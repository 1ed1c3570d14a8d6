package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dirsync/scim-provisioner/models"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// GetUsersService retrieves all local users with their sync state.
func GetUsersService(svc *Service, w http.ResponseWriter, r *http.Request) {
	users, err := svc.DB.GetUsers(r.Context())
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    models.UsersResponse{Users: users},
	}, "")
}

// GetUserService retrieves a single user by UUID.
func GetUserService(svc *Service, w http.ResponseWriter, r *http.Request) {
	userUUID := mux.Vars(r)["user-id"]

	user, err := svc.DB.GetUser(r.Context(), userUUID)
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    models.UserResponse{User: *user},
	}, "")
}

// CreateUserService creates a user in pending state. Nothing is provisioned
// remotely until a sync is requested.
func CreateUserService(svc *Service, w http.ResponseWriter, r *http.Request) {
	var payload models.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Error().Err(err).Msg("Invalid request payload")
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}
	if payload.Username == "" || payload.Email == "" {
		HandleErrResponse(w, http.StatusBadRequest, errors.New("username and email are required fields"))
		return
	}

	user, err := svc.DB.CreateUser(r.Context(), payload)
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusCreated, nil, models.Response{
		Success: 1,
		Data:    models.UserResponse{User: *user},
	}, "/users/"+user.UUID)
}

// UpdateUserService applies a local mutation and then re-syncs previously
// provisioned users so the remote directory keeps up with local edits. The
// re-sync is best effort: its outcome lands on the user's sync fields.
func UpdateUserService(svc *Service, w http.ResponseWriter, r *http.Request) {
	userUUID := mux.Vars(r)["user-id"]

	var payload models.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Error().Err(err).Msg("Invalid request payload")
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}
	if payload.Username == "" || payload.Email == "" {
		HandleErrResponse(w, http.StatusBadRequest, errors.New("username and email are required fields"))
		return
	}

	user, err := svc.DB.UpdateUser(r.Context(), userUUID, payload)
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	if user.RemoteID != nil && *user.RemoteID != "" {
		if _, serr := svc.Engine.SyncUser(r.Context(), userUUID); serr != nil {
			log.Warn().Err(serr).Str("user", userUUID).Msg("auto re-sync after update failed")
		}
		if refreshed, gerr := svc.DB.GetUser(r.Context(), userUUID); gerr == nil {
			user = refreshed
		}
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    models.UserResponse{User: *user},
	}, "")
}

// DeleteUserService removes the local record only. Use the deactivate
// endpoint first to disable the remote identity.
func DeleteUserService(svc *Service, w http.ResponseWriter, r *http.Request) {
	userUUID := mux.Vars(r)["user-id"]

	if err := svc.DB.DeleteUser(r.Context(), userUUID); err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncUserService provisions one user into the remote directory.
func SyncUserService(svc *Service, w http.ResponseWriter, r *http.Request) {
	userUUID := mux.Vars(r)["user-id"]

	result, err := svc.Engine.SyncUser(r.Context(), userUUID)
	if err != nil {
		HandleErrResponse(w, engineErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    result,
	}, "")
}

// DeactivateUserService disables the user locally only. The remote identity
// keeps its state until a sync-deactivate is requested.
func DeactivateUserService(svc *Service, w http.ResponseWriter, r *http.Request) {
	userUUID := mux.Vars(r)["user-id"]

	user, err := svc.DB.SetUserActive(r.Context(), userUUID, false)
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    models.UserResponse{User: *user},
	}, "")
}

// SyncDeactivateUserService disables the user locally and then in the remote
// directory.
func SyncDeactivateUserService(svc *Service, w http.ResponseWriter, r *http.Request) {
	userUUID := mux.Vars(r)["user-id"]

	if _, err := svc.DB.SetUserActive(r.Context(), userUUID, false); err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	result, err := svc.Engine.DeactivateUser(r.Context(), userUUID)
	if err != nil {
		HandleErrResponse(w, engineErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    result,
	}, "")
}

// BulkSyncUsersService syncs every pending user, isolating per-user failures.
func BulkSyncUsersService(svc *Service, w http.ResponseWriter, r *http.Request) {
	result, err := svc.Engine.BulkSyncPendingUsers(r.Context())
	if err != nil {
		HandleErrResponse(w, engineErrStatus(err), err)
		return
	}

	if result.FailedCount > 0 {
		notifyBulkSyncFailures(r.Context(), svc, "users", result)
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    result,
	}, "")
}
