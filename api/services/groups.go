package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dirsync/scim-provisioner/models"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// GetGroupsService retrieves all local groups with membership and sync state.
func GetGroupsService(svc *Service, w http.ResponseWriter, r *http.Request) {
	groups, err := svc.DB.GetGroups(r.Context())
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    models.GroupsResponse{Groups: groups},
	}, "")
}

// GetGroupService retrieves a single group by UUID.
func GetGroupService(svc *Service, w http.ResponseWriter, r *http.Request) {
	groupUUID := mux.Vars(r)["group-id"]

	group, err := svc.DB.GetGroup(r.Context(), groupUUID)
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    models.GroupResponse{Group: *group},
	}, "")
}

// CreateGroupService creates a group in pending state.
func CreateGroupService(svc *Service, w http.ResponseWriter, r *http.Request) {
	var payload models.GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Error().Err(err).Msg("Invalid request payload")
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}
	if payload.DisplayName == "" {
		HandleErrResponse(w, http.StatusBadRequest, errors.New("displayName is a required field"))
		return
	}

	group, err := svc.DB.CreateGroup(r.Context(), payload)
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusCreated, nil, models.Response{
		Success: 1,
		Data:    models.GroupResponse{Group: *group},
	}, "/groups/"+group.UUID)
}

// UpdateGroupService applies a local mutation to metadata and membership.
func UpdateGroupService(svc *Service, w http.ResponseWriter, r *http.Request) {
	groupUUID := mux.Vars(r)["group-id"]

	var payload models.GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Error().Err(err).Msg("Invalid request payload")
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}
	if payload.DisplayName == "" {
		HandleErrResponse(w, http.StatusBadRequest, errors.New("displayName is a required field"))
		return
	}

	group, err := svc.DB.UpdateGroup(r.Context(), groupUUID, payload)
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    models.GroupResponse{Group: *group},
	}, "")
}

// DeleteGroupService removes the local group record only.
func DeleteGroupService(svc *Service, w http.ResponseWriter, r *http.Request) {
	groupUUID := mux.Vars(r)["group-id"]

	if err := svc.DB.DeleteGroup(r.Context(), groupUUID); err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddGroupMemberService records a new membership.
func AddGroupMemberService(svc *Service, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := svc.DB.AddGroupMember(r.Context(), vars["group-id"], vars["user-id"]); err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveGroupMemberService drops a membership.
func RemoveGroupMemberService(svc *Service, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := svc.DB.RemoveGroupMember(r.Context(), vars["group-id"], vars["user-id"]); err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncGroupService provisions one group into the remote directory, members
// first.
func SyncGroupService(svc *Service, w http.ResponseWriter, r *http.Request) {
	groupUUID := mux.Vars(r)["group-id"]

	result, err := svc.Engine.SyncGroup(r.Context(), groupUUID)
	if err != nil {
		HandleErrResponse(w, engineErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    result,
	}, "")
}

// BulkSyncGroupsService syncs every pending group.
func BulkSyncGroupsService(svc *Service, w http.ResponseWriter, r *http.Request) {
	result, err := svc.Engine.BulkSyncPendingGroups(r.Context())
	if err != nil {
		HandleErrResponse(w, engineErrStatus(err), err)
		return
	}

	if result.FailedCount > 0 {
		notifyBulkSyncFailures(r.Context(), svc, "groups", result)
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    result,
	}, "")
}
