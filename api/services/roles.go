package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dirsync/scim-provisioner/models"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// GetRolesService retrieves all roles with assignment counts.
func GetRolesService(svc *Service, w http.ResponseWriter, r *http.Request) {
	roles, err := svc.DB.GetRoles(r.Context())
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    models.RolesResponse{Roles: roles},
	}, "")
}

// GetRoleService retrieves a single role by UUID.
func GetRoleService(svc *Service, w http.ResponseWriter, r *http.Request) {
	roleUUID := mux.Vars(r)["role-id"]

	role, err := svc.DB.GetRole(r.Context(), roleUUID)
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    models.RoleResponse{Role: *role},
	}, "")
}

// CreateRoleService creates a role that IdP role values can map onto.
func CreateRoleService(svc *Service, w http.ResponseWriter, r *http.Request) {
	var payload models.RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Error().Err(err).Msg("Invalid request payload")
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}
	if payload.Name == "" {
		HandleErrResponse(w, http.StatusBadRequest, errors.New("name is a required field"))
		return
	}

	role, err := svc.DB.CreateRole(r.Context(), payload)
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusCreated, nil, models.Response{
		Success: 1,
		Data:    models.RoleResponse{Role: *role},
	}, "/roles/"+role.UUID)
}

// UpdateRoleService applies a local mutation to a role.
func UpdateRoleService(svc *Service, w http.ResponseWriter, r *http.Request) {
	roleUUID := mux.Vars(r)["role-id"]

	var payload models.RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Error().Err(err).Msg("Invalid request payload")
		HandleErrResponse(w, http.StatusBadRequest, err)
		return
	}
	if payload.Name == "" {
		HandleErrResponse(w, http.StatusBadRequest, errors.New("name is a required field"))
		return
	}

	role, err := svc.DB.UpdateRole(r.Context(), roleUUID, payload)
	if err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}

	HandleSuccessResponse(w, http.StatusOK, nil, models.Response{
		Success: 1,
		Data:    models.RoleResponse{Role: *role},
	}, "")
}

// DeleteRoleService removes a role and its assignments.
func DeleteRoleService(svc *Service, w http.ResponseWriter, r *http.Request) {
	roleUUID := mux.Vars(r)["role-id"]

	if err := svc.DB.DeleteRole(r.Context(), roleUUID); err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignRoleService assigns a role to a user.
func AssignRoleService(svc *Service, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := svc.DB.AssignRole(r.Context(), vars["role-id"], vars["user-id"]); err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnassignRoleService removes a role assignment from a user.
func UnassignRoleService(svc *Service, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := svc.DB.UnassignRole(r.Context(), vars["role-id"], vars["user-id"]); err != nil {
		HandleErrResponse(w, storeErrStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
