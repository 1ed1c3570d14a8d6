package handlers

import (
	"net/http"

	"github.com/dirsync/scim-provisioner/api/services"
)

func GetRoles(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetRolesService(svc, w, r)
	}
}

func GetRole(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetRoleService(svc, w, r)
	}
}

func CreateRole(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateRoleService(svc, w, r)
	}
}

func UpdateRole(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.UpdateRoleService(svc, w, r)
	}
}

func DeleteRole(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeleteRoleService(svc, w, r)
	}
}

func AssignRole(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.AssignRoleService(svc, w, r)
	}
}

func UnassignRole(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.UnassignRoleService(svc, w, r)
	}
}
