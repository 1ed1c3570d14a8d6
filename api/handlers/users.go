package handlers

import (
	"net/http"

	"github.com/dirsync/scim-provisioner/api/services"
	_ "github.com/lib/pq"
)

func GetUsers(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetUsersService(svc, w, r)
	}
}

func GetUser(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.GetUserService(svc, w, r)
	}
}

func CreateUser(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateUserService(svc, w, r)
	}
}

func UpdateUser(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.UpdateUserService(svc, w, r)
	}
}

func DeleteUser(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeleteUserService(svc, w, r)
	}
}

func SyncUser(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.SyncUserService(svc, w, r)
	}
}

func DeactivateUser(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeactivateUserService(svc, w, r)
	}
}

// SyncDeactivateUser disables a user locally and in the remote directory.
// Routed behind middleware.AdminOnly.
func SyncDeactivateUser(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.SyncDeactivateUserService(svc, w, r)
	}
}

// BulkSyncUsers is routed behind middleware.AdminOnly.
func BulkSyncUsers(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.BulkSyncUsersService(svc, w, r)
	}
}
