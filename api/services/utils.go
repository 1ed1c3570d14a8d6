package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dirsync/scim-provisioner/internal/scim"
	"github.com/dirsync/scim-provisioner/models"
	"github.com/lib/pq"
)

func WriteResponse(w http.ResponseWriter, statusCode int, response interface{}, location ...string) {

	w.Header().Set("Content-Type", "application/json")

	// We don't want to cache API responses so the client receives most curent data
	w.Header().Set("Cache-Control", "max-age=0")

	// Conditionally set the Location header if provided
	if len(location) > 0 && location[0] != "" {
		w.Header().Set("Location", location[0])
	}

	w.WriteHeader(statusCode)

	if response != nil {
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return // **Return immediately to avoid multiple WriteHeader calls**
		}
	}
}

func HandleErrResponse(w http.ResponseWriter, statusCode int, err error) {
	var pqErr *pq.Error
	var response models.Response

	if errors.As(err, &pqErr) {
		response = models.Response{
			Success:      0,
			ErrorCode:    pqErr.Code.Name(),
			ErrorDetails: pqErr.Message,
		}
	} else {
		response = models.Response{
			Success:      0,
			ErrorDetails: err.Error(),
		}
	}

	WriteResponse(w, statusCode, response)
}

func HandleSuccessResponse(w http.ResponseWriter, statusCode int, headers map[string]string, response interface{}, location string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteResponse(w, statusCode, response, location)
}

// storeErrStatus maps persistence failures to HTTP status codes.
func storeErrStatus(err error) int {
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// engineErrStatus maps engine failures to HTTP status codes. Remote
// credential problems surface as a bad gateway, not as the caller's fault.
func engineErrStatus(err error) int {
	if scim.IsUnauthorized(err) {
		return http.StatusBadGateway
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
