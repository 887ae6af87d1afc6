package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quartermasterhq/quartermaster-backend/api/responses"
	"github.com/quartermasterhq/quartermaster-backend/api/validators"
	"github.com/quartermasterhq/quartermaster-backend/internal/roles"
	"github.com/quartermasterhq/quartermaster-backend/pkg/logger"
)

// RolesList returns the full role registry.
func RolesList(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := actorID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=64"`
	Description *string  `json:"description,omitempty"`
	Permissions []string `json:"permissions" validate:"required,min=1"`
}

// RoleCreate registers a custom role.
func RoleCreate(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := actorID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createRoleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := svc.Create(r.Context(), roles.CreateRoleInput{
			Name:        payload.Name,
			Description: payload.Description,
			Permissions: payload.Permissions,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, role)
	}
}

type updateRoleRequest struct {
	Description *string   `json:"description,omitempty"`
	Permissions *[]string `json:"permissions,omitempty" validate:"omitempty,min=1"`
}

// RoleUpdate adjusts a custom role. Default roles are immutable.
func RoleUpdate(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := actorID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateRoleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := svc.Update(r.Context(), chi.URLParam(r, "id"), roles.UpdateRoleInput{
			Description: payload.Description,
			Permissions: payload.Permissions,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, role)
	}
}

// RoleDelete removes a custom role. Deleting an absent role succeeds.
func RoleDelete(svc roles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := actorID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
