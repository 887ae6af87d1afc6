package controllers

import (
	"net/http"

	"github.com/quartermasterhq/quartermaster-backend/api/responses"
	"github.com/quartermasterhq/quartermaster-backend/api/validators"
	"github.com/quartermasterhq/quartermaster-backend/internal/media"
	"github.com/quartermasterhq/quartermaster-backend/pkg/logger"
)

type uploadImageRequest struct {
	Key     string `json:"key" validate:"required,min=1,max=256"`
	DataURL string `json:"data_url" validate:"required"`
}

// UploadImage ingests a base64 data URL and stores it under the shared
// image prefix. Rejected payloads never touch the object store.
func UploadImage(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := actorID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload uploadImageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Upload(r.Context(), payload.Key, payload.DataURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
