package controllers

import (
	"net/http"

	"github.com/quartermasterhq/quartermaster-backend/api/responses"
	"github.com/quartermasterhq/quartermaster-backend/internal/exports"
	"github.com/quartermasterhq/quartermaster-backend/pkg/logger"
)

// ExportRun regenerates the team's CSV report artifacts and returns
// presigned download links.
func ExportRun(svc exports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		teamID, err := pathUUID(r, "teamID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Run(r.Context(), uid, teamID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
