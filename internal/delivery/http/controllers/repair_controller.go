package controllers

import (
	"fmt"
	"log/slog"
	"net/http"

	h "congresy/internal/delivery/http/helpers"
	"congresy/internal/domain"
)

// RepairSuccessResponse is the success response envelope for POST /admin/repair (200).
type RepairSuccessResponse struct {
	Data  *domain.RepairReport `json:"data"`
	Error *h.APIError          `json:"error"`
}

type RepairController struct {
	Logger *slog.Logger
	Repair domain.RepairService
	Actors domain.ActorService
}

func NewRepairController(logger *slog.Logger, repair domain.RepairService, actors domain.ActorService) *RepairController {
	return &RepairController{Logger: logger, Repair: repair, Actors: actors}
}

// Run godoc
// @Summary Run the repair pass
// @Description Recomputes every derived relationship and counter from authoritative state. Administrators only.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.RepairSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error or partial_failure"
// @Router /admin/repair [post]
func (c *RepairController) Run(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r)
	if !ok {
		return
	}
	admin, err := isAdmin(r.Context(), c.Actors, actorID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if !admin {
		h.WriteServiceError(w, r, c.Logger, fmt.Errorf("%w: repair requires an administrator", domain.ErrForbidden))
		return
	}
	report, err := c.Repair.Run(r.Context())
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	c.Logger.InfoContext(r.Context(), "repair run requested", "actor_id", actorID, "changed", report.Changed())
	h.WriteJSONSuccess(w, http.StatusOK, report)
}
