package permissions

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gajiflow/gajiflow/internal/platform/httpx"
	"github.com/gajiflow/gajiflow/internal/shared"
)

// Handler exposes the permission matrix over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers permission routes on the provided router. Reading
// the matrix requires view on users (role administration screen); editing
// requires edit on users.
func (h *Handler) MountRoutes(r chi.Router, mw Middleware) {
	r.With(mw.RequireCapability(ResourceUsers, CapabilityView)).
		Get("/firms/{firmID}/permissions", h.getMatrix)
	r.With(mw.RequireCapability(ResourceUsers, CapabilityView)).
		Post("/firms/{firmID}/permissions/bootstrap", h.bootstrapDefaults)
	r.With(mw.RequireCapability(ResourceUsers, CapabilityEdit)).
		Put("/firms/{firmID}/permissions/{role}/{resource}", h.updatePermission)
}

func (h *Handler) getMatrix(w http.ResponseWriter, r *http.Request) {
	firmID, err := uuid.Parse(chi.URLParam(r, "firmID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Firm", "firm id must be a UUID")
		return
	}
	matrix, err := h.service.GetMatrix(r.Context(), firmID)
	if err != nil {
		h.respondError(w, "get matrix", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": matrix})
}

func (h *Handler) bootstrapDefaults(w http.ResponseWriter, r *http.Request) {
	firmID, err := uuid.Parse(chi.URLParam(r, "firmID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Firm", "firm id must be a UUID")
		return
	}
	matrix, err := h.service.BootstrapDefaults(r.Context(), firmID)
	if err != nil {
		h.respondError(w, "bootstrap defaults", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": matrix})
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	firmID, err := uuid.Parse(chi.URLParam(r, "firmID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Firm", "firm id must be a UUID")
		return
	}
	role, ok := shared.ParseRole(chi.URLParam(r, "role"))
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Unknown Role", chi.URLParam(r, "role"))
		return
	}
	resource, ok := ParseResource(chi.URLParam(r, "resource"))
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Unknown Resource", chi.URLParam(r, "resource"))
		return
	}
	var caps CapabilitySet
	if err := httpx.DecodeJSON(r, &caps); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.service.UpdatePermission(r.Context(), firmID, role, resource, caps); err != nil {
		h.respondError(w, "update permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrImmutableRole):
		httpx.Problem(w, http.StatusForbidden, "Immutable Role", "super_admin permissions cannot be changed")
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrUnknownRole), errors.Is(err, ErrUnknownResource):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.Is(err, shared.ErrStorageUnavailable):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", "")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
