package payroll

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gajiflow/gajiflow/internal/platform/httpx"
	"github.com/gajiflow/gajiflow/internal/shared"
)

// Handler wires HTTP endpoints for the payroll workflow.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers payroll routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/runs", h.createRun)
	r.Get("/runs/{runID}", h.getRun)
	r.Post("/runs/{runID}/transition", h.requestTransition)
	r.Get("/runs/{runID}/history", h.listHistory)
}

type createRunRequest struct {
	FirmID    string `json:"firm_id" validate:"required,uuid"`
	ClientID  string `json:"client_id" validate:"required,uuid"`
	PayPeriod string `json:"pay_period" validate:"required,max=64"`
	PayDate   string `json:"pay_date" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) createRun(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "actor context missing")
		return
	}
	var req createRunRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	firmID, _ := uuid.Parse(req.FirmID)
	clientID, _ := uuid.Parse(req.ClientID)
	payDate, _ := time.Parse("2006-01-02", req.PayDate)
	run, err := h.service.CreateRun(r.Context(), CreateRunInput{
		FirmID:    firmID,
		ClientID:  clientID,
		PayPeriod: req.PayPeriod,
		PayDate:   payDate,
	}, actor)
	if err != nil {
		h.respondError(w, "create run", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, run)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Run", "run id must be a UUID")
		return
	}
	run, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		h.respondError(w, "get run", err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

type transitionRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

func (h *Handler) requestTransition(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "actor context missing")
		return
	}
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Run", "run id must be a UUID")
		return
	}
	var req transitionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	run, err := h.service.RequestTransition(r.Context(), runID, actor, req.Notes)
	if err != nil {
		h.respondError(w, "request transition", err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Run", "run id must be a UUID")
		return
	}
	entries, err := h.service.ListHistory(r.Context(), runID)
	if err != nil {
		h.respondError(w, "list history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrPermissionDenied):
		httpx.Problem(w, http.StatusForbidden, "Permission Denied", "you are not allowed to perform this action")
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrTerminalState):
		httpx.Problem(w, http.StatusConflict, "Terminal State", "published runs cannot be transitioned")
	case errors.Is(err, ErrDuplicatePeriod):
		httpx.Problem(w, http.StatusConflict, "Duplicate Period", "a run already exists for this client and pay period")
	case errors.Is(err, ErrConcurrentModification):
		httpx.Problem(w, http.StatusConflict, "Concurrent Modification", "the run was advanced by another request; re-fetch and retry")
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrStorageUnavailable):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", "")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
