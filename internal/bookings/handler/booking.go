package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"housecall/internal/bookings/service"
	apperrors "housecall/pkg/errors"
	httputil "housecall/pkg/http"
	"housecall/pkg/logger"
	"housecall/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Actor identity headers, set by the API gateway after authentication.
const (
	HeaderActorRole = "X-Actor-Role"
	HeaderActorID   = "X-Actor-ID"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetByCustomer)
	router.GET("/api/v1/bookings/:id", h.GetByID)
	router.POST("/api/v1/bookings/:id/assign", h.AssignWorker)
	router.POST("/api/v1/bookings/:id/status", h.UpdateStatus)
	router.POST("/api/v1/bookings/:id/reschedule", h.Reschedule)
}

type assignRequest struct {
	WorkerID        string `json:"worker_id"`
	ExpectedVersion int64  `json:"expected_version"`
}

type statusRequest struct {
	Status          model.Status `json:"status"`
	Reason          string       `json:"reason,omitempty"`
	ExpectedVersion int64        `json:"expected_version"`
}

type rescheduleRequest struct {
	ScheduledDate        time.Time `json:"scheduled_date"`
	EstimatedDurationMin int       `json:"estimated_duration_min,omitempty"`
	ExpectedVersion      int64     `json:"expected_version"`
}

func (h *BookingHandler) actor(r *http.Request) (service.Actor, error) {
	role := model.Role(r.Header.Get(HeaderActorRole))
	if role == "" {
		return service.Actor{}, apperrors.Unauthorized("missing actor role header")
	}
	if !role.IsValid() {
		return service.Actor{}, apperrors.Unauthorized("unknown actor role")
	}

	id := r.Header.Get(HeaderActorID)
	if id == "" {
		return service.Actor{}, apperrors.Unauthorized("missing actor ID header")
	}

	return service.Actor{Role: role, ID: id}, nil
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var booking model.Booking
	if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	// Customers always book for themselves; admins may book on behalf.
	switch actor.Role {
	case model.RoleCustomer:
		booking.CustomerID = actor.ID
	case model.RoleWorker:
		h.writeError(w, "Create", apperrors.Forbidden("workers cannot create bookings"))
		return
	}

	created, err := h.service.Create(r.Context(), &booking)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *BookingHandler) GetByCustomer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, "GetByCustomer", err)
		return
	}

	query := r.URL.Query()

	customerID := query.Get("customer_id")
	if actor.Role == model.RoleCustomer {
		customerID = actor.ID
	}

	var status *model.Status
	if statusStr := query.Get("status"); statusStr != "" {
		s := model.Status(statusStr)
		status = &s
	}

	limit := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			h.writeError(w, "GetByCustomer", apperrors.InvalidInput(fmt.Sprintf("invalid limit parameter: %s", limitStr)))
			return
		}
	}

	var offset int64
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err = strconv.ParseInt(offsetStr, 10, 64)
		if err != nil {
			h.writeError(w, "GetByCustomer", apperrors.InvalidInput(fmt.Sprintf("invalid offset parameter: %s", offsetStr)))
			return
		}
	}

	bookings, total, err := h.service.GetByCustomer(r.Context(), customerID, status, limit, offset)
	if err != nil {
		h.writeError(w, "GetByCustomer", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetByCustomer", "error", err)
	}
}

func (h *BookingHandler) AssignWorker(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, "AssignWorker", err)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "AssignWorker", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.AssignWorker(r.Context(), ps.ByName("id"), req.WorkerID, actor, req.ExpectedVersion)
	if err != nil {
		h.writeError(w, "AssignWorker", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "AssignWorker", "error", err)
	}
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "UpdateStatus", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), ps.ByName("id"), req.Status, actor, req.Reason, req.ExpectedVersion)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "error", err)
	}
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Reschedule", apperrors.InvalidInput("Invalid request body"))
		return
	}

	booking, err := h.service.Reschedule(r.Context(), ps.ByName("id"), req.ScheduledDate, req.EstimatedDurationMin, actor, req.ExpectedVersion)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Reschedule", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}
