package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"housecall/internal/catalog/repository"
	"housecall/internal/catalog/service"
	apperrors "housecall/pkg/errors"
	httputil "housecall/pkg/http"
	"housecall/pkg/logger"
	"housecall/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	HeaderActorRole = "X-Actor-Role"
)

type ServiceHandler struct {
	service service.CatalogService
	log     *logger.Logger
}

func NewServiceHandler(service service.CatalogService, log *logger.Logger) *ServiceHandler {
	return &ServiceHandler{
		service: service,
		log:     log,
	}
}

func (h *ServiceHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/services", h.Create)
	router.GET("/api/v1/services", h.List)
	router.GET("/api/v1/services/:id", h.GetByID)
	router.PATCH("/api/v1/services/:id", h.Update)
	router.DELETE("/api/v1/services/:id", h.Delete)
}

// requireAdmin guards catalog mutations. Listings are public.
func (h *ServiceHandler) requireAdmin(r *http.Request) error {
	if model.Role(r.Header.Get(HeaderActorRole)) != model.RoleAdmin {
		return apperrors.Forbidden("only admins can manage the service catalog")
	}
	return nil
}

func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.requireAdmin(r); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var svc model.Service
	if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	created, err := h.service.Create(r.Context(), &svc)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *ServiceHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	svc, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, svc); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	filter := repository.ListFilter{
		Category:   query.Get("category"),
		City:       query.Get("city"),
		ActiveOnly: query.Get("include_inactive") != "true",
	}

	limit := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			h.writeError(w, "List", apperrors.InvalidInput(fmt.Sprintf("invalid limit parameter: %s", limitStr)))
			return
		}
	}

	var offset int64
	if offsetStr := query.Get("offset"); offsetStr != "" {
		var err error
		offset, err = strconv.ParseInt(offsetStr, 10, 64)
		if err != nil {
			h.writeError(w, "List", apperrors.InvalidInput(fmt.Sprintf("invalid offset parameter: %s", offsetStr)))
			return
		}
	}

	services, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, services, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "error", err)
	}
}

func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.requireAdmin(r); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var updates model.ServiceUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	svc, err := h.service.Update(r.Context(), ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, svc); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "error", err)
	}
}

func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.requireAdmin(r); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ServiceHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "error", writeErr)
	}
}
