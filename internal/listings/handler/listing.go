package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"propdash/internal/auth"
	"propdash/internal/listings/service"
	httputil "propdash/pkg/http"
	"propdash/pkg/logger"
	"propdash/pkg/model"
)

type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type ListingHandler struct {
	service service.ListingService
	gate    *auth.Gate
	log     *logger.Logger
}

func NewListingHandler(service service.ListingService, gate *auth.Gate, log *logger.Logger) *ListingHandler {
	return &ListingHandler{
		service: service,
		gate:    gate,
		log:     log,
	}
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var fields model.ListingFields
	if err := httputil.DecodeJSON(r, &fields); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	listing, err := h.service.Create(r.Context(), auth.IdentityFromContext(r.Context()), &fields)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, listing); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	listings, err := h.service.List(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, listings); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	listing, err := h.service.Get(r.Context(), auth.IdentityFromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, listing); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var fields model.ListingFields
	if err := httputil.DecodeJSON(r, &fields); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	listing, err := h.service.Update(r.Context(), auth.IdentityFromContext(r.Context()), ps.ByName("id"), &fields)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, listing); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) SetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var change model.StatusChange
	if err := httputil.DecodeJSON(r, &change); err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}

	listing, err := h.service.SetStatus(r.Context(), auth.IdentityFromContext(r.Context()), ps.ByName("id"), &change)
	if err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, listing); err != nil {
		h.log.Error("failed to write success response", "handler", "SetStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if err := h.service.Delete(r.Context(), auth.IdentityFromContext(r.Context()), id); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := httputil.WriteSuccess(w, DeleteResponse{ID: id, Deleted: true}); err != nil {
		h.log.Error("failed to write success response", "handler", "Delete", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ListingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/listings", h.gate.Require(h.List))
	router.POST("/api/v1/listings", h.gate.Require(h.Create))
	router.GET("/api/v1/listings/id/:id", h.gate.Require(h.GetByID))
	router.PUT("/api/v1/listings/id/:id", h.gate.Require(h.Update))
	router.PATCH("/api/v1/listings/id/:id/status", h.gate.Require(h.SetStatus))
	router.DELETE("/api/v1/listings/id/:id", h.gate.Require(h.Delete))
}
