package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"docarchive/internal/model"
	"docarchive/internal/service"
)

type CollectionHandler struct {
	service *service.CollectionService
}

func NewCollectionHandler(service *service.CollectionService) *CollectionHandler {
	return &CollectionHandler{service: service}
}

func (h *CollectionHandler) Insert(w http.ResponseWriter, r *http.Request) {
	var req model.InsertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, badRequest("documents must be a non-empty array"))
		return
	}

	resp, err := h.service.Insert(r.Context(), actorFromRequest(r), chi.URLParam(r, "name"), req.Documents)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, resp, nil)
}

func (h *CollectionHandler) Find(w http.ResponseWriter, r *http.Request) {
	var req model.SelectorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.service.Find(r.Context(), chi.URLParam(r, "name"), req.Selector)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, resp, &model.Meta{Total: len(resp.Documents)})
}

// Delete honours the archive policy unless the body sets permanent. A missing
// selector is rejected so an empty body cannot clear a collection.
func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req model.DeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Selector == nil {
		writeError(w, badRequest("selector is required; use {} to match every document"))
		return
	}

	result, err := h.service.Delete(r.Context(), actorFromRequest(r), chi.URLParam(r, "name"), req.Selector, req.Permanent)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *CollectionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	var req model.SelectorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Selector == nil {
		writeError(w, badRequest("selector is required; use {} to match every document"))
		return
	}

	resp, err := h.service.Archive(r.Context(), actorFromRequest(r), chi.URLParam(r, "name"), req.Selector)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, resp, nil)
}

func (h *CollectionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req model.SelectorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Selector == nil {
		req.Selector = model.Selector{}
	}

	resp, err := h.service.Restore(r.Context(), actorFromRequest(r), chi.URLParam(r, "name"), req.Selector)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, resp, nil)
}
