package handler

import (
	"net/http"

	"docarchive/internal/service"
)

type ConfigHandler struct {
	service *service.CollectionService
}

func NewConfigHandler(service *service.CollectionService) *ConfigHandler {
	return &ConfigHandler{service: service}
}

func (h *ConfigHandler) Get(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, h.service.Config(), nil)
}

// Patch merges the given options into the archive configuration. Keys are
// the same as in the config file: name, overrideRemove, exclude and
// restoreOriginalId.
func (h *ConfigHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeJSON(w, r, &raw); err != nil {
		writeError(w, err)
		return
	}
	if len(raw) == 0 {
		writeError(w, badRequest("at least one option is required"))
		return
	}

	cfg, err := h.service.Configure(actorFromRequest(r), raw)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, cfg, nil)
}
