package middleware

import (
	"encoding/json"
	"net/http"

	"docarchive/internal/model"
)

// errorEnvelope is the body every middleware rejection carries, matching the
// envelope the collection handlers write.
func errorEnvelope(code, message string) model.APIResponse {
	return model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: code, Message: message},
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope(code, message))
}
