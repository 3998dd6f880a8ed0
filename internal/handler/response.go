package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"docarchive/internal/model"
	"docarchive/pkg/apierror"
)

const maxBodyBytes = 8 << 20

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// errorMapping pairs a sentinel with the response it produces. Order matters:
// the first match wins.
var errorMapping = []struct {
	target  error
	status  int
	code    string
	message string
}{
	{model.ErrInvalidSelector, http.StatusBadRequest, "INVALID_SELECTOR", "Invalid selector"},
	{model.ErrInvalidCollection, http.StatusBadRequest, "INVALID_COLLECTION", "Invalid collection name"},
	{model.ErrInvalidDocument, http.StatusBadRequest, "INVALID_DOCUMENT", "Invalid document"},
	{model.ErrValidation, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid archive configuration"},
	{model.ErrArchiveCollection, http.StatusBadRequest, "ARCHIVE_COLLECTION", "Operation not allowed on the archive collection"},
	{model.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST", "Invalid input"},
	{model.ErrReservedField, http.StatusUnprocessableEntity, "RESERVED_FIELD", "Document uses a reserved field"},
	{model.ErrDuplicateID, http.StatusConflict, "DUPLICATE_ID", "Document id already exists"},
	{model.ErrConcurrentModification, http.StatusConflict, "CONFLICT", "Documents changed during the operation"},
	{model.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"},
	{model.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Access denied"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT", "Operation timed out"},
	{model.ErrTransaction, http.StatusServiceUnavailable, "TRANSACTION_FAILED", "Transaction could not be completed"},
	{model.ErrStore, http.StatusInternalServerError, "STORE_ERROR", "Document store failure"},
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	matched := false
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
		matched = true
	} else {
		for _, m := range errorMapping {
			if errors.Is(err, m.target) {
				status, body.Code, body.Message = m.status, m.code, m.message
				matched = true
				break
			}
		}
	}

	if status < http.StatusInternalServerError && body.Details == "" {
		body.Details = err.Error()
	}
	if !matched || status >= http.StatusInternalServerError {
		// Log server-side failures so they are visible in container logs.
		slog.Error("request failed", "status", status, "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

// decodeJSON reads a single JSON value into dst. An empty body leaves dst
// untouched; unknown fields are rejected. Numbers decode as json.Number so
// large integers in documents are stored exactly.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	dec.UseNumber()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apierror.BadRequest("invalid JSON body", err.Error())
	}
	if dec.More() {
		return apierror.BadRequest("invalid JSON body", "unexpected data after JSON value")
	}
	return nil
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrInvalidInput, fmt.Sprintf(format, args...))
}
