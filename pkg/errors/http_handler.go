package errors

import (
	"encoding/json"
	"net/http"
)

// WriteError renders err as a JSON error response. Non-AppError values are
// masked as internal errors so driver details never leak to clients.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())

	response := ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}

	return json.NewEncoder(w).Encode(response)
}
