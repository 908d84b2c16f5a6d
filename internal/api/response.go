package api

import (
	"encoding/json"
	"net/http"

	"github.com/hackgods/carehome-allocation/internal/care"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps an error kind onto its HTTP status. The kind label
// doubles as the error code.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := care.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case care.KindNotFound:
		status = http.StatusNotFound
	case care.KindConflict:
		status = http.StatusConflict
	case care.KindCompliance, care.KindScheduling:
		status = http.StatusUnprocessableEntity
	case care.KindAuthorization:
		status = http.StatusForbidden
	case care.KindInvalidInput:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal_error", err.Error())
		return
	}
	writeError(w, status, kind, err.Error())
}
