package middleware

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// errorBody mirrors the handler error envelope so clients parse one shape.
type errorBody struct {
	Error     string `json:"error"`
	ErrorCode int    `json:"error_code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSONError writes a JSON error envelope tagged with the request id, if any.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:     msg,
		ErrorCode: status,
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}
