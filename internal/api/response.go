package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// fallbackErrorBody is served verbatim when the real payload cannot be
// marshaled, so the client always receives a JSON envelope.
const fallbackErrorBody = `{"status":"error","message":"Internal server error"}`

// writeJSONResponse marshals the payload before touching the response writer
// so an encoding failure can still downgrade the status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("api: failed to marshal response payload", "error", err)
		body = []byte(fallbackErrorBody)
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Error("api: failed to write response body", "error", err)
	}
}
