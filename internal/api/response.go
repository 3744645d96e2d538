package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// fallbackBody is served when a payload fails to marshal. Kept as raw JSON
// so the failure path can never itself fail.
var fallbackBody = json.RawMessage(`{"status":"error","message":"Internal server error"}`)

// writeJSONResponse marshals payload and writes it with the given status.
// On a marshal error the status degrades to 500 with a canned body; headers
// are only written once the body is known good.
func writeJSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Server.writeJSONResponse: marshal failed", "error", err, "status", status)
		body = fallbackBody
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("Server.writeJSONResponse: write failed", "error", err)
	}
}
