package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
)

// Callback names are restricted to identifiers and dotted member access.
var callbackPattern = regexp.MustCompile(`^[A-Za-z0-9_$.]+$`)

// writeJSON renders payload as JSON. With a valid callback query parameter the
// body becomes "<callback>(<json>);" and keeps the JSON content type. Any other
// callback value is ignored.
func writeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to encode response", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if callback := r.URL.Query().Get("callback"); callbackPattern.MatchString(callback) {
		var buf bytes.Buffer
		buf.Grow(len(callback) + len(body) + 3)
		buf.WriteString(callback)
		buf.WriteByte('(')
		buf.Write(body)
		buf.WriteString(");")
		body = buf.Bytes()
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.WarnContext(r.Context(), "Failed to write response", "error", err)
	}
}
