package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError is the rejection path shared by the auth and rate-limit
// middleware; handlers use their own envelope helpers.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
