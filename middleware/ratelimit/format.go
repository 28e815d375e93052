package ratelimit

import (
	"net/http"
	"strconv"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// formatFloat avoids scientific notation for the usual RPS values.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Rejection codes in the JSON error body.
const (
	CodeRateLimited = "rate_limited"
	CodeBusy        = "busy"
)

// reject writes {"error":code}. code is one of the constants above, so no
// escaping is needed.
func reject(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}` + "\n"))
}
