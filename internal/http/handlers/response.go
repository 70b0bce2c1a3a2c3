package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/gemini-studio/internal/ratelimit"
)

type errorResponse struct {
	Error   string `json:"error"`
	Debug   string `json:"debug,omitempty"`
	ResetAt int64  `json:"resetAt,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func setRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

// retryAfter renders a Retry-After value in whole seconds, never below one.
func retryAfter(until time.Time, now time.Time) string {
	secs := int64(until.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
