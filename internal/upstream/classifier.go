// Package upstream normalizes the error payloads returned by the Gemini API.
//
// The upstream reports failures as a JSON envelope:
//
//	{"error": {"code": 429, "status": "RESOURCE_EXHAUSTED", "message": "...",
//	           "details": [{"@type": "...RetryInfo", "retryDelay": "37s"}]}}
//
// Callers only ever see ErrorInfo; nothing outside this package depends on the
// envelope shape.
package upstream

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// StatusResourceExhausted is the status tag the upstream uses for quota errors.
	StatusResourceExhausted = "RESOURCE_EXHAUSTED"

	codeTooManyRequests = 429
)

var retryDelayPattern = regexp.MustCompile(`^(\d+)s$`)

// ErrorInfo is the best-effort structured view of an upstream error.
// Every field is optional; the zero value means nothing could be parsed.
type ErrorInfo struct {
	Code              *int
	Status            string
	Message           string
	RetryAfterSeconds *int
}

// IsQuotaExhausted reports whether the upstream rejected the call for quota.
func (i ErrorInfo) IsQuotaExhausted() bool {
	return (i.Code != nil && *i.Code == codeTooManyRequests) || i.Status == StatusResourceExhausted
}

// IsEmpty reports whether nothing was extracted.
func (i ErrorInfo) IsEmpty() bool {
	return i.Code == nil && i.Status == "" && i.Message == "" && i.RetryAfterSeconds == nil
}

// Classify parses raw as an upstream error envelope. It never fails: any
// input that is not a well-formed envelope yields the fields it could read,
// or the zero ErrorInfo.
func Classify(raw string) ErrorInfo {
	var envelope map[string]any
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return ErrorInfo{}
	}
	body, ok := envelope["error"].(map[string]any)
	if !ok {
		return ErrorInfo{}
	}

	var info ErrorInfo
	if code, ok := integer(body["code"]); ok {
		info.Code = &code
	}
	if status, ok := body["status"].(string); ok {
		info.Status = status
	}
	if msg, ok := body["message"].(string); ok {
		info.Message = msg
	}

	details, _ := body["details"].([]any)
	for _, d := range details {
		detail, ok := d.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := detail["@type"].(string)
		delay, _ := detail["retryDelay"].(string)
		if !strings.Contains(typ, "RetryInfo") || delay == "" {
			continue
		}
		m := retryDelayPattern.FindStringSubmatch(delay)
		if m == nil {
			continue
		}
		if seconds, err := strconv.Atoi(m[1]); err == nil {
			info.RetryAfterSeconds = &seconds
		}
	}

	return info
}

// IsInvalidAPIKey reports whether raw describes a rejected API key.
func IsInvalidAPIKey(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "api_key_invalid") || strings.Contains(lower, "api key not valid")
}

// IsModalityRejection reports whether raw says the model refused the
// requested response modalities configuration.
func IsModalityRejection(raw string) bool {
	return strings.Contains(strings.ToLower(raw), "response modalities")
}

func integer(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
