package generation

import (
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/gemini-studio/internal/upstream"
)

var (
	// ErrMissingCredential is returned when no Gemini API key is configured.
	ErrMissingCredential = errors.New("generation: GEMINI_API_KEY is not configured")

	// ErrNoContent is returned when a chat request holds only system messages.
	ErrNoContent = errors.New("generation: at least one non-system message is required")

	// ErrEmptyResponse is returned when the model answered with no text.
	ErrEmptyResponse = errors.New("generation: model returned no text")

	// ErrNoImageData is returned when a successful image response held no inline image.
	ErrNoImageData = errors.New("generation: model returned no image data")
)

// ValidationError reports malformed client input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RateLimitedError reports a request rejected by the local limiter.
type RateLimitedError struct {
	Endpoint string
	ResetAt  time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("generation: %s rate limit exceeded until %s", e.Endpoint, e.ResetAt.UTC().Format(time.RFC3339))
}

// UpstreamKind is the classified outcome of a failed model call.
type UpstreamKind string

const (
	KindInvalidCredential UpstreamKind = "invalid_credential"
	KindQuota             UpstreamKind = "quota"
	KindUnclassified      UpstreamKind = "unclassified"
)

// UpstreamError is a model client failure after classification.
type UpstreamError struct {
	Kind UpstreamKind
	Info upstream.ErrorInfo
	// Raw is the opaque upstream message the classification was derived from.
	Raw string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("generation: upstream %s: %s", e.Kind, e.Raw)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// DebugMessage is the detail exposed to non-production callers.
func (e *UpstreamError) DebugMessage() string {
	if e.Kind == KindQuota && e.Info.Message != "" {
		return e.Info.Message
	}
	return e.Raw
}

// ClassifyFailure converts a model client error into the error taxonomy.
// Errors that are already classified pass through unchanged.
func ClassifyFailure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrMissingCredential) || errors.Is(err, ErrNoContent) ||
		errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrNoImageData) {
		return err
	}
	var classified *UpstreamError
	if errors.As(err, &classified) {
		return err
	}

	raw := err.Error()
	info := upstream.Classify(raw)
	kind := KindUnclassified
	switch {
	case upstream.IsInvalidAPIKey(raw):
		kind = KindInvalidCredential
	case info.IsQuotaExhausted():
		kind = KindQuota
	}
	return &UpstreamError{Kind: kind, Info: info, Raw: raw, Err: err}
}
