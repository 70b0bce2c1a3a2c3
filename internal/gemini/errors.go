package gemini

import (
	"encoding/json"
	"errors"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// ResponseError carries the upstream error envelope as its message so the
// generation layer can classify it without knowing which SDK produced it.
type ResponseError struct {
	Code int
	Body string
	Err  error
}

func (e *ResponseError) Error() string {
	return e.Body
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

type envelopeBody struct {
	Code    int    `json:"code,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func envelope(code int, status, message string, details any) string {
	payload, err := json.Marshal(map[string]envelopeBody{
		"error": {Code: code, Status: status, Message: message, Details: details},
	})
	if err != nil {
		return message
	}
	return string(payload)
}

// fromGenAI normalizes an error from the google.golang.org/genai SDK. Errors
// that are not API errors (network, context) pass through untouched.
func fromGenAI(err error) error {
	if err == nil {
		return nil
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return fromAPIError(*apiErrPtr, err)
	}
	return err
}

func fromAPIError(apiErr genai.APIError, cause error) error {
	var details any
	if len(apiErr.Details) > 0 {
		details = apiErr.Details
	}
	return &ResponseError{
		Code: apiErr.Code,
		Body: envelope(apiErr.Code, apiErr.Status, apiErr.Message, details),
		Err:  cause,
	}
}

// fromGoogleAPI normalizes an error from the generative-ai-go SDK, which
// surfaces HTTP failures as *googleapi.Error.
func fromGoogleAPI(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr == nil {
		return err
	}
	body := strings.TrimSpace(gerr.Body)
	if body == "" {
		var details any
		if len(gerr.Details) > 0 {
			details = gerr.Details
		}
		body = envelope(gerr.Code, "", gerr.Message, details)
	}
	return &ResponseError{Code: gerr.Code, Body: body, Err: err}
}
