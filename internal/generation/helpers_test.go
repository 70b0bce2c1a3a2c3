package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const (
	quotaErrorPayload    = `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"Quota exceeded for model","details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"12s"}]}}`
	modalityErrorPayload = `{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"The requested combination of Response Modalities is not supported by the model"}}`
	invalidKeyPayload    = `{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"API key not valid. Please pass a valid API key.","details":[{"reason":"API_KEY_INVALID"}]}}`
	serverErrorPayload   = `{"error":{"code":500,"status":"INTERNAL","message":"backend exploded"}}`
)

type recordedCall struct {
	Model    string
	Contents []Content
	Config   *GenerateConfig
}

type fakeResponse struct {
	result *GenerateResult
	err    error
}

// fakeModelClient replays scripted responses in order and records every call.
type fakeModelClient struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     []recordedCall
}

func newFakeModelClient(responses ...fakeResponse) *fakeModelClient {
	return &fakeModelClient{responses: responses}
}

func (f *fakeModelClient) GenerateContent(_ context.Context, model string, contents []Content, cfg *GenerateConfig) (*GenerateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{Model: model, Contents: contents, Config: cfg})
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("fake model client: unexpected call %d to %s", len(f.calls), model)
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next.result, next.err
}

func fail(payload string) fakeResponse {
	return fakeResponse{err: errors.New(payload)}
}

func textResult(text string) fakeResponse {
	return fakeResponse{result: &GenerateResult{Text: text}}
}

func imageResult(mime, data string) fakeResponse {
	return fakeResponse{result: &GenerateResult{
		Candidates: []Candidate{{Content: Content{Role: ContentRoleModel, Parts: []Part{
			{Text: "here you go"},
			{InlineData: &InlineData{MIMEType: mime, Data: data}},
		}}}},
	}}
}
