package generation

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func requireValidation(t *testing.T, err error, field, contains string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	assert.Equal(t, field, verr.Field)
	assert.Contains(t, verr.Error(), contains)
}

func TestParseChatRequest_Defaults(t *testing.T) {
	req, err := ParseChatRequest(decode(t, `{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)

	assert.Equal(t, []ChatMessage{{Role: RoleUser, Content: "hi"}}, req.Messages)
	assert.Equal(t, DefaultTemperature, req.Temperature)
	assert.Equal(t, DefaultChatModel, req.Model)
}

func TestParseChatRequest_RoundTrip(t *testing.T) {
	body := `{"messages":[
		{"role":"system","content":"be brief"},
		{"role":"user","content":"  padded  "},
		{"role":"assistant","content":"ok"}
	],"temperature":1.25,"model":" gemini-2.5-pro "}`

	req, err := ParseChatRequest(decode(t, body))
	require.NoError(t, err)

	require.Len(t, req.Messages, 3)
	assert.Equal(t, "  padded  ", req.Messages[1].Content, "content is stored untrimmed")
	assert.Equal(t, RoleAssistant, req.Messages[2].Role)
	assert.Equal(t, 1.25, req.Temperature)
	assert.Equal(t, " gemini-2.5-pro ", req.Model)
}

func TestParseChatRequest_TemperatureBounds(t *testing.T) {
	for _, temp := range []string{"0", "2", "0.0001", "1.9999"} {
		_, err := ParseChatRequest(decode(t, `{"messages":[{"role":"user","content":"x"}],"temperature":`+temp+`}`))
		assert.NoError(t, err, "temperature %s", temp)
	}

	req, err := ParseChatRequest(decode(t, `{"messages":[{"role":"user","content":"x"}],"temperature":null}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultTemperature, req.Temperature)
}

func TestParseChatRequest_Violations(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		field    string
		contains string
	}{
		{"array body", `[]`, "body", "Invalid JSON body"},
		{"string body", `"hello"`, "body", "Invalid JSON body"},
		{"missing messages", `{}`, "messages", "'messages'"},
		{"empty messages", `{"messages":[]}`, "messages", "'messages' must be a non-empty array"},
		{"messages not array", `{"messages":"hi"}`, "messages", "'messages'"},
		{"message not object", `{"messages":["hi"]}`, "messages[0]", "messages[0] must be an object"},
		{"bad role", `{"messages":[{"role":"user","content":"a"},{"role":"tool","content":"b"}]}`, "messages[1].role", "messages[1].role must be system|user|assistant"},
		{"missing role", `{"messages":[{"content":"b"}]}`, "messages[0].role", "role"},
		{"blank content", `{"messages":[{"role":"user","content":"   "}]}`, "messages[0].content", "messages[0].content must be a non-empty string"},
		{"numeric content", `{"messages":[{"role":"user","content":5}]}`, "messages[0].content", "content"},
		{"temperature too high", `{"messages":[{"role":"user","content":"a"}],"temperature":2.01}`, "temperature", "between 0 and 2"},
		{"temperature negative", `{"messages":[{"role":"user","content":"a"}],"temperature":-0.1}`, "temperature", "between 0 and 2"},
		{"temperature string", `{"messages":[{"role":"user","content":"a"}],"temperature":"hot"}`, "temperature", "'temperature' must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChatRequest(decode(t, tt.body))
			requireValidation(t, err, tt.field, tt.contains)
		})
	}
}

func TestParseChatRequest_NonFiniteTemperature(t *testing.T) {
	body := map[string]any{
		"messages":    []any{map[string]any{"role": "user", "content": "a"}},
		"temperature": math.Inf(1),
	}
	_, err := ParseChatRequest(body)
	requireValidation(t, err, "temperature", "must be a number")
}

func TestParseChatRequest_DoesNotMutateInput(t *testing.T) {
	body := decode(t, `{"messages":[{"role":"user","content":" hi "}],"model":"  "}`)
	before, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := ParseChatRequest(body)
	require.NoError(t, err)
	assert.Equal(t, DefaultChatModel, req.Model, "blank model falls back to default")

	after, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestParseChatRequest_NonStringModelIgnored(t *testing.T) {
	req, err := ParseChatRequest(decode(t, `{"messages":[{"role":"user","content":"a"}],"model":42}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultChatModel, req.Model)
}

func TestParseImageRequest(t *testing.T) {
	req, err := ParseImageRequest(decode(t, `{"prompt":"a red fox"}`))
	require.NoError(t, err)
	assert.Equal(t, "a red fox", req.Prompt)
	assert.Equal(t, DefaultImageModel, req.Model)

	req, err = ParseImageRequest(decode(t, `{"prompt":" fox ","model":"imagen-custom"}`))
	require.NoError(t, err)
	assert.Equal(t, " fox ", req.Prompt)
	assert.Equal(t, "imagen-custom", req.Model)
}

func TestParseImageRequest_Violations(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		contains string
	}{
		{"empty prompt", map[string]any{"prompt": ""}, "'prompt' must be a non-empty string"},
		{"blank prompt", map[string]any{"prompt": " \n\t"}, "'prompt' must be a non-empty string"},
		{"missing prompt", map[string]any{}, "'prompt'"},
		{"numeric prompt", map[string]any{"prompt": 12.0}, "'prompt'"},
		{"too long", map[string]any{"prompt": strings.Repeat("a", MaxPromptChars+1)}, "too long (max 4000 chars)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseImageRequest(tt.body)
			requireValidation(t, err, "prompt", tt.contains)
		})
	}

	_, err := ParseImageRequest(nil)
	requireValidation(t, err, "body", "Invalid JSON body")
}

func TestParseImageRequest_LengthUsesUntrimmedPrompt(t *testing.T) {
	exact := strings.Repeat("b", MaxPromptChars)
	_, err := ParseImageRequest(map[string]any{"prompt": exact})
	require.NoError(t, err)

	// Whitespace counts toward the limit even though it would be trimmed.
	padded := " " + exact
	_, err = ParseImageRequest(map[string]any{"prompt": padded})
	requireValidation(t, err, "prompt", "too long")

	// Limit is in characters, not bytes.
	multibyte := strings.Repeat("é", MaxPromptChars)
	_, err = ParseImageRequest(map[string]any{"prompt": multibyte})
	assert.NoError(t, err)
}

func TestParseImageRequest_SupplementaryCharactersCountTwice(t *testing.T) {
	half := MaxPromptChars / 2

	_, err := ParseImageRequest(map[string]any{"prompt": strings.Repeat("🦊", half)})
	require.NoError(t, err)

	_, err = ParseImageRequest(map[string]any{"prompt": strings.Repeat("🦊", half+1)})
	requireValidation(t, err, "prompt", "too long (max 4000 chars)")

	_, err = ParseImageRequest(map[string]any{"prompt": strings.Repeat("🦊", half) + "a"})
	requireValidation(t, err, "prompt", "too long")
}
