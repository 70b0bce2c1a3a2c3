package generation

import (
	"context"
	"strings"
)

// Upstream turn roles.
const (
	ContentRoleUser  = "user"
	ContentRoleModel = "model"
)

// Response modalities understood by the image models.
const (
	ModalityText  = "TEXT"
	ModalityImage = "IMAGE"
)

// InlineData is a base64-encoded payload embedded in a response part.
type InlineData struct {
	MIMEType string
	Data     string
}

// Part is either text or inline data.
type Part struct {
	Text       string
	InlineData *InlineData
}

// Content is one upstream turn.
type Content struct {
	Role  string
	Parts []Part
}

// GenerateConfig carries optional generation settings. A nil config means the
// upstream defaults apply.
type GenerateConfig struct {
	Temperature        *float64
	SystemInstruction  string
	ResponseModalities []string
}

// Candidate is one generated alternative.
type Candidate struct {
	Content Content
}

// GenerateResult is the upstream response.
type GenerateResult struct {
	Text       string
	Candidates []Candidate
}

// ModelClient calls the generative model. Implementations must return errors
// whose Error() string is the upstream error payload so it can be classified.
type ModelClient interface {
	GenerateContent(ctx context.Context, model string, contents []Content, cfg *GenerateConfig) (*GenerateResult, error)
}

// ResponseText returns the result text, falling back to the concatenated
// text parts of the first candidate when the client left Text empty.
func (r *GenerateResult) ResponseText() string {
	if r == nil {
		return ""
	}
	if r.Text != "" {
		return r.Text
	}
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// FirstInlineImage returns the first part across all candidates that carries
// both a MIME type and data.
func (r *GenerateResult) FirstInlineImage() (*GeneratedImage, bool) {
	if r == nil {
		return nil, false
	}
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			if p.InlineData == nil || p.InlineData.MIMEType == "" || p.InlineData.Data == "" {
				continue
			}
			return &GeneratedImage{
				MIMEType: p.InlineData.MIMEType,
				DataURL:  "data:" + p.InlineData.MIMEType + ";base64," + p.InlineData.Data,
			}, true
		}
	}
	return nil, false
}
