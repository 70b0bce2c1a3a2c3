// Package gemini adapts the Google Gemini SDKs to generation.ModelClient.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/wolfman30/gemini-studio/internal/generation"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

// contentGenerator is the subset of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements generation.ModelClient on top of google.golang.org/genai.
type Client struct {
	models contentGenerator
	logger *logging.Logger
}

// NewClient creates a Gemini API client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	return &Client{models: client.Models, logger: logger}, nil
}

// GenerateContent sends one request upstream. API errors are returned as
// *ResponseError whose message is the upstream error envelope.
func (c *Client) GenerateContent(ctx context.Context, model string, contents []generation.Content, cfg *generation.GenerateConfig) (*generation.GenerateResult, error) {
	req, err := toGenAIContents(contents)
	if err != nil {
		return nil, err
	}

	resp, err := c.models.GenerateContent(ctx, model, req, toGenAIConfig(cfg))
	if err != nil {
		c.logger.Debug("gemini generate content failed", "model", model, "error", err)
		return nil, fromGenAI(err)
	}
	return fromGenAIResponse(resp), nil
}

func toGenAIContents(contents []generation.Content) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(contents))
	for _, content := range contents {
		parts := make([]*genai.Part, 0, len(content.Parts))
		for _, part := range content.Parts {
			if part.InlineData != nil {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("gemini: decode inline data: %w", err)
				}
				parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: part.InlineData.MIMEType, Data: data}})
				continue
			}
			parts = append(parts, &genai.Part{Text: part.Text})
		}
		out = append(out, &genai.Content{Role: content.Role, Parts: parts})
	}
	return out, nil
}

// toGenAIConfig returns nil for a nil config so the upstream defaults apply.
func toGenAIConfig(cfg *generation.GenerateConfig) *genai.GenerateContentConfig {
	if cfg == nil {
		return nil
	}
	out := &genai.GenerateContentConfig{}
	if cfg.Temperature != nil {
		t := float32(*cfg.Temperature)
		out.Temperature = &t
	}
	if cfg.SystemInstruction != "" {
		out.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstruction}}}
	}
	if len(cfg.ResponseModalities) > 0 {
		out.ResponseModalities = append([]string(nil), cfg.ResponseModalities...)
	}
	return out
}

func fromGenAIResponse(resp *genai.GenerateContentResponse) *generation.GenerateResult {
	result := &generation.GenerateResult{}
	if resp == nil {
		return result
	}
	for i, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		converted := generation.Content{Role: cand.Content.Role}
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil {
				converted.Parts = append(converted.Parts, generation.Part{InlineData: &generation.InlineData{
					MIMEType: part.InlineData.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
				}})
				continue
			}
			if part.Thought {
				continue
			}
			converted.Parts = append(converted.Parts, generation.Part{Text: part.Text})
			text.WriteString(part.Text)
		}
		if i == 0 {
			result.Text = text.String()
		}
		result.Candidates = append(result.Candidates, generation.Candidate{Content: converted})
	}
	return result
}
