package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	legacygenai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wolfman30/gemini-studio/internal/generation"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

// ErrModalitiesUnsupported is returned by LegacyClient for any config that
// requests response modalities.
var ErrModalitiesUnsupported = errors.New("gemini: response modalities are not supported by the legacy SDK")

// LegacyClient implements generation.ModelClient with the
// github.com/google/generative-ai-go SDK.
type LegacyClient struct {
	client *legacygenai.Client
	logger *logging.Logger
}

// NewLegacyClient creates a client for the older SDK.
func NewLegacyClient(ctx context.Context, apiKey string, logger *logging.Logger) (*LegacyClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := legacygenai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create legacy client: %w", err)
	}
	return &LegacyClient{client: client, logger: logger}, nil
}

// GenerateContent replays all but the last turn as chat history and sends the
// last turn as the new message.
func (c *LegacyClient) GenerateContent(ctx context.Context, model string, contents []generation.Content, cfg *generation.GenerateConfig) (*generation.GenerateResult, error) {
	if cfg != nil && len(cfg.ResponseModalities) > 0 {
		return nil, ErrModalitiesUnsupported
	}
	if len(contents) == 0 {
		return nil, errors.New("gemini: at least one content is required")
	}

	history, err := toLegacyContents(contents[:len(contents)-1])
	if err != nil {
		return nil, err
	}
	last, err := toLegacyParts(contents[len(contents)-1].Parts)
	if err != nil {
		return nil, err
	}

	gm := c.client.GenerativeModel(model)
	applyLegacyConfig(gm, cfg)

	cs := gm.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, last...)
	if err != nil {
		c.logger.Debug("gemini legacy generate content failed", "model", model, "error", err)
		return nil, fromGoogleAPI(err)
	}
	return fromLegacyResponse(resp), nil
}

// Close releases the underlying connection.
func (c *LegacyClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func applyLegacyConfig(gm *legacygenai.GenerativeModel, cfg *generation.GenerateConfig) {
	if cfg == nil {
		return
	}
	if cfg.Temperature != nil {
		gm.SetTemperature(float32(*cfg.Temperature))
	}
	if cfg.SystemInstruction != "" {
		gm.SystemInstruction = legacygenai.NewUserContent(legacygenai.Text(cfg.SystemInstruction))
	}
}

func toLegacyContents(contents []generation.Content) ([]*legacygenai.Content, error) {
	out := make([]*legacygenai.Content, 0, len(contents))
	for _, content := range contents {
		parts, err := toLegacyParts(content.Parts)
		if err != nil {
			return nil, err
		}
		out = append(out, &legacygenai.Content{Role: content.Role, Parts: parts})
	}
	return out, nil
}

func toLegacyParts(parts []generation.Part) ([]legacygenai.Part, error) {
	out := make([]legacygenai.Part, 0, len(parts))
	for _, part := range parts {
		if part.InlineData != nil {
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini: decode inline data: %w", err)
			}
			out = append(out, legacygenai.Blob{MIMEType: part.InlineData.MIMEType, Data: data})
			continue
		}
		out = append(out, legacygenai.Text(part.Text))
	}
	return out, nil
}

func fromLegacyResponse(resp *legacygenai.GenerateContentResponse) *generation.GenerateResult {
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
			switch p := part.(type) {
			case legacygenai.Text:
				converted.Parts = append(converted.Parts, generation.Part{Text: string(p)})
				text.WriteString(string(p))
			case legacygenai.Blob:
				converted.Parts = append(converted.Parts, generation.Part{InlineData: &generation.InlineData{
					MIMEType: p.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(p.Data),
				}})
			}
		}
		if i == 0 {
			result.Text = text.String()
		}
		result.Candidates = append(result.Candidates, generation.Candidate{Content: converted})
	}
	return result
}
