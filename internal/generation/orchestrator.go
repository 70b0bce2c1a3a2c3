package generation

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/gemini-studio/internal/observability/metrics"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

var generationTracer = otel.Tracer("studio.internal.generation")

// Orchestrator turns validated requests into model client calls.
type Orchestrator struct {
	client  ModelClient
	logger  *logging.Logger
	metrics *metrics.GenerationMetrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records upstream calls and fallback transitions.
func WithMetrics(m *metrics.GenerationMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates an orchestrator. A nil client makes every call fail
// with ErrMissingCredential.
func NewOrchestrator(client ModelClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client: client,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// BuildChatCall maps a chat request to upstream turns and config. System
// messages are merged into the system instruction and never sent as turns.
func BuildChatCall(req ChatRequest) ([]Content, *GenerateConfig, error) {
	var system []string
	contents := make([]Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := ContentRoleUser
		if m.Role == RoleAssistant {
			role = ContentRoleModel
		}
		contents = append(contents, Content{Role: role, Parts: []Part{{Text: m.Content}}})
	}
	if len(contents) == 0 {
		return nil, nil, ErrNoContent
	}

	temperature := req.Temperature
	cfg := &GenerateConfig{
		Temperature:       &temperature,
		SystemInstruction: strings.TrimSpace(strings.Join(system, "\n")),
	}
	return contents, cfg, nil
}

// Chat runs a single chat completion and returns the trimmed response text.
func (o *Orchestrator) Chat(ctx context.Context, req ChatRequest) (string, error) {
	ctx, span := generationTracer.Start(ctx, "generation.chat",
		trace.WithAttributes(
			attribute.String("generation.model", req.Model),
			attribute.Int("generation.messages", len(req.Messages)),
		),
	)
	defer span.End()

	contents, cfg, err := BuildChatCall(req)
	if err != nil {
		return "", err
	}
	if o.client == nil {
		return "", ErrMissingCredential
	}

	res, err := o.call(ctx, req.Model, contents, cfg)
	if err != nil {
		classified := ClassifyFailure(err)
		span.RecordError(classified)
		span.SetStatus(codes.Error, "chat generation failed")
		return "", classified
	}

	text := strings.TrimSpace(res.ResponseText())
	if text == "" {
		span.SetStatus(codes.Error, "empty response")
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Image generates one image, walking the quota fallback chain when the
// default image model is exhausted.
func (o *Orchestrator) Image(ctx context.Context, req ImageRequest) (*GeneratedImage, error) {
	ctx, span := generationTracer.Start(ctx, "generation.image",
		trace.WithAttributes(attribute.String("generation.model", req.Model)),
	)
	defer span.End()

	if o.client == nil {
		return nil, ErrMissingCredential
	}

	contents := []Content{{Role: ContentRoleUser, Parts: []Part{{Text: req.Prompt}}}}
	stage := stagePrimary
	for {
		attempt := attemptFor(stage, req)
		span.AddEvent("image.attempt", trace.WithAttributes(
			attribute.String("image.stage", stage.String()),
			attribute.String("image.model", attempt.Model),
		))

		res, err := o.call(ctx, attempt.Model, contents, attempt.Config)
		if err == nil {
			img, ok := res.FirstInlineImage()
			if !ok {
				span.SetStatus(codes.Error, "no image data")
				return nil, ErrNoImageData
			}
			span.SetAttributes(attribute.String("image.final_stage", stage.String()))
			return img, nil
		}

		next, ok := nextImageStage(stage, req.Model, err)
		if !ok {
			classified := ClassifyFailure(err)
			span.RecordError(classified)
			span.SetStatus(codes.Error, "image generation failed")
			return nil, classified
		}

		o.logger.Warn("image generation falling back",
			"from", stage.String(),
			"to", next.String(),
			"requested_model", req.Model,
			"error", err.Error(),
		)
		o.metrics.ObserveFallback(stage.String(), next.String())
		stage = next
	}
}

func (o *Orchestrator) call(ctx context.Context, model string, contents []Content, cfg *GenerateConfig) (*GenerateResult, error) {
	start := time.Now()
	res, err := o.client.GenerateContent(ctx, model, contents, cfg)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.metrics.ObserveUpstreamCall(model, outcome, time.Since(start).Seconds())
	return res, err
}
