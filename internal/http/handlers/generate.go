package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/gemini-studio/internal/generation"
	"github.com/wolfman30/gemini-studio/internal/observability/metrics"
	"github.com/wolfman30/gemini-studio/internal/ratelimit"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

const (
	endpointChat  = "chat"
	endpointImage = "image"

	defaultMaxBodyBytes = 1 << 20
)

// User-facing messages.
const (
	msgQuotaLocal    = "Quota reached: please wait a minute and try again."
	msgInvalidJSON   = "Invalid JSON body."
	msgBodyTooLarge  = "Request body too large."
	msgNoContent     = "At least one non-system message is required."
	msgMissingKey    = "Server is missing GEMINI_API_KEY."
	msgInvalidKey    = "Invalid API key. Create a key in Google AI Studio and set GEMINI_API_KEY in the server environment."
	msgQuotaUpstream = "Quota reached. Please wait a bit and try again (or check your AI Studio quota)."
	msgChatFailed    = "Chat request failed. Please try again."
	msgImageFailed   = "Image request failed. Please try again."
	msgNoText        = "No text response returned by the model."
	msgNoImage       = "No image data returned by the model. Try a different prompt or model."
)

// Generator runs validated generation requests.
type Generator interface {
	Chat(ctx context.Context, req generation.ChatRequest) (string, error)
	Image(ctx context.Context, req generation.ImageRequest) (*generation.GeneratedImage, error)
}

// GenerateConfig holds the handler limits.
type GenerateConfig struct {
	ChatLimit    int
	ImageLimit   int
	Window       time.Duration
	MaxBodyBytes int64
	// Production hides upstream debug detail from responses.
	Production bool
}

// GenerateHandler serves the chat and image endpoints.
type GenerateHandler struct {
	generator Generator
	limiter   *ratelimit.Limiter
	cfg       GenerateConfig
	logger    *logging.Logger
	metrics   *metrics.GenerationMetrics
	now       func() time.Time
}

// NewGenerateHandler wires the chat and image endpoints.
func NewGenerateHandler(generator Generator, limiter *ratelimit.Limiter, cfg GenerateConfig, logger *logging.Logger, m *metrics.GenerationMetrics) *GenerateHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if limiter == nil {
		limiter = ratelimit.NewLimiter(nil)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &GenerateHandler{
		generator: generator,
		limiter:   limiter,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

type chatResponse struct {
	Text string `json:"text"`
}

type imageResponse struct {
	Images []generation.GeneratedImage `json:"images"`
}

// Chat handles POST /api/chat.
func (h *GenerateHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r, endpointChat, h.cfg.ChatLimit) {
		return
	}
	body, ok := h.decodeBody(w, r, endpointChat)
	if !ok {
		return
	}
	req, err := generation.ParseChatRequest(body)
	if err != nil {
		h.fail(w, endpointChat, err)
		return
	}

	text, err := h.generator.Chat(r.Context(), req)
	if err != nil {
		h.fail(w, endpointChat, err)
		return
	}
	h.respond(w, endpointChat, http.StatusOK, chatResponse{Text: text})
}

// Image handles POST /api/image.
func (h *GenerateHandler) Image(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r, endpointImage, h.cfg.ImageLimit) {
		return
	}
	body, ok := h.decodeBody(w, r, endpointImage)
	if !ok {
		return
	}
	req, err := generation.ParseImageRequest(body)
	if err != nil {
		h.fail(w, endpointImage, err)
		return
	}

	img, err := h.generator.Image(r.Context(), req)
	if err != nil {
		h.fail(w, endpointImage, err)
		return
	}
	h.respond(w, endpointImage, http.StatusOK, imageResponse{Images: []generation.GeneratedImage{*img}})
}

// admit runs the local rate limiter and writes the 429 when the caller is over quota.
func (h *GenerateHandler) admit(w http.ResponseWriter, r *http.Request, endpoint string, limit int) bool {
	key := ratelimit.Key(ratelimit.ClientIdentity(r), endpoint)
	res := h.limiter.Check(r.Context(), key, limit, h.cfg.Window)
	if !res.Unlimited {
		setRateLimitHeaders(w, res)
	}
	if res.Allowed {
		return true
	}

	h.metrics.ObserveRateLimited(endpoint)
	h.logger.With("endpoint", endpoint).Info("request rate limited", "key", key, "reset_at", res.ResetAt)
	h.fail(w, endpoint, &generation.RateLimitedError{Endpoint: endpoint, ResetAt: res.ResetAt})
	return false
}

func (h *GenerateHandler) decodeBody(w http.ResponseWriter, r *http.Request, endpoint string) (any, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respond(w, endpoint, http.StatusRequestEntityTooLarge, errorResponse{Error: msgBodyTooLarge})
			return nil, false
		}
		h.respond(w, endpoint, http.StatusBadRequest, errorResponse{Error: msgInvalidJSON})
		return nil, false
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		h.respond(w, endpoint, http.StatusBadRequest, errorResponse{Error: msgInvalidJSON})
		return nil, false
	}
	return body, true
}

// fail maps err onto the endpoint's error response.
func (h *GenerateHandler) fail(w http.ResponseWriter, endpoint string, err error) {
	var (
		validation  *generation.ValidationError
		limited     *generation.RateLimitedError
		upstreamErr *generation.UpstreamError
	)
	log := h.logger.With("endpoint", endpoint)

	switch {
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", retryAfter(limited.ResetAt, h.now()))
		h.respond(w, endpoint, http.StatusTooManyRequests, errorResponse{
			Error:   msgQuotaLocal,
			ResetAt: limited.ResetAt.UnixMilli(),
		})
		return
	case errors.As(err, &validation):
		h.respond(w, endpoint, http.StatusBadRequest, errorResponse{Error: validation.Message})
		return
	case errors.Is(err, generation.ErrNoContent):
		h.respond(w, endpoint, http.StatusBadRequest, errorResponse{Error: msgNoContent})
		return
	case errors.Is(err, generation.ErrMissingCredential):
		log.Error("generation unavailable: missing api key")
		h.respond(w, endpoint, http.StatusInternalServerError, errorResponse{Error: msgMissingKey})
		return
	case errors.Is(err, generation.ErrEmptyResponse):
		log.Warn("model returned no text")
		h.respond(w, endpoint, http.StatusBadGateway, errorResponse{Error: msgNoText})
		return
	case errors.Is(err, generation.ErrNoImageData):
		log.Warn("model returned no image data")
		h.respond(w, endpoint, http.StatusBadGateway, errorResponse{Error: msgNoImage})
		return
	}

	if errors.As(err, &upstreamErr) {
		log = log.With(upstreamAttrs(upstreamErr)...)
		switch upstreamErr.Kind {
		case generation.KindInvalidCredential:
			log.Error("upstream rejected api key")
			h.respond(w, endpoint, http.StatusUnauthorized, errorResponse{Error: msgInvalidKey})
			return
		case generation.KindQuota:
			log.Warn("upstream quota exhausted", "error", upstreamErr.Raw)
			if s := upstreamErr.Info.RetryAfterSeconds; s != nil {
				w.Header().Set("Retry-After", strconv.Itoa(*s))
			}
			h.respond(w, endpoint, http.StatusTooManyRequests, errorResponse{
				Error: msgQuotaUpstream,
				Debug: h.debug(upstreamErr.DebugMessage()),
			})
			return
		}
	}

	debug := err.Error()
	if upstreamErr != nil {
		debug = upstreamErr.DebugMessage()
	} else {
		log = log.With("kind", generation.KindUnclassified)
	}
	log.Error("generation request failed", "error", err)
	msg := msgChatFailed
	if endpoint == endpointImage {
		msg = msgImageFailed
	}
	h.respond(w, endpoint, http.StatusInternalServerError, errorResponse{Error: msg, Debug: h.debug(debug)})
}

// upstreamAttrs lists the log fields for a classified upstream failure. The
// envelope fields are only present when the payload parsed.
func upstreamAttrs(err *generation.UpstreamError) []any {
	attrs := []any{"kind", err.Kind}
	if err.Info.IsEmpty() {
		return append(attrs, "upstream_parsed", false)
	}
	if err.Info.Code != nil {
		attrs = append(attrs, "upstream_code", *err.Info.Code)
	}
	if err.Info.Status != "" {
		attrs = append(attrs, "upstream_status", err.Info.Status)
	}
	return attrs
}

func (h *GenerateHandler) debug(detail string) string {
	if h.cfg.Production {
		return ""
	}
	return detail
}

func (h *GenerateHandler) respond(w http.ResponseWriter, endpoint string, status int, payload any) {
	h.metrics.ObserveRequest(endpoint, status)
	writeJSON(w, status, payload)
}
