package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/wolfman30/gemini-studio/cmd/mainconfig"
	appconfig "github.com/wolfman30/gemini-studio/internal/config"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)

	h, err := mainconfig.BuildRouter(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	adapter := newAdapter(h)
	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, adapter, logger, evt)
	})
}

func newAdapter(h http.Handler) *httpadapter.HandlerAdapterV2 {
	return httpadapter.NewV2(withSourceIP(h))
}

// handle proxies an API Gateway HTTP API event through the router. Events the
// adapter cannot turn into a request (a malformed base64 body) get a 400
// instead of the adapter's gateway error.
func handle(ctx context.Context, adapter *httpadapter.HandlerAdapterV2, logger *logging.Logger, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := adapter.ProxyWithContext(ctx, evt)
	if err != nil {
		logger.Warn("lambda event rejected", "path", evt.RawPath, "error", err)
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"Invalid JSON body."}`,
		}, nil
	}
	return resp, nil
}

// withSourceIP forwards the caller address API Gateway observed so rate
// limiting keys on the client, not the gateway.
func withSourceIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-For") == "" {
			if rc, ok := core.GetAPIGatewayV2ContextFromContext(r.Context()); ok {
				if ip := strings.TrimSpace(rc.HTTP.SourceIP); ip != "" {
					r.Header.Set("X-Forwarded-For", ip)
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
