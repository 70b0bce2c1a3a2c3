package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/gemini-studio/cmd/mainconfig"
	appconfig "github.com/wolfman30/gemini-studio/internal/config"
	"github.com/wolfman30/gemini-studio/internal/generation"
	"github.com/wolfman30/gemini-studio/pkg/logging"
)

func main() {
	mode := flag.String("mode", "chat", "chat or image")
	prompt := flag.String("prompt", "", "prompt to send (defaults to a canned conversation)")
	model := flag.String("model", "", "model override")
	timeout := flag.Duration("timeout", 60*time.Second, "request timeout")
	flag.Parse()

	for _, path := range []string{".env.local", ".env"} {
		if err := godotenv.Load(path); err != nil {
			log.Printf("%s not loaded, using environment variables", path)
		}
	}

	cfg := appconfig.Load()
	logger := logging.NewWithFormat("debug", "text")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	orchestrator, err := mainconfig.BuildOrchestrator(ctx, cfg, logger, nil)
	if err != nil {
		fmt.Printf("failed to build orchestrator: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("backend=%s mode=%s\n", cfg.GeminiBackend, *mode)
	start := time.Now()

	switch *mode {
	case "image":
		text := *prompt
		if text == "" {
			text = "A watercolor lighthouse at dusk"
		}
		req, err := generation.ParseImageRequest(body("prompt", text, *model))
		if err != nil {
			exit(err)
		}
		img, err := orchestrator.Image(ctx, req)
		if err != nil {
			exit(err)
		}
		fmt.Printf("image %s, %d data URL bytes (%v)\n", img.MIMEType, len(img.DataURL), time.Since(start).Round(time.Millisecond))
	default:
		messages := []any{
			map[string]any{"role": "system", "content": "You are a concise assistant."},
			map[string]any{"role": "user", "content": "Name three primary colors."},
			map[string]any{"role": "assistant", "content": "Red, yellow and blue."},
			map[string]any{"role": "user", "content": "Which of those is warmest?"},
		}
		if *prompt != "" {
			messages = []any{map[string]any{"role": "user", "content": *prompt}}
		}
		payload := map[string]any{"messages": messages}
		if *model != "" {
			payload["model"] = *model
		}
		req, err := generation.ParseChatRequest(payload)
		if err != nil {
			exit(err)
		}
		text, err := orchestrator.Chat(ctx, req)
		if err != nil {
			exit(err)
		}
		fmt.Printf("response (%v):\n%s\n", time.Since(start).Round(time.Millisecond), text)
	}
}

func body(key, value, model string) map[string]any {
	out := map[string]any{key: value}
	if strings.TrimSpace(model) != "" {
		out["model"] = model
	}
	return out
}

func exit(err error) {
	var upErr *generation.UpstreamError
	if errors.As(err, &upErr) {
		fmt.Printf("upstream %s: %s\n", upErr.Kind, upErr.DebugMessage())
	} else {
		fmt.Printf("error: %v\n", err)
	}
	os.Exit(1)
}
