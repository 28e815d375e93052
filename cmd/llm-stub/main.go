package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/andyarntsen-alt/jobbstart-sub001/internal/generate"
	"github.com/andyarntsen-alt/jobbstart-sub001/internal/httpapi"
)

// llm-stub serves a fake OpenAI-compatible endpoint so the generator can
// be exercised locally:
//
//	go run ./cmd/llm-stub &
//	LLM_BASE_URL=http://localhost:8081/v1 QUOTA_BACKEND=memory go run ./cmd/jobbstart serve
func main() {
	logger := logrus.New()

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := httpapi.NewServer(addr, generate.StubUpstream(logger))
	if err := httpapi.Run(ctx, srv, logger); err != nil {
		logger.WithError(err).Fatal("llm stub stopped")
	}
}
