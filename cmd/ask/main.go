// Command ask sends one prompt to the configured response backend and prints
// the answer. With the default canned backend it shows which paragraph the
// chat would return.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/RichardoC/coding-agent/internal/config"
	"github.com/RichardoC/coding-agent/internal/llm"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "coding-agent.toml", "path to the TOML config file")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "usage: ask [-config file] prompt...")
		os.Exit(2)
	}

	cfg, err := config.LoadFromPath(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	service, err := llm.New(cfg.LLM, 0)
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}

	completion, err := service.Respond(context.Background(), prompt, nil)
	if err != nil {
		logger.Fatal("failed to generate completion", zap.Error(err))
	}
	fmt.Println(completion)
}
