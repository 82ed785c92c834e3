package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/CheckPoint/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := RunAgent(ctx, cfg, defaultAgentFactories(), agentHTTPOpts{
		swaggerPath: os.Getenv("swaggerPath"),
	}); err != nil && err != context.Canceled {
		panic(err)
	}
}
