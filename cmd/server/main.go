// Package main starts the booking API service process lifecycle.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aeroclub/slotbooking/internal/booking/app"
	"github.com/aeroclub/slotbooking/internal/platform/config"
)

func main() {
	cfg, err := app.LoadServerConfig()
	if err != nil {
		config.Exitf("load config: %v", err)
	}
	log.SetPrefix("[SERVER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunServer(ctx, cfg); err != nil {
		config.Exitf("failed to serve: %v", err)
	}
}
