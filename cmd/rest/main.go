package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"intelligencehub-console/internal/bootstrap"
	"intelligencehub-console/internal/config"
	"intelligencehub-console/internal/server"
	"intelligencehub-console/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer, err := tracer.Init(context.Background(), tracer.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "intelligencehub-console",
		Environment: cfg.App.Environment,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Printf("Warning: %v (tracing disabled)", err)
	}
	defer shutdownTracer(context.Background())

	// 2. External connections
	infra := bootstrap.NewInfrastructure(cfg)
	defer infra.Close()

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg, infra)
	defer container.Close()

	// 4. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Background: Starting session consumer, websocket hub and audit...")
	if err := container.Start(ctx); err != nil {
		log.Panicf("Unable to start background services: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Fatal(err)
	}
}
