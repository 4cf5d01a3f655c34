package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"own-ai-chat/internal/bootstrap"
	"own-ai-chat/internal/config"
	"own-ai-chat/internal/model"
	"own-ai-chat/internal/server"
	"own-ai-chat/internal/tracer"
	"own-ai-chat/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()

	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Auth.JwtSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	// 2. Initialize Database
	gormDB, err := database.Open(cfg.Database.Driver, cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	if cfg.Database.Driver == database.DriverSQLite {
		if err := model.AutoMigrate(gormDB); err != nil {
			log.Panicf("Unable to migrate sqlite schema: %v", err)
		}
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if container.ConsumerService != nil {
		log.Println("Background: Starting Embedding Consumer...")
		if err := container.ConsumerService.Consume(ctx); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	container.Close()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = shutdownTracer(flushCtx)
}
