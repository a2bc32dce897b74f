// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	portalv1 "github.com/gurkanbulca/teamportal/api/portal/v1"
	"github.com/gurkanbulca/teamportal/internal/config"
	"github.com/gurkanbulca/teamportal/internal/database"
	"github.com/gurkanbulca/teamportal/internal/docstore"
	"github.com/gurkanbulca/teamportal/internal/httpapi"
	"github.com/gurkanbulca/teamportal/internal/middleware"
	"github.com/gurkanbulca/teamportal/internal/service"
	"github.com/gurkanbulca/teamportal/pkg/auth"
	"github.com/gurkanbulca/teamportal/pkg/email"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close document store: %v", err)
		}
	}()

	tokenManager, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenDuration)
	if err != nil {
		log.Fatalf("Failed to create token manager: %v", err)
	}

	services := service.New(store, service.Options{
		GraceWindow:    cfg.Lifecycle.GraceWindow,
		Calendar:       cfg.Calendar(),
		MaxOccurrences: cfg.Lifecycle.MaxOccurrences,
		NotifyTimeout:  cfg.Lifecycle.NotifyTimeout,
		Mailer:         newMailer(ctx, cfg),
	})

	metadataExtractor := middleware.NewMetadataExtractorInterceptor()
	authInterceptor := middleware.NewAuthInterceptor(tokenManager)
	validationInterceptor := middleware.NewValidationInterceptor(nil)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			metadataExtractor.Unary(),
			validationInterceptor.Unary(),
			authInterceptor.Unary(),
			middleware.LoggingInterceptor,
		),
		grpc.ChainStreamInterceptor(
			metadataExtractor.Stream(),
			validationInterceptor.Stream(),
			authInterceptor.Stream(),
			middleware.StreamLoggingInterceptor,
		),
	)

	portalv1.RegisterTaskServiceServer(grpcServer, service.NewTaskService(services))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(portalv1.TaskService_ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	if cfg.Server.EnableReflection {
		reflection.Register(grpcServer)
		log.Println("gRPC reflection enabled (disable in production)")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Server.GRPCPort))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler: httpapi.New(services, tokenManager).Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("🚀 TeamPortal gRPC server listening on port %s", cfg.Server.GRPCPort)
		return grpcServer.Serve(listener)
	})
	g.Go(func() error {
		log.Printf("🌐 TeamPortal HTTP API listening on port %s", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("📴 Shutting down server...")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown: %v", err)
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
	log.Println("✅ Server shutdown complete")
}

// openStore connects the document store selected by DB_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Println("Using in-memory document store (data is lost on exit)")
		return docstore.NewMemoryStore(), nil
	}

	db, dialect, err := database.Open(cfg.ToDatabaseConfig())
	if err != nil {
		return nil, err
	}
	backend, err := docstore.NewSQLStore(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		log.Println("🔄 Ensuring document schema...")
		if err := backend.EnsureSchema(ctx); err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return docstore.NewBus(backend), nil
}

// newMailer returns the SMTP mailer when e-mail is enabled.
func newMailer(ctx context.Context, cfg *config.Config) email.Sender {
	if !cfg.Email.Enabled {
		log.Println("E-mail notifications disabled")
		return nil
	}

	smtpService := email.NewSMTPEmailService(cfg.ToEmailConfig())
	if err := smtpService.TestConnection(ctx); err != nil {
		log.Printf("Warning: SMTP connection test failed: %v", err)
	} else {
		log.Println("SMTP connection test successful")
	}
	return smtpService
}
