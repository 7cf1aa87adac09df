package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"workflow-assist/backend/internal/api"
	"workflow-assist/backend/internal/config"
	"workflow-assist/backend/internal/events"
	"workflow-assist/backend/internal/logging"
	"workflow-assist/backend/internal/mcp"
	"workflow-assist/backend/internal/repository"
	"workflow-assist/backend/internal/services"
	"workflow-assist/backend/internal/tls"
)

const serviceName = "workflow-assist"

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	logger.Info("Starting workflow assist service",
		"version", api.Version,
		"provider", cfg.Generation.Provider,
		"model", cfg.Generation.Model,
		"enrich", cfg.Delivery.Enrich,
	)

	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	logger.Info("Database connected")

	if err := repository.Migrate(ctx, dbPool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store := repository.NewPostgresWorkflowStore(dbPool)

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	mailer, err := services.NewResendMailer(cfg.Email.APIKey, cfg.Email.BaseURL)
	if err != nil {
		return err
	}

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	workflowService, err := services.NewWorkflowService(store, generator, mailer, publisher, logger, services.Options{
		StepCount:         cfg.Generation.StepCount,
		MaxTextLength:     cfg.Workflow.MaxTextLength,
		Enrich:            cfg.Delivery.Enrich,
		EmailFrom:         cfg.Email.From,
		EmailSubject:      cfg.Email.Subject,
		GenerationTimeout: cfg.Generation.Timeout,
		StorageTimeout:    cfg.DB.Timeout,
		EmailTimeout:      cfg.Email.Timeout,
		EventTimeout:      cfg.Events.Timeout,
	})
	if err != nil {
		return err
	}
	logger.Info("Service layer initialized")

	e := api.NewEcho(serviceName, logger)
	api.RegisterRoutes(e, api.NewHandler(workflowService, store, logger))
	logger.Info("REST API handlers mounted")

	mcpServer := mcp.NewServer(workflowService, api.Version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))
	logger.Info("MCP protocol handlers mounted")

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.TLS.Enable {
		generated, err := tls.EnsureCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			return fmt.Errorf("prepare TLS certificate: %w", err)
		}
		if generated {
			logger.Warn("Generated self-signed certificate", "cert_file", cfg.TLS.CertFile, "hostnames", cfg.TLS.Hostnames)
		}
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", server.Addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		if err := server.Close(); err != nil {
			logger.Error("Server close error", "error", err)
		}
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func newGenerator(ctx context.Context, cfg *config.Config) (services.Generator, error) {
	gen := cfg.Generation
	switch gen.Provider {
	case config.ProviderGenAI:
		return services.NewGenAIGenerator(ctx, gen.APIKey, gen.Model, gen.BaseURL, gen.Temperature, gen.MaxTokens)
	default:
		var opts []option.RequestOption
		if gen.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(gen.BaseURL))
		}
		return services.NewAnthropicGenerator(gen.APIKey, gen.Model, gen.Temperature, gen.MaxTokens, opts...)
	}
}

type publisher interface {
	services.EventPublisher
	Close() error
}

func newPublisher(cfg *config.Config, logger *logging.Logger) publisher {
	if len(cfg.Events.Brokers) == 0 {
		logger.Info("No event brokers configured, events disabled")
		return events.NopPublisher{}
	}
	logger.Info("Publishing events", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
	return events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.Timeout)
}
