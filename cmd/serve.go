package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gmessner/simple-cr/config"
	"github.com/gmessner/simple-cr/internal/entities"
	"github.com/gmessner/simple-cr/internal/gitlab"
	"github.com/gmessner/simple-cr/internal/mailer"
	api "github.com/gmessner/simple-cr/internal/oapi"
	"github.com/gmessner/simple-cr/internal/repository"
	"github.com/gmessner/simple-cr/internal/reviewers"
	"github.com/gmessner/simple-cr/internal/signedlink"
	"github.com/gmessner/simple-cr/internal/transport/http/middleware"
	handlers_fiber "github.com/gmessner/simple-cr/internal/transport/http/server/handlers-fiber"
	"github.com/gmessner/simple-cr/internal/usecase"
	"github.com/gmessner/simple-cr/internal/usecase/domain"
	"github.com/gmessner/simple-cr/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and review form HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	repo, err := repository.New(ctx, cfg.Storage.Backend, log, cfg)
	if err != nil {
		log.Errorw("repository initialization error", "error", err)
		return err
	}
	if err := repo.OnStart(ctx); err != nil {
		log.Errorw("repository start error", "error", err)
		return err
	}
	defer func() {
		_ = repo.OnStop(context.Background())
	}()

	gl, err := gitlab.New(log, cfg.GitLab)
	if err != nil {
		return fmt.Errorf("gitlab client: %w", err)
	}
	notifier, err := mailer.New(log, cfg.SMTP)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	codec, err := signedlink.New([]byte(cfg.Review.SigningSecret))
	if err != nil {
		return err
	}

	uc := usecase.New(log, domain.Deps{
		Repo:     repo,
		GitLab:   gl,
		Notifier: notifier,
		Resolver: reviewers.New(log, gl, entities.ParseAddressList(cfg.Review.DefaultReviewers)),
		Codec:    codec,
	}, domain.Settings{
		ProtectedBranch:     cfg.Review.ProtectedBranch,
		DefaultTargetBranch: cfg.Review.DefaultTargetBranch,
		TargetBranchRegex:   cfg.Review.TargetBranchRegex,
		PublicURL:           cfg.Review.PublicURL,
		GitLabWebURL:        cfg.GitLab.PublicWebURL(),
		WebhookURL:          cfg.WebhookURL(),
		WebhookSecret:       cfg.GitLab.WebhookSecret,
	}, cfg.HTTP.RequestTimeout, cfg.Review.EventTimeout)

	serv := fiber.New(fiber.Config{
		AppName:      "simple-cr",
		ReadTimeout:  cfg.HTTP.RequestTimeout,
		WriteTimeout: cfg.HTTP.RequestTimeout,
	})
	serv.Use(recover.New())
	serv.Use(requestid.New())
	serv.Use(middleware.RequestLogger(log))

	serv.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	warnUnauthenticatedHooks(log, cfg.GitLab)
	h := handlers_fiber.NewHandler(log, uc, gitlab.NewWebhookParser(cfg.GitLab.WebhookSecret))
	api.RegisterHandlers(serv, h)

	go func() {
		if err := serv.Listen(cfg.ServerAddr()); err != nil {
			log.Errorw("failed to start server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = serv.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warnw("server shutdown timeout", "timeout", cfg.Server.ShutdownTimeout)
	}
	return nil
}

// warnUnauthenticatedHooks reports a blank webhook secret, which leaves
// push and merge request deliveries unauthenticated.
func warnUnauthenticatedHooks(log *zap.SugaredLogger, cfg config.GitLabConfig) bool {
	if cfg.WebhookSecret != "" {
		return false
	}
	log.Warnw("gitlab.webhook_secret is empty, webhook deliveries are not authenticated", "base_url", cfg.BaseURL)
	return true
}
