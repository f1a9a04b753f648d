package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/core/scheduler"
	"github.com/ordforge/mint-engine/internal/config"
	"github.com/ordforge/mint-engine/internal/postgres"
	minthttphandler "github.com/ordforge/mint-engine/modules/mint/api/httphandler"
	mintpostgres "github.com/ordforge/mint-engine/modules/mint/repository/postgres"
	mintusecase "github.com/ordforge/mint-engine/modules/mint/usecase"
	studiohttphandler "github.com/ordforge/mint-engine/modules/studio/api/httphandler"
	"github.com/ordforge/mint-engine/modules/studio/generation"
	studiopostgres "github.com/ordforge/mint-engine/modules/studio/repository/postgres"
	studiousecase "github.com/ordforge/mint-engine/modules/studio/usecase"
	"github.com/ordforge/mint-engine/modules/studio/video"
	"github.com/ordforge/mint-engine/pkg/blobstore"
	"github.com/ordforge/mint-engine/pkg/errorhandler"
	"github.com/ordforge/mint-engine/pkg/logger"
	"github.com/ordforge/mint-engine/pkg/logger/slogx"
	"github.com/ordforge/mint-engine/pkg/mempool"
	"github.com/ordforge/mint-engine/pkg/middleware/requestcontext"
	"github.com/ordforge/mint-engine/pkg/middleware/requestlogger"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start mint-engine service",
		RunE:  runHandler,
	}
}

const shutdownTimeout = 60 * time.Second

func runHandler(cmd *cobra.Command, _ []string) error {
	conf := config.LoadConfig()

	if !conf.Network.IsSupported() {
		return errors.Wrapf(errs.Unsupported, "%q network is not supported", conf.Network.String())
	}

	// Initialize application process context
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, slogx.Stringer("network", conf.Network))

	injector := do.New()
	do.ProvideValue(injector, conf)

	do.ProvideNamed(injector, "mint-postgres", func(i do.Injector) (*pgxpool.Pool, error) {
		conf := do.MustInvoke[config.Config](i)
		pg, err := postgres.NewPool(ctx, conf.Modules["mint"].Postgres)
		return pg, errors.Wrap(err, "can't create mint postgres pool")
	})
	do.ProvideNamed(injector, "studio-postgres", func(i do.Injector) (*pgxpool.Pool, error) {
		conf := do.MustInvoke[config.Config](i)
		pg, err := postgres.NewPool(ctx, conf.Modules["studio"].Postgres)
		return pg, errors.Wrap(err, "can't create studio postgres pool")
	})

	do.Provide(injector, func(i do.Injector) (*mempool.Client, error) {
		conf := do.MustInvoke[config.Config](i)
		client, err := mempool.New(mempool.Config{
			BaseURL:      conf.Mempool.BaseURL,
			BroadcastURL: conf.Mempool.BroadcastURL,
			Timeout:      conf.Mempool.Timeout,
		})
		return client, errors.Wrap(err, "can't create mempool client")
	})
	do.Provide(injector, func(i do.Injector) (*blobstore.Store, error) {
		conf := do.MustInvoke[config.Config](i)
		store, err := blobstore.New(ctx, blobstore.Config{
			Region:        conf.Storage.Region,
			Bucket:        conf.Storage.Bucket,
			Endpoint:      conf.Storage.Endpoint,
			PublicBaseURL: conf.Storage.PublicBaseURL,
		})
		return store, errors.Wrap(err, "can't create blob store")
	})
	do.Provide(injector, func(i do.Injector) (*generation.Client, error) {
		conf := do.MustInvoke[config.Config](i)
		client, err := generation.NewClient(generation.Config{
			BaseURL: conf.Generation.BaseURL,
			APIKey:  conf.Generation.APIKey,
			Model:   conf.Generation.Model,
			Timeout: conf.Generation.Timeout,
		})
		return client, errors.Wrap(err, "can't create generation client")
	})
	do.Provide(injector, func(i do.Injector) (*video.Client, error) {
		conf := do.MustInvoke[config.Config](i)
		client, err := video.NewClient(video.Config{
			BaseURL:        conf.Video.BaseURL,
			APIKey:         conf.Video.APIKey,
			CallbackSecret: conf.Video.CallbackSecret,
		})
		return client, errors.Wrap(err, "can't create video client")
	})

	do.Provide(injector, func(i do.Injector) (*mintusecase.Usecase, error) {
		pg := do.MustInvokeNamed[*pgxpool.Pool](i, "mint-postgres")
		bitcoin := do.MustInvoke[*mempool.Client](i)
		store := do.MustInvoke[*blobstore.Store](i)
		conf := do.MustInvoke[config.Config](i)
		return mintusecase.New(mintpostgres.NewRepository(pg), bitcoin, store, mintusecase.Config{
			Network:            conf.Network,
			SessionTTL:         conf.Worker.SessionTTL,
			CommitPollInterval: conf.Worker.CommitPollInterval,
			CommitPollTimeout:  conf.Worker.CommitPollTimeout,
			RevealSpacing:      conf.Worker.RevealSpacing,
		}), nil
	})
	do.Provide(injector, func(i do.Injector) (*studiousecase.Usecase, error) {
		pg := do.MustInvokeNamed[*pgxpool.Pool](i, "studio-postgres")
		generator := do.MustInvoke[*generation.Client](i)
		videoClient := do.MustInvoke[*video.Client](i)
		store := do.MustInvoke[*blobstore.Store](i)
		conf := do.MustInvoke[config.Config](i)
		return studiousecase.New(studiopostgres.NewRepository(pg), generator, videoClient, store, studiousecase.Config{
			StuckJobTimeout:       conf.Worker.StuckJobTimeout,
			MaxCollectionsPerPass: int32(conf.Worker.MaxCollectionsPerPass),
			MaxJobsPerCollection:  int32(conf.Worker.MaxJobsPerCollection),
			PromotionPollMinAge:   conf.Worker.PromotionPollMinAge,
			PromotionPollMaxAge:   conf.Worker.PromotionPollMaxAge,
		}), nil
	})

	do.Provide(injector, func(i do.Injector) (*fiber.App, error) {
		app := fiber.New(fiber.Config{
			AppName:      "Mint Engine",
			ErrorHandler: errorhandler.NewHTTPErrorHandler(),
		})
		app.
			Use(favicon.New()).
			Use(cors.New()).
			Use(requestid.New()).
			Use(requestcontext.New(
				requestcontext.WithRequestId(),
			)).
			Use(requestlogger.New(conf.HTTPServer.Logger)).
			Use(fiberrecover.New(fiberrecover.Config{
				EnableStackTrace: true,
				StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
					buf := make([]byte, 1024) // bufLen = 1024
					buf = buf[:runtime.Stack(buf, false)]
					logger.ErrorContext(c.UserContext(), "Something went wrong, panic in http handler", slogx.Any("panic", e), slog.String("stacktrace", string(buf)))
				},
			})).
			Use(compress.New(compress.Config{
				Level: compress.LevelDefault,
			}))

		// Health check
		app.Get("/", func(c *fiber.Ctx) error {
			return errors.WithStack(c.SendStatus(http.StatusOK))
		})

		return app, nil
	})

	mintUsecase, err := do.Invoke[*mintusecase.Usecase](injector)
	if err != nil {
		return errors.Wrap(err, "can't init mint module")
	}
	studioUsecase, err := do.Invoke[*studiousecase.Usecase](injector)
	if err != nil {
		return errors.Wrap(err, "can't init studio module")
	}
	app := do.MustInvoke[*fiber.App](injector)

	if err := minthttphandler.New(conf.Network, mintUsecase).Mount(app); err != nil {
		return errors.Wrap(err, "can't mount mint http handler")
	}
	studioHandler := studiohttphandler.New(studiohttphandler.Config{
		Network:            conf.Network,
		CronSecret:         conf.CronSecret,
		AdminWalletAddress: conf.AdminWallet,
		VideoCallbackToken: conf.Video.CallbackSecret,
	}, studioUsecase, mintUsecase)
	if err := studioHandler.Mount(app); err != nil {
		return errors.Wrap(err, "can't mount studio http handler")
	}

	// Separate worker lifecycle from the main process context so in-flight
	// passes can finish during shutdown.
	ctxWorker, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	ctxWorker = logger.WithContext(ctxWorker, slogx.Stringer("network", conf.Network))

	var jobScheduler *scheduler.Scheduler
	if conf.Worker.Interval > 0 {
		jobScheduler = scheduler.New(&processWorker{mint: mintUsecase, studio: studioUsecase}, conf.Worker.Interval)
		go func() {
			defer stop()
			if err := jobScheduler.Run(ctxWorker); err != nil {
				logger.ErrorContext(ctxWorker, "Something went wrong, error during running job scheduler", slogx.Error(err))
			}
		}()
	}

	go func() {
		// stop main process if API stopped
		defer stop()

		logger.InfoContext(ctx, "Started HTTP server", slog.Int("port", conf.HTTPServer.Port))
		if err := app.Listen(fmt.Sprintf(":%d", conf.HTTPServer.Port)); err != nil {
			logger.PanicContext(ctx, "Something went wrong, error during running HTTP server", slogx.Error(err))
		}
	}()

	logger.InfoContext(ctx, "Mint engine started")

	// Wait for interrupt signal to gracefully stop the server
	<-ctx.Done()

	// Force shutdown if timeout exceeded or got signal again
	go func() {
		defer os.Exit(1)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		select {
		case <-ctx.Done():
			logger.FatalContext(ctx, "Received exit signal again. Force shutdown...")
		case <-time.After(shutdownTimeout + 15*time.Second):
			logger.FatalContext(ctx, "Shutdown timeout exceeded. Force shutdown...")
		}
	}()

	if jobScheduler != nil {
		if err := jobScheduler.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.ErrorContext(ctx, "Failed to shutdown job scheduler", slogx.Error(err))
		}
	}
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.ErrorContext(ctx, "Failed to shutdown HTTP server", slogx.Error(err))
	}
	if err := injector.Shutdown(); err != nil {
		logger.PanicContext(ctx, "Failed while gracefully shutting down", slogx.Error(err))
	}

	return nil
}

// processWorker adapts the cron pass to the scheduler for deployments without
// an external cron trigger.
type processWorker struct {
	mint   *mintusecase.Usecase
	studio *studiousecase.Usecase
}

func (w *processWorker) Name() string {
	return "process-jobs"
}

func (w *processWorker) RunPass(ctx context.Context) error {
	summary, err := w.studio.ProcessJobs(ctx)
	if err != nil {
		return errors.Wrap(err, "can't process jobs")
	}
	if _, err := w.mint.ExpireSessions(ctx); err != nil {
		return errors.Wrap(err, "can't expire mint sessions")
	}
	if summary.Processed > 0 || summary.StuckJobsCleaned > 0 || summary.Promotion.Checked > 0 {
		logger.InfoContext(ctx, "job pass completed",
			slogx.Int("processed", summary.Processed),
			slogx.Int("successful", summary.Successful),
			slogx.Int("failed", summary.Failed),
			slogx.Int("stuckJobsCleaned", summary.StuckJobsCleaned),
			slogx.Int("promotionChecked", summary.Promotion.Checked),
		)
	}
	return nil
}

func (w *processWorker) Shutdown(context.Context) error {
	return nil
}
