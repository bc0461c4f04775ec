package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/videochop/videochop/internal/config"
	"github.com/videochop/videochop/internal/httpapi"
	"github.com/videochop/videochop/internal/jobs"
	"github.com/videochop/videochop/internal/jobstore"
	"github.com/videochop/videochop/internal/media"
	"github.com/videochop/videochop/internal/tasks"
	"github.com/videochop/videochop/internal/ytdlp"
	"github.com/videochop/videochop/pkg/file"
	"github.com/videochop/videochop/pkg/log"
)

func main() {
	// Optional .env file for local development.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.Tools.LogLevel))

	if err := file.EnsureDir(cfg.Store.VideoDir); err != nil {
		log.Fatal("Failed to create video directory %s: %v", cfg.Store.VideoDir, err)
	}

	store, closeStore, err := newStore(cfg)
	if err != nil {
		log.Fatal("Failed to open job store: %v", err)
	}
	defer closeStore()

	manager := jobs.NewManager(store, cfg.Store.VideoDir, time.Duration(cfg.Jobs.RetentionHours)*time.Hour)
	pool := jobs.NewPool(cfg.Jobs.Workers)

	downloader := ytdlp.NewClient(cfg.Tools.YtdlpPath)
	opener := media.NewOpener(cfg.Tools.FfmpegPath, cfg.Tools.FfprobePath)
	executor := tasks.NewExecutor(manager, downloader, opener, cfg.Store.VideoDir, cfg.Server.BaseURL())

	// Jobs interrupted by a previous crash go back on the queue.
	for _, rec := range manager.ResetInterrupted() {
		log.Info("Requeueing interrupted job %s", rec.ID)
		pool.Submit(executor.Task(rec))
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Jobs.SweepCron, func() {
		manager.Sweep(time.Now())
	}); err != nil {
		log.Fatal("Invalid sweep schedule %q: %v", cfg.Jobs.SweepCron, err)
	}
	sweeper.Start()

	server := httpapi.NewServer(manager, pool, executor, cfg.Server.BaseURL(),
		httpapi.WithSweepSchedule(cfg.Jobs.SweepCron))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Listening on %s", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(cfg.Server.ListenAddr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown: %v", err)
		}

		<-sweeper.Stop().Done()
		pool.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server error: %v", err)
	}
}

func newStore(cfg *config.Config) (jobs.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendSQLite:
		s, err := jobstore.NewSQLiteStore(cfg.Store.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return jobstore.NewFileStore(cfg.Store.JobsFile), func() {}, nil
	}
}
