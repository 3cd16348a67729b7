// Package main is the entry point for the trade journal service.
// The service keeps a local SQLite journal of trades (optionally synced from
// a published spreadsheet), computes performance metrics over it, streams
// live quotes for open positions, and serves everything over a REST API.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/journal/internal/clients/quotes"
	"github.com/aristath/journal/internal/clients/sheets"
	"github.com/aristath/journal/internal/config"
	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/events"
	"github.com/aristath/journal/internal/modules/journal"
	"github.com/aristath/journal/internal/modules/snapshots"
	"github.com/aristath/journal/internal/reliability"
	"github.com/aristath/journal/internal/scheduler"
	"github.com/aristath/journal/internal/server"
	"github.com/aristath/journal/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting journal service")

	// Two-database architecture:
	// - journal.db: durable trade journal (the source of truth)
	// - cache.db: disposable derived data (metric snapshots)
	journalDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "journal.db"),
		Profile: database.ProfileJournal,
		Name:    "journal",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open journal database")
	}
	defer journalDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := journalDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate journal database")
	}
	if err := cacheDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	// Event bus feeds the SSE stream and in-process listeners
	eventBus := events.NewBus(log)
	eventManager := events.NewManager(eventBus, log)

	// Repositories
	tradeRepo := journal.NewTradeRepository(journalDB.Conn(), eventManager, log)
	snapshotRepo := snapshots.NewRepository(cacheDB.Conn(), eventManager, log)

	// External clients
	sheetsClient := sheets.NewClient(cfg.SheetURL, cfg.SheetTimeout, log)

	quoteStream := quotes.NewStreamClient(cfg.QuoteWSURL, eventManager, log)
	seedQuoteInstruments(tradeRepo, quoteStream)
	if err := quoteStream.Start(); err != nil {
		// Quotes are a best-effort enhancement; the reconnect loop keeps
		// trying, so a failed first dial is not fatal.
		log.Error().Err(err).Msg("Quote stream failed to start")
	}

	// Cloud backups (optional)
	var cloudBackup *reliability.CloudBackupService
	if cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create S3 client")
		}

		backupService := reliability.NewBackupService(map[string]*database.DB{
			"journal": journalDB,
			"cache":   cacheDB,
		}, log)

		cloudBackup = reliability.NewCloudBackupService(s3Client, backupService, cfg.DataDir, eventManager, log)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Cloud backups enabled")
	}

	// Background jobs
	sched := scheduler.New(log)

	syncJob := scheduler.NewSheetSyncJob(scheduler.SheetSyncConfig{
		Log:          log,
		Fetcher:      sheetsClient,
		Repo:         tradeRepo,
		Quotes:       quoteStream,
		EventManager: eventManager,
		Timeout:      cfg.SheetTimeout,
	})
	if cfg.SheetURL != "" {
		if err := sched.AddJob(cfg.SyncSchedule, syncJob); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.SyncSchedule).Msg("Failed to schedule sheet sync")
		}
	} else {
		log.Info().Msg("No sheet URL configured, running in local-only mode")
	}

	snapshotJob := scheduler.NewSnapshotJob(tradeRepo, snapshotRepo, cfg.SnapshotRetentionDays, log)
	if err := sched.AddJob("@daily", snapshotJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule snapshot job")
	}

	var backupJob *scheduler.BackupJob
	if cloudBackup != nil {
		backupJob = scheduler.NewBackupJob(cloudBackup, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backupJob); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Backup.Schedule).Msg("Failed to schedule backup job")
		}
	}

	sched.Start()

	// Sync once at startup so a fresh deployment has data immediately
	if cfg.SheetURL != "" {
		go func() {
			if err := sched.RunNow(syncJob); err != nil {
				log.Error().Err(err).Msg("Initial sheet sync failed")
			}
		}()
	}

	// HTTP server
	srv := server.New(server.Config{
		Log:          log,
		JournalDB:    journalDB,
		CacheDB:      cacheDB,
		Config:       cfg,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		EventBus:     eventBus,
		TradeRepo:    tradeRepo,
		SnapshotRepo: snapshotRepo,
		QuoteStream:  quoteStreamStatus(cfg, quoteStream),
		QuoteSource:  quoteStream,
		CloudBackup:  cloudBackup,
	})
	srv.SetJobs(syncJob, snapshotJob, jobOrNil(backupJob))

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	if err := quoteStream.Stop(); err != nil {
		log.Error().Err(err).Msg("Error stopping quote stream")
	}

	// In-flight requests get up to 10 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// seedQuoteInstruments subscribes the quote stream to currently open positions
// before the first sheet sync runs.
func seedQuoteInstruments(repo *journal.TradeRepository, stream *quotes.StreamClient) {
	trades, err := repo.List()
	if err != nil {
		return
	}

	seen := map[string]bool{}
	var instruments []string
	for _, trade := range trades {
		if trade.IsOpen() && !seen[trade.Instrument] {
			seen[trade.Instrument] = true
			instruments = append(instruments, trade.Instrument)
		}
	}
	stream.SetInstruments(instruments)
}

// quoteStreamStatus returns the stream as a status source only when quotes
// are actually configured, so the status endpoint reports "disabled" instead
// of "permanently disconnected".
func quoteStreamStatus(cfg *config.Config, stream *quotes.StreamClient) server.QuoteStreamStatus {
	if cfg.QuoteWSURL == "" {
		return nil
	}
	return stream
}

// jobOrNil converts a possibly-nil concrete job to the Job interface without
// producing a non-nil interface wrapping a nil pointer.
func jobOrNil(job *scheduler.BackupJob) server.Job {
	if job == nil {
		return nil
	}
	return job
}
