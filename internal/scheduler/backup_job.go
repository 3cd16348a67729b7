package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// BackupRunner creates and uploads one backup archive, then rotates old ones
type BackupRunner interface {
	CreateAndUploadBackup(ctx context.Context) error
	RotateOldBackups(ctx context.Context, retentionDays int) error
}

// BackupJob wraps the cloud backup service for the scheduler
type BackupJob struct {
	log       zerolog.Logger
	runner    BackupRunner
	retention int
	timeout   time.Duration
}

// NewBackupJob creates a new backup job
func NewBackupJob(runner BackupRunner, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		log:       log.With().Str("job", "backup").Logger(),
		runner:    runner,
		retention: retentionDays,
		timeout:   15 * time.Minute,
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run creates, uploads, and rotates backups
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.runner.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if err := j.runner.RotateOldBackups(ctx, j.retention); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
		// Non-critical, the upload succeeded
	}

	return nil
}
