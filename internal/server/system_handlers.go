package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/events"
	"github.com/aristath/journal/internal/reliability"
	"github.com/aristath/journal/internal/scheduler"
)

// Job is a background job that can be triggered manually
type Job interface {
	Run() error
	Name() string
}

// SystemHandlers serves monitoring endpoints and manual job triggers
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	journalDB   *database.DB
	cacheDB     *database.DB
	quoteStream QuoteStreamStatus // Optional
	eventBus    *events.Bus
	cloudBackup *reliability.CloudBackupService // Optional
	startedAt   time.Time

	mu           sync.RWMutex
	sheetSyncJob Job
	snapshotJob  Job
	backupJob    Job
}

// DBInfo describes one database file
type DBInfo struct {
	Name         string  `json:"name"`
	Path         string  `json:"path"`
	SizeMB       float64 `json:"size_mb"`
	WALSizeMB    float64 `json:"wal_size_mb"`
	PageCount    int64   `json:"page_count"`
	PageSizeByte int64   `json:"page_size"`
}

// DiskUsageResponse reports on-disk footprint
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
	TotalMB   float64 `json:"total_mb"`
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	journalDB *database.DB,
	cacheDB *database.DB,
	quoteStream QuoteStreamStatus,
	eventBus *events.Bus,
	cloudBackup *reliability.CloudBackupService,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		journalDB:   journalDB,
		cacheDB:     cacheDB,
		quoteStream: quoteStream,
		eventBus:    eventBus,
		cloudBackup: cloudBackup,
		startedAt:   time.Now(),
	}
}

// SetJobs registers job instances for manual triggering
func (h *SystemHandlers) SetJobs(sheetSync, snapshot, backup Job) {
	h.mu.Lock()
	h.sheetSyncJob = sheetSync
	h.snapshotJob = snapshot
	h.backupJob = backup
	h.mu.Unlock()
}

// HandleSystemStatus returns overall system status
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()

	quoteStatus := map[string]interface{}{"enabled": false}
	if h.quoteStream != nil {
		quoteStatus = map[string]interface{}{
			"enabled":   true,
			"connected": h.quoteStream.IsConnected(),
			"stale":     h.quoteStream.IsCacheStale(),
		}
	}

	healthy := true
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	for _, db := range []*database.DB{h.journalDB, h.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(ctx); err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database health check failed")
			healthy = false
		}
	}

	response := map[string]interface{}{
		"healthy":        healthy,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"cpu_percent":    cpuPercent,
		"memory_percent": memPercent,
		"quote_stream":   quoteStatus,
		"subscribers":    h.eventBus.SubscriberCount(),
		"timestamp":      time.Now().Format(time.RFC3339),
	}

	h.writeJSON(w, response)
}

// HandleDatabaseStats returns database statistics
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	databases := []DBInfo{}
	totalSizeMB := 0.0

	for _, db := range []*database.DB{h.journalDB, h.cacheDB} {
		if db == nil {
			continue
		}

		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}

		sizeMB := float64(stats.SizeBytes) / 1024 / 1024
		totalSizeMB += sizeMB

		databases = append(databases, DBInfo{
			Name:         db.Name(),
			Path:         db.Path(),
			SizeMB:       sizeMB,
			WALSizeMB:    float64(stats.WALSizeBytes) / 1024 / 1024,
			PageCount:    stats.PageCount,
			PageSizeByte: stats.PageSize,
		})
	}

	h.writeJSON(w, map[string]interface{}{
		"databases":     databases,
		"total_size_mb": totalSizeMB,
		"last_checked":  time.Now().Format(time.RFC3339),
	})
}

// HandleDiskUsage returns disk usage statistics
// GET /api/system/disk
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	dataDirSize := h.getDirSize(h.dataDir)

	h.writeJSON(w, DiskUsageResponse{
		DataDirMB: dataDirSize,
		TotalMB:   dataDirSize,
	})
}

// HandleListBackups lists cloud backup archives
// GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.cloudBackup == nil {
		h.writeJSON(w, map[string]interface{}{
			"enabled": false,
			"backups": []interface{}{},
		})
		return
	}

	backups, err := h.cloudBackup.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		http.Error(w, "Failed to list backups", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"enabled": true,
		"backups": backups,
	})
}

// syncStatusReporter is implemented by the sheet sync job
type syncStatusReporter interface {
	Status() scheduler.SyncStatus
}

// HandleSyncStatus reports the outcome of the most recent sheet sync
// GET /api/sync/status
func (h *SystemHandlers) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	job := h.getJob(&h.sheetSyncJob)

	reporter, ok := job.(syncStatusReporter)
	if !ok {
		h.writeJSON(w, map[string]interface{}{"available": false})
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"available": true,
		"status":    reporter.Status(),
	})
}

// HandleTriggerSheetSync triggers the sheet sync job immediately
// POST /api/system/jobs/sheet-sync
func (h *SystemHandlers) HandleTriggerSheetSync(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.getJob(&h.sheetSyncJob), "Sheet sync")
}

// HandleTriggerSnapshot triggers the snapshot job immediately
// POST /api/system/jobs/snapshot
func (h *SystemHandlers) HandleTriggerSnapshot(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.getJob(&h.snapshotJob), "Snapshot")
}

// HandleTriggerBackup triggers the backup job immediately
// POST /api/system/jobs/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.getJob(&h.backupJob), "Backup")
}

// getJob reads a job slot under the lock
func (h *SystemHandlers) getJob(slot *Job) Job {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return *slot
}

// triggerJob runs a job in the background and reports acceptance.
// Jobs guard against overlapping runs themselves.
func (h *SystemHandlers) triggerJob(w http.ResponseWriter, job Job, label string) {
	if job == nil {
		h.log.Warn().Str("job", label).Msg("Job not registered yet")
		h.writeJSON(w, map[string]string{
			"status":  "error",
			"message": label + " job not registered",
		})
		return
	}

	h.log.Info().Str("job", job.Name()).Msg("Manual job trigger")

	go func() {
		if err := job.Run(); err != nil {
			h.log.Error().Err(err).Str("job", job.Name()).Msg("Manually triggered job failed")
		}
	}()

	h.writeJSON(w, map[string]string{
		"status":  "success",
		"message": label + " triggered successfully",
	})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms CPU sampling interval so the status endpoint stays fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
