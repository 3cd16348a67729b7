package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/journal/internal/events"
	"github.com/aristath/journal/internal/scheduler"
)

type fakeJob struct {
	name string
	ran  chan struct{}
	err  error
}

func newFakeJob(name string) *fakeJob {
	return &fakeJob{name: name, ran: make(chan struct{}, 1)}
}

func (j *fakeJob) Run() error {
	j.ran <- struct{}{}
	return j.err
}

func (j *fakeJob) Name() string { return j.name }

type fakeQuoteStream struct {
	connected bool
	stale     bool
}

func (f *fakeQuoteStream) IsConnected() bool  { return f.connected }
func (f *fakeQuoteStream) IsCacheStale() bool { return f.stale }

func newTestSystemHandlers(t *testing.T, quoteStream QuoteStreamStatus) *SystemHandlers {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)
	return NewSystemHandlers(log, t.TempDir(), nil, nil, quoteStream, bus, nil)
}

func TestSystemStatus(t *testing.T) {
	h := newTestSystemHandlers(t, &fakeQuoteStream{connected: true})

	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["healthy"])

	quoteStatus, ok := body["quote_stream"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, quoteStatus["enabled"])
	assert.Equal(t, true, quoteStatus["connected"])
	assert.Equal(t, false, quoteStatus["stale"])
}

func TestSystemStatus_NoQuoteStream(t *testing.T) {
	h := newTestSystemHandlers(t, nil)

	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	quoteStatus, ok := body["quote_stream"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, quoteStatus["enabled"])
}

func TestDiskUsage(t *testing.T) {
	h := newTestSystemHandlers(t, nil)

	// Put a known-size file into the data directory
	require.NoError(t, os.WriteFile(filepath.Join(h.dataDir, "journal.db"), make([]byte, 2048), 0644))

	rec := httptest.NewRecorder()
	h.HandleDiskUsage(rec, httptest.NewRequest(http.MethodGet, "/api/system/disk", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body DiskUsageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 2048.0/1024/1024, body.DataDirMB, 0.0001)
}

func TestListBackups_Disabled(t *testing.T) {
	h := newTestSystemHandlers(t, nil)

	rec := httptest.NewRecorder()
	h.HandleListBackups(rec, httptest.NewRequest(http.MethodGet, "/api/system/backups", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["enabled"])
}

func TestTriggerJob(t *testing.T) {
	h := newTestSystemHandlers(t, nil)
	job := newFakeJob("sheet_sync")
	h.SetJobs(job, nil, nil)

	rec := httptest.NewRecorder()
	h.HandleTriggerSheetSync(rec, httptest.NewRequest(http.MethodPost, "/api/system/jobs/sheet-sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not run")
	}
}

func TestSyncStatus(t *testing.T) {
	h := newTestSystemHandlers(t, nil)
	h.SetJobs(scheduler.NewSheetSyncJob(scheduler.SheetSyncConfig{}), nil, nil)

	rec := httptest.NewRecorder()
	h.HandleSyncStatus(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Available bool `json:"available"`
		Status    struct {
			Running bool `json:"running"`
		} `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Available)
	assert.False(t, body.Status.Running)
}

func TestSyncStatus_NoJob(t *testing.T) {
	h := newTestSystemHandlers(t, nil)

	rec := httptest.NewRecorder()
	h.HandleSyncStatus(rec, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["available"])
}

func TestTriggerJob_NotRegistered(t *testing.T) {
	h := newTestSystemHandlers(t, nil)

	rec := httptest.NewRecorder()
	h.HandleTriggerBackup(rec, httptest.NewRequest(http.MethodPost, "/api/system/jobs/backup", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
}
