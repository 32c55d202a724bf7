package export

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/token-insight-ea/internal/model"
)

type capturedBatch struct {
	Source  string                 `json:"source"`
	Results []model.AnalysisResult `json:"results"`
}

type webhookRecorder struct {
	mu      sync.Mutex
	batches []capturedBatch
	auth    string
}

func (w *webhookRecorder) handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var b capturedBatch
		_ = json.Unmarshal(body, &b)

		w.mu.Lock()
		w.batches = append(w.batches, b)
		w.auth = r.Header.Get("Authorization")
		w.mu.Unlock()

		rw.WriteHeader(http.StatusAccepted)
	}
}

func (w *webhookRecorder) batchCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.batches)
}

func TestExporter_DisabledWithoutURL(t *testing.T) {
	e := New(Config{})
	assert.False(t, e.Enabled())

	// All operations must be safe no-ops.
	e.Start()
	e.Add(model.AnalysisResult{Token: "PEPE"})
	e.Stop()
}

func TestExporter_FlushesFullBatch(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	e := New(Config{
		WebhookURL:    srv.URL,
		WebhookAPIKey: "secret",
		BatchSize:     2,
		Interval:      time.Hour, // only the size trigger should fire
	})
	e.Start()
	defer e.Stop()

	e.Add(model.AnalysisResult{Token: "PEPE", ConsensusScore: 80})
	e.Add(model.AnalysisResult{Token: "WIF", ConsensusScore: 55})

	require.Eventually(t, func() bool { return rec.batchCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	batch := rec.batches[0]
	assert.Equal(t, "token-insight-ea", batch.Source)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, "PEPE", batch.Results[0].Token)
	assert.Equal(t, "Bearer secret", rec.auth)
}

func TestExporter_StopFlushesRemainder(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	e := New(Config{WebhookURL: srv.URL, BatchSize: 100, Interval: time.Hour})
	e.Start()

	e.Add(model.AnalysisResult{Token: "PEPE"})
	e.Stop()

	require.Equal(t, 1, rec.batchCount())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.batches[0].Results, 1)
}

func TestExporter_DropsBatchOnWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := New(Config{WebhookURL: srv.URL, BatchSize: 100, Interval: time.Hour})
	e.Start()
	e.Add(model.AnalysisResult{Token: "PEPE"})
	e.Stop()

	// The failed batch is dropped, never retried.
	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Empty(t, e.batch)
}

func TestNew_AppliesDefaults(t *testing.T) {
	e := New(Config{WebhookURL: "http://example.invalid"})
	assert.Equal(t, 50, e.cfg.BatchSize)
	assert.Equal(t, time.Minute, e.cfg.Interval)
}
