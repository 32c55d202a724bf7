// Package export batches completed analysis results and ships them to an
// external webhook for downstream dashboards.
package export

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/token-insight-ea/internal/model"
)

// Config holds exporter settings. A missing webhook URL disables the
// exporter entirely.
type Config struct {
	WebhookURL    string
	WebhookAPIKey string
	BatchSize     int
	Interval      time.Duration
}

// Exporter buffers results and flushes them on a timer or when the batch
// fills up.
type Exporter struct {
	cfg        Config
	httpClient *http.Client

	mu    sync.Mutex
	batch []model.AnalysisResult

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an exporter. Returns a disabled exporter when no webhook URL
// is configured; all methods stay safe to call.
func New(cfg Config) *Exporter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Exporter{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// Enabled reports whether a webhook destination is configured.
func (e *Exporter) Enabled() bool {
	return e.cfg.WebhookURL != ""
}

// Start launches the background flush loop.
func (e *Exporter) Start() {
	if !e.Enabled() {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		ticker := time.NewTicker(e.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.flush(context.Background())
				return
			case <-ticker.C:
				e.flush(ctx)
			}
		}
	}()
	logrus.Infof("Result exporter started: interval %s, batch %d", e.cfg.Interval, e.cfg.BatchSize)
}

// Stop flushes remaining results and stops the loop.
func (e *Exporter) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

// Add queues one completed result for export. Triggers an immediate flush
// when the batch is full.
func (e *Exporter) Add(result model.AnalysisResult) {
	if !e.Enabled() {
		return
	}
	e.mu.Lock()
	e.batch = append(e.batch, result)
	full := len(e.batch) >= e.cfg.BatchSize
	e.mu.Unlock()

	if full {
		go e.flush(context.Background())
	}
}

// flush posts the current batch to the webhook. A failed post logs and
// drops the batch; export never blocks or fails an analysis run.
func (e *Exporter) flush(ctx context.Context) {
	e.mu.Lock()
	if len(e.batch) == 0 {
		e.mu.Unlock()
		return
	}
	batch := e.batch
	e.batch = nil
	e.mu.Unlock()

	payload := map[string]interface{}{
		"source":      "token-insight-ea",
		"exported_at": time.Now().Unix(),
		"results":     batch,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logrus.Warnf("Failed to marshal export batch: %v", err)
		return
	}

	if err := e.post(ctx, body); err != nil {
		logrus.Warnf("Failed to export %d results: %v", len(batch), err)
		return
	}
	logrus.Debugf("Exported %d analysis results", len(batch))
}

func (e *Exporter) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.WebhookAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.WebhookAPIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
