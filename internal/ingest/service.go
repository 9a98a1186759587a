// Package ingest polls the upstream utilization feed and stores every reading
// as a sample.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"facility-usage-backend/config"
	"facility-usage-backend/internal/metrics"
	"facility-usage-backend/internal/utilization"
)

// Service orchestrates the polling process.
type Service struct {
	cfg    *config.IngestConfig
	client *http.Client
	writer Writer
}

// NewService creates and initializes a new ingest service writing to writer.
func NewService(cfg *config.IngestConfig, writer Writer) *Service {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warnf("Invalid proxy URL %q: %v. Ingest will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		writer: writer,
	}
}

// Run polls the feed until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Info("Ingest is disabled. Not starting.")
		return
	}
	log.Info("Starting ingest service...")

	s.runCycle(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Ingest service shutting down.")
			return
		case <-timer.C:
			s.runCycle(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	stored, err := s.IngestOnce(ctx)
	if err != nil {
		log.WithError(err).WithField("stored", stored).Error("Ingest cycle failed")
		return
	}
	log.WithField("stored", stored).Info("Ingest cycle finished.")
}

// IngestOnce fetches every page of the feed and stores the readings. Pages
// are written while the next one is fetched. It returns the number of
// samples stored; invalid readings are skipped. The writers live only for
// the duration of the call.
func (s *Service) IngestOnce(ctx context.Context) (int, error) {
	log.Debug("Executing ingest cycle...")
	cycleCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	pool := NewWorkerPool(s.cfg.Workers, s.writer)
	pool.Start(cycleCtx)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		stored   int
		writeErr error
		fetchErr error
	)

	total := 1
	pageSize := s.cfg.Request.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			metrics.IngestErrors.WithLabelValues("fetch").Inc()
			fetchErr = fmt.Errorf("page %d: %w", page, err)
			break
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		log.Debugf("Fetched page %d/%d", page, (total+pageSize-1)/pageSize)

		samples := s.parse(resp.Data.Items)
		if len(samples) == 0 {
			continue
		}

		n := len(samples)
		wg.Add(1)
		err = pool.Dispatch(ctx, job{page: page, samples: samples, done: func(err error) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.IngestErrors.WithLabelValues("store").Inc()
				writeErr = errors.Join(writeErr, err)
				return
			}
			stored += n
			metrics.IngestedSamples.Add(float64(n))
		}})
		if err != nil {
			wg.Done()
			fetchErr = err
			break
		}
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return stored, errors.Join(fetchErr, writeErr)
}

func (s *Service) parse(items []Reading) []utilization.Sample {
	loc := s.cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	samples := make([]utilization.Sample, 0, len(items))
	for _, item := range items {
		smp, err := item.Sample(loc)
		if err != nil {
			metrics.IngestErrors.WithLabelValues("parse").Inc()
			log.WithError(err).WithField("facility_id", item.FacilityID).Warn("Skipping invalid reading")
			continue
		}
		samples = append(samples, smp)
	}
	return samples
}

// fetchPage fetches a single page of readings from the upstream feed.
func (s *Service) fetchPage(ctx context.Context, page int) (*ApiResponse, error) {
	payload := make(map[string]any)
	for k, v := range s.cfg.Request.Payload {
		payload[k] = v
	}
	payload["page"] = page
	payload["pageSize"] = s.cfg.Request.PageSize

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Request.URL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range s.cfg.Request.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp ApiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", err)
	}

	if apiResp.Code != 0 {
		return nil, fmt.Errorf("API returned non-zero application code: %d", apiResp.Code)
	}

	return &apiResp, nil
}
