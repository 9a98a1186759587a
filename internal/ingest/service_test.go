package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility-usage-backend/config"
	"facility-usage-backend/internal/utilization"
)

// mockWriter records every batch it is asked to store.
type mockWriter struct {
	mu      sync.Mutex
	batches [][]utilization.Sample
	err     error
}

func (m *mockWriter) InsertUtilizations(_ context.Context, samples []utilization.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, samples)
	return nil
}

func (m *mockWriter) all() []utilization.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []utilization.Sample
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

func reading(facilityID int64, spaces int, ts string) Reading {
	return Reading{FacilityID: facilityID, CapacityType: "CAR", Usage: "PARK_AND_RIDE", SpacesAvailable: spaces, Capacity: 100, Timestamp: ts}
}

// newUpstream serves items in pages of pageSize and records the requests.
func newUpstream(t *testing.T, items []Reading, pageSize int, requests *[]map[string]any) *httptest.Server {
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		mu.Lock()
		*requests = append(*requests, payload)
		mu.Unlock()

		page := int(payload["page"].(float64))
		start := (page - 1) * pageSize
		end := start + pageSize
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}

		var resp ApiResponse
		resp.Data.Page = page
		resp.Data.PageSize = pageSize
		resp.Data.Total = len(items)
		resp.Data.Items = items[start:end]
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testConfig(url string) *config.IngestConfig {
	return &config.IngestConfig{
		Enabled:  true,
		Interval: time.Minute,
		Workers:  2,
		Location: time.UTC,
		Request: config.IngestRequest{
			URL:      url,
			Headers:  map[string]string{"X-Api-Key": "secret"},
			PageSize: 2,
			Payload:  map[string]any{"region": "hsl"},
		},
	}
}

func TestService_IngestOnce(t *testing.T) {
	items := []Reading{
		reading(1, 10, "2016-05-01 10:00:00"),
		reading(2, 20, "2016-05-01T10:00:00+03:00"),
		reading(3, 30, "2016-05-01 10:05:00"),
	}
	var requests []map[string]any
	server := newUpstream(t, items, 2, &requests)
	defer server.Close()

	writer := &mockWriter{}
	service := NewService(testConfig(server.URL), writer)

	stored, err := service.IngestOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	require.Len(t, requests, 2)
	assert.Equal(t, float64(1), requests[0]["page"])
	assert.Equal(t, float64(2), requests[1]["page"])
	assert.Equal(t, "hsl", requests[0]["region"])

	byFacility := map[int64]utilization.Sample{}
	for _, s := range writer.all() {
		byFacility[s.FacilityID] = s
	}
	require.Len(t, byFacility, 3)
	assert.Equal(t, time.Date(2016, time.May, 1, 10, 0, 0, 0, time.UTC), byFacility[1].Timestamp)
	assert.Equal(t, time.Date(2016, time.May, 1, 7, 0, 0, 0, time.UTC), byFacility[2].Timestamp)
	assert.Equal(t, utilization.CapacityCar, byFacility[3].CapacityType)
	assert.Equal(t, 30, byFacility[3].SpacesAvailable)
}

func TestService_IngestOnce_SkipsInvalidReadings(t *testing.T) {
	bad := reading(2, 20, "2016-05-01 10:00:00")
	bad.CapacityType = "TRUCK"
	items := []Reading{
		reading(1, 10, "2016-05-01 10:00:00"),
		bad,
		reading(3, 30, "yesterday"),
		reading(4, -1, "2016-05-01 10:00:00"),
	}
	var requests []map[string]any
	server := newUpstream(t, items, 10, &requests)
	defer server.Close()

	writer := &mockWriter{}
	cfg := testConfig(server.URL)
	cfg.Request.PageSize = 10

	stored, err := NewService(cfg, writer).IngestOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	require.Len(t, writer.all(), 1)
	assert.Equal(t, int64(1), writer.all()[0].FacilityID)
}

func TestService_IngestOnce_Failures(t *testing.T) {
	t.Run("Upstream error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		writer := &mockWriter{}
		stored, err := NewService(testConfig(server.URL), writer).IngestOnce(context.Background())
		assert.Error(t, err)
		assert.Zero(t, stored)
		assert.Empty(t, writer.all())
	})

	t.Run("Application error code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code": 7}`))
		}))
		defer server.Close()

		_, err := NewService(testConfig(server.URL), &mockWriter{}).IngestOnce(context.Background())
		assert.ErrorContains(t, err, "non-zero application code: 7")
	})

	t.Run("Store error", func(t *testing.T) {
		var requests []map[string]any
		server := newUpstream(t, []Reading{reading(1, 10, "2016-05-01 10:00:00")}, 2, &requests)
		defer server.Close()

		boom := errors.New("database is locked")
		stored, err := NewService(testConfig(server.URL), &mockWriter{err: boom}).IngestOnce(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, stored)
	})
}

func TestService_IngestOnce_AfterCancelledCycle(t *testing.T) {
	var requests []map[string]any
	server := newUpstream(t, []Reading{
		reading(1, 10, "2016-05-01 10:00:00"),
		reading(2, 20, "2016-05-01 10:00:00"),
		reading(3, 30, "2016-05-01 10:00:00"),
	}, 2, &requests)
	defer server.Close()

	writer := &mockWriter{}
	service := NewService(testConfig(server.URL), writer)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := service.IngestOnce(cancelled)
	assert.Error(t, err)

	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	stored, err := service.IngestOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)
	assert.Len(t, writer.all(), 3)
}

func TestService_RunDisabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.Enabled = false

	done := make(chan struct{})
	go func() {
		NewService(cfg, &mockWriter{}).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when ingest is disabled")
	}
}

func TestService_RunStopsOnCancel(t *testing.T) {
	var requests []map[string]any
	server := newUpstream(t, []Reading{reading(1, 10, "2016-05-01 10:00:00")}, 2, &requests)
	defer server.Close()

	writer := &mockWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewService(testConfig(server.URL), writer).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(writer.all()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
