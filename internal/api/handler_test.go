package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility-usage-backend/config"
	"facility-usage-backend/internal/clock"
	"facility-usage-backend/internal/facility"
	"facility-usage-backend/internal/report"
	"facility-usage-backend/internal/utilization"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticFacilities map[int64]facility.Facility

func (f staticFacilities) Facilities(_ context.Context, ids []int64) (map[int64]facility.Facility, error) {
	out := make(map[int64]facility.Facility)
	for _, id := range ids {
		if fac, ok := f[id]; ok {
			out[id] = fac
		}
	}
	return out, nil
}

type noHistory struct{}

func (noHistory) StatusHistory(context.Context, int64, utilization.Date, utilization.Date) (map[utilization.Date]facility.Status, error) {
	return nil, nil
}

// brokenSeries fails every lookup.
type brokenSeries struct{}

var errStoreDown = errors.New("store down")

func (brokenSeries) LatestBeforeOrAt(context.Context, utilization.Key, time.Time) (utilization.Sample, bool, error) {
	return utilization.Sample{}, false, errStoreDown
}

func (brokenSeries) Between(context.Context, utilization.Key, time.Time, time.Time) ([]utilization.Sample, error) {
	return nil, errStoreDown
}

func (brokenSeries) LatestPerKey(context.Context, *int64) ([]utilization.Sample, error) {
	return nil, errStoreDown
}

var (
	carKey  = utilization.Key{FacilityID: 1, CapacityType: utilization.CapacityCar, Usage: utilization.UsageParkAndRide}
	bikeKey = utilization.Key{FacilityID: 1, CapacityType: utilization.CapacityBicycle, Usage: utilization.UsageParkAndRide}
)

func at(hour, minute int) time.Time {
	return time.Date(2016, time.May, 1, hour, minute, 0, 0, time.UTC)
}

var serverConfig = config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60}

func setupRouter(t *testing.T) *gin.Engine {
	facilities := staticFacilities{
		1: {
			ID:            1,
			Name:          "Alpha",
			Status:        facility.StatusInOperation,
			BuiltCapacity: map[utilization.CapacityType]int{utilization.CapacityCar: 100},
			Pricing:       []facility.Pricing{{CapacityType: utilization.CapacityCar, Usage: utilization.UsageParkAndRide}},
		},
	}
	series := utilization.NewMemorySeries(func(k utilization.Key) bool {
		return facilities[k.FacilityID].Offers(k.CapacityType, k.Usage)
	})
	series.Add(
		utilization.Sample{Key: carKey, Timestamp: at(10, 0), SpacesAvailable: 40, Capacity: 100},
		utilization.Sample{Key: bikeKey, Timestamp: at(11, 0), SpacesAvailable: 5, Capacity: 20},
	)

	deps := report.Deps{
		Samples:      series,
		Facilities:   facilities,
		History:      noHistory{},
		Clock:        clock.Fixed(time.Date(2016, time.June, 1, 0, 0, 0, 0, time.UTC)),
		Location:     time.UTC,
		MaxRangeDays: 31,
	}
	handler := NewHandler(report.NewDefaultRegistry(deps), series, 60)
	return NewRouter(handler, serverConfig)
}

func do(r *gin.Engine, method, url, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, url, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestPostReport(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodPost, "/api/reports/FacilityUsage", `{"startDate":"2016-05-01","endDate":"2016-05-01"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, `attachment; filename="FacilityUsage.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.NotEmpty(t, w.Header().Get("X-Report-Run"))

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Len(t, records[0], 6+24, "default interval is 60 minutes")
	assert.Equal(t, []string{"Alpha", "PARK_AND_RIDE", "CAR", "IN_OPERATION", "100", "2016-05-01"}, records[1][:6])
	assert.Equal(t, "0", records[1][6+9])
	assert.Equal(t, "40", records[1][6+10])
	assert.Equal(t, []string{"Alpha", "PARK_AND_RIDE", "BICYCLE", "IN_OPERATION", "", "2016-05-01"}, records[2][:6])
}

func TestPostReport_Interval(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodPost, "/api/reports/FacilityUsage", `{"startDate":"2016-05-01","endDate":"2016-05-01","interval":30,"capacityTypes":["CAR"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Len(t, records[0], 6+48)
	assert.Equal(t, "00:30", records[0][7])
}

func TestPostReport_Errors(t *testing.T) {
	router := setupRouter(t)

	testCases := []struct {
		name         string
		url          string
		body         string
		expectedCode int
	}{
		{"Unknown report", "/api/reports/Nope", `{"startDate":"2016-05-01","endDate":"2016-05-01"}`, http.StatusNotFound},
		{"Malformed body", "/api/reports/FacilityUsage", `{`, http.StatusBadRequest},
		{"Malformed date", "/api/reports/FacilityUsage", `{"startDate":"2016-13-01","endDate":"2016-05-01"}`, http.StatusBadRequest},
		{"Start after end", "/api/reports/FacilityUsage", `{"startDate":"2016-05-02","endDate":"2016-05-01"}`, http.StatusBadRequest},
		{"Zero interval", "/api/reports/FacilityUsage", `{"startDate":"2016-05-01","endDate":"2016-05-01","interval":0}`, http.StatusBadRequest},
		{"Huge interval", "/api/reports/FacilityUsage", `{"startDate":"2016-05-01","endDate":"2016-05-01","interval":4611686018427387904}`, http.StatusBadRequest},
		{"Range too long", "/api/reports/MaxUtilization", `{"startDate":"2016-01-01","endDate":"2016-05-01"}`, http.StatusBadRequest},
		{"Unknown usage", "/api/reports/FacilityUsage", `{"startDate":"2016-05-01","endDate":"2016-05-01","usages":["FREE"]}`, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(router, http.MethodPost, tc.url, tc.body)
			assert.Equal(t, tc.expectedCode, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestListReports(t *testing.T) {
	w := do(setupRouter(t), http.MethodGet, "/api/reports", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reports":["FacilityUsage","MaxUtilization"]}`, w.Body.String())
}

func TestGetLatestUtilizations(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodGet, "/api/utilizations", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"facilityId":1,"capacityType":"CAR","usage":"PARK_AND_RIDE","timestamp":"2016-05-01T10:00:00Z","spacesAvailable":40,"capacity":100}]`, w.Body.String())

	w = do(router, http.MethodGet, "/api/utilizations?facility_id=2", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(router, http.MethodGet, "/api/utilizations?facility_id=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetFacilityUtilizations(t *testing.T) {
	router := setupRouter(t)
	base := "/api/facilities/1/utilizations?capacity_type=CAR&usage=PARK_AND_RIDE"

	testCases := []struct {
		name         string
		query        string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Stored samples",
			query:        "&start=2016-05-01T09:00:00Z&end=2016-05-01T12:00:00Z",
			expectedCode: http.StatusOK,
			expectedBody: `[{"facilityId":1,"capacityType":"CAR","usage":"PARK_AND_RIDE","timestamp":"2016-05-01T10:00:00Z","spacesAvailable":40,"capacity":100}]`,
		},
		{
			name:         "Resampled",
			query:        "&start=2016-05-01T09:00:00Z&end=2016-05-01T12:00:00Z&resolution=1h",
			expectedCode: http.StatusOK,
			expectedBody: `[
				{"facilityId":1,"capacityType":"CAR","usage":"PARK_AND_RIDE","timestamp":"2016-05-01T10:00:00Z","spacesAvailable":40,"capacity":100},
				{"facilityId":1,"capacityType":"CAR","usage":"PARK_AND_RIDE","timestamp":"2016-05-01T11:00:00Z","spacesAvailable":40,"capacity":100},
				{"facilityId":1,"capacityType":"CAR","usage":"PARK_AND_RIDE","timestamp":"2016-05-01T12:00:00Z","spacesAvailable":40,"capacity":100}
			]`,
		},
		{
			name:         "At instant",
			query:        "&at=2016-05-01T10:30:00Z",
			expectedCode: http.StatusOK,
			expectedBody: `{"facilityId":1,"capacityType":"CAR","usage":"PARK_AND_RIDE","timestamp":"2016-05-01T10:30:00Z","spacesAvailable":40,"capacity":100}`,
		},
		{name: "Nothing known at instant", query: "&at=2016-05-01T09:00:00Z", expectedCode: http.StatusNotFound},
		{name: "Missing window", query: "", expectedCode: http.StatusBadRequest},
		{name: "Bad timestamp", query: "&start=yesterday&end=2016-05-01T12:00:00Z", expectedCode: http.StatusBadRequest},
		{name: "Zero resolution", query: "&start=2016-05-01T09:00:00Z&end=2016-05-01T12:00:00Z&resolution=0s", expectedCode: http.StatusBadRequest},
		{name: "Too many points", query: "&start=2016-05-01T09:00:00Z&end=2016-05-01T12:00:00Z&resolution=1s", expectedCode: http.StatusBadRequest},
		{name: "End before start", query: "&start=2016-05-01T12:00:00Z&end=2016-05-01T09:00:00Z", expectedCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(router, http.MethodGet, base+tc.query, "")
			assert.Equal(t, tc.expectedCode, w.Code, w.Body.String())
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, w.Body.String())
			}
		})
	}

	w := do(router, http.MethodGet, "/api/facilities/1/utilizations?capacity_type=TRUCK&usage=PARK_AND_RIDE&at=2016-05-01T10:30:00Z", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpstreamFailure(t *testing.T) {
	handler := NewHandler(report.NewRegistry(), brokenSeries{}, 60)
	router := NewRouter(handler, serverConfig)

	w := do(router, http.MethodGet, "/api/utilizations", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(router, http.MethodGet, "/api/facilities/1/utilizations?capacity_type=CAR&usage=PARK_AND_RIDE&start=2016-05-01T09:00:00Z&end=2016-05-01T12:00:00Z&resolution=1h", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupRouter(t)
	do(router, http.MethodPost, "/api/reports/FacilityUsage", `{"startDate":"2016-05-01","endDate":"2016-05-01"}`)

	w := do(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "report_runs_total")
}
