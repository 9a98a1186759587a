package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"facility-usage-backend/internal/facility"
	"facility-usage-backend/internal/ingest"
	"facility-usage-backend/internal/utilization"
)

// sampleFile is the document read by --from-file, JSON or YAML by extension.
type sampleFile struct {
	Samples []ingest.Reading `json:"samples" yaml:"samples"`
}

// loadSamples reads every sample of path. Unlike the feed, a file with an
// invalid reading is rejected as a whole.
func loadSamples(path string, loc *time.Location) ([]utilization.Sample, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file sampleFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &file)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &file)
	default:
		return nil, fmt.Errorf("unsupported sample file %s, use .json or .yaml", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	samples := make([]utilization.Sample, 0, len(file.Samples))
	for i, r := range file.Samples {
		s, err := r.Sample(loc)
		if err != nil {
			return nil, fmt.Errorf("sample #%d: %w", i+1, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// offlineSources builds an in-memory series from samplesPath and, when
// facilitiesPath is set, static metadata in the "facility import" format.
// Without metadata every key counts as priced.
func offlineSources(samplesPath, facilitiesPath string, loc *time.Location) (*utilization.MemorySeries, facility.Static, error) {
	static := facility.Static{}
	var priced func(utilization.Key) bool
	if facilitiesPath != "" {
		facilities, err := readFacilityFile(facilitiesPath)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range facilities {
			static[f.ID] = f
		}
		priced = static.Priced
	}

	samples, err := loadSamples(samplesPath, loc)
	if err != nil {
		return nil, nil, err
	}
	series := utilization.NewMemorySeries(priced)
	series.Add(samples...)
	return series, static, nil
}
