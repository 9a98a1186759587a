package ingest

import (
	"fmt"
	"time"

	"facility-usage-backend/internal/utilization"
)

// ApiResponse models the top-level structure of the upstream feed's response.
type ApiResponse struct {
	Code int `json:"code"`
	Data struct {
		Page     int       `json:"page"`
		PageSize int       `json:"pageSize"`
		Total    int       `json:"total"`
		Items    []Reading `json:"items"`
	} `json:"data"`
}

// Reading is a single utilization record from the upstream feed.
type Reading struct {
	FacilityID      int64  `json:"facilityId" yaml:"facilityId"`
	CapacityType    string `json:"capacityType" yaml:"capacityType"`
	Usage           string `json:"usage" yaml:"usage"`
	SpacesAvailable int    `json:"spacesAvailable" yaml:"spacesAvailable"`
	Capacity        int    `json:"capacity" yaml:"capacity"`
	Timestamp       string `json:"timestamp" yaml:"timestamp"`
}

// localLayout is the feed's timestamp layout when no offset is given.
const localLayout = "2006-01-02 15:04:05"

// Sample validates the reading. Timestamps without an offset are read in loc.
func (r Reading) Sample(loc *time.Location) (utilization.Sample, error) {
	ct, err := utilization.ParseCapacityType(r.CapacityType)
	if err != nil {
		return utilization.Sample{}, err
	}
	usage, err := utilization.ParseUsage(r.Usage)
	if err != nil {
		return utilization.Sample{}, err
	}
	if r.SpacesAvailable < 0 {
		return utilization.Sample{}, fmt.Errorf("negative spacesAvailable %d", r.SpacesAvailable)
	}

	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		ts, err = time.ParseInLocation(localLayout, r.Timestamp, loc)
		if err != nil {
			return utilization.Sample{}, fmt.Errorf("failed to parse timestamp %q: %w", r.Timestamp, err)
		}
	}

	return utilization.Sample{
		Key:             utilization.Key{FacilityID: r.FacilityID, CapacityType: ct, Usage: usage},
		Timestamp:       ts.UTC(),
		SpacesAvailable: r.SpacesAvailable,
		Capacity:        r.Capacity,
	}, nil
}
