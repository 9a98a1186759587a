package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"facility-usage-backend/internal/errs"
	"facility-usage-backend/internal/utilization"
)

// maxResampleBuckets bounds the size of a resampled series response.
const maxResampleBuckets = 10000

// sampleResponse is the JSON form of a sample.
type sampleResponse struct {
	FacilityID      int64     `json:"facilityId"`
	CapacityType    string    `json:"capacityType"`
	Usage           string    `json:"usage"`
	Timestamp       time.Time `json:"timestamp"`
	SpacesAvailable int       `json:"spacesAvailable"`
	Capacity        int       `json:"capacity"`
}

func toResponse(samples []utilization.Sample) []sampleResponse {
	out := make([]sampleResponse, 0, len(samples))
	for _, s := range samples {
		out = append(out, sampleResponse{
			FacilityID:      s.FacilityID,
			CapacityType:    string(s.CapacityType),
			Usage:           string(s.Usage),
			Timestamp:       s.Timestamp,
			SpacesAvailable: s.SpacesAvailable,
			Capacity:        s.Capacity,
		})
	}
	return out
}

// GetLatestUtilizations handles GET /api/utilizations[?facility_id=].
func (h *Handler) GetLatestUtilizations(c *gin.Context) {
	var facilityID *int64
	if raw := c.Query("facility_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			abortWithError(c, errs.NewInvalidParameter("invalid facility_id %q", raw))
			return
		}
		facilityID = &id
	}

	samples, err := h.series.LatestPerKey(c.Request.Context(), facilityID)
	if err != nil {
		abortWithError(c, errs.NewUpstream("latest utilizations", err))
		return
	}
	c.JSON(http.StatusOK, toResponse(samples))
}

// GetFacilityUtilizations handles GET /api/facilities/:id/utilizations.
//
// capacity_type and usage select the key. With at, the value at that instant
// is returned. Otherwise start and end (RFC3339) select a window: the stored
// samples, or the series resampled when resolution (a Go duration) is given.
func (h *Handler) GetFacilityUtilizations(c *gin.Context) {
	key, err := keyParams(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	ctx := c.Request.Context()

	if raw := c.Query("at"); raw != "" {
		at, err := timeParam("at", raw)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s, found, err := utilization.AtInstant(ctx, h.series, key, at)
		if err != nil {
			abortWithError(c, errs.NewUpstream("utilization at instant", err))
			return
		}
		if !found {
			abortWithError(c, errs.NewNotFound("no utilization of %s at or before %s", key, raw))
			return
		}
		c.JSON(http.StatusOK, toResponse([]utilization.Sample{s})[0])
		return
	}

	start, err := timeParam("start", c.Query("start"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	end, err := timeParam("end", c.Query("end"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	var samples []utilization.Sample
	if raw := c.Query("resolution"); raw != "" {
		resolution, perr := time.ParseDuration(raw)
		if perr != nil {
			abortWithError(c, errs.NewInvalidParameter("invalid resolution %q", raw))
			return
		}
		if resolution > 0 && end.Sub(start)/resolution > maxResampleBuckets {
			abortWithError(c, errs.NewInvalidParameter("resolution %s yields more than %d points", raw, maxResampleBuckets))
			return
		}
		samples, err = utilization.Resample(ctx, h.series, key, start, end, resolution)
	} else {
		if end.Before(start) {
			abortWithError(c, errs.NewInvalidParameter("start is after end"))
			return
		}
		samples, err = h.series.Between(ctx, key, start, end)
		if err != nil {
			err = errs.NewUpstream("utilizations between", err)
		}
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(samples))
}

func keyParams(c *gin.Context) (utilization.Key, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return utilization.Key{}, errs.NewInvalidParameter("invalid facility id %q", c.Param("id"))
	}
	ct, err := utilization.ParseCapacityType(c.Query("capacity_type"))
	if err != nil {
		return utilization.Key{}, err
	}
	usage, err := utilization.ParseUsage(c.Query("usage"))
	if err != nil {
		return utilization.Key{}, err
	}
	return utilization.Key{FacilityID: id, CapacityType: ct, Usage: usage}, nil
}

func timeParam(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errs.NewInvalidParameter("%s is required", name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errs.NewInvalidParameter("invalid %s %q, use RFC3339", name, raw)
	}
	return t, nil
}
