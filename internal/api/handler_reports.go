package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"facility-usage-backend/internal/errs"
	"facility-usage-backend/internal/render"
	"facility-usage-backend/internal/report"
	"facility-usage-backend/internal/utilization"
)

type reportRequest struct {
	StartDate     utilization.Date           `json:"startDate"`
	EndDate       utilization.Date           `json:"endDate"`
	Interval      *int                       `json:"interval"` // minutes
	Facilities    []int64                    `json:"facilities"`
	CapacityTypes []utilization.CapacityType `json:"capacityTypes"`
	Usages        []utilization.Usage        `json:"usages"`
}

// ListReports handles GET /api/reports.
func (h *Handler) ListReports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reports": h.reports.Names()})
}

// PostReport handles POST /api/reports/:name and answers with a CSV attachment.
func (h *Handler) PostReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errs.NewInvalidParameter("%v", err))
		return
	}

	params := report.Params{
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IntervalMinutes: h.defaultInterval,
		FacilityIDs:     req.Facilities,
		CapacityTypes:   req.CapacityTypes,
		Usages:          req.Usages,
	}
	if req.Interval != nil {
		params.IntervalMinutes = *req.Interval
	}

	run, err := h.reports.Generate(c.Request.Context(), c.Param("name"), params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Content-Type", render.ContentTypeCSV)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", render.Filename(run.Table)))
	c.Header("X-Report-Run", run.ID)
	c.Status(http.StatusOK)
	if err := render.WriteCSV(c.Writer, run.Table); err != nil {
		log.WithError(err).WithField("run_id", run.ID).Warn("failed to write report body")
	}
}
