package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"facility-usage-backend/internal/errs"
	"facility-usage-backend/internal/report"
	"facility-usage-backend/internal/utilization"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	reports         *report.Registry
	series          utilization.Series
	defaultInterval int
}

// NewHandler creates a new API handler. defaultInterval is the report bucket
// width in minutes used when a request leaves it out.
func NewHandler(reports *report.Registry, series utilization.Series, defaultInterval int) *Handler {
	return &Handler{
		reports:         reports,
		series:          series,
		defaultInterval: defaultInterval,
	}
}

// abortWithError maps err to its HTTP status. Unclassified errors are logged
// and reported without detail.
func abortWithError(c *gin.Context, err error) {
	status := errs.Code(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
