// Package app wires the stores and report generators shared by the binaries.
package app

import (
	"time"

	"gorm.io/gorm"

	"facility-usage-backend/config"
	"facility-usage-backend/internal/clock"
	"facility-usage-backend/internal/facility"
	"facility-usage-backend/internal/report"
	"facility-usage-backend/internal/store"
	"facility-usage-backend/internal/utilization"
)

// Services are the long-lived collaborators built from one configuration.
type Services struct {
	Utilizations store.UtilizationStore
	Facilities   store.FacilityStore
	Reports      *report.Registry
}

// New builds the services on top of an initialized database.
func New(cfg *config.Config, gormDB *gorm.DB) *Services {
	utilizations := store.NewGormStore(gormDB)
	facilities := store.NewFacilityStore(gormDB, cfg.Report.Location,
		time.Duration(cfg.Report.FacilityCacheSeconds)*time.Second)

	return &Services{
		Utilizations: utilizations,
		Facilities:   facilities,
		Reports:      NewReports(cfg, utilizations, facilities, facilities),
	}
}

// NewReports builds the report registry over any sample stream and facility
// sources, database-backed or not.
func NewReports(cfg *config.Config, samples utilization.Stream, facilities facility.Provider, history facility.HistoryProvider) *report.Registry {
	return report.NewDefaultRegistry(report.Deps{
		Samples:      samples,
		Facilities:   facilities,
		History:      history,
		Clock:        clock.Real{},
		Location:     cfg.Report.Location,
		MaxRangeDays: cfg.Report.MaxRangeDays,
	})
}
