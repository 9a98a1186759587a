package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"facility-usage-backend/internal/facility"
	"facility-usage-backend/internal/model"
	"facility-usage-backend/internal/utilization"
)

// FacilityStore serves facility metadata and status history to the report
// engine, and the write side used to maintain them.
type FacilityStore interface {
	facility.Provider
	facility.HistoryProvider
	SaveFacility(ctx context.Context, f facility.Facility) error
	RecordStatus(ctx context.Context, facilityID int64, change facility.StatusChange) error
}

type gormFacilityStore struct {
	db    *gorm.DB
	loc   *time.Location
	cache *cache.Cache
}

// NewFacilityStore creates a GORM-backed facility store. Facility metadata is
// cached for ttl; a non-positive ttl disables the cache. Status history days
// are resolved in loc.
func NewFacilityStore(db *gorm.DB, loc *time.Location, ttl time.Duration) FacilityStore {
	s := &gormFacilityStore{db: db, loc: loc}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

func cacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Facilities loads the facilities with the given ids. Unknown ids are absent
// from the result.
func (s *gormFacilityStore) Facilities(ctx context.Context, ids []int64) (map[int64]facility.Facility, error) {
	out := make(map[int64]facility.Facility, len(ids))
	var missing []int64
	for _, id := range ids {
		if s.cache != nil {
			if f, found := s.cache.Get(cacheKey(id)); found {
				out[id] = f.(facility.Facility)
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	var rows []model.Facility
	err := s.db.WithContext(ctx).
		Preload("Capacities").
		Preload("Pricings").
		Where("id IN ?", missing).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load facilities: %w", err)
	}
	for _, row := range rows {
		f := toFacility(row)
		out[f.ID] = f
		if s.cache != nil {
			s.cache.SetDefault(cacheKey(f.ID), f)
		}
	}
	return out, nil
}

// StatusHistory resolves the facility's status for every date in [from, to]
// that some history entry covers.
func (s *gormFacilityStore) StatusHistory(ctx context.Context, facilityID int64, from, to utilization.Date) (map[utilization.Date]facility.Status, error) {
	start := from.Midnight(s.loc).UTC()
	end := to.AddDays(1).Midnight(s.loc).UTC()

	var rows []model.FacilityStatusHistory
	err := s.db.WithContext(ctx).
		Where("facility_id = ? AND start_ts < ? AND (end_ts IS NULL OR end_ts > ?)", facilityID, end, start).
		Order("start_ts").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load status history of facility %d: %w", facilityID, err)
	}

	changes := make([]facility.StatusChange, len(rows))
	for i, r := range rows {
		changes[i] = facility.StatusChange{Status: facility.Status(r.Status), Start: r.StartTS, End: r.EndTS}
	}
	return facility.StatusByDay(changes, from, to, s.loc), nil
}

// SaveFacility upserts the facility and replaces its capacities and pricing.
func (s *gormFacilityStore) SaveFacility(ctx context.Context, f facility.Facility) error {
	row := fromFacility(f)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "status", "updated_at"}),
		}).Omit(clause.Associations).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to upsert facility %d: %w", f.ID, err)
		}
		if err := tx.Where("facility_id = ?", f.ID).Delete(&model.FacilityCapacity{}).Error; err != nil {
			return fmt.Errorf("failed to clear capacities of facility %d: %w", f.ID, err)
		}
		if err := tx.Where("facility_id = ?", f.ID).Delete(&model.FacilityPricing{}).Error; err != nil {
			return fmt.Errorf("failed to clear pricing of facility %d: %w", f.ID, err)
		}
		if len(row.Capacities) > 0 {
			if err := tx.Create(&row.Capacities).Error; err != nil {
				return fmt.Errorf("failed to save capacities of facility %d: %w", f.ID, err)
			}
		}
		if len(row.Pricings) > 0 {
			if err := tx.Create(&row.Pricings).Error; err != nil {
				return fmt.Errorf("failed to save pricing of facility %d: %w", f.ID, err)
			}
		}
		return nil
	})
	if err == nil && s.cache != nil {
		s.cache.Delete(cacheKey(f.ID))
	}
	return err
}

// RecordStatus closes the open history entry of the facility at change.Start,
// appends change and makes its status the facility's current status.
func (s *gormFacilityStore) RecordStatus(ctx context.Context, facilityID int64, change facility.StatusChange) error {
	start := change.Start.UTC()
	var end *time.Time
	if change.End != nil {
		e := change.End.UTC()
		end = &e
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.FacilityStatusHistory{}).
			Where("facility_id = ? AND end_ts IS NULL AND start_ts <= ?", facilityID, start).
			Update("end_ts", start).Error; err != nil {
			return fmt.Errorf("failed to close status of facility %d: %w", facilityID, err)
		}
		entry := model.FacilityStatusHistory{FacilityID: facilityID, Status: string(change.Status), StartTS: start, EndTS: end}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to record status of facility %d: %w", facilityID, err)
		}
		if end == nil {
			if err := tx.Model(&model.Facility{}).Where("id = ?", facilityID).
				Update("status", string(change.Status)).Error; err != nil {
				return fmt.Errorf("failed to update status of facility %d: %w", facilityID, err)
			}
		}
		return nil
	})
	if err == nil && s.cache != nil {
		s.cache.Delete(cacheKey(facilityID))
	}
	return err
}

func toFacility(row model.Facility) facility.Facility {
	f := facility.Facility{
		ID:            row.ID,
		Name:          row.Name,
		Status:        facility.Status(row.Status),
		BuiltCapacity: make(map[utilization.CapacityType]int, len(row.Capacities)),
	}
	for _, c := range row.Capacities {
		f.BuiltCapacity[utilization.CapacityType(c.CapacityType)] = c.Built
	}
	for _, p := range row.Pricings {
		f.Pricing = append(f.Pricing, facility.Pricing{
			CapacityType: utilization.CapacityType(p.CapacityType),
			Usage:        utilization.Usage(p.Usage),
		})
	}
	return f
}

func fromFacility(f facility.Facility) model.Facility {
	row := model.Facility{ID: f.ID, Name: f.Name, Status: string(f.Status)}
	for _, ct := range utilization.CapacityTypes {
		if built, ok := f.BuiltCapacity[ct]; ok {
			row.Capacities = append(row.Capacities, model.FacilityCapacity{FacilityID: f.ID, CapacityType: string(ct), Built: built})
		}
	}
	for _, p := range f.Pricing {
		row.Pricings = append(row.Pricings, model.FacilityPricing{
			FacilityID:   f.ID,
			CapacityType: string(p.CapacityType),
			Usage:        string(p.Usage),
		})
	}
	return row
}
