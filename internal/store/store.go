package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"facility-usage-backend/internal/model"
	"facility-usage-backend/internal/utilization"
)

// UtilizationStore is the sample store: per-key history lookups for the
// resampler, the ordered bulk stream for reports and the ingest write path.
type UtilizationStore interface {
	utilization.Series
	utilization.Stream
	InsertUtilizations(ctx context.Context, samples []utilization.Sample) error
}

// gormStore implements UtilizationStore using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed utilization store.
func NewGormStore(db *gorm.DB) UtilizationStore {
	return &gormStore{db: db}
}

const insertBatchSize = 500

// InsertUtilizations stores samples. A sample for a key and instant that is
// already stored replaces it.
func (s *gormStore) InsertUtilizations(ctx context.Context, samples []utilization.Sample) error {
	rows := dedupe(samples)
	if len(rows) == 0 {
		return nil
	}

	log.Debugf("Batch upserting %d utilizations...", len(rows))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "facility_id"}, {Name: "capacity_type"}, {Name: "usage"}, {Name: "observed_at"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"spaces_available", "capacity"}),
		}).CreateInBatches(&rows, insertBatchSize).Error
		if err != nil {
			return fmt.Errorf("batch upsert utilizations failed: %w", err)
		}
		return nil
	})
}

// dedupe converts samples to rows, keeping the last sample per primary key so
// one statement never touches the same row twice.
func dedupe(samples []utilization.Sample) []model.Utilization {
	type pk struct {
		key utilization.Key
		at  int64
	}
	index := make(map[pk]int, len(samples))
	rows := make([]model.Utilization, 0, len(samples))
	for _, smp := range samples {
		row := toModel(smp)
		k := pk{key: smp.Key, at: row.ObservedAt.UnixNano()}
		if i, ok := index[k]; ok {
			rows[i] = row
			continue
		}
		index[k] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

func (s *gormStore) LatestBeforeOrAt(ctx context.Context, key utilization.Key, t time.Time) (utilization.Sample, bool, error) {
	var row model.Utilization
	err := s.keyScope(ctx, key).
		Where("observed_at <= ?", t.UTC()).
		Order("observed_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utilization.Sample{}, false, nil
	}
	if err != nil {
		return utilization.Sample{}, false, fmt.Errorf("latest utilization of %s before %s: %w", key, t.Format(time.RFC3339), err)
	}
	return toSample(row), true, nil
}

func (s *gormStore) Between(ctx context.Context, key utilization.Key, start, end time.Time) ([]utilization.Sample, error) {
	var rows []model.Utilization
	err := s.keyScope(ctx, key).
		Where("observed_at >= ? AND observed_at <= ?", start.UTC(), end.UTC()).
		Order("observed_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("utilizations of %s between %s and %s: %w", key, start.Format(time.RFC3339), end.Format(time.RFC3339), err)
	}
	return toSamples(rows), nil
}

const latestPerKeyJoin = `JOIN (
	SELECT facility_id, capacity_type, usage, MAX(observed_at) AS observed_at
	FROM utilizations
	GROUP BY facility_id, capacity_type, usage
) latest ON latest.facility_id = u.facility_id
	AND latest.capacity_type = u.capacity_type
	AND latest.usage = u.usage
	AND latest.observed_at = u.observed_at`

const pricedFilter = `EXISTS (
	SELECT 1 FROM facility_pricings p
	WHERE p.facility_id = u.facility_id AND p.capacity_type = u.capacity_type AND p.usage = u.usage
)`

func (s *gormStore) LatestPerKey(ctx context.Context, facilityID *int64) ([]utilization.Sample, error) {
	q := s.db.WithContext(ctx).
		Table("utilizations u").
		Select("u.*").
		Joins(latestPerKeyJoin).
		Where(pricedFilter)
	if facilityID != nil {
		q = q.Where("u.facility_id = ?", *facilityID)
	}

	var rows []model.Utilization
	if err := q.Order("u.facility_id, u.capacity_type, u.usage").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("latest utilizations: %w", err)
	}
	samples := toSamples(rows)
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Key.String() < samples[j].Key.String()
	})
	return utilization.LatestOnly(samples), nil
}

// FindUtilizations streams the samples of a report window ordered by time.
// The caller must close the iterator.
func (s *gormStore) FindUtilizations(ctx context.Context, search utilization.Search) (utilization.Iterator, error) {
	q := s.db.WithContext(ctx).Model(&model.Utilization{}).
		Where("observed_at >= ? AND observed_at < ?", search.Start.UTC(), search.End.UTC())
	if len(search.FacilityIDs) > 0 {
		q = q.Where("facility_id IN ?", search.FacilityIDs)
	}
	if len(search.CapacityTypes) > 0 {
		q = q.Where("capacity_type IN ?", stringsOf(search.CapacityTypes))
	}
	if len(search.Usages) > 0 {
		q = q.Where("usage IN ?", stringsOf(search.Usages))
	}

	rows, err := q.Order("observed_at, facility_id, capacity_type, usage").Rows()
	if err != nil {
		return nil, fmt.Errorf("find utilizations: %w", err)
	}
	return &rowIterator{db: s.db, rows: rows}, nil
}

func (s *gormStore) keyScope(ctx context.Context, key utilization.Key) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("facility_id = ? AND capacity_type = ? AND usage = ?", key.FacilityID, string(key.CapacityType), string(key.Usage))
}

// rowIterator adapts *sql.Rows to utilization.Iterator.
type rowIterator struct {
	db   *gorm.DB
	rows *sql.Rows
	cur  utilization.Sample
	err  error
}

func (it *rowIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	var row model.Utilization
	if err := it.db.ScanRows(it.rows, &row); err != nil {
		it.err = fmt.Errorf("scan utilization: %w", err)
		return false
	}
	it.cur = toSample(row)
	return true
}

func (it *rowIterator) Sample() utilization.Sample {
	return it.cur
}

func (it *rowIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *rowIterator) Close() error {
	return it.rows.Close()
}

func toModel(s utilization.Sample) model.Utilization {
	return model.Utilization{
		FacilityID:      s.FacilityID,
		CapacityType:    string(s.CapacityType),
		Usage:           string(s.Usage),
		ObservedAt:      s.Timestamp.UTC(),
		SpacesAvailable: s.SpacesAvailable,
		Capacity:        s.Capacity,
	}
}

func toSample(row model.Utilization) utilization.Sample {
	return utilization.Sample{
		Key: utilization.Key{
			FacilityID:   row.FacilityID,
			CapacityType: utilization.CapacityType(row.CapacityType),
			Usage:        utilization.Usage(row.Usage),
		},
		Timestamp:       row.ObservedAt.UTC(),
		SpacesAvailable: row.SpacesAvailable,
		Capacity:        row.Capacity,
	}
}

func toSamples(rows []model.Utilization) []utilization.Sample {
	out := make([]utilization.Sample, len(rows))
	for i, r := range rows {
		out[i] = toSample(r)
	}
	return out
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
