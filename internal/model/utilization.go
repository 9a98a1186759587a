package model

import "time"

// Utilization is one observation of a facility's free spaces (time-series table).
// The primary key makes a repeated observation of the same key and instant an update.
type Utilization struct {
	FacilityID      int64     `gorm:"primaryKey;autoIncrement:false"`
	CapacityType    string    `gorm:"primaryKey;size:32"`
	Usage           string    `gorm:"primaryKey;size:32"`
	ObservedAt      time.Time `gorm:"primaryKey;index"`
	SpacesAvailable int       `gorm:"not null"`
	Capacity        int       `gorm:"not null"`
}

// All lists the models managed by migrations.
func All() []any {
	return []any{
		&Facility{},
		&FacilityCapacity{},
		&FacilityPricing{},
		&FacilityStatusHistory{},
		&Utilization{},
	}
}
