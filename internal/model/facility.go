package model

import "time"

// Facility represents a park-and-ride facility.
type Facility struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"` // Upstream ID
	Name      string    `gorm:"size:256;not null"`
	Status    string    `gorm:"size:32;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	Capacities []FacilityCapacity `gorm:"foreignKey:FacilityID;constraint:OnDelete:CASCADE"`
	Pricings   []FacilityPricing  `gorm:"foreignKey:FacilityID;constraint:OnDelete:CASCADE"`
}

// FacilityCapacity is the number of spaces built for one capacity type.
type FacilityCapacity struct {
	FacilityID   int64  `gorm:"primaryKey;autoIncrement:false"`
	CapacityType string `gorm:"primaryKey;size:32"`
	Built        int    `gorm:"not null"`
}

// FacilityPricing marks a (capacity type, usage) combination as offered.
type FacilityPricing struct {
	FacilityID   int64  `gorm:"primaryKey;autoIncrement:false"`
	CapacityType string `gorm:"primaryKey;size:32"`
	Usage        string `gorm:"primaryKey;size:32"`
}

// FacilityStatusHistory is one period of a facility's operating status.
// A nil EndTS means the status is still in effect.
type FacilityStatusHistory struct {
	ID         int64     `gorm:"primaryKey"`
	FacilityID int64     `gorm:"index;not null"`
	Status     string    `gorm:"size:32;not null"`
	StartTS    time.Time `gorm:"not null"`
	EndTS      *time.Time
}
