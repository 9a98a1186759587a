// Package utilization models facility occupancy samples and turns a sparse,
// irregularly timed sample history into fixed-resolution series.
package utilization

import (
	"fmt"
	"time"

	"facility-usage-backend/internal/errs"
)

// CapacityType is the kind of vehicle a group of spaces is built for.
type CapacityType string

const (
	CapacityCar                CapacityType = "CAR"
	CapacityDisabled           CapacityType = "DISABLED"
	CapacityElectricCar        CapacityType = "ELECTRIC_CAR"
	CapacityMotorcycle         CapacityType = "MOTORCYCLE"
	CapacityBicycle            CapacityType = "BICYCLE"
	CapacityBicycleSecureSpace CapacityType = "BICYCLE_SECURE_SPACE"
)

// CapacityTypes lists every capacity type in report order.
var CapacityTypes = []CapacityType{
	CapacityCar,
	CapacityDisabled,
	CapacityElectricCar,
	CapacityMotorcycle,
	CapacityBicycle,
	CapacityBicycleSecureSpace,
}

// Usage is the category of parkers a group of spaces is reserved for.
type Usage string

const (
	UsageParkAndRide   Usage = "PARK_AND_RIDE"
	UsageHSLTravelCard Usage = "HSL_TRAVEL_CARD"
	UsageCommercial    Usage = "COMMERCIAL"
)

// Usages lists every usage in report order.
var Usages = []Usage{UsageParkAndRide, UsageHSLTravelCard, UsageCommercial}

// Ordinal is the position of c in CapacityTypes, or len(CapacityTypes) if unknown.
func (c CapacityType) Ordinal() int {
	for i, v := range CapacityTypes {
		if v == c {
			return i
		}
	}
	return len(CapacityTypes)
}

// Ordinal is the position of u in Usages, or len(Usages) if unknown.
func (u Usage) Ordinal() int {
	for i, v := range Usages {
		if v == u {
			return i
		}
	}
	return len(Usages)
}

func ParseCapacityType(s string) (CapacityType, error) {
	c := CapacityType(s)
	if c.Ordinal() == len(CapacityTypes) {
		return "", errs.NewInvalidParameter("unknown capacity type %q", s)
	}
	return c, nil
}

func ParseUsage(s string) (Usage, error) {
	u := Usage(s)
	if u.Ordinal() == len(Usages) {
		return "", errs.NewInvalidParameter("unknown usage %q", s)
	}
	return u, nil
}

// Key identifies one logical occupancy time series.
type Key struct {
	FacilityID   int64        `json:"facilityId"`
	CapacityType CapacityType `json:"capacityType"`
	Usage        Usage        `json:"usage"`
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%s", k.FacilityID, k.CapacityType, k.Usage)
}

// Sample is one occupancy observation.
type Sample struct {
	Key
	Timestamp       time.Time `json:"timestamp"`
	SpacesAvailable int       `json:"spacesAvailable"`
	Capacity        int       `json:"capacity"`
}

// At returns a copy of s stamped with instant t.
func (s Sample) At(t time.Time) Sample {
	s.Timestamp = t
	return s
}
