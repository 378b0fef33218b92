// Package parameters manages tax parameter associations of a company and their
// monthly or quarterly validity periods.
package parameters

import (
	"time"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

// Nature says whether a parameter is always valid or valid per month or quarter.
type Nature string

const (
	NatureGlobal    Nature = "GLOBAL"
	NatureMonthly   Nature = "MONTHLY"
	NatureQuarterly Nature = "QUARTERLY"
)

// Periodic reports whether associations of this nature own temporal values.
func (n Nature) Periodic() bool {
	return n == NatureMonthly || n == NatureQuarterly
}

// ParameterType groups parameters and carries their nature.
type ParameterType struct {
	ID     int64
	Name   string
	Nature Nature
}

// Parameter is a tax parameter from the shared catalogue.
type Parameter struct {
	ID          int64
	Code        string
	Description string
	Type        ParameterType
	Status      shared.Status
}

// Association links a company to a parameter.
type Association struct {
	ID          int64
	CompanyID   int64
	ParameterID int64
	Nature      Nature
	CreatedBy   int64
	CreatedAt   time.Time
	Status      shared.Status
	Values      []TemporalValue
}

// TemporalValue is one period in which a periodic association applies.
// Exactly one of Month and Quarter is set.
type TemporalValue struct {
	ID            int64
	AssociationID int64
	Year          int
	Month         *int
	Quarter       *int
}

// Month returns a monthly value.
func Month(year, month int) TemporalValue {
	return TemporalValue{Year: year, Month: &month}
}

// Quarter returns a quarterly value.
func Quarter(year, quarter int) TemporalValue {
	return TemporalValue{Year: year, Quarter: &quarter}
}

// Start is the first day of the period.
func (v TemporalValue) Start() time.Time {
	switch {
	case v.Month != nil:
		return shared.FirstOfMonth(v.Year, *v.Month)
	case v.Quarter != nil:
		return shared.FirstOfMonth(v.Year, (*v.Quarter-1)*3+1)
	}
	return shared.FirstOfMonth(v.Year, 1)
}

func (v TemporalValue) sameSlot(o TemporalValue) bool {
	return v.Year == o.Year && equalPtr(v.Month, o.Month) && equalPtr(v.Quarter, o.Quarter)
}

func equalPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DatedValue adapts a temporal value of a company to the period lock guard.
type DatedValue struct {
	CompanyID int64
	Value     TemporalValue
}

// OwningCompany implements periodlock.Dated.
func (d DatedValue) OwningCompany() int64 { return d.CompanyID }

// ReferenceDate implements periodlock.Dated.
func (d DatedValue) ReferenceDate() time.Time { return d.Value.Start() }

// AssociateInput requests a new association with its initial periods.
type AssociateInput struct {
	CompanyID   int64 `validate:"required,gt=0"`
	ParameterID int64 `validate:"required,gt=0"`
	ActorID     int64
	Values      []TemporalValue
}
