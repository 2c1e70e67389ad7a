package metrics

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"blipee/sustainability-engine/internal/catalog"
)

// Domain groups activity data into the reporting domains the engine
// serves. Emissions aggregates CO2e across every metric; the other
// domains sum raw activity values for their categories.
type Domain string

const (
	DomainEmissions Domain = "emissions"
	DomainEnergy    Domain = "energy"
	DomainWater     Domain = "water"
	DomainWaste     Domain = "waste"
)

// AllDomains returns the reporting domains in presentation order.
func AllDomains() []Domain {
	return []Domain{DomainEmissions, DomainEnergy, DomainWater, DomainWaste}
}

// Valid reports whether d is a known reporting domain.
func (d Domain) Valid() bool {
	switch d {
	case DomainEmissions, DomainEnergy, DomainWater, DomainWaste:
		return true
	}
	return false
}

// Unit returns the reporting unit for the domain.
func (d Domain) Unit() string {
	switch d {
	case DomainEmissions:
		return "tCO2e"
	case DomainEnergy:
		return "kWh"
	case DomainWater:
		return "m³"
	case DomainWaste:
		return "tons"
	}
	return ""
}

// domainCategories maps each non-emissions domain to the catalog
// categories it covers. Matching is case-insensitive.
var domainCategories = map[Domain][]string{
	DomainEnergy: {"electricity", "purchased energy"},
	DomainWater:  {"water"},
	DomainWaste:  {"waste"},
}

// Matches reports whether a metric definition belongs to the domain.
// Every catalogued metric belongs to the emissions domain.
func (d Domain) Matches(def catalog.MetricDefinition) bool {
	if d == DomainEmissions {
		return true
	}
	category := strings.ToLower(strings.TrimSpace(def.Category))
	for _, c := range domainCategories[d] {
		if category == c {
			return true
		}
	}
	return false
}

// ActivityRecord is one row of measured activity data. CO2eEmissions is
// stored in kilograms; aggregation converts to tonnes for reporting.
type ActivityRecord struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	OrganizationID     uuid.UUID  `json:"organization_id" db:"organization_id"`
	MetricID           uuid.UUID  `json:"metric_id" db:"metric_id"`
	SiteID             *uuid.UUID `json:"site_id,omitempty" db:"site_id"`
	PeriodStart        time.Time  `json:"period_start" db:"period_start"`
	PeriodEnd          time.Time  `json:"period_end" db:"period_end"`
	Value              float64    `json:"value" db:"value"`
	Unit               string     `json:"unit" db:"unit"`
	CO2eEmissions      *float64   `json:"co2e_emissions,omitempty" db:"co2e_emissions"`
	DataQuality        string     `json:"data_quality" db:"data_quality"`
	VerificationStatus string     `json:"verification_status" db:"verification_status"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// RecordFilter narrows repository reads. Nil pointer fields are ignored.
type RecordFilter struct {
	OrganizationID uuid.UUID
	SiteID         *uuid.UUID
	MetricIDs      []uuid.UUID
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	Limit          int
	Offset         int
}

// DomainTotal is the aggregated figure for one domain over a period.
// ScopeTotals is populated for the emissions domain only.
type DomainTotal struct {
	Domain      Domain                    `json:"domain"`
	Unit        string                    `json:"unit"`
	Total       float64                   `json:"total"`
	ScopeTotals map[catalog.Scope]float64 `json:"scope_totals,omitempty"`
	RecordCount int                       `json:"record_count"`
	PeriodStart time.Time                 `json:"period_start"`
	PeriodEnd   time.Time                 `json:"period_end"`
}

// MonthlyPoint is one month of an aggregated series. Month is the first
// instant of the calendar month in UTC.
type MonthlyPoint struct {
	Month time.Time `json:"month"`
	Value float64   `json:"value"`
}

// CategoryTotal is one slice of a category breakdown.
type CategoryTotal struct {
	Category   string  `json:"category"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// SiteTotal is one slice of a per-site breakdown. Records without a site
// fall under the empty-ID bucket labelled "Unassigned".
type SiteTotal struct {
	SiteID     uuid.UUID `json:"site_id"`
	SiteName   string    `json:"site_name"`
	Value      float64   `json:"value"`
	Percentage float64   `json:"percentage"`
}

// Snapshot carries the totals of all reporting domains for one period,
// computed in a single fan-out.
type Snapshot struct {
	OrganizationID uuid.UUID              `json:"organization_id"`
	PeriodStart    time.Time              `json:"period_start"`
	PeriodEnd      time.Time              `json:"period_end"`
	Domains        map[Domain]DomainTotal `json:"domains"`
	GeneratedAt    time.Time              `json:"generated_at"`
}
