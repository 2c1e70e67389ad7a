package targets

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Scenario names a published decarbonization pathway.
type Scenario string

const (
	ScenarioSBTi15C Scenario = "SBTi_1.5C"
	ScenarioETPB2DS Scenario = "ETP_B2DS"
	ScenarioNZE2021 Scenario = "NZE2021"
)

// sectorCrossSector is the fallback sector used when no sector-specific
// pathway exists.
const sectorCrossSector = "cross_sector"

// PathwayPoint is one anchor year of a pathway. Remaining is the share
// of base-year emissions still allowed in that year, in percent.
type PathwayPoint struct {
	Scenario  Scenario `json:"scenario" db:"scenario"`
	Sector    string   `json:"sector" db:"sector"`
	Year      int      `json:"year" db:"year"`
	Remaining float64  `json:"remaining" db:"remaining"`
}

// Pathways answers how much reduction a scenario demands by a given
// year. Values between anchor years are linearly interpolated. The set
// is immutable after load.
type Pathways struct {
	points map[Scenario]map[string][]PathwayPoint
}

// NewPathways builds a pathway set from explicit points.
func NewPathways(points []PathwayPoint) *Pathways {
	p := &Pathways{points: map[Scenario]map[string][]PathwayPoint{}}
	for _, point := range points {
		sector := normalizeSector(point.Sector)
		if p.points[point.Scenario] == nil {
			p.points[point.Scenario] = map[string][]PathwayPoint{}
		}
		p.points[point.Scenario][sector] = append(p.points[point.Scenario][sector], point)
	}
	for _, sectors := range p.points {
		for _, series := range sectors {
			sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
		}
	}
	return p
}

// LoadPathways reads the sbti_pathways table, falling back to the
// built-in pathway set when the table is empty or unavailable.
func LoadPathways(ctx context.Context, db *sqlx.DB, logger *zap.Logger) *Pathways {
	query := `
		SELECT scenario, sector, year, remaining
		FROM sbti_pathways
		ORDER BY scenario, sector, year
	`

	var points []PathwayPoint
	if err := db.SelectContext(ctx, &points, query); err != nil {
		logger.Warn("Pathway table unavailable, using built-in pathways", zap.Error(err))
		return NewPathways(defaultPathwayPoints())
	}
	if len(points) == 0 {
		logger.Info("Pathway table empty, using built-in pathways")
		return NewPathways(defaultPathwayPoints())
	}

	logger.Info("SBTi pathways loaded", zap.Int("points", len(points)))
	return NewPathways(points)
}

// Remaining returns the percent of base-year emissions a scenario still
// allows in year. Years outside the anchor range clamp to the nearest
// anchor. Unknown sectors resolve to the cross-sector pathway.
func (p *Pathways) Remaining(scenario Scenario, sector string, year int) (float64, error) {
	sectors, ok := p.points[scenario]
	if !ok {
		return 0, fmt.Errorf("unknown pathway scenario: %s", scenario)
	}
	series, ok := sectors[normalizeSector(sector)]
	if !ok {
		series, ok = sectors[sectorCrossSector]
		if !ok {
			return 0, fmt.Errorf("no pathway for scenario %s sector %s", scenario, sector)
		}
	}

	if year <= series[0].Year {
		return series[0].Remaining, nil
	}
	last := series[len(series)-1]
	if year >= last.Year {
		return last.Remaining, nil
	}

	for i := 1; i < len(series); i++ {
		if year <= series[i].Year {
			prev, next := series[i-1], series[i]
			span := float64(next.Year - prev.Year)
			progress := float64(year-prev.Year) / span
			return prev.Remaining + (next.Remaining-prev.Remaining)*progress, nil
		}
	}
	return last.Remaining, nil
}

// RequiredReduction returns the percent reduction a scenario demands
// between two years.
func (p *Pathways) RequiredReduction(scenario Scenario, sector string, fromYear, toYear int) (float64, error) {
	from, err := p.Remaining(scenario, sector, fromYear)
	if err != nil {
		return 0, err
	}
	to, err := p.Remaining(scenario, sector, toYear)
	if err != nil {
		return 0, err
	}
	if from <= 0 {
		return 0, nil
	}
	return (from - to) / from * 100, nil
}

// Scenarios lists the scenarios in the set.
func (p *Pathways) Scenarios() []Scenario {
	out := make([]Scenario, 0, len(p.points))
	for scenario := range p.points {
		out = append(out, scenario)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func normalizeSector(sector string) string {
	s := strings.ToLower(strings.TrimSpace(sector))
	if s == "" || s == "all" {
		return sectorCrossSector
	}
	return s
}

// defaultPathwayPoints carries the compiled-in pathway anchors, percent
// of base-year (2020) emissions remaining at five-year steps.
func defaultPathwayPoints() []PathwayPoint {
	anchors := []struct {
		scenario Scenario
		values   map[int]float64
	}{
		{ScenarioSBTi15C, map[int]float64{2020: 100, 2025: 79, 2030: 58, 2035: 45, 2040: 32, 2045: 19, 2050: 10}},
		{ScenarioNZE2021, map[int]float64{2020: 100, 2025: 80, 2030: 55, 2035: 40, 2040: 25, 2045: 12, 2050: 0}},
		{ScenarioETPB2DS, map[int]float64{2020: 100, 2025: 85, 2030: 65, 2035: 50, 2040: 35, 2045: 22, 2050: 12}},
	}

	points := []PathwayPoint{}
	for _, anchor := range anchors {
		for year, remaining := range anchor.values {
			points = append(points, PathwayPoint{
				Scenario:  anchor.scenario,
				Sector:    sectorCrossSector,
				Year:      year,
				Remaining: remaining,
			})
		}
	}
	return points
}
