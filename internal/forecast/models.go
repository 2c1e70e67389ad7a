package forecast

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"blipee/sustainability-engine/internal/metrics"
)

// Method tags how a forecast was produced.
type Method string

const (
	MethodProphet     Method = "prophet"
	MethodHoltWinters Method = "holt_winters"
	MethodLinear      Method = "linear"
)

// ErrInsufficientHistory is returned when fewer than MinHistoryMonths
// monthly observations exist for the requested domain.
var ErrInsufficientHistory = errors.New("insufficient history: at least 12 monthly data points required")

const (
	// MinHistoryMonths is the floor below which no model runs.
	MinHistoryMonths = 12
	// seasonLength is the seasonal cycle in months.
	seasonLength = 12
	// holtWintersMinimum is the history needed to initialize the
	// seasonal model: two full cycles.
	holtWintersMinimum = 2 * seasonLength

	// DefaultHorizonMonths is the forecast length when the caller does
	// not ask for one.
	DefaultHorizonMonths = 12
	// MaxHorizonMonths caps how far ahead the engine will project.
	MaxHorizonMonths = 36
)

// Point is one forecast month with its confidence band.
type Point struct {
	Month time.Time `json:"month"`
	Value float64   `json:"value"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// EnergyMix decomposes an energy forecast into independently projected
// renewable and fossil component series.
type EnergyMix struct {
	Renewable      []Point `json:"renewable"`
	Fossil         []Point `json:"fossil"`
	RenewableShare float64 `json:"renewable_share"`
}

// Result is a completed forecast for one organization and domain.
// EnergyMix is set for the energy domain only.
type Result struct {
	OrganizationID uuid.UUID      `json:"organization_id"`
	Domain         metrics.Domain `json:"domain"`
	Method         Method         `json:"method"`
	HistoryMonths  int            `json:"history_months"`
	Points         []Point        `json:"points"`
	EnergyMix      *EnergyMix     `json:"energy_mix,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Total sums the forecast values over all points, rounded to one
// decimal.
func (r *Result) Total() float64 {
	total := 0.0
	for _, p := range r.Points {
		total += p.Value
	}
	return math.Round(total*10) / 10
}
