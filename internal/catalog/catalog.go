package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scope identifies a GHG Protocol emission scope.
type Scope string

const (
	Scope1 Scope = "scope_1"
	Scope2 Scope = "scope_2"
	Scope3 Scope = "scope_3"
)

// MetricDefinition describes one entry of the metric catalog. Definitions
// are static reference data joined against activity records.
type MetricDefinition struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Code        string    `json:"code" db:"code"`
	Unit        string    `json:"unit" db:"unit"`
	Scope       Scope     `json:"scope" db:"scope"`
	Category    string    `json:"category" db:"category"`
	Subcategory *string   `json:"subcategory,omitempty" db:"subcategory"`
	IsRenewable bool      `json:"is_renewable" db:"is_renewable"`
}

// AbatementAssumption holds the heuristic cost and lead-time figures the
// replanning allocator uses to rank metrics. Figures are per category.
type AbatementAssumption struct {
	Category             string  `json:"category"`
	CostPerTonne         float64 `json:"cost_per_tonne"`
	ImplementationMonths int     `json:"implementation_months"`
}

// InitiativeTemplate describes an illustrative reduction initiative
// attached to replanned metrics of a category.
type InitiativeTemplate struct {
	Category       string  `json:"category"`
	NamePattern    string  `json:"name_pattern"`
	InitiativeType string  `json:"initiative_type"`
	RiskLevel      string  `json:"risk_level"`
	ROIYears       float64 `json:"roi_years"`
}

// Catalog is an immutable lookup over metric definitions and the
// replanning assumption tables. Build it once at process start and pass
// it by reference; it must never be mutated afterwards.
type Catalog struct {
	byID        map[uuid.UUID]MetricDefinition
	byCode      map[string]MetricDefinition
	definitions []MetricDefinition
	assumptions map[string]AbatementAssumption
	templates   map[string][]InitiativeTemplate
}

// New builds a catalog from explicit definitions. Assumption and template
// tables always come from the compiled-in defaults.
func New(definitions []MetricDefinition) *Catalog {
	c := &Catalog{
		byID:        make(map[uuid.UUID]MetricDefinition, len(definitions)),
		byCode:      make(map[string]MetricDefinition, len(definitions)),
		definitions: make([]MetricDefinition, 0, len(definitions)),
		assumptions: defaultAssumptions(),
		templates:   defaultInitiativeTemplates(),
	}
	for _, def := range definitions {
		c.byID[def.ID] = def
		c.byCode[def.Code] = def
		c.definitions = append(c.definitions, def)
	}
	return c
}

// Load reads the metric catalog from the metrics_catalog table. When the
// table is empty or unavailable the compiled-in default definitions are
// used instead, so the engine can run against a store that only carries
// activity records.
func Load(ctx context.Context, db *sqlx.DB, logger *zap.Logger) *Catalog {
	query := `
		SELECT id, name, code, unit, scope, category, subcategory, is_renewable
		FROM metrics_catalog
		ORDER BY code
	`

	var definitions []MetricDefinition
	if err := db.SelectContext(ctx, &definitions, query); err != nil {
		logger.Warn("Metric catalog unavailable, using built-in definitions", zap.Error(err))
		return New(DefaultDefinitions())
	}
	if len(definitions) == 0 {
		logger.Info("Metric catalog empty, using built-in definitions")
		return New(DefaultDefinitions())
	}

	logger.Info("Metric catalog loaded", zap.Int("definitions", len(definitions)))
	return New(definitions)
}

// ByID looks up a metric definition by id.
func (c *Catalog) ByID(id uuid.UUID) (MetricDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// ByCode looks up a metric definition by its stable code.
func (c *Catalog) ByCode(code string) (MetricDefinition, bool) {
	def, ok := c.byCode[code]
	return def, ok
}

// Definitions returns all definitions in code order. The returned slice
// is a copy; mutating it does not affect the catalog.
func (c *Catalog) Definitions() []MetricDefinition {
	out := make([]MetricDefinition, len(c.definitions))
	copy(out, c.definitions)
	return out
}

// Len returns the number of catalogued metrics.
func (c *Catalog) Len() int {
	return len(c.definitions)
}

// Assumption returns the abatement assumption for a category, falling
// back to the cross-sector default for unknown categories.
func (c *Catalog) Assumption(category string) AbatementAssumption {
	if a, ok := c.assumptions[normalizeCategory(category)]; ok {
		return a
	}
	return c.assumptions[categoryDefault]
}

// Templates returns the initiative templates for a category, falling
// back to the generic template set.
func (c *Catalog) Templates(category string) []InitiativeTemplate {
	if t, ok := c.templates[normalizeCategory(category)]; ok {
		return t
	}
	return c.templates[categoryDefault]
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// Validate checks catalog integrity: duplicate codes and unknown scopes
// are configuration mistakes worth failing fast on.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.definitions))
	for _, def := range c.definitions {
		if seen[def.Code] {
			return fmt.Errorf("duplicate metric code: %s", def.Code)
		}
		seen[def.Code] = true
		switch def.Scope {
		case Scope1, Scope2, Scope3:
		default:
			return fmt.Errorf("metric %s has unknown scope: %s", def.Code, def.Scope)
		}
	}
	return nil
}
