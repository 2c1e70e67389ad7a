package replanning

import (
	"fmt"

	"blipee/sustainability-engine/internal/catalog"
)

// attachInitiatives decorates each allocation with the illustrative
// measures of its category.
func attachInitiatives(cat *catalog.Catalog, allocations []Allocation) {
	for i := range allocations {
		templates := cat.Templates(allocations[i].Category)
		initiatives := make([]Initiative, 0, len(templates))
		for _, template := range templates {
			initiatives = append(initiatives, Initiative{
				Name:      fmt.Sprintf(template.NamePattern, allocations[i].MetricName),
				Type:      template.InitiativeType,
				RiskLevel: template.RiskLevel,
				ROIYears:  template.ROIYears,
			})
		}
		allocations[i].Initiatives = initiatives
	}
}
