package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathwayRemainingAtAnchors(t *testing.T) {
	p := NewPathways(defaultPathwayPoints())

	remaining, err := p.Remaining(ScenarioSBTi15C, "all", 2030)
	assert.NoError(t, err)
	assert.Equal(t, 58.0, remaining)

	remaining, err = p.Remaining(ScenarioNZE2021, "all", 2050)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, remaining)
}

func TestPathwayInterpolatesBetweenAnchors(t *testing.T) {
	p := NewPathways(defaultPathwayPoints())

	// 2027 sits two fifths of the way from 79 (2025) to 58 (2030).
	remaining, err := p.Remaining(ScenarioSBTi15C, "all", 2027)
	assert.NoError(t, err)
	assert.InDelta(t, 70.6, remaining, 0.001)
}

func TestPathwayClampsOutsideRange(t *testing.T) {
	p := NewPathways(defaultPathwayPoints())

	before, err := p.Remaining(ScenarioSBTi15C, "all", 2015)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, before)

	after, err := p.Remaining(ScenarioSBTi15C, "all", 2060)
	assert.NoError(t, err)
	assert.Equal(t, 10.0, after)
}

func TestPathwayUnknownSectorFallsBack(t *testing.T) {
	p := NewPathways(defaultPathwayPoints())

	crossSector, err := p.Remaining(ScenarioETPB2DS, "cross_sector", 2030)
	assert.NoError(t, err)

	cement, err := p.Remaining(ScenarioETPB2DS, "cement", 2030)
	assert.NoError(t, err)
	assert.Equal(t, crossSector, cement)
}

func TestPathwayUnknownScenario(t *testing.T) {
	p := NewPathways(defaultPathwayPoints())

	_, err := p.Remaining(Scenario("RCP8.5"), "all", 2030)
	assert.Error(t, err)
}

func TestRequiredReduction(t *testing.T) {
	p := NewPathways(defaultPathwayPoints())

	required, err := p.RequiredReduction(ScenarioSBTi15C, "all", 2025, 2030)
	assert.NoError(t, err)
	assert.InDelta(t, 26.58, required, 0.01)

	fromBase, err := p.RequiredReduction(ScenarioSBTi15C, "all", 2020, 2030)
	assert.NoError(t, err)
	assert.InDelta(t, 42.0, fromBase, 0.001)
}

func TestScenariosSorted(t *testing.T) {
	p := NewPathways(defaultPathwayPoints())

	scenarios := p.Scenarios()
	assert.Equal(t, []Scenario{ScenarioETPB2DS, ScenarioNZE2021, ScenarioSBTi15C}, scenarios)
}
