package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCatalogLookups(t *testing.T) {
	c := New(DefaultDefinitions())

	def, ok := c.ByCode("scope2_electricity_grid")
	assert.True(t, ok)
	assert.Equal(t, "Electricity", def.Category)
	assert.Equal(t, Scope2, def.Scope)

	byID, ok := c.ByID(def.ID)
	assert.True(t, ok)
	assert.Equal(t, def.Code, byID.Code)

	_, ok = c.ByCode("does_not_exist")
	assert.False(t, ok)
}

func TestDefaultDefinitionsValid(t *testing.T) {
	c := New(DefaultDefinitions())
	assert.NoError(t, c.Validate())
	assert.Equal(t, 16, c.Len())
}

func TestValidateRejectsDuplicateCodes(t *testing.T) {
	defs := []MetricDefinition{
		{ID: uuid.New(), Code: "dup", Scope: Scope1, Category: "Electricity"},
		{ID: uuid.New(), Code: "dup", Scope: Scope2, Category: "Electricity"},
	}
	c := New(defs)
	assert.Error(t, c.Validate())
}

func TestValidateRejectsUnknownScope(t *testing.T) {
	defs := []MetricDefinition{
		{ID: uuid.New(), Code: "bad_scope", Scope: Scope("scope_9"), Category: "Electricity"},
	}
	c := New(defs)
	assert.Error(t, c.Validate())
}

func TestAssumptionFallsBackToDefault(t *testing.T) {
	c := New(nil)

	known := c.Assumption("Business Travel")
	assert.Equal(t, 25.0, known.CostPerTonne)
	assert.Equal(t, 3, known.ImplementationMonths)

	unknown := c.Assumption("Quantum Flux")
	assert.Equal(t, 100.0, unknown.CostPerTonne)
	assert.Equal(t, 12, unknown.ImplementationMonths)
}

func TestTemplatesFallBackToDefault(t *testing.T) {
	c := New(nil)

	elec := c.Templates("Electricity")
	assert.Len(t, elec, 2)
	assert.Equal(t, "renewable_procurement", elec[0].InitiativeType)

	generic := c.Templates("Something Else")
	assert.Len(t, generic, 1)
	assert.Equal(t, "efficiency", generic[0].InitiativeType)
}

func TestDefinitionsReturnsCopy(t *testing.T) {
	c := New(DefaultDefinitions())
	defs := c.Definitions()
	defs[0].Code = "mutated"

	again := c.Definitions()
	assert.NotEqual(t, "mutated", again[0].Code)
}
