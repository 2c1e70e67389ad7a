package catalog

import "github.com/google/uuid"

// categoryDefault keys the fallback rows of the assumption and template
// tables. Categories missing from the tables resolve to these rows.
const categoryDefault = "default"

// DefaultDefinitions returns the compiled-in metric catalog used when the
// metrics_catalog table is empty. IDs are fixed so records seeded from
// the same defaults stay joinable across environments.
func DefaultDefinitions() []MetricDefinition {
	s := func(v string) *string { return &v }
	return []MetricDefinition{
		{
			ID:       uuid.MustParse("7d3e4c9a-0001-4b8e-9f21-1a6b2c3d4e5f"),
			Name:     "Grid Electricity",
			Code:     "scope2_electricity_grid",
			Unit:     "kWh",
			Scope:    Scope2,
			Category: "Electricity",
		},
		{
			ID:          uuid.MustParse("7d3e4c9a-0002-4b8e-9f21-1a6b2c3d4e5f"),
			Name:        "Renewable Electricity",
			Code:        "scope2_electricity_renewable",
			Unit:        "kWh",
			Scope:       Scope2,
			Category:    "Electricity",
			Subcategory: s("Renewable"),
			IsRenewable: true,
		},
		{
			ID:       uuid.MustParse("7d3e4c9a-0003-4b8e-9f21-1a6b2c3d4e5f"),
			Name:     "District Heating",
			Code:     "scope2_purchased_heating",
			Unit:     "kWh",
			Scope:    Scope2,
			Category: "Purchased Energy",
		},
		{
			ID:       uuid.MustParse("7d3e4c9a-0004-4b8e-9f21-1a6b2c3d4e5f"),
			Name:     "District Cooling",
			Code:     "scope2_purchased_cooling",
			Unit:     "kWh",
			Scope:    Scope2,
			Category: "Purchased Energy",
		},
		{
			ID:       uuid.MustParse("7d3e4c9a-0005-4b8e-9f21-1a6b2c3d4e5f"),
			Name:     "Natural Gas",
			Code:     "scope1_natural_gas",
			Unit:     "m³",
			Scope:    Scope1,
			Category: "Stationary Combustion",
		},
		{
			ID:       uuid.MustParse("7d3e4c9a-0006-4b8e-9f21-1a6b2c3d4e5f"),
			Name:     "Diesel Generators",
			Code:     "scope1_diesel_stationary",
			Unit:     "L",
			Scope:    Scope1,
			Category: "Stationary Combustion",
		},
		{
			ID:       uuid.MustParse("7d3e4c9a-0007-4b8e-9f21-1a6b2c3d4e5f"),
			Name:     "Fleet Fuel",
			Code:     "scope1_fleet_fuel",
			Unit:     "L",
			Scope:    Scope1,
			Category: "Mobile Combustion",
		},
		{
			ID:       uuid.MustParse("7d3e4c9a-0008-4b8e-9f21-1a6b2c3d4e5f"),
			Name:     "Refrigerant Leakage",
			Code:     "scope1_refrigerants",
			Unit:     "kg",
			Scope:    Scope1,
			Category: "Fugitive Emissions",
		},
		{
			ID:          uuid.MustParse("7d3e4c9a-0009-4b8e-9f21-1a6b2c3d4e5f"),
			Name:        "Air Travel",
			Code:        "scope3_business_travel_air",
			Unit:        "km",
			Scope:       Scope3,
			Category:    "Business Travel",
			Subcategory: s("Air"),
		},
		{
			ID:          uuid.MustParse("7d3e4c9a-000a-4b8e-9f21-1a6b2c3d4e5f"),
			Name:        "Rail Travel",
			Code:        "scope3_business_travel_rail",
			Unit:        "km",
			Scope:       Scope3,
			Category:    "Business Travel",
			Subcategory: s("Rail"),
		},
		{
			ID:       uuid.MustParse("7d3e4c9a-000b-4b8e-9f21-1a6b2c3d4e5f"),
			Name:     "Employee Commuting",
			Code:     "scope3_employee_commuting",
			Unit:     "km",
			Scope:    Scope3,
			Category: "Employee Commuting",
		},
		{
			ID:          uuid.MustParse("7d3e4c9a-000c-4b8e-9f21-1a6b2c3d4e5f"),
			Name:        "Landfill Waste",
			Code:        "scope3_waste_landfill",
			Unit:        "tons",
			Scope:       Scope3,
			Category:    "Waste",
			Subcategory: s("Landfill"),
		},
		{
			ID:          uuid.MustParse("7d3e4c9a-000d-4b8e-9f21-1a6b2c3d4e5f"),
			Name:        "Recycled Waste",
			Code:        "scope3_waste_recycling",
			Unit:        "tons",
			Scope:       Scope3,
			Category:    "Waste",
			Subcategory: s("Recycling"),
		},
		{
			ID:       uuid.MustParse("7d3e4c9a-000e-4b8e-9f21-1a6b2c3d4e5f"),
			Name:     "Water Supply",
			Code:     "scope3_water_supply",
			Unit:     "m³",
			Scope:    Scope3,
			Category: "Water",
		},
		{
			ID:       uuid.MustParse("7d3e4c9a-000f-4b8e-9f21-1a6b2c3d4e5f"),
			Name:     "Wastewater Treatment",
			Code:     "scope3_wastewater",
			Unit:     "m³",
			Scope:    Scope3,
			Category: "Water",
		},
		{
			ID:       uuid.MustParse("7d3e4c9a-0010-4b8e-9f21-1a6b2c3d4e5f"),
			Name:     "Purchased Goods & Services",
			Code:     "scope3_purchased_goods",
			Unit:     "EUR",
			Scope:    Scope3,
			Category: "Purchased Goods & Services",
		},
	}
}

// defaultAssumptions is the per-category abatement cost table. Costs are
// EUR per tonne CO2e avoided, lead times in months.
func defaultAssumptions() map[string]AbatementAssumption {
	table := []AbatementAssumption{
		{Category: "electricity", CostPerTonne: 45, ImplementationMonths: 6},
		{Category: "purchased energy", CostPerTonne: 60, ImplementationMonths: 9},
		{Category: "stationary combustion", CostPerTonne: 85, ImplementationMonths: 12},
		{Category: "mobile combustion", CostPerTonne: 110, ImplementationMonths: 18},
		{Category: "fugitive emissions", CostPerTonne: 35, ImplementationMonths: 6},
		{Category: "business travel", CostPerTonne: 25, ImplementationMonths: 3},
		{Category: "employee commuting", CostPerTonne: 40, ImplementationMonths: 9},
		{Category: "waste", CostPerTonne: 30, ImplementationMonths: 6},
		{Category: "water", CostPerTonne: 50, ImplementationMonths: 9},
		{Category: "purchased goods & services", CostPerTonne: 150, ImplementationMonths: 24},
		{Category: categoryDefault, CostPerTonne: 100, ImplementationMonths: 12},
	}
	out := make(map[string]AbatementAssumption, len(table))
	for _, a := range table {
		out[a.Category] = a
	}
	return out
}

func defaultInitiativeTemplates() map[string][]InitiativeTemplate {
	return map[string][]InitiativeTemplate{
		"electricity": {
			{Category: "electricity", NamePattern: "Switch %s to renewable supply", InitiativeType: "renewable_procurement", RiskLevel: "low", ROIYears: 2.5},
			{Category: "electricity", NamePattern: "LED and controls retrofit for %s", InitiativeType: "efficiency", RiskLevel: "low", ROIYears: 3},
		},
		"purchased energy": {
			{Category: "purchased energy", NamePattern: "Heat recovery upgrade for %s", InitiativeType: "efficiency", RiskLevel: "medium", ROIYears: 4},
		},
		"stationary combustion": {
			{Category: "stationary combustion", NamePattern: "Electrify %s boilers", InitiativeType: "electrification", RiskLevel: "medium", ROIYears: 6},
		},
		"mobile combustion": {
			{Category: "mobile combustion", NamePattern: "EV transition for %s", InitiativeType: "electrification", RiskLevel: "medium", ROIYears: 5},
		},
		"fugitive emissions": {
			{Category: "fugitive emissions", NamePattern: "Low-GWP refrigerant swap for %s", InitiativeType: "substitution", RiskLevel: "low", ROIYears: 3},
		},
		"business travel": {
			{Category: "business travel", NamePattern: "Travel policy tightening for %s", InitiativeType: "behavioral", RiskLevel: "low", ROIYears: 0.5},
		},
		"waste": {
			{Category: "waste", NamePattern: "Diversion program for %s", InitiativeType: "circularity", RiskLevel: "low", ROIYears: 2},
		},
		"water": {
			{Category: "water", NamePattern: "Reuse and leak reduction for %s", InitiativeType: "efficiency", RiskLevel: "low", ROIYears: 3},
		},
		categoryDefault: {
			{Category: categoryDefault, NamePattern: "Reduction program for %s", InitiativeType: "efficiency", RiskLevel: "medium", ROIYears: 4},
		},
	}
}
