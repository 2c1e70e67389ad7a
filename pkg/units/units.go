package units

import "fmt"

// Unit identifies a measurement unit used by activity records and results.
type Unit string

const (
	UnitKilogram     Unit = "kg"
	UnitTonne        Unit = "t"
	UnitKilogramCO2e Unit = "kgCO2e"
	UnitTonneCO2e    Unit = "tCO2e"
	UnitKilowattHour Unit = "kWh"
	UnitMegawattHour Unit = "MWh"
	UnitCubicMeter   Unit = "m3"
	UnitLitre        Unit = "L"
	UnitMegalitre    Unit = "ML"
)

// conversionFactors maps from-unit to to-unit multipliers. Only
// same-dimension conversions are listed; anything else is an error.
var conversionFactors = map[Unit]map[Unit]float64{
	UnitKilogram: {
		UnitKilogram: 1,
		UnitTonne:    0.001,
	},
	UnitTonne: {
		UnitTonne:    1,
		UnitKilogram: 1000,
	},
	UnitKilogramCO2e: {
		UnitKilogramCO2e: 1,
		UnitTonneCO2e:    0.001,
	},
	UnitTonneCO2e: {
		UnitTonneCO2e:    1,
		UnitKilogramCO2e: 1000,
	},
	UnitKilowattHour: {
		UnitKilowattHour: 1,
		UnitMegawattHour: 0.001,
	},
	UnitMegawattHour: {
		UnitMegawattHour: 1,
		UnitKilowattHour: 1000,
	},
	UnitCubicMeter: {
		UnitCubicMeter: 1,
		UnitLitre:      1000,
		UnitMegalitre:  0.001,
	},
	UnitLitre: {
		UnitLitre:      1,
		UnitCubicMeter: 0.001,
	},
	UnitMegalitre: {
		UnitMegalitre:  1,
		UnitCubicMeter: 1000,
	},
}

// Convert converts a value between two units of the same dimension.
func Convert(value float64, from, to Unit) (float64, error) {
	if from == to {
		return value, nil
	}
	targets, ok := conversionFactors[from]
	if !ok {
		return 0, fmt.Errorf("unknown unit: %s", from)
	}
	factor, ok := targets[to]
	if !ok {
		return 0, fmt.Errorf("cannot convert %s to %s", from, to)
	}
	return value * factor, nil
}

// KgToTonnes converts kilograms (or kgCO2e) to tonnes.
func KgToTonnes(kg float64) float64 {
	return kg / 1000.0
}

// TonnesToKg converts tonnes to kilograms.
func TonnesToKg(t float64) float64 {
	return t * 1000.0
}

// KWhToMWh converts kilowatt-hours to megawatt-hours.
func KWhToMWh(kwh float64) float64 {
	return kwh / 1000.0
}

// CubicMetersToMegalitres converts cubic metres to megalitres.
func CubicMetersToMegalitres(m3 float64) float64 {
	return m3 / 1000.0
}
