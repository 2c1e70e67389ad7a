package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertSameUnit(t *testing.T) {
	v, err := Convert(42.5, UnitKilogram, UnitKilogram)
	assert.NoError(t, err)
	assert.Equal(t, 42.5, v)
}

func TestConvertKgToTonnes(t *testing.T) {
	v, err := Convert(1500, UnitKilogram, UnitTonne)
	assert.NoError(t, err)
	assert.InDelta(t, 1.5, v, 1e-9)
}

func TestConvertCO2e(t *testing.T) {
	v, err := Convert(2500, UnitKilogramCO2e, UnitTonneCO2e)
	assert.NoError(t, err)
	assert.InDelta(t, 2.5, v, 1e-9)

	back, err := Convert(v, UnitTonneCO2e, UnitKilogramCO2e)
	assert.NoError(t, err)
	assert.InDelta(t, 2500, back, 1e-9)
}

func TestConvertCrossDimensionFails(t *testing.T) {
	_, err := Convert(1, UnitKilogram, UnitKilowattHour)
	assert.Error(t, err)
}

func TestConvertUnknownUnit(t *testing.T) {
	_, err := Convert(1, Unit("furlongs"), UnitKilogram)
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.InDelta(t, 1.2, KgToTonnes(1200), 1e-9)
	assert.InDelta(t, 1200, TonnesToKg(1.2), 1e-9)
	assert.InDelta(t, 3.6, KWhToMWh(3600), 1e-9)
	assert.InDelta(t, 0.75, CubicMetersToMegalitres(750), 1e-9)
}
