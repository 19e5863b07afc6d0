package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCompressor() *Device {
	return &Device{
		ID:    "dev-1",
		Name:  "Compressor 1",
		Alias: "COMP1",
		Kind:  DeviceCompressor,
		ControlPoints: []Construct{
			{ID: "cp-1", Alias: "SlideValvePosition", Unit: "%"},
		},
		Metrics: []Construct{
			{ID: "m-1", Alias: "SuctionPressure", Unit: "psig"},
			{ID: "m-2", Alias: "DischargePressure", Unit: "psig"},
			{ID: "m-3", Alias: "MotorCurrent", Unit: "A"},
		},
		Outputs: []Construct{
			{ID: "o-1", Alias: "RunCommand"},
		},
		Conditions: []Construct{
			{ID: "cn-1", Alias: "RunStatus"},
		},
		Settings: []Setting{
			{ID: "s-1", Name: "CapacityLimit", Unit: "%"},
		},
	}
}

func TestCatalogSpansAllKinds(t *testing.T) {
	catalog := NewCatalog(testCompressor())

	assert.Len(t, catalog.Constructs(), 7)
	assert.Len(t, catalog.OfKind(KindControlPoint), 1)
	assert.Len(t, catalog.OfKind(KindMetric), 3)
	assert.Len(t, catalog.OfKind(KindOutput), 1)
	assert.Len(t, catalog.OfKind(KindCondition), 1)
	assert.Len(t, catalog.OfKind(KindSetting), 1)
}

func TestCatalogTagsKinds(t *testing.T) {
	catalog := NewCatalog(testCompressor())

	for _, ct := range catalog.OfKind(KindMetric) {
		assert.Equal(t, KindMetric, ct.Kind)
	}
	ct, ok := catalog.Lookup("o-1")
	require.True(t, ok)
	assert.Equal(t, KindOutput, ct.Kind)
}

func TestCatalogSettingAliasIsName(t *testing.T) {
	catalog := NewCatalog(testCompressor())

	settings := catalog.OfKind(KindSetting)
	require.Len(t, settings, 1)
	assert.Equal(t, "CapacityLimit", settings[0].Alias)
	assert.Equal(t, "s-1", settings[0].ID)
	assert.Equal(t, "%", settings[0].Unit)
}

func TestCatalogEmptyKinds(t *testing.T) {
	catalog := NewCatalog(&Device{ID: "dev-2", Kind: DeviceVessel})

	assert.Empty(t, catalog.Constructs())
	for _, kind := range []ConstructKind{KindControlPoint, KindMetric, KindOutput, KindCondition, KindSetting} {
		assert.Empty(t, catalog.OfKind(kind))
		assert.NotNil(t, catalog.OfKind(kind))
	}
}
