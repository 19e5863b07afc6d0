package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricSpecValidate(t *testing.T) {
	tests := []struct {
		name     string
		spec     MetricSpec
		wantErr  bool
		wantKind ConstructKind
	}{
		{
			name:     "known name fills construct kind",
			spec:     MetricSpec{Name: "SuctionPressure", DeviceKind: DeviceCompressor},
			wantKind: KindMetric,
		},
		{
			name:     "setting name fills setting kind",
			spec:     MetricSpec{Name: "CapacityLimit", DeviceKind: DeviceCompressor},
			wantKind: KindSetting,
		},
		{
			name:    "unknown name",
			spec:    MetricSpec{Name: "SupplyTemperature", DeviceKind: DeviceCompressor},
			wantErr: true,
		},
		{
			name:     "regex with explicit kind",
			spec:     MetricSpec{AliasRegex: ".*Pressure", DeviceKind: DeviceCompressor, ConstructKind: KindMetric},
			wantKind: KindMetric,
		},
		{
			name:    "regex without construct kind",
			spec:    MetricSpec{AliasRegex: ".*Pressure", DeviceKind: DeviceCompressor},
			wantErr: true,
		},
		{
			name:    "regex does not compile",
			spec:    MetricSpec{AliasRegex: "(", DeviceKind: DeviceCompressor, ConstructKind: KindMetric},
			wantErr: true,
		},
		{
			name:    "neither name nor regex",
			spec:    MetricSpec{DeviceKind: DeviceCompressor},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidMetric)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, tt.spec.ConstructKind)
		})
	}
}

func TestMatchByExactName(t *testing.T) {
	catalog := NewCatalog(testCompressor())

	matches, err := Match(catalog, []MetricSpec{
		{Name: "SuctionPressure", DeviceKind: DeviceCompressor},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"m-1"}, matches.IDs())
	ct, ok := matches.Get("m-1")
	require.True(t, ok)
	assert.Equal(t, "SuctionPressure", ct.Alias)
	assert.Equal(t, KindMetric, ct.Kind)
}

func TestMatchRegexPrefixAnchoring(t *testing.T) {
	device := &Device{
		ID:   "dev-r",
		Kind: DeviceCompressor,
		Metrics: []Construct{
			{ID: "m-a", Alias: "Current"},
			{ID: "m-b", Alias: "MotorCurrent"},
			{ID: "m-c", Alias: "MotorCurrentA"},
		},
	}
	catalog := NewCatalog(device)

	tests := []struct {
		name    string
		pattern string
		wantIDs []string
	}{
		{
			name:    "prefix pattern matches from the start only",
			pattern: "Cur.*",
			wantIDs: []string{"m-a"},
		},
		{
			name:    "leading wildcard reaches mid-alias",
			pattern: ".*Current.*",
			wantIDs: []string{"m-a", "m-b", "m-c"},
		},
		{
			name:    "anchored but not full match",
			pattern: "MotorCurrent",
			wantIDs: []string{"m-b", "m-c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := Match(catalog, []MetricSpec{
				{AliasRegex: tt.pattern, DeviceKind: DeviceCompressor, ConstructKind: KindMetric},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, matches.IDs())
		})
	}
}

func TestMatchIgnoresOtherDeviceKinds(t *testing.T) {
	catalog := NewCatalog(testCompressor())

	matches, err := Match(catalog, []MetricSpec{
		{Name: "SupplyTemperature", DeviceKind: DeviceEvaporator},
	})
	require.NoError(t, err)
	assert.Zero(t, matches.Len())
}

func TestMatchDeduplicatesAcrossSpecs(t *testing.T) {
	catalog := NewCatalog(testCompressor())

	// Both the exact name and the pattern hit SuctionPressure.
	matches, err := Match(catalog, []MetricSpec{
		{Name: "SuctionPressure", DeviceKind: DeviceCompressor},
		{AliasRegex: "Suction.*", DeviceKind: DeviceCompressor, ConstructKind: KindMetric},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"m-1"}, matches.IDs())
}

func TestMatchOrderIndependent(t *testing.T) {
	catalog := NewCatalog(testCompressor())
	specs := []MetricSpec{
		{Name: "DischargePressure", DeviceKind: DeviceCompressor},
		{Name: "MotorCurrent", DeviceKind: DeviceCompressor},
		{AliasRegex: "Run.*", DeviceKind: DeviceCompressor, ConstructKind: KindCondition},
	}
	reversed := []MetricSpec{specs[2], specs[1], specs[0]}

	first, err := Match(catalog, specs)
	require.NoError(t, err)
	second, err := Match(catalog, reversed)
	require.NoError(t, err)

	assert.ElementsMatch(t, first.IDs(), second.IDs())

	// And matching twice with the same specs is byte-for-byte identical.
	again, err := Match(catalog, specs)
	require.NoError(t, err)
	assert.Equal(t, first.IDs(), again.IDs())
}

func TestMatchSpansConstructKinds(t *testing.T) {
	catalog := NewCatalog(testCompressor())

	matches, err := Match(catalog, []MetricSpec{
		{Name: "SuctionPressure", DeviceKind: DeviceCompressor},
		{Name: "CapacityLimit", DeviceKind: DeviceCompressor},
		{Name: "SlideValvePosition", DeviceKind: DeviceCompressor},
	})
	require.NoError(t, err)
	require.Equal(t, 3, matches.Len())

	kinds := make(map[ConstructKind]bool)
	matches.Each(func(ct Construct) { kinds[ct.Kind] = true })
	assert.True(t, kinds[KindMetric])
	assert.True(t, kinds[KindSetting])
	assert.True(t, kinds[KindControlPoint])
}

func TestMatchInvalidSpecFailsFast(t *testing.T) {
	catalog := NewCatalog(testCompressor())

	_, err := Match(catalog, []MetricSpec{
		{Name: "NotAMetric", DeviceKind: DeviceCompressor},
	})
	assert.ErrorIs(t, err, ErrInvalidMetric)
}
