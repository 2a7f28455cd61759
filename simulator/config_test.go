package simulator

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	require.Equal(t, 80, config.ColocatedCapacity())
}

func TestValidate_RejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *SimConfig)
	}{
		{"no tenants", func(c *SimConfig) { c.Tenants = 0; c.CallRates = nil }},
		{"too few call rates", func(c *SimConfig) { c.Tenants = 2 }},
		{"too many call rates", func(c *SimConfig) { c.CallRates = []float64{1, 2} }},
		{"zero call rate", func(c *SimConfig) { c.CallRates = []float64{0} }},
		{"negative call rate", func(c *SimConfig) { c.CallRates = []float64{-1} }},
		{"NaN call rate", func(c *SimConfig) { c.CallRates = []float64{math.NaN()} }},
		{"min calls below floor", func(c *SimConfig) { c.MinTenantCalls = 9 }},
		{"key space list length", func(c *SimConfig) {
			c.Tenants = 3
			c.CallRates = []float64{1, 1, 1}
			c.KeySpaceSizes = []int{10, 10}
		}},
		{"empty key space list", func(c *SimConfig) { c.KeySpaceSizes = nil }},
		{"zero key space", func(c *SimConfig) { c.KeySpaceSizes = []int{0} }},
		{"capacity list length", func(c *SimConfig) {
			c.Tenants = 2
			c.CallRates = []float64{1, 1}
			c.DedicatedCapacities = []int{1, 2, 3}
		}},
		{"negative capacity", func(c *SimConfig) { c.DedicatedCapacities = []int{-5} }},
		{"zero recording period", func(c *SimConfig) { c.RecordingPeriod = 0 }},
		{"zipf exponent too small", func(c *SimConfig) {
			c.KeyDistribution = KeyDistZipf
			c.ZipfExponent = 0.9
		}},
		{"NaN zipf exponent", func(c *SimConfig) {
			c.KeyDistribution = KeyDistZipf
			c.ZipfExponent = math.NaN()
		}},
		{"infinite zipf exponent", func(c *SimConfig) {
			c.KeyDistribution = KeyDistZipf
			c.ZipfExponent = math.Inf(1)
		}},
		{"shared capacity overflows", func(c *SimConfig) {
			c.Tenants = 2
			c.CallRates = []float64{1, 1}
			c.DedicatedCapacities = []int{math.MaxInt, 1}
		}},
		{"unknown distribution", func(c *SimConfig) { c.KeyDistribution = KeyDistribution(9) }},
		{"key space too wide to encode", func(c *SimConfig) { c.KeySpaceSizes = []int{math.MaxInt64 / 2} }},
		{"too many calls", func(c *SimConfig) {
			c.Tenants = 2
			c.CallRates = []float64{1e9, 1}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := config.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrConfiguration), "got %v", err)

			_, err = NewSimulator(config)
			require.True(t, errors.Is(err, ErrConfiguration))
		})
	}
}

func TestValidate_AcceptsPerTenantLists(t *testing.T) {
	config := DefaultConfig()
	config.Tenants = 3
	config.CallRates = []float64{0.5, 1, 20}
	config.KeySpaceSizes = []int{10, 20, 30}
	config.DedicatedCapacities = []int{4}
	config.MinTenantCalls = 10
	config.RecordingPeriod = 1
	require.NoError(t, config.Validate())

	require.Equal(t, 20, config.KeySpaceSizeFor(2))
	require.Equal(t, 4, config.CapacityFor(3))
	require.Equal(t, 12, config.ColocatedCapacity())
}

func TestKeyDistribution_Encoding(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var config SimConfig
		require.NoError(t, json.Unmarshal([]byte(`{"keyDistribution":"zipf","zipfExponent":1.3}`), &config))
		require.Equal(t, KeyDistZipf, config.KeyDistribution)

		data, err := json.Marshal(config.KeyDistribution)
		require.NoError(t, err)
		require.Equal(t, `"zipf"`, string(data))

		require.Error(t, json.Unmarshal([]byte(`{"keyDistribution":"gaussian"}`), &config))
	})

	t.Run("yaml", func(t *testing.T) {
		doc := `
tenants: 2
callRates: [10.0, 1.0]
minTenantCalls: 1000
keySpaceSizes: [100]
dedicatedCapacities: [10, 20]
recordingPeriod: 50
keyDistribution: uniform
randomSeed: 7
`
		var config SimConfig
		require.NoError(t, yaml.Unmarshal([]byte(doc), &config))
		require.NoError(t, config.Validate())
		require.Equal(t, []float64{10, 1}, config.CallRates)
		require.Equal(t, KeyDistUniform, config.KeyDistribution)
		require.Equal(t, 30, config.ColocatedCapacity())
		require.Equal(t, int64(7), config.RandomSeed)
	})
}

func TestSimError(t *testing.T) {
	err := ErrInvalidConfig("tenants must be >= 1")
	require.EqualError(t, err, "simulation error: invalid config: tenants must be >= 1")
	require.True(t, errors.Is(err, ErrConfiguration))
	require.False(t, errors.Is(err, ErrCapacity))

	var simErr SimError
	require.True(t, errors.As(err, &simErr))
	require.Equal(t, KindConfiguration, simErr.Kind)

	wrapped := ErrInvalidCapacity(0)
	require.True(t, errors.Is(wrapped, ErrCapacity))
}
