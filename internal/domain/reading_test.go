package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inkbirdLine = `{"model":"Inkbird-IBS-TH2","id":42,"time":"2024-01-01 12:00:00","temperature_C":26.0}`

func TestDecodeReading(t *testing.T) {
	t.Run("inkbird packet", func(t *testing.T) {
		r, err := DecodeReading("  " + inkbirdLine + "\n")
		require.NoError(t, err)
		assert.Equal(t, "Inkbird-IBS-TH2", r.Model)
		assert.True(t, r.HasID)
		assert.Equal(t, int64(42), r.ID)
		assert.Equal(t, "2024-01-01 12:00:00", r.Time)
		assert.True(t, r.HasTemperature)
		assert.Equal(t, 26.0, r.TemperatureC)
	})

	t.Run("extra fields ignored", func(t *testing.T) {
		r, err := DecodeReading(`{"time":"2024-01-01 12:00:00","model":"Acurite-Tower","id":1234,"channel":"A","battery_ok":1,"temperature_C":18.3,"humidity":61,"mic":"CHECKSUM"}`)
		require.NoError(t, err)
		assert.Equal(t, "Acurite-Tower", r.Model)
		assert.Equal(t, int64(1234), r.ID)
		assert.Equal(t, 18.3, r.TemperatureC)
	})

	t.Run("string id is not an id", func(t *testing.T) {
		r, err := DecodeReading(`{"model":"Schrader","id":"1A2B3C","pressure_kPa":220}`)
		require.NoError(t, err)
		assert.False(t, r.HasID)
		assert.False(t, r.HasTemperature)
		assert.Equal(t, "none", r.SensorLabel())
	})

	t.Run("integral float id", func(t *testing.T) {
		r, err := DecodeReading(`{"model":"Inkbird-ITH20R","id":42.0}`)
		require.NoError(t, err)
		assert.True(t, r.HasID)
		assert.Equal(t, int64(42), r.ID)
	})

	t.Run("missing fields", func(t *testing.T) {
		r, err := DecodeReading(`{}`)
		require.NoError(t, err)
		assert.Empty(t, r.Model)
		assert.False(t, r.HasID)
	})

	for name, line := range map[string]string{
		"not json":       "not-json-at-all",
		"empty":          "   ",
		"truncated":      `{"model":"Inkbird","id":4`,
		"array":          `[1,2,3]`,
		"numeric model":  `{"model":7,"id":42}`,
		"scalar payload": `42`,
		"null":           `null`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeReading(line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestReading_RecordedAt(t *testing.T) {
	r := Reading{Time: "2024-01-01 12:00:00"}

	got, err := r.RecordedAt(nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), got)

	loc := time.FixedZone("EST", -5*60*60)
	got, err = r.RecordedAt(loc)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Hour())
	assert.Equal(t, loc, got.Location())

	_, err = Reading{Time: "2024-01-01T12:00:00Z"}.RecordedAt(nil)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = Reading{}.RecordedAt(nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestReading_Celsius(t *testing.T) {
	c, err := Reading{TemperatureC: 26.5, HasTemperature: true}.Celsius()
	require.NoError(t, err)
	assert.Equal(t, 26.5, c)

	_, err = Reading{}.Celsius()
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFilter_Accepts(t *testing.T) {
	f := Filter{ModelPrefix: DefaultModelPrefix, SensorID: 42}

	tests := []struct {
		name string
		r    Reading
		want bool
	}{
		{"target sensor", Reading{Model: "Inkbird-IBS-TH2", ID: 42, HasID: true}, true},
		{"other inkbird model same id", Reading{Model: "Inkbird-ITH20R", ID: 42, HasID: true}, true},
		{"wrong id", Reading{Model: "Inkbird-IBS-TH2", ID: 99, HasID: true}, false},
		{"wrong vendor", Reading{Model: "Acurite-Tower", ID: 42, HasID: true}, false},
		{"prefix is case sensitive", Reading{Model: "inkbird-IBS-TH2", ID: 42, HasID: true}, false},
		{"no id", Reading{Model: "Inkbird-IBS-TH2"}, false},
		{"zero id not confused with absent", Reading{Model: "Inkbird-IBS-TH2", HasID: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Accepts(tt.r))
		})
	}
}
