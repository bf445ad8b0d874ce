package smartthings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestParseDay(t *testing.T) {
	tests := []struct {
		token string
		want  []Day
	}{
		{"all", []Day{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}},
		{"every", []Day{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}},
		{"weekday", []Day{"Mon", "Tue", "Wed", "Thu", "Fri"}},
		{"weekdays", []Day{"Mon", "Tue", "Wed", "Thu", "Fri"}},
		{"weekend", []Day{"Sun", "Sat"}},
		{"weekends", []Day{"Sun", "Sat"}},
		{"mon", []Day{"Mon"}},
		{"Monday", []Day{"Mon"}},
		{" THURSDAY ", []Day{"Thu"}},
		{"sat", []Day{"Sat"}},
	}
	for _, tt := range tests {
		days, err := ParseDay(tt.token)
		require.NoError(t, err, tt.token)
		assert.Equal(t, tt.want, days, tt.token)
	}

	_, err := ParseDay("midweek")
	assert.Error(t, err)
}

func TestParseDays(t *testing.T) {
	t.Run("weekday plus weekend covers the week", func(t *testing.T) {
		days, err := ParseDays([]string{"weekday", "weekend"})
		require.NoError(t, err)
		assert.Equal(t, []Day{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, days)
	})

	t.Run("duplicates collapse in fixed order", func(t *testing.T) {
		days, err := ParseDays([]string{"tue", "weekday", "tuesday"})
		require.NoError(t, err)
		assert.Equal(t, []Day{"Mon", "Tue", "Wed", "Thu", "Fri"}, days)
	})

	t.Run("empty input rejected", func(t *testing.T) {
		_, err := ParseDays(nil)
		assert.Error(t, err)
	})

	t.Run("bad token rejected", func(t *testing.T) {
		_, err := ParseDays([]string{"mon", "someday"})
		assert.Error(t, err)
	})
}

func TestParseVariation(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		for _, spec := range []string{"disabled", "none", " Disabled "} {
			v, err := ParseVariation(spec)
			require.NoError(t, err, spec)
			assert.Nil(t, v, spec)
		}
	})

	t.Run("plus stays non-negative", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			v, err := ParseVariation("+ 10 minutes")
			require.NoError(t, err)
			require.NotNil(t, v)
			assert.GreaterOrEqual(t, *v, 0)
			assert.LessOrEqual(t, *v, 10)
		}
	})

	t.Run("minus stays non-positive", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			v, err := ParseVariation("- 10 minutes")
			require.NoError(t, err)
			require.NotNil(t, v)
			assert.LessOrEqual(t, *v, 0)
			assert.GreaterOrEqual(t, *v, -10)
		}
	})

	t.Run("both directions bounded", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			v, err := ParseVariation("+/- 30 minutes")
			require.NoError(t, err)
			require.NotNil(t, v)
			assert.GreaterOrEqual(t, *v, -30)
			assert.LessOrEqual(t, *v, 30)
		}
	})

	t.Run("hours convert to minutes", func(t *testing.T) {
		v, err := ParseVariation("+ 2 hours")
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.LessOrEqual(t, *v, 120)
	})

	t.Run("seconds round down to minutes", func(t *testing.T) {
		v, err := ParseVariation("+ 30 seconds")
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Zero(t, *v)
	})

	t.Run("singular unit accepted", func(t *testing.T) {
		v, err := ParseVariation("+/- 1 hour")
		require.NoError(t, err)
		require.NotNil(t, v)
	})

	t.Run("malformed rejected", func(t *testing.T) {
		for _, spec := range []string{"+- 10 minutes", "+ ten minutes", "10 minutes", "+ 10"} {
			_, err := ParseVariation(spec)
			assert.Error(t, err, spec)
		}
	})

	t.Run("one day is the ceiling", func(t *testing.T) {
		for _, spec := range []string{"+ 1440 minutes", "+/- 24 hours", "- 86400 seconds"} {
			v, err := ParseVariation(spec)
			require.NoError(t, err, spec)
			require.NotNil(t, v, spec)
		}
		for _, spec := range []string{
			"+ 1441 minutes",
			"+/- 25 hours",
			"- 86460 seconds",
			"+ 9223372036854775807 minutes",
			"+/- 9000000000000000000 hours",
			"+ 99999999999999999999 minutes", // beyond int range entirely
		} {
			_, err := ParseVariation(spec)
			assert.Error(t, err, spec)
		}
	})
}

func TestParseTriggerTime(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		variation *int
		want      TimeSpec
	}{
		{"sunrise no variation", "sunrise", nil, TimeSpec{Anchor: AnchorSunrise}},
		{"sunset keeps negative offset", "sunset", intPtr(-30), TimeSpec{Anchor: AnchorSunset, Offset: intPtr(-30)}},
		{"noon keeps negative offset", "noon", intPtr(-5), TimeSpec{Anchor: AnchorNoon, Offset: intPtr(-5)}},
		{"midnight no variation", "midnight", nil, TimeSpec{Anchor: AnchorMidnight}},
		{"midnight negative collapses", "midnight", intPtr(-10), TimeSpec{Anchor: AnchorMidnight}},
		{"clock time becomes offset", "19:30", nil, TimeSpec{Anchor: AnchorMidnight, Offset: intPtr(1170)}},
		{"clock time plus variation", "19:30", intPtr(15), TimeSpec{Anchor: AnchorMidnight, Offset: intPtr(1185)}},
		{"one past midnight", "00:01", nil, TimeSpec{Anchor: AnchorMidnight, Offset: intPtr(1)}},
		{"variation pulls below midnight", "00:01", intPtr(-2), TimeSpec{Anchor: AnchorMidnight}},
		{"exactly midnight collapses", "00:00", nil, TimeSpec{Anchor: AnchorMidnight}},
		{"case and whitespace ignored", " Sunset ", nil, TimeSpec{Anchor: AnchorSunset}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ParseTriggerTime(tt.spec, tt.variation)
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec)
		})
	}

	t.Run("bad time rejected", func(t *testing.T) {
		_, err := ParseTriggerTime("dawn", nil)
		assert.Error(t, err)
	})
}

func TestParseTime(t *testing.T) {
	hour, minute, err := ParseTime("18:02")
	require.NoError(t, err)
	assert.Equal(t, 18, hour)
	assert.Equal(t, 2, minute)

	hour, minute, err = ParseTime("00:00")
	require.NoError(t, err)
	assert.Zero(t, hour)
	assert.Zero(t, minute)

	for _, spec := range []string{"8:10", "24:02", "11:67", "1102", "11:2", ""} {
		_, _, err := ParseTime(spec)
		assert.Error(t, err, spec)
	}
}
