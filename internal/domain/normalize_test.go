package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDerivesMilesAndPace(t *testing.T) {
	raw := RawActivity{
		"id":                   float64(13374201),
		"name":                 "Morning Run",
		"distance":             10012.4,
		"moving_time":          float64(2950),
		"elapsed_time":         float64(3012),
		"total_elevation_gain": 41.2,
		"sport_type":           "Run",
		"start_date":           "2024-03-02T13:05:11Z",
		"start_date_local":     "2024-03-02T08:05:11Z",
		"average_speed":        3.394,
		"max_speed":            5.1,
		"average_heartrate":    151.3,
		"workout_type":         float64(1),
	}

	a, malformed, err := Normalize(raw)
	require.NoError(t, err)
	require.Empty(t, malformed)

	require.Equal(t, int64(13374201), a.ID)
	require.Equal(t, "Morning Run", *a.Name)
	require.Equal(t, Round2(10012.4*MilesPerMeter), *a.DistanceMiles)
	require.Equal(t, 6.22, *a.DistanceMiles)
	require.Equal(t, int64(2950), *a.MovingTime)
	require.Equal(t, Round2(1609.34/3.394/60), *a.AveragePaceMinPerMile)
	require.Equal(t, 7.9, *a.AveragePaceMinPerMile)
	require.Equal(t, Round2(1609.34/5.1/60), *a.MaxPaceMinPerMile)
	require.Equal(t, 1, a.Race)
}

func TestNormalizeDistanceMilesProperty(t *testing.T) {
	for _, meters := range []float64{0.5, 1, 400, 1609.34, 5000, 21097.5, 42195, 160934.4} {
		a, _, err := Normalize(RawActivity{"id": float64(1), "distance": meters})
		require.NoError(t, err)
		require.Equal(t, Round2(meters*0.000621371), *a.DistanceMiles, "meters=%v", meters)
	}
}

func TestNormalizePaceUndefinedForNonPositiveSpeed(t *testing.T) {
	cases := map[string]any{
		"zero":     float64(0),
		"negative": float64(-2.5),
		"null":     nil,
	}
	for name, speed := range cases {
		t.Run(name, func(t *testing.T) {
			a, _, err := Normalize(RawActivity{"id": float64(7), "average_speed": speed, "max_speed": speed})
			require.NoError(t, err)
			require.Nil(t, a.AveragePaceMinPerMile)
			require.Nil(t, a.MaxPaceMinPerMile)
		})
	}

	a, _, err := Normalize(RawActivity{"id": float64(8)})
	require.NoError(t, err)
	require.Nil(t, a.AveragePaceMinPerMile)
	require.Nil(t, a.AverageSpeed)
}

func TestNormalizeRaceFlag(t *testing.T) {
	cases := []struct {
		name        string
		workoutType any
		present     bool
		want        int
	}{
		{name: "race", workoutType: float64(1), present: true, want: 1},
		{name: "long run", workoutType: float64(2), present: true, want: 0},
		{name: "workout", workoutType: float64(3), present: true, want: 0},
		{name: "default", workoutType: float64(0), present: true, want: 0},
		{name: "null", workoutType: nil, present: true, want: 0},
		{name: "missing", present: false, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := RawActivity{"id": float64(99)}
			if tc.present {
				raw["workout_type"] = tc.workoutType
			}
			a, _, err := Normalize(raw)
			require.NoError(t, err)
			require.Equal(t, tc.want, a.Race)
		})
	}
}

func TestNormalizeMissingDistanceDefaultsToZero(t *testing.T) {
	a, _, err := Normalize(RawActivity{"id": float64(3)})
	require.NoError(t, err)
	require.Equal(t, 0.0, *a.DistanceMeters)
	require.Equal(t, 0.0, *a.DistanceMiles)
}

func TestNormalizeCoercesMalformedFieldsToNull(t *testing.T) {
	raw := RawActivity{
		"id":                "4242",
		"distance":          "not-a-number",
		"moving_time":       "1800.9",
		"elapsed_time":      []any{1, 2},
		"average_heartrate": map[string]any{"bpm": 140},
		"name":              float64(5),
	}

	a, malformed, err := Normalize(raw)
	require.NoError(t, err)
	require.Equal(t, int64(4242), a.ID)
	require.Nil(t, a.DistanceMeters)
	require.Nil(t, a.DistanceMiles)
	require.Equal(t, int64(1800), *a.MovingTime)
	require.Nil(t, a.ElapsedTime)
	require.Nil(t, a.AverageHeartrate)
	require.Equal(t, "5", *a.Name)
	require.ElementsMatch(t, []string{"distance", "elapsed_time", "average_heartrate"}, malformed)
}

func TestNormalizeRejectsMissingID(t *testing.T) {
	for _, raw := range []RawActivity{
		{},
		{"id": nil},
		{"id": "abc"},
		{"id": 1.5},
		{"id": float64(-4)},
		{"id": math.Exp2(63)},
	} {
		_, _, err := Normalize(raw)
		require.ErrorIs(t, err, ErrMissingID)
	}
}

func TestNormalizeNullsIntegersOutsideInt64(t *testing.T) {
	a, malformed, err := Normalize(RawActivity{
		"id":           float64(8),
		"moving_time":  math.Exp2(63),
		"elapsed_time": -math.Exp2(63),
	})
	require.NoError(t, err)
	require.Nil(t, a.MovingTime)
	require.Nil(t, a.ElapsedTime)
	require.ElementsMatch(t, []string{"moving_time", "elapsed_time"}, malformed)
}

func TestPrepareFillsDerivedColumnsAndNullsNonFinite(t *testing.T) {
	moving := int64(1830)
	elapsed := int64(1901)
	speed := 2.9
	nan := math.NaN()
	inf := math.Inf(1)
	meters := 5000.0

	prepared := Prepare(Activity{
		ID:               1,
		DistanceMeters:   &meters,
		MovingTime:       &moving,
		ElapsedTime:      &elapsed,
		AverageSpeed:     &speed,
		MaxSpeed:         &nan,
		AverageHeartrate: &inf,
		Race:             7,
	})

	require.Equal(t, 30.5, *prepared.MovingTimeMin)
	require.Equal(t, 31.68, *prepared.ElapsedTimeMin)
	require.Equal(t, 3.11, *prepared.DistanceMiles)
	require.Equal(t, Round2(1609.34/2.9/60), *prepared.AveragePaceMinPerMile)
	require.Nil(t, prepared.MaxSpeed)
	require.Nil(t, prepared.MaxPaceMinPerMile)
	require.Nil(t, prepared.AverageHeartrate)
	require.Equal(t, 0, prepared.Race)
}

func TestPrepareKeepsExistingDerivedValues(t *testing.T) {
	pace := 8.5
	speed := 3.0
	prepared := Prepare(Activity{ID: 2, AverageSpeed: &speed, AveragePaceMinPerMile: &pace, Race: 1})
	require.Equal(t, 8.5, *prepared.AveragePaceMinPerMile)
	require.Equal(t, 1, prepared.Race)
	require.Nil(t, prepared.MovingTimeMin)
}
