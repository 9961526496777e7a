package domain

import "math"

const (
	// MilesPerMeter converts a distance in meters to statute miles.
	MilesPerMeter = 0.000621371
	// MetersPerMile is the pace numerator: seconds per mile = MetersPerMile / speed.
	MetersPerMile = 1609.34
)

// Round2 rounds v to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MetersToMiles converts meters to miles rounded to two decimals.
func MetersToMiles(meters float64) float64 {
	return Round2(meters * MilesPerMeter)
}

// PaceMinPerMile converts a speed in m/s to minutes per mile rounded to two decimals.
// It returns nil when the speed is absent, not finite, or not positive.
func PaceMinPerMile(speed *float64) *float64 {
	if speed == nil || !finite(*speed) || *speed <= 0 {
		return nil
	}
	pace := Round2(MetersPerMile / *speed / 60)
	return &pace
}

// SecondsToMinutes converts a duration in seconds to minutes rounded to two decimals.
func SecondsToMinutes(seconds *int64) *float64 {
	if seconds == nil {
		return nil
	}
	minutes := Round2(float64(*seconds) / 60)
	return &minutes
}

// RaceFlag reports 1 when the provider workout type marks a race, 0 otherwise.
func RaceFlag(workoutType *float64) int {
	if workoutType != nil && *workoutType == 1 {
		return 1
	}
	return 0
}

// Prepare returns a copy of a ready for persistence: non-finite floats become NULL,
// missing derived columns are computed, and race is clamped to 0 or 1.
func Prepare(a Activity) Activity {
	out := a
	for _, f := range []**float64{
		&out.DistanceMeters, &out.DistanceMiles, &out.MovingTimeMin, &out.ElapsedTimeMin,
		&out.TotalElevationGain, &out.AverageSpeed, &out.AveragePaceMinPerMile,
		&out.MaxSpeed, &out.MaxPaceMinPerMile, &out.AverageHeartrate,
	} {
		*f = nullIfNotFinite(*f)
	}

	if out.DistanceMiles == nil && out.DistanceMeters != nil {
		miles := MetersToMiles(*out.DistanceMeters)
		out.DistanceMiles = &miles
	}
	if out.MovingTimeMin == nil {
		out.MovingTimeMin = SecondsToMinutes(out.MovingTime)
	}
	if out.ElapsedTimeMin == nil {
		out.ElapsedTimeMin = SecondsToMinutes(out.ElapsedTime)
	}
	if out.AveragePaceMinPerMile == nil {
		out.AveragePaceMinPerMile = PaceMinPerMile(out.AverageSpeed)
	}
	if out.MaxPaceMinPerMile == nil {
		out.MaxPaceMinPerMile = PaceMinPerMile(out.MaxSpeed)
	}
	if out.Race != 1 {
		out.Race = 0
	}
	return out
}

func nullIfNotFinite(v *float64) *float64 {
	if v == nil || !finite(*v) {
		return nil
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
