package domain

import (
	"math"
	"strconv"
	"strings"
)

// Normalize projects a raw provider record into an Activity.
//
// Numeric fields are coerced best-effort: JSON numbers are used directly, numeric
// strings are parsed, and anything else becomes NULL. The names of fields that were
// present but could not be coerced are returned so callers can report them.
func Normalize(raw RawActivity) (Activity, []string, error) {
	r := reader{raw: raw}

	id, ok := r.id()
	if !ok {
		return Activity{}, r.malformed, ErrMissingID
	}

	distance := r.float("distance")
	if distance == nil && !r.wasMalformed("distance") {
		zero := 0.0
		distance = &zero
	}

	a := Activity{
		ID:                 id,
		Name:               r.text("name"),
		DistanceMeters:     distance,
		MovingTime:         r.integer("moving_time"),
		ElapsedTime:        r.integer("elapsed_time"),
		TotalElevationGain: r.float("total_elevation_gain"),
		SportType:          r.text("sport_type"),
		StartDate:          r.text("start_date"),
		StartDateLocal:     r.text("start_date_local"),
		AverageSpeed:       r.float("average_speed"),
		MaxSpeed:           r.float("max_speed"),
		AverageHeartrate:   r.float("average_heartrate"),
		Race:               RaceFlag(r.float("workout_type")),
	}
	if a.DistanceMeters != nil {
		miles := MetersToMiles(*a.DistanceMeters)
		a.DistanceMiles = &miles
	}
	a.AveragePaceMinPerMile = PaceMinPerMile(a.AverageSpeed)
	a.MaxPaceMinPerMile = PaceMinPerMile(a.MaxSpeed)

	return a, r.malformed, nil
}

type reader struct {
	raw       RawActivity
	malformed []string
}

func (r *reader) flag(key string) {
	r.malformed = append(r.malformed, key)
}

func (r *reader) wasMalformed(key string) bool {
	for _, k := range r.malformed {
		if k == key {
			return true
		}
	}
	return false
}

func (r *reader) id() (int64, bool) {
	switch v := r.raw["id"].(type) {
	case float64:
		if v <= 0 || v != math.Trunc(v) || v >= math.MaxInt64 {
			r.flag("id")
			return 0, false
		}
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || parsed <= 0 {
			r.flag("id")
			return 0, false
		}
		return parsed, true
	case nil:
		return 0, false
	default:
		r.flag("id")
		return 0, false
	}
}

func (r *reader) float(key string) *float64 {
	value, present := r.raw[key]
	if !present || value == nil {
		return nil
	}
	switch v := value.(type) {
	case float64:
		return &v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			r.flag(key)
			return nil
		}
		return &parsed
	default:
		r.flag(key)
		return nil
	}
}

func (r *reader) integer(key string) *int64 {
	f := r.float(key)
	if f == nil {
		return nil
	}
	if math.Abs(*f) >= math.MaxInt64 {
		r.flag(key)
		return nil
	}
	n := int64(math.Trunc(*f))
	return &n
}

func (r *reader) text(key string) *string {
	value, present := r.raw[key]
	if !present || value == nil {
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	default:
		r.flag(key)
		return nil
	}
	return &s
}
