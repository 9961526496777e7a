// Package domain defines the normalized activity record and the derivations applied to it.
package domain

import "errors"

// ErrMissingID is returned when a raw record carries no usable activity identifier.
var ErrMissingID = errors.New("activity has no usable id")

// Activity is the fixed-shape record persisted to the activities table.
// Nil pointers are written as SQL NULL.
type Activity struct {
	ID                    int64
	Name                  *string
	DistanceMeters        *float64
	DistanceMiles         *float64
	MovingTime            *int64
	ElapsedTime           *int64
	MovingTimeMin         *float64
	ElapsedTimeMin        *float64
	TotalElevationGain    *float64
	SportType             *string
	StartDate             *string
	StartDateLocal        *string
	AverageSpeed          *float64
	AveragePaceMinPerMile *float64
	MaxSpeed              *float64
	MaxPaceMinPerMile     *float64
	AverageHeartrate      *float64
	Race                  int
}

// RawActivity is a single element of the provider's activity listing, decoded as-is.
// Any key may be absent, null, or carry an unexpected JSON type.
type RawActivity map[string]any
