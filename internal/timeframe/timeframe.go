package timeframe

import (
	"fmt"
	"time"
)

// TimeFrameRangeLabel represents the available time range options
type TimeFrameRangeLabel string

const (
	TimeFrameRangeLabelLast24Hours TimeFrameRangeLabel = "24h"
	TimeFrameRangeLabelLast7Days   TimeFrameRangeLabel = "7d"
	TimeFrameRangeLabelLast30Days  TimeFrameRangeLabel = "30d"
	TimeFrameRangeLabelAllTime     TimeFrameRangeLabel = "all"
)

type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider uses the system clock.
type DefaultTimeProvider struct{}

// Now returns the current time in loc.
func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// AllTimeStart is the lower bound used for the "all" range.
var AllTimeStart = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// TimeFrame represents a period between two points in time
type TimeFrame struct {
	From  time.Time
	To    time.Time
	Label TimeFrameRangeLabel
}

type TimeFrameParams struct {
	FromTime time.Time
	ToTime   time.Time
	Label    TimeFrameRangeLabel
}

func NewTimeFrame(params TimeFrameParams) (*TimeFrame, error) {
	if params.FromTime.After(params.ToTime) {
		return nil, fmt.Errorf("fromTime must be before toTime")
	}
	return &TimeFrame{
		From:  params.FromTime,
		To:    params.ToTime,
		Label: params.Label,
	}, nil
}

// Contains reports whether t falls inside the frame, inclusive.
func (tf *TimeFrame) Contains(t time.Time) bool {
	return !t.Before(tf.From) && !t.After(tf.To)
}

// Duration returns the length of the frame.
func (tf *TimeFrame) Duration() time.Duration {
	return tf.To.Sub(tf.From)
}

// TruncateToHalfHour truncates a timestamp to the enclosing half-hour
// boundary (00 or 30 minutes) in UTC. Aggregate rows are keyed on it.
func TruncateToHalfHour(t time.Time) time.Time {
	t = t.UTC()
	minute := 0
	if t.Minute() >= 30 {
		minute = 30
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, time.UTC)
}

// StartOfDay returns midnight UTC of t's day.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
