// Package events ingests page views and visit durations into the aggregate
// tables read by the analytics API.
package events

import (
	"errors"
	"time"
)

// EventType is the kind of beacon a page sends.
type EventType string

const (
	EventTypePageView EventType = "pageview"
	EventTypeDuration EventType = "duration"
)

// MaxDurationSeconds caps a single duration beacon. Longer values are
// treated as a tab left open and rejected.
const MaxDurationSeconds = 4 * 60 * 60

// ErrInvalidEvent is returned for beacons that cannot be recorded.
var ErrInvalidEvent = errors.New("invalid event")

// Visitor marks a fingerprint as seen on a day. The fingerprint is a salted
// hash, so no raw IP or user agent is stored.
type Visitor struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Fingerprint string    `gorm:"uniqueIndex:idx_visitor_day;size:64;not null"`
	Day         time.Time `gorm:"uniqueIndex:idx_visitor_day;type:datetime;not null"`
	CreatedAt   time.Time `gorm:"index"`
}

// TrackInput is one beacon as received over HTTP.
type TrackInput struct {
	IPAddress       string
	UserAgent       string
	Type            EventType
	Path            string
	DurationSeconds int
	Timestamp       time.Time
}

// PageView is a classified page view ready to be aggregated.
type PageView struct {
	Pathname    string
	Country     string
	DeviceType  string
	Fingerprint string
	Timestamp   time.Time
}
