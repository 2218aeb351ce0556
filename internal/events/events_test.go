package events_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"folio/internal/analytics"
	"folio/internal/events"
	"folio/internal/pkg/countries"
	"folio/internal/testsupport"
)

const (
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	botUA     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

type fakeGeo map[string]string

func (g fakeGeo) CountryCode(ip string) string { return g[ip] }

func newCollector(t *testing.T) (*events.Collector, *gorm.DB) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	geo := fakeGeo{"1.1.1.1": "US", "2.2.2.2": "DE"}
	return events.NewCollector(dbManager, geo, logger, "salt"), dbManager.GetConnection()
}

func TestCollectPageView(t *testing.T) {
	c, db := newCollector(t)
	ts := time.Date(2024, 3, 15, 10, 40, 0, 0, time.UTC)

	require.NoError(t, c.Collect(events.TrackInput{
		IPAddress: "1.1.1.1", UserAgent: desktopUA, Type: events.EventTypePageView,
		Path: "https://example.com/pricing?ref=x#top", Timestamp: ts,
	}))

	var site analytics.SiteStat
	require.NoError(t, db.First(&site).Error)
	assert.Equal(t, 1, site.PageViewsCount)
	assert.Equal(t, 1, site.VisitorsCount)
	assert.True(t, site.Hour.Equal(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)))

	var page analytics.PageStat
	require.NoError(t, db.First(&page).Error)
	assert.Equal(t, "/pricing", page.Pathname)

	var country analytics.CountryStat
	require.NoError(t, db.First(&country).Error)
	assert.Equal(t, "US", country.Country)

	var device analytics.DeviceStat
	require.NoError(t, db.First(&device).Error)
	assert.Equal(t, "desktop", device.DeviceType)
}

func TestCollectCountsVisitorOncePerDay(t *testing.T) {
	c, db := newCollector(t)
	ts := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Collect(events.TrackInput{
			IPAddress: "1.1.1.1", UserAgent: iphoneUA, Type: events.EventTypePageView,
			Path: "/", Timestamp: ts.Add(time.Duration(i) * time.Minute),
		}))
	}
	// Next day the same visitor is new again
	require.NoError(t, c.Collect(events.TrackInput{
		IPAddress: "1.1.1.1", UserAgent: iphoneUA, Type: events.EventTypePageView,
		Path: "/", Timestamp: ts.AddDate(0, 0, 1),
	}))

	var totals struct {
		Views    int
		Visitors int
	}
	require.NoError(t, db.Raw("SELECT SUM(page_views_count) AS views, SUM(visitors_count) AS visitors FROM site_stats").Scan(&totals).Error)
	assert.Equal(t, 4, totals.Views)
	assert.Equal(t, 2, totals.Visitors)

	var device analytics.DeviceStat
	require.NoError(t, db.First(&device).Error)
	assert.Equal(t, "mobile", device.DeviceType)
}

func TestCollectUnknownCountry(t *testing.T) {
	c, db := newCollector(t)
	require.NoError(t, c.Collect(events.TrackInput{
		IPAddress: "9.9.9.9", UserAgent: desktopUA, Type: events.EventTypePageView, Path: "/",
	}))

	var country analytics.CountryStat
	require.NoError(t, db.First(&country).Error)
	assert.Equal(t, countries.Unknown, country.Country)
}

func TestCollectSkipsBots(t *testing.T) {
	c, db := newCollector(t)
	require.NoError(t, c.Collect(events.TrackInput{
		IPAddress: "1.1.1.1", UserAgent: botUA, Type: events.EventTypePageView, Path: "/",
	}))

	var count int64
	require.NoError(t, db.Model(&analytics.SiteStat{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCollectDuration(t *testing.T) {
	c, db := newCollector(t)
	ts := time.Date(2024, 3, 15, 10, 5, 0, 0, time.UTC)

	for _, secs := range []int{30, 90} {
		require.NoError(t, c.Collect(events.TrackInput{
			IPAddress: "1.1.1.1", UserAgent: desktopUA, Type: events.EventTypeDuration,
			DurationSeconds: secs, Timestamp: ts,
		}))
	}

	var site analytics.SiteStat
	require.NoError(t, db.First(&site).Error)
	assert.Equal(t, int64(120), site.DurationSum)
	assert.Equal(t, 2, site.DurationCount)
	assert.Zero(t, site.PageViewsCount)
}

func TestCollectRejectsInvalidInput(t *testing.T) {
	c, _ := newCollector(t)

	tests := []struct {
		name  string
		input events.TrackInput
	}{
		{"unknown type", events.TrackInput{Type: "click", Path: "/", UserAgent: desktopUA}},
		{"empty path", events.TrackInput{Type: events.EventTypePageView, UserAgent: desktopUA}},
		{"zero duration", events.TrackInput{Type: events.EventTypeDuration, UserAgent: desktopUA}},
		{"huge duration", events.TrackInput{Type: events.EventTypeDuration, DurationSeconds: events.MaxDurationSeconds + 1, UserAgent: desktopUA}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Collect(tt.input)
			assert.True(t, errors.Is(err, events.ErrInvalidEvent), "got %v", err)
		})
	}
}

func TestFingerprint(t *testing.T) {
	day := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	a := events.Fingerprint("s", "1.1.1.1", "ua", day)

	assert.Len(t, a, 64)
	assert.Equal(t, a, events.Fingerprint("s", "1.1.1.1", "ua", day.Add(10*time.Hour)))
	assert.NotEqual(t, a, events.Fingerprint("s", "1.1.1.1", "ua", day.AddDate(0, 0, 1)))
	assert.NotEqual(t, a, events.Fingerprint("other", "1.1.1.1", "ua", day))
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/":                       "/",
		"/blog/post?x=1":          "/blog/post",
		"https://example.com":     "/",
		"https://example.com/a#b": "/a",
		"docs":                    "/docs",
	}
	for in, want := range tests {
		got, err := events.NormalizePath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestDeleteVisitorsBefore(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	old := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	testsupport.RecordViews(t, db, testsupport.View("/", "US", "desktop", "a", old), 1)
	testsupport.RecordViews(t, db, testsupport.View("/", "US", "desktop", "b", recent), 1)

	deleted, err := events.DeleteVisitorsBefore(db, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, db.Model(&events.Visitor{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)

	var views int64
	require.NoError(t, db.Raw("SELECT SUM(page_views_count) FROM site_stats").Scan(&views).Error)
	assert.Equal(t, int64(2), views)
}
