package events

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"folio/internal/pkg/countries"
	ua "folio/internal/pkg/user_agent"
	"folio/internal/timeframe"
)

// CountryResolver maps an IP address to an ISO country code, "" if unknown.
type CountryResolver interface {
	CountryCode(ip string) string
}

// Collector validates beacons and writes them to the aggregates.
type Collector struct {
	db     cartridge.DBManager
	geo    CountryResolver
	logger *slog.Logger
	salt   string
	now    func() time.Time
}

// NewCollector creates a collector. geo may be nil.
func NewCollector(db cartridge.DBManager, geo CountryResolver, logger *slog.Logger, salt string) *Collector {
	return &Collector{
		db:     db,
		geo:    geo,
		logger: logger,
		salt:   salt,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Fingerprint identifies a visitor for one day without storing the IP or
// user agent. It changes daily, so visitors cannot be followed across days.
func Fingerprint(salt, ip, userAgent string, day time.Time) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		salt, ip, userAgent, timeframe.StartOfDay(day).Format("2006-01-02"),
	}, "|")))
	return hex.EncodeToString(sum[:])
}

// NormalizePath reduces a page reference to its path. Full URLs are
// accepted; the query string and fragment are dropped.
func NormalizePath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidEvent)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path, nil
}

// Collect records one beacon. Bot traffic is dropped without an error.
func (c *Collector) Collect(input TrackInput) error {
	ts := input.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}
	ts = ts.UTC()

	parsed := ua.ParseUserAgent(input.UserAgent)
	if parsed.Bot {
		c.logger.Debug("Skipping bot traffic", slog.String("bot", parsed.BotName))
		return nil
	}

	db := c.db.GetConnection()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	switch input.Type {
	case EventTypePageView:
		path, err := NormalizePath(input.Path)
		if err != nil {
			return err
		}
		view := PageView{
			Pathname:    path,
			Country:     c.country(input.IPAddress),
			DeviceType:  parsed.Device,
			Fingerprint: Fingerprint(c.salt, input.IPAddress, input.UserAgent, ts),
			Timestamp:   ts,
		}
		if err := sqlite.PerformWrite(c.logger, db, func(tx *gorm.DB) error { return RecordPageView(tx, view) }); err != nil {
			c.logger.Error("Failed to record page view", slog.String("path", path), slog.Any("error", err))
			return err
		}
	case EventTypeDuration:
		if input.DurationSeconds <= 0 || input.DurationSeconds > MaxDurationSeconds {
			return fmt.Errorf("%w: duration %d out of range", ErrInvalidEvent, input.DurationSeconds)
		}
		err := sqlite.PerformWrite(c.logger, db, func(tx *gorm.DB) error {
			return RecordDuration(tx, ts, input.DurationSeconds)
		})
		if err != nil {
			c.logger.Error("Failed to record duration", slog.Any("error", err))
			return err
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, input.Type)
	}
	return nil
}

func (c *Collector) country(ip string) string {
	if c.geo == nil {
		return countries.Unknown
	}
	if code := c.geo.CountryCode(ip); code != "" {
		return code
	}
	return countries.Unknown
}
