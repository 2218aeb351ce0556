package geoip

import (
	"errors"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// Reader resolves IP addresses to ISO country codes. A nil *Reader is valid
// and resolves nothing, so GeoIP stays optional.
type Reader struct {
	mu     sync.RWMutex
	db     *geoip2.Reader
	path   string
	logger *slog.Logger
}

// Open loads the GeoLite2 country database at path. It returns nil without
// an error when no path is configured or the file does not exist.
func Open(path string, logger *slog.Logger) (*Reader, error) {
	if path == "" {
		logger.Debug("GeoIP database path not configured - GeoIP features disabled")
		return nil, nil
	}

	fileInfo, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("GeoLite2 database not found - GeoIP features disabled",
			slog.String("path", path),
			slog.String("hint", "Download from https://www.maxmind.com/en/geolite2/signup"))
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	logger.Info("GeoLite2 database initialized successfully",
		slog.String("path", path),
		slog.Int64("size_bytes", fileInfo.Size()))

	return &Reader{db: db, path: path, logger: logger}, nil
}

// CountryCode returns the upper-case ISO code for ip, or "" when it cannot be
// resolved.
func (r *Reader) CountryCode(ipAddress string) string {
	if r == nil {
		return ""
	}
	ip := net.ParseIP(strings.TrimSpace(ipAddress))
	if ip == nil {
		return ""
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return ""
	}

	record, err := r.db.Country(ip)
	if err != nil {
		r.logger.Debug("Error looking up country for IP",
			slog.String("ip_address", ipAddress),
			slog.Any("error", err))
		return ""
	}

	code := strings.ToUpper(record.Country.IsoCode)
	if code == "" || code == "--" {
		return ""
	}
	return code
}

// Reload reopens the database file, e.g. after a fresh download.
func (r *Reader) Reload() error {
	if r == nil {
		return nil
	}
	db, err := geoip2.Open(r.path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db != nil {
		r.db.Close()
	}
	r.db = db
	r.logger.Info("GeoLite2 database reloaded successfully")
	return nil
}

// Close releases the database file.
func (r *Reader) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
