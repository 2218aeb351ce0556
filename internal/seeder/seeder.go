package seeder

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/karloscodes/cartridge"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"folio/internal/events"
	ua "folio/internal/pkg/user_agent"
)

//go:embed fixtures/demo.yml
var demoFixture []byte

// WeightedCountry is a country code with a relative weight.
type WeightedCountry struct {
	Code   string `yaml:"code"`
	Weight int    `yaml:"weight"`
}

// Fixture describes the shape of generated traffic.
type Fixture struct {
	Journeys        [][]string        `yaml:"journeys"`
	Countries       []WeightedCountry `yaml:"countries"`
	UserAgents      []string          `yaml:"userAgents"`
	DurationSeconds struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"durationSeconds"`
}

// ParseFixture decodes and validates a fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	switch {
	case len(f.Journeys) == 0:
		return nil, errors.New("fixture has no journeys")
	case len(f.Countries) == 0:
		return nil, errors.New("fixture has no countries")
	case len(f.UserAgents) == 0:
		return nil, errors.New("fixture has no user agents")
	}
	if f.DurationSeconds.Max < f.DurationSeconds.Min {
		f.DurationSeconds.Max = f.DurationSeconds.Min
	}
	return &f, nil
}

// LoadFixture reads a fixture file, or the built-in demo fixture when path
// is empty.
func LoadFixture(path string) (*Fixture, error) {
	if path == "" {
		return ParseFixture(demoFixture)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// Seeder writes generated page views and durations straight into the
// aggregates.
type Seeder struct {
	DBManager cartridge.DBManager
	Logger    *slog.Logger
	Sessions  int
	Days      int
	Salt      string

	rng *rand.Rand
	now func() time.Time
}

// NewSeeder creates a seeder. seed fixes the random sequence so runs are
// reproducible.
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, sessions, days int, seed uint64) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager: dbManager,
		Logger:    logger,
		Sessions:  max(sessions, 1),
		Days:      max(days, 1),
		Salt:      "seed",
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Stats reports what a run wrote.
type Stats struct {
	Sessions  int
	PageViews int
	Durations int
}

// Seed generates traffic from the fixture over the last Days days.
func (s *Seeder) Seed(ctx context.Context, f *Fixture) (Stats, error) {
	start := time.Now()
	db := s.DBManager.GetConnection()
	if db == nil {
		return Stats{}, gorm.ErrInvalidDB
	}

	var stats Stats
	window := time.Duration(s.Days) * 24 * time.Hour
	for session := 0; session < s.Sessions; session++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		journey := f.Journeys[s.rng.IntN(len(f.Journeys))]
		country := s.pickCountry(f.Countries)
		agent := f.UserAgents[s.rng.IntN(len(f.UserAgents))]
		device := ua.ParseUserAgent(agent).Device
		visitor := fmt.Sprintf("visitor-%d", s.rng.IntN(s.Sessions))
		ts := s.now().Add(-time.Duration(s.rng.Int64N(int64(window))))

		err := db.Transaction(func(tx *gorm.DB) error {
			for _, path := range journey {
				view := events.PageView{
					Pathname:    path,
					Country:     country,
					DeviceType:  device,
					Fingerprint: events.Fingerprint(s.Salt, visitor, agent, ts),
					Timestamp:   ts,
				}
				if err := events.RecordPageView(tx, view); err != nil {
					return err
				}
				stats.PageViews++

				spent := f.DurationSeconds.Min
				if spread := f.DurationSeconds.Max - f.DurationSeconds.Min; spread > 0 {
					spent += s.rng.IntN(spread + 1)
				}
				if spent > 0 {
					if err := events.RecordDuration(tx, ts, spent); err != nil {
						return err
					}
					stats.Durations++
				}
				ts = ts.Add(time.Duration(spent) * time.Second)
			}
			return nil
		})
		if err != nil {
			return stats, fmt.Errorf("seed session %d: %w", session, err)
		}
		stats.Sessions++
	}

	s.Logger.Info("Seeding completed",
		slog.Int("sessions", stats.Sessions),
		slog.Int("page_views", stats.PageViews),
		slog.Duration("elapsed", time.Since(start)))
	return stats, nil
}

func (s *Seeder) pickCountry(weighted []WeightedCountry) string {
	total := 0
	for _, c := range weighted {
		total += max(c.Weight, 0)
	}
	if total == 0 {
		return weighted[s.rng.IntN(len(weighted))].Code
	}
	n := s.rng.IntN(total)
	for _, c := range weighted {
		n -= max(c.Weight, 0)
		if n < 0 {
			return c.Code
		}
	}
	return weighted[len(weighted)-1].Code
}
