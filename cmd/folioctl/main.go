// main.go - Admin and reporting tool for folio
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"folio/internal"
	"folio/internal/config"
	"folio/internal/seeder"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given environment and args
	Execute(ctx context.Context, env *Env, args []string) error
}

// Env is what commands share. The application is only built for commands
// that touch the local database.
type Env struct {
	Config *config.Config
	Logger *slog.Logger

	app *internal.Application
}

// App builds the application on first use.
func (e *Env) App() (*internal.Application, error) {
	if e.app != nil {
		return e.app, nil
	}
	app, err := internal.NewAppWithConfig(e.Config)
	if err != nil {
		return nil, fmt.Errorf("initialize app: %w", err)
	}
	e.app = app
	return app, nil
}

// Close shuts the application down if it was built.
func (e *Env) Close() {
	if e.app == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := e.app.Shutdown(ctx); err != nil {
		log.Printf("Warning: Cleanup error: %v", err)
	}
}

// The set of available commands
var commands = []Command{
	&ReportCommand{},
	&ExportCommand{},
	&MigrateCommand{},
	&SeedCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()
	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// Report output goes to stdout, so command logging stays on stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	env := &Env{Config: cfg, Logger: logger}
	defer env.Close()

	if err := cmd.Execute(ctx, env, args); err != nil {
		env.Close()
		log.Fatalf("Command failed: %v", err)
	}
}

// StatusCommand reports database and connection pool state
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the current system status" }

func (c *StatusCommand) Execute(ctx context.Context, env *Env, args []string) error {
	app, err := env.App()
	if err != nil {
		return err
	}
	db := app.DBManager.GetConnection()
	if db == nil {
		return fmt.Errorf("database unavailable")
	}

	var buckets, visitors int64
	if err := db.WithContext(ctx).Table("site_stats").Count(&buckets).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if err := db.WithContext(ctx).Table("visitors").Count(&visitors).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}
	stats := sqlDB.Stats()

	fmt.Println("System Status:")
	fmt.Printf("- Database: %s\n", env.Config.GetDatabasePath())
	fmt.Printf("- Half-hour buckets: %d\n", buckets)
	fmt.Printf("- Retained visitor fingerprints: %d\n", visitors)
	fmt.Printf("- GeoIP: %t\n", app.Geo != nil)
	fmt.Printf("- Max Open Connections: %d\n", stats.MaxOpenConnections)
	fmt.Printf("- Open Connections: %d\n", stats.OpenConnections)
	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(ctx context.Context, env *Env, args []string) error {
	printUsage()
	return nil
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, env *Env, args []string) error {
	app, err := env.App()
	if err != nil {
		return err
	}
	log.Println("Running database migrations...")
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Println("Migrations completed successfully")
	return nil
}

// SeedCommand populates the DB with demo traffic
type SeedCommand struct{}

func (c *SeedCommand) Name() string        { return "seed" }
func (c *SeedCommand) Description() string { return "Seeds the database with sample traffic" }

func (c *SeedCommand) Execute(ctx context.Context, env *Env, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	sessions := fs.Int("sessions", 2000, "number of visitor sessions to generate")
	days := fs.Int("days", 30, "spread sessions over this many days")
	fixture := fs.String("fixture", "", "YAML fixture (built-in demo traffic if empty)")
	seed := fs.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := seeder.LoadFixture(*fixture)
	if err != nil {
		return err
	}
	app, err := env.App()
	if err != nil {
		return err
	}
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	stats, err := seeder.NewSeeder(app.DBManager, env.Logger, *sessions, *days, *seed).Seed(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d sessions (%d page views)\n", stats.Sessions, stats.PageViews)
	return nil
}

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := flag.Args()
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: folioctl [command] [args...]")
	fmt.Println("Available commands:")
	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	printUsage()
	os.Exit(1)
}
