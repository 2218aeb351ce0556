// main.go - Load testing tool for the folio tracking endpoint
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"folio/internal/seeder"
)

// PerfConfig holds the configuration for the performance test
type PerfConfig struct {
	BaseURL      string
	Concurrency  int
	Duration     time.Duration
	EventsPerSec int
	Timeout      time.Duration
	Fixture      *seeder.Fixture
}

// Result captures the result of a single request
type Result struct {
	Duration   time.Duration
	StatusCode int
	Error      error
}

// PerfStats aggregates results. It is only touched by the collecting
// goroutine.
type PerfStats struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	RateLimited        int64
	StatusCodes        map[int]int64
	ResponseTimes      []time.Duration
	StartTime          time.Time
	EndTime            time.Time
}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "Base URL of the folio server")
	concurrency := flag.Int("c", 10, "Number of concurrent clients")
	duration := flag.Duration("d", 30*time.Second, "Duration of the test")
	eventsPerSec := flag.Int("rate", 0, "Target events per second (0 = unlimited)")
	timeout := flag.Duration("timeout", 10*time.Second, "Request timeout")
	fixturePath := flag.String("fixture", "", "YAML fixture for paths and user agents (built-in demo if empty)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	fixture, err := seeder.LoadFixture(*fixturePath)
	if err != nil {
		logger.Error("Failed to load fixture", slog.Any("error", err))
		os.Exit(1)
	}

	config := &PerfConfig{
		BaseURL:      strings.TrimRight(*baseURL, "/"),
		Concurrency:  max(*concurrency, 1),
		Duration:     *duration,
		EventsPerSec: *eventsPerSec,
		Timeout:      *timeout,
		Fixture:      fixture,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	testCtx, testCancel := context.WithTimeout(ctx, config.Duration)
	defer testCancel()

	fmt.Printf("Starting load test with %d concurrent clients for %v\n", config.Concurrency, config.Duration)
	fmt.Printf("Target URL: %s/api/track\n", config.BaseURL)

	stats := &PerfStats{StatusCodes: make(map[int]int64), StartTime: time.Now()}
	for result := range runTest(testCtx, config, logger) {
		processResult(result, stats)
	}
	stats.EndTime = time.Now()

	printResults(os.Stdout, stats)
}

// runTest starts the workers and returns a channel of results that is
// closed once every worker has stopped.
func runTest(ctx context.Context, config *PerfConfig, logger *slog.Logger) <-chan Result {
	resultChan := make(chan Result, config.Concurrency*10)
	var wg sync.WaitGroup

	var interval time.Duration
	if config.EventsPerSec > 0 {
		perWorker := float64(config.EventsPerSec) / float64(config.Concurrency)
		interval = time.Duration(float64(time.Second) / perWorker)
		logger.Info("Rate limiting enabled",
			slog.Int("events_per_sec", config.EventsPerSec),
			slog.Duration("worker_interval", interval))
	}

	for i := 0; i < config.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{Timeout: config.Timeout}
			rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(workerID)))

			var ticker *time.Ticker
			if interval > 0 {
				ticker = time.NewTicker(interval)
				defer ticker.Stop()
			}

			for {
				if ticker != nil {
					select {
					case <-ticker.C:
					case <-ctx.Done():
						return
					}
				} else if ctx.Err() != nil {
					return
				}

				agent := config.Fixture.UserAgents[rng.IntN(len(config.Fixture.UserAgents))]
				journey := config.Fixture.Journeys[rng.IntN(len(config.Fixture.Journeys))]
				for _, path := range journey {
					if ctx.Err() != nil {
						return
					}
					resultChan <- sendBeacon(ctx, client, config.BaseURL, agent, map[string]any{"type": "pageview", "path": path})
				}
				resultChan <- sendBeacon(ctx, client, config.BaseURL, agent,
					map[string]any{"type": "duration", "durationSeconds": 5 + rng.IntN(120)})
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()
	return resultChan
}

func sendBeacon(ctx context.Context, client *http.Client, baseURL, agent string, body map[string]any) Result {
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{Error: fmt.Errorf("failed to marshal JSON: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/track", bytes.NewReader(payload))
	if err != nil {
		return Result{Error: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", agent)
	// The server only accepts beacons that look like browser requests.
	req.Header.Set("Sec-Fetch-Site", "cross-site")

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Result{Duration: elapsed, Error: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return Result{Duration: elapsed, StatusCode: resp.StatusCode}
}

func processResult(result Result, stats *PerfStats) {
	// Requests cut off by the end of the test are not counted.
	if errors.Is(result.Error, context.DeadlineExceeded) || errors.Is(result.Error, context.Canceled) {
		return
	}
	stats.TotalRequests++
	if result.Error != nil {
		stats.FailedRequests++
		return
	}

	stats.ResponseTimes = append(stats.ResponseTimes, result.Duration)
	stats.StatusCodes[result.StatusCode]++
	switch {
	case result.StatusCode == http.StatusAccepted:
		stats.SuccessfulRequests++
	case result.StatusCode == http.StatusTooManyRequests:
		stats.RateLimited++
		stats.FailedRequests++
	default:
		stats.FailedRequests++
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := min(int(float64(len(sorted))*p), len(sorted)-1)
	return sorted[idx]
}

func printResults(out io.Writer, stats *PerfStats) {
	elapsed := stats.EndTime.Sub(stats.StartTime)
	total := max(stats.TotalRequests, 1)

	sort.Slice(stats.ResponseTimes, func(i, j int) bool { return stats.ResponseTimes[i] < stats.ResponseTimes[j] })

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\n%s\t%s\n", "METRIC", "VALUE")
	fmt.Fprintf(w, "%s\t%s\n", "------", "-----")
	fmt.Fprintf(w, "Test Duration\t%v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Requests Per Second\t%.2f\n", float64(stats.TotalRequests)/max(elapsed.Seconds(), 0.001))
	fmt.Fprintf(w, "Total Requests\t%d\n", stats.TotalRequests)
	fmt.Fprintf(w, "Accepted\t%d (%.2f%%)\n", stats.SuccessfulRequests, 100*float64(stats.SuccessfulRequests)/float64(total))
	fmt.Fprintf(w, "Failed\t%d (%.2f%%)\n", stats.FailedRequests, 100*float64(stats.FailedRequests)/float64(total))
	if stats.RateLimited > 0 {
		fmt.Fprintf(w, "Rate Limited\t%d\n", stats.RateLimited)
	}
	fmt.Fprintf(w, "p50 Latency\t%v\n", percentile(stats.ResponseTimes, 0.50))
	fmt.Fprintf(w, "p95 Latency\t%v\n", percentile(stats.ResponseTimes, 0.95))
	fmt.Fprintf(w, "p99 Latency\t%v\n", percentile(stats.ResponseTimes, 0.99))
	w.Flush()

	if len(stats.StatusCodes) == 0 {
		return
	}
	var codes []int
	for code := range stats.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	fmt.Fprintln(out, "\nStatus Code Distribution:")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\n", "STATUS CODE", "COUNT", "GRAPH")
	const maxBarLength = 50
	for _, code := range codes {
		count := stats.StatusCodes[code]
		bar := strings.Repeat("█", int(float64(count)/float64(total)*maxBarLength))
		fmt.Fprintf(w, "%d\t%d\t%s\n", code, count, bar)
	}
	w.Flush()
}
