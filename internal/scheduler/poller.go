// Package scheduler implements the background jobs that keep the sample
// store current. The SamplePoller pulls fresh bacteria results from the
// open-data portal for every known station; it is driven on an interval by
// cmd/data-poller.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clearwater/internal/types"
)

// StationStore abstracts the station operations the poller needs. Implemented
// by db.StationRepository.
type StationStore interface {
	ListStations(ctx context.Context) ([]types.Station, error)
	SetLastSample(ctx context.Context, code string, at time.Time) error
}

// SampleStore abstracts sample persistence. Implemented by
// db.SampleRepository.
type SampleStore interface {
	InsertBatch(ctx context.Context, records []types.SampleRecord) (int, error)
	LatestSampleDate(ctx context.Context, stationCode string) (*time.Time, error)
}

// SampleFetcher abstracts the portal client.
type SampleFetcher interface {
	FetchSamples(ctx context.Context, stationCode string, since *time.Time) ([]types.SampleRecord, error)
}

// PollStats summarizes one poll cycle.
type PollStats struct {
	RunID    string
	Stations int
	Inserted int
	Failed   int
	Elapsed  time.Duration
}

// SamplePoller fetches new sample records for every station and persists
// them. Stations are polled concurrently up to a configured limit; a failure
// on one station never aborts the cycle, it is logged and counted.
type SamplePoller struct {
	stations    StationStore
	samples     SampleStore
	fetcher     SampleFetcher
	concurrency int
	clock       types.Clock
	logger      *slog.Logger
}

// SamplePollerConfig holds the dependencies for creating a SamplePoller.
type SamplePollerConfig struct {
	Stations    StationStore
	Samples     SampleStore
	Fetcher     SampleFetcher
	Concurrency int
	Clock       types.Clock
	Logger      *slog.Logger
}

// NewSamplePoller creates a SamplePoller. Concurrency below one is raised to
// one; a nil clock defaults to the real UTC clock.
func NewSamplePoller(cfg SamplePollerConfig) *SamplePoller {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SamplePoller{
		stations:    cfg.Stations,
		samples:     cfg.Samples,
		fetcher:     cfg.Fetcher,
		concurrency: concurrency,
		clock:       clock,
		logger:      logger,
	}
}

// Poll runs one full cycle: list stations, fetch each station's new records
// since its stored watermark, insert them, and advance the watermark. It
// returns aggregate stats; the error is non-nil only when the station list
// itself cannot be loaded.
func (p *SamplePoller) Poll(ctx context.Context) (PollStats, error) {
	start := p.clock.Now()
	stats := PollStats{RunID: uuid.NewString()}

	stations, err := p.stations.ListStations(ctx)
	if err != nil {
		return stats, fmt.Errorf("listing stations: %w", err)
	}
	stats.Stations = len(stations)

	p.logger.InfoContext(ctx, "poll cycle started",
		slog.String("run_id", stats.RunID),
		slog.Int("stations", len(stations)))

	var inserted, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, station := range stations {
		g.Go(func() error {
			n, err := p.pollStation(gctx, station)
			if err != nil {
				failed.Add(1)
				p.logger.ErrorContext(gctx, "station poll failed",
					slog.String("run_id", stats.RunID),
					slog.String("station_code", station.Code),
					slog.Any("error", err))
				// Station failures are isolated; only context cancellation
				// stops the cycle.
				return gctx.Err()
			}
			inserted.Add(int64(n))
			return nil
		})
	}
	err = g.Wait()

	stats.Inserted = int(inserted.Load())
	stats.Failed = int(failed.Load())
	stats.Elapsed = p.clock.Now().Sub(start)

	p.logger.InfoContext(ctx, "poll cycle complete",
		slog.String("run_id", stats.RunID),
		slog.Int("inserted", stats.Inserted),
		slog.Int("failed", stats.Failed),
		slog.Duration("elapsed", stats.Elapsed))

	return stats, err
}

// pollStation fetches and stores new records for one station. The fetch
// window starts at the stored watermark day itself, not the day after:
// portals append same-day rows late, and the insert path dedupes replays.
func (p *SamplePoller) pollStation(ctx context.Context, station types.Station) (int, error) {
	since, err := p.samples.LatestSampleDate(ctx, station.Code)
	if err != nil {
		return 0, fmt.Errorf("loading watermark: %w", err)
	}

	records, err := p.fetcher.FetchSamples(ctx, station.Code, since)
	if err != nil {
		return 0, fmt.Errorf("fetching samples: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	inserted, err := p.samples.InsertBatch(ctx, records)
	if err != nil {
		return inserted, fmt.Errorf("inserting samples: %w", err)
	}

	latest := records[0].Date
	for _, rec := range records[1:] {
		if rec.Date.After(latest) {
			latest = rec.Date
		}
	}
	if err := p.stations.SetLastSample(ctx, station.Code, latest); err != nil {
		// The watermark is derived from stored samples on the next cycle, so
		// a failed advance costs a re-fetch, not data.
		p.logger.WarnContext(ctx, "failed to advance station watermark",
			slog.String("station_code", station.Code),
			slog.Any("error", err))
	}
	return inserted, nil
}

// Run polls on the given interval until the context is canceled. The first
// cycle runs immediately.
func (p *SamplePoller) Run(ctx context.Context, interval time.Duration) error {
	if _, err := p.Poll(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}
