package status

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"clearwater/internal/config"
	"clearwater/internal/types"
)

// historyConcurrencyLimit caps concurrent per-station series builds in
// batch queries. Each build allocates its own working arrays, so invocations
// are independent and safe to run in parallel.
const historyConcurrencyLimit = 8

// StationSource abstracts station lookups. Implemented by db.StationRepository.
type StationSource interface {
	GetStation(ctx context.Context, code string) (*types.Station, error)
	ListStations(ctx context.Context) ([]types.Station, error)
}

// SampleSource abstracts sample-record retrieval. Implemented by
// db.SampleRepository.
type SampleSource interface {
	ListByStation(ctx context.Context, stationCode string) ([]types.SampleRecord, error)
}

// Service exposes the two status query paths over one shared decision table:
// the single-date current status and the full change-point history. Rules
// and catalog are injected at construction; the service holds no mutable
// state and is safe for concurrent use.
type Service struct {
	stations StationSource
	samples  SampleSource
	rules    *config.Rules
	clock    types.Clock
	logger   *slog.Logger
	opts     SeriesOptions
}

// NewService creates a Service. A nil clock defaults to the real UTC clock;
// a nil logger defaults to slog.Default().
func NewService(stations StationSource, samples SampleSource, rules *config.Rules, clock types.Clock, logger *slog.Logger, opts SeriesOptions) *Service {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		stations: stations,
		samples:  samples,
		rules:    rules,
		clock:    clock,
		logger:   logger,
		opts:     opts,
	}
}

// CurrentStatus evaluates one station at one as-of date (nil means today).
// It loads the station's records, computes the window metrics for the
// configured indicator analyte, and runs the decision table.
func (s *Service) CurrentStatus(ctx context.Context, stationCode string, asOf *time.Time) (*types.StatusResult, error) {
	station, err := s.stations.GetStation(ctx, stationCode)
	if err != nil {
		return nil, err
	}

	rule, err := s.rules.RuleFor(station.WaterBody())
	if err != nil {
		return nil, err
	}

	records, err := s.samples.ListByStation(ctx, stationCode)
	if err != nil {
		return nil, fmt.Errorf("loading samples for %s: %w", stationCode, err)
	}

	at := s.clock.Now()
	if asOf != nil {
		at = *asOf
	}

	metrics := ComputeWindowMetrics(records, at, MetricsInput{
		Indicator:      rule.IndicatorAnalyte,
		ExcludedMethod: s.rules.ExcludedMethodSubstring,
	})

	result, err := EvaluateStatus(metrics, rule, s.rules)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// History builds the full change-point status series for one station,
// terminating at today.
func (s *Service) History(ctx context.Context, stationCode string) ([]types.Segment, error) {
	station, err := s.stations.GetStation(ctx, stationCode)
	if err != nil {
		return nil, err
	}

	rule, err := s.rules.RuleFor(station.WaterBody())
	if err != nil {
		return nil, err
	}

	records, err := s.samples.ListByStation(ctx, stationCode)
	if err != nil {
		return nil, fmt.Errorf("loading samples for %s: %w", stationCode, err)
	}

	return BuildStatusSeries(records, rule, s.rules, s.clock.Now(), s.opts)
}

// HistoryBatch builds series for multiple stations concurrently. Station
// builds are independent (no shared mutable state), so they fan out under a
// bounded errgroup; the first error cancels the remainder.
func (s *Service) HistoryBatch(ctx context.Context, stationCodes []string) (map[string][]types.Segment, error) {
	out := make(map[string][]types.Segment, len(stationCodes))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(historyConcurrencyLimit)

	for _, code := range stationCodes {
		g.Go(func() error {
			segments, err := s.History(ctx, code)
			if err != nil {
				return fmt.Errorf("station %s: %w", code, err)
			}
			mu.Lock()
			out[code] = segments
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
