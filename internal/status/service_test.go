package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clearwater/internal/config"
	"clearwater/internal/types"
)

// --- Test Doubles ---

type stubClock struct {
	now time.Time
}

func (c stubClock) Now() time.Time { return c.now }

type stubStations struct {
	stations map[string]*types.Station
}

func (s *stubStations) GetStation(_ context.Context, code string) (*types.Station, error) {
	st, ok := s.stations[code]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundStation, "station "+code+" not found", nil)
	}
	return st, nil
}

func (s *stubStations) ListStations(_ context.Context) ([]types.Station, error) {
	out := make([]types.Station, 0, len(s.stations))
	for _, st := range s.stations {
		out = append(out, *st)
	}
	return out, nil
}

type stubSamples struct {
	byStation map[string][]types.SampleRecord
	err       error
}

func (s *stubSamples) ListByStation(_ context.Context, code string) ([]types.SampleRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byStation[code], nil
}

func newTestService(t *testing.T, now time.Time, stations *stubStations, samples *stubSamples) *Service {
	t.Helper()
	return NewService(stations, samples, config.DefaultRules(), stubClock{now: now}, nil, SeriesOptions{})
}

func saltSamples(now time.Time, values []float64, spacingDays int) []types.SampleRecord {
	out := make([]types.SampleRecord, 0, len(values))
	for i, v := range values {
		out = append(out, types.SampleRecord{
			StationCode: "CA-0001",
			Date:        now.AddDate(0, 0, -i*spacingDays),
			Analyte:     "Enterococcus",
			Unit:        "MPN/100 mL",
			Result:      v,
		})
	}
	return out
}

func TestServiceCurrentStatus(t *testing.T) {
	now := day(2026, 8, 1)
	stations := &stubStations{stations: map[string]*types.Station{
		"CA-0001": {Code: "CA-0001", Saltwater: true},
	}}
	samples := &stubSamples{byStation: map[string][]types.SampleRecord{
		"CA-0001": saltSamples(now, []float64{8, 9, 10, 11, 12, 9}, 4),
	}}

	svc := newTestService(t, now, stations, samples)
	result, err := svc.CurrentStatus(context.Background(), "CA-0001", nil)
	require.NoError(t, err)
	assert.Equal(t, types.StatusLowRisk, result.Status.Name)
	assert.Equal(t, []string{types.ReasonPassGeomean, types.ReasonPassSingleSample}, result.Reasons)
	assert.Equal(t, "Low risk", result.Status.DisplayName)
}

func TestServiceCurrentStatusAsOfDate(t *testing.T) {
	now := day(2026, 8, 1)
	stations := &stubStations{stations: map[string]*types.Station{
		"CA-0001": {Code: "CA-0001", Saltwater: true},
	}}
	samples := &stubSamples{byStation: map[string][]types.SampleRecord{
		"CA-0001": saltSamples(now, []float64{8, 9, 10, 11, 12, 9}, 4),
	}}

	svc := newTestService(t, now, stations, samples)

	// A year before any sample existed there is nothing to evaluate.
	asOf := now.AddDate(-1, 0, 0)
	result, err := svc.CurrentStatus(context.Background(), "CA-0001", &asOf)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNotEnoughData, result.Status.Name)
}

func TestServiceUnknownStation(t *testing.T) {
	now := day(2026, 8, 1)
	svc := newTestService(t, now,
		&stubStations{stations: map[string]*types.Station{}},
		&stubSamples{})

	_, err := svc.CurrentStatus(context.Background(), "NOPE", nil)
	require.Error(t, err)
	appErr, ok := err.(*types.AppError)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeNotFoundStation, appErr.Code)
}

func TestServiceMissingRuleSetFailsLoudly(t *testing.T) {
	now := day(2026, 8, 1)
	rules := config.DefaultRules()
	delete(rules.RuleSets, types.WaterBodyFreshwater)

	stations := &stubStations{stations: map[string]*types.Station{
		"CA-0002": {Code: "CA-0002", Saltwater: false},
	}}
	svc := NewService(stations, &stubSamples{}, rules, stubClock{now: now}, nil, SeriesOptions{})

	_, err := svc.CurrentStatus(context.Background(), "CA-0002", nil)
	require.Error(t, err)
	appErr, ok := err.(*types.AppError)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeConfigMissingRuleSet, appErr.Code)

	_, err = svc.History(context.Background(), "CA-0002")
	require.Error(t, err, "history path must surface the same configuration gap")
}

func TestServiceHistoryTerminatesAtToday(t *testing.T) {
	now := day(2026, 8, 1)
	stations := &stubStations{stations: map[string]*types.Station{
		"CA-0001": {Code: "CA-0001", Saltwater: true},
	}}
	samples := &stubSamples{byStation: map[string][]types.SampleRecord{
		"CA-0001": saltSamples(now.AddDate(0, 0, -90), []float64{8, 9, 10, 11, 12, 9}, 4),
	}}

	svc := newTestService(t, now, stations, samples)
	segments, err := svc.History(context.Background(), "CA-0001")
	require.NoError(t, err)
	require.NotEmpty(t, segments)
	assert.True(t, segments[len(segments)-1].Date.Equal(now))
}

func TestServiceHistoryBatch(t *testing.T) {
	now := day(2026, 8, 1)
	stations := &stubStations{stations: map[string]*types.Station{
		"CA-0001": {Code: "CA-0001", Saltwater: true},
		"CA-0002": {Code: "CA-0002", Saltwater: false},
		"CA-0003": {Code: "CA-0003", Saltwater: true},
	}}
	samples := &stubSamples{byStation: map[string][]types.SampleRecord{
		"CA-0001": saltSamples(now, []float64{8, 9, 10, 11, 12, 9}, 4),
	}}

	svc := newTestService(t, now, stations, samples)
	out, err := svc.HistoryBatch(context.Background(), []string{"CA-0001", "CA-0002", "CA-0003"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for code, segments := range out {
		require.NotEmptyf(t, segments, "station %s", code)
		assert.True(t, segments[len(segments)-1].Date.Equal(now))
	}
}

func TestServiceHistoryBatchPropagatesErrors(t *testing.T) {
	now := day(2026, 8, 1)
	stations := &stubStations{stations: map[string]*types.Station{
		"CA-0001": {Code: "CA-0001", Saltwater: true},
	}}

	svc := newTestService(t, now, stations, &stubSamples{})
	_, err := svc.HistoryBatch(context.Background(), []string{"CA-0001", "MISSING"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISSING")
}
