package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"clearwater/internal/types"
)

// stubStationStore is an in-memory StationStore.
type stubStationStore struct {
	mu         sync.Mutex
	stations   []types.Station
	listErr    error
	watermarks map[string]time.Time
}

func (s *stubStationStore) ListStations(ctx context.Context) ([]types.Station, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.stations, nil
}

func (s *stubStationStore) SetLastSample(ctx context.Context, code string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watermarks == nil {
		s.watermarks = make(map[string]time.Time)
	}
	s.watermarks[code] = at
	return nil
}

// stubSampleStore records inserted batches.
type stubSampleStore struct {
	mu       sync.Mutex
	latest   map[string]time.Time
	inserted map[string][]types.SampleRecord
}

func (s *stubSampleStore) InsertBatch(ctx context.Context, records []types.SampleRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inserted == nil {
		s.inserted = make(map[string][]types.SampleRecord)
	}
	for _, rec := range records {
		s.inserted[rec.StationCode] = append(s.inserted[rec.StationCode], rec)
	}
	return len(records), nil
}

func (s *stubSampleStore) LatestSampleDate(ctx context.Context, stationCode string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.latest[stationCode]; ok {
		return &t, nil
	}
	return nil, nil
}

// stubFetcher returns canned records per station and tracks the since
// argument it was called with.
type stubFetcher struct {
	mu      sync.Mutex
	records map[string][]types.SampleRecord
	errs    map[string]error
	since   map[string]*time.Time
}

func (f *stubFetcher) FetchSamples(ctx context.Context, stationCode string, since *time.Time) ([]types.SampleRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.since == nil {
		f.since = make(map[string]*time.Time)
	}
	f.since[stationCode] = since
	if err := f.errs[stationCode]; err != nil {
		return nil, err
	}
	return f.records[stationCode], nil
}

func testStation(code string) types.Station {
	return types.Station{Code: code, Name: "Station " + code}
}

func testRecord(code string, date time.Time, result float64) types.SampleRecord {
	return types.SampleRecord{
		StationCode: code,
		Date:        date,
		Analyte:     "Enterococcus",
		Unit:        "MPN/100 mL",
		Result:      result,
	}
}

func newTestPoller(stations *stubStationStore, samples *stubSampleStore, fetcher *stubFetcher) *SamplePoller {
	return NewSamplePoller(SamplePollerConfig{
		Stations:    stations,
		Samples:     samples,
		Fetcher:     fetcher,
		Concurrency: 4,
		Logger:      slog.New(slog.DiscardHandler),
	})
}

func TestPoll_InsertsAndAdvancesWatermark(t *testing.T) {
	day1 := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 8, 0, 0, 0, 0, time.UTC)

	stations := &stubStationStore{stations: []types.Station{testStation("BEA-101")}}
	samples := &stubSampleStore{}
	fetcher := &stubFetcher{records: map[string][]types.SampleRecord{
		"BEA-101": {
			testRecord("BEA-101", day2, 20),
			testRecord("BEA-101", day1, 10),
		},
	}}

	poller := newTestPoller(stations, samples, fetcher)
	stats, err := poller.Poll(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if stats.Stations != 1 || stats.Inserted != 2 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.RunID == "" {
		t.Error("expected a run ID")
	}
	if len(samples.inserted["BEA-101"]) != 2 {
		t.Errorf("expected 2 inserted records, got %d", len(samples.inserted["BEA-101"]))
	}
	// The watermark must advance to the newest record date regardless of
	// fetch order.
	if got := stations.watermarks["BEA-101"]; !got.Equal(day2) {
		t.Errorf("expected watermark %v, got %v", day2, got)
	}
}

func TestPoll_PassesStoredWatermarkToFetcher(t *testing.T) {
	watermark := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	stations := &stubStationStore{stations: []types.Station{testStation("BEA-101")}}
	samples := &stubSampleStore{latest: map[string]time.Time{"BEA-101": watermark}}
	fetcher := &stubFetcher{}

	poller := newTestPoller(stations, samples, fetcher)
	if _, err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	got := fetcher.since["BEA-101"]
	if got == nil || !got.Equal(watermark) {
		t.Errorf("expected since %v, got %v", watermark, got)
	}
}

func TestPoll_NilWatermarkFetchesEverything(t *testing.T) {
	stations := &stubStationStore{stations: []types.Station{testStation("BEA-101")}}
	samples := &stubSampleStore{}
	fetcher := &stubFetcher{}

	poller := newTestPoller(stations, samples, fetcher)
	if _, err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if got, ok := fetcher.since["BEA-101"]; !ok || got != nil {
		t.Errorf("expected nil since for new station, got %v", got)
	}
}

func TestPoll_StationFailureIsIsolated(t *testing.T) {
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	stations := &stubStationStore{stations: []types.Station{
		testStation("BEA-101"),
		testStation("BEA-202"),
	}}
	samples := &stubSampleStore{}
	fetcher := &stubFetcher{
		records: map[string][]types.SampleRecord{
			"BEA-202": {testRecord("BEA-202", day, 15)},
		},
		errs: map[string]error{
			"BEA-101": errors.New("portal down"),
		},
	}

	poller := newTestPoller(stations, samples, fetcher)
	stats, err := poller.Poll(context.Background())
	if err != nil {
		t.Fatalf("one bad station must not fail the cycle, got: %v", err)
	}

	if stats.Failed != 1 {
		t.Errorf("expected 1 failed station, got %d", stats.Failed)
	}
	if stats.Inserted != 1 {
		t.Errorf("expected the healthy station's record inserted, got %d", stats.Inserted)
	}
}

func TestPoll_ListStationsFailureIsFatal(t *testing.T) {
	stations := &stubStationStore{listErr: errors.New("database down")}
	poller := newTestPoller(stations, &stubSampleStore{}, &stubFetcher{})

	if _, err := poller.Poll(context.Background()); err == nil {
		t.Fatal("expected error when the station list cannot be loaded")
	}
}

func TestPoll_NoRecordsNoWatermarkUpdate(t *testing.T) {
	stations := &stubStationStore{stations: []types.Station{testStation("BEA-101")}}
	samples := &stubSampleStore{}
	fetcher := &stubFetcher{}

	poller := newTestPoller(stations, samples, fetcher)
	stats, err := poller.Poll(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if stats.Inserted != 0 {
		t.Errorf("expected 0 inserted, got %d", stats.Inserted)
	}
	if _, ok := stations.watermarks["BEA-101"]; ok {
		t.Error("watermark must not move when nothing was fetched")
	}
}
