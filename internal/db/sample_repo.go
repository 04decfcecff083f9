package db

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"clearwater/internal/types"
)

// SampleRepository provides data access for the samples table. Rows are
// keyed by (station_code, sample_date, analyte, method) so re-polling the
// same upstream page is idempotent.
type SampleRepository struct {
	db DBTX
}

// NewSampleRepository creates a new SampleRepository backed by the given
// database connection (pool or transaction).
func NewSampleRepository(db DBTX) *SampleRepository {
	return &SampleRepository{db: db}
}

// ListByStation returns all sample records for a station ordered by sample
// date ascending. A NULL result column maps to NaN, which the status engine
// treats as "no numeric result".
func (r *SampleRepository) ListByStation(ctx context.Context, stationCode string) ([]types.SampleRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT station_code, sample_date, analyte, unit, result, method, closure
		 FROM samples
		 WHERE station_code = $1
		 ORDER BY sample_date, analyte`, stationCode)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing samples", err)
	}
	defer rows.Close()

	var out []types.SampleRecord
	for rows.Next() {
		rec, err := scanSample(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning sample", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating samples", err)
	}
	return out, nil
}

func scanSample(row pgx.Row) (types.SampleRecord, error) {
	var rec types.SampleRecord
	var result *float64
	var method *string

	err := row.Scan(
		&rec.StationCode,
		&rec.Date,
		&rec.Analyte,
		&rec.Unit,
		&result,
		&method,
		&rec.Closure,
	)
	if err != nil {
		return types.SampleRecord{}, err
	}
	if result != nil {
		rec.Result = *result
	} else {
		rec.Result = math.NaN()
	}
	if method != nil {
		rec.Method = *method
	}
	rec.Date = rec.Date.UTC()
	return rec, nil
}

// InsertBatch writes a batch of sample records. Duplicate rows (same station,
// date, analyte and method) are skipped, so the poller can safely replay
// overlapping upstream pages. Returns the number of rows actually inserted.
func (r *SampleRepository) InsertBatch(ctx context.Context, records []types.SampleRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		var result *float64
		if rec.HasResult() {
			v := rec.Result
			result = &v
		}
		batch.Queue(
			`INSERT INTO samples (station_code, sample_date, analyte, unit, result, method, closure)
			 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
			 ON CONFLICT (station_code, sample_date, analyte, method) DO NOTHING`,
			rec.StationCode, rec.Date, rec.Analyte, rec.Unit, result, rec.Method, rec.Closure)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range records {
		tag, err := results.Exec()
		if err != nil {
			return inserted, types.NewAppError(types.ErrCodeInternalDB, "inserting samples", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// LatestSampleDate returns the newest sample date stored for a station, or
// nil when the station has no samples yet. The poller uses this as its
// incremental-fetch watermark.
func (r *SampleRepository) LatestSampleDate(ctx context.Context, stationCode string) (*time.Time, error) {
	var latest *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT max(sample_date) FROM samples WHERE station_code = $1`, stationCode).Scan(&latest)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "querying sample watermark", err)
	}
	if latest != nil {
		t := latest.UTC()
		latest = &t
	}
	return latest, nil
}
