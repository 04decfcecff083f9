package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"clearwater/internal/types"
)

// StationRepository provides data access for the stations table. The
// is_saltwater column is populated by the offline geographic classification
// job; this repository only ever reads or upserts it verbatim.
type StationRepository struct {
	db DBTX
}

// NewStationRepository creates a new StationRepository backed by the given
// database connection (pool or transaction).
func NewStationRepository(db DBTX) *StationRepository {
	return &StationRepository{db: db}
}

const stationColumns = `s.code, s.name, s.lat, s.lon, s.county, s.is_saltwater,
	s.last_sample_at, s.created_at, s.updated_at`

// scanStation scans a single station row. The columns must match the order
// defined in stationColumns.
func scanStation(row pgx.Row) (*types.Station, error) {
	var st types.Station
	var county *string

	err := row.Scan(
		&st.Code,
		&st.Name,
		&st.Lat,
		&st.Lon,
		&county,
		&st.Saltwater,
		&st.LastSample,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if county != nil {
		st.County = *county
	}
	return &st, nil
}

// GetStation fetches one station by code. A missing station maps to
// ErrCodeNotFoundStation rather than a raw pgx error.
func (r *StationRepository) GetStation(ctx context.Context, code string) (*types.Station, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+stationColumns+` FROM stations s WHERE s.code = $1`, code)

	st, err := scanStation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundStation,
				fmt.Sprintf("station %s not found", code), nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "fetching station", err)
	}
	return st, nil
}

// ListStations returns all stations ordered by code.
func (r *StationRepository) ListStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+stationColumns+` FROM stations s ORDER BY s.code`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing stations", err)
	}
	defer rows.Close()

	var out []types.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning station", err)
		}
		out = append(out, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating stations", err)
	}
	return out, nil
}

// UpsertStation inserts or refreshes a station from upstream metadata.
// The is_saltwater flag is written as supplied; reclassification happens
// upstream, not here.
func (r *StationRepository) UpsertStation(ctx context.Context, st *types.Station) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO stations (code, name, lat, lon, county, is_saltwater, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, now(), now())
		 ON CONFLICT (code) DO UPDATE
		   SET name = EXCLUDED.name,
		       lat = EXCLUDED.lat,
		       lon = EXCLUDED.lon,
		       county = EXCLUDED.county,
		       is_saltwater = EXCLUDED.is_saltwater,
		       updated_at = now()`,
		st.Code, st.Name, st.Lat, st.Lon, st.County, st.Saltwater)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "upserting station", err)
	}
	return nil
}

// SetLastSample advances the station's sample watermark. The watermark is
// monotonic: an older timestamp never overwrites a newer one.
func (r *StationRepository) SetLastSample(ctx context.Context, code string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE stations
		 SET last_sample_at = GREATEST(COALESCE(last_sample_at, $2), $2),
		     updated_at = now()
		 WHERE code = $1`,
		code, at)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "updating sample watermark", err)
	}
	return nil
}
