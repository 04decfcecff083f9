package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"clearwater/internal/config"
	"clearwater/internal/types"
)

// PortalClient fetches beach sampling results from a CKAN open-data portal
// (datastore_search action). The portal serves rows as loosely typed JSON;
// this client normalizes them into SampleRecords and owns all the parsing
// quirks so nothing upstream of it ever sees a raw portal row.
type PortalClient struct {
	base       *BaseClient
	baseURL    string
	resourceID string
	pageSize   int
	logger     *slog.Logger
}

// NewPortalClient creates a PortalClient from portal configuration.
func NewPortalClient(cfg config.PortalConfig, logger *slog.Logger, opts ...BaseClientOption) *PortalClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &PortalClient{
		base:       NewBaseClient(httpClient, "portal", DefaultRetryPolicy(), cfg.UserAgent, opts...),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		resourceID: cfg.ResourceID,
		pageSize:   cfg.PageSize,
		logger:     logger,
	}
}

// portalResponse is the CKAN action envelope.
type portalResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Total   int         `json:"total"`
		Records []portalRow `json:"records"`
	} `json:"result"`
}

// portalRow mirrors the datastore columns we consume. Result and Closure are
// RawMessage because the portal serves them inconsistently as numbers,
// strings, booleans, or null depending on the source dataset.
type portalRow struct {
	StationCode string          `json:"StationCode"`
	SampleDate  string          `json:"SampleDate"`
	Analyte     string          `json:"Analyte"`
	Unit        string          `json:"Unit"`
	Result      json.RawMessage `json:"Result"`
	Method      string          `json:"MethodName"`
	Closure     json.RawMessage `json:"Closure"`
}

// FetchSamples returns all sample records for one station, newest data
// included, dated on or after since (nil means everything). The datastore
// filter language only supports equality, so the date cut is applied
// client-side after each page.
func (c *PortalClient) FetchSamples(ctx context.Context, stationCode string, since *time.Time) ([]types.SampleRecord, error) {
	filters, err := json.Marshal(map[string]string{"StationCode": stationCode})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "encoding portal filters", err)
	}

	var out []types.SampleRecord
	offset := 0
	for {
		page, total, err := c.fetchPage(ctx, string(filters), offset)
		if err != nil {
			return nil, err
		}

		for _, row := range page {
			rec, ok := c.mapRow(row)
			if !ok {
				continue
			}
			if since != nil && rec.Date.Before(*since) {
				continue
			}
			out = append(out, rec)
		}

		offset += c.pageSize
		if offset >= total || len(page) == 0 {
			break
		}
	}

	c.logger.Debug("fetched portal samples",
		slog.String("station_code", stationCode),
		slog.Int("records", len(out)))
	return out, nil
}

func (c *PortalClient) fetchPage(ctx context.Context, filters string, offset int) ([]portalRow, int, error) {
	q := url.Values{}
	q.Set("resource_id", c.resourceID)
	q.Set("filters", filters)
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("sort", "SampleDate asc")

	reqURL := c.baseURL + "/datastore_search?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, types.NewAppError(types.ErrCodeInternalUnexpected, "building portal request", err)
	}
	// Setting Accept-Encoding explicitly disables the transport's transparent
	// decompression, so gzip bodies are decoded below.
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, types.NewAppError(types.ErrCodeUpstreamPortal,
			fmt.Sprintf("portal returned %d", resp.StatusCode), nil)
	}

	body := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, 0, types.NewAppError(types.ErrCodeUpstreamBadPayload, "opening gzip body", err)
		}
		defer gz.Close()
		body = gz
	}

	var parsed portalResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, 0, types.NewAppError(types.ErrCodeUpstreamBadPayload, "decoding portal response", err)
	}
	if !parsed.Success {
		return nil, 0, types.NewAppError(types.ErrCodeUpstreamPortal, "portal reported failure", nil)
	}
	return parsed.Result.Records, parsed.Result.Total, nil
}

// mapRow converts one portal row into a SampleRecord. Rows without a station
// code or a parseable date are dropped; a missing or non-numeric result is
// kept as NaN because closure advisories arrive without a measurement.
func (c *PortalClient) mapRow(row portalRow) (types.SampleRecord, bool) {
	if row.StationCode == "" {
		return types.SampleRecord{}, false
	}
	date, ok := parsePortalDate(row.SampleDate)
	if !ok {
		c.logger.Warn("skipping portal row with unparseable date",
			slog.String("station_code", row.StationCode),
			slog.String("sample_date", row.SampleDate))
		return types.SampleRecord{}, false
	}

	return types.SampleRecord{
		StationCode: row.StationCode,
		Date:        date,
		Analyte:     strings.TrimSpace(row.Analyte),
		Unit:        strings.TrimSpace(row.Unit),
		Result:      parsePortalNumber(row.Result),
		Method:      strings.TrimSpace(row.Method),
		Closure:     parsePortalBool(row.Closure),
	}, true
}

var portalDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// parsePortalDate parses a portal timestamp and truncates it to a UTC
// calendar day. Time-of-day is never meaningful for sampling results.
func parsePortalDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range portalDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parsePortalNumber accepts a JSON number, a numeric string, or null.
// Anything else becomes NaN.
func parsePortalNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return math.NaN()
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

// parsePortalBool accepts a JSON bool, the strings "true"/"True"/"1", or a
// nonzero number. Everything else is false.
func parsePortalBool(raw json.RawMessage) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "t", "yes", "y", "1":
			return true
		}
		return false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f != 0
	}
	return false
}
