// Package retrieval exposes the per-endpoint read operations: fetch a raw
// NWIS document, run it through the matching importer, and classify the
// result. The hard logic lives in the rdb and waterml packages; everything
// here is call-and-assemble.
package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/adapter/nwis"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/domain"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/observability"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/rdb"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/waterml"
)

// Result is one tabular read: the parsed table and its classification.
// A Malformed response has already been replaced with an empty table.
type Result struct {
	Table    *domain.Table
	Validity domain.Validity
}

// Period bounds a read by date. Zero values mean the service default.
type Period struct {
	Begin string // yyyy-mm-dd
	End   string // yyyy-mm-dd
}

// Reader runs read operations against a document fetcher.
type Reader struct {
	fetcher  nwis.Fetcher
	importer *waterml.Importer
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates a Reader.
func New(fetcher nwis.Fetcher, metrics *observability.Metrics, logger *slog.Logger) *Reader {
	return &Reader{
		fetcher:  fetcher,
		importer: waterml.NewImporter(logger),
		metrics:  metrics,
		logger:   logger,
	}
}

// ReadDailyValues reads daily statistical values for one site and parameter.
func (r *Reader) ReadDailyValues(ctx context.Context, site, parameterCode, statCode string, p Period) (Result, error) {
	return r.readRDB(ctx, nwis.Request{
		Service:       nwis.DailyValues,
		Site:          site,
		ParameterCode: parameterCode,
		StatCode:      statCode,
		Begin:         p.Begin,
		End:           p.End,
	}, true)
}

// ReadSiteInfo reads the expanded site inventory record for one site.
func (r *Reader) ReadSiteInfo(ctx context.Context, site string) (Result, error) {
	return r.readRDB(ctx, nwis.Request{Service: nwis.SiteInventory, Site: site}, true)
}

// ReadQualityData reads water-quality sample results for one site.
func (r *Reader) ReadQualityData(ctx context.Context, site, parameterCode string, p Period) (Result, error) {
	return r.readRDB(ctx, nwis.Request{
		Service:       nwis.WaterQuality,
		Site:          site,
		ParameterCode: parameterCode,
		Begin:         p.Begin,
		End:           p.End,
	}, true)
}

// ReadRating reads the expanded rating table for one site. The comment
// block matters here: the rating expansion coefficients are embedded in
// the comments, see RatingExpansion.
func (r *Reader) ReadRating(ctx context.Context, site string) (Result, error) {
	return r.readRDB(ctx, nwis.Request{Service: nwis.RatingCurve, Site: site}, true)
}

// ReadMeasurements reads field discharge measurements for one site.
func (r *Reader) ReadMeasurements(ctx context.Context, site string, p Period) (Result, error) {
	return r.readRDB(ctx, nwis.Request{
		Service: nwis.Measurements,
		Site:    site,
		Begin:   p.Begin,
		End:     p.End,
	}, true)
}

// ReadPeakFlow reads annual peak streamflow records for one site.
func (r *Reader) ReadPeakFlow(ctx context.Context, site string, p Period) (Result, error) {
	return r.readRDB(ctx, nwis.Request{
		Service: nwis.PeakFlow,
		Site:    site,
		Begin:   p.Begin,
		End:     p.End,
	}, true)
}

// ReadParameterCodes reads the code-to-description lookup for a parameter.
func (r *Reader) ReadParameterCodes(ctx context.Context, parameterCode string) (Result, error) {
	return r.readRDB(ctx, nwis.Request{Service: nwis.ParameterCodes, ParameterCode: parameterCode}, true)
}

// ReadTimeSeries reads instantaneous values as WaterML 2.0 points for one
// site and parameter. Zero points is not an error; it mirrors an Empty
// classification and is logged as such.
func (r *Reader) ReadTimeSeries(ctx context.Context, site, parameterCode string, p Period) ([]domain.Point, error) {
	req := nwis.Request{
		Service:       nwis.InstantaneousValues,
		Site:          site,
		ParameterCode: parameterCode,
		Begin:         p.Begin,
		End:           p.End,
	}

	raw, err := r.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	points, err := r.importer.Parse(raw)
	if err != nil {
		r.metrics.ParseFailures.WithLabelValues("waterml").Inc()
		return nil, err
	}

	if len(points) == 0 {
		r.metrics.ValidityOutcomes.WithLabelValues(domain.Empty.String()).Inc()
		r.logger.Warn("no time-series points returned",
			"site", site, "parameter_code", parameterCode)
	} else {
		r.metrics.ValidityOutcomes.WithLabelValues(domain.Valid.String()).Inc()
	}
	r.metrics.PointsProduced.Add(float64(len(points)))

	return points, nil
}

// ReadUnitValues is the historical name for instantaneous values. It is
// kept for callers that still speak in unit-value terms.
func (r *Reader) ReadUnitValues(ctx context.Context, site, parameterCode string, p Period) ([]domain.Point, error) {
	return r.ReadTimeSeries(ctx, site, parameterCode, p)
}

// Select trims the result's table to the named columns, in the order given.
// Columns absent from the table are skipped, so callers can name optional
// columns without checking first.
func (res Result) Select(names ...string) *domain.Table {
	out := &domain.Table{Comments: res.Table.Comments}
	for _, name := range names {
		if _, ok := res.Table.Column(name); ok {
			out.Columns = append(out.Columns, name)
		}
	}
	out.Rows = make([]map[string]domain.Value, len(res.Table.Rows))
	for i, row := range res.Table.Rows {
		trimmed := make(map[string]domain.Value, len(out.Columns))
		for _, name := range out.Columns {
			trimmed[name] = row[name]
		}
		out.Rows[i] = trimmed
	}
	return out
}

// readRDB fetches, parses, coerces, and classifies one RDB document.
func (r *Reader) readRDB(ctx context.Context, req nwis.Request, coerce bool) (Result, error) {
	raw, err := r.fetch(ctx, req)
	if err != nil {
		return Result{}, err
	}

	table, err := rdb.Parse(raw)
	if err != nil {
		r.metrics.ParseFailures.WithLabelValues("rdb").Inc()
		return Result{}, err
	}

	table = rdb.Coerce(table, coerce)
	r.metrics.CoercionGaps.Add(float64(rdb.CoercionGaps(table)))

	table, validity := domain.ReplaceIfMalformed(table)
	r.metrics.ValidityOutcomes.WithLabelValues(validity.String()).Inc()

	switch validity {
	case domain.Empty:
		r.logger.Warn("no data returned", "service", string(req.Service), "site", req.Site)
	case domain.Malformed:
		r.logger.Warn("response is not valid data, likely an error page",
			"service", string(req.Service), "site", req.Site)
	}

	return Result{Table: table, Validity: validity}, nil
}

func (r *Reader) fetch(ctx context.Context, req nwis.Request) ([]byte, error) {
	start := time.Now()
	raw, err := r.fetcher.Fetch(ctx, req)
	r.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.metrics.DocumentsFetched.WithLabelValues(string(req.Service), outcome).Inc()
	return raw, err
}
