// Package nwis fetches raw documents from the NWIS web services. It owns
// URL construction and transport only; parsing happens in the rdb and
// waterml packages on the fully-buffered body.
package nwis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Service identifies one NWIS web endpoint.
type Service string

const (
	DailyValues         Service = "dv"
	InstantaneousValues Service = "iv"
	SiteInventory       Service = "site"
	WaterQuality        Service = "qwdata"
	RatingCurve         Service = "ratings"
	Measurements        Service = "measurements"
	PeakFlow            Service = "peak"
	ParameterCodes      Service = "pmcodes"
)

// Kind reports the document format the service responds with.
func (s Service) Kind() string {
	if s == InstantaneousValues {
		return "waterml"
	}
	return "rdb"
}

// cacheable reports whether responses change slowly enough to cache:
// lookups and rating tables, never time-series data.
func (s Service) cacheable() bool {
	switch s {
	case SiteInventory, ParameterCodes, RatingCurve:
		return true
	}
	return false
}

// Request carries the query parameters for one document fetch.
type Request struct {
	Service       Service
	Site          string
	ParameterCode string
	StatCode      string
	Begin         string // yyyy-mm-dd, optional
	End           string // yyyy-mm-dd, optional
}

// Fetcher fetches one raw NWIS document.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// Client implements Fetcher against the live NWIS web services.
type Client struct {
	waterServicesURL string
	waterDataURL     string
	httpClient       *http.Client
	logger           *slog.Logger
}

// NewClient creates an NWIS client. servicesURL covers the
// waterservices.usgs.gov endpoints (dv, iv, site); dataURL covers the
// nwis.waterdata.usgs.gov endpoints (qwdata, ratings, measurements, peak,
// pmcodes).
func NewClient(servicesURL, dataURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		waterServicesURL: servicesURL,
		waterDataURL:     dataURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch retrieves the fully-buffered document for req. The body is returned
// as-is: NWIS serves error pages with a 200 status, so content-level
// validation is the parser's and classifier's job, not the transport's.
func (c *Client) Fetch(ctx context.Context, req Request) ([]byte, error) {
	fullURL, err := c.url(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s fetch: %w", req.Service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("nwis %s: status %d: %s", req.Service, resp.StatusCode, body)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.Service, err)
	}

	c.logger.Debug("fetched document", "service", string(req.Service), "site", req.Site, "bytes", len(raw))
	return raw, nil
}

// url assembles the endpoint URL for one request.
func (c *Client) url(req Request) (string, error) {
	params := url.Values{}

	switch req.Service {
	case DailyValues:
		params.Set("format", "rdb,1.0")
		params.Set("sites", req.Site)
		setIfPresent(params, "parameterCd", req.ParameterCode)
		setIfPresent(params, "statCd", req.StatCode)
		setIfPresent(params, "startDT", req.Begin)
		setIfPresent(params, "endDT", req.End)
		return c.waterServicesURL + "/nwis/dv/?" + params.Encode(), nil

	case InstantaneousValues:
		params.Set("format", "waterml,2.0")
		params.Set("sites", req.Site)
		setIfPresent(params, "parameterCd", req.ParameterCode)
		setIfPresent(params, "startDT", req.Begin)
		setIfPresent(params, "endDT", req.End)
		return c.waterServicesURL + "/nwis/iv/?" + params.Encode(), nil

	case SiteInventory:
		params.Set("format", "rdb")
		params.Set("sites", req.Site)
		params.Set("siteOutput", "expanded")
		return c.waterServicesURL + "/nwis/site/?" + params.Encode(), nil

	case WaterQuality:
		params.Set("format", "rdb")
		params.Set("site_no", req.Site)
		params.Set("rdb_qw_attributes", "expanded")
		setIfPresent(params, "parameter_cd", req.ParameterCode)
		setIfPresent(params, "begin_date", req.Begin)
		setIfPresent(params, "end_date", req.End)
		return c.waterDataURL + "/nwis/qwdata?" + params.Encode(), nil

	case RatingCurve:
		params.Set("site_no", req.Site)
		params.Set("file_type", "exsa")
		return c.waterDataURL + "/nwisweb/get_ratings?" + params.Encode(), nil

	case Measurements:
		params.Set("format", "rdb_expanded")
		params.Set("site_no", req.Site)
		setIfPresent(params, "begin_date", req.Begin)
		setIfPresent(params, "end_date", req.End)
		return c.waterDataURL + "/nwis/measurements?" + params.Encode(), nil

	case PeakFlow:
		params.Set("format", "rdb")
		params.Set("site_no", req.Site)
		setIfPresent(params, "begin_date", req.Begin)
		setIfPresent(params, "end_date", req.End)
		return c.waterDataURL + "/nwis/peak?" + params.Encode(), nil

	case ParameterCodes:
		params.Set("fmt", "rdb")
		params.Set("parm_nm_cd", req.ParameterCode)
		return c.waterDataURL + "/nwis/pmcodes/pmcodes?" + params.Encode(), nil

	default:
		return "", fmt.Errorf("unknown nwis service %q", req.Service)
	}
}

func setIfPresent(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}
