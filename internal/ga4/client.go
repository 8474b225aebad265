package ga4

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/user/ga4-pipeline/internal/adapter/metrics"
	"github.com/user/ga4-pipeline/internal/domain"
)

const (
	defaultBaseURL  = "https://analyticsdata.googleapis.com"
	analyticsScope  = "https://www.googleapis.com/auth/analytics.readonly"
	lookbackMinutes = 5
)

// Options configures the realtime report client.
type Options struct {
	PropertyID      string
	CredentialsPath string
	// BaseURL overrides the public API endpoint, primarily for tests.
	BaseURL string
	// RequestsPerSec caps outbound API calls. Zero disables limiting.
	RequestsPerSec float64
	// HTTPClient overrides the credential-derived client when set; the
	// credentials file is then not loaded.
	HTTPClient *http.Client
}

// Client issues realtime report queries against the GA4 Data API and
// converts responses into typed records. Request failures are suppressed
// per report type: the failing query logs, counts a fetch failure, and
// returns an empty record set so sibling reports keep flowing.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	propertyID      string
	credentialsPath string
	limiter         *rate.Limiter
	logger          *slog.Logger
	metrics         *metrics.PipelineMetrics
	now             func() time.Time
}

// NewClient builds a report client. Unless an HTTP client override is given,
// the service account key file is loaded and must be valid; a missing or
// malformed file is a fatal construction error.
func NewClient(ctx context.Context, opts Options, logger *slog.Logger, m *metrics.PipelineMetrics) (*Client, error) {
	if opts.PropertyID == "" {
		return nil, fmt.Errorf("ga4: property ID is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		ts, err := tokenSourceFromFile(ctx, opts.CredentialsPath)
		if err != nil {
			return nil, err
		}
		httpClient = oauth2.NewClient(ctx, ts)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1)
	}

	return &Client{
		httpClient:      httpClient,
		baseURL:         baseURL,
		propertyID:      opts.PropertyID,
		credentialsPath: opts.CredentialsPath,
		limiter:         limiter,
		logger:          logger.With("component", "ga4_client"),
		metrics:         m,
		now:             time.Now,
	}, nil
}

func tokenSourceFromFile(ctx context.Context, path string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ga4: read credentials file: %w", err)
	}
	cfg, err := google.JWTConfigFromJSON(data, analyticsScope)
	if err != nil {
		return nil, fmt.Errorf("ga4: parse service account key: %w", err)
	}
	return cfg.TokenSource(ctx), nil
}

// VerifyCredentials checks that the service account key file still exists
// and parses as a usable key.
func (c *Client) VerifyCredentials(ctx context.Context) error {
	if c.credentialsPath == "" {
		return nil // test clients with an injected HTTP client
	}
	if _, err := tokenSourceFromFile(ctx, c.credentialsPath); err != nil {
		return err
	}
	return nil
}

// ActiveUsersByPage queries active users and page views broken down by page
// and country over the last five minutes.
func (c *Client) ActiveUsersByPage(ctx context.Context) []domain.Record {
	rows := c.fetch(ctx, domain.ReportActiveUsersByPage, domain.ReportRequest{
		Dimensions: []string{"unifiedScreenName", "country"},
		Metrics:    []string{"activeUsers", "screenPageViews"},
		MinutesAgo: lookbackMinutes,
	})
	return activeUsersRecords(rows)
}

// EventsByPage queries event counts broken down by page and event name.
func (c *Client) EventsByPage(ctx context.Context) []domain.Record {
	rows := c.fetch(ctx, domain.ReportEventsByPage, domain.ReportRequest{
		Dimensions: []string{"unifiedScreenName", "eventName"},
		Metrics:    []string{"eventCount"},
		MinutesAgo: lookbackMinutes,
	})
	return eventsByPageRecords(rows)
}

// Conversions queries key events by event name. The realtime API rejects
// eventCount paired with eventName, so keyEvents is the only usable metric
// here.
func (c *Client) Conversions(ctx context.Context) []domain.Record {
	rows := c.fetch(ctx, domain.ReportConversions, domain.ReportRequest{
		Dimensions: []string{"eventName"},
		Metrics:    []string{"keyEvents"},
		MinutesAgo: lookbackMinutes,
	})
	return conversionRecords(rows)
}

// trafficSourceCandidates is the fallback ladder for traffic-source
// dimensions, most to least specific. Realtime support for the session
// dimensions varies between properties.
var trafficSourceCandidates = [][]string{
	{"sessionSource", "sessionMedium", "sessionCampaign"},
	{"sessionSource", "sessionMedium"},
	{"deviceCategory"},
	{"country"},
}

// TrafficSources walks the candidate dimension sets and keeps the first one
// that succeeds with data, remapping whatever dimensions it supplied onto
// source/medium/campaign. Dimensions the accepted candidate did not supply
// get the "(not set)" sentinel.
func (c *Client) TrafficSources(ctx context.Context) []domain.Record {
	for _, dims := range trafficSourceCandidates {
		resp, err := c.runReport(ctx, domain.ReportRequest{
			Dimensions: dims,
			Metrics:    []string{"activeUsers"},
			MinutesAgo: lookbackMinutes,
		})
		if err != nil {
			c.logger.Warn("traffic sources candidate failed", "dimensions", dims, "error", err)
			c.metrics.ObserveFetchFailure(domain.ReportTrafficSources)
			continue
		}
		rows := Normalize(resp, domain.ReportTrafficSources, c.now())
		if len(rows) == 0 {
			continue
		}
		return trafficSourceRecords(rows)
	}
	c.logger.Info("no traffic source candidate returned data")
	return nil
}

// Overview queries the four headline metrics with no dimensions, normally a
// single aggregate row.
func (c *Client) Overview(ctx context.Context) []domain.Record {
	rows := c.fetch(ctx, domain.ReportOverview, domain.ReportRequest{
		Metrics:    []string{"activeUsers", "screenPageViews", "keyEvents", "eventCount"},
		MinutesAgo: lookbackMinutes,
	})
	return overviewRecords(rows)
}

func (c *Client) fetch(ctx context.Context, reportType string, req domain.ReportRequest) []domain.Row {
	resp, err := c.runReport(ctx, req)
	if err != nil {
		c.logger.Error("realtime report request failed", "report", reportType, "error", err)
		c.metrics.ObserveFetchFailure(reportType)
		return nil
	}
	rows := Normalize(resp, reportType, c.now())
	if len(rows) == 0 {
		c.logger.Info("no data returned", "report", reportType)
		return nil
	}
	c.logger.Debug("parsed report rows", "report", reportType, "count", len(rows))
	return rows
}

func (c *Client) runReport(ctx context.Context, req domain.ReportRequest) (domain.ReportResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.ReportResponse{}, err
	}

	body, err := json.Marshal(newWireRequest(req))
	if err != nil {
		return domain.ReportResponse{}, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/properties/%s:runRealtimeReport", c.baseURL, c.propertyID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.ReportResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.ReportResponse{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return domain.ReportResponse{}, fmt.Errorf("runRealtimeReport: status %d: %s", httpResp.StatusCode, bytes.TrimSpace(snippet))
	}

	var wire wireResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&wire); err != nil {
		return domain.ReportResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return wire.toDomain(), nil
}
