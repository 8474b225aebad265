package domain

import "time"

// Report type tags. They double as the names of the managed tables the
// pipeline loads into.
const (
	ReportActiveUsersByPage = "active_users_by_page"
	ReportEventsByPage      = "events_by_page"
	ReportConversions       = "conversions"
	ReportTrafficSources    = "traffic_sources"
	ReportOverview          = "overview"
)

// ManagedTables lists every table whose schema, retention, and stats are
// owned by the record store.
var ManagedTables = []string{
	ReportActiveUsersByPage,
	ReportEventsByPage,
	ReportConversions,
	ReportTrafficSources,
	ReportOverview,
}

// NotSet is the sentinel the analytics API uses for an absent dimension
// value. Dimension fields are filled with it rather than left empty.
const NotSet = "(not set)"

// ReportRequest describes a single realtime report query: ordered dimension
// and metric names over a lookback window ending now.
type ReportRequest struct {
	Dimensions []string
	Metrics    []string
	MinutesAgo int
}

// ReportResponse is the generic shape every realtime report comes back in:
// ordered header names and rows of parallel dimension/metric values.
type ReportResponse struct {
	DimensionHeaders []string
	MetricHeaders    []string
	Rows             []ReportRow
}

// ReportRow holds one row of raw values, positionally aligned with the
// response headers. Metric values arrive as strings on the wire.
type ReportRow struct {
	DimensionValues []string
	MetricValues    []string
}

// Row is a normalized report row: canonical snake_case field names mapped to
// their values, tagged with the report type and a single capture timestamp
// shared by every row of the same response. Rows exist only between
// normalization and conversion into the typed record for their table.
type Row struct {
	Dimensions  map[string]string
	Metrics     map[string]float64
	ReportType  string
	ExtractedAt time.Time
}

// Dimension returns the named dimension value, or the NotSet sentinel when
// the response did not supply it.
func (r Row) Dimension(name string) string {
	if v, ok := r.Dimensions[name]; ok && v != "" {
		return v
	}
	return NotSet
}

// Metric returns the named metric value, or 0 when the response did not
// supply it.
func (r Row) Metric(name string) float64 {
	return r.Metrics[name]
}
