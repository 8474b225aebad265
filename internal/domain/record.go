package domain

import "time"

// Record is a typed, append-only fact destined for one of the managed
// tables. Columns and Values are positionally aligned and exclude the
// auto-assigned surrogate key and the derived created_date column.
type Record interface {
	Table() string
	Columns() []string
	Values() []any
}

// ActiveUsersByPage is one row of the active-users-by-page realtime report.
type ActiveUsersByPage struct {
	UnifiedScreenName string
	Country           string
	ActiveUsers       float64
	ScreenPageViews   float64
	ReportType        string
	ExtractedAt       time.Time
}

func (r ActiveUsersByPage) Table() string { return ReportActiveUsersByPage }

func (r ActiveUsersByPage) Columns() []string {
	return []string{"unified_screen_name", "country", "active_users", "screen_page_views", "report_type", "extracted_at"}
}

func (r ActiveUsersByPage) Values() []any {
	return []any{r.UnifiedScreenName, r.Country, r.ActiveUsers, r.ScreenPageViews, r.ReportType, r.ExtractedAt}
}

// EventsByPage is one row of the event-counts-by-page realtime report.
type EventsByPage struct {
	UnifiedScreenName string
	EventName         string
	EventCount        float64
	ReportType        string
	ExtractedAt       time.Time
}

func (r EventsByPage) Table() string { return ReportEventsByPage }

func (r EventsByPage) Columns() []string {
	return []string{"unified_screen_name", "event_name", "event_count", "report_type", "extracted_at"}
}

func (r EventsByPage) Values() []any {
	return []any{r.UnifiedScreenName, r.EventName, r.EventCount, r.ReportType, r.ExtractedAt}
}

// Conversion is one row of the key-events realtime report.
type Conversion struct {
	EventName   string
	KeyEvents   float64
	ReportType  string
	ExtractedAt time.Time
}

func (r Conversion) Table() string { return ReportConversions }

func (r Conversion) Columns() []string {
	return []string{"event_name", "key_events", "report_type", "extracted_at"}
}

func (r Conversion) Values() []any {
	return []any{r.EventName, r.KeyEvents, r.ReportType, r.ExtractedAt}
}

// TrafficSource is one row of the traffic-sources realtime report. The three
// dimension fields are always populated; dimensions the accepted fallback
// candidate did not supply hold the NotSet sentinel.
type TrafficSource struct {
	Source      string
	Medium      string
	Campaign    string
	ActiveUsers float64
	ReportType  string
	ExtractedAt time.Time
}

func (r TrafficSource) Table() string { return ReportTrafficSources }

func (r TrafficSource) Columns() []string {
	return []string{"source", "medium", "campaign", "active_users", "report_type", "extracted_at"}
}

func (r TrafficSource) Values() []any {
	return []any{r.Source, r.Medium, r.Campaign, r.ActiveUsers, r.ReportType, r.ExtractedAt}
}

// Overview is the single aggregate row of the overview realtime report.
type Overview struct {
	ActiveUsers     float64
	ScreenPageViews float64
	KeyEvents       float64
	EventCount      float64
	ReportType      string
	ExtractedAt     time.Time
}

func (r Overview) Table() string { return ReportOverview }

func (r Overview) Columns() []string {
	return []string{"active_users", "screen_page_views", "key_events", "event_count", "report_type", "extracted_at"}
}

func (r Overview) Values() []any {
	return []any{r.ActiveUsers, r.ScreenPageViews, r.KeyEvents, r.EventCount, r.ReportType, r.ExtractedAt}
}
