package ga4

import "github.com/user/ga4-pipeline/internal/domain"

// Converters from normalized rows to the typed record for each table.

func activeUsersRecords(rows []domain.Row) []domain.Record {
	out := make([]domain.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ActiveUsersByPage{
			UnifiedScreenName: r.Dimension("unified_screen_name"),
			Country:           r.Dimension("country"),
			ActiveUsers:       r.Metric("active_users"),
			ScreenPageViews:   r.Metric("screen_page_views"),
			ReportType:        r.ReportType,
			ExtractedAt:       r.ExtractedAt,
		})
	}
	return out
}

func eventsByPageRecords(rows []domain.Row) []domain.Record {
	out := make([]domain.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.EventsByPage{
			UnifiedScreenName: r.Dimension("unified_screen_name"),
			EventName:         r.Dimension("event_name"),
			EventCount:        r.Metric("event_count"),
			ReportType:        r.ReportType,
			ExtractedAt:       r.ExtractedAt,
		})
	}
	return out
}

func conversionRecords(rows []domain.Row) []domain.Record {
	out := make([]domain.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Conversion{
			EventName:   r.Dimension("event_name"),
			KeyEvents:   r.Metric("key_events"),
			ReportType:  r.ReportType,
			ExtractedAt: r.ExtractedAt,
		})
	}
	return out
}

// trafficSourceRecords remaps whichever dimensions the accepted fallback
// candidate supplied onto the canonical source/medium/campaign columns.
// Single-dimension fallbacks (deviceCategory, country) land in source.
func trafficSourceRecords(rows []domain.Row) []domain.Record {
	out := make([]domain.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.TrafficSource{
			Source:      firstDimension(r, "session_source", "device_category", "country"),
			Medium:      firstDimension(r, "session_medium"),
			Campaign:    firstDimension(r, "session_campaign"),
			ActiveUsers: r.Metric("active_users"),
			ReportType:  r.ReportType,
			ExtractedAt: r.ExtractedAt,
		})
	}
	return out
}

func firstDimension(r domain.Row, names ...string) string {
	for _, name := range names {
		if v, ok := r.Dimensions[name]; ok && v != "" {
			return v
		}
	}
	return domain.NotSet
}

func overviewRecords(rows []domain.Row) []domain.Record {
	out := make([]domain.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Overview{
			ActiveUsers:     r.Metric("active_users"),
			ScreenPageViews: r.Metric("screen_page_views"),
			KeyEvents:       r.Metric("key_events"),
			EventCount:      r.Metric("event_count"),
			ReportType:      r.ReportType,
			ExtractedAt:     r.ExtractedAt,
		})
	}
	return out
}
