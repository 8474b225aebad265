package ga4

import (
	"testing"
	"time"

	"github.com/user/ga4-pipeline/internal/domain"
)

func TestToSnake(t *testing.T) {
	cases := map[string]string{
		"unifiedScreenName": "unified_screen_name",
		"eventName":         "event_name",
		"screenPageViews":   "screen_page_views",
		"activeUsers":       "active_users",
		"keyEvents":         "key_events",
		"eventCount":        "event_count",
		"sessionSource":     "session_source",
		"deviceCategory":    "device_category",
		"country":           "country",
		"a.b":               "a_b",
	}
	for in, want := range cases {
		if got := ToSnake(in); got != want {
			t.Errorf("ToSnake(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToSnakeIdempotent(t *testing.T) {
	inputs := []string{"unifiedScreenName", "screenPageViews", "already_snake", "country"}
	for _, in := range inputs {
		once := ToSnake(in)
		if twice := ToSnake(once); twice != once {
			t.Errorf("ToSnake not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestNormalize(t *testing.T) {
	extractedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Synthetic Active Users Response", func(t *testing.T) {
		resp := domain.ReportResponse{
			DimensionHeaders: []string{"unifiedScreenName", "country"},
			MetricHeaders:    []string{"activeUsers", "screenPageViews"},
			Rows: []domain.ReportRow{
				{DimensionValues: []string{"/home", "US"}, MetricValues: []string{"12", "340"}},
			},
		}

		rows := Normalize(resp, domain.ReportActiveUsersByPage, extractedAt)
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}

		row := rows[0]
		if got := row.Dimension("unified_screen_name"); got != "/home" {
			t.Errorf("unified_screen_name = %q, want %q", got, "/home")
		}
		if got := row.Dimension("country"); got != "US" {
			t.Errorf("country = %q, want %q", got, "US")
		}
		if got := row.Metric("active_users"); got != 12.0 {
			t.Errorf("active_users = %v, want 12.0", got)
		}
		if got := row.Metric("screen_page_views"); got != 340.0 {
			t.Errorf("screen_page_views = %v, want 340.0", got)
		}
		if row.ReportType != domain.ReportActiveUsersByPage {
			t.Errorf("report type = %q, want %q", row.ReportType, domain.ReportActiveUsersByPage)
		}
		if !row.ExtractedAt.Equal(extractedAt) {
			t.Errorf("extracted_at = %v, want %v", row.ExtractedAt, extractedAt)
		}
	})

	t.Run("Row Count Matches", func(t *testing.T) {
		resp := domain.ReportResponse{
			DimensionHeaders: []string{"eventName"},
			MetricHeaders:    []string{"keyEvents"},
			Rows: []domain.ReportRow{
				{DimensionValues: []string{"purchase"}, MetricValues: []string{"2"}},
				{DimensionValues: []string{"sign_up"}, MetricValues: []string{"5"}},
				{DimensionValues: []string{"login"}, MetricValues: []string{"9"}},
			},
		}
		rows := Normalize(resp, domain.ReportConversions, extractedAt)
		if len(rows) != len(resp.Rows) {
			t.Fatalf("expected %d rows, got %d", len(resp.Rows), len(rows))
		}
		for _, row := range rows {
			if row.ReportType == "" {
				t.Error("row missing report type")
			}
			if row.ExtractedAt.IsZero() {
				t.Error("row missing extraction timestamp")
			}
		}
	})

	t.Run("Empty Response", func(t *testing.T) {
		resp := domain.ReportResponse{
			DimensionHeaders: []string{"country"},
			MetricHeaders:    []string{"activeUsers"},
		}
		if rows := Normalize(resp, domain.ReportTrafficSources, extractedAt); len(rows) != 0 {
			t.Errorf("expected no rows for empty response, got %d", len(rows))
		}
	})

	t.Run("Missing Values", func(t *testing.T) {
		resp := domain.ReportResponse{
			DimensionHeaders: []string{"unifiedScreenName", "country"},
			MetricHeaders:    []string{"activeUsers"},
			Rows: []domain.ReportRow{
				{DimensionValues: []string{"/home", ""}, MetricValues: []string{"not-a-number"}},
			},
		}
		rows := Normalize(resp, domain.ReportActiveUsersByPage, extractedAt)
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		if got := rows[0].Dimension("country"); got != domain.NotSet {
			t.Errorf("empty dimension = %q, want %q", got, domain.NotSet)
		}
		if got := rows[0].Metric("active_users"); got != 0.0 {
			t.Errorf("unparseable metric = %v, want 0.0", got)
		}
	})
}
