package ga4

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/user/ga4-pipeline/internal/domain"
)

var (
	capitalRun   = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	lowerToUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// ToSnake converts an API field name to the canonical lowercase,
// underscore-separated form, e.g. "unifiedScreenName" becomes
// "unified_screen_name". Literal dots become underscores. Applying it to an
// already-canonical name is a no-op.
func ToSnake(name string) string {
	s := capitalRun.ReplaceAllString(name, "${1}_${2}")
	s = lowerToUpper.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(strings.ReplaceAll(s, ".", "_"))
}

// Normalize flattens a realtime report response into rows keyed by canonical
// field names, tagged with the report type and a single extraction timestamp.
// An empty response yields no rows. Missing dimension values become the
// "(not set)" sentinel; missing or unparseable metric values become 0.
func Normalize(resp domain.ReportResponse, reportType string, extractedAt time.Time) []domain.Row {
	if len(resp.Rows) == 0 {
		return nil
	}

	dimNames := make([]string, len(resp.DimensionHeaders))
	for i, h := range resp.DimensionHeaders {
		dimNames[i] = ToSnake(h)
	}
	metricNames := make([]string, len(resp.MetricHeaders))
	for i, h := range resp.MetricHeaders {
		metricNames[i] = ToSnake(h)
	}

	rows := make([]domain.Row, 0, len(resp.Rows))
	for _, raw := range resp.Rows {
		row := domain.Row{
			Dimensions:  make(map[string]string, len(dimNames)),
			Metrics:     make(map[string]float64, len(metricNames)),
			ReportType:  reportType,
			ExtractedAt: extractedAt,
		}
		for i, v := range raw.DimensionValues {
			if i >= len(dimNames) {
				break
			}
			if v == "" {
				v = domain.NotSet
			}
			row.Dimensions[dimNames[i]] = v
		}
		for i, v := range raw.MetricValues {
			if i >= len(metricNames) {
				break
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				f = 0
			}
			row.Metrics[metricNames[i]] = f
		}
		rows = append(rows, row)
	}
	return rows
}
