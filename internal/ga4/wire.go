package ga4

import "github.com/user/ga4-pipeline/internal/domain"

// Wire types for the GA4 Data API v1beta runRealtimeReport method.

type wireRequest struct {
	Dimensions   []wireDimension   `json:"dimensions,omitempty"`
	Metrics      []wireMetric      `json:"metrics,omitempty"`
	MinuteRanges []wireMinuteRange `json:"minuteRanges"`
}

type wireDimension struct {
	Name string `json:"name"`
}

type wireMetric struct {
	Name string `json:"name"`
}

type wireMinuteRange struct {
	Name            string `json:"name"`
	StartMinutesAgo int    `json:"startMinutesAgo"`
	EndMinutesAgo   int    `json:"endMinutesAgo"`
}

func newWireRequest(req domain.ReportRequest) wireRequest {
	out := wireRequest{
		MinuteRanges: []wireMinuteRange{{
			Name:            "last_5_minutes",
			StartMinutesAgo: req.MinutesAgo,
			EndMinutesAgo:   0,
		}},
	}
	for _, d := range req.Dimensions {
		out.Dimensions = append(out.Dimensions, wireDimension{Name: d})
	}
	for _, m := range req.Metrics {
		out.Metrics = append(out.Metrics, wireMetric{Name: m})
	}
	return out
}

type wireResponse struct {
	DimensionHeaders []wireHeader       `json:"dimensionHeaders"`
	MetricHeaders    []wireMetricHeader `json:"metricHeaders"`
	Rows             []wireRow          `json:"rows"`
	RowCount         int                `json:"rowCount"`
}

type wireHeader struct {
	Name string `json:"name"`
}

type wireMetricHeader struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type wireRow struct {
	DimensionValues []wireValue `json:"dimensionValues"`
	MetricValues    []wireValue `json:"metricValues"`
}

type wireValue struct {
	Value string `json:"value"`
}

func (w wireResponse) toDomain() domain.ReportResponse {
	out := domain.ReportResponse{
		DimensionHeaders: make([]string, 0, len(w.DimensionHeaders)),
		MetricHeaders:    make([]string, 0, len(w.MetricHeaders)),
		Rows:             make([]domain.ReportRow, 0, len(w.Rows)),
	}
	for _, h := range w.DimensionHeaders {
		out.DimensionHeaders = append(out.DimensionHeaders, h.Name)
	}
	for _, h := range w.MetricHeaders {
		out.MetricHeaders = append(out.MetricHeaders, h.Name)
	}
	for _, r := range w.Rows {
		row := domain.ReportRow{
			DimensionValues: make([]string, 0, len(r.DimensionValues)),
			MetricValues:    make([]string, 0, len(r.MetricValues)),
		}
		for _, v := range r.DimensionValues {
			row.DimensionValues = append(row.DimensionValues, v.Value)
		}
		for _, v := range r.MetricValues {
			row.MetricValues = append(row.MetricValues, v.Value)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
