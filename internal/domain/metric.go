package domain

// APIVersion is reported in every metric response envelope.
const APIVersion = "v1"

type MetricRequest struct {
	Data MetricRequestData `json:"data"`
}

// MetricRequestData carries the time window as opaque strings; they are
// forwarded to the provider without parsing.
type MetricRequestData struct {
	ApplicationName string `json:"applicationName"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
}

type MetricResponse struct {
	APIVersion string  `json:"api_version"`
	Result     float64 `json:"result"`
}

func NewMetricResponse(result float64) MetricResponse {
	return MetricResponse{APIVersion: APIVersion, Result: result}
}

type HealthResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}
