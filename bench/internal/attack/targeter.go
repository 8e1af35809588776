package attack

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// MetricPaths lists the gateway's metric routes.
var MetricPaths = []string{
	"/v1/newrelic/cpu-requested-cores",
	"/v1/newrelic/cpu-used-cores",
	"/v1/newrelic/pods-total",
	"/v1/newrelic/thread-count",
	"/v1/newrelic/memory-heap-used",
	"/v1/newrelic/throughput",
	"/v1/newrelic/response-time-average",
}

type requestData struct {
	ApplicationName string `json:"applicationName"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
}

type metricRequest struct {
	Data requestData `json:"data"`
}

// Body encodes the JSON request shared by every metric route.
func Body(app, start, end string) ([]byte, error) {
	return json.Marshal(metricRequest{Data: requestData{
		ApplicationName: app,
		StartTime:       start,
		EndTime:         end,
	}})
}

// Paths resolves a METRIC value: "all" or one route name such as "throughput".
func Paths(metric string) ([]string, error) {
	if metric == "all" {
		return MetricPaths, nil
	}
	want := "/v1/newrelic/" + metric
	for _, p := range MetricPaths {
		if p == want {
			return []string{p}, nil
		}
	}
	return nil, fmt.Errorf("unknown metric: %s", metric)
}

func MetricTargeter(baseURL string, paths []string, body []byte) vegeta.Targeter {
	header := http.Header{"Content-Type": []string{"application/json"}}

	return func(t *vegeta.Target) error {
		t.Method = http.MethodPost
		t.URL = baseURL + paths[rand.IntN(len(paths))]
		t.Header = header
		t.Body = body
		return nil
	}
}
