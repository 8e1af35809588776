package attack_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vegeta "github.com/tsenart/vegeta/v12/lib"

	"bench/internal/attack"
)

func TestPaths(t *testing.T) {
	all, err := attack.Paths("all")
	require.NoError(t, err)
	assert.Len(t, all, 7)

	one, err := attack.Paths("thread-count")
	require.NoError(t, err)
	assert.Equal(t, []string{"/v1/newrelic/thread-count"}, one)

	_, err = attack.Paths("disk-usage")
	assert.Error(t, err)
}

func TestBody(t *testing.T) {
	body, err := attack.Body("checkout", "1 hour ago", "now")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"applicationName":"checkout","startTime":"1 hour ago","endTime":"now"}}`, string(body))
}

func TestMetricTargeter(t *testing.T) {
	body := []byte(`{}`)
	tr := attack.MetricTargeter("http://localhost:8080", []string{"/v1/newrelic/throughput"}, body)

	var target vegeta.Target
	require.NoError(t, tr(&target))

	assert.Equal(t, http.MethodPost, target.Method)
	assert.Equal(t, "http://localhost:8080/v1/newrelic/throughput", target.URL)
	assert.Equal(t, "application/json", target.Header.Get("Content-Type"))
	assert.Equal(t, body, target.Body)
}
