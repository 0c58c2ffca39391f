package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleLiveness(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/health/live")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime_seconds")
}

func TestHandleReadiness(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/health/ready")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["clients"])

	dialChat(t, ts)

	assert.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/health/ready")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false
		}
		return body["clients"] == float64(1)
	}, time.Second, 10*time.Millisecond)
}

func TestHandleVersion(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, body := getJSON(t, ts.URL+"/version")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "version")
}

func TestHandleMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
