package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"firecontrol/src/firecmd"
)

func testClientConfig(baseURL string) Config {
	return Config{
		Transport:      "rest",
		BaseURL:        baseURL,
		APIKey:         "test-key",
		APISecret:      "test-secret",
		RetryAttempts:  2,
		RetryBaseWait:  time.Millisecond,
		RetryMaxWait:   5 * time.Millisecond,
		RequestTimeout: time.Second,
	}
}

func testCommand() *firecmd.FireCommand {
	return &firecmd.FireCommand{
		FireID:    "m-1",
		AgentID:   "agent-1",
		UserID:    7,
		Symbol:    "EURUSD",
		Direction: "buy",
		Entry:     decimal.RequireFromString("1.1000"),
		Stop:      decimal.RequireFromString("1.0980"),
		Target:    decimal.RequireFromString("1.1030"),
		Lots:      decimal.RequireFromString("0.15"),
	}
}

func TestAgentClientEnqueue(t *testing.T) {
	var received command
	var gotToken, gotExpiry, gotSignature string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/fires", r.URL.Path)

		gotToken = r.Header.Get("x-agent-access-token")
		gotExpiry = r.Header.Get("x-agent-request-expiry")
		gotSignature = r.Header.Get("x-agent-request-signature")

		err := json.NewDecoder(r.Body).Decode(&received)
		assert.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(APIResponse{Code: 0, Msg: "ok"})
	}))
	defer server.Close()

	client := NewAgentClient(testClientConfig(server.URL))

	err := client.Enqueue(context.Background(), testCommand())
	assert.NoError(t, err)

	assert.Equal(t, "test-key", gotToken)
	assert.NotEmpty(t, gotExpiry)
	assert.NotEmpty(t, gotSignature)
	assert.Equal(t, "m-1", received.Command.FireID)
	assert.NotEmpty(t, received.EnvelopeID)
}

func TestAgentClientEnqueueAgentError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(APIResponse{Code: 42, Msg: "unknown agent"})
	}))
	defer server.Close()

	client := NewAgentClient(testClientConfig(server.URL))

	err := client.Enqueue(context.Background(), testCommand())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent")
}

func TestAgentClientRetriesTransientFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(APIResponse{Code: 0, Msg: "ok"})
	}))
	defer server.Close()

	client := NewAgentClient(testClientConfig(server.URL))

	err := client.Enqueue(context.Background(), testCommand())
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestAgentClientRejectsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewAgentClient(testClientConfig(server.URL))

	err := client.Enqueue(context.Background(), testCommand())
	assert.Error(t, err)
}

func TestIsRetryableResp(t *testing.T) {
	assert.True(t, isRetryableResp(nil, assert.AnError))
	assert.False(t, isRetryableResp(nil, nil))
}

func TestSignRequestDeterministic(t *testing.T) {
	a := signRequest("/fires", `{"x":1}`, 1700000000, "secret")
	b := signRequest("/fires", `{"x":1}`, 1700000000, "secret")
	assert.Equal(t, a, b)

	c := signRequest("/fires", `{"x":1}`, 1700000000, "other")
	assert.NotEqual(t, a, c)
}
