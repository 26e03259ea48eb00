package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"firecontrol/src/controller"
	"firecontrol/src/firecmd"
	"firecontrol/src/intent"
)

type mockFireRunner struct {
	cmd    *firecmd.FireCommand
	err    error
	called int
	got    *intent.TradeIntent
}

func (m *mockFireRunner) Fire(ctx context.Context, ti *intent.TradeIntent) (*firecmd.FireCommand, error) {
	m.called++
	m.got = ti
	return m.cmd, m.err
}

func fireRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/fire", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

const validFireBody = `{
	"mission_id": "m-1",
	"user_id": 7,
	"symbol": "eurusd",
	"direction": "BUY",
	"entry": "1.1000",
	"stop": "1.0980",
	"target": "1.1030"
}`

func TestFireHandlerSuccess(t *testing.T) {
	runner := &mockFireRunner{cmd: &firecmd.FireCommand{FireID: "m-1", Symbol: "EURUSD"}}
	h := FireHandler(runner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, fireRequest(validFireBody))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, runner.called)
	// Normalization ran before the controller saw the intent.
	assert.Equal(t, "EURUSD", runner.got.Symbol)
	assert.Equal(t, intent.DirectionBuy, runner.got.Direction)
	assert.Contains(t, rr.Body.String(), `"fire_id":"m-1"`)
}

func TestFireHandlerInvalidJSON(t *testing.T) {
	runner := &mockFireRunner{}
	h := FireHandler(runner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, fireRequest(`{not json`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, runner.called)
}

func TestFireHandlerValidationFailure(t *testing.T) {
	runner := &mockFireRunner{}
	h := FireHandler(runner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, fireRequest(`{"mission_id":"m-1","user_id":7,"symbol":"EURUSD","direction":"sideways"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, 0, runner.called)
}

func TestFireHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "blocked direction maps to 409",
			err:  &controller.DirectionBlockedError{UserID: 7, Symbol: "EURUSD", Direction: "buy", Rationale: "anti-hedging"},
			want: http.StatusConflict,
		},
		{
			name: "admission rejection maps to 429",
			err:  &controller.AdmissionRejectedError{UserID: 7, MissionID: "m-1", Mode: "manual", Tier: "recruit"},
			want: http.StatusTooManyRequests,
		},
		{
			name: "invalid levels map to 422",
			err:  &controller.InvalidLevelsError{MissionID: "m-1", Symbol: "EURUSD", Err: firecmd.ErrUnresolvedEntry},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "dispatch failure maps to 502",
			err:  &controller.DispatchFailureError{MissionID: "m-1", LeaseReleased: true, Err: assert.AnError},
			want: http.StatusBadGateway,
		},
		{
			name: "missing balance snapshot maps to 500",
			err:  &controller.MissingBalanceError{UserID: 7, AgentID: "agent-1", MissionID: "m-1"},
			want: http.StatusInternalServerError,
		},
		{
			name: "anything else maps to 500",
			err:  assert.AnError,
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockFireRunner{err: tt.err}
			h := FireHandler(runner)

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, fireRequest(validFireBody))

			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
