// REST DISPATCH CLIENT FOR THE REMOTE EXECUTION AGENT
// RESTY ONLY + INTERNAL RETRY
package dispatch

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"firecontrol/src/firecmd"
)

// APIResponse is the agent's response wrapper.
type APIResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// AgentClient posts fire commands to the execution agent's REST endpoint.
// Requests are HMAC-signed and retried on transient failures; a command
// that exhausts its retries surfaces as a dispatch error to the caller.
type AgentClient struct {
	apiKey    string
	apiSecret string
	baseURL   string
	http      *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewAgentClient(config Config) *AgentClient {
	retryCount := config.RetryAttempts - 1
	if retryCount < 0 {
		retryCount = 0
	}

	httpClient := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.RequestTimeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(config.RetryBaseWait).
		SetRetryMaxWaitTime(config.RetryMaxWait).
		AddRetryCondition(isRetryableResp)

	return &AgentClient{
		apiKey:    config.APIKey,
		apiSecret: config.APISecret,
		baseURL:   config.BaseURL,
		http:      httpClient,
	}
}

func signRequest(path, body string, expiry int64, secret string) string {
	base := path + fmt.Sprintf("%d", expiry) + body
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

// Enqueue posts the command to the agent. The fire id doubles as the
// idempotency key: the agent treats a repeated fire id as the same command,
// so at-least-once delivery cannot double-open a position.
func (c *AgentClient) Enqueue(ctx context.Context, cmd *firecmd.FireCommand) error {
	body, err := json.Marshal(command{
		EnvelopeID: uuid.NewString(),
		Command:    cmd,
	})
	if err != nil {
		return fmt.Errorf("marshal fire command %s: %w", cmd.FireID, err)
	}

	path := "/fires"
	expiry := time.Now().Add(1 * time.Minute).Unix()
	sig := signRequest(path, string(body), expiry, c.apiSecret)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-agent-access-token", c.apiKey).
		SetHeader("x-agent-request-expiry", fmt.Sprintf("%d", expiry)).
		SetHeader("x-agent-request-signature", sig).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"component": "AgentClient",
			"fire_id":   cmd.FireID,
			"agent_id":  cmd.AgentID,
		}).WithError(err).Error("Failed to post fire command")

		return fmt.Errorf("post fire command %s: %w", cmd.FireID, err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("agent rejected fire %s: HTTP %d: %s", cmd.FireID, resp.StatusCode(), resp.String())
	}

	var apiResp APIResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return fmt.Errorf("decode agent response for fire %s: %w", cmd.FireID, err)
	}
	if apiResp.Code != 0 {
		return fmt.Errorf("agent error for fire %s: %s", cmd.FireID, apiResp.Msg)
	}

	logger.WithFields(map[string]interface{}{
		"component": "AgentClient",
		"fire_id":   cmd.FireID,
		"agent_id":  cmd.AgentID,
		"symbol":    cmd.Symbol,
	}).Info("Fire command dispatched")

	return nil
}

// command is the wire envelope pushed to the agent.
type command struct {
	EnvelopeID string               `json:"envelope_id"`
	Command    *firecmd.FireCommand `json:"command"`
}
