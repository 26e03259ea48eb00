package dispatch

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Transport selects how commands reach the agent: "rest" posts each
	// command, "stream" pushes over a persistent websocket.
	Transport string `envconfig:"DISPATCH_TRANSPORT" default:"rest"`

	BaseURL   string `envconfig:"AGENT_BASE_URL" default:"https://agent.local:8443"`
	StreamURL string `envconfig:"AGENT_STREAM_URL" default:"wss://agent.local:8443/commands"`

	APIKey    string `envconfig:"AGENT_API_KEY"`
	APISecret string `envconfig:"AGENT_API_SECRET"`

	// Encrypted variants take precedence when set; values are sealed with
	// the agent credentials key (see the security package).
	APIKeyEnc    string `envconfig:"AGENT_API_KEY_ENC"`
	APISecretEnc string `envconfig:"AGENT_API_SECRET_ENC"`

	RetryAttempts int           `envconfig:"DISPATCH_RETRY_ATTEMPTS" default:"5"`
	RetryBaseWait time.Duration `envconfig:"DISPATCH_RETRY_BASE_WAIT" default:"500ms"`
	RetryMaxWait  time.Duration `envconfig:"DISPATCH_RETRY_MAX_WAIT" default:"8s"`

	RequestTimeout time.Duration `envconfig:"DISPATCH_REQUEST_TIMEOUT" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
