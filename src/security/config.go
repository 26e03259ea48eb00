package security

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// AgentCRKey is the base64-encoded 32-byte key used to encrypt agent
	// credentials at rest.
	AgentCRKey string `envconfig:"AGENT_CREDENTIALS_KEY"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
