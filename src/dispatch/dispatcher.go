package dispatch

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"firecontrol/src/firecmd"
	"firecontrol/src/security"
)

// Dispatcher is the single outbound channel to the remote execution agent.
// Delivery is at-least-once from this side: Enqueue returning nil means the
// command was handed to the transport, not that an order was placed. On
// error the caller must release the lease it acquired for the command.
type Dispatcher interface {
	Enqueue(ctx context.Context, cmd *firecmd.FireCommand) error
}

// New builds the dispatcher selected by the configuration. Credentials
// provided in encrypted form are opened here, once, at startup.
func New(config Config) Dispatcher {
	resolveCredentials(&config)

	if config.Transport == "stream" {
		return NewStreamDispatcher(config)
	}
	return NewAgentClient(config)
}

func resolveCredentials(config *Config) {
	if config.APIKeyEnc != "" {
		key, err := security.DecryptString(config.APIKeyEnc)
		if err != nil {
			logger.WithError(err).Fatal("Failed to decrypt agent API key")
		}
		config.APIKey = key
	}

	if config.APISecretEnc != "" {
		secret, err := security.DecryptString(config.APISecretEnc)
		if err != nil {
			logger.WithError(err).Fatal("Failed to decrypt agent API secret")
		}
		config.APISecret = secret
	}
}
