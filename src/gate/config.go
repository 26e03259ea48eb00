package gate

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Policy applied to opposite-direction intents: block, reduce_only or
	// auto_close_opposite. Block is the anti-hedging default; the other two
	// are experimental.
	Policy string `envconfig:"GATE_POLICY" default:"block"`

	// CacheTTL bounds how stale an exposure snapshot may be before a
	// decision forces a refresh from the reporting store.
	CacheTTL time.Duration `envconfig:"EXPOSURE_CACHE_TTL" default:"5s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
