package reconciler

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	SweepInterval time.Duration `envconfig:"RECONCILER_SWEEP_INTERVAL" default:"15s"`
	RunBudget     time.Duration `envconfig:"RECONCILER_RUN_BUDGET" default:"20s"`

	// OrphanGrace keeps H1 from reclaiming a lease the agent simply has
	// not acknowledged yet.
	OrphanGrace    time.Duration `envconfig:"RECONCILER_ORPHAN_GRACE" default:"2m"`
	FilledStaleAge time.Duration `envconfig:"RECONCILER_FILLED_STALE_AGE" default:"1h"`
	MaxLeaseAge    time.Duration `envconfig:"RECONCILER_MAX_LEASE_AGE" default:"24h"`

	// BalanceDeltaThreshold is the absolute account-currency move that
	// triggers the advisory balance heuristic. Zero disables it.
	BalanceDeltaThreshold float64 `envconfig:"RECONCILER_BALANCE_DELTA_THRESHOLD" default:"0"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
