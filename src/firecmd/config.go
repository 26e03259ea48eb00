package firecmd

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// MinRiskReward is the floor on reward:risk. Shortfalls are fixed by
	// extending the target distance, never by shrinking the stop.
	MinRiskReward float64 `envconfig:"MIN_RISK_REWARD" default:"1.5"`

	// DefaultRiskFraction is applied when the user carries no risk profile.
	DefaultRiskFraction float64 `envconfig:"DEFAULT_RISK_FRACTION" default:"0.03"`

	MinLot  float64 `envconfig:"MIN_LOT" default:"0.01"`
	MaxLot  float64 `envconfig:"MAX_LOT" default:"100"`
	LotStep float64 `envconfig:"LOT_STEP" default:"0.01"`

	// Conservative fallback distances used when levels are unresolved or
	// fail the directional sanity check.
	FallbackStopPips   float64 `envconfig:"FALLBACK_STOP_PIPS" default:"20"`
	FallbackTargetPips float64 `envconfig:"FALLBACK_TARGET_PIPS" default:"30"`

	// StagedFarTargetPips pushes the target far out when a staged-exit
	// profile is attached, so the stages become the effective exit.
	StagedFarTargetPips float64 `envconfig:"STAGED_FAR_TARGET_PIPS" default:"500"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
