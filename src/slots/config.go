package slots

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"firecontrol/src/model"
)

// Tier names. Unknown tiers fall back to recruit capacities.
const (
	TierRecruit   = "recruit"
	TierOperator  = "operator"
	TierCommander = "commander"
)

// TierCapacity is a tier's slot maxima per mode. Static configuration,
// read-only at runtime.
type TierCapacity struct {
	MaxManualSlots int
	MaxAutoSlots   int
}

// ForMode returns the capacity for one lease mode.
func (tc TierCapacity) ForMode(mode string) int {
	if mode == model.LeaseModeAuto {
		return tc.MaxAutoSlots
	}
	return tc.MaxManualSlots
}

type Config struct {
	RecruitManualSlots   int `envconfig:"TIER_RECRUIT_MANUAL_SLOTS" default:"1"`
	RecruitAutoSlots     int `envconfig:"TIER_RECRUIT_AUTO_SLOTS" default:"0"`
	OperatorManualSlots  int `envconfig:"TIER_OPERATOR_MANUAL_SLOTS" default:"3"`
	OperatorAutoSlots    int `envconfig:"TIER_OPERATOR_AUTO_SLOTS" default:"1"`
	CommanderManualSlots int `envconfig:"TIER_COMMANDER_MANUAL_SLOTS" default:"5"`
	CommanderAutoSlots   int `envconfig:"TIER_COMMANDER_AUTO_SLOTS" default:"3"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Capacity resolves a tier name to its slot maxima.
func (c Config) Capacity(tier string) TierCapacity {
	switch tier {
	case TierOperator:
		return TierCapacity{MaxManualSlots: c.OperatorManualSlots, MaxAutoSlots: c.OperatorAutoSlots}
	case TierCommander:
		return TierCapacity{MaxManualSlots: c.CommanderManualSlots, MaxAutoSlots: c.CommanderAutoSlots}
	default:
		return TierCapacity{MaxManualSlots: c.RecruitManualSlots, MaxAutoSlots: c.RecruitAutoSlots}
	}
}
