package pricefeed

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Quote currency assumed for crypto symbols without an explicit quote,
	// e.g. BTC -> BTC/USDT.
	DefaultQuote string `envconfig:"PRICEFEED_DEFAULT_QUOTE" default:"USDT"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
