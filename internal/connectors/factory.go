package connectors

import (
	"fmt"
	"strings"

	"farmcalc/internal/config"
	fileconnector "farmcalc/internal/connectors/file"
	ninjaconnector "farmcalc/internal/connectors/ninja"
	webconnector "farmcalc/internal/connectors/web"
)

// New returns the connector for a source name: file, url or ninja.
func New(source string, cfg config.Config) (FeedConnector, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "file":
		return fileconnector.NewConnector(cfg.PricesPath), nil
	case "url":
		if err := cfg.Require("PRICES_URL", cfg.PricesURL); err != nil {
			return nil, err
		}
		return webconnector.NewConnector(webconnector.NewClient(cfg), cfg.PricesURL), nil
	case "ninja":
		return ninjaconnector.NewConnector(webconnector.NewClient(cfg), cfg), nil
	default:
		return nil, fmt.Errorf("unsupported price source: %s", source)
	}
}
