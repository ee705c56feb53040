package inference

import (
	"github.com/windlass-ai/retrievalkit/config"
)

// OptionsFromConfig translates a loaded CascadeConfig into the Options
// NewEngine expects.
func OptionsFromConfig(c config.CascadeConfig) []Option {
	return []Option{
		WithThreshold(c.Threshold),
		WithStrategy(Strategy(c.Strategy)),
		WithCache(c.CacheEnabled),
	}
}
