package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// VectorConfig tunes the vector retrieval stage of a pipeline.
type VectorConfig struct {
	Weight   float64 `mapstructure:"weight" validate:"gte=0"`
	MinScore float64 `mapstructure:"min_score" validate:"gte=0,lte=1"`
}

// GraphConfig tunes the graph retrieval stage of a pipeline. A zero value
// with Enabled false describes a vector-only pipeline.
type GraphConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	Weight   float64 `mapstructure:"weight" validate:"gte=0"`
	MultiHop bool    `mapstructure:"multi_hop"`
	MaxHops  int     `mapstructure:"max_hops" validate:"gte=0,lte=3"`
}

// FusionConfig tunes how recalled results are merged.
type FusionConfig struct {
	Method string `mapstructure:"method" validate:"oneof=weighted_sum rrf"`
	RRFK   int    `mapstructure:"rrf_k" validate:"gte=1"`
}

// DiversityConfig tunes the MMR diversity filter, if enabled.
type DiversityConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Lambda  float64 `mapstructure:"lambda" validate:"gte=0,lte=1"`
}

// PipelineConfig describes one retrieval pipeline's wiring and tunables,
// the way a deployment's operator would express it in YAML rather than
// in Go code. LoadPipelineConfig produces one of these from disk.
type PipelineConfig struct {
	Name      string          `mapstructure:"name" validate:"required"`
	TopK      int             `mapstructure:"top_k" validate:"required,min=1,max=1000"`
	Vector    VectorConfig    `mapstructure:"vector" validate:"required"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Fusion    FusionConfig    `mapstructure:"fusion"`
	Diversity DiversityConfig `mapstructure:"diversity"`
}

// CascadeConfig describes an inference cascade's tunables: the
// confidence threshold at which a non-final level short-circuits, the
// combination strategy, and whether results are cached.
type CascadeConfig struct {
	Threshold    float64 `mapstructure:"threshold" validate:"gte=0,lte=1"`
	Strategy     string  `mapstructure:"strategy" validate:"oneof=cascade ensemble"`
	CacheEnabled bool    `mapstructure:"cache_enabled"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func defaultPipelineViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("top_k", 10)
	v.SetDefault("vector.weight", 1.0)
	v.SetDefault("vector.min_score", 0.0)
	v.SetDefault("graph.enabled", false)
	v.SetDefault("graph.weight", 1.0)
	v.SetDefault("graph.multi_hop", true)
	v.SetDefault("graph.max_hops", 2)
	v.SetDefault("fusion.method", "weighted_sum")
	v.SetDefault("fusion.rrf_k", 60)
	v.SetDefault("diversity.enabled", false)
	v.SetDefault("diversity.lambda", 0.7)
	return v
}

// LoadPipelineConfig reads a PipelineConfig from the YAML file at path,
// applying LoadConfig's underscore-for-dot environment-variable override
// convention with a RETRIEVALKIT_ prefix instead of BELUGA_ (a
// RETRIEVALKIT_-prefixed variable overrides any key), then validates it
// via struct tags. An empty path
// reads defaults only, for callers that configure entirely through
// environment variables.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	v := defaultPipelineViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: reading pipeline config %s: %w", path, err)
			}
			slog.Warn("config.pipeline.file_not_found", "path", path)
		}
	}

	v.SetEnvPrefix("RETRIEVALKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling pipeline config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid pipeline config: %w", err)
	}

	return &cfg, nil
}

// LoadCascadeConfig reads a CascadeConfig from the YAML file at path,
// following the same conventions as LoadPipelineConfig.
func LoadCascadeConfig(path string) (*CascadeConfig, error) {
	v := viper.New()
	v.SetDefault("threshold", 0.7)
	v.SetDefault("strategy", "cascade")
	v.SetDefault("cache_enabled", true)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: reading cascade config %s: %w", path, err)
			}
			slog.Warn("config.cascade.file_not_found", "path", path)
		}
	}

	v.SetEnvPrefix("RETRIEVALKIT_CASCADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg CascadeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling cascade config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid cascade config: %w", err)
	}

	return &cfg, nil
}
