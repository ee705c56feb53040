package retrieval

import (
	"github.com/windlass-ai/retrievalkit/config"
)

// VectorOptionsFromConfig translates a loaded VectorConfig into the
// VectorOption values NewVectorRetrieverStage expects.
func VectorOptionsFromConfig(c config.VectorConfig) []VectorOption {
	return []VectorOption{
		WithVectorWeight(c.Weight),
		WithVectorMinScore(c.MinScore),
	}
}

// GraphOptionsFromConfig translates a loaded GraphConfig into the
// GraphOption values NewGraphRetrieverStage expects. Callers still decide
// whether to build a GraphRetrieverStage at all based on c.Enabled.
func GraphOptionsFromConfig(c config.GraphConfig) []GraphOption {
	return []GraphOption{
		WithGraphWeight(c.Weight),
		WithMultiHop(c.MultiHop),
		WithMaxHops(c.MaxHops),
	}
}

// FusionOptionsFromConfig translates a loaded FusionConfig into the
// FusionOption values NewFusionStage expects.
func FusionOptionsFromConfig(c config.FusionConfig) []FusionOption {
	return []FusionOption{
		WithFusionMethod(FusionMethod(c.Method)),
		WithRRFK(c.RRFK),
	}
}

// DiversityOptionsFromConfig translates a loaded DiversityConfig into the
// DiversityOption values NewDiversityFilterStage expects. Callers still
// decide whether to add a DiversityFilterStage at all based on c.Enabled.
func DiversityOptionsFromConfig(c config.DiversityConfig) []DiversityOption {
	return []DiversityOption{
		WithLambda(c.Lambda),
	}
}
