package ml

import (
	"errors"
	"math"
)

// Pipeline bundles the median-imputation step with the fitted forest into one
// serializable inference artifact. The imputer is inert for fully-specified
// serving rows; it exists so the artifact stays self-sufficient if a producer
// ever stops pre-imputing.
type Pipeline struct {
	Medians []float64
	Forest  *Forest
}

// NewPipeline assembles a pipeline from a fitted forest and the per-feature
// training medians, in feature order.
func NewPipeline(forest *Forest, medians []float64) (*Pipeline, error) {
	if forest == nil || len(forest.Trees) == 0 {
		return nil, errors.New("forest is not fitted")
	}
	if len(medians) != forest.FeatureCount {
		return nil, errors.New("medians length does not match feature count")
	}
	return &Pipeline{Medians: medians, Forest: forest}, nil
}

// Predict runs the imputation step and the forest on a single feature vector.
func (p *Pipeline) Predict(row []float64) (float64, error) {
	if p.Forest == nil || len(p.Forest.Trees) == 0 {
		return 0, errors.New("pipeline has no fitted forest")
	}
	if len(row) != p.Forest.FeatureCount {
		return 0, errors.New("feature vector length mismatch")
	}
	imputed := append([]float64(nil), row...)
	for i, v := range imputed {
		if math.IsNaN(v) {
			imputed[i] = p.Medians[i]
		}
	}
	return p.Forest.PredictRow(imputed)
}
