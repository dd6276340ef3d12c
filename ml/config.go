package ml

// TrainingConfig centralizes every hyperparameter of a training run. A run
// builds one config and never mutates it.
type TrainingConfig struct {
	Seed               int64
	TreeCount          int
	MaxDepth           int
	MinSamplesSplit    int
	ValidationFraction float64
	Features           []string
	TargetColumn       string
	PipelineArtifact   string
	ColumnsArtifact    string
}

// DefaultTrainingConfig returns the fixed Cornerstone configuration. The
// seven features were curated for predictive signal on the house-price data.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Seed:               11,
		TreeCount:          200,
		MaxDepth:           12,
		MinSamplesSplit:    5,
		ValidationFraction: 0.2,
		Features: []string{
			"OverallQual",
			"GrLivArea",
			"YearBuilt",
			"TotalBsmtSF",
			"FullBath",
			"BedroomAbvGr",
			"GarageCars",
		},
		TargetColumn:     "SalePrice",
		PipelineArtifact: "pipeline.gob",
		ColumnsArtifact:  "model_columns.gob",
	}
}
