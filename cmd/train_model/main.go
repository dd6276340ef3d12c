package main

import (
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"cornerstone/artifact"
	"cornerstone/dataset"
	"cornerstone/logging"
	"cornerstone/ml"
)

type Config struct {
	Data struct {
		Dir      string `yaml:"dir"`
		TrainCSV string `yaml:"train_csv"`
	} `yaml:"data"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Offline batch trainer. Reads the training CSV, fits the forest, and writes
// the two artifact files the serving process loads at startup. Any failure is
// fatal; there is no partial-artifact rollback, so a failed late write can
// leave a stale pipeline artifact next to updated-or-missing metadata.
func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.Log.Level, config.Log.File)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg := ml.DefaultTrainingConfig()
	logger.Info("training started",
		zap.Int("trees", cfg.TreeCount),
		zap.Int64("seed", cfg.Seed),
		zap.Strings("features", cfg.Features))

	// Phase 1: dataset preparation
	csvPath := filepath.Join(config.Data.Dir, config.Data.TrainCSV)
	table, err := dataset.Load(csvPath)
	if err != nil {
		logger.Fatal("failed to load training data", zap.String("path", csvPath), zap.Error(err))
	}
	logger.Info("training data loaded",
		zap.Int("rows", table.NumRows()),
		zap.Int("columns", table.NumColumns()))

	processed, err := dataset.SelectFeatures(table, cfg.Features, cfg.TargetColumn)
	if err != nil {
		logger.Fatal("failed to extract model features", zap.Error(err))
	}
	dataset.ImputeMissing(processed)

	part, err := dataset.Split(processed, cfg.TargetColumn, cfg.ValidationFraction, cfg.Seed)
	if err != nil {
		logger.Fatal("failed to partition dataset", zap.Error(err))
	}
	logger.Info("data partitioned",
		zap.Int("train", len(part.TrainY)),
		zap.Int("validation", len(part.ValY)))

	// Phase 2: ensemble construction
	forest, err := ml.Fit(part.TrainX, part.TrainY, cfg)
	if err != nil {
		logger.Fatal("failed to train ensemble", zap.Error(err))
	}
	mse, rmse := ml.Evaluate(forest, part.ValX, part.ValY)
	logger.Info("ensemble trained", zap.Float64("validation_mse", mse), zap.Float64("validation_rmse", rmse))

	medians := dataset.ColumnMedians(processed, cfg.Features)
	pipeline, err := ml.NewPipeline(forest, medians)
	if err != nil {
		logger.Fatal("failed to assemble pipeline", zap.Error(err))
	}

	// Phase 3: artifact persistence
	pipelinePath := filepath.Join(config.Data.Dir, cfg.PipelineArtifact)
	if err := artifact.SavePipeline(pipeline, pipelinePath); err != nil {
		logger.Fatal("failed to persist pipeline", zap.Error(err))
	}
	columnsPath := filepath.Join(config.Data.Dir, cfg.ColumnsArtifact)
	if err := artifact.SaveColumns(cfg.Features, columnsPath); err != nil {
		logger.Fatal("failed to persist feature metadata", zap.Error(err))
	}

	logger.Info("training completed",
		zap.String("pipeline", pipelinePath),
		zap.String("columns", columnsPath))
}

func loadConfig(path string) (*Config, error) {
	// Look for config in the repo root even when run from cmd/train_model
	for _, candidate := range []string{path, filepath.Join("..", "..", path)} {
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	if config.Data.Dir == "" {
		config.Data.Dir = "."
	}
	if config.Data.TrainCSV == "" {
		config.Data.TrainCSV = "train.csv"
	}
	return &config, nil
}
