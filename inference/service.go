// Package inference owns the serving-side model. A Service is constructed
// once at process start and never reloads its artifacts.
package inference

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"cornerstone/artifact"
	"cornerstone/ml"
)

const cacheSize = 1024

// ErrModelNotLoaded is returned by Predict while the service is unloaded.
var ErrModelNotLoaded = errors.New("inference pipeline not loaded")

// Error wraps a computation failure inside the loaded pipeline.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Service holds the deserialized pipeline and feature metadata for the
// process lifetime. The pipeline is immutable after Initialize, so concurrent
// Predict calls need no locking; the result cache is the only shared mutable
// state and the library handles its own synchronization.
type Service struct {
	pipeline *ml.Pipeline
	features []string
	cache    *lru.Cache[string, float64]
	logger   *zap.Logger
}

// Initialize attempts the Unloaded -> Ready transition exactly once. An
// absent pipeline artifact leaves the service unloaded; an absent columns
// artifact yields a ready service with an empty feature list. Corrupt
// artifacts are logged and leave the service unloaded.
func Initialize(baseDir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{logger: logger}
	svc.cache, _ = lru.New[string, float64](cacheSize)

	cfg := ml.DefaultTrainingConfig()
	pipelinePath := filepath.Join(baseDir, cfg.PipelineArtifact)
	columnsPath := filepath.Join(baseDir, cfg.ColumnsArtifact)

	pipeline, ok, err := artifact.LoadPipeline(pipelinePath)
	if err != nil {
		logger.Error("failed to load inference pipeline", zap.String("path", pipelinePath), zap.Error(err))
		return svc
	}
	if !ok {
		logger.Warn("inference pipeline not found, predictions unavailable", zap.String("path", pipelinePath))
		return svc
	}

	columns, ok, err := artifact.LoadColumns(columnsPath)
	if err != nil {
		logger.Error("failed to load feature metadata", zap.String("path", columnsPath), zap.Error(err))
		return svc
	}
	if !ok {
		logger.Warn("feature metadata not found, accepting any numeric fields", zap.String("path", columnsPath))
		columns = nil
	}

	svc.pipeline = pipeline
	svc.features = columns
	logger.Info("inference artifacts loaded",
		zap.Int("trees", len(pipeline.Forest.Trees)),
		zap.Strings("features", columns))
	return svc
}

// Ready reports whether the pipeline artifact was loaded.
func (s *Service) Ready() bool {
	return s.pipeline != nil
}

// Features returns the ordered feature names from the metadata artifact.
// Empty when the metadata artifact was absent.
func (s *Service) Features() []string {
	return append([]string(nil), s.features...)
}

// Predict evaluates the loaded pipeline on exactly one feature row. Results
// are cached by row value; the pipeline never changes after load, so a cached
// value is always current.
func (s *Service) Predict(row []float64) (float64, error) {
	if s.pipeline == nil {
		return 0, ErrModelNotLoaded
	}

	key := rowKey(row)
	if value, ok := s.cache.Get(key); ok {
		return value, nil
	}

	value, err := s.pipeline.Predict(row)
	if err != nil {
		return 0, &Error{Err: err}
	}
	s.cache.Add(key, value)
	return value, nil
}

func rowKey(row []float64) string {
	var b strings.Builder
	for i, v := range row {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}
