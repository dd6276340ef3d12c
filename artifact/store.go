// Package artifact persists and restores the trained inference artifacts.
// Writes are plain create-and-truncate with no fsync or rename step, so a
// crash mid-write can leave a truncated artifact behind.
package artifact

import (
	"encoding/gob"
	"fmt"
	"os"

	"cornerstone/ml"
)

// CorruptError reports an artifact that exists but cannot be decoded.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("artifact %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// SavePipeline serializes the inference pipeline, overwriting any existing
// file at path.
func SavePipeline(p *ml.Pipeline, path string) error {
	return save(p, path)
}

// SaveColumns serializes the ordered feature-name list.
func SaveColumns(columns []string, path string) error {
	return save(columns, path)
}

// LoadPipeline deserializes a pipeline. A missing file is reported through
// the second return value rather than an error; undecodable content is a
// CorruptError.
func LoadPipeline(path string) (*ml.Pipeline, bool, error) {
	var p ml.Pipeline
	ok, err := load(&p, path)
	if !ok || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

// LoadColumns deserializes the feature-name list, with the same absent
// semantics as LoadPipeline.
func LoadColumns(path string) ([]string, bool, error) {
	var columns []string
	ok, err := load(&columns, path)
	if !ok || err != nil {
		return nil, false, err
	}
	return columns, true, nil
}

func save(value interface{}, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := gob.NewEncoder(file).Encode(value); err != nil {
		return fmt.Errorf("encode artifact %s: %w", path, err)
	}
	return nil
}

func load(value interface{}, path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer file.Close()
	if err := gob.NewDecoder(file).Decode(value); err != nil {
		return false, &CorruptError{Path: path, Err: err}
	}
	return true, nil
}
