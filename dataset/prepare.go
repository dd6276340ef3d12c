package dataset

import (
	"errors"
	"math"
	"math/rand"
)

// Partition holds the four disjoint tables produced by Split.
type Partition struct {
	TrainX [][]float64
	TrainY []float64
	ValX   [][]float64
	ValY   []float64
}

// SelectFeatures returns a new table restricted to the feature columns plus
// the target column, in that order. All declared features must be present in
// the source; absent ones are collected into a SchemaError.
func SelectFeatures(t *Table, features []string, target string) (*Table, error) {
	var missing []string
	indices := make([]int, 0, len(features)+1)
	for _, name := range features {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			missing = append(missing, name)
			continue
		}
		indices = append(indices, idx)
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	targetIdx := t.ColumnIndex(target)
	if targetIdx < 0 {
		return nil, &SchemaError{Missing: []string{target}}
	}
	indices = append(indices, targetIdx)

	columns := make([]string, 0, len(indices))
	columns = append(columns, features...)
	columns = append(columns, target)

	rows := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		selected := make([]float64, len(indices))
		for j, idx := range indices {
			selected[j] = row[idx]
		}
		rows[i] = selected
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// ImputeMissing replaces every missing entry with its column's median,
// computed over the table as given. Mutates the table in place; row count is
// unchanged.
func ImputeMissing(t *Table) {
	for j := range t.Columns {
		values := make([]float64, len(t.Rows))
		for i, row := range t.Rows {
			values[i] = row[j]
		}
		med := ColumnMedian(values)
		for _, row := range t.Rows {
			if math.IsNaN(row[j]) {
				row[j] = med
			}
		}
	}
}

// ColumnMedians returns the per-column medians of the named columns.
func ColumnMedians(t *Table, names []string) []float64 {
	medians := make([]float64, len(names))
	for i, name := range names {
		medians[i] = ColumnMedian(t.Column(name))
	}
	return medians
}

// Split partitions the processed table into train and validation sets. The
// shuffle is driven by seed alone, so identical input and seed reproduce the
// identical partition. Validation size is floor(fraction * rows).
func Split(t *Table, target string, fraction float64, seed int64) (*Partition, error) {
	targetIdx := t.ColumnIndex(target)
	if targetIdx < 0 {
		return nil, &SchemaError{Missing: []string{target}}
	}
	if fraction <= 0 || fraction >= 1 {
		return nil, errors.New("validation fraction must be in (0, 1)")
	}

	n := t.NumRows()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })

	valSize := int(math.Floor(fraction * float64(n)))
	trainSize := n - valSize

	part := &Partition{
		TrainX: make([][]float64, 0, trainSize),
		TrainY: make([]float64, 0, trainSize),
		ValX:   make([][]float64, 0, valSize),
		ValY:   make([]float64, 0, valSize),
	}
	for i, idx := range indices {
		row := t.Rows[idx]
		x := make([]float64, 0, len(row)-1)
		x = append(x, row[:targetIdx]...)
		x = append(x, row[targetIdx+1:]...)
		if i < trainSize {
			part.TrainX = append(part.TrainX, x)
			part.TrainY = append(part.TrainY, row[targetIdx])
		} else {
			part.ValX = append(part.ValX, x)
			part.ValY = append(part.ValY, row[targetIdx])
		}
	}
	return part, nil
}
