package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Load reads a CSV file into a Table. The first record is the header.
// Empty, NA and NaN cells, and cells that do not parse as numbers, become
// missing entries.
func Load(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDataNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv %s must contain a header and at least one row", path)
	}

	header := records[0]
	rows := make([][]float64, len(records)-1)
	for i, record := range records[1:] {
		row := make([]float64, len(header))
		for j := range header {
			if j >= len(record) {
				row[j] = math.NaN()
				continue
			}
			row[j] = parseCell(record[j])
		}
		rows[i] = row
	}

	return &Table{Columns: append([]string(nil), header...), Rows: rows}, nil
}

func parseCell(raw string) float64 {
	value := strings.TrimSpace(raw)
	if value == "" || value == "NA" || value == "NaN" {
		return math.NaN()
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return math.NaN()
	}
	return parsed
}
