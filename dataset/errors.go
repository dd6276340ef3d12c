package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDataNotFound signals that the training CSV does not exist.
var ErrDataNotFound = errors.New("training data not found")

// SchemaError reports every required feature column absent from the source.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing feature columns: %s", strings.Join(e.Missing, ", "))
}
