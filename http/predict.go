package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"cornerstone/db"
)

// ErrInvalidRequest is returned in accept-any-fields mode when a submitted
// value is not numeric.
var ErrInvalidRequest = errors.New("non-numeric values in request")

// InvalidFeatureValueError names the feature whose submitted value failed to
// parse.
type InvalidFeatureValueError struct {
	Feature string
}

func (e *InvalidFeatureValueError) Error() string {
	return fmt.Sprintf("invalid value for feature %s", e.Feature)
}

var resultPrinter = message.NewPrinter(language.English)

// handlePredict validates the form submission, runs inference, and re-renders
// the landing page with either the formatted price or an Error: message.
// Handled failures still answer 200; only the not-ready path redirects.
func (f *frontend) handlePredict(w http.ResponseWriter, r *http.Request) {
	if service == nil || !service.Ready() {
		notice := url.QueryEscape("Model service unavailable. Please run model training first.")
		http.Redirect(w, r, "/?notice="+notice, http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		f.render(w, indexData{Cols: knownFeatures(), Result: "Error: " + ErrInvalidRequest.Error()})
		return
	}

	requestID := GetRequestID(r.Context())
	features := service.Features()
	result := ""
	row, columns, err := buildFeatureRow(r.PostForm, features)
	if err == nil {
		var value float64
		value, err = service.Predict(row)
		if err == nil {
			result = formatPrediction(value)
			httpLogger.Info("prediction served",
				zap.String("request_id", requestID),
				zap.String("result", result))
			recordHistory(columns, row, value)
		}
	}
	if err != nil {
		result = "Error: " + err.Error()
		httpLogger.Error("prediction request failed",
			zap.String("request_id", requestID),
			zap.Error(err))
	}

	f.render(w, indexData{Cols: features, Result: result})
}

// buildFeatureRow coerces the submitted form into exactly one feature row.
// With a known feature list every known name is read (missing fields default
// to 0) in the known order; with an empty list every submitted field must be
// numeric and the row takes whatever columns were sent.
func buildFeatureRow(form url.Values, known []string) ([]float64, []string, error) {
	if len(known) > 0 {
		row := make([]float64, len(known))
		for i, name := range known {
			// A field absent from the submission defaults to 0; a field
			// submitted blank is an invalid value, not a zero.
			raw := "0"
			if values, ok := form[name]; ok && len(values) > 0 {
				raw = values[0]
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, nil, &InvalidFeatureValueError{Feature: name}
			}
			row[i] = value
		}
		return row, known, nil
	}

	columns := make([]string, 0, len(form))
	for name := range form {
		columns = append(columns, name)
	}
	// Map iteration order is random; the forest consumes the row
	// positionally, so identical submissions must order identically.
	sort.Strings(columns)
	row := make([]float64, len(columns))
	for i, name := range columns {
		value, err := strconv.ParseFloat(form.Get(name), 64)
		if err != nil {
			return nil, nil, ErrInvalidRequest
		}
		row[i] = value
	}
	return row, columns, nil
}

// formatPrediction renders the price with thousands separators and exactly
// two decimals, e.g. 345,678.90.
func formatPrediction(value float64) string {
	return resultPrinter.Sprintf("%.2f", value)
}

func recordHistory(columns []string, row []float64, value float64) {
	if !db.Initialized() {
		return
	}
	features := make(map[string]float64, len(columns))
	for i, name := range columns {
		features[name] = row[i]
	}
	payload, err := json.Marshal(features)
	if err != nil {
		return
	}
	rec := db.PredictionRecord{
		Features:  string(payload),
		Value:     value,
		CreatedAt: time.Now(),
	}
	if err := db.SavePrediction(rec); err != nil {
		httpLogger.Warn("failed to record prediction history", zap.Error(err))
	}
}
