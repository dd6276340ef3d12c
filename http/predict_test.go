package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"cornerstone/artifact"
	"cornerstone/inference"
	"cornerstone/ml"
)

const testTemplate = `<!DOCTYPE html><html><body>
{{if .Notice}}<div class="notice">{{.Notice}}</div>{{end}}
<form action="/cornerstone-predict" method="POST">
{{range .Cols}}<input name="{{.}}">{{end}}
</form>
{{if .Result}}<div class="result">{{.Result}}</div>{{end}}
</body></html>`

func writeTemplate(t *testing.T, baseDir string) {
	t.Helper()
	dir := filepath.Join(baseDir, "templates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(testTemplate), 0o600); err != nil {
		t.Fatal(err)
	}
}

func writeServingArtifacts(t *testing.T, dir string) {
	t.Helper()
	cfg := ml.DefaultTrainingConfig()
	cfg.TreeCount = 5
	cfg.MaxDepth = 4

	// Seven feature columns matching the default configuration.
	x := [][]float64{
		{7, 1800, 2005, 900, 2, 3, 2},
		{5, 1200, 1970, 600, 1, 2, 1},
		{8, 2400, 2010, 1200, 2, 4, 3},
		{6, 1500, 1990, 800, 2, 3, 2},
		{4, 900, 1955, 500, 1, 2, 1},
		{9, 2800, 2015, 1400, 3, 4, 3},
	}
	y := []float64{210000, 130000, 320000, 180000, 100000, 400000}
	forest, err := ml.Fit(x, y, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	medians := []float64{6.5, 1650, 1997.5, 850, 2, 3, 2}
	pipeline, err := ml.NewPipeline(forest, medians)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := artifact.SavePipeline(pipeline, filepath.Join(dir, cfg.PipelineArtifact)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := artifact.SaveColumns(cfg.Features, filepath.Join(dir, cfg.ColumnsArtifact)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func newTestMux(t *testing.T, baseDir string) *http.ServeMux {
	t.Helper()
	front, err := newFrontend(baseDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mux := http.NewServeMux()
	RegisterHandlers(mux, front)
	return mux
}

func postForm(mux *http.ServeMux, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/cornerstone-predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func fullForm() url.Values {
	return url.Values{
		"OverallQual":  {"7"},
		"GrLivArea":    {"1800"},
		"YearBuilt":    {"2005"},
		"TotalBsmtSF":  {"900"},
		"FullBath":     {"2"},
		"BedroomAbvGr": {"3"},
		"GarageCars":   {"2"},
	}
}

func TestPredictServiceUnavailableRedirects(t *testing.T) {
	baseDir := t.TempDir()
	writeTemplate(t, baseDir)
	SetInferenceService(inference.Initialize(baseDir, nil)) // no artifacts
	defer SetInferenceService(nil)

	mux := newTestMux(t, baseDir)
	w := postForm(mux, url.Values{"OverallQual": {"not-even-parsed"}})

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "/?notice=") {
		t.Fatalf("unexpected redirect target: %s", location)
	}
	if !strings.Contains(location, url.QueryEscape("unavailable")) {
		t.Fatalf("notice missing from redirect: %s", location)
	}
}

func TestPredictSuccessFormatsResult(t *testing.T) {
	baseDir := t.TempDir()
	writeTemplate(t, baseDir)
	writeServingArtifacts(t, baseDir)
	SetInferenceService(inference.Initialize(baseDir, nil))
	defer SetInferenceService(nil)

	mux := newTestMux(t, baseDir)
	w := postForm(mux, fullForm())

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "Error:") {
		t.Fatalf("unexpected error in body: %s", body)
	}
	// Training targets are six figures, so the result must carry a
	// thousands separator and two decimals.
	if !strings.Contains(body, ",") || !strings.Contains(body, ".") {
		t.Fatalf("result not formatted with separators: %s", body)
	}
}

func TestPredictMissingFieldDefaultsToZero(t *testing.T) {
	baseDir := t.TempDir()
	writeTemplate(t, baseDir)
	writeServingArtifacts(t, baseDir)
	SetInferenceService(inference.Initialize(baseDir, nil))
	defer SetInferenceService(nil)

	form := fullForm()
	form.Del("GarageCars")

	mux := newTestMux(t, baseDir)
	w := postForm(mux, form)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "Error:") {
		t.Fatalf("omitted field should default to zero, got: %s", w.Body.String())
	}
}

func TestPredictBlankFieldIsAnError(t *testing.T) {
	baseDir := t.TempDir()
	writeTemplate(t, baseDir)
	writeServingArtifacts(t, baseDir)
	SetInferenceService(inference.Initialize(baseDir, nil))
	defer SetInferenceService(nil)

	// Present-but-blank is an invalid value; only a field absent from the
	// submission defaults to zero.
	form := fullForm()
	form.Set("OverallQual", "")

	mux := newTestMux(t, baseDir)
	w := postForm(mux, form)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Error:") {
		t.Fatalf("blank field should not predict, got: %s", body)
	}
	if !strings.Contains(body, "OverallQual") {
		t.Fatalf("error does not name the blank feature: %s", body)
	}
}

func TestBuildFeatureRowMissingVsBlank(t *testing.T) {
	known := []string{"OverallQual", "GarageCars"}

	row, _, err := buildFeatureRow(url.Values{"OverallQual": {"7"}}, known)
	if err != nil {
		t.Fatalf("absent field should default to zero: %v", err)
	}
	if row[1] != 0 {
		t.Fatalf("expected GarageCars 0, got %f", row[1])
	}

	_, _, err = buildFeatureRow(url.Values{"OverallQual": {"7"}, "GarageCars": {""}}, known)
	var invalid *InvalidFeatureValueError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidFeatureValueError for blank field, got %v", err)
	}
	if invalid.Feature != "GarageCars" {
		t.Fatalf("error names wrong feature: %s", invalid.Feature)
	}
}

func TestPredictNonNumericFieldIsHandled(t *testing.T) {
	baseDir := t.TempDir()
	writeTemplate(t, baseDir)
	writeServingArtifacts(t, baseDir)
	SetInferenceService(inference.Initialize(baseDir, nil))
	defer SetInferenceService(nil)

	form := fullForm()
	form.Set("OverallQual", "abc")

	mux := newTestMux(t, baseDir)
	w := postForm(mux, form)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Error:") {
		t.Fatalf("expected Error: message, got: %s", body)
	}
	if !strings.Contains(body, "OverallQual") {
		t.Fatalf("error does not name the offending feature: %s", body)
	}
}

func TestConcurrentPredictRequests(t *testing.T) {
	baseDir := t.TempDir()
	writeTemplate(t, baseDir)
	writeServingArtifacts(t, baseDir)
	SetInferenceService(inference.Initialize(baseDir, nil))
	defer SetInferenceService(nil)

	mux := newTestMux(t, baseDir)
	want := postForm(mux, fullForm()).Body.String()

	var wg sync.WaitGroup
	bodies := make([]string, 16)
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bodies[i] = postForm(mux, fullForm()).Body.String()
		}(i)
	}
	wg.Wait()

	for i, body := range bodies {
		if body != want {
			t.Fatalf("request %d produced a different response", i)
		}
	}
}

func TestBuildFeatureRowFallbackMode(t *testing.T) {
	form := url.Values{"a": {"1.5"}, "b": {"2"}}
	row, columns, err := buildFeatureRow(form, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(row) != 2 || len(columns) != 2 {
		t.Fatalf("unexpected row shape: %v %v", row, columns)
	}

	form.Set("b", "oops")
	if _, _, err := buildFeatureRow(form, nil); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestBuildFeatureRowFallbackStableOrder(t *testing.T) {
	form := url.Values{
		"GrLivArea": {"1800"}, "OverallQual": {"7"}, "YearBuilt": {"2005"},
		"TotalBsmtSF": {"900"}, "FullBath": {"2"}, "BedroomAbvGr": {"3"},
		"GarageCars": {"2"},
	}

	first, columns, err := buildFeatureRow(form, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sort.StringsAreSorted(columns) {
		t.Fatalf("fallback columns not in deterministic order: %v", columns)
	}

	// The row feeds the forest positionally; identical submissions must
	// order identically every time.
	for i := 0; i < 50; i++ {
		row, cols, err := buildFeatureRow(form, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for j := range cols {
			if cols[j] != columns[j] || row[j] != first[j] {
				t.Fatalf("iteration %d reordered the row: %v vs %v", i, cols, columns)
			}
		}
	}
}

func TestFormatPrediction(t *testing.T) {
	if got := formatPrediction(345678.9); got != "345,678.90" {
		t.Fatalf("expected 345,678.90, got %s", got)
	}
	if got := formatPrediction(42); got != "42.00" {
		t.Fatalf("expected 42.00, got %s", got)
	}
}
