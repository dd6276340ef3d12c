package ml

import "math"

// MeanSquaredError computes the MSE between true and predicted targets.
func MeanSquaredError(yTrue, yPred []float64) float64 {
	n := len(yTrue)
	if n == 0 || n != len(yPred) {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return sum / float64(n)
}

// Evaluate scores a fitted forest on a held-out set and returns MSE and RMSE.
func Evaluate(f *Forest, x [][]float64, y []float64) (mse, rmse float64) {
	if len(x) == 0 {
		return 0, 0
	}
	preds := make([]float64, len(x))
	for i, row := range x {
		pred, err := f.PredictRow(row)
		if err != nil {
			return 0, 0
		}
		preds[i] = pred
	}
	mse = MeanSquaredError(y, preds)
	return mse, math.Sqrt(mse)
}
