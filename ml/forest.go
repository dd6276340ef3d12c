package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// TreeNode is one node of a regression tree. Leaves have Feature == -1 and
// carry the mean target of their samples in Value.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
	Value     float64
}

// Forest is a bagged ensemble of regression trees. Prediction is the mean of
// the per-tree predictions.
type Forest struct {
	Trees        []*TreeNode
	FeatureCount int
}

// Fit trains a forest of cfg.TreeCount trees on bootstrap samples of the
// training set. All randomness flows from cfg.Seed, so identical inputs and
// config reproduce an identical forest.
func Fit(trainX [][]float64, trainY []float64, cfg TrainingConfig) (*Forest, error) {
	if len(trainX) == 0 || len(trainY) == 0 {
		return nil, errors.New("training set is empty")
	}
	if len(trainX) != len(trainY) {
		return nil, errors.New("features and targets size mismatch")
	}
	if cfg.TreeCount <= 0 {
		return nil, errors.New("tree count must be positive")
	}

	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 12
	}
	minSamples := cfg.MinSamplesSplit
	if minSamples < 2 {
		minSamples = 2
	}

	forest := &Forest{
		Trees:        make([]*TreeNode, cfg.TreeCount),
		FeatureCount: len(trainX[0]),
	}
	rnd := rand.New(rand.NewSource(cfg.Seed))
	for i := 0; i < cfg.TreeCount; i++ {
		forest.Trees[i] = fitSingleTree(trainX, trainY, maxDepth, minSamples, rnd)
	}
	return forest, nil
}

// PredictRow evaluates the forest on one feature vector.
func (f *Forest) PredictRow(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, errors.New("forest not trained")
	}
	if len(x) != f.FeatureCount {
		return 0, errors.New("feature vector length mismatch")
	}
	sum := 0.0
	for _, tree := range f.Trees {
		sum += predictTree(tree, x)
	}
	return sum / float64(len(f.Trees)), nil
}

func fitSingleTree(trainX [][]float64, trainY []float64, maxDepth, minSamples int, rnd *rand.Rand) *TreeNode {
	n := len(trainY)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = rnd.Intn(n)
	}
	sampleX, sampleY := subsetXY(trainX, trainY, indices)
	return buildTree(sampleX, sampleY, maxDepth, minSamples)
}

func buildTree(x [][]float64, y []float64, depth, minSamples int) *TreeNode {
	if len(y) < minSamples || depth == 0 {
		return &TreeNode{Feature: -1, Value: mean(y)}
	}

	bestFeature, bestThreshold, leftIdx, rightIdx, ok := findBestSplit(x, y)
	if !ok {
		return &TreeNode{Feature: -1, Value: mean(y)}
	}

	leftX, leftY := subsetXY(x, y, leftIdx)
	rightX, rightY := subsetXY(x, y, rightIdx)
	return &TreeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      buildTree(leftX, leftY, depth-1, minSamples),
		Right:     buildTree(rightX, rightY, depth-1, minSamples),
	}
}

func findBestSplit(x [][]float64, y []float64) (feature int, threshold float64, leftIdx, rightIdx []int, ok bool) {
	nSamples := len(y)
	nFeatures := len(x[0])
	bestScore := math.Inf(1)
	feature = -1

	for f := 0; f < nFeatures; f++ {
		values := make([]float64, nSamples)
		for i := range x {
			values[i] = x[i][f]
		}
		unique := sortedUnique(values)
		if len(unique) < 2 {
			continue
		}
		for i := 0; i < len(unique)-1; i++ {
			thr := (unique[i] + unique[i+1]) / 2
			lIdx := make([]int, 0, nSamples/2)
			rIdx := make([]int, 0, nSamples/2)
			for j := 0; j < nSamples; j++ {
				if x[j][f] <= thr {
					lIdx = append(lIdx, j)
				} else {
					rIdx = append(rIdx, j)
				}
			}
			if len(lIdx) == 0 || len(rIdx) == 0 {
				continue
			}
			score := weightedVariance(y, lIdx, rIdx)
			if score < bestScore {
				bestScore = score
				feature = f
				threshold = thr
				leftIdx = lIdx
				rightIdx = rIdx
			}
		}
	}
	if feature == -1 {
		return -1, 0, nil, nil, false
	}
	return feature, threshold, leftIdx, rightIdx, true
}

func predictTree(node *TreeNode, x []float64) float64 {
	if node.Feature == -1 || node.Left == nil || node.Right == nil {
		return node.Value
	}
	if x[node.Feature] <= node.Threshold {
		return predictTree(node.Left, x)
	}
	return predictTree(node.Right, x)
}

func weightedVariance(y []float64, leftIdx, rightIdx []int) float64 {
	left := indexSlice(y, leftIdx)
	right := indexSlice(y, rightIdx)
	return float64(len(left))*variance(left) + float64(len(right))*variance(right)
}

func subsetXY(x [][]float64, y []float64, indices []int) ([][]float64, []float64) {
	xs := make([][]float64, len(indices))
	ys := make([]float64, len(indices))
	for i, idx := range indices {
		xs[i] = x[idx]
		ys[i] = y[idx]
	}
	return xs, ys
}

func indexSlice(values []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = values[idx]
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

func sortedUnique(values []float64) []float64 {
	seen := make(map[float64]struct{}, len(values))
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
