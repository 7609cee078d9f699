package tree

import (
	"math"
	"math/rand/v2"
	"sort"
)

const (
	// 特徴量値がこれ以下しか違わない位置では分割しない
	featureThreshold = 1e-7
	// 不純度がこれ以下のノードは葉にする
	impurityEpsilon = 2.220446049250313e-16
)

// candidate は分割候補
type candidate struct {
	feature   int
	threshold float64
	proxy     float64
}

// builder grows one tree depth first. It owns scratch buffers and must not be
// shared between goroutines.
type builder struct {
	t       *DecisionTreeRegressor
	cols    [][]float64
	y       []float64
	rng     *rand.Rand
	maxFeat int
	nRoot   float64
	scratch []int
}

// meanImpurity は標本集合の平均と分散（MSE不純度）を返す
func meanImpurity(y []float64, samples []int) (mean, impurity float64) {
	var sum, sumSq float64
	for _, i := range samples {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	n := float64(len(samples))
	mean = sum / n
	impurity = sumSq/n - mean*mean
	if impurity < 0 {
		impurity = 0
	}
	return mean, impurity
}

func (b *builder) grow(samples []int, depth int) int {
	t := b.t
	n := len(samples)
	mean, impurity := meanImpurity(b.y, samples)

	id := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Value:    mean,
		NSamples: n,
		Impurity: impurity,
		Depth:    depth,
	})

	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return id
	}
	if n < t.MinSamplesSplit || n < 2*t.MinSamplesLeaf || impurity <= impurityEpsilon {
		return id
	}

	best, ok := b.bestSplit(samples)
	if !ok {
		return id
	}

	nLeft := partition(samples, b.cols[best.feature], best.threshold)
	left, right := samples[:nLeft], samples[nLeft:]
	_, impL := meanImpurity(b.y, left)
	_, impR := meanImpurity(b.y, right)

	fn := float64(n)
	decrease := fn / b.nRoot * (impurity - float64(len(left))/fn*impL - float64(len(right))/fn*impR)
	if decrease < t.MinImpurityDecrease {
		return id
	}

	t.importances[best.feature] += fn*impurity - float64(len(left))*impL - float64(len(right))*impR

	leftID := b.grow(left, depth+1)
	rightID := b.grow(right, depth+1)

	// appendで再確保されている可能性があるのでidで参照する
	node := &t.nodes[id]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = leftID
	node.Right = rightID
	return id
}

// bestSplit draws features in random order and evaluates every threshold
// between distinct consecutive values. Constant features are skipped without
// counting toward maxFeat. Ties keep the first candidate found.
func (b *builder) bestSplit(samples []int) (candidate, bool) {
	n := len(samples)
	minLeaf := b.t.MinSamplesLeaf

	var total float64
	for _, i := range samples {
		total += b.y[i]
	}

	best := candidate{feature: -1, proxy: math.Inf(-1)}
	order := b.scratch[:n]
	visited := 0

	for _, f := range b.rng.Perm(len(b.cols)) {
		if visited >= b.maxFeat {
			break
		}
		col := b.cols[f]
		copy(order, samples)
		sort.Slice(order, func(i, j int) bool { return col[order[i]] < col[order[j]] })

		if col[order[n-1]] <= col[order[0]]+featureThreshold {
			continue
		}
		visited++

		var sumL float64
		for i := 0; i < n-1; i++ {
			sumL += b.y[order[i]]
			lo, hi := col[order[i]], col[order[i+1]]
			if hi <= lo+featureThreshold {
				continue
			}
			nL := i + 1
			nR := n - nL
			if nL < minLeaf || nR < minLeaf {
				continue
			}
			sumR := total - sumL
			// 分散減少量から定数項を除いた代理指標
			proxy := sumL*sumL/float64(nL) + sumR*sumR/float64(nR)
			if proxy > best.proxy {
				threshold := lo/2 + hi/2
				if threshold == hi || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
					threshold = lo
				}
				best = candidate{feature: f, threshold: threshold, proxy: proxy}
			}
		}
	}
	return best, best.feature >= 0
}

// partition moves samples with x <= threshold to the front and returns how
// many there are. Relative order inside each side is preserved.
func partition(samples []int, col []float64, threshold float64) int {
	right := make([]int, 0, len(samples))
	k := 0
	for _, i := range samples {
		if col[i] <= threshold {
			samples[k] = i
			k++
		} else {
			right = append(right, i)
		}
	}
	copy(samples[k:], right)
	return k
}
