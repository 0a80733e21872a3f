package forecast

import (
	"math/rand"
	"sort"
)

// regressionTree is a CART-style tree fitted by variance reduction.
// Both tree ensembles are built from these.
type regressionTree struct {
	root       *treeNode
	importance []float64
}

type treeNode struct {
	left      *treeNode
	right     *treeNode
	feature   int
	threshold float64
	value     float64
}

func (n *treeNode) isLeaf() bool { return n.left == nil }

type treeParams struct {
	maxDepth    int
	minLeaf     int
	maxFeatures int // 0 means consider every feature at each split
}

// fitTree builds a tree over the rows selected by idx. rng drives the
// per-split feature subsample when maxFeatures is set.
func fitTree(rows [][]float64, targets []float64, idx []int, p treeParams, rng *rand.Rand) *regressionTree {
	t := &regressionTree{importance: make([]float64, len(rows[0]))}
	t.root = t.grow(rows, targets, idx, 0, p, rng)
	return t
}

func (t *regressionTree) grow(rows [][]float64, targets []float64, idx []int, depth int, p treeParams, rng *rand.Rand) *treeNode {
	if depth >= p.maxDepth || len(idx) < 2*p.minLeaf {
		return &treeNode{value: meanAt(targets, idx)}
	}

	feature, threshold, gain := t.bestSplit(rows, targets, idx, p, rng)
	if gain <= 0 {
		return &treeNode{value: meanAt(targets, idx)}
	}
	t.importance[feature] += gain

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if rows[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      t.grow(rows, targets, left, depth+1, p, rng),
		right:     t.grow(rows, targets, right, depth+1, p, rng),
	}
}

// bestSplit scans candidate features for the threshold with the
// largest reduction in sum of squared errors. Thresholds are midpoints
// between consecutive distinct feature values.
func (t *regressionTree) bestSplit(rows [][]float64, targets []float64, idx []int, p treeParams, rng *rand.Rand) (int, float64, float64) {
	nFeat := len(rows[0])
	candidates := featureCandidates(nFeat, p.maxFeatures, rng)

	var totalSum, totalSq float64
	for _, i := range idx {
		totalSum += targets[i]
		totalSq += targets[i] * targets[i]
	}
	n := float64(len(idx))
	parentSSE := totalSq - totalSum*totalSum/n

	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	order := make([]int, len(idx))

	for _, f := range candidates {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return rows[order[a]][f] < rows[order[b]][f] })

		var leftSum, leftSq float64
		leftN := 0.0
		for pos := 0; pos < len(order)-1; pos++ {
			i := order[pos]
			leftSum += targets[i]
			leftSq += targets[i] * targets[i]
			leftN++

			cur := rows[i][f]
			next := rows[order[pos+1]][f]
			if cur == next {
				continue
			}
			if int(leftN) < p.minLeaf || len(order)-int(leftN) < p.minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			rightN := n - leftN
			sse := (leftSq - leftSum*leftSum/leftN) + (rightSq - rightSum*rightSum/rightN)
			gain := parentSSE - sse
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, 0
	}
	return bestFeature, bestThreshold, bestGain
}

func (t *regressionTree) predict(row []float64) float64 {
	node := t.root
	for !node.isLeaf() {
		if row[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

// featureCandidates returns all feature indices, or a random subset of
// size maxFeatures drawn without replacement.
func featureCandidates(nFeat, maxFeatures int, rng *rand.Rand) []int {
	all := make([]int, nFeat)
	for i := range all {
		all[i] = i
	}
	if maxFeatures <= 0 || maxFeatures >= nFeat {
		return all
	}
	rng.Shuffle(nFeat, func(a, b int) { all[a], all[b] = all[b], all[a] })
	sub := all[:maxFeatures]
	sort.Ints(sub)
	return sub
}

func meanAt(targets []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += targets[i]
	}
	return sum / float64(len(idx))
}
