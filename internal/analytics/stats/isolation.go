package stats

import (
	"math/rand"
)

// RandomSource is the randomness used by the isolation forest.
// *rand.Rand satisfies it, which lets tests fix a seed.
type RandomSource interface {
	Float64() float64
	Intn(n int) int
}

// GlobalSource draws from the math/rand top-level generator and is safe for
// concurrent use.
type GlobalSource struct{}

func (GlobalSource) Float64() float64 { return rand.Float64() }
func (GlobalSource) Intn(n int) int   { return rand.Intn(n) }

type isoNode struct {
	feature     int
	split       float64
	left, right *isoNode
	depth       int
}

func (n *isoNode) leaf() bool { return n.left == nil && n.right == nil }

// IsolationForestLite scores each feature vector by its average path length
// across nTrees random trees, each grown on a sample drawn without
// replacement of min(sampleSize, n) points. Scores are divided by the largest
// average observed, so they are relative rankings in [0,1], not the
// canonical c(n)-normalised anomaly score.
func IsolationForestLite(features [][]float64, nTrees, sampleSize int, rng RandomSource) []float64 {
	n := len(features)
	scores := make([]float64, n)
	if n == 0 || nTrees <= 0 {
		return scores
	}
	if rng == nil {
		rng = GlobalSource{}
	}

	for t := 0; t < nTrees; t++ {
		idx := sampleIndices(n, sampleSize, rng)
		sample := make([][]float64, len(idx))
		for i, j := range idx {
			sample[i] = features[j]
		}
		root := growTree(sample, 0, len(sample), rng)
		for i, point := range features {
			scores[i] += float64(pathLength(root, point))
		}
	}

	var top float64
	for i := range scores {
		scores[i] /= float64(nTrees)
		if scores[i] > top {
			top = scores[i]
		}
	}
	if top == 0 {
		return scores
	}
	for i := range scores {
		scores[i] /= top
	}
	return scores
}

// growTree splits on a random dimension at a random member's value until a
// partition holds at most one point. maxDepth bounds runs of non-separating
// splits on duplicate-heavy data.
func growTree(data [][]float64, depth, maxDepth int, rng RandomSource) *isoNode {
	node := &isoNode{depth: depth}
	if len(data) <= 1 || depth >= maxDepth || allIdentical(data) {
		return node
	}

	dims := len(data[0])
	if dims == 0 {
		return node
	}
	node.feature = rng.Intn(dims)
	node.split = data[rng.Intn(len(data))][node.feature]

	var left, right [][]float64
	for _, d := range data {
		if d[node.feature] < node.split {
			left = append(left, d)
		} else {
			right = append(right, d)
		}
	}
	node.left = growTree(left, depth+1, maxDepth, rng)
	node.right = growTree(right, depth+1, maxDepth, rng)
	return node
}

func pathLength(node *isoNode, point []float64) int {
	for !node.leaf() {
		if node.feature < len(point) && point[node.feature] < node.split {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.depth
}

func allIdentical(data [][]float64) bool {
	first := data[0]
	for _, d := range data[1:] {
		for k := range first {
			if k >= len(d) || d[k] != first[k] {
				return false
			}
		}
	}
	return true
}

// sampleIndices draws min(size, total) distinct indices
func sampleIndices(total, size int, rng RandomSource) []int {
	if size > total {
		size = total
	}
	pool := make([]int, total)
	for i := range pool {
		pool[i] = i
	}
	out := make([]int, 0, size)
	for i := 0; i < size; i++ {
		j := rng.Intn(len(pool))
		out = append(out, pool[j])
		pool[j] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	return out
}
