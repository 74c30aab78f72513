package classifier

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// forestConfig controls how a random forest is grown
type forestConfig struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64
}

func defaultForestConfig() forestConfig {
	return forestConfig{
		Trees:           100,
		MaxDepth:        32,
		MinSamplesSplit: 2,
		Seed:            42,
	}
}

// treeNode is a split node or, when Leaf is set, a class distribution
type treeNode struct {
	Leaf      bool      `json:"leaf,omitempty"`
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Dist      []float64 `json:"d,omitempty"`
}

type decisionTree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t *decisionTree) predict(x []float64) []float64 {
	i := 0
	for !t.Nodes[i].Leaf {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Dist
}

// validate checks that every path from the root ends in a leaf holding one
// probability per class. Children always follow their parent, which rules out cycles.
func (t *decisionTree) validate(nFeatures, nClasses int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			if len(n.Dist) != nClasses {
				return fmt.Errorf("leaf %d has %d probabilities, expected %d", i, len(n.Dist), nClasses)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d splits on unknown feature %d", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has out of range children %d and %d", i, n.Left, n.Right)
		}
	}
	return nil
}

// randomForest is a bagged ensemble of gini decision trees
type randomForest struct {
	Trees       []decisionTree `json:"trees"`
	Classes     int            `json:"classes"`
	Importances []float64      `json:"importances"` // mean decrease in impurity, sums to 1
}

// fitForest grows cfg.Trees trees on bootstrap samples. Each split considers a
// random subset of sqrt(nFeatures) features. Growth is fully determined by cfg.Seed.
func fitForest(X [][]float64, y []int, nClasses int, cfg forestConfig) *randomForest {
	nFeatures := len(X[0])
	maxFeatures := int(math.Sqrt(float64(nFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	forest := &randomForest{
		Trees:       make([]decisionTree, 0, cfg.Trees),
		Classes:     nClasses,
		Importances: make([]float64, nFeatures),
	}

	for t := 0; t < cfg.Trees; t++ {
		sample := make([]int, len(X))
		for i := range sample {
			sample[i] = rng.Intn(len(X))
		}

		b := &treeBuilder{
			X:           X,
			y:           y,
			classes:     nClasses,
			maxFeatures: maxFeatures,
			cfg:         cfg,
			rng:         rng,
			importance:  make([]float64, nFeatures),
		}
		b.grow(sample, 0)
		forest.Trees = append(forest.Trees, decisionTree{Nodes: b.nodes})

		addNormalized(forest.Importances, b.importance)
	}

	normalize(forest.Importances)
	return forest
}

func (f *randomForest) validate(nFeatures, nClasses int) error {
	if f.Classes != nClasses {
		return fmt.Errorf("forest has %d classes, expected %d", f.Classes, nClasses)
	}
	if len(f.Importances) != nFeatures {
		return fmt.Errorf("forest has %d importances, expected %d", len(f.Importances), nFeatures)
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(nFeatures, nClasses); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// predictProba averages the leaf distributions of all trees
func (f *randomForest) predictProba(x []float64) []float64 {
	out := make([]float64, f.Classes)
	if len(f.Trees) == 0 {
		for i := range out {
			out[i] = 1 / float64(f.Classes)
		}
		return out
	}
	for i := range f.Trees {
		for c, p := range f.Trees[i].predict(x) {
			out[c] += p
		}
	}
	for c := range out {
		out[c] /= float64(len(f.Trees))
	}
	return out
}

type treeBuilder struct {
	X           [][]float64
	y           []int
	classes     int
	maxFeatures int
	cfg         forestConfig
	rng         *rand.Rand
	nodes       []treeNode
	importance  []float64
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	node := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{})

	counts := b.classCounts(idx)
	if len(idx) < b.cfg.MinSamplesSplit || depth >= b.cfg.MaxDepth || isPure(counts) {
		b.nodes[node] = leaf(counts, len(idx))
		return node
	}

	best, ok := b.bestSplit(idx, counts)
	if !ok {
		b.nodes[node] = leaf(counts, len(idx))
		return node
	}
	b.importance[best.feature] += best.gain

	var left, right []int
	for _, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[node] = treeNode{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r}
	return node
}

// bestSplit scans a random subset of features, extending past constant ones
// until maxFeatures informative features were examined.
func (b *treeBuilder) bestSplit(idx []int, parent []float64) (split, bool) {
	n := float64(len(idx))
	parentImpurity := n * gini(parent, n)

	best := split{gain: 0}
	found := false
	examined := 0

	sorted := make([]int, len(idx))
	for _, f := range b.rng.Perm(len(b.X[0])) {
		if examined >= b.maxFeatures {
			break
		}

		copy(sorted, idx)
		slices.SortStableFunc(sorted, func(a, c int) int {
			switch {
			case b.X[a][f] < b.X[c][f]:
				return -1
			case b.X[a][f] > b.X[c][f]:
				return 1
			}
			return 0
		})
		if b.X[sorted[0]][f] == b.X[sorted[len(sorted)-1]][f] {
			continue
		}
		examined++

		left := make([]float64, b.classes)
		right := append([]float64(nil), parent...)
		for k := 0; k < len(sorted)-1; k++ {
			c := b.y[sorted[k]]
			left[c]++
			right[c]--

			lo, hi := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			gain := parentImpurity - nl*gini(left, nl) - nr*gini(right, nr)
			if gain > best.gain+1e-12 {
				threshold := lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func (b *treeBuilder) classCounts(idx []int) []float64 {
	counts := make([]float64, b.classes)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

func leaf(counts []float64, n int) treeNode {
	dist := make([]float64, len(counts))
	for c, v := range counts {
		dist[c] = v / float64(n)
	}
	return treeNode{Leaf: true, Dist: dist}
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range counts {
		p := v / n
		sum += p * p
	}
	return 1 - sum
}

func isPure(counts []float64) bool {
	nonZero := 0
	for _, v := range counts {
		if v > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// addNormalized adds src, scaled to sum 1, into dst
func addNormalized(dst, src []float64) {
	sum := 0.0
	for _, v := range src {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i, v := range src {
		dst[i] += v / sum
	}
}

func normalize(v []float64) {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum == 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}
