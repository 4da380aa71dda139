package ensemble

import "container/heap"

// growNode is a node under construction. Splittable nodes wait in the heap
// with their histogram and best split.
type growNode struct {
	id      int
	idx     []int
	sumGrad float64
	depth   int
	hist    histogram
	split   splitInfo
}

// splitQueue is a max-heap on split gain; ties go to the older node.
type splitQueue []*growNode

func (q splitQueue) Len() int { return len(q) }
func (q splitQueue) Less(i, j int) bool {
	if q[i].split.gain != q[j].split.gain {
		return q[i].split.gain > q[j].split.gain
	}
	return q[i].id < q[j].id
}
func (q splitQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *splitQueue) Push(x any) { *q = append(*q, x.(*growNode)) }
func (q *splitQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}

// grower builds one tree leaf-wise: the pending node with the largest gain
// is split first until the leaf budget is spent.
type grower struct {
	splitter
	binned       [][]uint8
	grad         []float64
	nBins        int
	maxLeafNodes int
	maxDepth     int
	learningRate float64
	workers      int

	tree   *tree
	queue  splitQueue
	leaves []*growNode
	nLeaf  int
}

// grow fits a tree to the gradients of the samples in idx. It returns the
// tree and the finalised leaves so the caller can update its raw
// predictions without re-walking the tree.
func (g *grower) grow(idx []int) (*tree, []*growNode) {
	g.tree = &tree{}
	g.queue = g.queue[:0]
	g.leaves = nil
	g.nLeaf = 1

	var sumGrad float64
	for _, i := range idx {
		sumGrad += g.grad[i]
	}
	root := g.newNode(idx, sumGrad, 0)
	if g.canSplit(root) {
		root.hist = buildHistogram(g.binned, idx, g.grad, g.nBins, g.workers)
		g.consider(root)
	} else {
		g.finalize(root)
	}

	for g.queue.Len() > 0 {
		node := heap.Pop(&g.queue).(*growNode)
		left, right := g.splitNode(node)
		g.nLeaf++

		if g.maxLeafNodes > 0 && g.nLeaf >= g.maxLeafNodes {
			g.finalize(left)
			g.finalize(right)
			for g.queue.Len() > 0 {
				g.finalize(heap.Pop(&g.queue).(*growNode))
			}
			break
		}

		splitLeft, splitRight := g.canSplit(left), g.canSplit(right)
		if splitLeft || splitRight {
			small, large := left, right
			if len(right.idx) < len(left.idx) {
				small, large = right, left
			}
			small.hist = buildHistogram(g.binned, small.idx, g.grad, g.nBins, g.workers)
			large.hist = node.hist.subtract(small.hist)
		}
		node.hist = nil

		for _, child := range []*growNode{left, right} {
			if g.canSplit(child) {
				g.consider(child)
			} else {
				g.finalize(child)
			}
		}
	}
	return g.tree, g.leaves
}

func (g *grower) newNode(idx []int, sumGrad float64, depth int) *growNode {
	id := len(g.tree.nodes)
	g.tree.nodes = append(g.tree.nodes, treeNode{Count: len(idx), Depth: depth, Leaf: true})
	return &growNode{id: id, idx: idx, sumGrad: sumGrad, depth: depth}
}

func (g *grower) canSplit(n *growNode) bool {
	if g.maxDepth > 0 && n.depth >= g.maxDepth {
		return false
	}
	return len(n.idx) >= 2*g.minSamplesLeaf
}

// consider queues n when it has a split with positive gain.
func (g *grower) consider(n *growNode) {
	split, ok := g.bestSplit(n.hist, n.sumGrad, len(n.idx))
	if !ok {
		g.finalize(n)
		return
	}
	n.split = split
	heap.Push(&g.queue, n)
}

func (g *grower) finalize(n *growNode) {
	n.hist = nil
	tn := &g.tree.nodes[n.id]
	tn.Leaf = true
	tn.Value = g.learningRate * g.leafValue(n.sumGrad, len(n.idx))
	g.leaves = append(g.leaves, n)
}

// splitNode partitions the samples of n by its split and records the
// internal node.
func (g *grower) splitNode(n *growNode) (left, right *growNode) {
	s := n.split
	col := g.binned[s.feature]
	missing := uint8(g.bins.missingBin)

	leftIdx := make([]int, 0, s.leftCount)
	rightIdx := make([]int, 0, s.rightCount)
	for _, i := range n.idx {
		b := col[i]
		goLeft := int(b) <= s.bin
		if b == missing {
			goLeft = s.missingLeft
		}
		if goLeft {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	left = g.newNode(leftIdx, s.leftGrad, n.depth+1)
	right = g.newNode(rightIdx, s.rightGrad, n.depth+1)

	tn := &g.tree.nodes[n.id]
	tn.Leaf = false
	tn.Feature = s.feature
	tn.Threshold = s.threshold
	tn.MissingLeft = s.missingLeft
	tn.Gain = s.gain
	tn.Left = left.id
	tn.Right = right.id
	n.idx = nil
	return left, right
}
