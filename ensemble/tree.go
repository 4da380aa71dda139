package ensemble

import "math"

// treeNode is one node of a fitted regression tree. Leaves carry Value
// already scaled by the learning rate.
type treeNode struct {
	Feature     int
	Threshold   float64
	MissingLeft bool
	Left        int
	Right       int
	Value       float64
	Count       int
	Gain        float64
	Depth       int
	Leaf        bool
}

// tree stores nodes in creation order; the root is nodes[0].
type tree struct {
	nodes []treeNode
}

// predict walks row from the root: NaN follows the learned missing
// direction, otherwise values <= Threshold go left.
func (t *tree) predict(row []float64) float64 {
	n := &t.nodes[0]
	for !n.Leaf {
		v := row[n.Feature]
		left := v <= n.Threshold
		if math.IsNaN(v) {
			left = n.MissingLeft
		}
		if left {
			n = &t.nodes[n.Left]
		} else {
			n = &t.nodes[n.Right]
		}
	}
	return n.Value
}

func (t *tree) leaves() int {
	count := 0
	for i := range t.nodes {
		if t.nodes[i].Leaf {
			count++
		}
	}
	return count
}

func (t *tree) depth() int {
	d := 0
	for i := range t.nodes {
		if t.nodes[i].Depth > d {
			d = t.nodes[i].Depth
		}
	}
	return d
}
