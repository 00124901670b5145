package imagehash

import "sort"

// BKTree indexes fingerprints under the Hamming metric so near-duplicate
// lookup avoids scanning the whole catalogue. Zero value is ready to use.
// Not safe for concurrent mutation; build it, then share it read-only.
type BKTree struct {
	root *bkNode
	size int
}

type bkNode struct {
	hash     uint64
	ids      []int64
	children map[int]*bkNode
}

// Match is a fingerprint found within the search radius.
type Match struct {
	ID       int64
	Hash     uint64
	Distance int
}

// Len returns the number of inserted fingerprints.
func (t *BKTree) Len() int { return t.size }

// Insert adds a fingerprint with its owning image ID. Identical hashes share
// a node.
func (t *BKTree) Insert(hash uint64, id int64) {
	t.size++
	if t.root == nil {
		t.root = &bkNode{hash: hash, ids: []int64{id}}
		return
	}
	node := t.root
	for {
		d := Distance(hash, node.hash)
		if d == 0 {
			node.ids = append(node.ids, id)
			return
		}
		if node.children == nil {
			node.children = make(map[int]*bkNode)
		}
		child, ok := node.children[d]
		if !ok {
			node.children[d] = &bkNode{hash: hash, ids: []int64{id}}
			return
		}
		node = child
	}
}

// Within returns every indexed fingerprint at Hamming distance ≤ radius from
// hash, ordered by distance then ID so results are stable.
func (t *BKTree) Within(hash uint64, radius int) []Match {
	if t.root == nil || radius < 0 {
		return nil
	}

	var matches []Match
	stack := []*bkNode{t.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		d := Distance(hash, node.hash)
		if d <= radius {
			for _, id := range node.ids {
				matches = append(matches, Match{ID: id, Hash: node.hash, Distance: d})
			}
		}
		// Triangle inequality: only edges in [d-radius, d+radius] can
		// hold matches.
		for edge, child := range node.children {
			if edge >= d-radius && edge <= d+radius {
				stack = append(stack, child)
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	return matches
}
