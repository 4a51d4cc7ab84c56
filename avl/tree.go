// Package avl implements an AVL tree keyed by byte strings. Every node keeps
// a balance factor (diff) equal to height(right) - height(left), and the
// factors are recombined in closed form on rotation instead of recomputing
// subtree heights.
//
// Tree is not safe for concurrent use.
package avl

import (
	"bytes"
)

type node struct {
	left, right *node
	diff        int

	key   []byte
	value []byte
}

// Tree is an AVL tree. The zero value is an empty tree ready to use.
type Tree struct {
	root  *node
	count int
}

// New creates an empty tree.
func New() *Tree {
	return &Tree{}
}

// Len returns the number of keys in the tree.
func (t *Tree) Len() int {
	return t.count
}

// Reset drops every node.
func (t *Tree) Reset() {
	t.root = nil
	t.count = 0
}

// Insert stores value under key. An existing key gets its value overwritten
// in place without any structural change. The result reports whether the
// height of the tree changed.
//
// The tree keeps key and value as given, callers must not modify them
// afterwards.
func (t *Tree) Insert(key, value []byte) bool {
	var grown bool
	t.root, grown = t.insert(t.root, key, value)
	return grown
}

func (t *Tree) insert(a *node, key, value []byte) (*node, bool) {
	if a == nil {
		t.count++
		return &node{key: key, value: value}, true
	}

	var grown bool
	switch c := bytes.Compare(key, a.key); {
	case c == 0:
		a.value = value
		return a, false
	case c > 0:
		if a.right, grown = t.insert(a.right, key, value); grown {
			a.diff++
			if a.diff == 1 {
				return a, true
			}
		}
	default:
		if a.left, grown = t.insert(a.left, key, value); grown {
			a.diff--
			if a.diff == -1 {
				return a, true
			}
		}
	}

	if a.diff != 0 {
		a, _ = balance(a)
	}
	return a, false
}

// Remove deletes key from the tree, removing an absent key is a no-op. The
// result reports whether the height of the tree changed.
func (t *Tree) Remove(key []byte) bool {
	var shrunk bool
	t.root, shrunk = t.remove(t.root, key)
	return shrunk
}

func (t *Tree) remove(a *node, key []byte) (*node, bool) {
	if a == nil {
		return nil, false
	}

	var shrunk bool
	switch c := bytes.Compare(key, a.key); {
	case c == 0:
		t.count--
		return removeRoot(a)
	case c > 0:
		if a.right, shrunk = t.remove(a.right, key); shrunk {
			a.diff--
			if a.diff == 0 {
				return a, true
			}
		}
	default:
		if a.left, shrunk = t.remove(a.left, key); shrunk {
			a.diff++
			if a.diff == 0 {
				return a, true
			}
		}
	}

	if a.diff != 0 {
		return rebalanceShrunk(a)
	}
	return a, false
}

// removeRoot removes a itself from the subtree rooted at a. With two children
// the in-order successor is unlinked from the right subtree and its contents
// move into a, which keeps its own diff.
func removeRoot(a *node) (*node, bool) {
	if a.left == nil {
		return a.right, true
	}
	if a.right == nil {
		return a.left, true
	}

	right, successor, shrunk := unlinkLeft(a.right)
	a.right = right
	a.key, a.value = successor.key, successor.value

	if shrunk {
		a.diff--
		if a.diff == 0 {
			return a, true
		}
	}
	if a.diff != 0 {
		return rebalanceShrunk(a)
	}
	return a, false
}

// unlinkLeft detaches the left-most node of the subtree rooted at a and
// returns the new subtree root, the detached node and whether the subtree
// height shrank.
func unlinkLeft(a *node) (*node, *node, bool) {
	if a.left == nil {
		right := a.right
		a.right = nil
		return right, a, true
	}

	left, leftmost, shrunk := unlinkLeft(a.left)
	a.left = left
	if shrunk {
		a.diff++
		if a.diff == 0 {
			return a, leftmost, true
		}
	}
	if a.diff != 0 {
		b, s := rebalanceShrunk(a)
		return b, leftmost, s
	}
	return a, leftmost, false
}

// rebalanceShrunk rebalances a after one of its subtrees shrank. The height
// of the subtree shrank too only when a rotation left its new root balanced.
func rebalanceShrunk(a *node) (*node, bool) {
	b, rotated := balance(a)
	return b, rotated && b.diff == 0
}

// Search returns the value stored under key. The returned slice is owned by
// the tree.
func (t *Tree) Search(key []byte) ([]byte, bool) {
	a := t.root
	for a != nil {
		switch c := bytes.Compare(key, a.key); {
		case c == 0:
			return a.value, true
		case c > 0:
			a = a.right
		default:
			a = a.left
		}
	}

	return nil, false
}

// Height returns the height of the tree, an empty tree has height 0.
func (t *Tree) Height() int {
	h := 0
	// the balance factors point at the taller side, no need to visit both.
	for a := t.root; a != nil; h++ {
		if a.diff > 0 {
			a = a.right
		} else {
			a = a.left
		}
	}
	return h
}
