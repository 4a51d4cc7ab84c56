package avl

import (
	"github.com/pkg/errors"
)

// MaxHeight bounds the height Build accepts. An AVL tree of height 64 holds
// more than 10^13 nodes, anything deeper comes from corrupt input.
const MaxHeight = 64

// ErrTooDeep is returned by Build when the stream nests deeper than MaxHeight.
var ErrTooDeep = errors.New("avl: tree deeper than max height")

// Record is the persisted form of a single node.
type Record struct {
	Key   []byte
	Value []byte
	Diff  int
}

// Ascend calls fn for every key in ascending order until fn returns false.
// The slices passed to fn are owned by the tree.
func (t *Tree) Ascend(fn func(key, value []byte) bool) {
	stack := make([]*node, 0, MaxHeight)
	a := t.root
	for a != nil || len(stack) > 0 {
		for a != nil {
			stack = append(stack, a)
			a = a.left
		}

		a = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(a.key, a.value) {
			return
		}
		a = a.right
	}
}

// PreOrder visits the tree node first, then left subtree, then right subtree
// and calls fn for every node. Every empty subtree is reported as a nil
// record, so the sequence is enough for Build to rebuild the same shape.
//
// fn must not retain the record, it is reused between calls.
func (t *Tree) PreOrder(fn func(rec *Record) error) error {
	var (
		rec   Record
		stack = make([]*node, 1, 2*MaxHeight)
	)
	stack[0] = t.root

	for len(stack) > 0 {
		a := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if a == nil {
			if err := fn(nil); err != nil {
				return err
			}
			continue
		}

		rec.Key, rec.Value, rec.Diff = a.key, a.value, a.diff
		if err := fn(&rec); err != nil {
			return err
		}
		stack = append(stack, a.right, a.left)
	}

	return nil
}

// Build rebuilds a tree from a pre-order stream as produced by PreOrder.
// next returns a nil record for an empty subtree. Every stored balance
// factor must match the heights of the rebuilt subtrees, a mismatch is
// reported as ErrInternalBalance.
func Build(next func() (*Record, error)) (*Tree, error) {
	t := New()
	root, _, err := t.build(next, 0)
	if err != nil {
		return nil, err
	}

	t.root = root
	return t, nil
}

// build returns the subtree read from next and its height.
func (t *Tree) build(next func() (*Record, error), depth int) (*node, int, error) {
	rec, err := next()
	if err != nil {
		return nil, 0, err
	}
	if rec == nil {
		return nil, 0, nil
	}
	if depth >= MaxHeight {
		return nil, 0, ErrTooDeep
	}

	a := &node{key: rec.Key, value: rec.Value, diff: rec.Diff}
	t.count++

	var lh, rh int
	if a.left, lh, err = t.build(next, depth+1); err != nil {
		return nil, 0, err
	}
	if a.right, rh, err = t.build(next, depth+1); err != nil {
		return nil, 0, err
	}

	if rh-lh != a.diff {
		return nil, 0, errors.Wrapf(ErrInternalBalance, "key %q: stored diff %d, heights %d/%d", a.key, a.diff, lh, rh)
	}
	return a, max(lh, rh) + 1, nil
}
