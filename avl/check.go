package avl

import (
	"bytes"

	"github.com/pkg/errors"
)

var (
	// ErrInternalBalance is returned by Check when a stored diff does not
	// match the real heights of the subtrees.
	ErrInternalBalance = errors.New("avl: balance factor does not match subtree heights")
	// ErrLopsided is returned by Check when subtree heights differ by more than one.
	ErrLopsided = errors.New("avl: subtree heights differ by more than one")
	// ErrOutOfOrder is returned by Check when keys break the search order.
	ErrOutOfOrder = errors.New("avl: keys out of order")
)

// Check recomputes every subtree height bottom-up and reports the first node
// violating the balance invariant or the key order. It visits the whole
// tree and is meant for diagnostics and tests.
func (t *Tree) Check() error {
	_, err := check(t.root, nil, nil)
	return err
}

// check returns the height of the subtree rooted at a. Keys of the subtree
// must lie strictly between lo and hi, a nil bound is unbounded.
func check(a *node, lo, hi []byte) (int, error) {
	if a == nil {
		return 0, nil
	}

	if (lo != nil && bytes.Compare(a.key, lo) <= 0) || (hi != nil && bytes.Compare(a.key, hi) >= 0) {
		return 0, errors.Wrapf(ErrOutOfOrder, "key %q", a.key)
	}

	lh, err := check(a.left, lo, a.key)
	if err != nil {
		return 0, err
	}
	rh, err := check(a.right, a.key, hi)
	if err != nil {
		return 0, err
	}

	b := rh - lh
	if b != a.diff {
		return 0, errors.Wrapf(ErrInternalBalance, "key %q: diff %d, heights %d/%d", a.key, a.diff, lh, rh)
	}
	if b < -1 || b > 1 {
		return 0, errors.Wrapf(ErrLopsided, "key %q: diff %d", a.key, b)
	}

	return max(lh, rh) + 1, nil
}
