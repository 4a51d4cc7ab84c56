package avl

// balance restores the invariant at a once its diff reached +2 or -2, the
// result is the new subtree root and whether any rotation happened.
func balance(a *node) (*node, bool) {
	switch a.diff {
	case 2:
		if a.right.diff == -1 {
			a.right = rotateRight(a.right)
		}
		return rotateLeft(a), true
	case -2:
		if a.left.diff == 1 {
			a.left = rotateLeft(a.left)
		}
		return rotateRight(a), true
	}

	return a, false
}

func rotateLeft(a *node) *node {
	b := a.right
	a.right = b.left
	b.left = a
	a.diff, b.diff = fixDiffsLeft(a.diff, b.diff)
	return b
}

func rotateRight(a *node) *node {
	b := a.left
	a.left = b.right
	b.right = a
	a.diff, b.diff = fixDiffsRight(a.diff, b.diff)
	return b
}

// fixDiffsLeft recombines the factors of a and its right child b after a
// left rotation. Both results derive from the factors before the rotation.
func fixDiffsLeft(a, b int) (int, int) {
	k := 0
	if b < 0 {
		k = b
	}
	return k + (a - b) - 1, min(b, k+a-1) - 1
}

// fixDiffsRight is the mirror of fixDiffsLeft for a right rotation of a with
// its left child b.
func fixDiffsRight(a, b int) (int, int) {
	k := 0
	if b > 0 {
		k = b
	}
	return k + (a - b) + 1, max(b, k+a+1) + 1
}
