package repository

import (
	"math/rand/v2"

	"github.com/okian/squadmarket/internal/domain/search"
)

// Treap ordered by (sort value ASC, offer id ASC). One treap holds one index
// partition; in-order traversal yields the ascending scan.
type node struct {
	id    string
	sort  int64
	prio  uint64
	left  *node
	right *node
}

// less returns true if (aSort, aID) orders before (bSort, bID).
func less(aSort int64, aID string, bSort int64, bID string) bool {
	return search.Compare(aSort, aID, bSort, bID) < 0
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	return y
}

func insert(n *node, id string, sort int64) *node {
	if n == nil {
		return &node{id: id, sort: sort, prio: rand.Uint64()}
	}
	if less(sort, id, n.sort, n.id) {
		n.left = insert(n.left, id, sort)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, sort)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	return n
}

func deleteNode(n *node, id string, sort int64) *node {
	if n == nil {
		return nil
	}
	switch {
	case sort == n.sort && id == n.id:
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, sort)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, sort)
		}
	case less(sort, id, n.sort, n.id):
		n.left = deleteNode(n.left, id, sort)
	default:
		n.right = deleteNode(n.right, id, sort)
	}
	return n
}

// collectAsc appends up to limit rows after the cursor in ascending order.
func collectAsc(n *node, q search.IndexQuery, limit int, out *[]search.Row) {
	if n == nil || len(*out) >= limit {
		return
	}
	if !q.Beyond(n.sort, n.id) {
		// n and its left subtree are at or before the cursor.
		collectAsc(n.right, q, limit, out)
		return
	}
	collectAsc(n.left, q, limit, out)
	if len(*out) < limit {
		*out = append(*out, search.Row{OfferID: n.id, PartitionValue: q.PartitionValue, SortValue: n.sort})
	}
	collectAsc(n.right, q, limit, out)
}

// collectDesc appends up to limit rows after the cursor in descending order.
func collectDesc(n *node, q search.IndexQuery, limit int, out *[]search.Row) {
	if n == nil || len(*out) >= limit {
		return
	}
	if !q.Beyond(n.sort, n.id) {
		// n and its right subtree are at or after the cursor.
		collectDesc(n.left, q, limit, out)
		return
	}
	collectDesc(n.right, q, limit, out)
	if len(*out) < limit {
		*out = append(*out, search.Row{OfferID: n.id, PartitionValue: q.PartitionValue, SortValue: n.sort})
	}
	collectDesc(n.left, q, limit, out)
}
