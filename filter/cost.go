package filter

import (
	"sort"

	"github.com/Adebesin-Cell/triplit/query"
)

// cost ranks a node by how expensive it is to evaluate, cheapest
// first: a boolean literal is free, a plain statement's cost comes from
// its operator (see statementCost), a nested and/or is the sum of its
// children plus one, and any sub-query form is assumed to dominate everything
// else since it may recurse into another full fetch (§4.4's
// "cost-based clause reordering").
func cost(n query.Node) int {
	switch v := n.(type) {
	case query.BoolLiteral:
		return 0
	case query.Statement:
		return statementCost(v.Op)
	case query.And:
		return sumCost(v.Children) + 1
	case query.Or:
		return sumCost(v.Children) + 1
	case query.SubqueryExists, query.ExistsRelation:
		return 1000
	default:
		return 500
	}
}

// statementCost orders a single statement's operator per §4.4's
// "scalar equality > range > set membership": all are O(1) view
// lookups, but equality needs only one comparison, a range comparison
// needs an ordering check, and set membership walks the right-hand
// collection.
func statementCost(op query.Op) int {
	switch op {
	case query.OpEQ, query.OpNE, query.OpIsDefined:
		return 1
	case query.OpLT, query.OpLTE, query.OpGT, query.OpGTE:
		return 2
	case query.OpIn, query.OpNotIn, query.OpHas, query.OpNotHas:
		return 3
	case query.OpLike, query.OpNotLike:
		return 4
	default:
		return 2
	}
}

func sumCost(nodes []query.Node) int {
	total := 0
	for _, n := range nodes {
		total += cost(n)
	}
	return total
}

// Reorder returns a copy of children sorted cheapest-first, so And/Or
// evaluation short-circuits on the clauses most likely to resolve
// quickly before paying for an expensive sub-query.
func Reorder(children []query.Node) []query.Node {
	out := append([]query.Node(nil), children...)
	sort.SliceStable(out, func(i, j int) bool { return cost(out[i]) < cost(out[j]) })
	return out
}
