package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/triple"
)

func TestReorderPutsCheapClausesFirst(t *testing.T) {
	children := []query.Node{
		query.SubqueryExists{Query: &query.Query{Collection: "posts"}},
		query.BoolLiteral(true),
		query.Statement{Path: triple.Path{"city"}, Op: query.OpEQ, Value: "NYC"},
	}
	out := Reorder(children)
	assert.Equal(t, query.BoolLiteral(true), out[0])
	assert.IsType(t, query.Statement{}, out[1])
	assert.IsType(t, query.SubqueryExists{}, out[2])
}

func TestReorderOrdersEqualityBeforeRangeBeforeSetMembership(t *testing.T) {
	children := []query.Node{
		query.Statement{Path: triple.Path{"tags"}, Op: query.OpHas, Value: "vip"},
		query.Statement{Path: triple.Path{"score"}, Op: query.OpGT, Value: int64(5)},
		query.Statement{Path: triple.Path{"city"}, Op: query.OpEQ, Value: "NYC"},
	}
	out := Reorder(children)
	assert.Equal(t, query.OpEQ, out[0].(query.Statement).Op)
	assert.Equal(t, query.OpGT, out[1].(query.Statement).Op)
	assert.Equal(t, query.OpHas, out[2].(query.Statement).Op)
}

func TestReorderIsStableAmongEqualCost(t *testing.T) {
	children := []query.Node{
		query.Statement{Path: triple.Path{"a"}, Op: query.OpEQ, Value: 1},
		query.Statement{Path: triple.Path{"b"}, Op: query.OpEQ, Value: 2},
	}
	out := Reorder(children)
	assert.Equal(t, children[0], out[0])
	assert.Equal(t, children[1], out[1])
}
