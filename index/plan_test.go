package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/storage"
	"github.com/Adebesin-Cell/triplit/triple"
)

func TestSelectIDPoint(t *testing.T) {
	q := &query.Query{
		Collection: "users",
		Where: []query.Node{
			query.Statement{Path: triple.Path{"_id"}, Op: query.OpEQ, Value: triple.EntityID("users#1")},
		},
	}
	plan := Select(q)
	assert.Equal(t, IDPoint, plan.Kind)
	assert.Equal(t, triple.EntityID("users#1"), plan.EntityID)
	assert.True(t, plan.Fulfilled[0])
}

func TestSelectEquality(t *testing.T) {
	q := &query.Query{
		Collection: "users",
		Where: []query.Node{
			query.Statement{Path: triple.Path{"city"}, Op: query.OpEQ, Value: "NYC"},
		},
	}
	plan := Select(q)
	assert.Equal(t, Equality, plan.Kind)
	assert.Equal(t, "NYC", plan.EqualValue)
}

func TestSelectRangePrefersLeadingOrderPath(t *testing.T) {
	q := &query.Query{
		Collection: "posts",
		Where: []query.Node{
			query.Statement{Path: triple.Path{"score"}, Op: query.OpGT, Value: int64(10)},
		},
		Order: []query.OrderTerm{{Path: triple.Path{"score"}, Direction: query.Asc}},
	}
	plan := Select(q)
	assert.Equal(t, Range, plan.Kind)
	assert.Equal(t, triple.Path{"score"}, plan.Path)
	assert.Equal(t, int64(10), plan.Range.Gt)
}

func TestSelectOrderScanWithNoMatchingStatement(t *testing.T) {
	q := &query.Query{
		Collection: "posts",
		Order:      []query.OrderTerm{{Path: triple.Path{"created_at"}, Direction: query.Desc}},
	}
	plan := Select(q)
	assert.Equal(t, OrderScan, plan.Kind)
	assert.Equal(t, storage.Backward, plan.Range.Direction)
}

func TestSelectFullScanFallback(t *testing.T) {
	q := &query.Query{Collection: "posts"}
	plan := Select(q)
	assert.Equal(t, FullScan, plan.Kind)
	assert.Equal(t, "posts", plan.EqualValue)
}

func TestApplyCursorExclusive(t *testing.T) {
	q := &query.Query{
		Collection: "posts",
		Order:      []query.OrderTerm{{Path: triple.Path{"score"}, Direction: query.Asc}},
		After:      &query.Cursor{Values: []interface{}{int64(5)}, EntityID: triple.EntityID("posts#3"), Inclusive: false},
	}
	plan := Select(q)
	assert.NotNil(t, plan.Range.GtCursor)
	assert.Equal(t, int64(5), plan.Range.GtCursor.Value)
}
