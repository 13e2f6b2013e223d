package storecache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/triple"
)

func TestKeyForDiffersByScopedVars(t *testing.T) {
	q := &query.Query{Collection: "posts"}
	k1 := KeyFor(q, map[string]triple.Value{"session.org_id": "org1"})
	k2 := KeyFor(q, map[string]triple.Value{"session.org_id": "org2"})
	assert.NotEqual(t, k1, k2)
}

func TestKeyForStableRegardlessOfMapOrder(t *testing.T) {
	q := &query.Query{Collection: "posts"}
	scoped := map[string]triple.Value{"a": 1, "b": 2, "c": 3}
	k1 := KeyFor(q, scoped)
	k2 := KeyFor(q, scoped)
	assert.Equal(t, k1, k2)
}

func TestKeyForSameSessionNoVarsShareOneKey(t *testing.T) {
	q := &query.Query{Collection: "posts"}
	k1 := KeyFor(q, nil)
	k2 := KeyFor(q, map[string]triple.Value{})
	assert.Equal(t, k1, k2)
}
