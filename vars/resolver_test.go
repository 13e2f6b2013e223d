package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adebesin-Cell/triplit/triple"
)

func TestParseRefScopes(t *testing.T) {
	cases := []struct {
		raw      string
		scope    Scope
		ancestor int
		path     triple.Path
	}{
		{"$global.org_id", ScopeGlobal, 0, triple.Path{"org_id"}},
		{"$session.user_id", ScopeSession, 0, triple.Path{"user_id"}},
		{"$query.status", ScopeQuery, 0, triple.Path{"status"}},
		{"$role.org_id", ScopeRole, 0, triple.Path{"org_id"}},
		{"$ancestor.author_id", ScopeAncestor, 1, triple.Path{"author_id"}},
		{"$ancestor2.author_id", ScopeAncestor, 2, triple.Path{"author_id"}},
		{"$status", ScopeUnscoped, 0, triple.Path{"status"}},
	}
	for _, c := range cases {
		ref, err := ParseRef(c.raw)
		assert.NoError(t, err, c.raw)
		assert.Equal(t, c.scope, ref.Scope, c.raw)
		if c.scope == ScopeAncestor {
			assert.Equal(t, c.ancestor, ref.Ancestor, c.raw)
		}
		assert.Equal(t, c.path, ref.Path, c.raw)
	}
}

func TestParseRefRejectsMalformed(t *testing.T) {
	_, err := ParseRef("global.org_id")
	assert.Error(t, err)

	_, err = ParseRef("$")
	assert.Error(t, err)

	_, err = ParseRef("$nonsense.x")
	assert.Error(t, err)
}

func TestParseRefWithNoDotIsUnscoped(t *testing.T) {
	ref, err := ParseRef("$global")
	assert.NoError(t, err)
	assert.Equal(t, ScopeUnscoped, ref.Scope)
	assert.Equal(t, triple.Path{"global"}, ref.Path)
}

func TestResolverResolvesScalarScopes(t *testing.T) {
	r := &Resolver{
		Global:  map[string]triple.Value{"org_id": "org1"},
		Session: map[string]triple.Value{"user_id": "u1"},
		Query:   map[string]triple.Value{"status": "open"},
	}
	v, err := r.Resolve("$global.org_id")
	assert.NoError(t, err)
	assert.Equal(t, triple.Value("org1"), v)

	v, err = r.Resolve("$session.user_id")
	assert.NoError(t, err)
	assert.Equal(t, triple.Value("u1"), v)

	v, err = r.Resolve("$query.status")
	assert.NoError(t, err)
	assert.Equal(t, triple.Value("open"), v)
}

func TestResolverUnscopedFallsBackToFlattenedMap(t *testing.T) {
	r := &Resolver{
		Global: map[string]triple.Value{"org_id": "org_global"},
	}
	v, err := r.Resolve("$org_id")
	assert.NoError(t, err)
	assert.Equal(t, triple.Value("org_global"), v)
}

func TestResolverUnscopedPrefersNewestScopeAndLogsAmbiguity(t *testing.T) {
	var ambiguousName string
	var winner, discarded triple.Value
	r := &Resolver{
		Global: map[string]triple.Value{"org_id": "org_global"},
		Query:  map[string]triple.Value{"org_id": "org_query"},
		OnAmbiguousScope: func(name string, w, d triple.Value) {
			ambiguousName, winner, discarded = name, w, d
		},
	}
	v, err := r.Resolve("$org_id")
	assert.NoError(t, err)
	assert.Equal(t, triple.Value("org_query"), v)
	assert.Equal(t, "org_id", ambiguousName)
	assert.Equal(t, triple.Value("org_query"), winner)
	assert.Equal(t, triple.Value("org_global"), discarded)
}

func TestResolverUnscopedMissingNameResolvesToNil(t *testing.T) {
	r := &Resolver{}
	v, err := r.Resolve("$nothing_here")
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestResolverAncestorDirectPath(t *testing.T) {
	stack := NewStack()
	stack.Push(Frame{
		EntityID: "posts#1",
		Values:   map[string]triple.Value{"author_id": "users#1"},
	})
	r := &Resolver{Stack: stack}
	v, err := r.Resolve("$ancestor1.author_id")
	assert.NoError(t, err)
	assert.Equal(t, triple.Value("users#1"), v)
}

func TestResolverAncestorCrossingRelationUsesLoader(t *testing.T) {
	stack := NewStack()
	stack.Push(Frame{
		EntityID:   "posts#1",
		Collection: "posts",
		Values:     map[string]triple.Value{"title": "hi"},
	})
	r := &Resolver{
		Stack: stack,
		Loader: fakeLoader{
			result: "NYC",
		},
	}
	v, err := r.Resolve("$ancestor1.author.city")
	assert.NoError(t, err)
	assert.Equal(t, triple.Value("NYC"), v)
}

func TestResolverAncestorCrossingWithNoLoaderErrors(t *testing.T) {
	stack := NewStack()
	stack.Push(Frame{Values: map[string]triple.Value{}})
	r := &Resolver{Stack: stack}
	_, err := r.Resolve("$ancestor1.author.city")
	assert.Error(t, err)
}

func TestMergeRolesFirstDeclaredWinsAndReportsAmbiguity(t *testing.T) {
	var reported []string
	r := &Resolver{
		OnAmbiguousRole: func(name string, winner, discarded triple.Value) {
			reported = append(reported, name)
		},
	}
	r.MergeRoles([]map[string]triple.Value{
		{"org_id": "org1"},
		{"org_id": "org2"},
	})
	assert.Equal(t, triple.Value("org1"), r.Role["org_id"])
	assert.Equal(t, []string{"org_id"}, reported)
}

type fakeLoader struct {
	result triple.Value
}

func (f fakeLoader) LoadRelationOne(collection string, id triple.EntityID, relation, target triple.Path) (triple.Value, error) {
	return f.result, nil
}
