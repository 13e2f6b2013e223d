package vars

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adebesin-Cell/triplit/triple"
)

// Scope is one of the five variable scopes §4.5 defines.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeSession
	ScopeQuery
	ScopeRole
	ScopeAncestor
	// ScopeUnscoped is a reference with no scope prefix at all (e.g.
	// "$status" rather than "$query.status"), resolved from a
	// flattened merged map for backward compatibility (§4.5, §9).
	ScopeUnscoped
)

// Ref is a parsed "$<scope>.<path>" reference.
type Ref struct {
	Scope    Scope
	Ancestor int // only meaningful when Scope == ScopeAncestor
	Path     triple.Path
}

// ParseRef parses a raw variable reference such as "$query.status",
// "$role.org_id", or "$ancestor2.author_id" (§4.5). The leading "$" is
// required. A body with no "." at all (e.g. "$status") carries no
// scope prefix and parses as ScopeUnscoped over the whole body, the
// backward-compatibility fallback §4.5/§9 describe; a body that does
// have a "." but names an unrecognized scope word is a typo'd scope
// and is reported as an error rather than silently defaulting.
func ParseRef(raw string) (Ref, error) {
	if !strings.HasPrefix(raw, "$") {
		return Ref{}, fmt.Errorf("vars: variable reference %q must start with $", raw)
	}
	body := raw[1:]
	dot := strings.IndexByte(body, '.')
	if dot < 0 {
		if body == "" {
			return Ref{}, fmt.Errorf("vars: variable reference %q missing a name", raw)
		}
		return Ref{Scope: ScopeUnscoped, Path: triple.ParsePath(body)}, nil
	}
	scopeName, pathStr := body[:dot], body[dot+1:]
	path := triple.ParsePath(pathStr)

	switch {
	case scopeName == "global":
		return Ref{Scope: ScopeGlobal, Path: path}, nil
	case scopeName == "session":
		return Ref{Scope: ScopeSession, Path: path}, nil
	case scopeName == "query":
		return Ref{Scope: ScopeQuery, Path: path}, nil
	case scopeName == "role":
		return Ref{Scope: ScopeRole, Path: path}, nil
	case strings.HasPrefix(scopeName, "ancestor"):
		nStr := strings.TrimPrefix(scopeName, "ancestor")
		n := 1
		if nStr != "" {
			parsed, err := strconv.Atoi(nStr)
			if err != nil {
				return Ref{}, fmt.Errorf("vars: bad ancestor index in %q: %w", raw, err)
			}
			n = parsed
		}
		return Ref{Scope: ScopeAncestor, Ancestor: n, Path: path}, nil
	default:
		return Ref{}, fmt.Errorf("vars: unknown scope %q in %q", scopeName, raw)
	}
}

// RelationLoader lazily resolves a cardinality-one relation crossing
// from an ancestor frame, implemented by the engine package (kept as an
// interface here to avoid an import cycle: engine depends on vars, not
// the reverse, per §9's independence note for the query package's
// duplicated Cardinality type).
type RelationLoader interface {
	// LoadRelationOne resolves the single related entity's value at
	// path, starting from the entity that owns relation on collection.
	// Returns an error wrapping VariableRelationCardinalityError if the
	// relation is not cardinality-one.
	LoadRelationOne(collection string, id triple.EntityID, relation triple.Path, target triple.Path) (triple.Value, error)
}

// Resolver resolves variable references against the flattened scope
// set described in §4.5: global, session, query, role (first match
// across roles wins, logged if ambiguous), and ancestor(N).
type Resolver struct {
	Global  map[string]triple.Value
	Session map[string]triple.Value
	Query   map[string]triple.Value
	Role    map[string]triple.Value

	Stack  *Stack
	Loader RelationLoader

	// OnAmbiguousRole is called when more than one role declares the
	// same variable name and the first declared wins; nil disables the
	// notice (§4.5: "ambiguity is logged, not an error").
	OnAmbiguousRole func(name string, winner, discarded triple.Value)

	// OnAmbiguousScope is called when an unscoped reference (§4.5's
	// flattened-map fallback) finds the same name in more than one
	// scope; nil disables the notice. The winning scope is the one
	// earliest in query, role, session, global priority order ("newest
	// wins").
	OnAmbiguousScope func(name string, winner, discarded triple.Value)
}

// Resolve dispatches raw to the scope its prefix names. Crossing a
// relation inside an ancestor frame (path longer than the frame's own
// declared scalar set) is delegated to Loader; Loader is nil in
// contexts where relation-crossing variables are disallowed (e.g.
// top-level query-scope vars), and a nil Loader with a relation-needing
// path is reported as an error rather than panicking.
func (r *Resolver) Resolve(raw string) (triple.Value, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return nil, err
	}
	switch ref.Scope {
	case ScopeGlobal:
		return lookup(r.Global, ref.Path), nil
	case ScopeSession:
		return lookup(r.Session, ref.Path), nil
	case ScopeQuery:
		return lookup(r.Query, ref.Path), nil
	case ScopeRole:
		return lookup(r.Role, ref.Path), nil
	case ScopeAncestor:
		return r.resolveAncestor(ref)
	case ScopeUnscoped:
		return r.resolveUnscoped(ref.Path), nil
	default:
		return nil, fmt.Errorf("vars: unhandled scope %d", ref.Scope)
	}
}

// resolveUnscoped implements §4.5/§9's backward-compatibility fallback:
// a reference with no scope prefix is looked up across every scope in
// most-recently-bound-first order (query, role, session, global —
// "newest wins"), logging via OnAmbiguousScope whenever more than one
// scope declares the same name.
func (r *Resolver) resolveUnscoped(path triple.Path) triple.Value {
	layers := [...]struct {
		m map[string]triple.Value
	}{{r.Query}, {r.Role}, {r.Session}, {r.Global}}

	key := path.String()
	var winner triple.Value
	found := false
	for _, l := range layers {
		if l.m == nil {
			continue
		}
		v, ok := l.m[key]
		if !ok {
			continue
		}
		if !found {
			winner, found = v, true
			continue
		}
		if r.OnAmbiguousScope != nil {
			r.OnAmbiguousScope(key, winner, v)
		}
	}
	return winner
}

func (r *Resolver) resolveAncestor(ref Ref) (triple.Value, error) {
	if r.Stack == nil {
		return nil, fmt.Errorf("vars: no ancestor stack available for %v", ref.Path)
	}
	frame, err := r.Stack.Ancestor(ref.Ancestor)
	if err != nil {
		return nil, err
	}
	if v, ok := frame.Get(ref.Path); ok {
		return v, nil
	}
	// Path not declared directly on the frame: it crosses a relation,
	// which requires cardinality one (§4.5) and a loader able to follow
	// it.
	if r.Loader == nil {
		return nil, fmt.Errorf("vars: %v crosses a relation but no relation loader is configured", ref.Path)
	}
	if len(ref.Path) < 2 {
		return nil, fmt.Errorf("vars: %v is not declared on ancestor frame %d", ref.Path, ref.Ancestor)
	}
	relation := ref.Path[:1]
	target := ref.Path[1:]
	return r.Loader.LoadRelationOne(frame.Collection, frame.EntityID, relation, target)
}

func lookup(m map[string]triple.Value, path triple.Path) triple.Value {
	if m == nil {
		return nil
	}
	v, ok := m[path.String()]
	if !ok {
		return nil
	}
	return v
}

// ScopedSnapshot flattens Global, Session and Role into one
// prefix-qualified map, for callers (the engine's query cache, §6.3)
// that need a single value to key on without caring which scope each
// entry came from. Query vars are addressed separately since callers
// already have direct access to the query itself.
func (r *Resolver) ScopedSnapshot() map[string]triple.Value {
	out := make(map[string]triple.Value, len(r.Global)+len(r.Session)+len(r.Role))
	for k, v := range r.Global {
		out["global."+k] = v
	}
	for k, v := range r.Session {
		out["session."+k] = v
	}
	for k, v := range r.Role {
		out["role."+k] = v
	}
	return out
}

// MergeRoles flattens a set of role variable maps into Role, following
// first-declared-wins and reporting collisions via OnAmbiguousRole.
func (r *Resolver) MergeRoles(roles []map[string]triple.Value) {
	r.Role = make(map[string]triple.Value)
	for _, roleVars := range roles {
		for k, v := range roleVars {
			if existing, ok := r.Role[k]; ok {
				if r.OnAmbiguousRole != nil {
					r.OnAmbiguousRole(k, existing, v)
				}
				continue
			}
			r.Role[k] = v
		}
	}
}
