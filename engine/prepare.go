package engine

import (
	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/schema"
	"github.com/Adebesin-Cell/triplit/triple"
)

// PrepareQuery canonicalizes q against e.Schema: expanding
// exists-relation sugar into an explicit sub-query (§4.4) and filling
// in shorthand includes with the schema's declared default sub-query
// (§3 `include`). The result has Prepared set, satisfying the
// precondition Fetch/FetchOne/Subscribe enforce (§7
// QueryNotPreparedError).
func (e *Engine) PrepareQuery(q *query.Query) (*query.Query, error) {
	out := q.Clone()

	expandedWhere, err := e.expandWhere(out.Collection, out.Where)
	if err != nil {
		return nil, err
	}
	out.Where = expandedWhere

	for alias, inc := range out.Include {
		if !inc.Shorthand {
			expanded, err := e.expandWhere(inc.Query.Collection, inc.Query.Where)
			if err != nil {
				return nil, err
			}
			sub := inc.Query.Clone()
			sub.Where = expanded
			sub.Prepared = true
			inc.Query = sub
			out.Include[alias] = inc
			continue
		}
		expandedInc, err := e.expandShorthandInclude(out.Collection, alias)
		if err != nil {
			return nil, err
		}
		out.Include[alias] = expandedInc
	}

	out.Prepared = true
	return out, nil
}

func (e *Engine) expandShorthandInclude(collection, alias string) (query.Include, error) {
	if e.Schema == nil {
		return query.Include{}, &UnknownRelationError{Collection: collection, Path: triple.Path{alias}}
	}
	attr, ok := e.Schema.Attribute(collection, triple.Path{alias})
	if !ok || attr.Relation == nil {
		return query.Include{}, &UnknownRelationError{Collection: collection, Path: triple.Path{alias}}
	}
	sub := &query.Query{
		Collection: attr.Relation.TargetCollection,
		Where:      []query.Node{joinStatement(attr.Relation)},
		Prepared:   true,
	}
	cardinality := query.CardinalityMany
	if attr.Cardinality == schema.CardinalityOne {
		cardinality = query.CardinalityOne
	}
	return query.Include{Alias: alias, Query: sub, Cardinality: cardinality}, nil
}

// joinStatement builds the "$ancestor1.<local path> = <target path>"
// clause that ties a relation's sub-query back to the parent entity
// currently on top of the ancestor stack (§4.6). It is always prepended
// to a relation-derived sub-query's Where, whether the relation came
// from exists-relation sugar or a shorthand include.
func joinStatement(rel *schema.RelationSpec) query.Statement {
	return query.Statement{
		Path:  rel.TargetPath,
		Op:    rel.EffectiveOp(),
		Value: query.Var{Raw: "$ancestor1." + rel.LocalPath.String()},
	}
}

// expandWhere recursively replaces every ExistsRelation node with the
// equivalent SubqueryExists, the form the filter evaluator actually
// runs (§4.4).
func (e *Engine) expandWhere(collection string, nodes []query.Node) ([]query.Node, error) {
	out := make([]query.Node, len(nodes))
	for i, n := range nodes {
		expanded, err := e.expandNode(collection, n)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}

func (e *Engine) expandNode(collection string, n query.Node) (query.Node, error) {
	switch v := n.(type) {
	case query.And:
		children, err := e.expandWhere(collection, v.Children)
		if err != nil {
			return nil, err
		}
		return query.And{Children: children}, nil
	case query.Or:
		children, err := e.expandWhere(collection, v.Children)
		if err != nil {
			return nil, err
		}
		return query.Or{Children: children}, nil
	case query.ExistsRelation:
		return e.expandExistsRelation(collection, v)
	case query.SubqueryExists:
		innerWhere, err := e.expandWhere(v.Query.Collection, v.Query.Where)
		if err != nil {
			return nil, err
		}
		sub := v.Query.Clone()
		sub.Where = innerWhere
		sub.Prepared = true
		return query.SubqueryExists{Query: sub}, nil
	default:
		return n, nil
	}
}

func (e *Engine) expandExistsRelation(collection string, v query.ExistsRelation) (query.Node, error) {
	if e.Schema == nil {
		return nil, &UnknownRelationError{Collection: collection, Path: v.Relation}
	}
	attr, ok := e.Schema.Attribute(collection, v.Relation)
	if !ok || attr.Relation == nil {
		return nil, &UnknownRelationError{Collection: collection, Path: v.Relation}
	}
	where, err := e.expandWhere(attr.Relation.TargetCollection, v.Where)
	if err != nil {
		return nil, err
	}
	where = append([]query.Node{joinStatement(attr.Relation)}, where...)
	sub := &query.Query{
		Collection: attr.Relation.TargetCollection,
		Where:      where,
		Prepared:   true,
	}
	return query.SubqueryExists{Query: sub}, nil
}
