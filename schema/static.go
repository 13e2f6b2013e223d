package schema

import (
	"fmt"

	"github.com/Adebesin-Cell/triplit/triple"
)

// StaticService is a plain map-backed Service, used by tests and the
// CLI demo in place of a real schema/codegen pipeline (out of scope,
// §1).
type StaticService struct {
	attributes map[string]map[string]*Attribute // collection -> path string -> attr
	rules      map[string]*Rules
	cacheable  map[string]bool
	roles      map[string][]Role
}

// NewStaticService builds an empty StaticService.
func NewStaticService() *StaticService {
	return &StaticService{
		attributes: make(map[string]map[string]*Attribute),
		rules:      make(map[string]*Rules),
		cacheable:  make(map[string]bool),
		roles:      make(map[string][]Role),
	}
}

// Declare registers an attribute's type for a collection.
func (s *StaticService) Declare(collection string, path triple.Path, typ DataType) *StaticService {
	s.attrMap(collection)[path.String()] = &Attribute{Path: path, Type: typ}
	return s
}

// DeclareRelation registers a `query`-typed attribute that resolves a
// relation, used by the engine's `include` shorthand and `exists`
// syntactic sugar (§4.4, §4.6).
func (s *StaticService) DeclareRelation(collection string, path triple.Path, card Cardinality, spec RelationSpec) *StaticService {
	s.attrMap(collection)[path.String()] = &Attribute{
		Path:        path,
		Type:        TypeQuery,
		Cardinality: card,
		Relation:    &spec,
	}
	return s
}

// SetCacheable marks a collection's queries as eligible for the
// variable-aware cache (§6.3).
func (s *StaticService) SetCacheable(collection string, cacheable bool) *StaticService {
	s.cacheable[collection] = cacheable
	return s
}

// SetRoles registers the roles available to a session.
func (s *StaticService) SetRoles(sessionID string, roles []Role) *StaticService {
	s.roles[sessionID] = roles
	return s
}

func (s *StaticService) attrMap(collection string) map[string]*Attribute {
	m, ok := s.attributes[collection]
	if !ok {
		m = make(map[string]*Attribute)
		s.attributes[collection] = m
	}
	return m
}

func (s *StaticService) Attribute(collection string, path triple.Path) (*Attribute, bool) {
	m, ok := s.attributes[collection]
	if !ok {
		return nil, false
	}
	a, ok := m[path.String()]
	return a, ok
}

func (s *StaticService) Relations(collection string) []Attribute {
	var out []Attribute
	for _, attr := range s.attrMap(collection) {
		if attr.Type == TypeQuery && attr.Relation != nil {
			out = append(out, *attr)
		}
	}
	return out
}

func (s *StaticService) CollectionRules(collection string) (*Rules, bool) {
	r, ok := s.rules[collection]
	return r, ok
}

func (s *StaticService) ConvertToNative(collection string, path triple.Path, v triple.Value) (interface{}, error) {
	attr, ok := s.Attribute(collection, path)
	if !ok || v == nil {
		return v, nil
	}
	switch attr.Type {
	case TypeNumber:
		switch n := v.(type) {
		case int64:
			return float64(n), nil
		case float64:
			return n, nil
		default:
			return nil, fmt.Errorf("schema: %s.%s expects number, got %T", collection, path, v)
		}
	case TypeString, TypeBoolean, TypeDate, TypeSet, TypeRecord, TypeQuery:
		return v, nil
	default:
		return nil, &InvalidSchemaItemError{Collection: collection, Path: path, Kind: string(attr.Type)}
	}
}

func (s *StaticService) CanCacheQuery(collection string) bool {
	return s.cacheable[collection]
}

func (s *StaticService) Roles(sessionID string) []Role {
	return s.roles[sessionID]
}
