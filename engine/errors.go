package engine

import (
	"fmt"

	"github.com/Adebesin-Cell/triplit/filter"
	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/schema"
	"github.com/Adebesin-Cell/triplit/triple"
)

// QueryNotPreparedError is returned when fetch/subscribe receives a
// query whose includes have not been canonicalized via PrepareQuery
// (§7).
type QueryNotPreparedError struct {
	Collection string
}

func (e *QueryNotPreparedError) Error() string {
	return fmt.Sprintf("query on collection %q was not prepared: call PrepareQuery before fetch", e.Collection)
}

// InvalidFilterError reports a malformed statement or group (§7),
// raised by the filter package's own evaluator where the malformed
// node is actually detected.
type InvalidFilterError = filter.InvalidFilterError

// VariableRelationCardinalityError is returned when a variable path
// crosses a cardinality-many relation (§4.5, §7).
type VariableRelationCardinalityError struct {
	Path triple.Path
}

func (e *VariableRelationCardinalityError) Error() string {
	return fmt.Sprintf("variable path %s crosses a cardinality-many relation; variables may only traverse cardinality-one relations", e.Path)
}

// UnknownRelationError reports a schema lookup failure for a relation
// path (§7).
type UnknownRelationError struct {
	Collection string
	Path       triple.Path
}

func (e *UnknownRelationError) Error() string {
	return fmt.Sprintf("unknown relation %s on collection %q", e.Path, e.Collection)
}

// ReverseOperatorError is returned when root permutation (§4.8) needs to
// invert an operator with no defined inverse.
type ReverseOperatorError struct {
	Op query.Op
}

func (e *ReverseOperatorError) Error() string {
	return fmt.Sprintf("operator %q has no inverse; cannot permute across it", e.Op)
}

// InvalidSchemaItemError is returned when a schema lookup encounters an
// attribute of unrecognized type (§7), raised by schema.Service's own
// ConvertToNative implementation.
type InvalidSchemaItemError = schema.InvalidSchemaItemError
