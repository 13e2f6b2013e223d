package engine

import (
	"github.com/Adebesin-Cell/triplit/storecache"
	"github.com/Adebesin-Cell/triplit/triple"
)

// Options configures one Fetch/FetchOne/Subscribe/Delta call (§6.4).
// A nil *Options is equivalent to the zero value everywhere it's
// accepted.
type Options struct {
	// StateVector bounds materialization to the causal frontier it
	// describes; nil (the zero value) means "now" (§4.8 Invariant 2).
	StateVector triple.StateVector

	// SkipRules bypasses permission-rule application. Schema
	// definition and permissions are out of scope for this module
	// (§1), so this field exists for API parity with the external
	// interface and has no effect on any call it's passed to.
	SkipRules bool

	// Cache, when set, serves and stores a top-level Fetch's results
	// through it, gated by schema.Service.CanCacheQuery (§6.3).
	Cache storecache.Cache

	// SkipIndex forces fetchAll's full-collection-scan access path
	// instead of whatever index.Select would have chosen, for
	// inspecting query-plan-independent results while debugging (§6.4).
	SkipIndex bool
}

func (o *Options) orDefault() *Options {
	if o == nil {
		return &Options{}
	}
	return o
}
