package loom

// Marker is the user-facing description attached to a parameter (spec.md
// §3 "Marker"): an optional provider callable, a scope tag, a cache
// policy, and whether wiring is required for this parameter.
//
// During solving, a Marker is "registered against" its owning parameter.
// A Marker with no Provider is filled only from a bind hook or the
// parameter's declared default; no Provider is inferred from the
// parameter's type.
type Marker struct {
	// Provider is the callable that produces this dependency's value. Nil
	// leaves it to a bind hook or the parameter's default value; the
	// parameter's type alone is never turned into a provider.
	Provider *Provider

	// Scope is this dependent's lifetime bucket. Empty inherits the
	// parent's scope unless a ScopeResolver overrides it.
	Scope Scope

	// UseCache overrides the provider's cache policy for this specific
	// attachment point. Nil inherits the provider's (or parent's) policy.
	UseCache *bool

	// Wire, when false, prunes this parameter's branch instead of raising
	// a Wiring error when it cannot be resolved (spec.md §4.2 step 7).
	Wire bool
}

// ProviderMarker is a convenience constructor for the common case of a
// root or parameter Marker that simply names a provider.
func ProviderMarker(fn interface{}) *Marker {
	return &Marker{Provider: NewProvider(fn), Wire: true}
}

// defaultChildMarker builds the default Marker inherited by a parameter
// with no marker of its own, per spec.md §4.2 step 2: "construct a
// default Marker inheriting cache policy from the parent". Scope is
// left empty rather than copied from parent, so the solver can tell a
// parameter with no explicit scope of its own apart from one that
// genuinely declared parent's scope, and give a ScopeResolver (or
// parent-scope inheritance) the chance to run.
func defaultChildMarker(parent *dependent) *Marker {
	useCache := parent.useCache
	return &Marker{
		UseCache: &useCache,
		Wire:     true,
	}
}

func (m *Marker) wire() bool {
	return m == nil || m.Wire
}
