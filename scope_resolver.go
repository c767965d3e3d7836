package loom

import "reflect"

// ScopeResolver assigns a scope to a dependent that declared none of
// its own, invoked once every one of its children's scopes is already
// known (spec.md §4.2 step 5, §6 "scope_resolver(dependent, child_scopes,
// all_scopes) -> scope"), grounded on _container.py's ScopeResolver
// Protocol.
//
// loom invokes a configured ScopeResolver only for a dependent with no
// explicit Scope of its own on its Marker or Provider; a dependent that
// does declare one keeps it regardless of what a resolver would pick.
// This is a deliberate narrowing of the Python original, whose
// container invokes scope_resolver unconditionally whenever one is
// supplied, overriding even an explicit scope.
type ScopeResolver func(t reflect.Type, childScopes []Scope, allScopes []Scope) Scope
