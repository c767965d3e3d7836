// Package loom is a dependency-injection solver and executor runtime.
//
// Given a declarative description of a root computation and the
// sub-computations it transitively requires, loom builds an immutable
// execution plan (a DAG of tasks), validates it (acyclicity, scope
// nesting, wiring), and executes it repeatedly — synchronously or
// asynchronously, serially or concurrently — caching results per scope
// and releasing scoped resources in reverse acquisition order.
//
// # Providing and solving
//
// A Provider describes how to produce one value: a callable, the scope
// it lives in, and a caching policy. A Marker attaches a Provider to a
// parameter; a parameter whose Marker has none is filled from a bind
// hook or a declared default. Container.Solve walks a root Marker's
// dependency tree and returns an immutable SolvedPlan.
//
//	c := loom.New("app", "request")
//	plan, err := c.Solve(loom.ProviderMarker(NewHandler))
//
// # Executing
//
// A SolvedPlan is executed against a ScopeState, which holds the active
// scope stack, per-scope teardown stacks, and the result cache.
//
//	app, _ := c.EnterScope(nil, "app")
//	defer app.Exit(context.Background())
//	req, _ := c.EnterScope(app, "request")
//	defer req.Exit(context.Background())
//	v, err := c.ExecuteSync(context.Background(), plan, req)
package loom
