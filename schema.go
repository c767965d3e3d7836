package loom

import (
	"context"
	"fmt"
	"reflect"
)

// ParamKind mirrors the parameter kinds enumerated in spec.md §6. Go
// has no positional-only, keyword-only, or named-argument parameters,
// so every ordinary parameter collapses onto KindPositionalOrKeyword;
// only the variadic kinds are distinguishable at runtime.
type ParamKind int

const (
	KindPositionalOrKeyword ParamKind = iota
	KindVariadicPositional
	KindVariadicKeyword
)

// Parameter describes one parameter of a provider's callable: its type,
// whether a default is available, and any Marker attached to it
// (spec.md §6 "Introspection adapter").
type Parameter struct {
	Index      int
	Kind       ParamKind
	Type       reflect.Type
	HasDefault bool
	Default    reflect.Value
	Marker     *Marker
}

// Introspector is the external collaborator of spec.md §6: for a given
// provider it yields the ordered parameter list, including any markers
// attached to those parameters. It is deliberately the only place that
// inspects a provider's Go signature, so alternative schema sources
// (a derive-macro-like code generator, a hand-built schema) can be
// substituted by implementing this interface instead of reflectIntrospector.
type Introspector interface {
	Parameters(p *Provider) ([]Parameter, error)
}

// reflectIntrospector is the default Introspector. Per Design Note 1
// ("Dynamic reflection → explicit schema"), it walks the provider's
// reflect.Type for structural information (count, types, variadics) and
// consults the provider's explicit per-parameter overrides — attached
// with Provider.WithParam / Provider.WithParamDefault — for the marker
// and default-value information Go cannot recover from a function value
// alone.
type reflectIntrospector struct{}

// DefaultIntrospector is the reflect-based Introspector used when a
// Container is not given one explicitly.
var DefaultIntrospector Introspector = reflectIntrospector{}

func (reflectIntrospector) Parameters(p *Provider) ([]Parameter, error) {
	ft := p.resolvedFnType()
	if ft == nil || ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("loom: provider %v is not a function", p.Fn)
	}

	numIn := ft.NumIn()
	variadic := ft.IsVariadic()

	// Skip the leading context.Context parameter of async-natured
	// (coroutine, async-generator) providers; the executor passes ctx
	// there, so that argument has no dependent of its own.
	firstDependencyArg := 0
	if ft.NumIn() > 0 && ft.In(0) == schemaContextType && p.Nature.isAsync() {
		firstDependencyArg = 1
	}

	// Variadic arguments are ignored during wiring (spec.md §6).
	limit := numIn
	if variadic {
		limit--
	}

	params := make([]Parameter, 0, limit-firstDependencyArg)
	for i := firstDependencyArg; i < limit; i++ {
		param := Parameter{
			Index: i,
			Kind:  KindPositionalOrKeyword,
			Type:  ft.In(i),
		}
		if override, ok := p.overrideFor(i); ok {
			param.Marker = override.Marker
			param.HasDefault = override.HasDefault
			param.Default = override.Default
		}
		params = append(params, param)
	}
	return params, nil
}

var schemaContextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// paramOverride carries the explicit, builder-supplied marker/default
// information for one parameter of a Provider's callable.
type paramOverride struct {
	Marker     *Marker
	HasDefault bool
	Default    reflect.Value
}

// WithParam attaches an explicit Marker to the i-th parameter of p's
// callable, the "explicit builder API" alternative to reflected
// parameter annotations (Design Note 1).
func (p *Provider) WithParam(i int, m *Marker) *Provider {
	cp := p.cloneWithOverrides()
	o := cp.overrides[i]
	o.Marker = m
	cp.overrides[i] = o
	return cp
}

// WithParamDefault declares that the i-th parameter of p's callable has
// a default value, used when neither the parameter's marker nor a bind
// hook supplies a provider for it (spec.md §4.2 step 2).
func (p *Provider) WithParamDefault(i int, v interface{}) *Provider {
	cp := p.cloneWithOverrides()
	o := cp.overrides[i]
	o.HasDefault = true
	o.Default = reflect.ValueOf(v)
	cp.overrides[i] = o
	return cp
}

func (p *Provider) overrideFor(i int) (paramOverride, bool) {
	o, ok := p.overrides[i]
	return o, ok
}

func (p *Provider) cloneWithOverrides() *Provider {
	cp := *p
	cp.overrides = make(map[int]paramOverride, len(p.overrides)+1)
	for k, v := range p.overrides {
		cp.overrides[k] = v
	}
	return &cp
}
