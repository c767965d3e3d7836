package loom

import "reflect"

// BindHook substitutes a Marker before a dependent's parameters are
// examined (spec.md §4.2 step 1, "bind hooks"). A hook returns ok=false
// to decline, letting the next hook in the list run.
type BindHook func(t reflect.Type, m *Marker) (substituted *Marker, ok bool)

// bindRegistry is an ordered, first-match-wins list of BindHooks,
// consulted before the solver looks at a Marker's own Provider or a
// parameter's default (spec.md §4.2 step 1).
type bindRegistry struct {
	hooks []BindHook
}

// push appends a hook, so hooks are consulted in registration order and
// the earliest registered matching hook wins. It returns a new registry
// and leaves r untouched (nested Container.Bind copies keep the prior
// list).
func (r *bindRegistry) push(h BindHook) *bindRegistry {
	cp := &bindRegistry{hooks: make([]BindHook, 0, len(r.hooks)+1)}
	cp.hooks = append(cp.hooks, r.hooks...)
	cp.hooks = append(cp.hooks, h)
	return cp
}

func (r *bindRegistry) resolve(t reflect.Type, m *Marker) *Marker {
	if r == nil {
		return m
	}
	for _, h := range r.hooks {
		if substituted, ok := h(t, m); ok {
			return substituted
		}
	}
	return m
}

// BindByType returns a BindHook that substitutes marker for every
// parameter whose declared type is exactly t, ignoring the incoming
// Marker entirely. This is the common case: "whenever something asks
// for an io.Reader, give it this one".
func BindByType(t reflect.Type, marker *Marker) BindHook {
	return func(paramType reflect.Type, _ *Marker) (*Marker, bool) {
		if paramType == t {
			return marker, true
		}
		return nil, false
	}
}
