/*
   Copyright The With Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package with

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/containerd/errdefs"
)

// mutateOne rebuilds the graph for a single bound path, bottom up: the leaf
// owner is rebuilt with the replacement, then each enclosing owner is rebuilt
// with its freshly rebuilt member, finishing at the root. Ancestors off the
// path are never touched and stay shared with the input graph.
func (m *Mutator) mutateOne(t reflect.Type, instance any, bp *boundPath, value any) (any, error) {
	next := value
	for i := len(bp.members) - 1; i >= 0; i-- {
		owner := instance
		if i > 0 {
			acc, err := m.accessorFor(t, bp.members[:i], bp.names[:i])
			if err != nil {
				return nil, err
			}
			if owner, err = acc(instance); err != nil {
				return nil, err
			}
			// The owner is rebuilt next, so every pointer level of it must
			// be non-nil.
			if err := checkNil(reflect.ValueOf(owner), bp.names[:i]); err != nil {
				return nil, err
			}
		}
		ot := t
		if i > 0 {
			ot = bp.members[i-1].Type
		}
		a, err := m.activatorFor(ot, bp.names[i:i+1])
		if err != nil {
			return nil, err
		}
		if next, err = a(owner, map[string]any{bp.names[i]: next}); err != nil {
			return nil, err
		}
	}
	return next, nil
}

type boundMutation struct {
	bp    *boundPath
	value any
}

// mutateAll applies a batch of bound mutations to one instance. Mutations
// sharing a top-level member are folded into a single value for that member,
// then the instance is rebuilt once with every changed member, so siblings
// changed in one batch land in one reconstruction instead of one per
// mutation.
func (m *Mutator) mutateAll(t reflect.Type, instance any, muts []boundMutation) (any, error) {
	type group struct {
		member *Member
		items  []boundMutation
	}
	var order []string
	groups := make(map[string]*group, len(muts))
	for _, bm := range muts {
		name := bm.bp.names[0]
		g, ok := groups[name]
		if !ok {
			g = &group{member: bm.bp.members[0]}
			groups[name] = g
			order = append(order, name)
		}
		g.items = append(g.items, bm)
	}

	replacements := make(map[string]any, len(order))
	for _, name := range order {
		g := groups[name]
		v, err := m.reduceGroup(t, instance, name, g.member, g.items)
		if err != nil {
			return nil, err
		}
		replacements[name] = v
	}

	targets := append([]string(nil), order...)
	sort.Strings(targets)
	a, err := m.activatorFor(t, targets)
	if err != nil {
		// No single constructor names every changed member. Fall back to one
		// reconstruction per member, in batch order.
		if errors.Is(err, ErrNoMatchingConstructor) && len(order) > 1 {
			return m.mutateEach(t, instance, order, replacements)
		}
		return nil, err
	}
	return a(instance, replacements)
}

// reduceGroup folds every mutation under one top-level member into the
// member's replacement value. A whole-member mutation discards everything
// before it; deeper mutations after it are applied to its value.
func (m *Mutator) reduceGroup(t reflect.Type, instance any, name string, mem *Member, items []boundMutation) (any, error) {
	last := -1
	for i, it := range items {
		if len(it.bp.members) == 1 {
			last = i
		}
	}
	var cur any
	if last >= 0 {
		cv, err := coerce(items[last].value, mem.Type)
		if err != nil {
			return nil, fmt.Errorf("replacement for %s.%s: %w", t, name, err)
		}
		cur = cv.Interface()
	}
	tail := items[last+1:]
	if len(tail) == 0 {
		return cur, nil
	}
	if last < 0 {
		acc, err := m.accessorFor(t, []*Member{mem}, []string{name})
		if err != nil {
			return nil, err
		}
		if cur, err = acc(instance); err != nil {
			return nil, err
		}
	}

	sub := make([]boundMutation, len(tail))
	for i, it := range tail {
		sub[i] = boundMutation{
			bp: &boundPath{
				members: it.bp.members[1:],
				names:   it.bp.names[1:],
			},
			value: it.value,
		}
	}
	if len(sub) == 1 {
		return m.mutateOne(mem.Type, cur, sub[0].bp, sub[0].value)
	}
	return m.mutateAll(mem.Type, cur, sub)
}

// mutateEach is the batch fallback: one reconstruction per changed member
// against the evolving instance.
func (m *Mutator) mutateEach(t reflect.Type, instance any, order []string, replacements map[string]any) (any, error) {
	cur := instance
	for _, name := range order {
		a, err := m.activatorFor(t, []string{name})
		if err != nil {
			return nil, err
		}
		if cur, err = a(cur, map[string]any{name: replacements[name]}); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// rootValue checks an instance against the declared type an accessor or
// activator was compiled for.
func rootValue(instance any, t reflect.Type) (reflect.Value, error) {
	if instance == nil {
		return reflect.Value{}, fmt.Errorf("nil instance for %s: %w", t, errdefs.ErrInvalidArgument)
	}
	v := reflect.ValueOf(instance)
	if v.Type() != t {
		return reflect.Value{}, fmt.Errorf("instance is %s, want %s: %w", v.Type(), t, ErrTypeMismatch)
	}
	return v, nil
}

// coerce checks a replacement value against the type it must fill. nil is
// accepted for nilable kinds and becomes the type's zero value.
func coerce(v any, to reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch to.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
			return reflect.Zero(to), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a %s: %w", to, ErrTypeMismatch)
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(to) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s: %w", rv.Type(), to, ErrTypeMismatch)
	}
	return rv, nil
}
