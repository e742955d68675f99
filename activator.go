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
	"strings"

	"github.com/containerd/errdefs"
	"github.com/containerd/log"
)

// Activator rebuilds an instance of one type, replacing the member values
// named when it was resolved and carrying every other member over from the
// instance. Replacements are keyed by canonical member name; a missing key
// counts as a nil replacement.
type Activator func(instance any, replacements map[string]any) (any, error)

// Ordering selects which eligible constructor wins when several can rebuild
// a type.
type Ordering int

const (
	orderingUnset Ordering = iota

	// MostParamsFirst prefers the constructor with the most parameters, so
	// reconstruction preserves as much state as a constructor can name. This
	// is the default.
	MostParamsFirst

	// FewestParamsFirst prefers the constructor with the fewest parameters
	// that still covers the replaced members.
	FewestParamsFirst
)

// ResolveActivator resolves and caches the activator that rebuilds instances
// of t with the named members replaced. Member names may use the relaxed
// first-letter spelling; they are canonicalized before the cache is
// consulted, so "name" and "Name" share one entry.
func (m *Mutator) ResolveActivator(t reflect.Type, members ...string) (Activator, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("no members to replace: %w", errdefs.ErrInvalidArgument)
	}
	d, err := m.reflector.Describe(t)
	if err != nil {
		return nil, err
	}
	targets := make([]string, 0, len(members))
	for _, name := range members {
		mem, err := bindComponent(d, name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, mem.Name)
	}
	sort.Strings(targets)
	targets = dedupe(targets)
	return m.activatorFor(t, targets)
}

// activatorFor is the cache-facing resolver. targets must already be
// canonical, sorted and deduplicated.
func (m *Mutator) activatorFor(t reflect.Type, targets []string) (Activator, error) {
	k := activatorKey{typ: t, targets: strings.Join(targets, ",")}
	if a, ok := m.caches.activators.Load(k); ok {
		return a, nil
	}
	d, err := m.reflector.Describe(t)
	if err != nil {
		return nil, err
	}
	a, err := m.compileFor(d, targets)
	if err != nil {
		return nil, err
	}
	a, won := m.caches.storeActivator(k, a)
	if won {
		log.L.WithFields(log.Fields{
			"type":    t.String(),
			"members": k.targets,
		}).Debug("with: activator compiled")
	}
	return a, nil
}

func (m *Mutator) compileFor(d *Descriptor, targets []string) (Activator, error) {
	cands := candidates(d)
	if len(cands) == 0 {
		return nil, fmt.Errorf("%s: %w", d.Type, ErrNoConstructor)
	}
	ordering := m.ordering
	if ordering == orderingUnset {
		ordering = MostParamsFirst
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if ordering == FewestParamsFirst {
			return len(cands[i].Params) < len(cands[j].Params)
		}
		return len(cands[i].Params) > len(cands[j].Params)
	})

	var ambiguous error
	for _, c := range cands {
		plan, err := matchCandidate(d, c, targets)
		if err != nil {
			if ambiguous == nil && errors.Is(err, ErrAmbiguousMember) {
				ambiguous = err
			}
			continue
		}
		return compileActivator(d.Type, c, plan), nil
	}
	if ambiguous != nil {
		return nil, ambiguous
	}
	return nil, fmt.Errorf("%s: no constructor covers %s: %w", d.Type, strings.Join(targets, ", "), ErrNoMatchingConstructor)
}

// candidates filters the descriptor's constructors to the ones eligible for
// reconstruction. Parameterless constructors cannot carry state over. When
// any designated constructor exists, only designated ones are eligible,
// which also rules out the synthesized memberwise constructor.
func candidates(d *Descriptor) []Constructor {
	designated := false
	for _, c := range d.Constructors {
		if c.Designated {
			designated = true
			break
		}
	}
	out := make([]Constructor, 0, len(d.Constructors))
	for _, c := range d.Constructors {
		if len(c.Params) == 0 {
			continue
		}
		if designated && !c.Designated {
			continue
		}
		out = append(out, c)
	}
	return out
}

// paramSource tells a compiled activator where one constructor argument
// comes from: the replacements map when replaced, the instance otherwise.
type paramSource struct {
	member   *Member
	replaced bool
}

// matchCandidate maps every parameter of c to a member and checks that the
// replaced members are covered. A parameter matches the member whose name
// matches under the relaxed rule and whose type is identical to the
// parameter's.
func matchCandidate(d *Descriptor, c Constructor, targets []string) ([]paramSource, error) {
	plan := make([]paramSource, len(c.Params))
	covered := make(map[string]bool, len(targets))
	for i, p := range c.Params {
		var compat []*Member
		for _, mem := range d.matchMembers(p.Name) {
			if mem.Type == p.Type {
				compat = append(compat, mem)
			}
		}
		switch len(compat) {
		case 0:
			return nil, fmt.Errorf("no member feeds parameter %q of %s: %w", p.Name, d.Type, ErrNoMatchingConstructor)
		case 1:
		default:
			names := make([]string, len(compat))
			for j, mem := range compat {
				names[j] = mem.Name
			}
			return nil, fmt.Errorf("parameter %q of %s matches %s: %w", p.Name, d.Type, strings.Join(names, ", "), ErrAmbiguousMember)
		}
		mem := compat[0]
		replaced := false
		for _, tgt := range targets {
			if tgt == mem.Name {
				replaced = true
				covered[tgt] = true
				break
			}
		}
		plan[i] = paramSource{member: mem, replaced: replaced}
	}
	for _, tgt := range targets {
		if !covered[tgt] {
			return nil, fmt.Errorf("constructor of %s has no parameter for member %q: %w", d.Type, tgt, ErrNoMatchingConstructor)
		}
	}
	return plan, nil
}

func compileActivator(t reflect.Type, c Constructor, plan []paramSource) Activator {
	readsInstance := false
	for _, ps := range plan {
		if !ps.replaced {
			readsInstance = true
			break
		}
	}
	return func(instance any, replacements map[string]any) (any, error) {
		var v reflect.Value
		if readsInstance {
			var err error
			v, err = rootValue(instance, t)
			if err != nil {
				return nil, err
			}
			if err := checkNil(v, nil); err != nil {
				return nil, err
			}
		}
		args := make([]reflect.Value, len(plan))
		for i, ps := range plan {
			if ps.replaced {
				av, err := coerce(replacements[ps.member.Name], ps.member.Type)
				if err != nil {
					return nil, fmt.Errorf("replacement for %s.%s: %w", t, ps.member.Name, err)
				}
				args[i] = av
				continue
			}
			args[i] = ps.member.Get(v)
		}
		out, err := c.Call(args)
		if err != nil {
			return nil, fmt.Errorf("constructing %s: %w", t, err)
		}
		return out.Interface(), nil
	}
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
