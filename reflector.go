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
	"fmt"
	"reflect"

	"github.com/containerd/errdefs"
	"github.com/puzpuzpuz/xsync/v3"
)

// structReflector is the default Reflector. It describes struct types (and
// pointers to them) from their exported fields, their getter methods and the
// constructor registry, and memoizes descriptors per type.
type structReflector struct {
	descriptors *xsync.MapOf[reflect.Type, *Descriptor]
}

// NewReflector returns a struct reflector with its own descriptor cache.
// Registered constructors are process-wide and visible to every reflector.
func NewReflector() Reflector {
	return &structReflector{descriptors: xsync.NewMapOf[reflect.Type, *Descriptor]()}
}

var defaultReflector = NewReflector().(*structReflector)

func (r *structReflector) Describe(t reflect.Type) (*Descriptor, error) {
	if d, ok := r.descriptors.Load(t); ok {
		return d, nil
	}
	d, err := describe(t)
	if err != nil {
		return nil, err
	}
	// First description wins so concurrent callers observe one descriptor.
	d, _ = r.descriptors.LoadOrStore(t, d)
	return d, nil
}

func describe(t reflect.Type) (*Descriptor, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot describe nil type: %w", errdefs.ErrInvalidArgument)
	}
	base, depth := t, 0
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
		depth++
	}
	if base.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot describe %s: not a struct type: %w", t, errdefs.ErrInvalidArgument)
	}

	d := &Descriptor{Type: t}
	// hidden state blocks constructor synthesis: a synthesized constructor
	// would silently zero anything it cannot name.
	var (
		hidden     bool
		fieldIdx   []int
		fieldNames []string
	)
	for i := 0; i < base.NumField(); i++ {
		f := base.Field(i)
		if !f.IsExported() {
			hidden = true
			continue
		}
		name := f.Name
		switch tag := f.Tag.Get("with"); tag {
		case "":
		case "-":
			hidden = true
			continue
		default:
			if !componentRe.MatchString(tag) {
				return nil, fmt.Errorf("%s.%s: invalid member name %q in with tag: %w", base, f.Name, tag, errdefs.ErrInvalidArgument)
			}
			name = tag
		}
		if _, taken := d.Member(name); taken {
			return nil, fmt.Errorf("%s.%s: duplicate member name %q: %w", base, f.Name, name, errdefs.ErrInvalidArgument)
		}
		idx := i
		d.Members = append(d.Members, Member{
			Name: name,
			Type: f.Type,
			Get: func(v reflect.Value) reflect.Value {
				return indirect(v).Field(idx)
			},
		})
		fieldIdx = append(fieldIdx, i)
		fieldNames = append(fieldNames, name)
	}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		mt := m.Func.Type()
		if mt.NumIn() != 1 || mt.NumOut() != 1 || mt.Out(0) == errType {
			continue
		}
		if _, taken := d.Member(m.Name); taken {
			continue
		}
		// A getter is only a member when it exposes a backing field of the
		// same type, so a replacement value has somewhere to land.
		f, ok := base.FieldByName(lowerFirst(m.Name))
		if !ok || len(f.Index) != 1 || f.Type != mt.Out(0) {
			continue
		}
		idx := m.Index
		d.Members = append(d.Members, Member{
			Name: m.Name,
			Type: mt.Out(0),
			Get: func(v reflect.Value) reflect.Value {
				return v.Method(idx).Call(nil)[0]
			},
		})
	}

	d.Constructors = registered(t)
	if !hidden && len(fieldIdx) > 0 {
		d.Constructors = append(d.Constructors, synthesized(base, depth, fieldIdx, fieldNames))
	}
	if len(d.Members) == 0 {
		return nil, fmt.Errorf("cannot describe %s: no members: %w", t, errdefs.ErrInvalidArgument)
	}
	return d, nil
}

// synthesized builds the memberwise constructor for a struct whose state is
// fully visible through its exported fields.
func synthesized(base reflect.Type, depth int, fieldIdx []int, fieldNames []string) Constructor {
	params := make([]Param, len(fieldIdx))
	for i, fi := range fieldIdx {
		params[i] = Param{Name: lowerFirst(fieldNames[i]), Type: base.Field(fi).Type}
	}
	call := func(args []reflect.Value) (reflect.Value, error) {
		pv := reflect.New(base)
		ev := pv.Elem()
		for i, fi := range fieldIdx {
			ev.Field(fi).Set(args[i])
		}
		out := ev
		if depth > 0 {
			out = pv
			for i := 1; i < depth; i++ {
				pp := reflect.New(out.Type())
				pp.Elem().Set(out)
				out = pp
			}
		}
		return out, nil
	}
	return Constructor{Params: params, Call: call}
}
