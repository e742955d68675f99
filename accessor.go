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
	"strings"

	"github.com/containerd/log"
)

// Accessor reads the value at a fixed member path from an instance of the
// root type it was compiled for.
type Accessor func(instance any) (any, error)

// boundPath is a parsed path resolved against declared types: one member per
// component, with every spelling canonicalized to the member's own name.
type boundPath struct {
	members []*Member
	names   []string
}

func bindPath(r Reflector, root reflect.Type, p Path) (*boundPath, error) {
	bp := &boundPath{
		members: make([]*Member, 0, p.Len()),
		names:   make([]string, 0, p.Len()),
	}
	t := root
	for _, name := range p.Names() {
		d, err := r.Describe(t)
		if err != nil {
			return nil, err
		}
		m, err := bindComponent(d, name)
		if err != nil {
			return nil, err
		}
		bp.members = append(bp.members, m)
		bp.names = append(bp.names, m.Name)
		t = m.Type
	}
	return bp, nil
}

// bindComponent resolves one path component against a descriptor. An exact
// name wins outright; otherwise the relaxed first-letter match must be
// unique.
func bindComponent(d *Descriptor, name string) (*Member, error) {
	if m, ok := d.Member(name); ok {
		return m, nil
	}
	switch ms := d.matchMembers(name); len(ms) {
	case 0:
		return nil, fmt.Errorf("%s has no member %q: %w", d.Type, name, ErrInvalidPath)
	case 1:
		return ms[0], nil
	default:
		names := make([]string, len(ms))
		for i, m := range ms {
			names[i] = m.Name
		}
		return nil, fmt.Errorf("%q on %s matches %s: %w", name, d.Type, strings.Join(names, ", "), ErrAmbiguousMember)
	}
}

// CompileAccessor compiles, or fetches from cache, the reader for path
// rooted at the given declared type.
func (m *Mutator) CompileAccessor(root reflect.Type, path string) (Accessor, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	bp, err := bindPath(m.reflector, root, p)
	if err != nil {
		return nil, err
	}
	return m.accessorFor(root, bp.members, bp.names)
}

func (m *Mutator) accessorFor(root reflect.Type, members []*Member, names []string) (Accessor, error) {
	k := accessorKey{typ: root, path: strings.Join(names, pathSeparator)}
	if a, ok := m.caches.accessors.Load(k); ok {
		return a, nil
	}
	a, won := m.caches.storeAccessor(k, compileAccessor(root, members, names))
	if won {
		log.L.WithFields(log.Fields{
			"type": root.String(),
			"path": k.path,
		}).Debug("with: accessor compiled")
	}
	return a, nil
}

func compileAccessor(root reflect.Type, members []*Member, names []string) Accessor {
	members = append([]*Member(nil), members...)
	names = append([]string(nil), names...)
	return func(instance any) (any, error) {
		v, err := rootValue(instance, root)
		if err != nil {
			return nil, err
		}
		for i, m := range members {
			if err := checkNil(v, names[:i]); err != nil {
				return nil, err
			}
			v = m.Get(v)
		}
		return v.Interface(), nil
	}
}

// checkNil walks every pointer and interface level of v, reporting the
// prefix at as a nil ancestor on the first nil hop. Dereferencing stops at
// the first non-pointer value, so nil members of a struct stay legal.
func checkNil(v reflect.Value, at []string) error {
	for {
		switch v.Kind() {
		case reflect.Pointer, reflect.Interface:
			if v.IsNil() {
				return nilAncestor(at)
			}
			v = v.Elem()
		default:
			return nil
		}
	}
}

func nilAncestor(at []string) error {
	name := "root"
	if len(at) > 0 {
		name = strings.Join(at, pathSeparator)
	}
	return fmt.Errorf("%s is nil: %w", name, ErrNilAncestor)
}
