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
	"reflect"
	"unicode"
	"unicode/utf8"
)

// Member is one reconstructable member of a type: a named value that can be
// read from an instance and fed back into a constructor when rebuilding.
// Members are immutable once described.
type Member struct {
	// Name uniquely identifies the member within its declaring type.
	Name string

	// Type is the member's declared type.
	Type reflect.Type

	// Get reads the member's current value from an instance of the
	// declaring type. Callers guarantee the instance is not a nil pointer.
	Get func(instance reflect.Value) reflect.Value
}

// Param is a single positional constructor parameter.
type Param struct {
	Name string
	Type reflect.Type
}

// Constructor is one candidate callable for rebuilding instances of a type.
type Constructor struct {
	// Params describes the parameters in call order.
	Params []Param

	// Designated marks the candidate as preferred for reconstruction. When
	// a type has designated candidates, only those are considered.
	Designated bool

	// Call invokes the constructor with exactly one argument per parameter.
	Call func(args []reflect.Value) (reflect.Value, error)
}

// Descriptor aggregates the reconstruction metadata of a single type. The
// descriptor for a pointer type keeps its pointerness: its constructors
// produce pointers and its members read through them.
type Descriptor struct {
	// Type is the described type as declared.
	Type reflect.Type

	// Members lists the reconstructable members in a stable order.
	Members []Member

	// Constructors lists the candidates in a stable order.
	Constructors []Constructor
}

// Reflector supplies type descriptors to the engine. Implementations must be
// deterministic and side-effect free: describing the same type twice yields
// behaviorally identical descriptors.
type Reflector interface {
	Describe(t reflect.Type) (*Descriptor, error)
}

// Member returns the member with the exact given name.
func (d *Descriptor) Member(name string) (*Member, bool) {
	for i := range d.Members {
		if d.Members[i].Name == name {
			return &d.Members[i], true
		}
	}
	return nil, false
}

// matchMembers returns every member whose name matches under the relaxed
// first-letter rule.
func (d *Descriptor) matchMembers(name string) []*Member {
	var out []*Member
	for i := range d.Members {
		if nameMatch(name, d.Members[i].Name) {
			out = append(out, &d.Members[i])
		}
	}
	return out
}

// nameMatch reports whether two member names are equal modulo the case of
// their first character: equal length, first characters equal
// case-insensitively, remainder equal case-sensitively. This is the rule
// that lets the parameter "firstName" address the member "FirstName".
func nameMatch(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	if a == b {
		return true
	}
	ra, za := utf8.DecodeRuneInString(a)
	rb, zb := utf8.DecodeRuneInString(b)
	if za != zb || a[za:] != b[zb:] {
		return false
	}
	return unicode.ToLower(ra) == unicode.ToLower(rb)
}

// lowerFirst lowers the first rune of a name, mapping the member "FirstName"
// to the parameter spelling "firstName".
func lowerFirst(s string) string {
	r, z := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && z <= 1 {
		return s
	}
	l := unicode.ToLower(r)
	if l == r {
		return s
	}
	return string(l) + s[z:]
}

// indirect walks pointers down to the addressed value. Callers guarantee the
// pointers are non-nil.
func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return v
}
