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
	"sync"

	"github.com/containerd/errdefs"
	"github.com/containerd/log"
)

// Registration declares a constructor function for the type it returns.
// Reflection cannot recover Go parameter names, so registrations carry them
// explicitly.
type Registration struct {
	// New is the constructor: func(...) T or func(...) (T, error). An error
	// returned by the constructor aborts the mutation that invoked it.
	New any

	// Params names New's parameters in order. The names are matched against
	// member names when resolving, so they follow the usual Go parameter
	// spelling: "firstName" for a FirstName member.
	Params []string

	// Designated restricts reconstruction of the result type to designated
	// constructors whenever at least one is registered.
	Designated bool
}

var (
	registryMu sync.Mutex
	registry   = map[reflect.Type][]Constructor{}
)

// Register adds constructor registrations to the process-wide registry
// consulted by the default reflector. Like other type registries it is meant
// to run from init functions: invalid registrations panic, and a type that
// was described before a later registration keeps its earlier descriptor.
func Register(rs ...Registration) {
	for _, r := range rs {
		c, t, err := newConstructor(r)
		if err != nil {
			panic(err)
		}
		registryMu.Lock()
		registry[t] = append(registry[t], c)
		registryMu.Unlock()
		log.L.WithFields(log.Fields{
			"type":       t.String(),
			"params":     len(c.Params),
			"designated": c.Designated,
		}).Debug("with: constructor registered")
	}
}

// registered snapshots the registered constructors for t.
func registered(t reflect.Type) []Constructor {
	registryMu.Lock()
	defer registryMu.Unlock()
	cs := registry[t]
	out := make([]Constructor, len(cs))
	copy(out, cs)
	return out
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// newConstructor validates a registration and compiles its Constructor,
// returning the constructed (result) type it registers for.
func newConstructor(r Registration) (Constructor, reflect.Type, error) {
	if r.New == nil {
		return Constructor{}, nil, fmt.Errorf("registration without a constructor: %w", errdefs.ErrInvalidArgument)
	}
	fv := reflect.ValueOf(r.New)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return Constructor{}, nil, fmt.Errorf("constructor must be a function, got %s: %w", ft, errdefs.ErrInvalidArgument)
	}
	if ft.IsVariadic() {
		return Constructor{}, nil, fmt.Errorf("variadic constructor %s: %w", ft, errdefs.ErrInvalidArgument)
	}
	switch ft.NumOut() {
	case 1:
		if ft.Out(0) == errType {
			return Constructor{}, nil, fmt.Errorf("constructor %s returns only an error: %w", ft, errdefs.ErrInvalidArgument)
		}
	case 2:
		if ft.Out(1) != errType {
			return Constructor{}, nil, fmt.Errorf("second result of %s must be error: %w", ft, errdefs.ErrInvalidArgument)
		}
	default:
		return Constructor{}, nil, fmt.Errorf("constructor %s must return a value or (value, error): %w", ft, errdefs.ErrInvalidArgument)
	}
	if ft.NumIn() != len(r.Params) {
		return Constructor{}, nil, fmt.Errorf("constructor %s has %d parameters, %d names given: %w", ft, ft.NumIn(), len(r.Params), errdefs.ErrInvalidArgument)
	}

	params := make([]Param, ft.NumIn())
	seen := make(map[string]struct{}, len(params))
	for i := range params {
		name := r.Params[i]
		if !componentRe.MatchString(name) {
			return Constructor{}, nil, fmt.Errorf("parameter name %q: %w", name, errdefs.ErrInvalidArgument)
		}
		if _, dup := seen[name]; dup {
			return Constructor{}, nil, fmt.Errorf("duplicate parameter name %q: %w", name, errdefs.ErrInvalidArgument)
		}
		seen[name] = struct{}{}
		params[i] = Param{Name: name, Type: ft.In(i)}
	}

	call := func(args []reflect.Value) (reflect.Value, error) {
		out := fv.Call(args)
		if len(out) == 2 && !out[1].IsNil() {
			return reflect.Value{}, out[1].Interface().(error)
		}
		return out[0], nil
	}
	return Constructor{Params: params, Designated: r.Designated, Call: call}, ft.Out(0), nil
}
