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

	"dario.cat/mergo"
	"github.com/containerd/errdefs"
)

// Config collects the knobs of a Mutator. Zero fields are filled from
// defaults by New.
type Config struct {
	// Reflector describes the types the Mutator navigates. Defaults to the
	// shared struct reflector.
	Reflector Reflector

	// Ordering breaks ties between eligible constructors. Defaults to
	// MostParamsFirst.
	Ordering Ordering
}

// Opt configures a Mutator.
type Opt func(*Config) error

// WithReflector replaces the type reflector.
func WithReflector(r Reflector) Opt {
	return func(c *Config) error {
		if r == nil {
			return fmt.Errorf("nil reflector: %w", errdefs.ErrInvalidArgument)
		}
		c.Reflector = r
		return nil
	}
}

// WithOrdering sets the constructor preference.
func WithOrdering(o Ordering) Opt {
	return func(c *Config) error {
		switch o {
		case MostParamsFirst, FewestParamsFirst:
			c.Ordering = o
		default:
			return fmt.Errorf("unknown ordering %d: %w", o, errdefs.ErrInvalidArgument)
		}
		return nil
	}
}

// Mutator derives new object graphs from existing ones. It owns the caches
// of compiled activators and accessors and is safe for concurrent use.
type Mutator struct {
	reflector Reflector
	ordering  Ordering
	caches    *caches
}

// New returns a Mutator with empty caches.
func New(opts ...Opt) (*Mutator, error) {
	var cfg Config
	for _, o := range opts {
		if err := o(&cfg); err != nil {
			return nil, err
		}
	}
	if err := mergo.Merge(&cfg, defaultConfig()); err != nil {
		return nil, err
	}
	return &Mutator{
		reflector: cfg.Reflector,
		ordering:  cfg.Ordering,
		caches:    newCaches(),
	}, nil
}

func defaultConfig() Config {
	return Config{
		Reflector: defaultReflector,
		Ordering:  MostParamsFirst,
	}
}

var defaultMutator = func() *Mutator {
	m, err := New()
	if err != nil {
		panic(err)
	}
	return m
}()

// Default returns the process-wide Mutator used by Mutate and MutateAll.
func Default() *Mutator {
	return defaultMutator
}

// Mutation names one path to replace and the value to put there.
type Mutation struct {
	Path  string
	Value any
}

// Set builds a Mutation for MutateAll.
func Set(path string, value any) Mutation {
	return Mutation{Path: path, Value: value}
}

// Mutate derives a new graph from root with the value at path replaced.
// Everything off the path is shared with root by reference; root itself is
// never modified.
func Mutate[T any](root T, path string, value any) (T, error) {
	out, err := defaultMutator.Mutate(root, path, value)
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

// MutateAll derives a new graph from root with every mutation applied.
// Mutations under the same member are folded together; when several target
// the same path, the last one wins.
func MutateAll[T any](root T, muts ...Mutation) (T, error) {
	out, err := defaultMutator.MutateAll(root, muts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

// Mutate derives a new graph from root with the value at path replaced.
func (m *Mutator) Mutate(root any, path string, value any) (any, error) {
	if root == nil {
		return nil, fmt.Errorf("nil root: %w", errdefs.ErrInvalidArgument)
	}
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	t := reflect.TypeOf(root)
	bp, err := bindPath(m.reflector, t, p)
	if err != nil {
		return nil, err
	}
	return m.mutateOne(t, root, bp, value)
}

// MutateAll derives a new graph from root with every mutation applied.
func (m *Mutator) MutateAll(root any, muts ...Mutation) (any, error) {
	if root == nil {
		return nil, fmt.Errorf("nil root: %w", errdefs.ErrInvalidArgument)
	}
	if len(muts) == 0 {
		return nil, fmt.Errorf("no mutations: %w", errdefs.ErrInvalidArgument)
	}
	t := reflect.TypeOf(root)
	bound := make([]boundMutation, len(muts))
	for i, mu := range muts {
		p, err := ParsePath(mu.Path)
		if err != nil {
			return nil, err
		}
		bp, err := bindPath(m.reflector, t, p)
		if err != nil {
			return nil, err
		}
		bound[i] = boundMutation{bp: bp, value: mu.Value}
	}
	return m.mutateAll(t, root, bound)
}

// CacheStats reports how many activators and accessors this Mutator has
// compiled and retained.
func (m *Mutator) CacheStats() CacheStats {
	return m.caches.stats()
}
