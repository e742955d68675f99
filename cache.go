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

	"github.com/puzpuzpuz/xsync/v3"
)

// activatorKey identifies a compiled activator by owning type and the
// canonical comma-joined member names it replaces.
type activatorKey struct {
	typ     reflect.Type
	targets string
}

// accessorKey identifies a compiled accessor by root type and the canonical
// dotted path it reads.
type accessorKey struct {
	typ  reflect.Type
	path string
}

// caches hold compiled activators and accessors for one Mutator. Both maps
// are append only. Compilation runs outside any map lock, so concurrent
// misses may compile the same entry twice; LoadOrStore keeps the first and
// the loser is discarded.
type caches struct {
	activators *xsync.MapOf[activatorKey, Activator]
	accessors  *xsync.MapOf[accessorKey, Accessor]
}

func newCaches() *caches {
	return &caches{
		activators: xsync.NewMapOf[activatorKey, Activator](),
		accessors:  xsync.NewMapOf[accessorKey, Accessor](),
	}
}

// storeActivator publishes a freshly compiled activator and returns the entry
// every caller should use. won reports whether a became the cached entry.
func (c *caches) storeActivator(k activatorKey, a Activator) (Activator, bool) {
	actual, loaded := c.activators.LoadOrStore(k, a)
	return actual, !loaded
}

func (c *caches) storeAccessor(k accessorKey, a Accessor) (Accessor, bool) {
	actual, loaded := c.accessors.LoadOrStore(k, a)
	return actual, !loaded
}

// CacheStats reports the number of compiled entries retained by a Mutator.
type CacheStats struct {
	Activators int
	Accessors  int
}

func (c *caches) stats() CacheStats {
	return CacheStats{
		Activators: c.activators.Size(),
		Accessors:  c.accessors.Size(),
	}
}
