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

	"github.com/containerd/errdefs"
)

// Error kinds surfaced by the engine. Each wraps an errdefs class, so callers
// may classify failures with errdefs.IsInvalidArgument and friends instead of
// depending on this package's sentinels. All of them are terminal for the
// call that triggered them: nothing is retried, and the input root is never
// modified.
var (
	// ErrInvalidPath indicates a path that is empty, malformed, or names a
	// member the addressed type does not declare.
	ErrInvalidPath = fmt.Errorf("invalid path: %w", errdefs.ErrInvalidArgument)

	// ErrTypeMismatch indicates a replacement value that is not assignable
	// to the declared type of the member it targets.
	ErrTypeMismatch = fmt.Errorf("type mismatch: %w", errdefs.ErrInvalidArgument)

	// ErrNoConstructor indicates a type with no eligible constructor
	// candidates: none are known, or all of them take zero parameters.
	ErrNoConstructor = fmt.Errorf("no eligible constructor: %w", errdefs.ErrNotFound)

	// ErrNoMatchingConstructor indicates that no candidate constructor could
	// be matched to the type's members while covering every requested target
	// member in a single call.
	ErrNoMatchingConstructor = fmt.Errorf("no matching constructor: %w", errdefs.ErrNotFound)

	// ErrAmbiguousMember indicates a constructor parameter or path component
	// that matches more than one member.
	ErrAmbiguousMember = fmt.Errorf("ambiguous member: %w", errdefs.ErrConflict)

	// ErrNilAncestor indicates a nil pointer between the root and the
	// targeted member, making the reconstruction impossible.
	ErrNilAncestor = fmt.Errorf("nil ancestor: %w", errdefs.ErrFailedPrecondition)
)
