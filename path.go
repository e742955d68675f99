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
	"regexp"
	"strings"
)

const pathSeparator = "."

// componentRe validates a single path component. Components are
// identifier-shaped: member names, or member names with the first letter
// lowered.
var componentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Path is an ordered member-name sequence read root to leaf. The zero Path
// is empty and not usable for mutation.
type Path struct {
	names []string
}

// ParsePath splits a dotted member path such as "sales.manager.firstName"
// into its components. Components are bound to members of the addressed
// types only when the path is applied to a root, so the spelling here does
// not need to match the member's exported casing.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, fmt.Errorf("empty path: %w", ErrInvalidPath)
	}
	names := strings.Split(s, pathSeparator)
	for _, name := range names {
		if !componentRe.MatchString(name) {
			return Path{}, fmt.Errorf("component %q of %q: %w", name, s, ErrInvalidPath)
		}
	}
	return Path{names: names}, nil
}

// MustParsePath is like ParsePath but panics on malformed input. Intended
// for fixed paths in variable initializers.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Names returns a copy of the path components, root to leaf.
func (p Path) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Len returns the number of components.
func (p Path) Len() int {
	return len(p.names)
}

func (p Path) String() string {
	return strings.Join(p.names, pathSeparator)
}
