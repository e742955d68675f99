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

// Package with derives new immutable object graphs from existing ones.
//
// A mutation names a dotted member path and a replacement value:
//
//	org2, err := with.Mutate(org, "Dept.Head.Name", "Robin")
//
// The result is a new graph in which every object on the path has been
// reconstructed through a constructor and everything off the path is shared
// with the input by reference. The input graph is never modified.
//
// Types with only exported fields need no setup; their memberwise
// constructor is synthesized. Types that guard their state behind getter
// methods register a constructor once, usually from an init function:
//
//	with.Register(with.Registration{
//		New:    NewEmployee,
//		Params: []string{"name", "salary"},
//	})
//
// Constructor parameters are matched to members by name: spellings that
// differ only in the case of the first letter are treated as the same name,
// so a parameter "name" feeds a member "Name". Resolution and path
// compilation results are cached per Mutator; the package-level functions
// share one default Mutator. All of it is safe for concurrent use.
package with
