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
	"testing"

	"github.com/containerd/errdefs"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutateSharesUntouchedSubtrees(t *testing.T) {
	org := newOrganization()
	org2, err := Mutate(org, "Sales.Manager.FirstName", "Robin")
	require.NoError(t, err)

	// The spine from root to leaf owner is reconstructed.
	require.NotSame(t, org, org2)
	require.NotSame(t, org.Sales, org2.Sales)
	require.NotSame(t, org.Sales.Manager, org2.Sales.Manager)

	// Everything off the path is shared by reference.
	assert.Same(t, org.Eng, org2.Eng)

	assert.Equal(t, "Robin", org2.Sales.Manager.FirstName)
	assert.Equal(t, "Kim", org2.Sales.Manager.LastName)
	assert.Equal(t, 5000, org2.Sales.Manager.Salary)
	assert.Equal(t, "Sales", org2.Sales.Name)
	assert.Equal(t, "Initech", org2.Name)

	// The input graph is never modified.
	require.Empty(t, cmp.Diff(newOrganization(), org))
}

func TestMutateIdempotent(t *testing.T) {
	org := newOrganization()

	first, err := Mutate(org, "Sales.Manager.FirstName", "Robin")
	require.NoError(t, err)
	second, err := Mutate(org, "Sales.Manager.FirstName", "Robin")
	require.NoError(t, err)

	// Identical calls agree on values but never share the rebuilt spine.
	require.Empty(t, cmp.Diff(first, second))
	require.NotSame(t, first, second)
	require.NotSame(t, first.Sales, second.Sales)
	assert.Same(t, first.Eng, second.Eng)

	// Re-applying the mutation to its own result changes nothing.
	again, err := Mutate(first, "Sales.Manager.FirstName", "Robin")
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(first, again))
	require.NotSame(t, first, again)

	require.Empty(t, cmp.Diff(newOrganization(), org))
}

func TestMutateThroughConstructors(t *testing.T) {
	c := newCompany()
	c2, err := Mutate(c, "Core.Lead.Name", "Devi")
	require.NoError(t, err)

	assert.Equal(t, "Devi", c2.Core().Lead().Name())
	assert.Equal(t, 9000, c2.Core().Lead().Salary())
	assert.Equal(t, "Umbrella", c2.Name())
	assert.Same(t, c.Ops(), c2.Ops())
	assert.NotSame(t, c.Core(), c2.Core())
	assert.Equal(t, "Dana", c.Core().Lead().Name())
}

func TestMutateRelaxedSpelling(t *testing.T) {
	org := newOrganization()
	org2, err := Mutate(org, "sales.manager.firstName", "Sky")
	require.NoError(t, err)
	assert.Equal(t, "Sky", org2.Sales.Manager.FirstName)
	assert.Same(t, org.Eng, org2.Eng)
}

func TestMutateTopLevelMember(t *testing.T) {
	org := newOrganization()
	support := &Department{Name: "Support", Manager: &Employee{FirstName: "Noor"}}

	org2, err := Mutate(org, "Sales", support)
	require.NoError(t, err)
	assert.Same(t, support, org2.Sales)
	assert.Same(t, org.Eng, org2.Eng)
	assert.Equal(t, "Initech", org2.Name)
}

func TestMutateValueRoot(t *testing.T) {
	e := Employee{FirstName: "Alex", LastName: "Kim", Salary: 5000}
	e2, err := Mutate(e, "Salary", 6000)
	require.NoError(t, err)
	assert.Equal(t, 6000, e2.Salary)
	assert.Equal(t, "Alex", e2.FirstName)
	assert.Equal(t, 5000, e.Salary)
}

func TestMutateErrors(t *testing.T) {
	org := newOrganization()
	for _, tc := range []struct {
		name  string
		path  string
		value any
		want  error
	}{
		{name: "empty path", path: "", value: "x", want: ErrInvalidPath},
		{name: "malformed path", path: "Sales..Manager", value: "x", want: ErrInvalidPath},
		{name: "unknown member", path: "Sales.CEO", value: "x", want: ErrInvalidPath},
		{name: "leaf type mismatch", path: "Name", value: 42, want: ErrTypeMismatch},
		{name: "nil for value member", path: "Sales.Manager.Salary", value: nil, want: ErrTypeMismatch},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Mutate(org, tc.path, tc.value)
			require.ErrorIs(t, err, tc.want)
			assert.True(t, errdefs.IsInvalidArgument(err))
		})
	}
}

func TestMutateNilAncestor(t *testing.T) {
	org := newOrganization()
	org.Sales = nil
	_, err := Mutate(org, "Sales.Manager.FirstName", "x")
	require.ErrorIs(t, err, ErrNilAncestor)
	assert.True(t, errdefs.IsFailedPrecondition(err))
}

// cell keeps an extra pointer level around its employee, so navigation has to
// dereference twice to reach a member.
type cell struct {
	Label string
	Ref   **Employee
}

func TestMutateThroughInnerPointer(t *testing.T) {
	e := &Employee{FirstName: "Alex", LastName: "Kim", Salary: 5000}
	c := &cell{Label: "shared", Ref: &e}

	c2, err := Mutate(c, "Ref.FirstName", "Robin")
	require.NoError(t, err)
	assert.Equal(t, "Robin", (*c2.Ref).FirstName)
	assert.Equal(t, "Kim", (*c2.Ref).LastName)
	assert.Equal(t, "shared", c2.Label)
	assert.NotSame(t, c.Ref, c2.Ref)
	assert.Equal(t, "Alex", (*c.Ref).FirstName)
}

func TestMutateNilInnerPointer(t *testing.T) {
	inner := (*Employee)(nil)
	c := &cell{Label: "shared", Ref: &inner}

	_, err := Mutate(c, "Ref.FirstName", "x")
	require.ErrorIs(t, err, ErrNilAncestor)
	assert.True(t, errdefs.IsFailedPrecondition(err))
	assert.Contains(t, err.Error(), "Ref is nil")

	// A root whose inner pointer level is nil fails the same way.
	org := (*Organization)(nil)
	_, err = Mutate(&org, "Name", "x")
	require.ErrorIs(t, err, ErrNilAncestor)
	assert.Contains(t, err.Error(), "root is nil")

	m := newTestMutator(t)
	acc, err := m.CompileAccessor(typeOf[*cell](), "Ref.FirstName")
	require.NoError(t, err)
	_, err = acc(c)
	require.ErrorIs(t, err, ErrNilAncestor)
	assert.Contains(t, err.Error(), "Ref is nil")
}

func TestMutateNilRoot(t *testing.T) {
	_, err := Default().Mutate(nil, "Name", "x")
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidArgument(err))

	_, err = Mutate((*Organization)(nil), "Name", "x")
	require.ErrorIs(t, err, ErrNilAncestor)
}

func TestMutateCachesCompilations(t *testing.T) {
	m := newTestMutator(t)
	org := newOrganization()

	_, err := m.Mutate(org, "Sales.Manager.FirstName", "A")
	require.NoError(t, err)
	// One activator per level, one accessor per proper prefix.
	first := m.CacheStats()
	assert.Equal(t, CacheStats{Activators: 3, Accessors: 2}, first)

	_, err = m.Mutate(org, "sales.manager.firstName", "B")
	require.NoError(t, err)
	assert.Equal(t, first, m.CacheStats())
}

func TestNewOptions(t *testing.T) {
	_, err := New(WithOrdering(Ordering(99)))
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidArgument(err))

	_, err = New(WithReflector(nil))
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidArgument(err))

	m, err := New(WithReflector(NewReflector()), WithOrdering(FewestParamsFirst))
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotNil(t, Default())
	assert.Same(t, Default(), Default())
}

func BenchmarkMutate(b *testing.B) {
	m, err := New()
	if err != nil {
		b.Fatal(err)
	}
	org := newOrganization()
	if _, err := m.Mutate(org, "Sales.Manager.Salary", 1); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Mutate(org, "Sales.Manager.Salary", i); err != nil {
			b.Fatal(err)
		}
	}
}
