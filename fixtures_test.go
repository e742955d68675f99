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
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func newTestMutator(t *testing.T) *Mutator {
	t.Helper()
	m, err := New()
	require.NoError(t, err)
	return m
}

// Exported-field flavor. These types need no registration: their memberwise
// constructor is synthesized from the fields.

type Employee struct {
	FirstName string
	LastName  string
	Salary    int
}

type Department struct {
	Name    string
	Manager *Employee
}

type Organization struct {
	Name  string
	Sales *Department
	Eng   *Department
}

func newOrganization() *Organization {
	return &Organization{
		Name: "Initech",
		Sales: &Department{
			Name:    "Sales",
			Manager: &Employee{FirstName: "Alex", LastName: "Kim", Salary: 5000},
		},
		Eng: &Department{
			Name:    "Engineering",
			Manager: &Employee{FirstName: "Sam", LastName: "Lee", Salary: 7000},
		},
	}
}

// Getter flavor. State is unexported, so reconstruction goes through the
// constructors registered in init below.

var errNegativeSalary = errors.New("negative salary")

type Person struct {
	name   string
	salary int
}

func NewPerson(name string, salary int) (*Person, error) {
	if salary < 0 {
		return nil, errNegativeSalary
	}
	return &Person{name: name, salary: salary}, nil
}

func (p *Person) Name() string { return p.name }
func (p *Person) Salary() int  { return p.salary }

type Team struct {
	name string
	lead *Person
}

func NewTeam(name string, lead *Person) *Team {
	return &Team{name: name, lead: lead}
}

func (t *Team) Name() string  { return t.name }
func (t *Team) Lead() *Person { return t.lead }

// companyCtorCalls counts NewCompany invocations so tests can observe how
// many reconstructions a batch performed.
var companyCtorCalls atomic.Int64

type Company struct {
	name string
	core *Team
	ops  *Team
}

func NewCompany(name string, core, ops *Team) *Company {
	companyCtorCalls.Add(1)
	return &Company{name: name, core: core, ops: ops}
}

func (c *Company) Name() string { return c.name }
func (c *Company) Core() *Team  { return c.core }
func (c *Company) Ops() *Team   { return c.ops }

func mustPerson(name string, salary int) *Person {
	p, err := NewPerson(name, salary)
	if err != nil {
		panic(err)
	}
	return p
}

func newCompany() *Company {
	return NewCompany("Umbrella",
		NewTeam("Core", mustPerson("Dana", 9000)),
		NewTeam("Ops", mustPerson("Kai", 8000)),
	)
}

// Gauge has one full and one minimal constructor, for ordering tests.

type Gauge struct {
	label string
	value int
	unit  string
}

func NewGauge(label string, value int, unit string) *Gauge {
	return &Gauge{label: label, value: value, unit: unit}
}

func NewGaugeBare(label string) *Gauge {
	return &Gauge{label: label}
}

func (g *Gauge) Label() string { return g.label }
func (g *Gauge) Value() int    { return g.value }
func (g *Gauge) Unit() string  { return g.unit }

// Ledger registers a designated constructor that does not carry the audit
// member, so reconstruction is restricted to it.

type Ledger struct {
	entries []string
	audit   string
}

func NewLedger(entries []string) *Ledger {
	return &Ledger{entries: entries}
}

func NewLedgerAudited(entries []string, audit string) *Ledger {
	return &Ledger{entries: entries, audit: audit}
}

func (l *Ledger) Entries() []string { return l.entries }
func (l *Ledger) Audit() string     { return l.audit }

// Collide declares two members whose names differ only in the case of the
// first letter, so constructor parameters cannot be matched to it.

type Collide struct {
	Alias string `with:"name"`
	Name  string
	Num   int
}

// Opaque has a readable member but no way to rebuild an instance.

type Opaque struct {
	secret string
}

func (o *Opaque) Secret() string { return o.secret }

// Triple has two registered constructors that each cover only part of the
// members, so no single one can rebuild two arbitrary members at once.

type Triple struct {
	a string
	b string
	c string
}

func NewTripleAB(a, b string) *Triple { return &Triple{a: a, b: b} }
func NewTripleBC(b, c string) *Triple { return &Triple{b: b, c: c} }

func (t *Triple) A() string { return t.a }
func (t *Triple) B() string { return t.b }
func (t *Triple) C() string { return t.c }

func init() {
	Register(
		Registration{New: NewPerson, Params: []string{"name", "salary"}},
		Registration{New: NewTeam, Params: []string{"name", "lead"}},
		Registration{New: NewCompany, Params: []string{"name", "core", "ops"}},
		Registration{New: NewGauge, Params: []string{"label", "value", "unit"}},
		Registration{New: NewGaugeBare, Params: []string{"label"}},
		Registration{New: NewLedger, Params: []string{"entries"}, Designated: true},
		Registration{New: NewLedgerAudited, Params: []string{"entries", "audit"}},
		Registration{New: NewTripleAB, Params: []string{"a", "b"}},
		Registration{New: NewTripleBC, Params: []string{"b", "c"}},
	)
}
