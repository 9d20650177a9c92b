package join

import (
	"fmt"

	"github.com/rmlgo/rml/model"
	"github.com/rmlgo/rml/rdf"
	"github.com/rmlgo/rml/rmlerr"
	"github.com/rmlgo/rml/template"
)

// Match is one resolved RefObjectMap pairing: a child subject joined to a
// parent subject, together with the child record that produced it so the
// caller can re-run any graph/predicate generators that still need record
// context (spec §4.4).
type Match struct {
	ChildSubject  rdf.Term
	ParentSubject rdf.Term
	Record        template.MapRecord
}

// evalExpr evaluates one join-condition expression (a plain reference
// expression, not a template) against rec, returning its first bound value.
// A multi-valued reference uses only the first value, consistent with join
// conditions operating over singular columns in practice.
func evalExpr(rec template.Record, expr string) (string, bool) {
	values, ok := rec.Get(expr)
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func evalConditions(rec template.Record, exprs []string) (values []string, ok bool) {
	values = make([]string, len(exprs))
	for i, expr := range exprs {
		v, present := evalExpr(rec, expr)
		if !present {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func childExprs(conds []model.JoinCondition) []string {
	out := make([]string, len(conds))
	for i, c := range conds {
		out[i] = c.ChildExpr
	}
	return out
}

func parentExprs(conds []model.JoinCondition) []string {
	out := make([]string, len(conds))
	for i, c := range conds {
		out[i] = c.ParentExpr
	}
	return out
}

// Relation is the child/parent join store for one RefObjectMap, implementing
// the symmetric hash-join of spec §4.4: child rows and parent entries may
// arrive interleaved and in either order, and Match is only computed once
// both sides have finished feeding.
type Relation struct {
	ID         string
	Conditions []model.JoinCondition

	child  ChildStore
	parent ParentStore
}

// NewRelation opens the child and parent stores for relationID via
// provider. Conditions may be empty, in which case the relation behaves as
// a self-join (spec §4.4 rule 4: every parent paired with every child).
func NewRelation(relationID string, conditions []model.JoinCondition, provider StoreProvider) (*Relation, error) {
	if provider == nil {
		provider = MemoryProvider{}
	}
	child, err := provider.OpenChild(relationID)
	if err != nil {
		return nil, &rmlerr.JoinStoreError{Err: fmt.Errorf("open child store for %q: %w", relationID, err)}
	}
	parent, err := provider.OpenParent(relationID)
	if err != nil {
		child.Close()
		return nil, &rmlerr.JoinStoreError{Err: fmt.Errorf("open parent store for %q: %w", relationID, err)}
	}
	return &Relation{ID: relationID, Conditions: conditions, child: child, parent: parent}, nil
}

// SelfJoin reports whether this relation has no join conditions.
func (r *Relation) SelfJoin() bool { return len(r.Conditions) == 0 }

// AddChild evaluates the relation's child-side join expressions against rec
// and, if every expression is bound, appends a candidate row. A row whose
// join expression is absent is dropped and reported through warn rather
// than treated as fatal (spec §4.4 "dropped row" / §7 Warning taxonomy),
// since missing join keys are routine in joined data.
func (r *Relation) AddChild(childSubject rdf.Term, rec template.MapRecord, triplesMap string, warn func(rmlerr.Warning)) error {
	if r.SelfJoin() {
		return r.child.Append(ChildRow{ChildSubject: ToTermRepr(childSubject), Record: rec})
	}
	values, ok := evalConditions(rec, childExprs(r.Conditions))
	if !ok {
		if warn != nil {
			warn(rmlerr.Warning{
				Kind:       rmlerr.WarningJoinRowDropped,
				TriplesMap: triplesMap,
				Detail:     fmt.Sprintf("relation %q: child join condition unresolved", r.ID),
			})
		}
		return nil
	}
	return r.child.Append(ChildRow{ChildSubject: ToTermRepr(childSubject), JoinValues: values, Record: rec})
}

// AddParent evaluates the relation's parent-side join expressions against
// rec and, if every expression is bound, registers the parent subject.
// Like AddChild, an unresolved condition drops the row with a warning
// rather than aborting the mapping.
func (r *Relation) AddParent(subject rdf.Term, rec template.MapRecord, triplesMap string, warn func(rmlerr.Warning)) error {
	if r.SelfJoin() {
		return r.parent.Register(ParentEntry{Subject: ToTermRepr(subject)})
	}
	values, ok := evalConditions(rec, parentExprs(r.Conditions))
	if !ok {
		if warn != nil {
			warn(rmlerr.Warning{
				Kind:       rmlerr.WarningJoinRowDropped,
				TriplesMap: triplesMap,
				Detail:     fmt.Sprintf("relation %q: parent join condition unresolved", r.ID),
			})
		}
		return nil
	}
	return r.parent.Register(ParentEntry{Subject: ToTermRepr(subject), JoinValues: values})
}

// Match resolves every child row against the registered parent entries:
// a hash lookup on join values for a conditioned relation, or the full
// cross product for a self-join relation. Results preserve child row order,
// and within one child row, parent registration order.
func (r *Relation) Match() ([]Match, error) {
	childRows, err := r.child.All()
	if err != nil {
		return nil, &rmlerr.JoinStoreError{Err: err}
	}

	if r.SelfJoin() {
		parents, err := r.parent.All()
		if err != nil {
			return nil, &rmlerr.JoinStoreError{Err: err}
		}
		matches := make([]Match, 0, len(childRows)*len(parents))
		for _, row := range childRows {
			for _, p := range parents {
				matches = append(matches, Match{
					ChildSubject:  row.ChildSubject.Term(),
					ParentSubject: p.Subject.Term(),
					Record:        row.Record,
				})
			}
		}
		return matches, nil
	}

	var matches []Match
	for _, row := range childRows {
		parentSubjects, err := r.parent.Lookup(row.JoinValues)
		if err != nil {
			return nil, &rmlerr.JoinStoreError{Err: err}
		}
		for _, ps := range parentSubjects {
			matches = append(matches, Match{
				ChildSubject:  row.ChildSubject.Term(),
				ParentSubject: ps.Term(),
				Record:        row.Record,
			})
		}
	}
	return matches, nil
}

// Close releases both stores' resources.
func (r *Relation) Close() error {
	err1 := r.child.Close()
	err2 := r.parent.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Engine manages one Relation per RefObjectMap encountered during a mapping
// run, keyed by a caller-assigned relation ID (typically the owning
// TriplesMap ID plus the PredicateObjectMap/RefObjectMap index).
type Engine struct {
	provider  StoreProvider
	relations map[string]*Relation
}

// NewEngine constructs an Engine backed by provider (MemoryProvider if nil).
func NewEngine(provider StoreProvider) *Engine {
	if provider == nil {
		provider = MemoryProvider{}
	}
	return &Engine{provider: provider, relations: make(map[string]*Relation)}
}

// Relation returns the Relation for relationID, opening it against the
// Engine's provider and conditions on first use.
func (e *Engine) Relation(relationID string, conditions []model.JoinCondition) (*Relation, error) {
	if rel, ok := e.relations[relationID]; ok {
		return rel, nil
	}
	rel, err := NewRelation(relationID, conditions, e.provider)
	if err != nil {
		return nil, err
	}
	e.relations[relationID] = rel
	return rel, nil
}

// Close releases every relation's stores.
func (e *Engine) Close() error {
	var firstErr error
	for _, rel := range e.relations {
		if err := rel.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
