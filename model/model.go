// Package model holds the in-memory mapping model: TriplesMap and the term
// map hierarchy described in spec §3. Entities are plain structs built by
// the mapping loader and frozen before execution; nothing here performs
// I/O.
package model

// TermType selects the kind of RDF term a TermMap produces.
type TermType int

const (
	// TermTypeIRI produces IRI terms (the default for subject/predicate maps).
	TermTypeIRI TermType = iota
	// TermTypeBlankNode produces blank node terms.
	TermTypeBlankNode
	// TermTypeLiteral produces literal terms (the default for object maps
	// with a reference or template).
	TermTypeLiteral
)

// LogicalSource is the description of a mapping's input: an opaque source
// reference, a reference-formulation IRI selecting the decoder, and an
// optional iterator expression into hierarchical sources.
//
// Two TriplesMaps with equal LogicalSources (by value) share one pipeline.
type LogicalSource struct {
	SourceReference     string
	ReferenceFormulation string
	Iterator            string
}

// Equal reports whether two logical sources describe the same input, per
// spec §3 ("Equality by value").
func (ls LogicalSource) Equal(other LogicalSource) bool {
	return ls.SourceReference == other.SourceReference &&
		ls.ReferenceFormulation == other.ReferenceFormulation &&
		ls.Iterator == other.Iterator
}

// Key returns a stable, comparable identity for use as a map key, since
// LogicalSource itself is comparable (all fields are strings) and can be
// used directly, but Key documents the intended grouping key explicitly.
func (ls LogicalSource) Key() LogicalSource { return ls }

// FunctionArg is one named argument of a FunctionTermMap call: the
// parameter IRI paired with the TermMap producing its value.
type FunctionArg struct {
	Parameter string
	Value     *TermMap
}

// TermMap is the abstract term-generating sub-rule of spec §3: exactly one
// of Constant, Reference, Template or Function is set.
type TermMap struct {
	// Resource identifies this term map's node in the mapping graph
	// (IRI or blank node label), for diagnostics and cache keys.
	Resource string

	Constant  *Term // nil unless this is a constant term map
	Reference string // "" unless this is a reference term map
	Template  string // "" unless this is a template term map

	// Function, when non-empty, is the IRI of the registered function this
	// term map invokes; Args supplies its evaluated arguments.
	Function string
	Args     []FunctionArg

	Type     TermType
	Datatype string // IRI, literal term maps only
	Language string // literal term maps only
}

// Kind enumerates which of the four TermMap forms is populated.
type Kind int

const (
	KindInvalid Kind = iota
	KindConstant
	KindReference
	KindTemplate
	KindFunction
)

// Kind reports which TermMap form is set. A malformed TermMap with more
// than one form set, or none, is a ConfigurationError at load time; Kind
// itself never validates, it only inspects.
func (tm *TermMap) Kind() Kind {
	set := 0
	k := KindInvalid
	if tm.Constant != nil {
		set++
		k = KindConstant
	}
	if tm.Reference != "" {
		set++
		k = KindReference
	}
	if tm.Template != "" {
		set++
		k = KindTemplate
	}
	if tm.Function != "" {
		set++
		k = KindFunction
	}
	if set != 1 {
		return KindInvalid
	}
	return k
}

// Term is a constant RDF term value (IRI, blank node or literal) as used in
// rr:constant. It mirrors rdf.Term's shape without importing the rdf
// package, keeping the model package dependency-free; mapping loaders
// convert between the two.
type Term struct {
	Kind     TermType
	Value    string // IRI, blank node id, or literal lexical value
	Datatype string
	Language string
}

// GraphMap is a TermMap restricted to producing IRIs or the default graph,
// used both at the subject level and per PredicateObjectMap.
type GraphMap struct {
	TermMap TermMap
}

// SubjectMap is the TermMap that generates a TriplesMap's subject. It may
// additionally declare rdf:type classes and graphs.
type SubjectMap struct {
	TermMap TermMap
	Classes []string // rr:class IRIs
	Graphs  []GraphMap
}

// Mappable reports whether the subject map can ever produce a term, per
// spec §3's TriplesMap invariant.
func (sm *SubjectMap) Mappable() bool {
	return sm != nil && sm.TermMap.Kind() != KindInvalid
}

// PredicateMap is the TermMap generating a predicate IRI.
type PredicateMap struct {
	TermMap TermMap
}

// ObjectMap is the TermMap generating an object term. RefObjectMap is
// represented as a distinct type; an ObjectMap and a RefObjectMap are
// mutually exclusive members of one PredicateObjectMap's Objects/RefObjects.
type ObjectMap struct {
	TermMap TermMap
}

// JoinCondition pairs a child-side and parent-side expression that must
// evaluate equal for a RefObjectMap match (spec §3/§4.4).
type JoinCondition struct {
	ChildExpr  string
	ParentExpr string
}

// RefObjectMap references a parent TriplesMap and zero or more join
// conditions. No join conditions means a direct product over every subject
// the parent TriplesMap produces; the engine does not check that parent and
// child share a logical source.
type RefObjectMap struct {
	ParentTriplesMap string // resource identifier of the parent TriplesMap
	JoinConditions   []JoinCondition
}

// SelfJoin reports whether this RefObjectMap has no join conditions, in
// which case every child subject is paired with every parent subject.
func (r *RefObjectMap) SelfJoin() bool {
	return len(r.JoinConditions) == 0
}

// PredicateObjectMap groups predicate maps with the object maps (plain or
// referencing) and graph maps that share them.
type PredicateObjectMap struct {
	Predicates []PredicateMap
	Objects    []ObjectMap
	RefObjects []RefObjectMap
	Graphs     []GraphMap
}

// TriplesMap is one mapping rule producing triples sharing a subject (spec
// §3). It is identified by a stable resource identifier from the mapping
// graph.
type TriplesMap struct {
	ID                  string
	LogicalSource       LogicalSource
	SubjectMap          SubjectMap
	PredicateObjectMaps []PredicateObjectMap
}

// Mappable reports whether this TriplesMap's subject map can produce at
// least one term, the invariant spec §3 requires of a usable TriplesMap.
func (tm *TriplesMap) Mappable() bool {
	return tm.SubjectMap.Mappable()
}

// RefObjectMaps returns every RefObjectMap declared across this
// TriplesMap's PredicateObjectMaps, in declaration order.
func (tm *TriplesMap) RefObjectMaps() []*RefObjectMap {
	var out []*RefObjectMap
	for i := range tm.PredicateObjectMaps {
		pom := &tm.PredicateObjectMaps[i]
		for j := range pom.RefObjects {
			out = append(out, &pom.RefObjects[j])
		}
	}
	return out
}
