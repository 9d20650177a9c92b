package rdf

import "fmt"

// Triple is a single RDF statement: subject, predicate and object.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriple builds a Triple from its three terms.
func NewTriple(s, p, o Term) *Triple {
	return &Triple{Subject: s, Predicate: p, Object: o}
}

// String returns the NTriples representation of the triple.
func (t *Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject.String(), t.Predicate.String(), t.Object.String())
}

// Equal reports whether t and other have pairwise-equal subject, predicate
// and object terms.
func (t *Triple) Equal(other *Triple) bool {
	if other == nil {
		return false
	}
	return t.Subject.Equal(other.Subject) &&
		t.Predicate.Equal(other.Predicate) &&
		t.Object.Equal(other.Object)
}

// Statement is a triple with an optional named graph, the unit produced by
// the mapper orchestrator's output stream (spec §6 "Output").
type Statement struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term // nil means the default graph
}

// Triple drops the graph component, returning the bare triple.
func (st Statement) Triple() *Triple {
	return NewTriple(st.Subject, st.Predicate, st.Object)
}

// String returns the NQuads-ish representation of the statement.
func (st Statement) String() string {
	if st.Graph == nil {
		return st.Triple().String()
	}
	return fmt.Sprintf("%s %s %s %s .", st.Subject.String(), st.Predicate.String(), st.Object.String(), st.Graph.String())
}
