package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogicalSourceEqual(t *testing.T) {
	a := LogicalSource{SourceReference: "a.csv", ReferenceFormulation: "CSV"}
	b := LogicalSource{SourceReference: "a.csv", ReferenceFormulation: "CSV"}
	c := LogicalSource{SourceReference: "b.csv", ReferenceFormulation: "CSV"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestTermMapKind(t *testing.T) {
	assert.Equal(t, KindInvalid, (&TermMap{}).Kind())
	assert.Equal(t, KindConstant, (&TermMap{Constant: &Term{Value: "x"}}).Kind())
	assert.Equal(t, KindReference, (&TermMap{Reference: "a"}).Kind())
	assert.Equal(t, KindTemplate, (&TermMap{Template: "http://ex/{a}"}).Kind())
	assert.Equal(t, KindFunction, (&TermMap{Function: "http://ex/fn"}).Kind())

	// malformed: both constant and template set
	malformed := &TermMap{Constant: &Term{Value: "x"}, Template: "http://ex/{a}"}
	assert.Equal(t, KindInvalid, malformed.Kind())
}

func TestSubjectMapMappable(t *testing.T) {
	sm := &SubjectMap{TermMap: TermMap{Template: "http://ex/{a}"}}
	assert.True(t, sm.Mappable())

	empty := &SubjectMap{}
	assert.False(t, empty.Mappable())
}

func TestRefObjectMapSelfJoin(t *testing.T) {
	r := &RefObjectMap{ParentTriplesMap: "p"}
	assert.True(t, r.SelfJoin())

	r.JoinConditions = append(r.JoinConditions, JoinCondition{ChildExpr: "id", ParentExpr: "id"})
	assert.False(t, r.SelfJoin())
}

func TestTriplesMapRefObjectMaps(t *testing.T) {
	tm := &TriplesMap{
		PredicateObjectMaps: []PredicateObjectMap{
			{RefObjects: []RefObjectMap{{ParentTriplesMap: "p1"}}},
			{RefObjects: []RefObjectMap{{ParentTriplesMap: "p2"}, {ParentTriplesMap: "p3"}}},
		},
	}
	refs := tm.RefObjectMaps()
	assert.Len(t, refs, 3)
	assert.Equal(t, "p1", refs[0].ParentTriplesMap)
	assert.Equal(t, "p3", refs[2].ParentTriplesMap)
}
