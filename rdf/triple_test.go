package rdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var one = NewTriple(NewResource("a"), NewResource("b"), NewResource("c"))

func TestTripleEquals(t *testing.T) {
	assert.True(t, one.Equal(NewTriple(NewResource("a"), NewResource("b"), NewResource("c"))))
	assert.False(t, one.Equal(NewTriple(NewResource("a"), NewResource("b"), NewResource("d"))))
	assert.False(t, one.Equal(nil))
}

func TestTripleString(t *testing.T) {
	assert.Equal(t, "<a> <b> <c> .", one.String())
}

func TestStatementTriple(t *testing.T) {
	st := Statement{Subject: NewResource("a"), Predicate: NewResource("b"), Object: NewResource("c")}
	assert.True(t, st.Triple().Equal(one))
	assert.Equal(t, "<a> <b> <c> .", st.String())

	st.Graph = NewResource("g")
	assert.Equal(t, "<a> <b> <c> <g> .", st.String())
}
