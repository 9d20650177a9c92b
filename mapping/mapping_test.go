package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmlgo/rml/model"
	"github.com/rmlgo/rml/rdf"
)

func buildSimpleGraph() *rdf.Graph {
	g := rdf.NewGraph("")
	tm := rdf.NewResource("http://ex/TM1")
	ls := rdf.NewBlankNode("ls1")
	subj := rdf.NewBlankNode("subj1")
	pom := rdf.NewBlankNode("pom1")
	obj := rdf.NewBlankNode("obj1")

	g.AddTriple(tm, rdf.NewResource(predLogicalSource), ls)
	g.AddTriple(ls, rdf.NewResource(predSource), rdf.NewLiteral("data.csv"))
	g.AddTriple(ls, rdf.NewResource(predReferenceFormulation), rdf.NewResource("http://semweb.mmlab.be/ns/rml#CSV"))

	g.AddTriple(tm, rdf.NewResource(predSubjectMap), subj)
	g.AddTriple(subj, rdf.NewResource(predTemplate), rdf.NewLiteral("http://ex/{a}"))
	g.AddTriple(subj, rdf.NewResource(predClass), rdf.NewResource("http://ex/Thing"))

	g.AddTriple(tm, rdf.NewResource(predPredicateObjectMap), pom)
	g.AddTriple(pom, rdf.NewResource(predPredicate), rdf.NewResource("http://ex/p"))
	g.AddTriple(pom, rdf.NewResource(predObjectMap), obj)
	g.AddTriple(obj, rdf.NewResource(predReference), rdf.NewLiteral("b"))

	return g
}

func TestLoadSimpleTriplesMap(t *testing.T) {
	g := buildSimpleGraph()
	maps, err := Load(g)
	require.NoError(t, err)
	require.Len(t, maps, 1)

	tm := maps["http://ex/TM1"]
	require.NotNil(t, tm)
	assert.Equal(t, "data.csv", tm.LogicalSource.SourceReference)
	assert.Equal(t, "http://semweb.mmlab.be/ns/rml#CSV", tm.LogicalSource.ReferenceFormulation)
	assert.Equal(t, model.KindTemplate, tm.SubjectMap.TermMap.Kind())
	assert.Equal(t, "http://ex/{a}", tm.SubjectMap.TermMap.Template)
	assert.Equal(t, []string{"http://ex/Thing"}, tm.SubjectMap.Classes)

	require.Len(t, tm.PredicateObjectMaps, 1)
	pom := tm.PredicateObjectMaps[0]
	require.Len(t, pom.Predicates, 1)
	assert.Equal(t, "http://ex/p", pom.Predicates[0].TermMap.Constant.Value)
	require.Len(t, pom.Objects, 1)
	assert.Equal(t, model.KindReference, pom.Objects[0].TermMap.Kind())
	assert.Equal(t, "b", pom.Objects[0].TermMap.Reference)
}

func TestLoadRefObjectMapDiscriminator(t *testing.T) {
	g := buildSimpleGraph()
	tm := rdf.NewResource("http://ex/TM1")
	pom := rdf.NewBlankNode("pom1")
	refObj := rdf.NewBlankNode("refobj1")
	jc := rdf.NewBlankNode("jc1")

	g.AddTriple(pom, rdf.NewResource(predObjectMap), refObj)
	g.AddTriple(refObj, rdf.NewResource(predParentTriplesMap), rdf.NewResource("http://ex/TM2"))
	g.AddTriple(refObj, rdf.NewResource(predJoinCondition), jc)
	g.AddTriple(jc, rdf.NewResource(predChild), rdf.NewLiteral("dept_id"))
	g.AddTriple(jc, rdf.NewResource(predParent), rdf.NewLiteral("id"))
	_ = tm

	maps, err := Load(g)
	require.NoError(t, err)
	pomOut := maps["http://ex/TM1"].PredicateObjectMaps[0]
	require.Len(t, pomOut.RefObjects, 1)
	rom := pomOut.RefObjects[0]
	assert.Equal(t, "http://ex/TM2", rom.ParentTriplesMap)
	require.Len(t, rom.JoinConditions, 1)
	assert.Equal(t, "dept_id", rom.JoinConditions[0].ChildExpr)
	assert.Equal(t, "id", rom.JoinConditions[0].ParentExpr)
}

func TestLoadMalformedTermMapIsConfigurationError(t *testing.T) {
	g := rdf.NewGraph("")
	tm := rdf.NewResource("http://ex/TM1")
	ls := rdf.NewBlankNode("ls1")
	subj := rdf.NewBlankNode("subj1")

	g.AddTriple(tm, rdf.NewResource(predLogicalSource), ls)
	g.AddTriple(ls, rdf.NewResource(predSource), rdf.NewLiteral("data.csv"))
	g.AddTriple(tm, rdf.NewResource(predSubjectMap), subj)
	// no constant/reference/template/function set on subj — malformed.

	_, err := Load(g)
	require.Error(t, err)
}

func TestLoadUnmappableSubjectIsNotAnError(t *testing.T) {
	g := rdf.NewGraph("")
	tm := rdf.NewResource("http://ex/TM1")
	ls := rdf.NewBlankNode("ls1")
	g.AddTriple(tm, rdf.NewResource(predLogicalSource), ls)
	g.AddTriple(ls, rdf.NewResource(predSource), rdf.NewLiteral("data.csv"))

	maps, err := Load(g)
	require.NoError(t, err)
	require.Contains(t, maps, "http://ex/TM1")
	assert.False(t, maps["http://ex/TM1"].Mappable())
}

func TestSerializeRoundTrip(t *testing.T) {
	g := buildSimpleGraph()
	maps, err := Load(g)
	require.NoError(t, err)

	serialized := Serialize(maps)

	tmNode := rdf.NewResource("http://ex/TM1")
	typeTriples := serialized.All(tmNode, rdf.NewResource(predRDFType), rdf.NewResource(classTriplesMap))
	assert.Len(t, typeTriples, 1)

	reloaded, err := Load(serialized)
	require.NoError(t, err)

	require.Contains(t, reloaded, "http://ex/TM1")
	tm := reloaded["http://ex/TM1"]
	assert.Equal(t, "data.csv", tm.LogicalSource.SourceReference)
	assert.Equal(t, "http://ex/{a}", tm.SubjectMap.TermMap.Template)
	assert.Equal(t, []string{"http://ex/Thing"}, tm.SubjectMap.Classes)
	require.Len(t, tm.PredicateObjectMaps, 1)
	assert.Equal(t, "http://ex/p", tm.PredicateObjectMaps[0].Predicates[0].TermMap.Constant.Value)
	assert.Equal(t, "b", tm.PredicateObjectMaps[0].Objects[0].TermMap.Reference)
}

func TestUnknownPredicateIgnored(t *testing.T) {
	g := buildSimpleGraph()
	tm := rdf.NewResource("http://ex/TM1")
	g.AddTriple(tm, rdf.NewResource("http://ex/unknownPredicate"), rdf.NewLiteral("ignored"))

	_, err := Load(g)
	require.NoError(t, err)
}
