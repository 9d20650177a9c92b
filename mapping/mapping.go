package mapping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rmlgo/rml/model"
	"github.com/rmlgo/rml/rdf"
	"github.com/rmlgo/rml/rmlerr"
)

// Load walks g looking for TriplesMap candidates (any subject with an
// rml:logicalSource triple) and builds the corresponding model.TriplesMap
// set, keyed by resource identifier. Unknown predicates are ignored
// without error (spec §3); a malformed term map (zero or more than one of
// constant/reference/template/function) is a ConfigurationError.
func Load(g *rdf.Graph) (map[string]*model.TriplesMap, error) {
	seen := make(map[string]bool)
	var order []rdf.Term
	for _, t := range g.All(nil, rdf.NewResource(predLogicalSource), nil) {
		id := nodeID(t.Subject)
		if !seen[id] {
			seen[id] = true
			order = append(order, t.Subject)
		}
	}

	result := make(map[string]*model.TriplesMap, len(order))
	for _, node := range order {
		id := nodeID(node)

		ls, err := parseLogicalSource(g, node)
		if err != nil {
			return nil, err
		}
		subjMap, err := parseSubjectMap(g, node)
		if err != nil {
			return nil, err
		}
		poms, err := parsePredicateObjectMaps(g, node)
		if err != nil {
			return nil, err
		}

		result[id] = &model.TriplesMap{
			ID:                  id,
			LogicalSource:       ls,
			SubjectMap:          subjMap,
			PredicateObjectMaps: poms,
		}
	}
	return result, nil
}

func parseLogicalSource(g *rdf.Graph, tmNode rdf.Term) (model.LogicalSource, error) {
	t := g.One(tmNode, rdf.NewResource(predLogicalSource), nil)
	if t == nil {
		return model.LogicalSource{}, &rmlerr.ConfigurationError{
			Reason: fmt.Sprintf("triples map %q has no rml:logicalSource", nodeID(tmNode)),
		}
	}
	lsNode := t.Object

	var ls model.LogicalSource
	if st := g.One(lsNode, rdf.NewResource(predSource), nil); st != nil {
		ls.SourceReference = literalValue(st.Object)
	}
	if rf := g.One(lsNode, rdf.NewResource(predReferenceFormulation), nil); rf != nil {
		ls.ReferenceFormulation = rf.Object.RawValue()
	}
	if it := g.One(lsNode, rdf.NewResource(predIterator), nil); it != nil {
		ls.Iterator = literalValue(it.Object)
	}
	return ls, nil
}

// parseSubjectMap returns the zero SubjectMap, without error, when the
// TriplesMap declares no rr:subjectMap at all — such a TriplesMap is
// simply unmappable (model.TriplesMap.Mappable reports false), which is
// distinct from a malformed subject map that IS present.
func parseSubjectMap(g *rdf.Graph, tmNode rdf.Term) (model.SubjectMap, error) {
	t := g.One(tmNode, rdf.NewResource(predSubjectMap), nil)
	if t == nil {
		return model.SubjectMap{}, nil
	}
	subjNode := t.Object

	tm, err := parseTermMap(g, subjNode, model.TermTypeIRI)
	if err != nil {
		return model.SubjectMap{}, err
	}

	var classes []string
	for _, ct := range g.All(subjNode, rdf.NewResource(predClass), nil) {
		classes = append(classes, ct.Object.RawValue())
	}

	graphs, err := parseGraphMaps(g, subjNode)
	if err != nil {
		return model.SubjectMap{}, err
	}

	return model.SubjectMap{TermMap: *tm, Classes: classes, Graphs: graphs}, nil
}

func parseGraphMaps(g *rdf.Graph, node rdf.Term) ([]model.GraphMap, error) {
	var out []model.GraphMap
	for _, t := range g.All(node, rdf.NewResource(predGraphMap), nil) {
		tm, err := parseTermMap(g, t.Object, model.TermTypeIRI)
		if err != nil {
			return nil, err
		}
		out = append(out, model.GraphMap{TermMap: *tm})
	}
	return out, nil
}

// parsePredicateObjectMaps reads every rr:predicateObjectMap of tmNode.
// rr:predicate is the R2RML shortcut form: its object IS the predicate IRI
// directly, represented as a constant term map rather than a separately
// declared predicate-map node. rr:objectMap is classified as a
// RefObjectMap exactly when its node carries rr:parentTriplesMap — the
// polymorphic discriminator rule of spec §3 — never by reflection.
func parsePredicateObjectMaps(g *rdf.Graph, tmNode rdf.Term) ([]model.PredicateObjectMap, error) {
	var poms []model.PredicateObjectMap
	for _, pt := range g.All(tmNode, rdf.NewResource(predPredicateObjectMap), nil) {
		pomNode := pt.Object
		var pom model.PredicateObjectMap

		for _, pp := range g.All(pomNode, rdf.NewResource(predPredicate), nil) {
			iri := pp.Object.RawValue()
			pom.Predicates = append(pom.Predicates, model.PredicateMap{TermMap: model.TermMap{
				Resource: nodeID(pp.Object),
				Constant: &model.Term{Kind: model.TermTypeIRI, Value: iri},
				Type:     model.TermTypeIRI,
			}})
		}

		for _, op := range g.All(pomNode, rdf.NewResource(predObjectMap), nil) {
			objNode := op.Object

			if parentT := g.One(objNode, rdf.NewResource(predParentTriplesMap), nil); parentT != nil {
				rom := model.RefObjectMap{ParentTriplesMap: nodeID(parentT.Object)}
				for _, jct := range g.All(objNode, rdf.NewResource(predJoinCondition), nil) {
					jcNode := jct.Object
					childT := g.One(jcNode, rdf.NewResource(predChild), nil)
					parentExprT := g.One(jcNode, rdf.NewResource(predParent), nil)
					if childT == nil || parentExprT == nil {
						return nil, &rmlerr.ConfigurationError{Reason: "join condition missing rr:child or rr:parent"}
					}
					rom.JoinConditions = append(rom.JoinConditions, model.JoinCondition{
						ChildExpr:  literalValue(childT.Object),
						ParentExpr: literalValue(parentExprT.Object),
					})
				}
				pom.RefObjects = append(pom.RefObjects, rom)
				continue
			}

			tm, err := parseTermMap(g, objNode, model.TermTypeLiteral)
			if err != nil {
				return nil, err
			}
			pom.Objects = append(pom.Objects, model.ObjectMap{TermMap: *tm})
		}

		graphs, err := parseGraphMaps(g, pomNode)
		if err != nil {
			return nil, err
		}
		pom.Graphs = graphs

		poms = append(poms, pom)
	}
	return poms, nil
}

// parseTermMap reads the scalar schema table shared by every TermMap node:
// (predicate, cardinality, value-kind, field) pairs for the constant/
// reference/template/function discriminator plus termType/datatype/
// language overrides. defaultType supplies the implicit term type when
// rr:termType is absent (IRI for subject/predicate/graph maps, Literal for
// object maps, per R2RML).
func parseTermMap(g *rdf.Graph, node rdf.Term, defaultType model.TermType) (*model.TermMap, error) {
	tm := &model.TermMap{Resource: nodeID(node), Type: defaultType}

	if t := g.One(node, rdf.NewResource(predConstant), nil); t != nil {
		mt, err := toModelTerm(t.Object)
		if err != nil {
			return nil, err
		}
		tm.Constant = mt
	}
	if t := g.One(node, rdf.NewResource(predTemplate), nil); t != nil {
		tm.Template = literalValue(t.Object)
	}
	if t := g.One(node, rdf.NewResource(predReference), nil); t != nil {
		tm.Reference = literalValue(t.Object)
	}
	if t := g.One(node, rdf.NewResource(predFunction), nil); t != nil {
		tm.Function = t.Object.RawValue()
		args, err := parseFunctionArgs(g, node)
		if err != nil {
			return nil, err
		}
		tm.Args = args
	}

	if t := g.One(node, rdf.NewResource(predTermType), nil); t != nil {
		switch t.Object.RawValue() {
		case classIRI:
			tm.Type = model.TermTypeIRI
		case classBlankNode:
			tm.Type = model.TermTypeBlankNode
		case classLiteral:
			tm.Type = model.TermTypeLiteral
		}
	}
	if t := g.One(node, rdf.NewResource(predDatatype), nil); t != nil {
		tm.Datatype = t.Object.RawValue()
	}
	if t := g.One(node, rdf.NewResource(predLanguage), nil); t != nil {
		tm.Language = literalValue(t.Object)
	}

	if tm.Kind() == model.KindInvalid {
		return nil, &rmlerr.ConfigurationError{Reason: fmt.Sprintf(
			"term map %q must declare exactly one of rr:constant, rml:reference, rr:template, carml:function", tm.Resource)}
	}
	return tm, nil
}

func parseFunctionArgs(g *rdf.Graph, node rdf.Term) ([]model.FunctionArg, error) {
	var args []model.FunctionArg
	for _, t := range g.All(node, rdf.NewResource(predFunctionArgument), nil) {
		argNode := t.Object
		paramTriple := g.One(argNode, rdf.NewResource(predParameter), nil)
		if paramTriple == nil {
			return nil, &rmlerr.ConfigurationError{Reason: "function argument missing carml:parameter"}
		}
		valueTriple := g.One(argNode, rdf.NewResource(predValue), nil)
		if valueTriple == nil {
			return nil, &rmlerr.ConfigurationError{Reason: "function argument missing carml:value"}
		}
		childTM, err := parseTermMap(g, valueTriple.Object, model.TermTypeLiteral)
		if err != nil {
			return nil, err
		}
		args = append(args, model.FunctionArg{Parameter: paramTriple.Object.RawValue(), Value: childTM})
	}
	return args, nil
}

func toModelTerm(t rdf.Term) (*model.Term, error) {
	switch v := t.(type) {
	case *rdf.Resource:
		return &model.Term{Kind: model.TermTypeIRI, Value: v.URI}, nil
	case *rdf.BlankNode:
		return &model.Term{Kind: model.TermTypeBlankNode, Value: v.ID}, nil
	case *rdf.Literal:
		mt := &model.Term{Kind: model.TermTypeLiteral, Value: v.Value, Language: v.Language}
		if v.Datatype != nil {
			mt.Datatype = v.Datatype.RawValue()
		}
		return mt, nil
	}
	return nil, fmt.Errorf("mapping: unsupported constant term type %T", t)
}

func literalValue(t rdf.Term) string {
	if lit, ok := t.(*rdf.Literal); ok {
		return lit.Value
	}
	return t.RawValue()
}

func nodeID(t rdf.Term) string {
	if bn, ok := t.(*rdf.BlankNode); ok {
		return "_:" + bn.ID
	}
	return t.RawValue()
}

func termFromID(id string) rdf.Term {
	if strings.HasPrefix(id, "_:") {
		return rdf.NewBlankNode(strings.TrimPrefix(id, "_:"))
	}
	return rdf.NewResource(id)
}

// Serialize is the inverse of Load: it re-emits maps as an rdf.Graph using
// the same vocabulary, generating fresh blank nodes for every structural
// position (logical source, subject map, predicate-object maps, ...).
// Round-tripping Load(Serialize(m)) reproduces m's field values but not its
// original blank-node identifiers for those intermediate structural nodes.
func Serialize(maps map[string]*model.TriplesMap) *rdf.Graph {
	g := rdf.NewGraph("")

	ids := make([]string, 0, len(maps))
	for id := range maps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		tm := maps[id]
		tmNode := termFromID(id)
		g.AddTriple(tmNode, rdf.NewResource(predRDFType), rdf.NewResource(classTriplesMap))

		lsNode := rdf.NewBlankNode(id + "-ls")
		g.AddTriple(tmNode, rdf.NewResource(predLogicalSource), lsNode)
		g.AddTriple(lsNode, rdf.NewResource(predSource), rdf.NewLiteral(tm.LogicalSource.SourceReference))
		g.AddTriple(lsNode, rdf.NewResource(predReferenceFormulation), rdf.NewResource(tm.LogicalSource.ReferenceFormulation))
		if tm.LogicalSource.Iterator != "" {
			g.AddTriple(lsNode, rdf.NewResource(predIterator), rdf.NewLiteral(tm.LogicalSource.Iterator))
		}

		if tm.SubjectMap.TermMap.Kind() != model.KindInvalid {
			subjNode := rdf.NewBlankNode(id + "-subj")
			g.AddTriple(tmNode, rdf.NewResource(predSubjectMap), subjNode)
			g.AddTriple(subjNode, rdf.NewResource(predRDFType), rdf.NewResource(classSubjectMap))
			serializeTermMap(g, subjNode, &tm.SubjectMap.TermMap, model.TermTypeIRI)
			for _, c := range tm.SubjectMap.Classes {
				g.AddTriple(subjNode, rdf.NewResource(predClass), rdf.NewResource(c))
			}
			for i, gm := range tm.SubjectMap.Graphs {
				gNode := rdf.NewBlankNode(fmt.Sprintf("%s-subj-graph-%d", id, i))
				g.AddTriple(subjNode, rdf.NewResource(predGraphMap), gNode)
				g.AddTriple(gNode, rdf.NewResource(predRDFType), rdf.NewResource(classGraphMap))
				serializeTermMap(g, gNode, &gm.TermMap, model.TermTypeIRI)
			}
		}

		for pi, pom := range tm.PredicateObjectMaps {
			pomNode := rdf.NewBlankNode(fmt.Sprintf("%s-pom-%d", id, pi))
			g.AddTriple(tmNode, rdf.NewResource(predPredicateObjectMap), pomNode)
			g.AddTriple(pomNode, rdf.NewResource(predRDFType), rdf.NewResource(classPredicateObjectMap))

			for _, pm := range pom.Predicates {
				if pm.TermMap.Constant != nil {
					g.AddTriple(pomNode, rdf.NewResource(predPredicate), rdf.NewResource(pm.TermMap.Constant.Value))
				}
			}
			for oi, om := range pom.Objects {
				omNode := rdf.NewBlankNode(fmt.Sprintf("%s-pom-%d-obj-%d", id, pi, oi))
				g.AddTriple(pomNode, rdf.NewResource(predObjectMap), omNode)
				g.AddTriple(omNode, rdf.NewResource(predRDFType), rdf.NewResource(classObjectMap))
				serializeTermMap(g, omNode, &om.TermMap, model.TermTypeLiteral)
			}
			for ri, rom := range pom.RefObjects {
				romNode := rdf.NewBlankNode(fmt.Sprintf("%s-pom-%d-ref-%d", id, pi, ri))
				g.AddTriple(pomNode, rdf.NewResource(predObjectMap), romNode)
				g.AddTriple(romNode, rdf.NewResource(predRDFType), rdf.NewResource(classRefObjectMap))
				g.AddTriple(romNode, rdf.NewResource(predParentTriplesMap), termFromID(rom.ParentTriplesMap))
				for ji, jc := range rom.JoinConditions {
					jcNode := rdf.NewBlankNode(fmt.Sprintf("%s-pom-%d-ref-%d-jc-%d", id, pi, ri, ji))
					g.AddTriple(romNode, rdf.NewResource(predJoinCondition), jcNode)
					g.AddTriple(jcNode, rdf.NewResource(predChild), rdf.NewLiteral(jc.ChildExpr))
					g.AddTriple(jcNode, rdf.NewResource(predParent), rdf.NewLiteral(jc.ParentExpr))
				}
			}
			for gi, gm := range pom.Graphs {
				gNode := rdf.NewBlankNode(fmt.Sprintf("%s-pom-%d-graph-%d", id, pi, gi))
				g.AddTriple(pomNode, rdf.NewResource(predGraphMap), gNode)
				g.AddTriple(gNode, rdf.NewResource(predRDFType), rdf.NewResource(classGraphMap))
				serializeTermMap(g, gNode, &gm.TermMap, model.TermTypeIRI)
			}
		}
	}
	return g
}

func serializeTermMap(g *rdf.Graph, node rdf.Term, tm *model.TermMap, defaultType model.TermType) {
	switch tm.Kind() {
	case model.KindConstant:
		g.AddTriple(node, rdf.NewResource(predConstant), modelTermToRDF(*tm.Constant))
	case model.KindReference:
		g.AddTriple(node, rdf.NewResource(predReference), rdf.NewLiteral(tm.Reference))
	case model.KindTemplate:
		g.AddTriple(node, rdf.NewResource(predTemplate), rdf.NewLiteral(tm.Template))
	case model.KindFunction:
		g.AddTriple(node, rdf.NewResource(predFunction), rdf.NewResource(tm.Function))
		for i, arg := range tm.Args {
			argNode := rdf.NewBlankNode(fmt.Sprintf("%s-arg-%d", nodeID(node), i))
			g.AddTriple(node, rdf.NewResource(predFunctionArgument), argNode)
			g.AddTriple(argNode, rdf.NewResource(predParameter), rdf.NewResource(arg.Parameter))
			valNode := rdf.NewBlankNode(fmt.Sprintf("%s-arg-%d-val", nodeID(node), i))
			g.AddTriple(argNode, rdf.NewResource(predValue), valNode)
			serializeTermMap(g, valNode, arg.Value, defaultType)
		}
	}

	if tm.Type != defaultType {
		g.AddTriple(node, rdf.NewResource(predTermType), rdf.NewResource(termTypeClass(tm.Type)))
	}
	if tm.Datatype != "" {
		g.AddTriple(node, rdf.NewResource(predDatatype), rdf.NewResource(tm.Datatype))
	}
	if tm.Language != "" {
		g.AddTriple(node, rdf.NewResource(predLanguage), rdf.NewLiteral(tm.Language))
	}
}

func termTypeClass(t model.TermType) string {
	switch t {
	case model.TermTypeBlankNode:
		return classBlankNode
	case model.TermTypeLiteral:
		return classLiteral
	default:
		return classIRI
	}
}

func modelTermToRDF(t model.Term) rdf.Term {
	switch t.Kind {
	case model.TermTypeIRI:
		return rdf.NewResource(t.Value)
	case model.TermTypeBlankNode:
		return rdf.NewBlankNode(t.Value)
	default:
		if t.Language != "" {
			return rdf.NewLiteralWithLanguage(t.Value, t.Language)
		}
		if t.Datatype != "" {
			return rdf.NewLiteralWithDatatype(t.Value, rdf.NewResource(t.Datatype))
		}
		return rdf.NewLiteral(t.Value)
	}
}
