// Package mapping bridges rdf.Graph and the model package: it loads a
// mapping document's RDF graph into a model.TriplesMap set, and serializes
// that set back to a graph. Discrimination and field population follow a
// hand-written schema table rather than reflection (spec §9 "Reflective
// RDF-to-object loader").
package mapping

// Vocabulary IRIs the loader and serializer recognize. Any other predicate
// on a mapping resource is ignored without error (spec §3: "Unknown
// predicates in the input graph are ignored without error").
const (
	rr  = "http://www.w3.org/ns/r2rml#"
	rml = "http://semweb.mmlab.be/ns/rml#"
	// carml is this engine's extension vocabulary for function term maps,
	// named generically in spec §9 ("the extension vocabulary for
	// streams and functions used by this system").
	carml = "http://example.org/ns/carml#"

	predRDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	predLogicalSource        = rml + "logicalSource"
	predSource               = rml + "source"
	predReferenceFormulation = rml + "referenceFormulation"
	predIterator             = rml + "iterator"
	predReference            = rml + "reference"

	predSubjectMap         = rr + "subjectMap"
	predPredicateObjectMap = rr + "predicateObjectMap"
	predPredicate          = rr + "predicate"
	predObjectMap          = rr + "objectMap"
	predTemplate           = rr + "template"
	predConstant           = rr + "constant"
	predTermType           = rr + "termType"
	predDatatype           = rr + "datatype"
	predLanguage           = rr + "language"
	predClass              = rr + "class"
	predParentTriplesMap   = rr + "parentTriplesMap"
	predJoinCondition      = rr + "joinCondition"
	predChild              = rr + "child"
	predParent             = rr + "parent"
	predGraphMap           = rr + "graphMap"

	predFunction          = carml + "function"
	predFunctionArgument  = carml + "functionArgument"
	predParameter         = carml + "parameter"
	predValue             = carml + "value"

	classIRI       = rr + "IRI"
	classBlankNode = rr + "BlankNode"
	classLiteral   = rr + "Literal"

	classTriplesMap         = rr + "TriplesMap"
	classSubjectMap         = rr + "SubjectMap"
	classPredicateObjectMap = rr + "PredicateObjectMap"
	classObjectMap          = rr + "ObjectMap"
	classRefObjectMap       = rr + "RefObjectMap"
	classGraphMap           = rr + "GraphMap"
)
