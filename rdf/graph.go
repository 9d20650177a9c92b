package rdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gon3 "github.com/deiu/gon3"
	jsonld "github.com/linkeddata/gojsonld"
)

// Graph is an in-memory, mutable collection of triples rooted at a base URI.
// Triples are keyed by pointer, so adding two equal triples stores both.
type Graph struct {
	triples map[*Triple]bool

	uri  string
	term Term
}

// NewGraph creates an empty Graph with the given base URI.
func NewGraph(uri string) *Graph {
	return &Graph{
		triples: make(map[*Triple]bool),
		uri:     uri,
		term:    NewResource(uri),
	}
}

// Len returns the number of triples in the graph.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Term returns the graph's own term (its base URI as a resource).
func (g *Graph) Term() Term {
	return g.term
}

// URI returns the graph's base URI.
func (g *Graph) URI() string {
	return g.uri
}

// Add inserts a Triple object into the graph.
func (g *Graph) Add(t *Triple) {
	g.triples[t] = true
}

// AddTriple inserts a triple built from individual subject, predicate and
// object terms.
func (g *Graph) AddTriple(s, p, o Term) {
	g.triples[NewTriple(s, p, o)] = true
}

// Remove deletes a Triple object from the graph.
func (g *Graph) Remove(t *Triple) {
	delete(g.triples, t)
}

// IterTriples returns a channel that yields every triple in the graph.
func (g *Graph) IterTriples() chan *Triple {
	ch := make(chan *Triple)
	go func() {
		for triple := range g.triples {
			ch <- triple
		}
		close(ch)
	}()
	return ch
}

// One returns one triple matching the given subject/predicate/object
// pattern; any of the three may be nil to mean "any".
func (g *Graph) One(s, p, o Term) *Triple {
	for triple := range g.IterTriples() {
		if matches(triple, s, p, o) {
			return triple
		}
	}
	return nil
}

// All returns every triple matching the given subject/predicate/object
// pattern; any of the three may be nil to mean "any".
func (g *Graph) All(s, p, o Term) []*Triple {
	var triples []*Triple
	for triple := range g.IterTriples() {
		if matches(triple, s, p, o) {
			triples = append(triples, triple)
		}
	}
	return triples
}

func matches(triple *Triple, s, p, o Term) bool {
	if s != nil && !triple.Subject.Equal(s) {
		return false
	}
	if p != nil && !triple.Predicate.Equal(p) {
		return false
	}
	if o != nil && !triple.Object.Equal(o) {
		return false
	}
	return true
}

// Parse reads RDF data from r in the given mime type, adding triples to the
// graph. Supported mime types: "text/turtle"/"text/n3" (via gon3) and
// "application/ld+json" (via gojsonld).
func (g *Graph) Parse(r io.Reader, mime string) error {
	parserName := mimeParser[mime]
	if len(parserName) == 0 {
		parserName = "guess"
	}

	switch parserName {
	case "jsonld":
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(r); err != nil {
			return err
		}
		jsonData, err := jsonld.ReadJSON(buf.Bytes())
		if err != nil {
			return err
		}
		options := &jsonld.Options{Base: ""}
		dataSet, err := jsonld.ToRDF(jsonData, options)
		if err != nil {
			return err
		}
		for t := range dataSet.IterTriples() {
			g.AddTriple(jterm2term(t.Subject), jterm2term(t.Predicate), jterm2term(t.Object))
		}
		return nil

	case "turtle":
		parser, err := gon3.NewParser(g.uri).Parse(r)
		if err != nil {
			return err
		}
		for s := range parser.IterTriples() {
			g.AddTriple(gterm2term(s.Subject), gterm2term(s.Predicate), gterm2term(s.Object))
		}
		return nil
	}

	return fmt.Errorf("rdf: %q is not a supported parser", parserName)
}

// ReadFile parses RDF data from a local file into the graph, choosing the
// mime type from the file extension.
func (g *Graph) ReadFile(filename string) error {
	stat, err := os.Stat(filename)
	if err != nil {
		return err
	}
	if stat.IsDir() {
		return fmt.Errorf("rdf: %q is a directory", filename)
	}

	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	mime := mimeRdfExt[strings.ToLower(filepath.Ext(filename))]
	if mime == "" {
		mime = "text/turtle"
	}
	return g.Parse(f, mime)
}

// Serialize writes the graph in the given mime type. Unrecognized mime
// types fall back to Turtle.
func (g *Graph) Serialize(w io.Writer, mime string) error {
	serializerName := mimeSerializer[mime]
	if serializerName == "jsonld" {
		return g.serializeJSONLd(w)
	}
	return g.serializeTurtle(w)
}

func (g *Graph) serializeTurtle(w io.Writer) error {
	triplesBySubject := make(map[string][]*Triple)
	var order []string

	for triple := range g.IterTriples() {
		s := encodeTerm(triple.Subject)
		if _, seen := triplesBySubject[s]; !seen {
			order = append(order, s)
		}
		triplesBySubject[s] = append(triplesBySubject[s], triple)
	}

	for _, subject := range order {
		if _, err := fmt.Fprintf(w, "%s\n", subject); err != nil {
			return err
		}
		for _, triple := range triplesBySubject[subject] {
			p := encodeTerm(triple.Predicate)
			o := encodeTerm(triple.Object)
			if _, err := fmt.Fprintf(w, "  %s %s ;\n", p, o); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "  .\n\n"); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) serializeJSONLd(w io.Writer) error {
	byStatement := []map[string]interface{}{}
	for elt := range g.IterTriples() {
		subj, ok := elt.Subject.(*Resource)
		if !ok {
			continue
		}
		pred, ok := elt.Predicate.(*Resource)
		if !ok {
			continue
		}
		one := map[string]interface{}{"@id": subj.URI}
		switch t := elt.Object.(type) {
		case *Resource:
			one[pred.URI] = []map[string]string{{"@id": t.URI}}
		case *Literal:
			v := map[string]string{"@value": t.Value}
			if t.Datatype != nil {
				v["@type"] = t.Datatype.RawValue()
			}
			if t.Language != "" {
				v["@language"] = t.Language
			}
			one[pred.URI] = []map[string]string{v}
		}
		byStatement = append(byStatement, one)
	}
	enc, err := json.Marshal(byStatement)
	if err != nil {
		return err
	}
	_, err = w.Write(enc)
	return err
}

func encodeTerm(iterm Term) string {
	switch term := iterm.(type) {
	case *Resource:
		return fmt.Sprintf("<%s>", term.URI)
	case *Literal:
		return term.String()
	case *BlankNode:
		return term.String()
	}
	return ""
}

func gterm2term(term gon3.Term) Term {
	switch term := term.(type) {
	case *gon3.BlankNode:
		return NewBlankNode(term.RawValue())
	case *gon3.Literal:
		if len(term.LanguageTag) > 0 {
			return NewLiteralWithLanguage(term.LexicalForm, term.LanguageTag)
		}
		if term.DatatypeIRI != nil && len(term.DatatypeIRI.String()) > 0 {
			return NewLiteralWithDatatype(term.LexicalForm, NewResource(debrack(term.DatatypeIRI.String())))
		}
		return NewLiteral(term.RawValue())
	case *gon3.IRI:
		return NewResource(term.RawValue())
	}
	return nil
}

func jterm2term(term jsonld.Term) Term {
	switch term := term.(type) {
	case *jsonld.BlankNode:
		return NewBlankNode(term.RawValue())
	case *jsonld.Literal:
		if len(term.Language) > 0 {
			return NewLiteralWithLanguage(term.RawValue(), term.Language)
		}
		if term.Datatype != nil && len(term.Datatype.String()) > 0 {
			return NewLiteralWithDatatype(term.Value, NewResource(term.Datatype.RawValue()))
		}
		return NewLiteral(term.Value)
	case *jsonld.Resource:
		return NewResource(term.RawValue())
	}
	return nil
}
