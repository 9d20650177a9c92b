/*
	Copyright (c) 2012 Kier Davis

	Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
	associated documentation files (the "Software"), to deal in the Software without restriction,
	including without limitation the rights to use, copy, modify, merge, publish, distribute,
	sublicense, and/or sell copies of the Software, and to permit persons to whom the Software is
	furnished to do so, subject to the following conditions:

	The above copyright notice and this permission notice shall be included in all copies or substantial
	portions of the Software.

	THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
	NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
	NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES
	OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
	CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

// Package rdf holds the RDF value model: IRI references, blank nodes and
// literals, together with triples and an in-memory graph that can parse and
// serialize Turtle and JSON-LD.
package rdf

import (
	"fmt"
	"math/rand"
	"strings"
)

// A Term is the value of a subject, predicate or object, i.e. an IRI
// reference, a blank node or a literal.
type Term interface {
	// String returns the NTriples representation of this term.
	String() string

	// RawValue returns the raw value of this term.
	RawValue() string

	// Equal returns whether this term is equal to another.
	Equal(Term) bool
}

// Resource is a URI / IRI reference.
type Resource struct {
	URI string
}

// NewResource returns a new resource term.
func NewResource(uri string) Term {
	return &Resource{URI: uri}
}

// String returns the NTriples representation of this resource.
func (term Resource) String() string {
	return fmt.Sprintf("<%s>", term.URI)
}

// RawValue returns the string value of the resource without brackets.
func (term Resource) RawValue() string {
	return term.URI
}

// Equal returns whether this resource is equal to another term.
func (term Resource) Equal(other Term) bool {
	if spec, ok := other.(*Resource); ok {
		return term.URI == spec.URI
	}
	return false
}

// Literal is a textual value, with an optional associated language tag or
// datatype.
type Literal struct {
	Value    string
	Language string
	Datatype Term
}

// NewLiteral returns a new literal with the given value.
func NewLiteral(value string) Term {
	return &Literal{Value: value}
}

// NewLiteralWithLanguage returns a new literal with the given value and
// language tag.
func NewLiteralWithLanguage(value string, language string) Term {
	return &Literal{Value: value, Language: language}
}

// NewLiteralWithDatatype returns a new literal with the given value and
// datatype.
func NewLiteralWithDatatype(value string, datatype Term) Term {
	return &Literal{Value: value, Datatype: datatype}
}

// NewLiteralWithLanguageAndDatatype returns a new literal with both a
// language tag and a datatype set. Per RDF 1.1, a language-tagged literal
// has an implicit rdf:langString datatype; the explicit language tag takes
// precedence in String() when both are present.
func NewLiteralWithLanguageAndDatatype(value, language string, datatype Term) Term {
	return &Literal{Value: value, Language: language, Datatype: datatype}
}

// String returns the NTriples representation of this literal.
func (term Literal) String() string {
	str := term.Value
	str = strings.Replace(str, "\\", "\\\\", -1)
	str = strings.Replace(str, "\"", "\\\"", -1)
	str = strings.Replace(str, "\n", "\\n", -1)
	str = strings.Replace(str, "\r", "\\r", -1)
	str = strings.Replace(str, "\t", "\\t", -1)

	str = fmt.Sprintf("\"%s\"", str)

	if term.Language != "" {
		str += atLang(term.Language)
	} else if term.Datatype != nil {
		str += "^^" + term.Datatype.String()
	}

	return str
}

// RawValue returns the lexical value of the literal.
func (term Literal) RawValue() string {
	return term.Value
}

// Equal returns whether this literal is equivalent to another term.
func (term Literal) Equal(other Term) bool {
	spec, ok := other.(*Literal)
	if !ok {
		return false
	}

	if term.Value != spec.Value {
		return false
	}

	if term.Language != spec.Language {
		return false
	}

	if (term.Datatype == nil) != (spec.Datatype == nil) {
		return false
	}

	if term.Datatype != nil && !term.Datatype.Equal(spec.Datatype) {
		return false
	}

	return true
}

// BlankNode is an RDF blank node, i.e. an unqualified identifier local to a
// graph or record.
type BlankNode struct {
	ID string
}

// NewBlankNode returns a new blank node with the given identifier.
func NewBlankNode(id string) Term {
	return &BlankNode{ID: id}
}

// NewAnonNode returns a new blank node with a pseudo-randomly generated
// identifier.
func NewAnonNode() Term {
	return &BlankNode{ID: fmt.Sprintf("anon%d", rand.Int())}
}

// String returns the NTriples representation of the blank node.
func (term BlankNode) String() string {
	return "_:" + term.ID
}

// RawValue returns the blank node's identifier.
func (term BlankNode) RawValue() string {
	return term.ID
}

// Equal returns whether this blank node is equivalent to another term.
func (term BlankNode) Equal(other Term) bool {
	if spec, ok := other.(*BlankNode); ok {
		return term.ID == spec.ID
	}
	return false
}

func atLang(lang string) string {
	if len(lang) > 0 {
		if strings.HasPrefix(lang, "@") {
			return lang
		}
		return "@" + lang
	}
	return ""
}

// splitPrefix takes a given URI and splits it into a base URI and a local
// name, splitting on the last '#' or, failing that, the last '/'.
func splitPrefix(uri string) (base string, name string) {
	index := strings.LastIndex(uri, "#") + 1
	if index > 0 {
		return uri[:index], uri[index:]
	}

	index = strings.LastIndex(uri, "/") + 1
	if index > 0 {
		return uri[:index], uri[index:]
	}

	return "", uri
}

func brack(s string) string {
	if len(s) > 0 && (s[0] == '<' || s[len(s)-1] == '>') {
		return s
	}
	return "<" + s + ">"
}

func debrack(s string) string {
	if len(s) < 2 || s[0] != '<' || s[len(s)-1] != '>' {
		return s
	}
	return s[1 : len(s)-1]
}

func defrag(s string) string {
	lst := strings.Split(s, "#")
	if len(lst) != 2 {
		return s
	}
	return lst[0]
}
