package template

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/rmlgo/rml/model"
	"github.com/rmlgo/rml/rdf"
	"github.com/rmlgo/rml/rmlerr"
)

// Record is the minimal view a term generator needs of one decoded record:
// the values bound to a reference expression (column name, JSONPath,
// XPath, ...). ok is false when the reference is wholly absent; a
// multi-valued reference returns every bound value, in source order.
type Record interface {
	Get(reference string) (values []string, ok bool)
}

// MapRecord adapts a flat string map (as produced by the built-in CSV
// decoder) to the Record interface.
type MapRecord map[string]string

// Get implements Record.
func (m MapRecord) Get(reference string) ([]string, bool) {
	v, ok := m[reference]
	if !ok {
		return nil, false
	}
	return []string{v}, true
}

// Generator is a compiled term map: a function from a record to zero or
// more RDF terms (spec §4.2).
type Generator func(rec Record) ([]rdf.Term, error)

// Function evaluates a registered function term map's nested arguments
// against args (already-evaluated per parameter) and returns the produced
// terms.
type Function func(args map[string][]rdf.Term) ([]rdf.Term, error)

// Registry resolves a function IRI to its implementation.
type Registry map[string]Function

// Options controls how a Factory encodes generated IRI and literal terms.
type Options struct {
	// NormalizationForm is applied to a reference value before IRI
	// percent-encoding. Zero value behaves as norm.NFC.
	NormalizationForm norm.Form
	// UpperCasePercentEncoding selects upper-case (true, default) or
	// lower-case hex digits when percent-encoding IRI values.
	UpperCasePercentEncoding bool
}

// DefaultOptions returns the spec-mandated defaults: NFC normalization,
// upper-case percent-encoding.
func DefaultOptions() Options {
	return Options{NormalizationForm: norm.NFC, UpperCasePercentEncoding: true}
}

// Factory compiles model.TermMap values into Generators, resolving
// function term maps through a Registry.
type Factory struct {
	Options  Options
	Registry Registry
}

// NewFactory builds a Factory with the given options and function
// registry (nil registry means no functions are available).
func NewFactory(opts Options, reg Registry) *Factory {
	if reg == nil {
		reg = Registry{}
	}
	return &Factory{Options: opts, Registry: reg}
}

// Compile compiles a TermMap into a Generator. triplesMap names the owning
// TriplesMap for diagnostics only.
func (f *Factory) Compile(triplesMap string, tm *model.TermMap) (Generator, error) {
	switch tm.Kind() {
	case model.KindInvalid:
		return nil, &rmlerr.ConfigurationError{Reason: fmt.Sprintf(
			"term map on resource %q must set exactly one of constant/reference/template/function", tm.Resource)}

	case model.KindConstant:
		t, err := constantTerm(tm)
		if err != nil {
			return nil, err
		}
		return func(Record) ([]rdf.Term, error) { return []rdf.Term{t}, nil }, nil

	case model.KindReference:
		ref := tm.Reference
		return f.compileReferenceLike(triplesMap, tm, []Segment{{Text: ref, IsRef: true}}), nil

	case model.KindTemplate:
		parsed, err := Parse(tm.Template)
		if err != nil {
			return nil, &rmlerr.ConfigurationError{Reason: err.Error()}
		}
		return f.compileReferenceLike(triplesMap, tm, parsed.Segments), nil

	case model.KindFunction:
		return f.compileFunction(triplesMap, tm)
	}
	return nil, &rmlerr.ConfigurationError{Reason: "unreachable term map kind"}
}

func constantTerm(tm *model.TermMap) (rdf.Term, error) {
	c := tm.Constant
	switch c.Kind {
	case model.TermTypeIRI:
		return rdf.NewResource(c.Value), nil
	case model.TermTypeBlankNode:
		return rdf.NewBlankNode(c.Value), nil
	case model.TermTypeLiteral:
		return literalTerm(c.Value, c.Datatype, c.Language), nil
	}
	return nil, &rmlerr.ConfigurationError{Reason: "constant term has unknown term type"}
}

func literalTerm(value, datatype, language string) rdf.Term {
	if language != "" {
		return rdf.NewLiteralWithLanguage(value, language)
	}
	if datatype != "" {
		return rdf.NewLiteralWithDatatype(value, rdf.NewResource(datatype))
	}
	return rdf.NewLiteral(value)
}

// compileReferenceLike builds the Generator shared by reference and
// template term maps: look up every hole, bail out (no term) if any hole
// is absent, then take the Cartesian product of multi-valued holes,
// concatenating literal text verbatim (spec §4.2 steps 1-2).
func (f *Factory) compileReferenceLike(triplesMap string, tm *model.TermMap, segs []Segment) Generator {
	termType := tm.Type
	datatype := tm.Datatype
	language := tm.Language
	opts := f.Options

	return func(rec Record) ([]rdf.Term, error) {
		combos, absent, err := expand(rec, segs)
		if err != nil {
			return nil, &rmlerr.TermGenerationError{TriplesMap: triplesMap, Field: tm.Resource, Err: err}
		}
		if absent {
			return nil, nil
		}

		terms := make([]rdf.Term, 0, len(combos))
		for _, spans := range combos {
			terms = append(terms, buildTerm(spans, termType, datatype, language, opts))
		}
		return terms, nil
	}
}

// span is one piece of an expanded template combo: either literal template
// text (copied verbatim into the result) or a substituted reference value
// (the only part of an IRI term ever percent-encoded, spec §4.2 step 3).
type span struct {
	text  string
	isRef bool
}

// expand computes the Cartesian product of a segment list's reference
// holes against rec, returning each combo as an ordered list of literal and
// reference spans so the caller can encode only the reference-derived
// spans. absent is true iff any referenced hole has no value at all, in
// which case combos is nil (spec §4.2 step 1: "no term", not an empty
// string).
func expand(rec Record, segs []Segment) (combos [][]span, absent bool, err error) {
	// resolvedSegs[i] holds either the literal text of the i-th segment or,
	// for a reference segment, its candidate values.
	type resolved struct {
		literal string
		isRef   bool
		values  []string
	}
	resolvedSegs := make([]resolved, len(segs))
	for i, seg := range segs {
		if !seg.IsRef {
			resolvedSegs[i] = resolved{literal: seg.Text}
			continue
		}
		values, ok := rec.Get(seg.Text)
		if !ok || len(values) == 0 {
			return nil, true, nil
		}
		resolvedSegs[i] = resolved{isRef: true, values: values}
	}

	// Cartesian product over the reference segments' value lists, in
	// segment order, preserving segment order and span provenance.
	combos = [][]span{{}}
	for _, rs := range resolvedSegs {
		if !rs.isRef {
			for i := range combos {
				combos[i] = append(combos[i], span{text: rs.literal})
			}
			continue
		}
		next := make([][]span, 0, len(combos)*len(rs.values))
		for _, prefix := range combos {
			for _, v := range rs.values {
				combo := make([]span, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, span{text: v, isRef: true}))
			}
		}
		combos = next
	}
	return combos, false, nil
}

func buildTerm(spans []span, termType model.TermType, datatype, language string, opts Options) rdf.Term {
	switch termType {
	case model.TermTypeIRI:
		return rdf.NewResource(encodeSpans(spans, opts))
	case model.TermTypeBlankNode:
		return rdf.NewBlankNode(joinSpans(spans))
	default:
		return literalTerm(joinSpans(spans), datatype, language)
	}
}

// joinSpans concatenates every span verbatim, for non-IRI term types where
// no part of the value is percent-encoded.
func joinSpans(spans []span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.text)
	}
	return b.String()
}

// encodeSpans concatenates a combo for an IRI term, percent-encoding only
// the reference-derived spans and copying literal template text through
// unencoded (spec §4.2 step 3).
func encodeSpans(spans []span, opts Options) string {
	var b strings.Builder
	for _, s := range spans {
		if s.isRef {
			b.WriteString(encodeIRI(s.text, opts))
		} else {
			b.WriteString(s.text)
		}
	}
	return b.String()
}

// compileFunction compiles a function term map: its IRI resolves through
// the Registry, and its declared Args are themselves compiled TermMaps
// evaluated against the same record (spec §4.2 "Function term maps").
func (f *Factory) compileFunction(triplesMap string, tm *model.TermMap) (Generator, error) {
	fn, ok := f.Registry[tm.Function]
	if !ok {
		return nil, &rmlerr.FunctionEvaluationError{Function: tm.Function, Reason: "function is not registered"}
	}

	argGens := make(map[string]Generator, len(tm.Args))
	for _, arg := range tm.Args {
		gen, err := f.Compile(triplesMap, arg.Value)
		if err != nil {
			return nil, err
		}
		argGens[arg.Parameter] = gen
	}

	return func(rec Record) ([]rdf.Term, error) {
		argValues := make(map[string][]rdf.Term, len(argGens))
		for param, gen := range argGens {
			vals, err := gen(rec)
			if err != nil {
				return nil, err
			}
			argValues[param] = vals
		}
		terms, err := fn(argValues)
		if err != nil {
			return nil, &rmlerr.TermGenerationError{
				TriplesMap: triplesMap,
				Field:      tm.Resource,
				Err:        &rmlerr.FunctionEvaluationError{Function: tm.Function, Reason: err.Error()},
			}
		}
		return terms, nil
	}
}

// encodeIRI normalizes and percent-encodes a single substituted value for
// use inside an IRI term (spec §4.2 step 3). Literal template text around
// the hole is never re-encoded; only the value bound to each reference is.
func encodeIRI(value string, opts Options) string {
	form := opts.NormalizationForm
	normalized := form.String(value)

	var b strings.Builder
	hex := "0123456789ABCDEF"
	if !opts.UpperCasePercentEncoding {
		hex = "0123456789abcdef"
	}
	for i := 0; i < len(normalized); i++ {
		c := normalized[i]
		if isIRISafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

// isIRISafe reports whether c is in the unreserved set (ALPHA / DIGIT /
// "-" / "." / "_" / "~") that may appear unencoded in a substituted IRI
// value.
func isIRISafe(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}
