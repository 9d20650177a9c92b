package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmlgo/rml/model"
	"github.com/rmlgo/rml/rdf"
)

func TestParseTemplateEscapes(t *testing.T) {
	tpl, err := Parse(`http://ex/\{literal\}/{a}`)
	require.NoError(t, err)
	require.Len(t, tpl.Segments, 2)
	assert.Equal(t, "http://ex/{literal}/", tpl.Segments[0].Text)
	assert.False(t, tpl.Segments[0].IsRef)
	assert.Equal(t, "a", tpl.Segments[1].Text)
	assert.True(t, tpl.Segments[1].IsRef)
}

func TestParseTemplateUnterminated(t *testing.T) {
	_, err := Parse("http://ex/{a")
	assert.Error(t, err)
}

func TestParseTemplateReferences(t *testing.T) {
	tpl, err := Parse("http://ex/{a}/{b}/{a}")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a"}, tpl.References())
}

func TestGenerateIRIWithPercentEncoding(t *testing.T) {
	f := NewFactory(DefaultOptions(), nil)
	tm := &model.TermMap{Template: "http://ex/{a}", Type: model.TermTypeIRI}
	gen, err := f.Compile("tm", tm)
	require.NoError(t, err)

	terms, err := gen(MapRecord{"a": "héllo"})
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "<http://ex/h%C3%A9llo>", terms[0].String())
}

func TestGenerateIRILowerCasePercentEncoding(t *testing.T) {
	opts := DefaultOptions()
	opts.UpperCasePercentEncoding = false
	f := NewFactory(opts, nil)
	tm := &model.TermMap{Template: "http://ex/{a}", Type: model.TermTypeIRI}
	gen, err := f.Compile("tm", tm)
	require.NoError(t, err)

	terms, err := gen(MapRecord{"a": "héllo"})
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "<http://ex/h%c3%a9llo>", terms[0].String())
}

func TestGenerateAbsentValueSuppression(t *testing.T) {
	f := NewFactory(DefaultOptions(), nil)
	tm := &model.TermMap{Template: "http://ex/{b}", Type: model.TermTypeIRI}
	gen, err := f.Compile("tm", tm)
	require.NoError(t, err)

	terms, err := gen(MapRecord{"a": "1"})
	require.NoError(t, err)
	assert.Nil(t, terms)
}

func TestGenerateLiteralFromReference(t *testing.T) {
	f := NewFactory(DefaultOptions(), nil)
	tm := &model.TermMap{Reference: "b", Type: model.TermTypeLiteral}
	gen, err := f.Compile("tm", tm)
	require.NoError(t, err)

	terms, err := gen(MapRecord{"b": "2"})
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, `"2"`, terms[0].String())
}

func TestGenerateConstant(t *testing.T) {
	f := NewFactory(DefaultOptions(), nil)
	tm := &model.TermMap{Constant: &model.Term{Kind: model.TermTypeIRI, Value: "http://ex/p"}}
	gen, err := f.Compile("tm", tm)
	require.NoError(t, err)

	terms, err := gen(MapRecord{})
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "<http://ex/p>", terms[0].String())
}

type multiRecord map[string][]string

func (m multiRecord) Get(reference string) ([]string, bool) {
	v, ok := m[reference]
	return v, ok
}

func TestGenerateCartesianProduct(t *testing.T) {
	f := NewFactory(DefaultOptions(), nil)
	tm := &model.TermMap{Template: "http://ex/{a}-{b}", Type: model.TermTypeIRI}
	gen, err := f.Compile("tm", tm)
	require.NoError(t, err)

	terms, err := gen(multiRecord{"a": {"1", "2"}, "b": {"x"}})
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "<http://ex/1-x>", terms[0].String())
	assert.Equal(t, "<http://ex/2-x>", terms[1].String())
}

func TestGenerateFunction(t *testing.T) {
	reg := Registry{
		"http://ex/fn/upper": func(args map[string][]rdf.Term) ([]rdf.Term, error) {
			vals := args["http://ex/fn/param/value"]
			require.Len(t, vals, 1)
			return []rdf.Term{rdf.NewLiteral(strings.ToUpper(vals[0].RawValue()))}, nil
		},
	}
	f := NewFactory(DefaultOptions(), reg)
	tm := &model.TermMap{
		Function: "http://ex/fn/upper",
		Args: []model.FunctionArg{
			{Parameter: "http://ex/fn/param/value", Value: &model.TermMap{Reference: "a", Type: model.TermTypeLiteral}},
		},
		Type: model.TermTypeLiteral,
	}
	gen, err := f.Compile("tm", tm)
	require.NoError(t, err)

	terms, err := gen(MapRecord{"a": "hi"})
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, `"HI"`, terms[0].String())
}

func TestGenerateFunctionUnregistered(t *testing.T) {
	f := NewFactory(DefaultOptions(), nil)
	tm := &model.TermMap{Function: "http://ex/fn/missing"}
	_, err := f.Compile("tm", tm)
	assert.Error(t, err)
}

func TestInvalidTermMapKind(t *testing.T) {
	f := NewFactory(DefaultOptions(), nil)
	tm := &model.TermMap{Constant: &model.Term{Value: "x"}, Template: "http://ex/{a}"}
	_, err := f.Compile("tm", tm)
	assert.Error(t, err)
}
