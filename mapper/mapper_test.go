package mapper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmlgo/rml/config"
	"github.com/rmlgo/rml/logicalsource"
	"github.com/rmlgo/rml/logicalsource/csvdecode"
	"github.com/rmlgo/rml/model"
	"github.com/rmlgo/rml/rdf"
	"github.com/rmlgo/rml/rmlerr"
	"github.com/rmlgo/rml/source"
	"github.com/rmlgo/rml/template"
)

func decoderRegistry() logicalsource.Registry {
	return logicalsource.Registry{csvdecode.FormulationIRI: csvdecode.New()}
}

func basicTriplesMap(source string) *model.TriplesMap {
	return &model.TriplesMap{
		ID: "http://ex/TM",
		LogicalSource: model.LogicalSource{
			SourceReference:      source,
			ReferenceFormulation: csvdecode.FormulationIRI,
		},
		SubjectMap: model.SubjectMap{
			TermMap: model.TermMap{Resource: "subj", Template: "http://ex/{a}", Type: model.TermTypeIRI},
		},
		PredicateObjectMaps: []model.PredicateObjectMap{
			{
				Predicates: []model.PredicateMap{{TermMap: model.TermMap{
					Resource: "pred", Constant: &model.Term{Kind: model.TermTypeIRI, Value: "http://ex/p"}, Type: model.TermTypeIRI,
				}}},
				Objects: []model.ObjectMap{{TermMap: model.TermMap{
					Resource: "obj", Reference: "b", Type: model.TermTypeLiteral,
				}}},
			},
		},
	}
}

func TestMapperBasicCSVMapping(t *testing.T) {
	maps := map[string]*model.TriplesMap{"http://ex/TM": basicTriplesMap("data.csv")}
	resolver := source.NewNamedInputResolver(map[string][]byte{"data.csv": []byte("a,b\n1,2\n3,4\n")})

	m, err := Build(config.Default(), maps, resolver, decoderRegistry(), nil)
	require.NoError(t, err)

	g, err := m.MapToGraph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
}

func TestMapperEmptyMappableSetIsConfigurationError(t *testing.T) {
	tm := basicTriplesMap("data.csv")
	tm.SubjectMap = model.SubjectMap{}
	maps := map[string]*model.TriplesMap{"http://ex/TM": tm}

	_, err := Build(config.Default(), maps, source.NewNamedInputResolver(nil), decoderRegistry(), nil)
	require.Error(t, err)
	var cfgErr *rmlerr.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestMapperMissingValueSuppressesTriple(t *testing.T) {
	maps := map[string]*model.TriplesMap{"http://ex/TM": basicTriplesMap("data.csv")}
	resolver := source.NewNamedInputResolver(map[string][]byte{"data.csv": []byte("a,b\n1,\n")})

	m, err := Build(config.Default(), maps, resolver, decoderRegistry(), nil)
	require.NoError(t, err)

	g, err := m.MapToGraph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
}

func TestMapperJoinAcrossTwoSources(t *testing.T) {
	child := &model.TriplesMap{
		ID: "http://ex/Emp",
		LogicalSource: model.LogicalSource{
			SourceReference:      "emp.csv",
			ReferenceFormulation: csvdecode.FormulationIRI,
		},
		SubjectMap: model.SubjectMap{
			TermMap: model.TermMap{Resource: "empSubj", Template: "http://ex/emp/{id}", Type: model.TermTypeIRI},
		},
		PredicateObjectMaps: []model.PredicateObjectMap{
			{
				Predicates: []model.PredicateMap{{TermMap: model.TermMap{
					Resource: "worksAt", Constant: &model.Term{Kind: model.TermTypeIRI, Value: "http://ex/worksAt"}, Type: model.TermTypeIRI,
				}}},
				RefObjects: []model.RefObjectMap{{
					ParentTriplesMap: "http://ex/Dept",
					JoinConditions:   []model.JoinCondition{{ChildExpr: "dept_id", ParentExpr: "id"}},
				}},
			},
		},
	}
	parent := &model.TriplesMap{
		ID: "http://ex/Dept",
		LogicalSource: model.LogicalSource{
			SourceReference:      "dept.csv",
			ReferenceFormulation: csvdecode.FormulationIRI,
		},
		SubjectMap: model.SubjectMap{
			TermMap: model.TermMap{Resource: "deptSubj", Template: "http://ex/dept/{id}", Type: model.TermTypeIRI},
		},
	}

	maps := map[string]*model.TriplesMap{child.ID: child, parent.ID: parent}
	resolver := source.NewNamedInputResolver(map[string][]byte{
		"emp.csv":  []byte("id,dept_id\n1,10\n2,20\n"),
		"dept.csv": []byte("id\n10\n20\n"),
	})

	m, err := Build(config.Default(), maps, resolver, decoderRegistry(), nil)
	require.NoError(t, err)

	g, err := m.MapToGraph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
}

func TestMapperStrictModePromotesTermGenerationError(t *testing.T) {
	tm := basicTriplesMap("data.csv")
	tm.PredicateObjectMaps[0].Objects[0].TermMap = model.TermMap{
		Resource: "obj",
		Function: "http://ex/fn/fail",
		Type:     model.TermTypeLiteral,
	}
	maps := map[string]*model.TriplesMap{"http://ex/TM": tm}
	resolver := source.NewNamedInputResolver(map[string][]byte{"data.csv": []byte("a,b\n1,2\n")})

	failingFn := template.Registry{
		"http://ex/fn/fail": func(map[string][]rdf.Term) ([]rdf.Term, error) {
			return nil, errors.New("boom")
		},
	}

	cfg := config.NewBuilder().Strict().Build()
	m, err := Build(cfg, maps, resolver, decoderRegistry(), failingFn)
	require.NoError(t, err)

	_, err = m.MapToGraph(context.Background())
	require.Error(t, err)
	var termErr *rmlerr.TermGenerationError
	assert.ErrorAs(t, err, &termErr)
}

func TestMapperMapToGraphTimeout(t *testing.T) {
	maps := map[string]*model.TriplesMap{"http://ex/TM": basicTriplesMap("data.csv")}
	resolver := source.NewNamedInputResolver(map[string][]byte{"data.csv": []byte("a,b\n1,2\n")})

	cfg := config.NewBuilder().MapToGraphTimeout(1 * time.Nanosecond).Build()
	m, err := Build(cfg, maps, resolver, decoderRegistry(), nil)
	require.NoError(t, err)

	_, err = m.MapToGraph(context.Background())
	if err != nil {
		var timeoutErr *rmlerr.MappingTimeoutError
		assert.ErrorAs(t, err, &timeoutErr)
	}
}
