// Package mapper implements the orchestrator of spec §4.5: given a
// mapping model and a source bundle, it resolves sources, runs logical
// source pipelines, drives the join engine, and emits a statement stream
// or collects it into a graph.
package mapper

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rmlgo/rml/config"
	"github.com/rmlgo/rml/join"
	"github.com/rmlgo/rml/logicalsource"
	"github.com/rmlgo/rml/model"
	"github.com/rmlgo/rml/rdf"
	"github.com/rmlgo/rml/rmlerr"
	"github.com/rmlgo/rml/source"
	"github.com/rmlgo/rml/template"
)

const rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// compiledPOM is one PredicateObjectMap with every term map already
// compiled into a Generator, built once at Build time rather than
// per-record (spec §9's generator-compilation cache, folded into a single
// eager pass since the mapping model is immutable after build).
type compiledPOM struct {
	predicates []template.Generator
	objects    []template.Generator
	graphs     []template.Generator
	refObjects []refObjectBinding
}

type refObjectBinding struct {
	relationID string
}

type compiledTM struct {
	tm         *model.TriplesMap
	subject    template.Generator
	subjGraphs []template.Generator
	classes    []string
	poms       []compiledPOM
}

type relationSpec struct {
	id         string
	conditions []model.JoinCondition
	childTM    string
	parentTM   string
}

// Mapper is a built, ready-to-run mapping session (spec §4.5). It is safe
// to call Map/MapWithSources/MapItem/MapToGraph repeatedly; each call
// opens a fresh join engine and statement stream.
type Mapper struct {
	cfg       *config.Config
	grouped   map[model.LogicalSource][]*model.TriplesMap
	compiled  map[string]*compiledTM
	relations []relationSpec

	resolver source.Resolver
	decoders logicalsource.Registry

	warnings chan rmlerr.Warning
}

// Build validates the mapping model against the bound resolvers/decoders
// and compiles every term map, per spec §4.5: "validates that at least one
// reference-formulation resolver and at least one mappable TriplesMap
// exist; compiles pipelines."
func Build(cfg *config.Config, maps map[string]*model.TriplesMap, resolver source.Resolver, decoders logicalsource.Registry, functions template.Registry) (*Mapper, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if resolver == nil {
		resolver = DefaultResolver(cfg)
	}

	var mappable []*model.TriplesMap
	for _, tm := range maps {
		if tm.Mappable() {
			mappable = append(mappable, tm)
		}
	}
	if len(mappable) == 0 {
		return nil, &rmlerr.ConfigurationError{Reason: "no mappable TriplesMap: every subject map is unset or malformed"}
	}

	grouped := make(map[model.LogicalSource][]*model.TriplesMap)
	for _, tm := range mappable {
		key := tm.LogicalSource.Key()
		if _, ok := decoders.Lookup(key.ReferenceFormulation); !ok {
			return nil, &rmlerr.ConfigurationError{Reason: fmt.Sprintf(
				"no decoder registered for reference formulation %q (triples map %q)", key.ReferenceFormulation, tm.ID)}
		}
		grouped[key] = append(grouped[key], tm)
	}

	factory := template.NewFactory(templateOptions(cfg), functions)

	compiled := make(map[string]*compiledTM, len(mappable))
	var relations []relationSpec

	for _, tm := range mappable {
		subjGen, err := factory.Compile(tm.ID, &tm.SubjectMap.TermMap)
		if err != nil {
			return nil, err
		}
		var subjGraphGens []template.Generator
		for _, gm := range tm.SubjectMap.Graphs {
			g, err := factory.Compile(tm.ID, &gm.TermMap)
			if err != nil {
				return nil, err
			}
			subjGraphGens = append(subjGraphGens, g)
		}

		ctm := &compiledTM{tm: tm, subject: subjGen, subjGraphs: subjGraphGens, classes: tm.SubjectMap.Classes}

		for pomIdx, pom := range tm.PredicateObjectMaps {
			var cp compiledPOM
			for i := range pom.Predicates {
				g, err := factory.Compile(tm.ID, &pom.Predicates[i].TermMap)
				if err != nil {
					return nil, err
				}
				cp.predicates = append(cp.predicates, g)
			}
			for i := range pom.Objects {
				g, err := factory.Compile(tm.ID, &pom.Objects[i].TermMap)
				if err != nil {
					return nil, err
				}
				cp.objects = append(cp.objects, g)
			}
			for i := range pom.Graphs {
				g, err := factory.Compile(tm.ID, &pom.Graphs[i].TermMap)
				if err != nil {
					return nil, err
				}
				cp.graphs = append(cp.graphs, g)
			}
			for refIdx := range pom.RefObjects {
				rom := &pom.RefObjects[refIdx]
				if _, ok := maps[rom.ParentTriplesMap]; !ok {
					return nil, &rmlerr.ConfigurationError{Reason: fmt.Sprintf(
						"triples map %q references unknown parent triples map %q", tm.ID, rom.ParentTriplesMap)}
				}
				if parent, ok := maps[rom.ParentTriplesMap]; !ok || !parent.Mappable() {
					return nil, &rmlerr.ConfigurationError{Reason: fmt.Sprintf(
						"parent triples map %q of %q has no usable subject map", rom.ParentTriplesMap, tm.ID)}
				}
				relID := fmt.Sprintf("%s#%d#%d", tm.ID, pomIdx, refIdx)
				spec := relationSpec{id: relID, conditions: rom.JoinConditions, childTM: tm.ID, parentTM: rom.ParentTriplesMap}
				relations = append(relations, spec)
				cp.refObjects = append(cp.refObjects, refObjectBinding{relationID: relID})
			}
			ctm.poms = append(ctm.poms, cp)
		}
		compiled[tm.ID] = ctm
	}

	return &Mapper{
		cfg:       cfg,
		grouped:   grouped,
		compiled:  compiled,
		relations: relations,
		resolver:  resolver,
		decoders:  decoders,
		warnings:  make(chan rmlerr.Warning, 256),
	}, nil
}

// DefaultResolver builds the composite source.Resolver implied by a
// Config's declarative resolver fields (spec §6): a file-system resolver
// rooted at FileSourceBaseDir, then a classpath-style resolver rooted at
// ClasspathBaseDir. Callers wanting a custom resolver chain bypass this and
// pass their own resolver to Build directly.
func DefaultResolver(cfg *config.Config) source.Resolver {
	return source.NewComposite(
		source.NewFileResolver(cfg.FileSourceBaseDir),
		source.NewClasspathResolver(cfg.ClasspathBaseDir, nil),
	)
}

func templateOptions(cfg *config.Config) template.Options {
	return template.Options{
		NormalizationForm:        cfg.NormalizationForm.Form(),
		UpperCasePercentEncoding: cfg.IRIUpperCasePercentEncoding,
	}
}

// Warnings returns the channel of non-fatal diagnostics recorded during
// Map/MapWithSources/MapItem runs. The channel is buffered; callers that
// don't drain it simply drop warnings once the buffer fills.
func (m *Mapper) Warnings() <-chan rmlerr.Warning { return m.warnings }

func (m *Mapper) warn(w rmlerr.Warning) {
	select {
	case m.warnings <- w:
	default:
	}
}

// termGenFailure handles a term generation failure per config.StrictMode
// (spec §7's design hook): in strict mode it is promoted to a fatal
// *rmlerr.TermGenerationError that aborts the owning pipeline, otherwise it
// is recorded on the warning channel and the caller treats the term as
// absent.
func (m *Mapper) termGenFailure(triplesMap, field string, err error) error {
	if m.cfg.StrictMode {
		return &rmlerr.TermGenerationError{TriplesMap: triplesMap, Field: field, Err: err}
	}
	m.warn(rmlerr.Warning{Kind: rmlerr.WarningTermGeneration, TriplesMap: triplesMap, Detail: field, Err: err})
	return nil
}

func (m *Mapper) relationProvider() join.StoreProvider {
	if m.cfg.JoinStoreSpillDir != "" {
		return join.NewBBoltProvider(m.cfg.JoinStoreSpillDir)
	}
	return join.MemoryProvider{}
}

func (m *Mapper) activeTriplesMaps(filter []string) (map[string]*compiledTM, error) {
	if len(filter) == 0 {
		return m.compiled, nil
	}
	out := make(map[string]*compiledTM, len(filter))
	for _, id := range filter {
		ctm, ok := m.compiled[id]
		if !ok {
			return nil, &rmlerr.ConfigurationError{Reason: fmt.Sprintf("filter names unmapped triples map %q", id)}
		}
		out[id] = ctm
	}
	return out, nil
}

// Map runs every pipeline and returns a statement stream plus a wait
// function (in the manner of errgroup.Group.Wait) that blocks until the
// stream is fully drained and returns the first fatal error, if any.
func (m *Mapper) Map(ctx context.Context) (<-chan rdf.Statement, func() error) {
	return m.run(ctx, m.resolver, nil)
}

// MapWithSources binds named byte streams ahead of the configured
// resolver — a higher-priority, exact-match layer in the composite
// resolution order (spec §4.5 "binds declarative source references to
// provided byte streams by logical name") — and optionally restricts
// execution to the named TriplesMap IDs.
func (m *Mapper) MapWithSources(ctx context.Context, inputs map[string][]byte, filter []string) (<-chan rdf.Statement, func() error) {
	resolver := source.NewComposite(source.NewNamedInputResolver(inputs), m.resolver)
	return m.run(ctx, resolver, filter)
}

func (m *Mapper) run(ctx context.Context, resolver source.Resolver, filter []string) (<-chan rdf.Statement, func() error) {
	out := make(chan rdf.Statement, 256)

	active, err := m.activeTriplesMaps(filter)
	if err != nil {
		close(out)
		return out, func() error { return err }
	}

	engine := join.NewEngine(m.relationProvider())
	relByID := make(map[string]*join.Relation, len(m.relations))
	for _, spec := range m.relations {
		if _, childActive := active[spec.childTM]; !childActive {
			continue
		}
		if _, parentActive := active[spec.parentTM]; !parentActive {
			continue
		}
		rel, err := engine.Relation(spec.id, spec.conditions)
		if err != nil {
			close(out)
			return out, func() error { return err }
		}
		relByID[spec.id] = rel
	}

	relationsByParentTM := make(map[string][]string)
	for _, spec := range m.relations {
		if _, ok := relByID[spec.id]; !ok {
			continue
		}
		relationsByParentTM[spec.parentTM] = append(relationsByParentTM[spec.parentTM], spec.id)
	}

	// ContinueOnPipelineError (spec §7 propagation rules) opts out of
	// errgroup's cancel-on-first-error context derivation, so one pipeline's
	// fatal error doesn't tear down the sibling pipelines sharing gctx.
	var g *errgroup.Group
	var gctx context.Context
	if m.cfg.ContinueOnPipelineError {
		g, gctx = new(errgroup.Group), ctx
	} else {
		g, gctx = errgroup.WithContext(ctx)
	}
	for ls, tms := range m.grouped {
		ls, tms := ls, tms
		var subs []logicalsource.Subscriber
		for _, tm := range tms {
			ctm := active[tm.ID]
			if ctm == nil {
				continue
			}
			subs = append(subs, logicalsource.Subscriber{
				Name: tm.ID,
				Handle: func(ctx context.Context, rec logicalsource.Record) error {
					return m.handleRecord(ctx, ctm, rec, relByID, relationsByParentTM, out)
				},
			})
		}
		if len(subs) == 0 {
			continue
		}

		g.Go(func() error {
			rc, ok, err := resolver.Resolve(ls.SourceReference)
			if err != nil {
				return &rmlerr.PipelineError{Source: ls.SourceReference, Err: err}
			}
			if !ok {
				return &rmlerr.PipelineError{Source: ls.SourceReference, Err: &rmlerr.SourceResolutionError{Reference: ls.SourceReference}}
			}
			defer rc.Close()

			decoder, _ := m.decoders.Lookup(ls.ReferenceFormulation)
			p := logicalsource.NewPipeline(ls.SourceReference, decoder, ls.Iterator)
			return p.Run(gctx, rc, subs)
		})
	}

	done := make(chan error, 1)
	go func() {
		err := g.Wait()
		if err == nil {
			err = m.finalizeJoins(relByID, active, out)
		}
		close(out)
		engine.Close()
		done <- err
	}()

	waited := false
	var waitErr error
	wait := func() error {
		if !waited {
			waitErr = <-done
			waited = true
		}
		return waitErr
	}
	return out, wait
}

func (m *Mapper) handleRecord(ctx context.Context, ctm *compiledTM, rec logicalsource.Record, relByID map[string]*join.Relation, relationsByParentTM map[string][]string, out chan<- rdf.Statement) error {
	subjectTerms, err := ctm.subject(rec)
	if err != nil {
		return m.termGenFailure(ctm.tm.ID, "subjectMap", err)
	}
	if len(subjectTerms) == 0 {
		return nil
	}

	mapRec, _ := rec.(template.MapRecord)

	subjGraphs, err := evalGraphs(ctm.subjGraphs, rec)
	if err != nil {
		if ferr := m.termGenFailure(ctm.tm.ID, "subjectMap.graphMap", err); ferr != nil {
			return ferr
		}
	}

	for _, subj := range subjectTerms {
		for _, class := range ctm.classes {
			if !sendStatement(ctx, out, rdf.Statement{Subject: subj, Predicate: rdf.NewResource(rdfType), Object: rdf.NewResource(class)}) {
				return ctx.Err()
			}
		}

		for _, relID := range relationsByParentTM[ctm.tm.ID] {
			rel := relByID[relID]
			if rel == nil || mapRec == nil {
				continue
			}
			if err := rel.AddParent(subj, mapRec, ctm.tm.ID, m.warn); err != nil {
				return &rmlerr.JoinStoreError{Err: err}
			}
		}

		for _, pom := range ctm.poms {
			preds, err := evalAll(pom.predicates, rec)
			if err != nil {
				if ferr := m.termGenFailure(ctm.tm.ID, "predicateMap", err); ferr != nil {
					return ferr
				}
				continue
			}
			objs, err := evalAll(pom.objects, rec)
			if err != nil {
				if ferr := m.termGenFailure(ctm.tm.ID, "objectMap", err); ferr != nil {
					return ferr
				}
				continue
			}
			pomGraphs, err := evalGraphs(pom.graphs, rec)
			if err != nil {
				if ferr := m.termGenFailure(ctm.tm.ID, "predicateObjectMap.graphMap", err); ferr != nil {
					return ferr
				}
			}
			graphs := unionGraphs(subjGraphs, pomGraphs)

			for _, p := range preds {
				for _, o := range objs {
					for _, gr := range graphs {
						if !sendStatement(ctx, out, rdf.Statement{Subject: subj, Predicate: p, Object: o, Graph: gr}) {
							return ctx.Err()
						}
					}
				}
			}

			for _, binding := range pom.refObjects {
				rel := relByID[binding.relationID]
				if rel == nil || mapRec == nil {
					continue
				}
				if err := rel.AddChild(subj, mapRec, ctm.tm.ID, m.warn); err != nil {
					return &rmlerr.JoinStoreError{Err: err}
				}
			}
		}
	}
	return nil
}

// finalizeJoins runs once every pipeline has completed: it resolves each
// active relation's matches and re-evaluates that relation's predicate and
// graph generators against the stored child record to emit the joined
// triples (spec §4.4 step 3, "downstream-emit-context re-entered"). A join
// store error is returned as fatal.
func (m *Mapper) finalizeJoins(relByID map[string]*join.Relation, active map[string]*compiledTM, out chan<- rdf.Statement) error {
	for _, ctm := range active {
		for _, pom := range ctm.poms {
			for _, binding := range pom.refObjects {
				rel := relByID[binding.relationID]
				if rel == nil {
					continue
				}
				matches, err := rel.Match()
				if err != nil {
					return err
				}
				for _, match := range matches {
					preds, err := evalAll(pom.predicates, match.Record)
					if err != nil {
						continue
					}
					subjGraphs, err := evalGraphs(ctm.subjGraphs, match.Record)
					if err != nil {
						continue
					}
					pomGraphs, err := evalGraphs(pom.graphs, match.Record)
					if err != nil {
						continue
					}
					graphs := unionGraphs(subjGraphs, pomGraphs)
					for _, p := range preds {
						for _, gr := range graphs {
							out <- rdf.Statement{Subject: match.ChildSubject, Predicate: p, Object: match.ParentSubject, Graph: gr}
						}
					}
				}
			}
		}
	}
	return nil
}

func evalAll(gens []template.Generator, rec template.Record) ([]rdf.Term, error) {
	var out []rdf.Term
	for _, gen := range gens {
		terms, err := gen(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, terms...)
	}
	return out, nil
}

// evalGraphs evaluates a list of graph-map generators, returning nil
// (representing the default graph) when there are none.
func evalGraphs(gens []template.Generator, rec template.Record) ([]rdf.Term, error) {
	if len(gens) == 0 {
		return []rdf.Term{nil}, nil
	}
	terms, err := evalAll(gens, rec)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return []rdf.Term{nil}, nil
	}
	return terms, nil
}

func unionGraphs(a, b []rdf.Term) []rdf.Term {
	if len(a) == 1 && a[0] == nil {
		return b
	}
	if len(b) == 1 && b[0] == nil {
		return a
	}
	return append(append([]rdf.Term{}, a...), b...)
}

func sendStatement(ctx context.Context, out chan<- rdf.Statement, st rdf.Statement) bool {
	select {
	case out <- st:
		return true
	case <-ctx.Done():
		return false
	}
}

// MapItem evaluates generators against a single caller-provided record,
// bypassing the decoder and join engine entirely (spec §4.5 "used for
// embedding"). filter restricts evaluation to the named TriplesMap IDs.
func (m *Mapper) MapItem(rec template.Record, filter []string) ([]rdf.Statement, error) {
	active, err := m.activeTriplesMaps(filter)
	if err != nil {
		return nil, err
	}

	var statements []rdf.Statement
	for _, ctm := range active {
		subjectTerms, err := ctm.subject(rec)
		if err != nil {
			return nil, &rmlerr.TermGenerationError{TriplesMap: ctm.tm.ID, Field: "subjectMap", Err: err}
		}
		subjGraphs, err := evalGraphs(ctm.subjGraphs, rec)
		if err != nil {
			return nil, err
		}
		for _, subj := range subjectTerms {
			for _, class := range ctm.classes {
				statements = append(statements, rdf.Statement{Subject: subj, Predicate: rdf.NewResource(rdfType), Object: rdf.NewResource(class)})
			}
			for _, pom := range ctm.poms {
				preds, err := evalAll(pom.predicates, rec)
				if err != nil {
					return nil, err
				}
				objs, err := evalAll(pom.objects, rec)
				if err != nil {
					return nil, err
				}
				pomGraphs, err := evalGraphs(pom.graphs, rec)
				if err != nil {
					return nil, err
				}
				graphs := unionGraphs(subjGraphs, pomGraphs)
				for _, p := range preds {
					for _, o := range objs {
						for _, gr := range graphs {
							statements = append(statements, rdf.Statement{Subject: subj, Predicate: p, Object: o, Graph: gr})
						}
					}
				}
			}
		}
	}
	return statements, nil
}

// MapToGraph collects Map's statement stream into an in-memory graph,
// bounded by the configured overall timeout (spec §4.5, default 30s).
func (m *Mapper) MapToGraph(ctx context.Context) (*rdf.Graph, error) {
	timeout := m.cfg.MapToGraphTimeout
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stream, wait := m.Map(ctx)
	g := rdf.NewGraph("")
	for st := range stream {
		g.AddTriple(st.Subject, st.Predicate, st.Object)
	}

	if err := wait(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &rmlerr.MappingTimeoutError{TimeoutSeconds: timeout.Seconds()}
		}
		return nil, err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &rmlerr.MappingTimeoutError{TimeoutSeconds: timeout.Seconds()}
	}
	return g, nil
}
