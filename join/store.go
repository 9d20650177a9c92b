// Package join implements the child/parent join store and symmetric
// hash-join algorithm of spec §4.4.
package join

import (
	"strings"
	"sync"

	"github.com/rmlgo/rml/rdf"
	"github.com/rmlgo/rml/template"
)

// joinKeySeparator joins multiple join-condition values into one lookup
// key. It uses a control character unlikely to appear in source data,
// rather than a plain delimiter, so values containing commas or pipes
// don't collide.
const joinKeySeparator = "\x1f"

func joinKey(values []string) string {
	return strings.Join(values, joinKeySeparator)
}

// TermRepr is a serialization-friendly representation of an rdf.Term,
// used so child/parent rows can be written to a spillable store.
type TermRepr struct {
	Kind     uint8 // 0=Resource, 1=BlankNode, 2=Literal
	Value    string
	Language string
	Datatype string
}

const (
	reprResource uint8 = iota
	reprBlankNode
	reprLiteral
)

// ToTermRepr converts an rdf.Term into its serializable representation.
func ToTermRepr(t rdf.Term) TermRepr {
	switch v := t.(type) {
	case *rdf.Resource:
		return TermRepr{Kind: reprResource, Value: v.URI}
	case *rdf.BlankNode:
		return TermRepr{Kind: reprBlankNode, Value: v.ID}
	case *rdf.Literal:
		repr := TermRepr{Kind: reprLiteral, Value: v.Value, Language: v.Language}
		if v.Datatype != nil {
			repr.Datatype = v.Datatype.RawValue()
		}
		return repr
	}
	return TermRepr{}
}

// Term reconstructs the rdf.Term this representation describes.
func (r TermRepr) Term() rdf.Term {
	switch r.Kind {
	case reprBlankNode:
		return rdf.NewBlankNode(r.Value)
	case reprLiteral:
		if r.Language != "" {
			return rdf.NewLiteralWithLanguage(r.Value, r.Language)
		}
		if r.Datatype != "" {
			return rdf.NewLiteralWithDatatype(r.Value, rdf.NewResource(r.Datatype))
		}
		return rdf.NewLiteral(r.Value)
	default:
		return rdf.NewResource(r.Value)
	}
}

// ChildRow is one child-side join candidate: the child record's generated
// subject, its evaluated join values, and a snapshot of the record's
// fields so the downstream predicate/object generators can be re-run once
// a parent match is found (spec §4.4 "downstream-emit-context").
type ChildRow struct {
	ChildSubject TermRepr
	JoinValues   []string
	Record       template.MapRecord
}

// ParentEntry is one parent-side registration: a produced subject together
// with its evaluated parent-side join values.
type ParentEntry struct {
	Subject    TermRepr
	JoinValues []string
}

// ChildStore holds the buffered child-side rows for one (RefObjectMap,
// parent TriplesMap) relation.
type ChildStore interface {
	Append(row ChildRow) error
	All() ([]ChildRow, error)
	Close() error
}

// ParentStore holds the parent-side join-value index for one relation.
type ParentStore interface {
	Register(entry ParentEntry) error
	// Lookup returns every parent subject registered under joinValues.
	Lookup(joinValues []string) ([]TermRepr, error)
	// All returns every registered parent entry, used for the zero-join-
	// condition self-join product (spec §4.4 rule 4).
	All() ([]ParentEntry, error)
	Close() error
}

// StoreProvider opens child and parent stores for a named join relation.
// The in-memory MemoryProvider is the default; BBoltProvider spills to
// disk (spec §6 childSideJoinStoreProvider / parentSideJoinConditionStoreProvider).
type StoreProvider interface {
	OpenChild(relationID string) (ChildStore, error)
	OpenParent(relationID string) (ParentStore, error)
}

// MemoryProvider is the default in-memory StoreProvider.
type MemoryProvider struct{}

func (MemoryProvider) OpenChild(string) (ChildStore, error) {
	return &memChildStore{}, nil
}

func (MemoryProvider) OpenParent(string) (ParentStore, error) {
	return &memParentStore{index: make(map[string][]TermRepr)}, nil
}

type memChildStore struct {
	mu   sync.Mutex
	rows []ChildRow
}

func (s *memChildStore) Append(row ChildRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

func (s *memChildStore) All() ([]ChildRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChildRow, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *memChildStore) Close() error { return nil }

type memParentStore struct {
	mu      sync.Mutex
	index   map[string][]TermRepr
	entries []ParentEntry
}

func (s *memParentStore) Register(entry ParentEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := joinKey(entry.JoinValues)
	s.index[key] = append(s.index[key], entry.Subject)
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memParentStore) Lookup(joinValues []string) ([]TermRepr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index[joinKey(joinValues)], nil
}

func (s *memParentStore) All() ([]ParentEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ParentEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *memParentStore) Close() error { return nil }
