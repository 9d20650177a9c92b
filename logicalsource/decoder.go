// Package logicalsource implements the per-source dataflow of spec §4.3:
// a Decoder contract for reference formulations, and a Pipeline that reads
// one source exactly once and fans its records out to every triples
// mapper sharing that source, in arrival order, with a bounded buffer.
package logicalsource

import (
	"context"
	"io"

	"github.com/rmlgo/rml/template"
)

// Record is the decoded-record view a Decoder produces; it is exactly
// template.Record so term generators can evaluate directly against it.
type Record = template.Record

// RecordIterator is a forward-only iterator over decoded records,
// following the teacher pack's own format-agnostic decode contract
// (grounded on Carlodf-cetl's Decoder/RecordIterator/Extractor shape).
type RecordIterator interface {
	// Next advances to the next record and reports whether one is
	// available. It returns false on EOF or a terminal error; Err
	// distinguishes the two.
	Next() bool

	// Record returns the current record. Valid only after Next returned
	// true, and only until the next call to Next.
	Record() Record

	// Err returns the first non-EOF error encountered, or nil.
	Err() error

	// Close releases the iterator's resources. Safe to call more than
	// once.
	Close() error
}

// Decoder turns a byte stream into a stream of decoded records for one
// reference formulation. Iteration, plus any path expression named by a
// LogicalSource's Iterator, is the decoder's responsibility; this engine
// treats source decoders as pluggable externals (spec §1).
type Decoder interface {
	// Decode consumes bytes from r (which it does not own; callers close
	// it) and returns a RecordIterator over the source's records,
	// applying iterator if the format is hierarchical and iterator is
	// non-empty.
	Decode(ctx context.Context, r io.Reader, iterator string) (RecordIterator, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, r io.Reader, iterator string) (RecordIterator, error)

func (f DecoderFunc) Decode(ctx context.Context, r io.Reader, iterator string) (RecordIterator, error) {
	return f(ctx, r, iterator)
}

// Registry resolves a reference-formulation IRI to the Decoder that reads
// it (spec §6 "logicalSourceResolverSuppliers").
type Registry map[string]Decoder

// Lookup returns the decoder registered for formulation, and whether one
// was found.
func (r Registry) Lookup(formulation string) (Decoder, bool) {
	d, ok := r[formulation]
	return d, ok
}
