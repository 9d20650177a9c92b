// Package csvdecode provides a minimal logicalsource.Decoder for the CSV
// reference formulation (rml:CSV). Concrete source decoders are formally
// out of scope for this engine (spec §1); this one reference
// implementation exists so the pipeline and join engine are exercisable
// end to end without an external decoder library.
package csvdecode

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rmlgo/rml/logicalsource"
	"github.com/rmlgo/rml/template"
)

// FormulationIRI is the RML reference-formulation IRI this decoder
// implements.
const FormulationIRI = "http://semweb.mmlab.be/ns/rml#CSV"

// Decoder decodes CSV byte streams into template.MapRecord values keyed
// by header column name. The iterator expression is ignored: CSV records
// are already flat.
type Decoder struct{}

// New returns a CSV Decoder.
func New() *Decoder { return &Decoder{} }

// Decode implements logicalsource.Decoder.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, iterator string) (logicalsource.RecordIterator, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return &iter{}, nil
		}
		return nil, err
	}

	return &iter{ctx: ctx, cr: cr, header: header}, nil
}

type iter struct {
	ctx    context.Context
	cr     *csv.Reader
	header []string
	cur    template.MapRecord
	err    error
	done   bool
}

func (it *iter) Next() bool {
	if it.done || it.cr == nil {
		return false
	}
	if it.ctx != nil {
		select {
		case <-it.ctx.Done():
			it.err = it.ctx.Err()
			it.done = true
			return false
		default:
		}
	}

	row, err := it.cr.Read()
	if err == io.EOF {
		it.done = true
		return false
	}
	if err != nil {
		it.err = err
		it.done = true
		return false
	}

	rec := make(template.MapRecord, len(it.header))
	for i, col := range it.header {
		// An empty CSV cell is treated as a null/absent value (spec §8
		// scenario 5); only non-empty cells are bound.
		if i < len(row) && row[i] != "" {
			rec[col] = row[i]
		}
	}
	it.cur = rec
	return true
}

func (it *iter) Record() logicalsource.Record { return it.cur }
func (it *iter) Err() error                    { return it.err }
func (it *iter) Close() error                  { return nil }
