package logicalsource

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/rmlgo/rml/rmlerr"
)

// DefaultBufferSize is the default capacity of the per-subscriber replay
// buffer between the decoder and its slowest consumer (spec §9).
const DefaultBufferSize = 64

// Subscriber is one triples mapper sharing a Pipeline's source. Handle is
// invoked once per record, in source order; a non-nil return is treated as
// fatal to the whole pipeline (per-record term-generation problems should
// be recorded as warnings by the caller and swallowed, not returned here).
type Subscriber struct {
	Name   string
	Handle func(ctx context.Context, rec Record) error
}

// Pipeline reads one logical source's bytes exactly once through a Decoder
// and broadcasts each record to every Subscriber in arrival order (spec
// §4.3).
type Pipeline struct {
	SourceName string // diagnostic identity, e.g. the LogicalSource's reference
	Decoder    Decoder
	Iterator   string
	BufferSize int
}

// NewPipeline builds a Pipeline with the spec-default buffer size.
func NewPipeline(sourceName string, dec Decoder, iterator string) *Pipeline {
	return &Pipeline{SourceName: sourceName, Decoder: dec, Iterator: iterator, BufferSize: DefaultBufferSize}
}

// Run decodes r and broadcasts every record to subs, blocking until the
// source is exhausted, an error occurs, or ctx is cancelled. A decoder
// error aborts only this pipeline: Run returns a *rmlerr.PipelineError
// naming SourceName, wrapping the underlying *rmlerr.DecoderError.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, subs []Subscriber) error {
	bufSize := p.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	channels := make([]chan Record, len(subs))
	for i := range channels {
		channels[i] = make(chan Record, bufSize)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer func() {
			for _, ch := range channels {
				close(ch)
			}
		}()

		it, err := p.Decoder.Decode(gctx, r, p.Iterator)
		if err != nil {
			return &rmlerr.PipelineError{Source: p.SourceName, Err: &rmlerr.DecoderError{ReferenceFormulation: p.SourceName, Err: err}}
		}
		defer it.Close()

		for it.Next() {
			rec := it.Record()
			for _, ch := range channels {
				select {
				case ch <- rec:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
		if err := it.Err(); err != nil {
			return &rmlerr.PipelineError{Source: p.SourceName, Err: &rmlerr.DecoderError{ReferenceFormulation: p.SourceName, Err: err}}
		}
		return nil
	})

	for i, sub := range subs {
		ch := channels[i]
		handle := sub.Handle
		g.Go(func() error {
			for {
				select {
				case rec, ok := <-ch:
					if !ok {
						return nil
					}
					if err := handle(gctx, rec); err != nil {
						return err
					}
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}

	return g.Wait()
}
