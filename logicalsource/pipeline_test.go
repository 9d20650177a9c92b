package logicalsource

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmlgo/rml/template"
)

type sliceIterator struct {
	recs []Record
	i    int
	err  error
}

func (s *sliceIterator) Next() bool {
	if s.i >= len(s.recs) {
		return false
	}
	s.i++
	return true
}
func (s *sliceIterator) Record() Record { return s.recs[s.i-1] }
func (s *sliceIterator) Err() error     { return s.err }
func (s *sliceIterator) Close() error   { return nil }

func sliceDecoder(recs []Record, err error) Decoder {
	return DecoderFunc(func(ctx context.Context, r io.Reader, iterator string) (RecordIterator, error) {
		return &sliceIterator{recs: recs, err: err}, nil
	})
}

func TestPipelineBroadcastsInOrder(t *testing.T) {
	recs := []Record{
		template.MapRecord{"a": "1"},
		template.MapRecord{"a": "2"},
		template.MapRecord{"a": "3"},
	}
	p := NewPipeline("src", sliceDecoder(recs, nil), "")

	var mu sync.Mutex
	var seenA, seenB []string

	subs := []Subscriber{
		{Name: "A", Handle: func(ctx context.Context, rec Record) error {
			v, _ := rec.Get("a")
			mu.Lock()
			seenA = append(seenA, v[0])
			mu.Unlock()
			return nil
		}},
		{Name: "B", Handle: func(ctx context.Context, rec Record) error {
			v, _ := rec.Get("a")
			mu.Lock()
			seenB = append(seenB, v[0])
			mu.Unlock()
			return nil
		}},
	}

	err := p.Run(context.Background(), nil, subs)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, seenA)
	assert.Equal(t, []string{"1", "2", "3"}, seenB)
}

func TestPipelineDecoderErrorIsFatalToThisPipeline(t *testing.T) {
	p := NewPipeline("src", sliceDecoder(nil, errors.New("bad bytes")), "")
	subs := []Subscriber{{Name: "A", Handle: func(ctx context.Context, rec Record) error { return nil }}}

	err := p.Run(context.Background(), nil, subs)
	require.Error(t, err)
}

func TestPipelineSubscriberErrorAborts(t *testing.T) {
	recs := []Record{template.MapRecord{"a": "1"}, template.MapRecord{"a": "2"}}
	p := NewPipeline("src", sliceDecoder(recs, nil), "")

	boom := errors.New("boom")
	subs := []Subscriber{{Name: "A", Handle: func(ctx context.Context, rec Record) error { return boom }}}

	err := p.Run(context.Background(), nil, subs)
	require.Error(t, err)
}

func TestPipelineEmptySourceYieldsNoRecords(t *testing.T) {
	p := NewPipeline("src", sliceDecoder(nil, nil), "")
	var count int
	subs := []Subscriber{{Name: "A", Handle: func(ctx context.Context, rec Record) error { count++; return nil }}}
	require.NoError(t, p.Run(context.Background(), nil, subs))
	assert.Equal(t, 0, count)
}
