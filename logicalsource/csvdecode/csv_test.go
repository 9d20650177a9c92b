package csvdecode

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBasicRows(t *testing.T) {
	d := New()
	it, err := d.Decode(context.Background(), strings.NewReader("a,b\n1,2\n3,4\n"), "")
	require.NoError(t, err)
	defer it.Close()

	var rows [][2]string
	for it.Next() {
		rec := it.Record()
		a, _ := rec.Get("a")
		b, _ := rec.Get("b")
		rows = append(rows, [2]string{a[0], b[0]})
	}
	require.NoError(t, it.Err())
	assert.Equal(t, [][2]string{{"1", "2"}, {"3", "4"}}, rows)
}

func TestDecodeEmptyCellIsAbsent(t *testing.T) {
	d := New()
	it, err := d.Decode(context.Background(), strings.NewReader("a,b\n1,\n"), "")
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	rec := it.Record()
	_, ok := rec.Get("b")
	assert.False(t, ok)
}

func TestDecodeEmptySource(t *testing.T) {
	d := New()
	it, err := d.Decode(context.Background(), strings.NewReader(""), "")
	require.NoError(t, err)
	defer it.Close()
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}
