package dbcopy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fishcollege/fishcollege/backend/go-services/pkg/metrics"
)

type sliceCursor struct {
	docs []bson.D
	pos  int
	err  error
}

func (c *sliceCursor) Next(context.Context) bool {
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Decode(v interface{}) error {
	p, ok := v.(*bson.D)
	if !ok {
		return fmt.Errorf("unexpected %T", v)
	}
	*p = c.docs[c.pos-1]
	return nil
}

func (c *sliceCursor) Err() error { return c.err }
func (c *sliceCursor) Close(context.Context) error { return nil }

type memDB struct {
	cols map[string][]bson.D
	// inserts records each InsertMany batch size
	inserts map[string][]int
	// failOn fails the n-th InsertMany call (1-based) when set
	failOn int
	calls  int
	// lossy silently keeps only the first document of each batch
	lossy bool
}

func newMemDB() *memDB {
	return &memDB{cols: map[string][]bson.D{}, inserts: map[string][]int{}}
}

func (m *memDB) seed(name string, n int) {
	for i := 0; i < n; i++ {
		m.cols[name] = append(m.cols[name], bson.D{{Key: "_id", Value: i}, {Key: "title", Value: fmt.Sprintf("%s-%d", name, i)}})
	}
}

func (m *memDB) Collections(context.Context) ([]string, error) {
	var out []string
	for name := range m.cols {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memDB) Count(_ context.Context, name string) (int64, error) {
	return int64(len(m.cols[name])), nil
}

func (m *memDB) Find(_ context.Context, name string, _ int) (Cursor, error) {
	return &sliceCursor{docs: m.cols[name]}, nil
}

func (m *memDB) Drop(_ context.Context, name string) error {
	delete(m.cols, name)
	return nil
}

func (m *memDB) InsertMany(_ context.Context, name string, docs []interface{}) error {
	m.calls++
	if m.failOn > 0 && m.calls == m.failOn {
		return errors.New("connection reset")
	}
	m.inserts[name] = append(m.inserts[name], len(docs))
	if m.lossy {
		docs = docs[:1]
	}
	for _, d := range docs {
		m.cols[name] = append(m.cols[name], d.(bson.D))
	}
	return nil
}

func TestCopy_BatchesOf500(t *testing.T) {
	src, dst := newMemDB(), newMemDB()
	src.seed("news", 1234)
	before := testutil.ToFloat64(metrics.DocumentsCopied.WithLabelValues("news"))

	res, err := New(src, dst).Run(context.Background(), []string{"news"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, Result{Collection: "news", Source: 1234, Copied: 1234, Batches: 3}, res[0])
	assert.Equal(t, []int{500, 500, 234}, dst.inserts["news"])
	assert.Equal(t, src.cols["news"], dst.cols["news"])
	assert.Equal(t, float64(1234), testutil.ToFloat64(metrics.DocumentsCopied.WithLabelValues("news"))-before)
}

func TestCopy_AllCollectionsAndCustomBatch(t *testing.T) {
	src, dst := newMemDB(), newMemDB()
	src.seed("programs", 7)
	src.seed("faculties", 3)
	src.cols["empty"] = nil

	res, err := New(src, dst, WithBatchSize(2)).Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "empty", res[0].Collection)
	assert.Equal(t, int64(0), res[0].Copied)
	assert.Equal(t, 0, res[0].Batches)
	assert.Equal(t, []int{2, 1}, dst.inserts["faculties"])
	assert.Equal(t, []int{2, 2, 2, 1}, dst.inserts["programs"])
	assert.Len(t, dst.cols["programs"], 7)

	c := New(src, dst, WithBatchSize(0))
	assert.Equal(t, DefaultBatchSize, c.batchSize)
}

func TestCopy_FailureAbortsRun(t *testing.T) {
	src, dst := newMemDB(), newMemDB()
	src.seed("a", 1200)
	src.seed("b", 10)
	dst.failOn = 2

	res, err := New(src, dst).Run(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert batch 2")
	assert.Empty(t, res)
	assert.Equal(t, []int{500}, dst.inserts["a"])
	_, touched := dst.cols["b"]
	assert.False(t, touched)
}

func TestCopy_TargetMustBeEmptyUnlessDropped(t *testing.T) {
	src, dst := newMemDB(), newMemDB()
	src.seed("news", 5)
	dst.seed("news", 2)

	_, err := New(src, dst).Copy(context.Background(), "news")
	require.ErrorIs(t, err, ErrTargetNotEmpty)

	res, err := New(src, dst, WithDrop(true)).Copy(context.Background(), "news")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Copied)
	assert.Equal(t, src.cols["news"], dst.cols["news"])
}

func TestCopy_DetectsCountMismatch(t *testing.T) {
	src, dst := newMemDB(), newMemDB()
	src.seed("news", 3)
	dst.lossy = true

	_, err := New(src, dst).Copy(context.Background(), "news")
	require.ErrorIs(t, err, ErrCountMismatch)
}

func TestCopy_CursorError(t *testing.T) {
	dst := newMemDB()
	src := &failingSource{memDB: newMemDB()}
	src.seed("news", 3)

	_, err := New(src, dst).Copy(context.Background(), "news")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cursor")
}

type failingSource struct{ *memDB }

func (f *failingSource) Find(_ context.Context, name string, _ int) (Cursor, error) {
	return &sliceCursor{docs: f.cols[name], err: errors.New("cursor killed")}, nil
}
