package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/embedding"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

var testUnits = []model.ContextUnit{
	{SectionName: "Residential Proxies", SourceURL: "https://x/proxies/residential", Content: "<Residential Proxies>\nResidential proxies route traffic through real household devices."},
	{SectionName: "Datacenter Proxies", SourceURL: "https://x/proxies/datacenter", Content: "<Datacenter Proxies>\nDatacenter proxies are fast and hosted in cloud data centers."},
	{SectionName: "Web Scraper Api", SourceURL: "https://x/scraping/web-scraper-api", Content: "<Web Scraper Api>\nThe Web Scraper API returns parsed results for any public page."},
	{SectionName: "Billing", SourceURL: "https://x/account/billing", Content: "<Billing>\nInvoices are issued monthly and can be downloaded from the dashboard."},
}

type failingEmbedder struct {
	*embedding.HashEmbedder
	err error
}

func (f *failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, f.err
}

// slowEmbedder waits delay before each call, giving up when ctx ends
type slowEmbedder struct {
	*embedding.HashEmbedder
	delay atomic.Int64
	calls atomic.Int32
}

func (s *slowEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	select {
	case <-time.After(time.Duration(s.delay.Load())):
		return s.HashEmbedder.Embed(ctx, texts)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newTestIndex(t *testing.T, dir string) *Index {
	t.Helper()
	idx := New(Config{Dir: dir, ChunkSize: 1000, ChunkOverlap: 200}, embedding.NewHashEmbedder(64), nil)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestQuery_Uninitialized(t *testing.T) {
	idx := newTestIndex(t, filepath.Join(t.TempDir(), "store"))

	require.False(t, idx.IsInitialized())
	units, err := idx.Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	require.NotNil(t, units)
	require.Empty(t, units)
}

func TestAddThenQuery(t *testing.T) {
	idx := newTestIndex(t, filepath.Join(t.TempDir(), "store"))
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, testUnits))
	require.True(t, idx.IsInitialized())
	require.Equal(t, len(testUnits), idx.Count())

	for _, u := range testUnits {
		got, err := idx.Query(ctx, u.Content, 3)
		require.NoError(t, err)
		require.NotEmpty(t, got)
		assert.Equal(t, u, got[0], "exact content must rank first")
	}
}

func TestQuery_KBounds(t *testing.T) {
	idx := newTestIndex(t, filepath.Join(t.TempDir(), "store"))
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, testUnits))

	for _, k := range []int{1, 2, 3, 4, 10} {
		got, err := idx.Query(ctx, "proxies", k)
		require.NoError(t, err)
		assert.Len(t, got, min(k, len(testUnits)))
	}

	hits, err := idx.Search(ctx, "datacenter proxies", 4)
	require.NoError(t, err)
	for n := 1; n < len(hits); n++ {
		assert.GreaterOrEqual(t, hits[n-1].Score, hits[n].Score)
	}
}

func TestQuery_InvalidK(t *testing.T) {
	idx := newTestIndex(t, filepath.Join(t.TempDir(), "store"))

	for _, k := range []int{0, -1} {
		_, err := idx.Query(context.Background(), "x", k)
		var ie *model.IndexError
		require.ErrorAs(t, err, &ie)
		assert.ErrorIs(t, err, model.ErrInvalidK)
	}
}

func TestAdd_Appends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	idx := newTestIndex(t, dir)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, testUnits[:2]))
	require.NoError(t, idx.Add(ctx, testUnits[1:]))
	require.Equal(t, 5, idx.Count())

	for _, u := range testUnits {
		got, err := idx.Query(ctx, u.Content, 1)
		require.NoError(t, err)
		assert.Equal(t, u.SourceURL, got[0].SourceURL)
	}
}

func TestAdd_Empty(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	idx := newTestIndex(t, dir)

	require.NoError(t, idx.Add(context.Background(), nil))
	require.False(t, idx.IsInitialized())
	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err), "empty add must not create the store")
}

func TestAdd_SplitsLongUnits(t *testing.T) {
	idx := New(Config{Dir: filepath.Join(t.TempDir(), "store"), ChunkSize: 50, ChunkOverlap: 10}, embedding.NewHashEmbedder(64), nil)
	defer idx.Close()

	long := model.ContextUnit{
		SectionName: "Long",
		SourceURL:   "https://x/a/long",
		Content:     "<Long>\n" + strings.Repeat("proxy rotation keeps sessions fresh. ", 10),
	}
	require.NoError(t, idx.Add(context.Background(), []model.ContextUnit{long}))
	require.Greater(t, idx.Count(), 1)

	got, err := idx.Query(context.Background(), "proxy rotation", 10)
	require.NoError(t, err)
	for _, u := range got {
		assert.Equal(t, "Long", u.SectionName)
		assert.Equal(t, "https://x/a/long", u.SourceURL)
		assert.LessOrEqual(t, len([]rune(u.Content)), 50)
	}
}

func TestPersistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	ctx := context.Background()

	first := New(Config{Dir: dir, ChunkSize: 1000, ChunkOverlap: 200}, embedding.NewHashEmbedder(64), nil)
	require.NoError(t, first.Add(ctx, testUnits))
	require.NoError(t, first.Close())

	second := newTestIndex(t, dir)
	require.True(t, second.IsInitialized())
	require.Equal(t, len(testUnits), second.Count())

	got, err := second.Query(ctx, testUnits[3].Content, 1)
	require.NoError(t, err)
	assert.Equal(t, testUnits[3], got[0])

	require.NoError(t, second.Add(ctx, testUnits[:1]))
	assert.Equal(t, len(testUnits)+1, second.Count())
}

func TestReset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	idx := newTestIndex(t, dir)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, testUnits))
	require.NoError(t, idx.Reset())

	require.False(t, idx.IsInitialized())
	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))

	got, err := idx.Query(ctx, "proxies", 3)
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, idx.Add(ctx, testUnits[:1]))
	require.Equal(t, 1, idx.Count())
}

func TestCorruptStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, dbFile), []byte("definitely not sqlite"), 0o644))

	idx := newTestIndex(t, dir)
	require.False(t, idx.IsInitialized())

	got, err := idx.Query(context.Background(), "proxies", 3)
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, idx.Add(context.Background(), testUnits))
	require.True(t, idx.IsInitialized())

	aside, err := filepath.Glob(dir + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, aside, 1)
}

func TestDimensionChange(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	ctx := context.Background()

	first := New(Config{Dir: dir, ChunkSize: 1000, ChunkOverlap: 200}, embedding.NewHashEmbedder(64), nil)
	require.NoError(t, first.Add(ctx, testUnits))
	require.NoError(t, first.Close())

	second := New(Config{Dir: dir, ChunkSize: 1000, ChunkOverlap: 200}, embedding.NewHashEmbedder(32), nil)
	defer second.Close()
	require.False(t, second.IsInitialized(), "vectors from another dimension are unusable")
}

func TestAdd_EmbeddingFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	cause := errors.New("embedding service unavailable")
	idx := New(Config{Dir: dir, ChunkSize: 1000, ChunkOverlap: 200}, &failingEmbedder{HashEmbedder: embedding.NewHashEmbedder(8), err: cause}, nil)
	defer idx.Close()

	err := idx.Add(context.Background(), testUnits)
	var ie *model.IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "embed", ie.Op)
	assert.ErrorIs(t, err, cause)
	assert.False(t, idx.IsInitialized())
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	chunks := []model.Chunk{
		{Seq: 2, SourceURL: "c", Embedding: []float32{1, 0}},
		{Seq: 0, SourceURL: "a", Embedding: []float32{1, 0}},
		{Seq: 1, SourceURL: "b", Embedding: []float32{0, 1}},
	}

	hits, err := search(chunks, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].Unit.SourceURL)
	assert.Equal(t, "c", hits[1].Unit.SourceURL)
	assert.Equal(t, "b", hits[2].Unit.SourceURL)

	_, err = search(chunks, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, model.ErrDimensionMismatch)
}

func TestAdd_Timeout(t *testing.T) {
	slow := &slowEmbedder{HashEmbedder: embedding.NewHashEmbedder(16)}
	slow.delay.Store(int64(time.Second))
	idx := New(Config{Dir: filepath.Join(t.TempDir(), "store"), ChunkSize: 1000, ChunkOverlap: 200, Timeout: 20 * time.Millisecond}, slow, nil)
	defer idx.Close()

	err := idx.Add(context.Background(), testUnits)
	var ie *model.IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "embed", ie.Op)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, idx.IsInitialized())
}

func TestQuery_Timeout(t *testing.T) {
	slow := &slowEmbedder{HashEmbedder: embedding.NewHashEmbedder(16)}
	idx := New(Config{Dir: filepath.Join(t.TempDir(), "store"), ChunkSize: 1000, ChunkOverlap: 200, Timeout: 20 * time.Millisecond}, slow, nil)
	defer idx.Close()
	require.NoError(t, idx.Add(context.Background(), testUnits))

	slow.delay.Store(int64(time.Second))
	_, err := idx.Query(context.Background(), "residential proxies", 3)
	var ie *model.IndexError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAdd_TimeoutAppliesPerEmbedCall(t *testing.T) {
	units := make([]model.ContextUnit, embedWindow+1)
	for n := range units {
		units[n] = model.ContextUnit{SectionName: "Doc", SourceURL: "https://x/doc", Content: strings.Repeat("word ", n%7+1) + strconv.Itoa(n)}
	}

	slow := &slowEmbedder{HashEmbedder: embedding.NewHashEmbedder(16)}
	slow.delay.Store(int64(100 * time.Millisecond))
	idx := New(Config{Dir: filepath.Join(t.TempDir(), "store"), ChunkSize: 1000, ChunkOverlap: 200, Timeout: 150 * time.Millisecond}, slow, nil)
	defer idx.Close()

	require.NoError(t, idx.Add(context.Background(), units), "two calls exceed the timeout together but not one at a time")
	assert.Equal(t, int32(2), slow.calls.Load())
	assert.Equal(t, len(units), idx.Count())
}
