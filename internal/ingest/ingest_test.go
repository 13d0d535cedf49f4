package ingest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovehq/grove/internal/extract"
	"github.com/grovehq/grove/internal/log"
	"github.com/grovehq/grove/internal/store"
)

type fakeExtractor struct {
	result extract.Result
	err    error
}

func (f *fakeExtractor) Extract(data []byte, declaredType, fileName string) (extract.Result, error) {
	if f.err != nil {
		return extract.Result{}, f.err
	}
	if f.result.Text != "" {
		return f.result, nil
	}
	return extract.Result{Text: string(data)}, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 0.5}
	}
	return out, nil
}

type fakeStorer struct {
	inserted  []store.InsertChunkParams
	deletes   [][2]string
	insertErr error
	deleteErr error
}

func (f *fakeStorer) InsertChunks(ctx context.Context, chunks []store.InsertChunkParams) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, chunks...)
	return nil
}

func (f *fakeStorer) DeleteDocument(ctx context.Context, bucketID, fileName string) error {
	f.deletes = append(f.deletes, [2]string{bucketID, fileName})
	return f.deleteErr
}

func newPipeline(ex *fakeExtractor, em *fakeEmbedder, st *fakeStorer, opts ...Option) *Pipeline {
	return New(ex, em, st, log.NewNop(), opts...)
}

func doc(data string) Document {
	return Document{
		BucketID: "b1",
		FileName: "notes.txt",
		FileType: "text/plain",
		Data:     []byte(data),
	}
}

func TestIngestSmallDocument(t *testing.T) {
	st := &fakeStorer{}
	p := newPipeline(&fakeExtractor{}, &fakeEmbedder{}, st)

	summary, err := p.Ingest(context.Background(), doc("short document text"))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ChunkCount)
	assert.False(t, summary.Degraded)

	require.Len(t, st.inserted, 1)
	row := st.inserted[0]
	assert.NotEmpty(t, row.ID)
	assert.Equal(t, "b1", row.BucketID)
	assert.Equal(t, "notes.txt", row.FileName)
	assert.Equal(t, 0, row.ChunkIndex)
	assert.Equal(t, 1, row.TotalChunks)
	assert.Equal(t, DefaultBrand, row.Brand)
	assert.NotEmpty(t, row.Embedding)
}

func TestIngestChunkIndexContiguous(t *testing.T) {
	st := &fakeStorer{}
	p := newPipeline(&fakeExtractor{}, &fakeEmbedder{}, st, WithChunking(100, 10))

	text := strings.Repeat("sentence one here. ", 60)
	_, err := p.Ingest(context.Background(), doc(text))
	require.NoError(t, err)
	require.Greater(t, len(st.inserted), 1)

	for i, row := range st.inserted {
		assert.Equal(t, i, row.ChunkIndex)
		assert.Equal(t, len(st.inserted), row.TotalChunks)
	}
}

func TestIngestRejectsOversizedUpload(t *testing.T) {
	p := newPipeline(&fakeExtractor{}, &fakeEmbedder{}, &fakeStorer{}, WithMaxUploadBytes(10))

	_, err := p.Ingest(context.Background(), doc("this payload is larger than ten bytes"))
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestIngestRejectsTooManyChunks(t *testing.T) {
	st := &fakeStorer{}
	em := &fakeEmbedder{}
	p := newPipeline(&fakeExtractor{}, em, st, WithChunking(20, 0))

	// Well over 500 chunks of plain prose.
	text := strings.Repeat("word word word word. ", 1000)
	_, err := p.Ingest(context.Background(), doc(text))
	require.ErrorIs(t, err, ErrTooManyChunks)
	assert.Zero(t, em.calls, "no embedding work before the chunk gate")
	assert.Empty(t, st.inserted)
}

func TestIngestCSVDataGetsHigherChunkLimit(t *testing.T) {
	var sb bytes.Buffer
	sb.WriteString("CSV Data (550 rows):\n")
	for i := 0; i < 550; i++ {
		sb.WriteString("some,row,content,with,enough,text,to,fill,a,chunk\n")
	}
	st := &fakeStorer{}
	p := newPipeline(&fakeExtractor{result: extract.Result{Text: sb.String()}}, &fakeEmbedder{}, st, WithChunking(50, 0))

	_, err := p.Ingest(context.Background(), Document{
		BucketID: "b1", FileName: "data.csv", FileType: "text/csv", Data: []byte("x"),
	})
	require.NoError(t, err)
	assert.Greater(t, len(st.inserted), 500, "csv sections may exceed the default ceiling")
}

func TestIngestEmbeddingFailureLeavesStorageUntouched(t *testing.T) {
	st := &fakeStorer{}
	p := newPipeline(&fakeExtractor{}, &fakeEmbedder{err: errors.New("service down")}, st)

	_, err := p.Ingest(context.Background(), doc("content"))
	require.Error(t, err)
	assert.Empty(t, st.inserted)
	assert.Empty(t, st.deletes, "no delete before embedding succeeds")
}

func TestIngestInsertFailureCompensates(t *testing.T) {
	st := &fakeStorer{insertErr: errors.New("constraint violation")}
	p := newPipeline(&fakeExtractor{}, &fakeEmbedder{}, st)

	_, err := p.Ingest(context.Background(), doc("content"))
	require.Error(t, err)
	// One delete for replace, one compensating delete after the failed insert.
	require.Len(t, st.deletes, 2)
	assert.Equal(t, [2]string{"b1", "notes.txt"}, st.deletes[1])
}

func TestIngestReplacesPreviousVersion(t *testing.T) {
	st := &fakeStorer{}
	p := newPipeline(&fakeExtractor{}, &fakeEmbedder{}, st)

	_, err := p.Ingest(context.Background(), doc("v2 content"))
	require.NoError(t, err)
	require.Len(t, st.deletes, 1)
	assert.Equal(t, [2]string{"b1", "notes.txt"}, st.deletes[0])
}

func TestIngestPropagatesExtractionError(t *testing.T) {
	p := newPipeline(&fakeExtractor{err: extract.ErrUnsupportedType}, &fakeEmbedder{}, &fakeStorer{})

	_, err := p.Ingest(context.Background(), doc("data"))
	require.ErrorIs(t, err, extract.ErrUnsupportedType)
}

func TestIngestDegradedPDFMarksSummary(t *testing.T) {
	ex := &fakeExtractor{result: extract.Result{
		Text: "[PDF text extraction failed: parser panic]",
		Meta: extract.Meta{Failed: true, FailureReason: "parser panic"},
	}}
	st := &fakeStorer{}
	p := newPipeline(ex, &fakeEmbedder{}, st)

	summary, err := p.Ingest(context.Background(), Document{
		BucketID: "b1", FileName: "scan.pdf", FileType: "application/pdf", Data: []byte("x"),
	})
	require.NoError(t, err)
	assert.True(t, summary.Degraded)
	require.Len(t, st.inserted, 1)
}

func TestIngestKeepsExplicitBrand(t *testing.T) {
	st := &fakeStorer{}
	p := newPipeline(&fakeExtractor{}, &fakeEmbedder{}, st)

	d := doc("content")
	d.Brand = "Acme"
	_, err := p.Ingest(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "Acme", st.inserted[0].Brand)
}

func TestIngestRequiresIdentity(t *testing.T) {
	p := newPipeline(&fakeExtractor{}, &fakeEmbedder{}, &fakeStorer{})

	_, err := p.Ingest(context.Background(), Document{FileName: "x.txt", Data: []byte("a")})
	require.Error(t, err)

	_, err = p.Ingest(context.Background(), Document{BucketID: "b1", Data: []byte("a")})
	require.Error(t, err)
}
