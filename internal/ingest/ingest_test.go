package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docent0/docent/internal/chunk"
	"github.com/docent0/docent/internal/llm"
	"github.com/docent0/docent/internal/log"
	"github.com/docent0/docent/internal/store"
)

// mockEmbedder implements ai.Embedder, returning one vector per input.
type mockEmbedder struct {
	embedErr  error
	callCount int
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(api.Registry) {}

func (m *mockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	resp := &ai.EmbedResponse{}
	for range req.Input {
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: []float32{0.5}})
	}
	return resp, nil
}

// captureStore records upserts and fragment inserts.
type captureStore struct {
	docs      []store.Document
	inserts   int
	chunks    int
	upsertErr error
	insertErr error
}

func (s *captureStore) UpsertDocument(_ context.Context, doc store.Document) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.docs = append(s.docs, doc)
	return nil
}

func (s *captureStore) InsertFragments(_ context.Context, _, _ string, chunks []chunk.Chunk, vectors [][]float32) (int, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	if len(chunks) != len(vectors) {
		return 0, errors.New("chunk/vector count mismatch")
	}
	s.inserts++
	s.chunks += len(chunks)
	return len(chunks), nil
}

func newTestIngestor(t *testing.T, st Store, mock *mockEmbedder, chunkSize int) *Ingestor {
	t.Helper()

	embedder, err := llm.NewEmbedder(mock)
	require.NoError(t, err)

	splitter, err := chunk.NewSplitter(chunkSize, 0, log.NewNop())
	require.NoError(t, err)

	ing, err := New(st, embedder, splitter, log.NewNop())
	require.NoError(t, err)
	return ing
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "mysql-notes.md", "MySQL 数据库服务的默认端口是 3306，客户端默认连接该端口。")

	st := &captureStore{}
	ing := newTestIngestor(t, st, &mockEmbedder{}, 1000)

	report, err := ing.IngestFile(context.Background(), path, "manual")
	require.NoError(t, err)

	assert.Equal(t, "mysql-notes.md", report.Filename)
	assert.Equal(t, 1, report.Chunks)
	assert.Equal(t, 1, report.Stored)
	assert.NotEmpty(t, report.DocumentID)

	require.Len(t, st.docs, 1)
	doc := st.docs[0]
	assert.Equal(t, report.DocumentID, doc.ID)
	assert.Equal(t, "mysql-notes", doc.Title)
	assert.Equal(t, "manual", doc.Category)
}

func TestIngestFile_BatchesEmbeddings(t *testing.T) {
	t.Parallel()

	// 40 sentences with a tiny chunk size yields well over one embed batch.
	text := strings.Repeat("The catalog lists every journal in the east wing. ", 40)
	dir := t.TempDir()
	path := writeFile(t, dir, "catalog.txt", text)

	st := &captureStore{}
	mock := &mockEmbedder{}
	ing := newTestIngestor(t, st, mock, 50)

	report, err := ing.IngestFile(context.Background(), path, "")
	require.NoError(t, err)

	assert.Greater(t, report.Chunks, embedBatchSize)
	assert.Equal(t, report.Chunks, st.chunks)
	assert.Equal(t, report.Chunks, report.Stored)

	wantBatches := (report.Chunks + embedBatchSize - 1) / embedBatchSize
	assert.Equal(t, wantBatches, mock.callCount)
	assert.Equal(t, wantBatches, st.inserts)
}

func TestIngestFile_Rejections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pdf := writeFile(t, dir, "scan.pdf", "binary-ish")
	empty := writeFile(t, dir, "empty.txt", "   \n\t ")
	invalid := filepath.Join(dir, "broken.txt")
	require.NoError(t, os.WriteFile(invalid, []byte{0xff, 0xfe, 0xfd}, 0o600))

	tests := []struct {
		name string
		path string
	}{
		{"unsupported extension", pdf},
		{"blank file", empty},
		{"invalid utf-8", invalid},
		{"missing file", filepath.Join(dir, "nope.txt")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := &captureStore{}
			ing := newTestIngestor(t, st, &mockEmbedder{}, 1000)

			_, err := ing.IngestFile(context.Background(), tt.path, "")
			assert.Error(t, err)
			assert.Empty(t, st.docs, "nothing may be stored for a rejected file")
		})
	}
}

func TestIngestFile_EmbedFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "Some perfectly fine content about the reading room.")

	ing := newTestIngestor(t, &captureStore{}, &mockEmbedder{embedErr: errors.New("quota exceeded")}, 1000)

	_, err := ing.IngestFile(context.Background(), path, "")
	assert.Error(t, err)
}

func TestIngestDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.md", "Opening hours are nine to five on weekdays.")
	writeFile(t, dir, "b.txt", "Interlibrary loans take up to two weeks.")
	writeFile(t, dir, "skip.pdf", "not plain text")
	writeFile(t, dir, "bad.txt", "   ") // fails ingestion, must not abort the walk

	hidden := filepath.Join(dir, ".git")
	require.NoError(t, os.Mkdir(hidden, 0o750))
	writeFile(t, hidden, "c.md", "must never be ingested")

	st := &captureStore{}
	ing := newTestIngestor(t, st, &mockEmbedder{}, 1000)

	reports, err := ing.IngestDir(context.Background(), dir, "handbook")
	require.NoError(t, err)

	require.Len(t, reports, 2)
	var names []string
	for _, r := range reports {
		names = append(names, r.Filename)
	}
	assert.ElementsMatch(t, []string{"a.md", "b.txt"}, names)

	for _, doc := range st.docs {
		assert.Equal(t, "handbook", doc.Category)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil, nil, log.NewNop())
	assert.Error(t, err)
}
