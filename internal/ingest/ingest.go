// Package ingest loads source files into the fragment store: read, split
// into chunks, embed, persist.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/docent0/docent/internal/chunk"
	"github.com/docent0/docent/internal/llm"
	"github.com/docent0/docent/internal/log"
	"github.com/docent0/docent/internal/store"
)

// embedBatchSize is how many chunks are embedded per provider call.
const embedBatchSize = 16

// supportedExtensions are the plain-text formats the ingestor accepts.
var supportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// Store is the persistence dependency of the ingestor.
type Store interface {
	UpsertDocument(ctx context.Context, doc store.Document) error
	InsertFragments(ctx context.Context, docID, category string, chunks []chunk.Chunk, vectors [][]float32) (int, error)
}

// Report summarizes one ingested file.
type Report struct {
	DocumentID string
	Filename   string
	Chunks     int
	Stored     int
}

// Ingestor turns files into stored, embedded fragments.
type Ingestor struct {
	store    Store
	embedder *llm.Embedder
	splitter *chunk.Splitter
	logger   log.Logger
}

// New creates an ingestor.
func New(st Store, embedder *llm.Embedder, splitter *chunk.Splitter, logger log.Logger) (*Ingestor, error) {
	if st == nil || embedder == nil || splitter == nil {
		return nil, fmt.Errorf("ingest: missing dependency")
	}
	return &Ingestor{store: st, embedder: embedder, splitter: splitter, logger: logger}, nil
}

// IngestFile loads one file under a fresh document ID. The category is
// attached to every fragment and drives no behavior beyond attribution.
func (i *Ingestor) IngestFile(ctx context.Context, path, category string) (*Report, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s is not valid UTF-8", path)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s is empty", path)
	}

	filename := filepath.Base(path)
	doc := store.Document{
		ID:       uuid.NewString(),
		Filename: filename,
		Title:    strings.TrimSuffix(filename, ext),
		Category: category,
	}

	chunks := i.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s produced no chunks", path)
	}

	if err := i.store.UpsertDocument(ctx, doc); err != nil {
		return nil, err
	}

	stored := 0
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		vectors, err := i.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding %s chunks %d-%d: %w", filename, start, end-1, err)
		}

		n, err := i.store.InsertFragments(ctx, doc.ID, category, batch, vectors)
		if err != nil {
			return nil, err
		}
		stored += n
	}

	i.logger.Info("ingested document",
		"document_id", doc.ID, "filename", filename, "chunks", len(chunks), "stored", stored)

	return &Report{DocumentID: doc.ID, Filename: filename, Chunks: len(chunks), Stored: stored}, nil
}

// IngestDir walks a directory and ingests every supported file. Files that
// fail are logged and skipped so one bad file does not abort the batch.
func (i *Ingestor) IngestDir(ctx context.Context, dir, category string) ([]Report, error) {
	var reports []Report

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		report, err := i.IngestFile(ctx, path, category)
		if err != nil {
			i.logger.Warn("skipping file that failed to ingest", "path", path, "error", err)
			return nil
		}
		reports = append(reports, *report)
		return nil
	})
	if err != nil {
		return reports, fmt.Errorf("walking %s: %w", dir, err)
	}
	return reports, nil
}
