package landmark

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/vecgo"
)

// IndexFileName is the snapshot file holding the vector index inside
// the configured index directory.
const IndexFileName = "index.vecgo"

// Entry is one registered landmark. It travels as the payload attached
// to the landmark's embedding vector inside the index.
type Entry struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	// RadiusM is the landmark's registered accuracy radius. Zero means
	// the index entry has none and the matcher substitutes its default.
	RadiusM float64 `json:"radius_m,omitempty"`
}

// manifestLine is one line of the meta.jsonl build manifest: an entry
// plus its reference embedding inline.
type manifestLine struct {
	Entry
	Embedding []float32 `json:"embedding"`
}

// Candidate is a search hit: a registered landmark with its cosine
// similarity to the query embedding.
type Candidate struct {
	Entry
	Similarity float64
}

// Index is the read-mostly landmark reference index.
type Index struct {
	db  *vecgo.Vecgo[Entry]
	dim int
	len int
}

// BuildIndex reads a JSONL manifest (one landmark object per line,
// embedding vector inline) and builds a flat cosine index over it. The
// first line fixes the embedding dimension; later lines with a
// different dimension are an error, since a mixed index would silently
// mis-rank everything.
func BuildIndex(ctx context.Context, r io.Reader) (*Index, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	var idx *Index
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var m manifestLine
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("manifest line %d: %w", line, err)
		}
		if m.ID == "" || len(m.Embedding) == 0 {
			return nil, fmt.Errorf("manifest line %d: missing id or embedding", line)
		}

		if idx == nil {
			db, err := vecgo.Flat[Entry](len(m.Embedding)).Cosine().Build()
			if err != nil {
				return nil, fmt.Errorf("create index: %w", err)
			}
			idx = &Index{db: db, dim: len(m.Embedding)}
		}
		if len(m.Embedding) != idx.dim {
			return nil, fmt.Errorf("manifest line %d: dimension %d, index is %d", line, len(m.Embedding), idx.dim)
		}

		if _, err := idx.db.Insert(ctx, vecgo.VectorWithData[Entry]{
			Vector: m.Embedding,
			Data:   m.Entry,
		}); err != nil {
			return nil, fmt.Errorf("manifest line %d: insert: %w", line, err)
		}
		idx.len++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if idx == nil {
		return nil, fmt.Errorf("manifest contains no entries")
	}
	return idx, nil
}

// OpenIndex loads a previously saved index snapshot from dir.
func OpenIndex(dir string) (*Index, error) {
	path := filepath.Join(dir, IndexFileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("landmark index %s: %w", path, err)
	}

	db, err := vecgo.NewFromFile[Entry](path)
	if err != nil {
		return nil, fmt.Errorf("load landmark index %s: %w", path, err)
	}
	return &Index{db: db, len: -1}, nil
}

// Save writes the index snapshot into dir, creating it if needed.
func (i *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := i.db.SaveToFile(filepath.Join(dir, IndexFileName)); err != nil {
		return fmt.Errorf("save landmark index: %w", err)
	}
	return nil
}

// Len returns the number of indexed landmarks, or -1 when the index
// was loaded from a snapshot (the mmap loader does not expose a count).
func (i *Index) Len() int { return i.len }

// Close releases the underlying store (unmaps the snapshot when the
// index was loaded from file).
func (i *Index) Close() error { return i.db.Close() }

// Search returns the k nearest landmarks to the query embedding,
// best first, each with its cosine similarity.
//
// The index runs in cosine mode, meaning vectors are L2-normalized and
// compared by squared euclidean distance; for unit vectors that
// distance is 2(1-cos), so similarity recovers as 1 - distance/2.
func (i *Index) Search(ctx context.Context, query []float32, k int) ([]Candidate, error) {
	if k <= 0 {
		k = 1
	}
	hits, err := i.db.KNNSearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("landmark search: %w", err)
	}

	out := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, Candidate{
			Entry:      h.Data,
			Similarity: 1 - float64(h.Distance)/2,
		})
	}
	return out, nil
}
