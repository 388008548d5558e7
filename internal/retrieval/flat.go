package retrieval

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/DhruvParmar051/book-recommendation-system/internal/providers"
	"github.com/parquet-go/parquet-go"
)

// FlatIndex is an exact inner-product index over L2-normalized vectors.
// Equal scores keep insertion order.
type FlatIndex struct {
	dim     int
	ids     []string
	vectors [][]float32
}

// NewFlatIndex creates an empty index for vectors of length dim. A zero dim
// is fixed by the first Add.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Add normalizes a copy of vector and appends it under id.
func (f *FlatIndex) Add(id string, vector []float32) error {
	if id == "" {
		return errors.New("empty record id")
	}
	if f.dim == 0 {
		f.dim = len(vector)
	}
	if len(vector) != f.dim {
		return fmt.Errorf("vector for %s has dimension %d, index expects %d", id, len(vector), f.dim)
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, providers.Normalize(v))
	return nil
}

// Len returns the number of indexed vectors.
func (f *FlatIndex) Len() int {
	return len(f.ids)
}

// Dim returns the vector dimension.
func (f *FlatIndex) Dim() int {
	return f.dim
}

// IDs returns the record ids in insertion order.
func (f *FlatIndex) IDs() []string {
	out := make([]string, len(f.ids))
	copy(out, f.ids)
	return out
}

// Search scores every vector against the normalized query.
func (f *FlatIndex) Search(vector []float32, k int) ([]string, []float32, error) {
	if len(vector) != f.dim {
		return nil, nil, fmt.Errorf("query has dimension %d, index expects %d", len(vector), f.dim)
	}
	q := make([]float32, len(vector))
	copy(q, vector)
	providers.Normalize(q)

	order := make([]int, len(f.vectors))
	scores := make([]float32, len(f.vectors))
	for i, v := range f.vectors {
		order[i] = i
		scores[i] = dot(q, v)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	ids := make([]string, k)
	out := make([]float32, k)
	for i := 0; i < k; i++ {
		ids[i] = f.ids[order[i]]
		out[i] = scores[order[i]]
	}
	return ids, out, nil
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

type indexRow struct {
	RecordID string    `parquet:"record_id"`
	Vector   []float32 `parquet:"vector,list"`
}

// WriteParquet writes the index as (record_id, vector) rows.
func (f *FlatIndex) WriteParquet(w io.Writer) error {
	rows := make([]indexRow, len(f.ids))
	for i := range f.ids {
		rows[i] = indexRow{RecordID: f.ids[i], Vector: f.vectors[i]}
	}
	pw := parquet.NewGenericWriter[indexRow](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("failed to write index rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close index writer: %w", err)
	}
	return nil
}

// Save writes the index to path.
func (f *FlatIndex) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	if err := f.WriteParquet(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// LoadFlatIndex reads an index written by Save.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat index file: %w", err)
	}

	rows, err := parquet.Read[indexRow](file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	idx := NewFlatIndex(0)
	for _, r := range rows {
		if err := idx.Add(r.RecordID, r.Vector); err != nil {
			return nil, fmt.Errorf("failed to load index: %w", err)
		}
	}
	return idx, nil
}
