package rag

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

const vectorFileMagic uint32 = 0x53414947 // "SAIG"

// VectorStore is a flat, in-memory, L2-normalized vector index searched by
// brute-force cosine similarity (dot product of normalized vectors) —
// no ANN structure, just exact nearest neighbors, which is plenty fast at
// the package/saidata corpus sizes this tool indexes.
type VectorStore struct {
	dimension int
	vectors   [][]float32
}

// NewVectorStore creates an empty store for vectors of the given dimension.
func NewVectorStore(dimension int) *VectorStore {
	return &VectorStore{dimension: dimension}
}

// Add appends vectors, normalizing each in place first.
func (s *VectorStore) Add(vectors [][]float32) {
	for _, v := range vectors {
		s.vectors = append(s.vectors, normalizeL2(v))
	}
}

// Len returns the number of vectors stored.
func (s *VectorStore) Len() int { return len(s.vectors) }

// Search returns the indices and cosine scores of the top-k nearest vectors
// to query (which is normalized internally), best score first.
func (s *VectorStore) Search(query []float32, k int) ([]int, []float32) {
	if len(s.vectors) == 0 || k <= 0 {
		return nil, nil
	}

	normalizedQuery := normalizeL2(query)
	type scored struct {
		idx   int
		score float32
	}
	scores := make([]scored, len(s.vectors))
	for i, v := range s.vectors {
		scores[i] = scored{idx: i, score: dot(normalizedQuery, v)}
	}

	// Partial selection sort for the top k; corpus sizes here are small
	// enough that a full sort would also be fine, but this avoids it.
	if k > len(scores) {
		k = len(scores)
	}
	for i := 0; i < k; i++ {
		best := i
		for j := i + 1; j < len(scores); j++ {
			if scores[j].score > scores[best].score {
				best = j
			}
		}
		scores[i], scores[best] = scores[best], scores[i]
	}

	indices := make([]int, k)
	result := make([]float32, k)
	for i := 0; i < k; i++ {
		indices[i] = scores[i].idx
		result[i] = scores[i].score
	}
	return indices, result
}

func normalizeL2(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Save writes the store to path as a flat binary file: a small header
// (magic, dimension, count) followed by count*dimension little-endian
// float32 values.
func (s *VectorStore) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating vector file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, vectorFileMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(s.dimension)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s.vectors))); err != nil {
		return err
	}
	for _, v := range s.vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return w.Flush()
}

// LoadVectorStore reads a store previously written by Save.
func LoadVectorStore(path string) (*VectorStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vector file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic, dimension, count uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("reading vector file header: %w", err)
	}
	if magic != vectorFileMagic {
		return nil, fmt.Errorf("not a saigen vector file: bad magic %x", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &dimension); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	store := &VectorStore{dimension: int(dimension)}
	store.vectors = make([][]float32, count)
	for i := uint32(0); i < count; i++ {
		v := make([]float32, dimension)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("reading vector %d: %w", i, err)
		}
		store.vectors[i] = v
	}
	return store, nil
}
