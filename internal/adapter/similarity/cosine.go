// Package similarity holds the vector math shared by the vector stores.
package similarity

import (
	"math"
	"sort"
)

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine calculates the cosine similarity between two vectors.
// A zero vector or a length mismatch yields 0.
func Cosine(a, b []float32) float64 {
	return CosineWithNorms(a, b, Norm(a), Norm(b))
}

// CosineWithNorms is Cosine with precomputed norms.
func CosineWithNorms(a, b []float32, normA, normB float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}

	sim := dot / (normA * normB)
	if math.IsNaN(sim) {
		return 0
	}
	// rounding can push identical vectors slightly past 1
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Candidate is one scored embedding awaiting chunk resolution.
type Candidate struct {
	EmbeddingID string
	ChunkID     string
	Score       float64
}

// Rank sorts candidates by descending score. Ties are broken by embedding id
// so the order is stable across runs.
func Rank(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].EmbeddingID < candidates[j].EmbeddingID
	})
}

// Select walks ranked candidates and keeps at most k of them, one per chunk.
// resolve reports whether a candidate's chunk exists; candidates it rejects are
// skipped and the next best fills their slot. resolve errors abort the walk.
func Select(ranked []Candidate, k int, resolve func(c Candidate) (bool, error)) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, k)
	out := make([]Candidate, 0, k)
	for _, c := range ranked {
		if len(out) == k {
			break
		}
		if _, dup := seen[c.ChunkID]; dup {
			continue
		}
		ok, err := resolve(c)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		seen[c.ChunkID] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
