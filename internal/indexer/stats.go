package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
)

// ChunkerVersion identifies the splitting algorithm. Bump it when chunk
// boundaries change so that IndexVersion forces re-import.
const ChunkerVersion = "v2.0"

// ChunkTokenStats summarizes token counts across the chunks of an import.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// IndexVersion fingerprints everything that shapes stored vectors: the
// chunker version, the embedding model and the token budget.
func IndexVersion(embeddingModel string, budget Budget) string {
	input := fmt.Sprintf("%s|%s|line=%d|paragraph=%d|overlap=%d",
		ChunkerVersion, embeddingModel,
		budget.MaxTokensPerLine, budget.MaxTokensPerParagraph, budget.OverlapTokens)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := slices.Clone(tokenCounts)
	slices.Sort(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
