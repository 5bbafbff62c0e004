package indexer

import "testing"

func TestComputeTokenStats(t *testing.T) {
	tests := []struct {
		name        string
		tokenCounts []int
		want        ChunkTokenStats
	}{
		{
			name:        "empty",
			tokenCounts: []int{},
			want:        ChunkTokenStats{},
		},
		{
			name:        "single value",
			tokenCounts: []int{10},
			want:        ChunkTokenStats{Min: 10, Max: 10, Mean: 10.0, P95: 10},
		},
		{
			name:        "unsorted values",
			tokenCounts: []int{30, 5, 20, 10, 15},
			want:        ChunkTokenStats{Min: 5, Max: 30, Mean: 16.0, P95: 30},
		},
		{
			name:        "many values for p95",
			tokenCounts: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			want:        ChunkTokenStats{Min: 1, Max: 20, Mean: 10.5, P95: 20},
		},
		{
			name:        "mean rounded to two decimals",
			tokenCounts: []int{1, 1, 2},
			want:        ChunkTokenStats{Min: 1, Max: 2, Mean: 1.33, P95: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeTokenStats(tt.tokenCounts); got != tt.want {
				t.Errorf("computeTokenStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeTokenStats_DoesNotReorderInput(t *testing.T) {
	counts := []int{3, 1, 2}
	_ = computeTokenStats(counts)
	if counts[0] != 3 || counts[1] != 1 || counts[2] != 2 {
		t.Errorf("computeTokenStats() mutated input: %v", counts)
	}
}

func TestIndexVersion(t *testing.T) {
	base := IndexVersion("nomic-embed-text", DefaultBudget)

	if len(base) != 16 {
		t.Errorf("IndexVersion() length = %d, want 16", len(base))
	}
	if got := IndexVersion("nomic-embed-text", DefaultBudget); got != base {
		t.Errorf("IndexVersion() not stable: %s vs %s", got, base)
	}
	if got := IndexVersion("mxbai-embed-large", DefaultBudget); got == base {
		t.Error("IndexVersion() should change with the embedding model")
	}
	changed := DefaultBudget
	changed.OverlapTokens = 50
	if got := IndexVersion("nomic-embed-text", changed); got == base {
		t.Error("IndexVersion() should change with the budget")
	}
}
