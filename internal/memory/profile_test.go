// Package memory holds allocation profiling tests for the hot read
// paths: full fetches from the store and snapshot filtering.
package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	"github.com/kimhsiao/conceptdeck/internal/models"
	"github.com/kimhsiao/conceptdeck/internal/search"
	"github.com/kimhsiao/conceptdeck/internal/store"
)

const seedCount = 1000

// setupProfileStore opens a file-backed store seeded with seedCount
// records spread over ten topics.
func setupProfileStore(tb testing.TB) *store.SQLiteStore {
	tb.Helper()

	s, err := store.Open(filepath.Join(tb.TempDir(), "profile.db"))
	if err != nil {
		tb.Fatalf("Failed to open store: %v", err)
	}
	tb.Cleanup(func() { s.Close() })

	now := time.Now()
	drafts := make([]models.Concept, 0, seedCount)
	for i := 0; i < seedCount; i++ {
		drafts = append(drafts, models.NewDraft(models.DraftParams{
			TopicID:    i % 10,
			Topic:      fmt.Sprintf("Topic %d", i%10),
			Title:      fmt.Sprintf("Concept %d", i),
			Definition: fmt.Sprintf("Definition number %d with some keywords", i),
			Keyword:    fmt.Sprintf("keyword-%d", i),
		}, now))
	}
	if _, err := s.ReplaceAll(context.Background(), drafts); err != nil {
		tb.Fatalf("Failed to seed store: %v", err)
	}
	return s
}

// getMemoryStats returns current memory statistics.
func getMemoryStats() runtime.MemStats {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats
}

// formatBytes formats bytes to a human-readable string.
func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

// TestMemoryLeakSnapshotFilter runs many filter passes over a large
// snapshot and checks that allocated memory stabilizes.
func TestMemoryLeakSnapshotFilter(t *testing.T) {
	s := setupProfileStore(t)

	concepts, err := s.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	snap := cache.Snapshot(concepts)

	runtime.GC()
	initialStats := getMemoryStats()

	t.Log("Initial memory stats:")
	t.Logf("  Alloc: %s", formatBytes(initialStats.Alloc))
	t.Logf("  TotalAlloc: %s", formatBytes(initialStats.TotalAlloc))
	t.Logf("  Sys: %s", formatBytes(initialStats.Sys))
	t.Logf("  NumGC: %d", initialStats.NumGC)

	const iterations = 1000
	for i := 0; i < iterations; i++ {
		page := search.Filter(snap, search.Query{Q: "keywords", PerPage: 20})
		if page.Total != seedCount {
			t.Fatalf("Filter matched %d records, want %d", page.Total, seedCount)
		}

		if (i+1)%100 == 0 {
			runtime.GC()
			currentStats := getMemoryStats()
			allocatedDiff := currentStats.TotalAlloc - initialStats.TotalAlloc

			t.Logf("After %d iterations:", i+1)
			t.Logf("  Alloc: %s", formatBytes(currentStats.Alloc))
			t.Logf("  TotalAlloc: %s (diff: %s)", formatBytes(currentStats.TotalAlloc), formatBytes(allocatedDiff))
			t.Logf("  Sys: %s", formatBytes(currentStats.Sys))
		}
	}

	runtime.GC()
	finalStats := getMemoryStats()

	t.Log("Final memory stats:")
	t.Logf("  Alloc: %s", formatBytes(finalStats.Alloc))
	t.Logf("  TotalAlloc: %s", formatBytes(finalStats.TotalAlloc))
	t.Logf("  NumGC: %d", finalStats.NumGC)

	// Alloc can shrink across GC cycles; only growth signals a leak.
	var allocChange int64
	if finalStats.Alloc > initialStats.Alloc {
		allocChange = int64(finalStats.Alloc - initialStats.Alloc)
	}
	if allocChange > 5*1024*1024 {
		t.Errorf("Potential memory leak: allocated memory grew by %s", formatBytes(uint64(allocChange)))
	}
}

// TestMemoryLeakFetchAll runs repeated full fetches through the store
// gateway, which exercises the prepared-statement cache and row scan
// path for leaks.
func TestMemoryLeakFetchAll(t *testing.T) {
	s := setupProfileStore(t)
	ctx := context.Background()

	runtime.GC()
	initialStats := getMemoryStats()

	const iterations = 500
	for i := 0; i < iterations; i++ {
		concepts, err := s.FetchAll(ctx)
		if err != nil {
			t.Fatalf("FetchAll failed: %v", err)
		}
		if len(concepts) != seedCount {
			t.Fatalf("FetchAll returned %d records, want %d", len(concepts), seedCount)
		}

		if (i+1)%100 == 0 {
			runtime.GC()
			currentStats := getMemoryStats()
			t.Logf("Iteration %d: Alloc=%s TotalAlloc=%s",
				i+1, formatBytes(currentStats.Alloc), formatBytes(currentStats.TotalAlloc))
		}
	}

	runtime.GC()
	finalStats := getMemoryStats()

	var allocChange int64
	if finalStats.Alloc > initialStats.Alloc {
		allocChange = int64(finalStats.Alloc - initialStats.Alloc)
	}
	t.Logf("Memory change after %d fetches: %s", iterations, formatBytes(uint64(allocChange)))

	if allocChange > 5*1024*1024 {
		t.Errorf("Potential memory leak: allocated memory grew by %s", formatBytes(uint64(allocChange)))
	}
}

// BenchmarkSnapshotFilter benchmarks allocation during snapshot search.
func BenchmarkSnapshotFilter(b *testing.B) {
	s := setupProfileStore(b)

	concepts, err := s.FetchAll(context.Background())
	if err != nil {
		b.Fatalf("FetchAll failed: %v", err)
	}
	snap := cache.Snapshot(concepts)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		search.Filter(snap, search.Query{Q: "keywords", PerPage: 20})
	}
}

// BenchmarkFetchAll benchmarks allocation during a full store fetch.
func BenchmarkFetchAll(b *testing.B) {
	s := setupProfileStore(b)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := s.FetchAll(ctx); err != nil {
			b.Fatalf("FetchAll failed: %v", err)
		}
	}
}
